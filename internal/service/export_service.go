package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"unilend/backend/internal/dto"
	"unilend/backend/internal/model"
	"unilend/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoRequests   = errors.New("筛选条件下无申请记录")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 借用台账导出为 Excel (.xlsx)，支持按状态/类型/物品筛选
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportRequests 导出借用申请台账为 Excel
	ExportRequests(ctx context.Context, req *dto.ListRequestsRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportRequests — 导出借用台账为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式（单 Sheet，一行一条申请，按申请时间升序）：
//   | 申请人 | 邮箱 | 物品 | 分类 | 类型 | 数量 | 状态 | 申请时间 | 批准时间 | 预期归还 | 实际归还 | 备注 |
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportRequests(ctx context.Context, req *dto.ListRequestsRequest) (*bytes.Buffer, string, error) {
	requests, err := s.repo.Request.ListAll(ctx, repository.RequestFilter{
		ItemID: req.ItemID,
		Status: req.Status,
		Type:   req.Type,
	})
	if err != nil {
		s.logger.Error("查询申请台账失败", zap.Error(err))
		return nil, "", err
	}
	if len(requests) == 0 {
		return nil, "", ErrExportNoRequests
	}

	typeNames := map[string]string{
		model.RequestTypeBorrow:  "借用",
		model.RequestTypeReserve: "预约",
	}
	statusNames := map[string]string{
		model.RequestStatusPending:   "待审批",
		model.RequestStatusApproved:  "已批准",
		model.RequestStatusRejected:  "已拒绝",
		model.RequestStatusCancelled: "已取消",
		model.RequestStatusCompleted: "已完结",
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "借用台账"
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		s.logger.Error("创建 Sheet 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"申请人", "邮箱", "物品", "分类", "类型", "数量", "状态", "申请时间", "批准时间", "预期归还", "实际归还", "备注"}
	widths := []float64{12, 24, 18, 12, 8, 8, 10, 20, 20, 20, 20, 30}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	for i, h := range headers {
		c := cell(colName(i), 1)
		f.SetCellValue(sheetName, c, h)
		f.SetCellStyle(sheetName, c, c, headerStyle)
	}

	row := 2
	for i := range requests {
		r := &requests[i]

		userName, userEmail := r.UserID, ""
		if r.User != nil {
			userName = r.User.FullName
			userEmail = r.User.Email
		}
		itemName, itemCategory := r.ItemID, ""
		if r.Item != nil {
			itemName = r.Item.Name
			itemCategory = r.Item.Category
		}

		values := []interface{}{
			userName,
			userEmail,
			itemName,
			itemCategory,
			typeNames[r.RequestType],
			r.RequestedAmount,
			statusNames[r.Status],
			formatExportTime(&r.RequestedAt),
			formatExportTime(r.ApprovedAt),
			formatExportTime(r.ExpectedReturnAt),
			formatExportTime(r.ReturnedAt),
			r.Notes,
		}
		for j, v := range values {
			f.SetCellValue(sheetName, cell(colName(j), row), v)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("借用台账_%s.xlsx", time.Now().Format("20060102"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func formatExportTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}
