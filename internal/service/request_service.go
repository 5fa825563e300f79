package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"unilend/backend/config"
	"unilend/backend/internal/dto"
	"unilend/backend/internal/model"
	"unilend/backend/internal/repository"
	apperrors "unilend/backend/pkg/errors"
)

// ── 申请模块业务错误 ──

var (
	ErrItemNotFound         = errors.New("物品不存在")
	ErrRequestNotFound      = errors.New("申请不存在")
	ErrAmountInvalid        = errors.New("申请数量超出可借范围")
	ErrInsufficientQuantity = errors.New("物品可用数量不足")
	ErrRequestStateInvalid  = errors.New("申请状态不允许该操作")
	ErrNotRequestOwner      = errors.New("只能操作本人提交的申请")
	ErrReturnTimeInvalid    = errors.New("预期归还时间无效")
)

// 乐观锁冲突时整个读-校验-写循环的最大重试次数
const maxTxRetries = 3

// RequestService 借用申请生命周期业务接口
//
// 状态机：pending → {approved, rejected, cancelled}；approved → completed。
// 所有改动库存计数的迁移（Approve / Complete）在单个事务内完成：
// 申请状态用 WHERE status=? 条件更新，物品计数用 version 条件更新，
// 任一条件落空即回滚重试，保证并发审批不会超发库存。
type RequestService interface {
	Submit(ctx context.Context, req *dto.SubmitRequestRequest, userID string) (*dto.RequestResponse, error)
	GetByID(ctx context.Context, id string) (*dto.RequestResponse, error)
	List(ctx context.Context, req *dto.ListRequestsRequest, userID string) ([]dto.RequestResponse, int64, error)
	Approve(ctx context.Context, requestID, staffID string, req *dto.ApproveRequestRequest) (*dto.RequestResponse, error)
	Reject(ctx context.Context, requestID, staffID string) error
	Cancel(ctx context.Context, requestID, userID string) error
	RequestCancellation(ctx context.Context, requestID, userID string, req *dto.CancellationRequestRequest) error
	Complete(ctx context.Context, requestID, staffID string) (*dto.RequestResponse, error)
}

type requestService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewRequestService 创建 RequestService 实例
func NewRequestService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) RequestService {
	return &requestService{cfg: cfg, repo: repo, logger: logger}
}

// ────────────────────── Submit ──────────────────────

// Submit 提交借用/预约申请
// borrow 申请数量不得超过当前可用量，reserve 不得超过物品总量。
// 数量校验在审批时还会按最新库存复查（见 Approve）。
func (s *requestService) Submit(ctx context.Context, req *dto.SubmitRequestRequest, userID string) (*dto.RequestResponse, error) {
	item, err := s.repo.Item.GetByID(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		s.logger.Error("查询物品失败", zap.String("item_id", req.ItemID), zap.Error(err))
		return nil, err
	}

	switch req.RequestType {
	case model.RequestTypeBorrow:
		if req.Amount < 1 || req.Amount > item.AvailableAmount {
			return nil, ErrAmountInvalid
		}
	case model.RequestTypeReserve:
		if req.Amount < 1 || req.Amount > item.Amount {
			return nil, ErrAmountInvalid
		}
	default:
		return nil, ErrAmountInvalid
	}

	request := &model.BorrowRequest{
		ItemID:          item.ItemID,
		UserID:          userID,
		RequestType:     req.RequestType,
		RequestedAmount: req.Amount,
		Status:          model.RequestStatusPending,
		RequestedAt:     time.Now(),
		Notes:           req.Notes,
	}
	request.CreatedBy = &userID
	request.UpdatedBy = &userID

	if err := s.repo.Request.Create(ctx, request); err != nil {
		s.logger.Error("创建申请失败", zap.Error(err))
		return nil, err
	}

	resp := s.toRequestResponse(request)
	resp.Item = toItemResponse(item)
	return resp, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *requestService) GetByID(ctx context.Context, id string) (*dto.RequestResponse, error) {
	request, err := s.repo.Request.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		s.logger.Error("查询申请失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.toRequestResponse(request), nil
}

// ────────────────────── List ──────────────────────

// List 申请列表；userID 非空时仅返回该用户的申请（用户视角），
// 为空时返回全量（员工视角）
func (s *requestService) List(ctx context.Context, req *dto.ListRequestsRequest, userID string) ([]dto.RequestResponse, int64, error) {
	requests, total, err := s.repo.Request.List(ctx, repository.RequestFilter{
		UserID: userID,
		ItemID: req.ItemID,
		Status: req.Status,
		Type:   req.Type,
		Offset: req.GetOffset(),
		Limit:  req.GetPageSize(),
	})
	if err != nil {
		s.logger.Error("查询申请列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.RequestResponse, 0, len(requests))
	for i := range requests {
		result = append(result, *s.toRequestResponse(&requests[i]))
	}
	return result, total, nil
}

// ────────────────────── Approve ──────────────────────

// Approve 审批通过并登记领用
// 前置条件：申请仍为 pending，且申请数量不超过审批时刻的可用量
// （提交后库存可能已被其他审批占用，必须复查而不是信任提交时的快照）。
// 原子效果：申请 → approved 并记录时间戳；物品可用量扣减、状态重算、
// 归零时记录当前借用人。
func (s *requestService) Approve(ctx context.Context, requestID, staffID string, req *dto.ApproveRequestRequest) (*dto.RequestResponse, error) {
	expectedReturnAt, err := s.parseExpectedReturn(req.ExpectedReturnAt)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		request, err := s.repo.Request.GetByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrRequestNotFound
			}
			s.logger.Error("查询申请失败", zap.String("id", requestID), zap.Error(err))
			return nil, err
		}
		if request.Status != model.RequestStatusPending {
			return nil, ErrRequestStateInvalid
		}

		item, err := s.repo.Item.GetByID(ctx, request.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrItemNotFound
			}
			s.logger.Error("查询物品失败", zap.String("item_id", request.ItemID), zap.Error(err))
			return nil, err
		}

		// 审批时刻复查库存，不足时明确报错而不是静默截断
		if request.RequestedAmount > item.AvailableAmount {
			return nil, ErrInsufficientQuantity
		}

		now := time.Now()
		committed, err := s.applyApprove(ctx, request, item, staffID, now, expectedReturnAt)
		if err != nil {
			return nil, err
		}
		if !committed {
			// 乐观锁冲突：库存已被并发审批改动，重读后重试
			s.logger.Warn("审批遇到并发冲突，重试",
				zap.String("request_id", requestID),
				zap.Int("attempt", attempt+1),
			)
			continue
		}

		s.notifyUser(ctx, request.UserID, model.NotifyItemApproved,
			"申请已通过",
			fmt.Sprintf("您对「%s」的借用申请（%d 件）已通过，请按时归还。", item.Name, request.RequestedAmount),
			&item.ItemID, &request.RequestID)

		return s.GetByID(ctx, requestID)
	}

	return nil, apperrors.ErrOptimisticLock
}

// applyApprove 在单个事务内应用审批迁移
// 返回 committed=false 表示物品行乐观锁冲突，调用方应重读重试
func (s *requestService) applyApprove(
	ctx context.Context,
	request *model.BorrowRequest,
	item *model.Item,
	staffID string,
	now time.Time,
	expectedReturnAt time.Time,
) (bool, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return false, err
	}
	txRepo := s.repo.WithTx(tx)

	// 先做冲突概率最高的物品 CAS，命中冲突时事务内尚无其他改动
	item.AvailableAmount -= request.RequestedAmount
	item.Status = item.DeriveStatus()
	if item.AvailableAmount == 0 {
		// 仅在本次审批清空库存时记录借用人；部分借出时该字段保持原值
		borrowerID := request.UserID
		item.CurrentBorrowerID = &borrowerID
	}
	item.UpdatedBy = &staffID

	if err := txRepo.Item.UpdateWithVersion(ctx, item); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, apperrors.ErrOptimisticLock) {
			return false, nil
		}
		s.logger.Error("更新物品库存失败", zap.Error(err))
		return false, err
	}

	ok, err := txRepo.Request.UpdateStatusFrom(ctx, request.RequestID, model.RequestStatusPending, map[string]interface{}{
		"status":             model.RequestStatusApproved,
		"approved_at":        now,
		"approved_by":        staffID,
		"borrowed_at":        now,
		"expected_return_at": expectedReturnAt,
		"updated_by":         staffID,
	})
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("更新申请状态失败", zap.Error(err))
		return false, err
	}
	if !ok {
		if tx != nil {
			tx.Rollback()
		}
		return false, ErrRequestStateInvalid
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return false, err
		}
	}
	return true, nil
}

// ────────────────────── Reject ──────────────────────

// Reject 驳回申请：pending → rejected，不涉及库存
// （pending 申请从未占用过库存）
func (s *requestService) Reject(ctx context.Context, requestID, staffID string) error {
	request, err := s.repo.Request.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		s.logger.Error("查询申请失败", zap.String("id", requestID), zap.Error(err))
		return err
	}
	if request.Status != model.RequestStatusPending {
		return ErrRequestStateInvalid
	}

	ok, err := s.repo.Request.UpdateStatusFrom(ctx, requestID, model.RequestStatusPending, map[string]interface{}{
		"status":     model.RequestStatusRejected,
		"updated_by": staffID,
	})
	if err != nil {
		s.logger.Error("驳回申请失败", zap.String("id", requestID), zap.Error(err))
		return err
	}
	if !ok {
		return ErrRequestStateInvalid
	}

	itemName := request.ItemID
	if request.Item != nil {
		itemName = request.Item.Name
	}
	s.notifyUser(ctx, request.UserID, model.NotifyItemRejected,
		"申请被驳回",
		fmt.Sprintf("您对「%s」的申请已被驳回。", itemName),
		&request.ItemID, &request.RequestID)

	return nil
}

// ────────────────────── Cancel ──────────────────────

// Cancel 用户撤回自己的 pending 申请
func (s *requestService) Cancel(ctx context.Context, requestID, userID string) error {
	request, err := s.repo.Request.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		s.logger.Error("查询申请失败", zap.String("id", requestID), zap.Error(err))
		return err
	}
	if request.UserID != userID {
		return ErrNotRequestOwner
	}
	if request.Status != model.RequestStatusPending {
		return ErrRequestStateInvalid
	}

	ok, err := s.repo.Request.UpdateStatusFrom(ctx, requestID, model.RequestStatusPending, map[string]interface{}{
		"status":     model.RequestStatusCancelled,
		"updated_by": userID,
	})
	if err != nil {
		s.logger.Error("取消申请失败", zap.String("id", requestID), zap.Error(err))
		return err
	}
	if !ok {
		return ErrRequestStateInvalid
	}
	return nil
}

// ────────────────────── RequestCancellation ──────────────────────

// RequestCancellation 对已批准的申请发起取消请求
// 已批准申请占用了库存，不能由用户直接取消，改为通知全体员工线下处理
func (s *requestService) RequestCancellation(ctx context.Context, requestID, userID string, req *dto.CancellationRequestRequest) error {
	request, err := s.repo.Request.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		s.logger.Error("查询申请失败", zap.String("id", requestID), zap.Error(err))
		return err
	}
	if request.UserID != userID {
		return ErrNotRequestOwner
	}
	if request.Status != model.RequestStatusApproved {
		return ErrRequestStateInvalid
	}

	staff, err := s.repo.User.ListByRole(ctx, model.RoleStaff)
	if err != nil {
		s.logger.Error("查询员工列表失败", zap.Error(err))
		return err
	}

	itemName := request.ItemID
	if request.Item != nil {
		itemName = request.Item.Name
	}
	userName := request.UserID
	if request.User != nil {
		userName = request.User.FullName
	}
	message := fmt.Sprintf("%s 请求取消对「%s」的已批准借用（%d 件）。", userName, itemName, request.RequestedAmount)
	if req != nil && req.Reason != "" {
		message += " 原因：" + req.Reason
	}

	notifications := make([]model.Notification, 0, len(staff))
	for i := range staff {
		notifications = append(notifications, model.Notification{
			UserID:           staff[i].ProfileID,
			Title:            "取消借用请求",
			Message:          message,
			Type:             model.NotifyCancellationRequest,
			RelatedItemID:    &request.ItemID,
			RelatedRequestID: &request.RequestID,
		})
	}
	if err := s.repo.Notification.CreateBatch(ctx, notifications); err != nil {
		s.logger.Error("发送取消请求通知失败", zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Complete ──────────────────────

// Complete 归还登记：approved → completed
// 原子效果：申请终结并记录归还时间；物品可用量按申请数量回加
// （上限封顶到总量）、状态重算、有余量时清除当前借用人。
// 归还后触发预约队列处理。
func (s *requestService) Complete(ctx context.Context, requestID, staffID string) (*dto.RequestResponse, error) {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		request, err := s.repo.Request.GetByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrRequestNotFound
			}
			s.logger.Error("查询申请失败", zap.String("id", requestID), zap.Error(err))
			return nil, err
		}
		if request.Status != model.RequestStatusApproved {
			return nil, ErrRequestStateInvalid
		}

		item, err := s.repo.Item.GetByID(ctx, request.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrItemNotFound
			}
			s.logger.Error("查询物品失败", zap.String("item_id", request.ItemID), zap.Error(err))
			return nil, err
		}

		committed, err := s.applyComplete(ctx, request, item, staffID)
		if err != nil {
			return nil, err
		}
		if !committed {
			s.logger.Warn("归还遇到并发冲突，重试",
				zap.String("request_id", requestID),
				zap.Int("attempt", attempt+1),
			)
			continue
		}

		s.processReservationQueue(ctx, item.ItemID)
		return s.GetByID(ctx, requestID)
	}

	return nil, apperrors.ErrOptimisticLock
}

// applyComplete 在单个事务内应用归还迁移
func (s *requestService) applyComplete(
	ctx context.Context,
	request *model.BorrowRequest,
	item *model.Item,
	staffID string,
) (bool, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return false, err
	}
	txRepo := s.repo.WithTx(tx)

	item.AvailableAmount += request.RequestedAmount
	if item.AvailableAmount > item.Amount {
		// 总量可能在借出期间被下调过，回加时封顶
		item.AvailableAmount = item.Amount
	}
	item.Status = item.DeriveStatus()
	if item.AvailableAmount > 0 {
		item.CurrentBorrowerID = nil
	}
	item.UpdatedBy = &staffID

	if err := txRepo.Item.UpdateWithVersion(ctx, item); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, apperrors.ErrOptimisticLock) {
			return false, nil
		}
		s.logger.Error("更新物品库存失败", zap.Error(err))
		return false, err
	}

	now := time.Now()
	ok, err := txRepo.Request.UpdateStatusFrom(ctx, request.RequestID, model.RequestStatusApproved, map[string]interface{}{
		"status":      model.RequestStatusCompleted,
		"returned_at": now,
		"updated_by":  staffID,
	})
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("更新申请状态失败", zap.Error(err))
		return false, err
	}
	if !ok {
		if tx != nil {
			tx.Rollback()
		}
		return false, ErrRequestStateInvalid
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return false, err
		}
	}
	return true, nil
}

// ────────────────────── 预约队列 ──────────────────────

// processReservationQueue 归还释放库存后处理预约队列
// 按申请时间 FIFO 遍历 pending 预约：配额内的预约通知用户物品可取
// （申请仍保持 pending，等员工走正常审批），配额外的通知队列位置。
// 通知发送失败只记日志，不影响归还结果。
func (s *requestService) processReservationQueue(ctx context.Context, itemID string) {
	item, err := s.repo.Item.GetByID(ctx, itemID)
	if err != nil {
		s.logger.Error("预约队列处理：查询物品失败", zap.String("item_id", itemID), zap.Error(err))
		return
	}
	if item.AvailableAmount <= 0 {
		return
	}

	reserves, err := s.repo.Request.ListPendingReserves(ctx, itemID)
	if err != nil {
		s.logger.Error("预约队列处理：查询队列失败", zap.String("item_id", itemID), zap.Error(err))
		return
	}

	budget := item.AvailableAmount
	position := 0
	for i := range reserves {
		r := &reserves[i]
		if r.RequestedAmount <= budget {
			budget -= r.RequestedAmount
			s.notifyUser(ctx, r.UserID, model.NotifyItemAvailable,
				"预约物品可取",
				fmt.Sprintf("您预约的「%s」（%d 件）现已有货，请等待工作人员审批领用。", item.Name, r.RequestedAmount),
				&item.ItemID, &r.RequestID)
		} else {
			position++
			s.notifyUser(ctx, r.UserID, model.NotifyItemAvailable,
				"预约排队更新",
				fmt.Sprintf("「%s」部分归还，您的预约（%d 件）当前排在第 %d 位。", item.Name, r.RequestedAmount, position),
				&item.ItemID, &r.RequestID)
		}
	}
}

// ── 内部辅助方法 ──

func (s *requestService) parseExpectedReturn(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().AddDate(0, 0, s.cfg.Lending.DefaultLoanDays), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, ErrReturnTimeInvalid
	}
	if t.Before(time.Now()) {
		return time.Time{}, ErrReturnTimeInvalid
	}
	return t, nil
}

// notifyUser 发送站内通知（fire-and-forget：失败只记日志）
func (s *requestService) notifyUser(ctx context.Context, userID, notifyType, title, message string, itemID, requestID *string) {
	n := &model.Notification{
		UserID:           userID,
		Title:            title,
		Message:          message,
		Type:             notifyType,
		RelatedItemID:    itemID,
		RelatedRequestID: requestID,
	}
	if err := s.repo.Notification.Create(ctx, n); err != nil {
		s.logger.Error("发送通知失败",
			zap.String("user_id", userID),
			zap.String("type", notifyType),
			zap.Error(err),
		)
	}
}

func (s *requestService) toRequestResponse(r *model.BorrowRequest) *dto.RequestResponse {
	resp := &dto.RequestResponse{
		ID:              r.RequestID,
		RequestType:     r.RequestType,
		RequestedAmount: r.RequestedAmount,
		Status:          r.Status,
		RequestedAt:     r.RequestedAt.Format(time.RFC3339),
		Notes:           r.Notes,
	}
	if r.ApprovedAt != nil {
		resp.ApprovedAt = r.ApprovedAt.Format(time.RFC3339)
	}
	if r.BorrowedAt != nil {
		resp.BorrowedAt = r.BorrowedAt.Format(time.RFC3339)
	}
	if r.ExpectedReturnAt != nil {
		resp.ExpectedReturnAt = r.ExpectedReturnAt.Format(time.RFC3339)
	}
	if r.ReturnedAt != nil {
		resp.ReturnedAt = r.ReturnedAt.Format(time.RFC3339)
	}
	if r.Item != nil {
		resp.Item = toItemResponse(r.Item)
	}
	if r.User != nil {
		resp.User = &dto.UserResponse{
			ID:       r.User.ProfileID,
			FullName: r.User.FullName,
			Email:    r.User.Email,
			Role:     r.User.Role,
		}
	}
	return resp
}
