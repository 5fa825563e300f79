package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"unilend/backend/config"
	"unilend/backend/internal/dto"
	"unilend/backend/internal/model"
	"unilend/backend/internal/repository"
	apperrors "unilend/backend/pkg/errors"
)

// ── 测试辅助 ──

type requestTestEnv struct {
	svc      RequestService
	users    *mockUserRepo
	items    *mockItemRepo
	requests *mockRequestRepo
	notifs   *mockNotificationRepo
}

func setupTestRequestService() *requestTestEnv {
	users := newMockUserRepo()
	items := newMockItemRepo()
	requests := newMockRequestRepo(items, users)
	notifs := newMockNotificationRepo()

	repo := &repository.Repository{
		User:         users,
		Item:         items,
		Request:      requests,
		Notification: notifs,
	}
	cfg := &config.Config{
		Lending: config.LendingConfig{DefaultLoanDays: 7},
	}
	svc := NewRequestService(cfg, repo, zap.NewNop())

	return &requestTestEnv{svc: svc, users: users, items: items, requests: requests, notifs: notifs}
}

func (e *requestTestEnv) seedUser(id, role string) {
	e.users.users[id] = &model.User{
		ProfileID: id,
		FullName:  "用户" + id,
		Email:     id + "@example.edu",
		Role:      role,
	}
}

func (e *requestTestEnv) seedItem(id, name string, amount, available int) {
	item := &model.Item{
		ItemID:          id,
		Name:            name,
		Amount:          amount,
		AvailableAmount: available,
	}
	item.Status = item.DeriveStatus()
	item.Version = 1
	e.items.items[id] = item
}

func (e *requestTestEnv) seedRequest(id, itemID, userID, reqType, status string, amount int, requestedAt time.Time) {
	e.requests.requests[id] = &model.BorrowRequest{
		RequestID:       id,
		ItemID:          itemID,
		UserID:          userID,
		RequestType:     reqType,
		RequestedAmount: amount,
		Status:          status,
		RequestedAt:     requestedAt,
	}
}

func (e *requestTestEnv) item(t *testing.T, id string) *model.Item {
	t.Helper()
	it, ok := e.items.items[id]
	if !ok {
		t.Fatalf("物品 %s 不存在", id)
	}
	return it
}

// ── Submit 测试 ──

func TestRequestService_Submit_Borrow(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	env.seedItem("item-1", "示波器", 5, 5)

	result, err := env.svc.Submit(context.Background(), &dto.SubmitRequestRequest{
		ItemID:      "item-1",
		RequestType: model.RequestTypeBorrow,
		Amount:      3,
	}, "u1")
	if err != nil {
		t.Fatalf("Submit 应成功: %v", err)
	}
	if result.Status != model.RequestStatusPending {
		t.Errorf("期望 status=pending，实际=%s", result.Status)
	}
	if result.RequestedAmount != 3 {
		t.Errorf("期望 amount=3，实际=%d", result.RequestedAmount)
	}

	// 提交不占用库存
	if got := env.item(t, "item-1").AvailableAmount; got != 5 {
		t.Errorf("提交后可用量不应变化，实际=%d", got)
	}
}

func TestRequestService_Submit_BorrowExceedsAvailable(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	env.seedItem("item-1", "示波器", 5, 2)

	_, err := env.svc.Submit(context.Background(), &dto.SubmitRequestRequest{
		ItemID:      "item-1",
		RequestType: model.RequestTypeBorrow,
		Amount:      3,
	}, "u1")
	if !errors.Is(err, ErrAmountInvalid) {
		t.Errorf("期望 ErrAmountInvalid，实际: %v", err)
	}
}

func TestRequestService_Submit_ReserveUpToTotal(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	env.seedItem("item-1", "示波器", 5, 0)

	// 预约按总量校验：库存清零时仍可预约
	_, err := env.svc.Submit(context.Background(), &dto.SubmitRequestRequest{
		ItemID:      "item-1",
		RequestType: model.RequestTypeReserve,
		Amount:      5,
	}, "u1")
	if err != nil {
		t.Fatalf("预约应成功: %v", err)
	}

	// 超过总量则拒绝
	_, err = env.svc.Submit(context.Background(), &dto.SubmitRequestRequest{
		ItemID:      "item-1",
		RequestType: model.RequestTypeReserve,
		Amount:      6,
	}, "u1")
	if !errors.Is(err, ErrAmountInvalid) {
		t.Errorf("期望 ErrAmountInvalid，实际: %v", err)
	}
}

func TestRequestService_Submit_ItemNotFound(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)

	_, err := env.svc.Submit(context.Background(), &dto.SubmitRequestRequest{
		ItemID:      "ghost",
		RequestType: model.RequestTypeBorrow,
		Amount:      1,
	}, "u1")
	if !errors.Is(err, ErrItemNotFound) {
		t.Errorf("期望 ErrItemNotFound，实际: %v", err)
	}
}

// ── Approve 测试 ──

func TestRequestService_Approve_Success(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	env.seedItem("item-1", "示波器", 5, 5)
	env.seedRequest("req-1", "item-1", "u1", model.RequestTypeBorrow, model.RequestStatusPending, 3, time.Now())

	result, err := env.svc.Approve(context.Background(), "req-1", "staff-1", &dto.ApproveRequestRequest{})
	if err != nil {
		t.Fatalf("Approve 应成功: %v", err)
	}
	if result.Status != model.RequestStatusApproved {
		t.Errorf("期望 status=approved，实际=%s", result.Status)
	}
	if result.ApprovedAt == "" || result.BorrowedAt == "" {
		t.Error("审批后应记录 approved_at 和 borrowed_at")
	}

	// 库存精确扣减
	item := env.item(t, "item-1")
	if item.AvailableAmount != 2 {
		t.Errorf("期望可用量=2，实际=%d", item.AvailableAmount)
	}
	if item.Status != model.ItemStatusAvailable {
		t.Errorf("仍有余量时状态应为 available，实际=%s", item.Status)
	}
	if item.CurrentBorrowerID != nil {
		t.Error("部分借出不应记录 current_borrower_id")
	}

	// 申请人收到通过通知
	if n := env.notifs.byUserAndType("u1", model.NotifyItemApproved); len(n) != 1 {
		t.Errorf("期望 1 条通过通知，实际=%d", len(n))
	}
}

func TestRequestService_Approve_DepletesStock(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	env.seedItem("item-1", "投影仪", 2, 2)
	env.seedRequest("req-1", "item-1", "u1", model.RequestTypeBorrow, model.RequestStatusPending, 2, time.Now())

	if _, err := env.svc.Approve(context.Background(), "req-1", "staff-1", &dto.ApproveRequestRequest{}); err != nil {
		t.Fatalf("Approve 应成功: %v", err)
	}

	item := env.item(t, "item-1")
	if item.AvailableAmount != 0 {
		t.Errorf("期望可用量=0，实际=%d", item.AvailableAmount)
	}
	if item.Status != model.ItemStatusBorrowed {
		t.Errorf("清空库存后状态应为 borrowed，实际=%s", item.Status)
	}
	if item.CurrentBorrowerID == nil || *item.CurrentBorrowerID != "u1" {
		t.Error("清空库存的审批应记录 current_borrower_id")
	}
}

func TestRequestService_Approve_DefaultReturnTime(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	env.seedItem("item-1", "示波器", 5, 5)
	env.seedRequest("req-1", "item-1", "u1", model.RequestTypeBorrow, model.RequestStatusPending, 1, time.Now())

	result, err := env.svc.Approve(context.Background(), "req-1", "staff-1", &dto.ApproveRequestRequest{})
	if err != nil {
		t.Fatalf("Approve 应成功: %v", err)
	}

	expected, err := time.Parse(time.RFC3339, result.ExpectedReturnAt)
	if err != nil {
		t.Fatalf("expected_return_at 应为 RFC3339: %v", err)
	}
	want := time.Now().AddDate(0, 0, 7)
	if diff := expected.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("默认归还时间应为 7 天后，实际=%s", result.ExpectedReturnAt)
	}
}

func TestRequestService_Approve_ReturnTimeInvalid(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	env.seedItem("item-1", "示波器", 5, 5)
	env.seedRequest("req-1", "item-1", "u1", model.RequestTypeBorrow, model.RequestStatusPending, 1, time.Now())

	// 非法格式
	_, err := env.svc.Approve(context.Background(), "req-1", "staff-1",
		&dto.ApproveRequestRequest{ExpectedReturnAt: "明天"})
	if !errors.Is(err, ErrReturnTimeInvalid) {
		t.Errorf("期望 ErrReturnTimeInvalid，实际: %v", err)
	}

	// 过去时间
	past := time.Now().Add(-24 * time.Hour).Format(time.RFC3339)
	_, err = env.svc.Approve(context.Background(), "req-1", "staff-1",
		&dto.ApproveRequestRequest{ExpectedReturnAt: past})
	if !errors.Is(err, ErrReturnTimeInvalid) {
		t.Errorf("期望 ErrReturnTimeInvalid，实际: %v", err)
	}
}

func TestRequestService_Approve_InsufficientLeavesStateUnchanged(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	env.seedItem("item-1", "示波器", 5, 2)
	env.seedRequest("req-1", "item-1", "u1", model.RequestTypeBorrow, model.RequestStatusPending, 3, time.Now())

	_, err := env.svc.Approve(context.Background(), "req-1", "staff-1", &dto.ApproveRequestRequest{})
	if !errors.Is(err, ErrInsufficientQuantity) {
		t.Fatalf("期望 ErrInsufficientQuantity，实际: %v", err)
	}

	// 失败的审批不得留下任何副作用
	if got := env.requests.requests["req-1"].Status; got != model.RequestStatusPending {
		t.Errorf("申请应保持 pending，实际=%s", got)
	}
	if got := env.item(t, "item-1").AvailableAmount; got != 2 {
		t.Errorf("库存应保持不变，实际=%d", got)
	}
}

func TestRequestService_Approve_NonPending(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	env.seedItem("item-1", "示波器", 5, 5)
	env.seedRequest("req-1", "item-1", "u1", model.RequestTypeBorrow, model.RequestStatusRejected, 1, time.Now())

	_, err := env.svc.Approve(context.Background(), "req-1", "staff-1", &dto.ApproveRequestRequest{})
	if !errors.Is(err, ErrRequestStateInvalid) {
		t.Errorf("期望 ErrRequestStateInvalid，实际: %v", err)
	}
}

func TestRequestService_Approve_RetriesOnVersionConflict(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	env.seedItem("item-1", "示波器", 5, 5)
	env.seedRequest("req-1", "item-1", "u1", model.RequestTypeBorrow, model.RequestStatusPending, 2, time.Now())

	// 第一次提交撞上并发写入者，重读后第二次应成功
	env.items.forcedConflicts = 1

	result, err := env.svc.Approve(context.Background(), "req-1", "staff-1", &dto.ApproveRequestRequest{})
	if err != nil {
		t.Fatalf("冲突后重试应成功: %v", err)
	}
	if result.Status != model.RequestStatusApproved {
		t.Errorf("期望 status=approved，实际=%s", result.Status)
	}
	if got := env.item(t, "item-1").AvailableAmount; got != 3 {
		t.Errorf("期望可用量=3，实际=%d", got)
	}
}

func TestRequestService_Approve_ConflictExhaustion(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	env.seedItem("item-1", "示波器", 5, 5)
	env.seedRequest("req-1", "item-1", "u1", model.RequestTypeBorrow, model.RequestStatusPending, 2, time.Now())

	// 每次重试都冲突，重试耗尽后上抛乐观锁错误
	env.items.forcedConflicts = maxTxRetries

	_, err := env.svc.Approve(context.Background(), "req-1", "staff-1", &dto.ApproveRequestRequest{})
	if !errors.Is(err, apperrors.ErrOptimisticLock) {
		t.Fatalf("期望 ErrOptimisticLock，实际: %v", err)
	}
	if got := env.requests.requests["req-1"].Status; got != model.RequestStatusPending {
		t.Errorf("申请应保持 pending，实际=%s", got)
	}
	if got := env.item(t, "item-1").AvailableAmount; got != 5 {
		t.Errorf("库存应保持不变，实际=%d", got)
	}
}

func TestRequestService_Approve_RacingApprovalsOneWins(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	env.seedUser("u2", model.RoleUser)
	env.seedItem("item-1", "激光笔", 1, 1)
	env.seedRequest("req-1", "item-1", "u1", model.RequestTypeBorrow, model.RequestStatusPending, 1, time.Now())
	env.seedRequest("req-2", "item-1", "u2", model.RequestTypeBorrow, model.RequestStatusPending, 1, time.Now())

	// 两个 pending 申请竞争最后一件：恰好一个成功
	_, err1 := env.svc.Approve(context.Background(), "req-1", "staff-1", &dto.ApproveRequestRequest{})
	_, err2 := env.svc.Approve(context.Background(), "req-2", "staff-1", &dto.ApproveRequestRequest{})

	if err1 != nil {
		t.Fatalf("第一个审批应成功: %v", err1)
	}
	if !errors.Is(err2, ErrInsufficientQuantity) {
		t.Errorf("第二个审批应报库存不足，实际: %v", err2)
	}
	if got := env.item(t, "item-1").AvailableAmount; got != 0 {
		t.Errorf("期望可用量=0，实际=%d", got)
	}
}

// ── Reject / Cancel 测试 ──

func TestRequestService_Reject_Notifies(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	env.seedItem("item-1", "示波器", 5, 5)
	env.seedRequest("req-1", "item-1", "u1", model.RequestTypeBorrow, model.RequestStatusPending, 2, time.Now())

	if err := env.svc.Reject(context.Background(), "req-1", "staff-1"); err != nil {
		t.Fatalf("Reject 应成功: %v", err)
	}
	if got := env.requests.requests["req-1"].Status; got != model.RequestStatusRejected {
		t.Errorf("期望 status=rejected，实际=%s", got)
	}
	// 驳回不动库存
	if got := env.item(t, "item-1").AvailableAmount; got != 5 {
		t.Errorf("库存应保持不变，实际=%d", got)
	}
	if n := env.notifs.byUserAndType("u1", model.NotifyItemRejected); len(n) != 1 {
		t.Errorf("期望 1 条驳回通知，实际=%d", len(n))
	}
}

func TestRequestService_Cancel_OwnerOnly(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	env.seedItem("item-1", "示波器", 5, 5)
	env.seedRequest("req-1", "item-1", "u1", model.RequestTypeBorrow, model.RequestStatusPending, 2, time.Now())

	if err := env.svc.Cancel(context.Background(), "req-1", "u2"); !errors.Is(err, ErrNotRequestOwner) {
		t.Errorf("期望 ErrNotRequestOwner，实际: %v", err)
	}

	if err := env.svc.Cancel(context.Background(), "req-1", "u1"); err != nil {
		t.Fatalf("本人取消应成功: %v", err)
	}
	if got := env.requests.requests["req-1"].Status; got != model.RequestStatusCancelled {
		t.Errorf("期望 status=cancelled，实际=%s", got)
	}
}

func TestRequestService_Cancel_NonPending(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	env.seedItem("item-1", "示波器", 5, 5)
	env.seedRequest("req-1", "item-1", "u1", model.RequestTypeBorrow, model.RequestStatusApproved, 2, time.Now())

	if err := env.svc.Cancel(context.Background(), "req-1", "u1"); !errors.Is(err, ErrRequestStateInvalid) {
		t.Errorf("已批准申请不可直接取消，期望 ErrRequestStateInvalid，实际: %v", err)
	}
}

// ── Complete 测试 ──

func TestRequestService_Complete_RestoresStock(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	env.seedItem("item-1", "投影仪", 2, 0)
	borrower := "u1"
	env.items.items["item-1"].CurrentBorrowerID = &borrower
	env.items.items["item-1"].Status = model.ItemStatusBorrowed
	env.seedRequest("req-1", "item-1", "u1", model.RequestTypeBorrow, model.RequestStatusApproved, 2, time.Now())

	result, err := env.svc.Complete(context.Background(), "req-1", "staff-1")
	if err != nil {
		t.Fatalf("Complete 应成功: %v", err)
	}
	if result.Status != model.RequestStatusCompleted {
		t.Errorf("期望 status=completed，实际=%s", result.Status)
	}
	if result.ReturnedAt == "" {
		t.Error("归还后应记录 returned_at")
	}

	item := env.item(t, "item-1")
	if item.AvailableAmount != 2 {
		t.Errorf("归还后可用量应回到 2，实际=%d", item.AvailableAmount)
	}
	if item.Status != model.ItemStatusAvailable {
		t.Errorf("归还后状态应为 available，实际=%s", item.Status)
	}
	if item.CurrentBorrowerID != nil {
		t.Error("归还后应清除 current_borrower_id")
	}
}

func TestRequestService_Complete_CapsAtTotal(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	// 借出期间总量被下调：回加时封顶到总量
	env.seedItem("item-1", "投影仪", 3, 2)
	env.seedRequest("req-1", "item-1", "u1", model.RequestTypeBorrow, model.RequestStatusApproved, 2, time.Now())

	if _, err := env.svc.Complete(context.Background(), "req-1", "staff-1"); err != nil {
		t.Fatalf("Complete 应成功: %v", err)
	}
	if got := env.item(t, "item-1").AvailableAmount; got != 3 {
		t.Errorf("可用量应封顶到总量 3，实际=%d", got)
	}
}

func TestRequestService_Complete_NonApproved(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	env.seedItem("item-1", "投影仪", 2, 2)
	env.seedRequest("req-1", "item-1", "u1", model.RequestTypeBorrow, model.RequestStatusPending, 1, time.Now())

	if _, err := env.svc.Complete(context.Background(), "req-1", "staff-1"); !errors.Is(err, ErrRequestStateInvalid) {
		t.Errorf("期望 ErrRequestStateInvalid，实际: %v", err)
	}
}

func TestRequestService_Complete_ProcessesReservationQueue(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	env.seedUser("u2", model.RoleUser)
	env.seedUser("u3", model.RoleUser)
	env.seedItem("item-1", "帐篷", 3, 0)
	base := time.Now().Add(-time.Hour)

	// 借出中的申请（归还 2 件）
	env.seedRequest("req-loan", "item-1", "u1", model.RequestTypeBorrow, model.RequestStatusApproved, 2, base)
	// 预约队列（FIFO）：u2 先约 2 件（配额内），u3 后约 3 件（配额外）
	env.seedRequest("req-r1", "item-1", "u2", model.RequestTypeReserve, model.RequestStatusPending, 2, base.Add(time.Minute))
	env.seedRequest("req-r2", "item-1", "u3", model.RequestTypeReserve, model.RequestStatusPending, 3, base.Add(2*time.Minute))

	if _, err := env.svc.Complete(context.Background(), "req-loan", "staff-1"); err != nil {
		t.Fatalf("Complete 应成功: %v", err)
	}

	// u2 的预约配额内：收到可取通知，申请仍保持 pending 等员工审批
	n2 := env.notifs.byUserAndType("u2", model.NotifyItemAvailable)
	if len(n2) != 1 {
		t.Fatalf("期望 u2 收到 1 条通知，实际=%d", len(n2))
	}
	if n2[0].Title != "预约物品可取" {
		t.Errorf("期望可取通知，实际标题=%s", n2[0].Title)
	}
	if got := env.requests.requests["req-r1"].Status; got != model.RequestStatusPending {
		t.Errorf("预约应保持 pending，实际=%s", got)
	}

	// u3 的预约配额外：收到排队位置通知
	n3 := env.notifs.byUserAndType("u3", model.NotifyItemAvailable)
	if len(n3) != 1 {
		t.Fatalf("期望 u3 收到 1 条通知，实际=%d", len(n3))
	}
	if n3[0].Title != "预约排队更新" {
		t.Errorf("期望排队通知，实际标题=%s", n3[0].Title)
	}
}

func TestRequestService_Complete_NotificationFailureDoesNotBlock(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	env.seedUser("u2", model.RoleUser)
	env.seedItem("item-1", "帐篷", 2, 0)
	base := time.Now().Add(-time.Hour)
	env.seedRequest("req-loan", "item-1", "u1", model.RequestTypeBorrow, model.RequestStatusApproved, 2, base)
	env.seedRequest("req-r1", "item-1", "u2", model.RequestTypeReserve, model.RequestStatusPending, 1, base.Add(time.Minute))

	env.notifs.failCreate = true

	// 通知失败只记日志，归还本身必须成功
	result, err := env.svc.Complete(context.Background(), "req-loan", "staff-1")
	if err != nil {
		t.Fatalf("通知失败不应阻断归还: %v", err)
	}
	if result.Status != model.RequestStatusCompleted {
		t.Errorf("期望 status=completed，实际=%s", result.Status)
	}
}

// ── RequestCancellation 测试 ──

func TestRequestService_RequestCancellation_NotifiesAllStaff(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	env.seedUser("staff-1", model.RoleStaff)
	env.seedUser("staff-2", model.RoleStaff)
	env.seedItem("item-1", "示波器", 5, 3)
	env.seedRequest("req-1", "item-1", "u1", model.RequestTypeBorrow, model.RequestStatusApproved, 2, time.Now())

	err := env.svc.RequestCancellation(context.Background(), "req-1", "u1",
		&dto.CancellationRequestRequest{Reason: "课程取消"})
	if err != nil {
		t.Fatalf("RequestCancellation 应成功: %v", err)
	}

	for _, staffID := range []string{"staff-1", "staff-2"} {
		if n := env.notifs.byUserAndType(staffID, model.NotifyCancellationRequest); len(n) != 1 {
			t.Errorf("期望 %s 收到 1 条取消请求通知，实际=%d", staffID, len(n))
		}
	}
	// 状态不变：取消与否由员工线下决定
	if got := env.requests.requests["req-1"].Status; got != model.RequestStatusApproved {
		t.Errorf("申请应保持 approved，实际=%s", got)
	}
}

func TestRequestService_RequestCancellation_PendingRejected(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("u1", model.RoleUser)
	env.seedItem("item-1", "示波器", 5, 5)
	env.seedRequest("req-1", "item-1", "u1", model.RequestTypeBorrow, model.RequestStatusPending, 2, time.Now())

	err := env.svc.RequestCancellation(context.Background(), "req-1", "u1", nil)
	if !errors.Is(err, ErrRequestStateInvalid) {
		t.Errorf("pending 申请应走直接取消，期望 ErrRequestStateInvalid，实际: %v", err)
	}
}

// ── 完整流程 ──

// 走完典型场景：5 件库存，先批 3 件，4 件的申请在库存不足时被拒，
// 归还后重新审批成功。审批时刻的复查保证中间任何时点不变量都成立。
func TestRequestService_FullLifecycleWalkthrough(t *testing.T) {
	env := setupTestRequestService()
	env.seedUser("alice", model.RoleUser)
	env.seedUser("bob", model.RoleUser)
	env.seedItem("item-1", "电烙铁", 5, 5)

	ctx := context.Background()

	// alice 申请 3 件，bob 申请 4 件（提交时都在可用范围内）
	r1, err := env.svc.Submit(ctx, &dto.SubmitRequestRequest{
		ItemID: "item-1", RequestType: model.RequestTypeBorrow, Amount: 3,
	}, "alice")
	if err != nil {
		t.Fatalf("alice 提交失败: %v", err)
	}
	r2, err := env.svc.Submit(ctx, &dto.SubmitRequestRequest{
		ItemID: "item-1", RequestType: model.RequestTypeBorrow, Amount: 4,
	}, "bob")
	if err != nil {
		t.Fatalf("bob 提交失败: %v", err)
	}

	// 批 alice：5 → 2
	if _, err := env.svc.Approve(ctx, r1.ID, "staff-1", &dto.ApproveRequestRequest{}); err != nil {
		t.Fatalf("批准 alice 失败: %v", err)
	}
	if got := env.item(t, "item-1").AvailableAmount; got != 2 {
		t.Fatalf("期望可用量=2，实际=%d", got)
	}

	// 批 bob：4 > 2，审批时复查拒绝
	if _, err := env.svc.Approve(ctx, r2.ID, "staff-1", &dto.ApproveRequestRequest{}); !errors.Is(err, ErrInsufficientQuantity) {
		t.Fatalf("期望 ErrInsufficientQuantity，实际: %v", err)
	}

	// alice 归还：2 → 5
	if _, err := env.svc.Complete(ctx, r1.ID, "staff-1"); err != nil {
		t.Fatalf("归还失败: %v", err)
	}
	if got := env.item(t, "item-1").AvailableAmount; got != 5 {
		t.Fatalf("归还后期望可用量=5，实际=%d", got)
	}

	// 再批 bob：5 → 1
	if _, err := env.svc.Approve(ctx, r2.ID, "staff-1", &dto.ApproveRequestRequest{}); err != nil {
		t.Fatalf("归还后批准 bob 应成功: %v", err)
	}
	item := env.item(t, "item-1")
	if item.AvailableAmount != 1 {
		t.Errorf("期望可用量=1，实际=%d", item.AvailableAmount)
	}
	if item.AvailableAmount < 0 || item.AvailableAmount > item.Amount {
		t.Errorf("库存不变量被破坏: available=%d amount=%d", item.AvailableAmount, item.Amount)
	}
}
