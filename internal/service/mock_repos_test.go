package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"unilend/backend/internal/model"
	"unilend/backend/internal/repository"
	apperrors "unilend/backend/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ProfileID == "" {
		user.ProfileID = fmt.Sprintf("user-%03d", len(m.users)+1)
	}
	m.users[user.ProfileID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) List(_ context.Context, offset, limit int) ([]model.User, int64, error) {
	var result []model.User
	for _, u := range m.users {
		result = append(result, *u)
	}
	total := int64(len(result))
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockUserRepo) ListByRole(_ context.Context, role string) ([]model.User, error) {
	var result []model.User
	for _, u := range m.users {
		if u.Role == role {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	cp := *user
	m.users[user.ProfileID] = &cp
	return nil
}

// ── Mock ItemRepository ──

// mockItemRepo 复刻 version 条件更新语义：
// UpdateWithVersion 仅当版本号匹配时生效，否则返回 ErrOptimisticLock。
// forcedConflicts > 0 时前 N 次更新强制冲突（模拟并发写入者抢先提交）。
type mockItemRepo struct {
	items           map[string]*model.Item
	forcedConflicts int
	// onConflict 每次强制冲突时回调（可模拟并发方改动库存）
	onConflict func(stored *model.Item)
}

func newMockItemRepo() *mockItemRepo {
	return &mockItemRepo{items: make(map[string]*model.Item)}
}

func (m *mockItemRepo) Create(_ context.Context, item *model.Item) error {
	if item.ItemID == "" {
		item.ItemID = fmt.Sprintf("item-%03d", len(m.items)+1)
	}
	if item.Version == 0 {
		item.Version = 1
	}
	cp := *item
	m.items[item.ItemID] = &cp
	return nil
}

func (m *mockItemRepo) GetByID(_ context.Context, id string) (*model.Item, error) {
	if it, ok := m.items[id]; ok {
		cp := *it
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockItemRepo) List(_ context.Context, f repository.ItemFilter) ([]model.Item, int64, error) {
	var result []model.Item
	for _, it := range m.items {
		if f.Category != "" && it.Category != f.Category {
			continue
		}
		if f.Status != "" && it.Status != f.Status {
			continue
		}
		result = append(result, *it)
	}
	return result, int64(len(result)), nil
}

func (m *mockItemRepo) ListCategories(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var result []string
	for _, it := range m.items {
		if it.Category != "" && !seen[it.Category] {
			seen[it.Category] = true
			result = append(result, it.Category)
		}
	}
	sort.Strings(result)
	return result, nil
}

func (m *mockItemRepo) UpdateWithVersion(_ context.Context, item *model.Item) error {
	stored, ok := m.items[item.ItemID]
	if !ok {
		return apperrors.ErrOptimisticLock
	}
	if m.forcedConflicts > 0 {
		m.forcedConflicts--
		// 模拟并发方抢先提交：版本号前进，可选地改动库存
		stored.Version++
		if m.onConflict != nil {
			m.onConflict(stored)
		}
		return apperrors.ErrOptimisticLock
	}
	if stored.Version != item.Version {
		return apperrors.ErrOptimisticLock
	}
	cp := *item
	cp.Version = item.Version + 1
	m.items[item.ItemID] = &cp
	item.Version++
	return nil
}

func (m *mockItemRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.items, id)
	return nil
}

// ── Mock BorrowRequestRepository ──

type mockRequestRepo struct {
	requests map[string]*model.BorrowRequest
	seq      int
	// items 用于模拟 Preload("Item")
	items *mockItemRepo
	// users 用于模拟 Preload("User")
	users *mockUserRepo
}

func newMockRequestRepo(items *mockItemRepo, users *mockUserRepo) *mockRequestRepo {
	return &mockRequestRepo{
		requests: make(map[string]*model.BorrowRequest),
		items:    items,
		users:    users,
	}
}

func (m *mockRequestRepo) Create(_ context.Context, req *model.BorrowRequest) error {
	if req.RequestID == "" {
		m.seq++
		req.RequestID = fmt.Sprintf("req-%03d", m.seq)
	}
	cp := *req
	m.requests[req.RequestID] = &cp
	return nil
}

func (m *mockRequestRepo) GetByID(_ context.Context, id string) (*model.BorrowRequest, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	m.preload(&cp)
	return &cp, nil
}

func (m *mockRequestRepo) List(_ context.Context, f repository.RequestFilter) ([]model.BorrowRequest, int64, error) {
	result := m.filter(f)
	return result, int64(len(result)), nil
}

func (m *mockRequestRepo) ListAll(_ context.Context, f repository.RequestFilter) ([]model.BorrowRequest, error) {
	return m.filter(f), nil
}

func (m *mockRequestRepo) filter(f repository.RequestFilter) []model.BorrowRequest {
	var result []model.BorrowRequest
	for _, r := range m.requests {
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		if f.ItemID != "" && r.ItemID != f.ItemID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Type != "" && r.RequestType != f.Type {
			continue
		}
		cp := *r
		m.preload(&cp)
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].RequestedAt.Before(result[j].RequestedAt)
	})
	return result
}

func (m *mockRequestRepo) UpdateStatusFrom(_ context.Context, id, fromStatus string, updates map[string]interface{}) (bool, error) {
	r, ok := m.requests[id]
	if !ok || r.Status != fromStatus {
		return false, nil
	}
	for k, v := range updates {
		switch k {
		case "status":
			r.Status = v.(string)
		case "approved_at":
			t := v.(time.Time)
			r.ApprovedAt = &t
		case "approved_by":
			s := v.(string)
			r.ApprovedBy = &s
		case "borrowed_at":
			t := v.(time.Time)
			r.BorrowedAt = &t
		case "expected_return_at":
			t := v.(time.Time)
			r.ExpectedReturnAt = &t
		case "returned_at":
			t := v.(time.Time)
			r.ReturnedAt = &t
		case "updated_by":
			s := v.(string)
			r.UpdatedBy = &s
		}
	}
	return true, nil
}

func (m *mockRequestRepo) ListPendingReserves(_ context.Context, itemID string) ([]model.BorrowRequest, error) {
	var result []model.BorrowRequest
	for _, r := range m.requests {
		if r.ItemID == itemID && r.Status == model.RequestStatusPending && r.RequestType == model.RequestTypeReserve {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].RequestedAt.Before(result[j].RequestedAt)
	})
	return result, nil
}

func (m *mockRequestRepo) ListOverdue(_ context.Context, now time.Time) ([]model.BorrowRequest, error) {
	var result []model.BorrowRequest
	for _, r := range m.requests {
		if r.Status == model.RequestStatusApproved && r.ExpectedReturnAt != nil && r.ExpectedReturnAt.Before(now) {
			cp := *r
			m.preload(&cp)
			result = append(result, cp)
		}
	}
	return result, nil
}

func (m *mockRequestRepo) ListApprovedByUser(_ context.Context, userID string) ([]model.BorrowRequest, error) {
	var result []model.BorrowRequest
	for _, r := range m.requests {
		if r.UserID == userID && r.Status == model.RequestStatusApproved {
			cp := *r
			m.preload(&cp)
			result = append(result, cp)
		}
	}
	return result, nil
}

func (m *mockRequestRepo) CountActiveByItem(_ context.Context, itemID string) (int64, error) {
	var n int64
	for _, r := range m.requests {
		if r.ItemID == itemID &&
			(r.Status == model.RequestStatusPending || r.Status == model.RequestStatusApproved) {
			n++
		}
	}
	return n, nil
}

func (m *mockRequestRepo) preload(r *model.BorrowRequest) {
	if m.items != nil {
		if it, ok := m.items.items[r.ItemID]; ok {
			cp := *it
			r.Item = &cp
		}
	}
	if m.users != nil {
		if u, ok := m.users.users[r.UserID]; ok {
			cp := *u
			r.User = &cp
		}
	}
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	notifications []*model.Notification
	seq           int
	// failCreate 为 true 时 Create/CreateBatch 返回错误（fire-and-forget 路径测试用）
	failCreate bool
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	if m.failCreate {
		return fmt.Errorf("notification store unavailable")
	}
	m.seq++
	if n.NotificationID == "" {
		n.NotificationID = fmt.Sprintf("notif-%03d", m.seq)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	cp := *n
	m.notifications = append(m.notifications, &cp)
	return nil
}

func (m *mockNotificationRepo) CreateBatch(_ context.Context, ns []model.Notification) error {
	if m.failCreate {
		return fmt.Errorf("notification store unavailable")
	}
	for i := range ns {
		if err := m.Create(context.Background(), &ns[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockNotificationRepo) List(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	var result []model.Notification
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		result = append(result, *n)
	}
	total := int64(len(result))
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockNotificationRepo) UnreadCount(_ context.Context, userID string) (int64, error) {
	var n int64
	for _, notif := range m.notifications {
		if notif.UserID == userID && !notif.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id, userID string) (bool, error) {
	for _, n := range m.notifications {
		if n.NotificationID == id && n.UserID == userID {
			n.IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID string) error {
	for _, n := range m.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (m *mockNotificationRepo) Delete(_ context.Context, id, userID string) (bool, error) {
	for i, n := range m.notifications {
		if n.NotificationID == id && n.UserID == userID {
			m.notifications = append(m.notifications[:i], m.notifications[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// byUserAndType 按用户与类型过滤通知（测试断言辅助）
func (m *mockNotificationRepo) byUserAndType(userID, notifyType string) []*model.Notification {
	var result []*model.Notification
	for _, n := range m.notifications {
		if n.UserID == userID && n.Type == notifyType {
			result = append(result, n)
		}
	}
	return result
}
