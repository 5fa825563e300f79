package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"unilend/backend/internal/dto"
	"unilend/backend/internal/model"
	"unilend/backend/internal/repository"
)

// ErrRoleInvalid 角色取值非法
var ErrRoleInvalid = errors.New("角色无效")

// UserService 用户管理业务接口
type UserService interface {
	GetByID(ctx context.Context, id string) (*dto.UserDetailResponse, error)
	List(ctx context.Context, req *dto.PaginationRequest) ([]dto.UserResponse, int64, error)
	AssignRole(ctx context.Context, id, role, callerID string) error
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

func (s *userService) GetByID(ctx context.Context, id string) (*dto.UserDetailResponse, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return &dto.UserDetailResponse{
		ID:        user.ProfileID,
		FullName:  user.FullName,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (s *userService) List(ctx context.Context, req *dto.PaginationRequest) ([]dto.UserResponse, int64, error) {
	users, total, err := s.repo.User.List(ctx, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询用户列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, dto.UserResponse{
			ID:       users[i].ProfileID,
			FullName: users[i].FullName,
			Email:    users[i].Email,
			Role:     users[i].Role,
		})
	}
	return result, total, nil
}

// AssignRole 分配角色（仅 staff 可调用，路由层已鉴权）
func (s *userService) AssignRole(ctx context.Context, id, role, callerID string) error {
	if role != model.RoleUser && role != model.RoleStaff {
		return ErrRoleInvalid
	}

	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return err
	}

	user.Role = role
	user.UpdatedBy = &callerID
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新用户角色失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}
