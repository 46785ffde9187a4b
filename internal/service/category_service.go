package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/pkg/logger"
)

// CategoryInput 创建/更新分类的参数
type CategoryInput struct {
	Name        string
	Slug        string
	Description *string
}

// CategoryService 分类服务
type CategoryService interface {
	List(ctx context.Context) ([]*model.Category, error)
	// GetByID 不存在时返回 nil, nil
	GetByID(ctx context.Context, id uint) (*model.Category, error)
	Create(ctx context.Context, in CategoryInput) (*model.Category, error)
	Update(ctx context.Context, id uint, in CategoryInput) (*model.Category, error)
	Delete(ctx context.Context, id uint) error
}

type categoryService struct {
	repo repository.CategoryRepository
}

func NewCategoryService(repo repository.CategoryRepository) CategoryService {
	return &categoryService{repo: repo}
}

func (s *categoryService) List(ctx context.Context) ([]*model.Category, error) {
	return s.repo.List(ctx)
}

func (s *categoryService) GetByID(ctx context.Context, id uint) (*model.Category, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *categoryService) Create(ctx context.Context, in CategoryInput) (*model.Category, error) {
	c := &model.Category{Name: in.Name, Slug: in.Slug, Description: in.Description}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	logger.Info("category created", zap.Uint("id", c.ID), zap.String("slug", c.Slug))
	return c, nil
}

func (s *categoryService) Update(ctx context.Context, id uint, in CategoryInput) (*model.Category, error) {
	c, err := s.repo.Update(ctx, id, repository.CategoryPatch{Name: in.Name, Slug: in.Slug, Description: in.Description})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update category %d: %w", id, err)
	}
	return c, nil
}

func (s *categoryService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	logger.Info("category deleted", zap.Uint("id", id))
	return nil
}
