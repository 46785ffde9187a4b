package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/d60-Lab/gin-blog/internal/model"
)

// CategoryPatch 分类更新字段
type CategoryPatch struct {
	Name        string
	Slug        string
	Description *string
}

// CategoryRepository 分类仓储接口
type CategoryRepository interface {
	List(ctx context.Context) ([]*model.Category, error)
	// GetByID 不存在时返回 nil, nil
	GetByID(ctx context.Context, id uint) (*model.Category, error)
	Create(ctx context.Context, category *model.Category) error
	// Update 重写 name/slug；description 为 nil 时保持不变
	Update(ctx context.Context, id uint, patch CategoryPatch) (*model.Category, error)
	// Delete 在同一事务内先删关联再删分类
	Delete(ctx context.Context, id uint) error
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository { return &categoryRepository{db: db} }

func (r *categoryRepository) List(ctx context.Context) ([]*model.Category, error) {
	var res []*model.Category
	err := r.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&res).Error
	return res, err
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*model.Category, error) {
	var c model.Category
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *model.Category) error {
	return translateError(r.db.WithContext(ctx).Create(category).Error)
}

func (r *categoryRepository) Update(ctx context.Context, id uint, patch CategoryPatch) (*model.Category, error) {
	var c model.Category
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := map[string]any{"name": patch.Name, "slug": patch.Slug}
		if patch.Description != nil {
			fields["description"] = *patch.Description
		}
		res := tx.Model(&model.Category{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return translateError(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("id = ?", id).First(&c).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("category_id = ?", id).Delete(&model.PostCategory{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Category{}).Error
	})
}
