package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/gin-blog/internal/model"
)

// PostFilter 列表过滤条件，零值表示不过滤
type PostFilter struct {
	Published  *bool
	CategoryID uint
}

// PostPatch 更新字段；Excerpt 为 nil 时保持原值，IsPublished 总是写入
type PostPatch struct {
	Title       string
	Content     string
	Slug        string
	Excerpt     *string
	IsPublished bool
}

// PostRepository 文章仓储接口
type PostRepository interface {
	// List 按创建时间倒序返回文章（附带分类）
	List(ctx context.Context, filter PostFilter) ([]*model.Post, error)
	// GetByID / GetBySlug 不存在时返回 nil, nil
	GetByID(ctx context.Context, id uint) (*model.Post, error)
	GetBySlug(ctx context.Context, slug string) (*model.Post, error)
	// Create 在同一事务内写入文章与分类关联
	Create(ctx context.Context, post *model.Post, categoryIDs []uint) error
	// Update 更新文章；categoryIDs 为 nil 时不动关联，非 nil 时整体替换（空切片即清空）
	Update(ctx context.Context, id uint, patch PostPatch, categoryIDs *[]uint) (*model.Post, error)
	// Delete 在同一事务内先删关联再删文章
	Delete(ctx context.Context, id uint) error
	// CategoryIDs 返回文章当前关联的分类 ID（升序）
	CategoryIDs(ctx context.Context, postID uint) ([]uint, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]*model.Post, error) {
	q := r.db.WithContext(ctx).Model(&model.Post{})
	if filter.Published != nil {
		q = q.Where("is_published = ?", *filter.Published)
	}
	if filter.CategoryID != 0 {
		sub := r.db.Model(&model.PostCategory{}).Select("post_id").Where("category_id = ?", filter.CategoryID)
		q = q.Where("id IN (?)", sub)
	}

	var posts []*model.Post
	if err := q.Order("created_at DESC").Order("id DESC").Find(&posts).Error; err != nil {
		return nil, err
	}
	if err := r.loadCategories(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*model.Post, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *postRepository) GetBySlug(ctx context.Context, slug string) (*model.Post, error) {
	return r.first(ctx, "slug = ?", slug)
}

func (r *postRepository) first(ctx context.Context, query string, arg any) (*model.Post, error) {
	var p model.Post
	err := r.db.WithContext(ctx).Where(query, arg).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadCategories(ctx, []*model.Post{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) Create(ctx context.Context, post *model.Post, categoryIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return translateError(err)
		}
		return insertAssociations(tx, post.ID, categoryIDs)
	})
}

func (r *postRepository) Update(ctx context.Context, id uint, patch PostPatch, categoryIDs *[]uint) (*model.Post, error) {
	var post model.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := map[string]any{
			"title":        patch.Title,
			"content":      patch.Content,
			"slug":         patch.Slug,
			"is_published": patch.IsPublished,
			"updated_at":   time.Now(),
		}
		if patch.Excerpt != nil {
			fields["excerpt"] = *patch.Excerpt
		}
		res := tx.Model(&model.Post{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return translateError(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		if categoryIDs != nil {
			if err := tx.Where("post_id = ?", id).Delete(&model.PostCategory{}).Error; err != nil {
				return err
			}
			if err := insertAssociations(tx, id, *categoryIDs); err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).First(&post).Error
	})
	if err != nil {
		return nil, err
	}
	if err := r.loadCategories(ctx, []*model.Post{&post}); err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&model.PostCategory{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Post{}).Error
	})
}

func (r *postRepository) CategoryIDs(ctx context.Context, postID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&model.PostCategory{}).
		Where("post_id = ?", postID).
		Order("category_id ASC").
		Pluck("category_id", &ids).Error
	return ids, err
}

func insertAssociations(tx *gorm.DB, postID uint, categoryIDs []uint) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	rows := make([]model.PostCategory, 0, len(categoryIDs))
	for _, cid := range categoryIDs {
		rows = append(rows, model.PostCategory{PostID: postID, CategoryID: cid})
	}
	return translateError(tx.Create(&rows).Error)
}

// postCategoryRow 关联查询的扁平结果
type postCategoryRow struct {
	PostID      uint
	ID          uint
	Name        string
	Description *string
	Slug        string
}

// loadCategories 一次 JOIN 查询为一批文章填充分类
func (r *postRepository) loadCategories(ctx context.Context, posts []*model.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uint, len(posts))
	byID := make(map[uint]*model.Post, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		byID[p.ID] = p
		p.Categories = []model.Category{}
	}

	var rows []postCategoryRow
	err := r.db.WithContext(ctx).
		Table("posts_categories").
		Select("posts_categories.post_id", "categories.id", "categories.name", "categories.description", "categories.slug").
		Joins("JOIN categories ON categories.id = posts_categories.category_id").
		Where("posts_categories.post_id IN ?", ids).
		Order("categories.name ASC").
		Scan(&rows).Error
	if err != nil {
		return err
	}
	for _, row := range rows {
		if p, ok := byID[row.PostID]; ok {
			p.Categories = append(p.Categories, model.Category{
				ID:          row.ID,
				Name:        row.Name,
				Description: row.Description,
				Slug:        row.Slug,
			})
		}
	}
	return nil
}
