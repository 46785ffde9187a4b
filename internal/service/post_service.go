package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/render"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/pkg/logger"
)

// ListPostsInput 列表过滤；Status 为空表示全部
type ListPostsInput struct {
	Status     string
	CategoryID uint
}

// CreatePostInput 创建文章参数；Status 为空时按 DRAFT 处理
type CreatePostInput struct {
	Title       string
	Content     string
	Slug        string
	Excerpt     *string
	CategoryIDs []uint
	Status      string
}

// UpdatePostInput 更新文章参数。
// CategoryIDs 为 nil 表示不修改关联，指向空切片表示清空关联。
// IsPublished 为 nil 时按 false 写入（撤回为草稿）。
type UpdatePostInput struct {
	Title       string
	Content     string
	Slug        string
	Excerpt     *string
	CategoryIDs *[]uint
	IsPublished *bool
}

// RenderedPost 文章及其 markdown 渲染结果
type RenderedPost struct {
	Post *model.Post `json:"post"`
	HTML string      `json:"html"`
}

// PostService 文章服务
type PostService interface {
	List(ctx context.Context, in ListPostsInput) ([]*model.Post, error)
	// GetByID / GetBySlug 不存在时返回 nil, nil
	GetByID(ctx context.Context, id uint) (*model.Post, error)
	GetBySlug(ctx context.Context, slug string) (*model.Post, error)
	Create(ctx context.Context, in CreatePostInput) (*model.Post, error)
	Update(ctx context.Context, id uint, in UpdatePostInput) (*model.Post, error)
	Delete(ctx context.Context, id uint) error
	// RenderBySlug 不存在时返回 nil, nil
	RenderBySlug(ctx context.Context, slug string) (*RenderedPost, error)
}

type postService struct {
	repo     repository.PostRepository
	renderer *render.Markdown
}

func NewPostService(repo repository.PostRepository, renderer *render.Markdown) PostService {
	if renderer == nil {
		renderer = render.NewMarkdown()
	}
	return &postService{repo: repo, renderer: renderer}
}

// publishedFromStatus 把 DRAFT/PUBLISHED 转为 is_published
func publishedFromStatus(status string) (bool, error) {
	switch status {
	case "", model.PostStatusDraft:
		return false, nil
	case model.PostStatusPublished:
		return true, nil
	default:
		return false, ErrInvalidStatus
	}
}

// uniqueIDs 去重并升序，避免写入重复关联
func uniqueIDs(ids []uint) []uint {
	if len(ids) == 0 {
		return ids
	}
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *postService) List(ctx context.Context, in ListPostsInput) ([]*model.Post, error) {
	filter := repository.PostFilter{CategoryID: in.CategoryID}
	if in.Status != "" {
		published, err := publishedFromStatus(in.Status)
		if err != nil {
			return nil, err
		}
		filter.Published = &published
	}
	return s.repo.List(ctx, filter)
}

func (s *postService) GetByID(ctx context.Context, id uint) (*model.Post, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *postService) GetBySlug(ctx context.Context, slug string) (*model.Post, error) {
	return s.repo.GetBySlug(ctx, slug)
}

func (s *postService) Create(ctx context.Context, in CreatePostInput) (*model.Post, error) {
	published, err := publishedFromStatus(in.Status)
	if err != nil {
		return nil, err
	}
	p := &model.Post{
		Title:       in.Title,
		Content:     in.Content,
		Slug:        in.Slug,
		Excerpt:     in.Excerpt,
		IsPublished: published,
	}
	categoryIDs := uniqueIDs(in.CategoryIDs)
	if err := s.repo.Create(ctx, p, categoryIDs); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	logger.Info("post created",
		zap.Uint("id", p.ID),
		zap.String("slug", p.Slug),
		zap.Bool("published", p.IsPublished),
		zap.Int("categories", len(categoryIDs)),
	)
	return p, nil
}

func (s *postService) Update(ctx context.Context, id uint, in UpdatePostInput) (*model.Post, error) {
	var categoryIDs *[]uint
	if in.CategoryIDs != nil {
		ids := uniqueIDs(*in.CategoryIDs)
		if ids == nil {
			ids = []uint{}
		}
		categoryIDs = &ids
	}
	patch := repository.PostPatch{
		Title:       in.Title,
		Content:     in.Content,
		Slug:        in.Slug,
		Excerpt:     in.Excerpt,
		IsPublished: in.IsPublished != nil && *in.IsPublished,
	}
	p, err := s.repo.Update(ctx, id, patch, categoryIDs)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update post %d: %w", id, err)
	}
	logger.Info("post updated", zap.Uint("id", id), zap.Bool("categories_replaced", categoryIDs != nil))
	return p, nil
}

func (s *postService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	logger.Info("post deleted", zap.Uint("id", id))
	return nil
}

func (s *postService) RenderBySlug(ctx context.Context, slug string) (*RenderedPost, error) {
	p, err := s.repo.GetBySlug(ctx, slug)
	if err != nil || p == nil {
		return nil, err
	}
	html, err := s.renderer.Render(p.Content)
	if err != nil {
		return nil, err
	}
	return &RenderedPost{Post: p, HTML: html}, nil
}
