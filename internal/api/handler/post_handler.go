package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/response"
)

type listPostsQuery struct {
	Status     string `form:"status" binding:"omitempty,oneof=DRAFT PUBLISHED"`
	CategoryID uint   `form:"category_id"`
}

type createPostRequest struct {
	Title       string  `json:"title" binding:"required,max=200"`
	Content     string  `json:"content" binding:"required"`
	Slug        string  `json:"slug" binding:"required,max=200,slug"`
	Excerpt     *string `json:"excerpt" binding:"omitempty,max=500"`
	CategoryIDs []uint  `json:"categoryIds" binding:"omitempty,dive,gt=0"`
	Status      string  `json:"status" binding:"omitempty,oneof=DRAFT PUBLISHED"`
}

// updatePostRequest：categoryIds 缺省或为 null 时不修改关联，[] 表示清空；
// is_published 缺省视为 false
type updatePostRequest struct {
	Title       string  `json:"title" binding:"required,max=200"`
	Content     string  `json:"content" binding:"required"`
	Slug        string  `json:"slug" binding:"required,max=200,slug"`
	Excerpt     *string `json:"excerpt" binding:"omitempty,max=500"`
	CategoryIDs *[]uint `json:"categoryIds" binding:"omitempty,dive,gt=0"`
	IsPublished *bool   `json:"is_published"`
}

// ListPosts 文章列表
// @Summary 文章列表（按创建时间倒序）
// @Tags 文章
// @Produce json
// @Param status query string false "发布状态" Enums(DRAFT, PUBLISHED)
// @Param category_id query int false "分类ID"
// @Success 200 {object} response.Response{data=[]model.Post}
// @Failure 400 {object} response.Response
// @Router /api/v1/posts [get]
func (h *Handler) ListPosts(c *gin.Context) {
	var q listPostsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, validationMessage(err))
		return
	}
	posts, err := h.postService.List(c.Request.Context(), service.ListPostsInput{Status: q.Status, CategoryID: q.CategoryID})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, posts)
}

// GetPost 按 ID 查询文章
// @Summary 查询文章
// @Tags 文章
// @Produce json
// @Param id path int true "文章ID"
// @Success 200 {object} response.Response{data=model.Post}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	post, err := h.postService.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if post == nil {
		response.NotFound(c, service.ErrPostNotFound.Error())
		return
	}
	response.Success(c, post)
}

// GetPostBySlug 按 slug 查询文章
// @Summary 按 slug 查询文章
// @Tags 文章
// @Produce json
// @Param slug path string true "文章 slug"
// @Success 200 {object} response.Response{data=model.Post}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/slug/{slug} [get]
func (h *Handler) GetPostBySlug(c *gin.Context) {
	post, err := h.postService.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		writeError(c, err)
		return
	}
	if post == nil {
		response.NotFound(c, service.ErrPostNotFound.Error())
		return
	}
	response.Success(c, post)
}

// RenderPost 渲染文章 markdown
// @Summary 渲染文章正文为 HTML
// @Tags 文章
// @Produce json
// @Param slug path string true "文章 slug"
// @Success 200 {object} response.Response{data=service.RenderedPost}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/slug/{slug}/html [get]
func (h *Handler) RenderPost(c *gin.Context) {
	rendered, err := h.postService.RenderBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		writeError(c, err)
		return
	}
	if rendered == nil {
		response.NotFound(c, service.ErrPostNotFound.Error())
		return
	}
	response.Success(c, rendered)
}

// CreatePost 创建文章
// @Summary 创建文章（可同时关联分类）
// @Tags 文章
// @Accept json
// @Produce json
// @Param request body createPostRequest true "文章信息"
// @Success 201 {object} response.Response{data=model.Post}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if !bindJSON(c, &req) {
		return
	}
	post, err := h.postService.Create(c.Request.Context(), service.CreatePostInput{
		Title:       req.Title,
		Content:     req.Content,
		Slug:        req.Slug,
		Excerpt:     req.Excerpt,
		CategoryIDs: req.CategoryIDs,
		Status:      req.Status,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, post)
}

// UpdatePost 更新文章
// @Summary 更新文章（categoryIds 整体替换；缺省不修改，[] 清空）
// @Tags 文章
// @Accept json
// @Produce json
// @Param id path int true "文章ID"
// @Param request body updatePostRequest true "文章信息"
// @Success 200 {object} response.Response{data=model.Post}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/posts/{id} [put]
func (h *Handler) UpdatePost(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req updatePostRequest
	if !bindJSON(c, &req) {
		return
	}
	post, err := h.postService.Update(c.Request.Context(), id, service.UpdatePostInput{
		Title:       req.Title,
		Content:     req.Content,
		Slug:        req.Slug,
		Excerpt:     req.Excerpt,
		CategoryIDs: req.CategoryIDs,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, post)
}

// DeletePost 删除文章
// @Summary 删除文章及其分类关联
// @Tags 文章
// @Produce json
// @Param id path int true "文章ID"
// @Success 200 {object} response.Response{data=deleteResult}
// @Router /api/v1/posts/{id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.postService.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, deleteResult{Success: true})
}
