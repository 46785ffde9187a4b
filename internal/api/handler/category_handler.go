package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/response"
)

// categoryRequest 入参上限比存储列（100/255）更严
type categoryRequest struct {
	Name        string  `json:"name" binding:"required,max=50"`
	Slug        string  `json:"slug" binding:"required,max=50,slug"`
	Description *string `json:"description"`
}

func (r categoryRequest) input() service.CategoryInput {
	return service.CategoryInput{Name: r.Name, Slug: r.Slug, Description: r.Description}
}

// ListCategories 分类列表
// @Summary 分类列表（按名称升序）
// @Tags 分类
// @Produce json
// @Success 200 {object} response.Response{data=[]model.Category}
// @Router /api/v1/categories [get]
func (h *Handler) ListCategories(c *gin.Context) {
	list, err := h.categoryService.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, list)
}

// GetCategory 查询分类
// @Summary 查询分类
// @Tags 分类
// @Produce json
// @Param id path int true "分类ID"
// @Success 200 {object} response.Response{data=model.Category}
// @Failure 404 {object} response.Response
// @Router /api/v1/categories/{id} [get]
func (h *Handler) GetCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	category, err := h.categoryService.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if category == nil {
		response.NotFound(c, service.ErrCategoryNotFound.Error())
		return
	}
	response.Success(c, category)
}

// CreateCategory 创建分类
// @Summary 创建分类
// @Tags 分类
// @Accept json
// @Produce json
// @Param request body categoryRequest true "分类信息"
// @Success 201 {object} response.Response{data=model.Category}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/categories [post]
func (h *Handler) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.categoryService.Create(c.Request.Context(), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, category)
}

// UpdateCategory 更新分类
// @Summary 更新分类
// @Tags 分类
// @Accept json
// @Produce json
// @Param id path int true "分类ID"
// @Param request body categoryRequest true "分类信息"
// @Success 200 {object} response.Response{data=model.Category}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/categories/{id} [put]
func (h *Handler) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req categoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.categoryService.Update(c.Request.Context(), id, req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, category)
}

// DeleteCategory 删除分类
// @Summary 删除分类（同时移除文章关联）
// @Tags 分类
// @Produce json
// @Param id path int true "分类ID"
// @Success 200 {object} response.Response{data=deleteResult}
// @Router /api/v1/categories/{id} [delete]
func (h *Handler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.categoryService.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, deleteResult{Success: true})
}
