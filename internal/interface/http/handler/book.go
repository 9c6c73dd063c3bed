package handler

import (
	"github.com/gin-gonic/gin"

	appbook "github.com/xiebiao/library/internal/application/book"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/response"
)

// BookHandler 馆藏HTTP处理器
type BookHandler struct {
	addBookUseCase      *appbook.AddBookUseCase
	adjustCopiesUseCase *appbook.AdjustCopiesUseCase
	listBooksUseCase    *appbook.ListBooksUseCase
	availabilityUseCase *appbook.GetAvailabilityUseCase
}

// NewBookHandler 创建馆藏处理器
func NewBookHandler(
	addBookUseCase *appbook.AddBookUseCase,
	adjustCopiesUseCase *appbook.AdjustCopiesUseCase,
	listBooksUseCase *appbook.ListBooksUseCase,
	availabilityUseCase *appbook.GetAvailabilityUseCase,
) *BookHandler {
	return &BookHandler{
		addBookUseCase:      addBookUseCase,
		adjustCopiesUseCase: adjustCopiesUseCase,
		listBooksUseCase:    listBooksUseCase,
		availabilityUseCase: availabilityUseCase,
	}
}

// AddBook 图书入藏
// @Summary      图书入藏
// @Description  馆员或管理员新增图书,可借数量等于馆藏总数
// @Tags         馆藏管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.AddBookRequest true "图书信息"
// @Success      200 {object} response.Response{data=appbook.BookItem}
// @Failure      200 {object} response.Response "40005 ISBN已存在"
// @Router       /admin/books [post]
func (h *BookHandler) AddBook(c *gin.Context) {
	// 1. 参数绑定与验证
	var req dto.AddBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	// 2. 调用应用层用例
	result, err := h.addBookUseCase.Execute(c.Request.Context(), appbook.AddBookRequest{
		ISBN:          req.ISBN,
		Title:         req.Title,
		Author:        req.Author,
		Genre:         req.Genre,
		PublishedYear: req.PublishedYear,
		TotalCopies:   req.TotalCopies,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// AdjustCopies 调整馆藏总数
// @Summary      调整馆藏总数
// @Description  可借数量按差值同步调整,最低为0
// @Tags         馆藏管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "图书ID"
// @Param        request body dto.AdjustCopiesRequest true "新的馆藏总数"
// @Success      200 {object} response.Response{data=appbook.BookItem}
// @Router       /admin/books/{id}/copies [put]
func (h *BookHandler) AdjustCopies(c *gin.Context) {
	bookID := uintParam(c, "id")
	if bookID == 0 {
		response.Error(c, apperrors.ErrInvalidParams)
		return
	}

	var req dto.AdjustCopiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.adjustCopiesUseCase.Execute(c.Request.Context(), appbook.AdjustCopiesRequest{
		BookID:      bookID,
		TotalCopies: req.TotalCopies,
		OperatorID:  middleware.GetBorrowerID(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ListBooks 馆藏列表
// @Summary      馆藏列表
// @Tags         馆藏管理
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "页码"
// @Param        page_size query int false "每页数量"
// @Param        keyword query string false "标题或作者"
// @Param        genre query string false "分类"
// @Success      200 {object} response.Response{data=appbook.ListBooksResponse}
// @Router       /admin/books [get]
func (h *BookHandler) ListBooks(c *gin.Context) {
	var q dto.ListBooksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.listBooksUseCase.Execute(c.Request.Context(), appbook.ListBooksRequest{
		Page:     q.Page,
		PageSize: q.PageSize,
		Keyword:  q.Keyword,
		Genre:    q.Genre,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPage(c, result.List, result.Total, result.Page, result.PageSize)
}

// GetAvailability 可借数量(公开,可能略有延迟)
// @Summary      可借数量
// @Tags         图书
// @Produce      json
// @Param        id path int true "图书ID"
// @Success      200 {object} response.Response{data=appbook.AvailabilityResponse}
// @Router       /books/{id}/availability [get]
func (h *BookHandler) GetAvailability(c *gin.Context) {
	bookID := uintParam(c, "id")
	if bookID == 0 {
		response.Error(c, apperrors.ErrInvalidParams)
		return
	}

	result, err := h.availabilityUseCase.Execute(c.Request.Context(), bookID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
