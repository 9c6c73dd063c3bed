package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/library/internal/application/circulation"
	apploan "github.com/xiebiao/library/internal/application/loan"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/response"
)

// CirculationHandler 借还HTTP处理器
type CirculationHandler struct {
	engine         *circulation.Engine
	historyUseCase *apploan.HistoryUseCase
}

// NewCirculationHandler 创建借还处理器
func NewCirculationHandler(engine *circulation.Engine, historyUseCase *apploan.HistoryUseCase) *CirculationHandler {
	return &CirculationHandler{
		engine:         engine,
		historyUseCase: historyUseCase,
	}
}

// Borrow 借阅
// @Summary      借阅图书
// @Description  当前登录借阅者借阅一本书,同一本书未归还前不能重复借阅
// @Tags         借还
// @Produce      json
// @Security     BearerAuth
// @Param        bookId path int true "图书ID"
// @Success      200 {object} response.Response{data=dto.LoanResponse} "借阅成功"
// @Failure      200 {object} response.Response "40001无可借副本 40002已借阅 40402图书不存在"
// @Router       /borrow/{bookId} [post]
func (h *CirculationHandler) Borrow(c *gin.Context) {
	// 1. 参数解析
	bookID := uintParam(c, "bookId")
	if bookID == 0 {
		response.Error(c, apperrors.ErrInvalidParams)
		return
	}

	// 2. 借阅者身份来自认证中间件
	borrowerID := middleware.MustGetBorrowerID(c)

	// 3. 调用借还引擎
	result, err := h.engine.Borrow(c.Request.Context(), borrowerID, bookID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.NewLoanResponse(result.Loan, result.BookTitle, result.AvailableCopies))
}

// Return 归还
// @Summary      归还图书
// @Description  归还当前借阅者借阅中的图书,逾期按天计罚并累加到借阅者罚金
// @Tags         借还
// @Produce      json
// @Security     BearerAuth
// @Param        bookId path int true "图书ID"
// @Success      200 {object} response.Response{data=dto.LoanResponse} "归还成功"
// @Failure      200 {object} response.Response "40003没有借阅记录 40402图书不存在"
// @Router       /return/{bookId} [post]
func (h *CirculationHandler) Return(c *gin.Context) {
	bookID := uintParam(c, "bookId")
	if bookID == 0 {
		response.Error(c, apperrors.ErrInvalidParams)
		return
	}

	result, err := h.engine.Return(c.Request.Context(), middleware.MustGetBorrowerID(c), bookID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.NewLoanResponse(result.Loan, result.BookTitle, result.AvailableCopies))
}

// History 借阅历史
// @Summary      借阅历史
// @Tags         借还
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "all/active/returned"
// @Param        page query int false "页码"
// @Param        page_size query int false "每页数量"
// @Success      200 {object} response.Response{data=apploan.HistoryResponse}
// @Router       /borrow/history [get]
func (h *CirculationHandler) History(c *gin.Context) {
	var q dto.HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.historyUseCase.Execute(c.Request.Context(), apploan.HistoryRequest{
		BorrowerID: middleware.MustGetBorrowerID(c),
		Status:     q.Status,
		Page:       q.Page,
		PageSize:   q.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPage(c, result.List, result.Total, result.Page, result.PageSize)
}
