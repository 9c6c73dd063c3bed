package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/library/internal/application/activity"
	"github.com/xiebiao/library/internal/application/analytics"
	"github.com/xiebiao/library/internal/interface/http/dto"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/response"
)

// AdminHandler 统计与活动日志HTTP处理器(只读)
type AdminHandler struct {
	aggregator      *analytics.Aggregator
	activityUseCase *activity.ListActivityUseCase
}

// NewAdminHandler 创建处理器
func NewAdminHandler(aggregator *analytics.Aggregator, activityUseCase *activity.ListActivityUseCase) *AdminHandler {
	return &AdminHandler{
		aggregator:      aggregator,
		activityUseCase: activityUseCase,
	}
}

// Analytics 统计总览
// @Summary      统计总览
// @Description  总量、热门图书、活跃借阅者、分类分布与借阅趋势
// @Tags         统计
// @Produce      json
// @Security     BearerAuth
// @Param        top query int false "热门图书与活跃借阅者数量,默认10"
// @Param        days query int false "趋势天数,默认30"
// @Success      200 {object} response.Response
// @Router       /admin/analytics [get]
func (h *AdminHandler) Analytics(c *gin.Context) {
	ctx := c.Request.Context()

	overview, err := h.aggregator.Overview(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	popular, err := h.aggregator.PopularBooks(ctx, intQuery(c, "top", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	active, err := h.aggregator.ActiveBorrowers(ctx, intQuery(c, "top", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	genres, err := h.aggregator.GenreDistribution(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	trends, err := h.aggregator.BorrowingTrends(ctx, intQuery(c, "days", 0))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"overview":         overview,
		"popular_books":    popular,
		"active_borrowers": active,
		"genres":           genres,
		"trends":           trends,
	})
}

// PenaltyReport 罚金报表
// @Summary      罚金报表
// @Tags         统计
// @Produce      json
// @Security     BearerAuth
// @Param        top query int false "罚金排行数量,默认10"
// @Success      200 {object} response.Response{data=analytics.PenaltyReport}
// @Router       /admin/analytics/penalties [get]
func (h *AdminHandler) PenaltyReport(c *gin.Context) {
	report, err := h.aggregator.PenaltyReport(c.Request.Context(), intQuery(c, "top", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}

// BookPopularity 单本图书借阅情况
// @Summary      单本图书借阅情况
// @Tags         统计
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "图书ID"
// @Success      200 {object} response.Response{data=analytics.BookPopularity}
// @Router       /admin/analytics/books/{id} [get]
func (h *AdminHandler) BookPopularity(c *gin.Context) {
	bookID := uintParam(c, "id")
	if bookID == 0 {
		response.Error(c, apperrors.ErrInvalidParams)
		return
	}

	result, err := h.aggregator.BookPopularity(c.Request.Context(), bookID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Activity 活动日志
// @Summary      活动日志
// @Tags         统计
// @Produce      json
// @Security     BearerAuth
// @Param        borrower_id query int false "借阅者ID"
// @Param        action query string false "BOOK_BORROWED/BOOK_RETURNED/PENALTY_APPLIED"
// @Param        limit query int false "数量,默认50,最大200"
// @Success      200 {object} response.Response{data=activity.ListActivityResponse}
// @Router       /admin/activity [get]
func (h *AdminHandler) Activity(c *gin.Context) {
	var q dto.ActivityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.activityUseCase.Execute(c.Request.Context(), activity.ListActivityRequest{
		BorrowerID: q.BorrowerID,
		Action:     q.Action,
		Limit:      q.Limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
