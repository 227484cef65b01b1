package controller

import (
	"learning_progress_backend/internal/service"
	"learning_progress_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StreakController struct {
	StreakService *service.StreakService
	StatsService  *service.StatsService
}

func NewStreakController(streakService *service.StreakService, statsService *service.StatsService) *StreakController {
	return &StreakController{StreakService: streakService, StatsService: statsService}
}

// @Summary 连续学习状态
// @Description 返回当前连续天数、最长记录、状态与下一个里程碑
// @Tags 连续学习
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.StreakStatusView}
// @Router /api/streak [get]
func (c *StreakController) GetStatus(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.StreakService.GetStatus(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, view)
}

// @Summary 记录学习活动
// @Tags 连续学习
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.StreakUpdate}
// @Router /api/streak/activity [post]
func (c *StreakController) RecordActivity(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	update, err := c.StreakService.RecordActivity(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, update)
}

// @Summary 学习统计
// @Description 积分、经验、完成模块数、连续学习与成就
// @Tags 连续学习
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.UserLearningStats}
// @Router /api/me/stats [get]
func (c *StreakController) GetStats(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	stats, err := c.StatsService.GetUserStats(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, stats)
}
