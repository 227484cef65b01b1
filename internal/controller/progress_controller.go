package controller

import (
	"learning_progress_backend/internal/service"
	"learning_progress_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// @Summary 访问内容
// @Description 获取内容学习进度，首次访问自动创建记录
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param id path int true "内容ID"
// @Success 200 {object} util.Response{data=model.ProgressRecord}
// @Failure 403 {object} util.Response
// @Router /api/contents/{id}/progress [get]
func (c *ProgressController) GetProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	contentID, err := util.ParamUint(ctx, "id")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	record, err := c.ProgressService.GetOrCreate(ctx.Request.Context(), user.UserID, contentID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, record)
}

// @Summary 上报学习进度
// @Description 视频达到自动完成阈值、其他内容达到 100% 时完成
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "内容ID"
// @Param body body service.UpdateProgressRequest true "进度"
// @Success 200 {object} util.Response{data=service.ProgressResult}
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/contents/{id}/progress [put]
func (c *ProgressController) UpdateProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	contentID, err := util.ParamUint(ctx, "id")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	var req service.UpdateProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.ProgressService.UpdateProgress(ctx.Request.Context(), user.UserID, contentID, *req.ProgressPercentage, req.TimeSpent)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary 完成内容
// @Description 显式完成内容，重复调用不重复计分
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "内容ID"
// @Param body body service.CompleteContentRequest false "成绩"
// @Success 200 {object} util.Response{data=service.ProgressResult}
// @Router /api/contents/{id}/complete [post]
func (c *ProgressController) CompleteContent(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	contentID, err := util.ParamUint(ctx, "id")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	var req service.CompleteContentRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	result, err := c.ProgressService.CompleteContent(ctx.Request.Context(), user.UserID, contentID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary 模块学习进度
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param id path int true "模块ID"
// @Success 200 {object} util.Response{data=service.ModuleProgress}
// @Router /api/modules/{id}/progress [get]
func (c *ProgressController) ModuleProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	moduleID, err := util.ParamUint(ctx, "id")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	view, err := c.ProgressService.ModuleProgress(ctx.Request.Context(), user.UserID, moduleID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, view)
}
