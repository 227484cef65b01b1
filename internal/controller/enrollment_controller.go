package controller

import (
	"learning_progress_backend/internal/model"
	"learning_progress_backend/internal/service"
	"learning_progress_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EnrollmentController struct {
	EnrollmentService *service.EnrollmentService
}

func NewEnrollmentController(enrollmentService *service.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{EnrollmentService: enrollmentService}
}

// @Summary 报名模块
// @Description 报名学习模块，已退出的报名会被重新激活
// @Tags 报名
// @Produce json
// @Security BearerAuth
// @Param id path int true "模块ID"
// @Success 201 {object} util.Response{data=model.Enrollment}
// @Failure 409 {object} util.Response
// @Router /api/modules/{id}/enroll [post]
func (c *EnrollmentController) Enroll(ctx *gin.Context) {
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

	enrollment, err := c.EnrollmentService.Enroll(ctx.Request.Context(), user.UserID, moduleID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, enrollment)
}

// @Summary 我的报名
// @Tags 报名
// @Produce json
// @Security BearerAuth
// @Param status query string false "状态过滤 active/paused/completed/dropped"
// @Success 200 {object} util.Response{data=[]model.Enrollment}
// @Router /api/enrollments [get]
func (c *EnrollmentController) List(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	enrollments, err := c.EnrollmentService.List(ctx.Request.Context(), user.UserID, ctx.Query("status"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, enrollments)
}

// @Summary 报名详情
// @Tags 报名
// @Produce json
// @Security BearerAuth
// @Param id path string true "报名ID"
// @Success 200 {object} util.Response{data=model.Enrollment}
// @Router /api/enrollments/{id} [get]
func (c *EnrollmentController) Get(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	enrollment, err := c.EnrollmentService.Get(ctx.Request.Context(), user.UserID, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, enrollment)
}

// @Summary 暂停学习
// @Tags 报名
// @Produce json
// @Security BearerAuth
// @Param id path string true "报名ID"
// @Success 200 {object} util.Response{data=model.Enrollment}
// @Failure 409 {object} util.Response
// @Router /api/enrollments/{id}/pause [post]
func (c *EnrollmentController) Pause(ctx *gin.Context) {
	c.lifecycle(ctx, model.ActionPause)
}

// @Summary 恢复学习
// @Tags 报名
// @Produce json
// @Security BearerAuth
// @Param id path string true "报名ID"
// @Success 200 {object} util.Response{data=model.Enrollment}
// @Failure 409 {object} util.Response
// @Router /api/enrollments/{id}/resume [post]
func (c *EnrollmentController) Resume(ctx *gin.Context) {
	c.lifecycle(ctx, model.ActionResume)
}

// @Summary 退出模块
// @Description 已完成的模块不能退出
// @Tags 报名
// @Produce json
// @Security BearerAuth
// @Param id path string true "报名ID"
// @Success 200 {object} util.Response{data=model.Enrollment}
// @Failure 409 {object} util.Response
// @Router /api/enrollments/{id}/drop [post]
func (c *EnrollmentController) Drop(ctx *gin.Context) {
	c.lifecycle(ctx, model.ActionDrop)
}

func (c *EnrollmentController) lifecycle(ctx *gin.Context, action model.EnrollmentAction) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var (
		enrollment *model.Enrollment
		err        error
	)
	id := ctx.Param("id")
	switch action {
	case model.ActionPause:
		enrollment, err = c.EnrollmentService.Pause(ctx.Request.Context(), user.UserID, id)
	case model.ActionResume:
		enrollment, err = c.EnrollmentService.Resume(ctx.Request.Context(), user.UserID, id)
	case model.ActionDrop:
		enrollment, err = c.EnrollmentService.Drop(ctx.Request.Context(), user.UserID, id)
	}
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, enrollment)
}

// @Summary 完成模块
// @Description 显式完成模块，进度强制为 100%
// @Tags 报名
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "报名ID"
// @Param body body service.CompleteEnrollmentRequest false "成绩与评语"
// @Success 200 {object} util.Response{data=service.EnrollmentCompletion}
// @Failure 409 {object} util.Response
// @Router /api/enrollments/{id}/complete [post]
func (c *EnrollmentController) Complete(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CompleteEnrollmentRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	result, err := c.EnrollmentService.Complete(ctx.Request.Context(), user.UserID, ctx.Param("id"), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}
