package controller

import (
	"learning_progress_backend/internal/service"
	"learning_progress_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AdminController 管理员只读查询与内容下架
type AdminController struct {
	EnrollmentService *service.EnrollmentService
	ProgressService   *service.ProgressService
}

func NewAdminController(enrollmentService *service.EnrollmentService, progressService *service.ProgressService) *AdminController {
	return &AdminController{EnrollmentService: enrollmentService, ProgressService: progressService}
}

// @Summary 查询用户报名
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Param userId path int true "用户ID"
// @Param status query string false "状态过滤"
// @Success 200 {object} util.Response{data=[]model.Enrollment}
// @Router /api/admin/users/{userId}/enrollments [get]
func (c *AdminController) ListUserEnrollments(ctx *gin.Context) {
	userID, err := util.ParamUint(ctx, "userId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	enrollments, err := c.EnrollmentService.List(ctx.Request.Context(), userID, ctx.Query("status"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, enrollments)
}

// @Summary 下架内容
// @Description 停用内容及其进度记录，并重新聚合模块下的报名
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "内容ID"
// @Success 200 {object} util.Response{data=service.DeactivationResult}
// @Router /api/admin/contents/{id}/deactivate [post]
func (c *AdminController) DeactivateContent(ctx *gin.Context) {
	contentID, err := util.ParamUint(ctx, "id")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	result, err := c.ProgressService.DeactivateContent(ctx.Request.Context(), contentID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}
