package api

import (
	"ledger/database"
	"ledger/middleware"
	"ledger/models"

	"github.com/gin-gonic/gin"
)

// CategoryHandler 消费类别查询
// 类别的增删改由外部后台负责，本服务只提供可见类别的只读查询
type CategoryHandler struct{}

func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

// List 获取当前用户可见的类别列表
// @Summary 获取消费类别列表
// @Description 返回当前用户可见的类别：本人拥有的和全局共享的（user_id 为空）。按排序字段升序，排序相同时按ID升序。
// @Tags 消费类别
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.Category} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Failure 500 {object} Response "查询失败"
// @Router /api/v1/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var list []models.Category
	if err := database.DB.Scopes(models.ScopeVisibleTo(userID)).
		Order("sort ASC, id ASC").Find(&list).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}
	Success(c, list)
}
