package api

import (
	"encoding/json"
	"strconv"
	"time"

	"ledger/database"
	"ledger/middleware"
	"ledger/models"
	"ledger/service"

	"github.com/gin-gonic/gin"
)

// ExpenseHandler 消费记录处理器
type ExpenseHandler struct{}

// NewExpenseHandler 创建消费记录处理器
func NewExpenseHandler() *ExpenseHandler {
	return &ExpenseHandler{}
}

// CreateExpenseRequest 创建消费记录请求
type CreateExpenseRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0" example:"99.99"`
	CategoryID  uint    `json:"category_id" binding:"required" example:"1"`
	Name        string  `json:"name" binding:"required,max=255" example:"午餐"`
	ExpenseTime string  `json:"expense_time" binding:"required" example:"2024-01-15 12:30:00"`
}

// UpdateExpenseRequest 更新消费记录请求
// 所有字段均为可选指针：nil 表示未提交，与提交零值区分开，
// "至少提供一个字段"的前置条件因此可以直接判空
type UpdateExpenseRequest struct {
	Amount      *float64 `json:"amount" binding:"omitempty,gt=0" example:"99.99"`
	CategoryID  *uint    `json:"category_id" example:"1"`
	Name        *string  `json:"name" binding:"omitempty,max=255" example:"午餐"`
	ExpenseTime *string  `json:"expense_time" example:"2024-01-15 12:30:00"`
}

// parseExpenseTime 解析消费时间，支持完整时间和仅日期两种格式
func parseExpenseTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.Local); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

// currentMonthWindow 当前月份的时间窗口，首尾两端均含
// 窗口每次请求基于当前时间重新计算，进程长期运行也不会过期
func currentMonthWindow(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}

// monthWindow 当年指定月份的时间窗口，左闭右开
// 与当前月份窗口的闭区间不同，这是历史行为，保持原样
// month 不做范围校验：13 会被 time.Date 归一化为次年 1 月
func monthWindow(now time.Time, month int) (time.Time, time.Time) {
	start := time.Date(now.Year(), time.Month(month), 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 1, 0)
	return start, end
}

// lookupVisibleCategory 校验类别对用户可见（本人拥有或全局）
func lookupVisibleCategory(userID, categoryID uint) (*models.Category, error) {
	var cat models.Category
	err := database.DB.Scopes(models.ScopeVisibleTo(userID)).First(&cat, categoryID).Error
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// List 获取当前月份的消费记录（按天分组汇总）
// @Summary 获取当前月份消费汇总
// @Description 查询当前用户本月的消费记录，按自然日分组并计算每日合计。本月没有任何记录时返回 404，不返回空列表。
// @Tags 消费记录
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]service.DaySummary} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "本月暂无记录"
// @Failure 500 {object} Response "查询失败"
// @Router /api/v1/expenses [get]
func (h *ExpenseHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	start, end := currentMonthWindow(time.Now())

	// 汇总缓存（未启用时所有调用为空操作）
	cacheKey := database.SummaryCacheKey(userID, start)
	if cached, ok := database.CacheGetSummary(c.Request.Context(), cacheKey); ok {
		SuccessWithMessage(c, "获取成功", json.RawMessage(cached))
		return
	}

	var expenses []models.Expense
	if err := database.DB.Scopes(models.ScopeOwner(userID)).
		Where("expense_time >= ? AND expense_time <= ?", start, end).
		Order("expense_time DESC").
		Find(&expenses).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	// 空结果按"未找到"处理，本接口从不返回空列表
	if len(expenses) == 0 {
		NotFound(c, "本月暂无消费记录")
		return
	}

	summaries := service.GroupExpensesByDay(expenses)

	if payload, err := json.Marshal(summaries); err == nil {
		database.CacheSetSummary(c.Request.Context(), cacheKey, payload)
	}

	SuccessWithMessage(c, "获取成功", summaries)
}

// ListByMonth 获取当年指定月份的消费记录（平铺列表）
// @Summary 获取指定月份消费记录
// @Description 查询当前用户在当年指定月份的消费记录，按消费时间降序平铺返回，不做按天分组。该月没有记录时返回 404。月份超出 1-12 不报错，按日期算术顺延（如 13 为次年 1 月）。
// @Tags 消费记录
// @Produce json
// @Security BearerAuth
// @Param month path int true "月份（1-12）"
// @Success 200 {object} Response{data=[]models.Expense} "获取成功"
// @Failure 400 {object} Response "月份不是数字"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "该月暂无记录"
// @Failure 500 {object} Response "查询失败"
// @Router /api/v1/expenses/month/{month} [get]
func (h *ExpenseHandler) ListByMonth(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		BadRequest(c, "无效的月份")
		return
	}

	start, end := monthWindow(time.Now(), month)

	var expenses []models.Expense
	if err := database.DB.Scopes(models.ScopeOwner(userID)).
		Where("expense_time >= ? AND expense_time < ?", start, end).
		Order("expense_time DESC").
		Find(&expenses).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	if len(expenses) == 0 {
		NotFound(c, "该月份暂无消费记录")
		return
	}

	SuccessWithMessage(c, "获取成功", expenses)
}

// Get 获取单条消费记录
// @Summary 获取单条消费记录
// @Description 根据ID获取当前用户的消费记录详情
// @Tags 消费记录
// @Produce json
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Success 200 {object} Response{data=models.Expense} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id} [get]
func (h *ExpenseHandler) Get(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var expense models.Expense
	if err := database.DB.Scopes(models.ScopeOwner(userID)).
		Where("id = ?", id).First(&expense).Error; err != nil {
		NotFound(c, "记录不存在")
		return
	}

	SuccessWithMessage(c, "获取成功", expense)
}

// Create 创建消费记录
// @Summary 创建消费记录
// @Description 创建一条新的消费记录，归属当前登录用户。类别必须是本人拥有或全局类别。
// @Tags 消费记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateExpenseRequest true "消费记录信息"
// @Success 201 {object} Response{data=models.Expense} "创建成功"
// @Failure 400 {object} Response "参数校验失败或类别不可用"
// @Failure 401 {object} Response "未授权"
// @Failure 500 {object} Response "创建失败"
// @Router /api/v1/expenses [post]
func (h *ExpenseHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestWithErrors(c, "参数校验失败", FieldErrors(err))
		return
	}

	// 校验类别可见性（本人拥有或全局）
	if _, err := lookupVisibleCategory(userID, req.CategoryID); err != nil {
		BadRequest(c, "类别不存在")
		return
	}

	expenseTime, err := parseExpenseTime(req.ExpenseTime)
	if err != nil {
		BadRequest(c, "时间格式错误，应为: 2006-01-02 15:04:05")
		return
	}

	expense := models.Expense{
		UserID:      userID,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Name:        req.Name,
		ExpenseTime: expenseTime,
	}

	if err := database.DB.Create(&expense).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建消费记录失败"))
		return
	}

	database.CacheInvalidateSummary(c.Request.Context(), userID, expense.ExpenseTime)

	Created(c, "创建成功", expense)
}

// Update 更新消费记录（部分更新）
// @Summary 更新消费记录
// @Description 合并提交的字段到指定记录并刷新更新时间，至少需要提交一个可更新字段。范围为本人拥有或关联全局类别的记录。
// @Tags 消费记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Param request body UpdateExpenseRequest true "要更新的字段"
// @Success 200 {object} Response{data=models.Expense} "更新成功"
// @Failure 400 {object} Response "参数校验失败、没有可更新字段或类别不可用"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录不存在"
// @Failure 500 {object} Response "更新失败"
// @Router /api/v1/expenses/{id} [patch]
func (h *ExpenseHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var req UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestWithErrors(c, "参数校验失败", FieldErrors(err))
		return
	}

	if req.Amount == nil && req.CategoryID == nil && req.Name == nil && req.ExpenseTime == nil {
		BadRequest(c, "至少需要提供一个可更新字段")
		return
	}

	// 更新路径的范围是"本人拥有或关联全局类别"，与读取/删除的仅限本人不同
	var expense models.Expense
	if err := database.DB.Scopes(models.ScopeOwnerOrGlobalCategory(userID)).
		Where("id = ?", id).First(&expense).Error; err != nil {
		NotFound(c, "记录不存在")
		return
	}

	updates := make(map[string]interface{})
	if req.Amount != nil {
		updates["amount"] = *req.Amount
	}
	if req.CategoryID != nil {
		// 类别变更需重新校验可见性
		if _, err := lookupVisibleCategory(userID, *req.CategoryID); err != nil {
			BadRequest(c, "类别不存在")
			return
		}
		updates["category_id"] = *req.CategoryID
	}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	oldTime := expense.ExpenseTime
	if req.ExpenseTime != nil {
		expenseTime, err := parseExpenseTime(*req.ExpenseTime)
		if err != nil {
			BadRequest(c, "时间格式错误，应为: 2006-01-02 15:04:05")
			return
		}
		updates["expense_time"] = expenseTime
	}

	if err := database.DB.Model(&expense).Updates(updates).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}

	// 重新获取更新后的记录
	database.DB.First(&expense, expense.ID)

	database.CacheInvalidateSummary(c.Request.Context(), expense.UserID, oldTime, expense.ExpenseTime)

	SuccessWithMessage(c, "更新成功", expense)
}

// Delete 删除消费记录
// @Summary 删除消费记录
// @Description 删除当前用户的指定消费记录。硬删除，不可恢复；重复删除同一 ID 仍返回 404。
// @Tags 消费记录
// @Produce json
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Success 200 {object} Response{data=models.Expense} "删除成功，返回被删除的记录"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录不存在"
// @Failure 500 {object} Response "删除失败"
// @Router /api/v1/expenses/{id} [delete]
func (h *ExpenseHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var expense models.Expense
	if err := database.DB.Scopes(models.ScopeOwner(userID)).
		Where("id = ?", id).First(&expense).Error; err != nil {
		NotFound(c, "记录不存在")
		return
	}

	if err := database.DB.Delete(&expense).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}

	database.CacheInvalidateSummary(c.Request.Context(), userID, expense.ExpenseTime)

	SuccessWithMessage(c, "删除成功", expense)
}
