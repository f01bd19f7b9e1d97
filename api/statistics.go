package api

import (
	"time"

	"ledger/database"
	"ledger/middleware"
	"ledger/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CategoryStat 单个类别的消费统计
type CategoryStat struct {
	CategoryID uint    `json:"category_id"`
	Category   string  `json:"category"`
	Total      float64 `json:"total"`
	Count      int64   `json:"count"`
}

// statisticsTimeRange 为统计查询追加时间范围条件
func statisticsTimeRange(query *gorm.DB, startTimeStr, endTimeStr string) *gorm.DB {
	if startTimeStr != "" {
		if t, err := time.ParseInLocation("2006-01-02", startTimeStr, time.Local); err == nil {
			query = query.Where("expense_time >= ?", t)
		}
	}
	if endTimeStr != "" {
		if t, err := time.ParseInLocation("2006-01-02", endTimeStr, time.Local); err == nil {
			// 包含结束日期当天
			t = t.Add(24*time.Hour - time.Second)
			query = query.Where("expense_time <= ?", t)
		}
	}
	return query
}

// GetStatistics 获取消费统计
// @Summary 获取消费统计
// @Description 统计当前用户指定时间范围内的消费总额和按类别汇总。不传 start_time/end_time 则统计全部时间。
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Param start_time query string false "开始时间 (2024-01-01)"
// @Param end_time query string false "结束时间 (2024-12-31)"
// @Success 200 {object} Response "获取成功"
// @Failure 401 {object} Response "未授权"
// @Failure 500 {object} Response "查询失败"
// @Router /api/v1/expenses/statistics [get]
func (h *ExpenseHandler) GetStatistics(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	startTimeStr := c.Query("start_time")
	endTimeStr := c.Query("end_time")

	// 总金额
	totalQuery := database.DB.Model(&models.Expense{}).Where("expenses.user_id = ?", userID)
	totalQuery = statisticsTimeRange(totalQuery, startTimeStr, endTimeStr)

	var totalAmount float64
	if err := totalQuery.Select("COALESCE(SUM(amount), 0)").Scan(&totalAmount).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	// 按类别统计
	categoryQuery := database.DB.Model(&models.Expense{}).Where("expenses.user_id = ?", userID)
	categoryQuery = statisticsTimeRange(categoryQuery, startTimeStr, endTimeStr)

	var categoryStats []CategoryStat
	if err := categoryQuery.
		Select("expenses.category_id, categories.name AS category, SUM(expenses.amount) AS total, COUNT(*) AS count").
		Joins("JOIN categories ON categories.id = expenses.category_id").
		Group("expenses.category_id, categories.name").
		Order("total DESC").
		Scan(&categoryStats).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, gin.H{
		"total_amount":   totalAmount,
		"category_stats": categoryStats,
	})
}
