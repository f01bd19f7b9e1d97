package service

import (
	"sort"

	"ledger/models"
)

// DaySummary 按天聚合的消费汇总
type DaySummary struct {
	Date     string           `json:"date"`  // 日期键，格式 2006-01-02
	Total    float64          `json:"total"` // 当天金额合计
	Expenses []models.Expense `json:"expenses"`
}

// GroupExpensesByDay 将消费记录按自然日分组并累计每日合计
//
// 单次遍历输入记录：以 expense_time 截断到天作为分组键，首次遇到某天时
// 初始化该天的桶，之后追加记录并累加金额。输出顺序为日期键的首次出现
// 顺序（不做按时间重排）；每个桶内的记录按完整时间戳降序重新排序，
// 不依赖输入已排好序。时间戳相同的记录保持输入相对顺序。
func GroupExpensesByDay(expenses []models.Expense) []DaySummary {
	buckets := make(map[string]*DaySummary, len(expenses))
	var order []string

	for _, e := range expenses {
		key := e.ExpenseTime.Format("2006-01-02")
		b, ok := buckets[key]
		if !ok {
			b = &DaySummary{Date: key}
			buckets[key] = b
			order = append(order, key)
		}
		b.Expenses = append(b.Expenses, e)
		b.Total += e.Amount
	}

	result := make([]DaySummary, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		sort.SliceStable(b.Expenses, func(i, j int) bool {
			return b.Expenses[i].ExpenseTime.After(b.Expenses[j].ExpenseTime)
		})
		result = append(result, *b)
	}
	return result
}
