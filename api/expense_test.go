package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"ledger/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	oldDB := database.DB
	database.DB = gormDB
	return mock, func() {
		database.DB = oldDB
		sqlDB.Close()
	}
}

func setUserIDMiddleware(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
}

func expenseColumns() []string {
	return []string{"id", "user_id", "category_id", "amount", "name", "expense_time", "created_at", "updated_at"}
}

func categoryColumns() []string {
	return []string{"id", "user_id", "name", "sort", "color", "created_at", "updated_at", "deleted_at"}
}

func localTime(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.Local)
	if err != nil {
		panic(err)
	}
	return t
}

// 仅限本人的查询条件（读取/删除路径）
func ownerWherePattern() string {
	return regexp.QuoteMeta("WHERE id = ? AND user_id = ?")
}

// 本人拥有或关联全局类别的查询条件（更新路径）
func ownerOrGlobalWherePattern() string {
	return regexp.QuoteMeta("user_id = ? OR category_id IN (SELECT")
}

func TestExpenseHandler_Create(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	// 类别可见性校验：主键在前，可见范围（本人或全局）在后
	mock.ExpectQuery("SELECT .* FROM `categories`").
		WithArgs(1, 1).
		WillReturnRows(sqlmock.NewRows(categoryColumns()).
			AddRow(1, nil, "餐饮", 10, "#ef4444", time.Now(), time.Now(), nil))

	// INSERT expense
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `expenses`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	router.POST("/expenses", NewExpenseHandler().Create)

	body := `{"amount":99.99,"category_id":1,"name":"午餐","expense_time":"2024-01-15 12:30:00"}`
	req := httptest.NewRequest("POST", "/expenses", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 201, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "创建成功", resp["message"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Create_ValidationErrors(t *testing.T) {
	_, cleanup := setupMockDB(t)
	defer cleanup()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	router.POST("/expenses", NewExpenseHandler().Create)

	// 缺少 name 和 expense_time
	body := `{"amount":5,"category_id":1}`
	req := httptest.NewRequest("POST", "/expenses", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	errs, ok := resp["errors"].([]interface{})
	require.True(t, ok, "应返回逐字段错误明细")
	assert.Len(t, errs, 2)
}

func TestExpenseHandler_Create_InvisibleCategory(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	// 他人的非全局类别对当前用户不可见，查询无结果
	mock.ExpectQuery("SELECT .* FROM `categories`").
		WithArgs(42, 1).
		WillReturnRows(sqlmock.NewRows(categoryColumns()))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	router.POST("/expenses", NewExpenseHandler().Create)

	body := `{"amount":99,"category_id":42,"name":"午餐","expense_time":"2024-01-15 12:30:00"}`
	req := httptest.NewRequest("POST", "/expenses", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
	assert.Contains(t, w.Body.String(), "类别不存在")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_List_GroupsByDay(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now()
	day1 := time.Date(now.Year(), now.Month(), 5, 18, 0, 0, 0, time.Local)
	day1b := time.Date(now.Year(), now.Month(), 5, 10, 0, 0, 0, time.Local)
	day2 := time.Date(now.Year(), now.Month(), 6, 9, 0, 0, 0, time.Local)

	// 按消费时间降序返回
	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WillReturnRows(sqlmock.NewRows(expenseColumns()).
			AddRow(3, 1, 1, 5.0, "早餐", day2, now, now).
			AddRow(2, 1, 1, 30.0, "晚餐", day1, now, now).
			AddRow(1, 1, 1, 20.0, "午餐", day1b, now, now))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	router.GET("/expenses", NewExpenseHandler().List)

	req := httptest.NewRequest("GET", "/expenses", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)

	var resp struct {
		Code int `json:"code"`
		Data []struct {
			Date     string  `json:"date"`
			Total    float64 `json:"total"`
			Expenses []struct {
				ID uint `json:"id"`
			} `json:"expenses"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)

	assert.Equal(t, day2.Format("2006-01-02"), resp.Data[0].Date)
	assert.InDelta(t, 5.0, resp.Data[0].Total, 1e-9)

	assert.Equal(t, day1.Format("2006-01-02"), resp.Data[1].Date)
	assert.InDelta(t, 50.0, resp.Data[1].Total, 1e-9)
	require.Len(t, resp.Data[1].Expenses, 2)
	assert.Equal(t, uint(2), resp.Data[1].Expenses[0].ID)
	assert.Equal(t, uint(1), resp.Data[1].Expenses[1].ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_List_EmptyIsNotFound(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WillReturnRows(sqlmock.NewRows(expenseColumns()))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	router.GET("/expenses", NewExpenseHandler().List)

	req := httptest.NewRequest("GET", "/expenses", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// 空结果返回 404，不返回空列表
	assert.Equal(t, 404, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_ListByMonth(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now()
	ts := time.Date(now.Year(), 3, 10, 12, 0, 0, 0, time.Local)
	// 左闭右开窗口：[3月1日, 4月1日)
	start := time.Date(now.Year(), 3, 1, 0, 0, 0, 0, time.Local)
	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WithArgs(start, start.AddDate(0, 1, 0), 1).
		WillReturnRows(sqlmock.NewRows(expenseColumns()).
			AddRow(1, 1, 1, 12.0, "打车", ts, now, now))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	router.GET("/expenses/month/:month", NewExpenseHandler().ListByMonth)

	req := httptest.NewRequest("GET", "/expenses/month/3", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	// 平铺列表，不做按天分组
	var resp struct {
		Data []struct {
			ID uint `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, uint(1), resp.Data[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_ListByMonth_InvalidMonth(t *testing.T) {
	_, cleanup := setupMockDB(t)
	defer cleanup()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	router.GET("/expenses/month/:month", NewExpenseHandler().ListByMonth)

	req := httptest.NewRequest("GET", "/expenses/month/abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
}

func TestExpenseHandler_ListByMonth_Overflow(t *testing.T) {
	// 月份 13 不报错，按日期算术顺延为次年 1 月
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	start := time.Date(time.Now().Year()+1, 1, 1, 0, 0, 0, 0, time.Local)
	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WithArgs(start, start.AddDate(0, 1, 0), 1).
		WillReturnRows(sqlmock.NewRows(expenseColumns()))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	router.GET("/expenses/month/:month", NewExpenseHandler().ListByMonth)

	req := httptest.NewRequest("GET", "/expenses/month/13", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// 没有记录则与其他月份一样返回 404
	assert.Equal(t, 404, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Get(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(ownerWherePattern()).
		WithArgs(7, 1).
		WillReturnRows(sqlmock.NewRows(expenseColumns()).
			AddRow(7, 1, 1, 99.0, "电影票", localTime("2024-06-01 20:00:00"), now, now))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	router.GET("/expenses/:id", NewExpenseHandler().Get)

	req := httptest.NewRequest("GET", "/expenses/7", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "电影票")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Get_NotFound(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery(ownerWherePattern()).
		WithArgs(999, 1).
		WillReturnRows(sqlmock.NewRows(expenseColumns()))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	router.GET("/expenses/:id", NewExpenseHandler().Get)

	req := httptest.NewRequest("GET", "/expenses/999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 404, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Update(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now()
	// 范围查询：本人拥有或关联全局类别
	mock.ExpectQuery(ownerOrGlobalWherePattern()).
		WithArgs(5, 1).
		WillReturnRows(sqlmock.NewRows(expenseColumns()).
			AddRow(5, 1, 1, 20.0, "午餐", localTime("2024-06-01 12:00:00"), now, now))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `expenses`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// 更新后重新读取
	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WithArgs(5, 5).
		WillReturnRows(sqlmock.NewRows(expenseColumns()).
			AddRow(5, 1, 1, 35.5, "午餐", localTime("2024-06-01 12:00:00"), now, now))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	router.PATCH("/expenses/:id", NewExpenseHandler().Update)

	body := `{"amount":35.5}`
	req := httptest.NewRequest("PATCH", "/expenses/5", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "更新成功", resp["message"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Update_NoFields(t *testing.T) {
	_, cleanup := setupMockDB(t)
	defer cleanup()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	router.PATCH("/expenses/:id", NewExpenseHandler().Update)

	// 没有提交任何可更新字段，即使 ID 合法也返回 400
	req := httptest.NewRequest("PATCH", "/expenses/5", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
	assert.Contains(t, w.Body.String(), "至少")
}

func TestExpenseHandler_Update_NotFound(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery(ownerOrGlobalWherePattern()).
		WithArgs(404, 1).
		WillReturnRows(sqlmock.NewRows(expenseColumns()))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	router.PATCH("/expenses/:id", NewExpenseHandler().Update)

	req := httptest.NewRequest("PATCH", "/expenses/404", bytes.NewBufferString(`{"amount":1}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 404, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Update_CategoryRevalidated(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(ownerOrGlobalWherePattern()).
		WithArgs(5, 1).
		WillReturnRows(sqlmock.NewRows(expenseColumns()).
			AddRow(5, 1, 1, 20.0, "午餐", localTime("2024-06-01 12:00:00"), now, now))

	// 变更后的类别不可见
	mock.ExpectQuery("SELECT .* FROM `categories`").
		WithArgs(77, 1).
		WillReturnRows(sqlmock.NewRows(categoryColumns()))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	router.PATCH("/expenses/:id", NewExpenseHandler().Update)

	req := httptest.NewRequest("PATCH", "/expenses/5", bytes.NewBufferString(`{"category_id":77}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
	assert.Contains(t, w.Body.String(), "类别不存在")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_GlobalCategoryRecordScopes(t *testing.T) {
	// 他人拥有、但关联全局类别的记录：更新路径可见，读取/删除仅限本人。
	// 同一条记录 PATCH 返回 200，GET 和 DELETE 返回 404
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now()

	// PATCH：按"本人或全局类别"范围命中 user_id=2 的记录
	mock.ExpectQuery(ownerOrGlobalWherePattern()).
		WithArgs(8, 1).
		WillReturnRows(sqlmock.NewRows(expenseColumns()).
			AddRow(8, 2, 1, 20.0, "午餐", localTime("2024-06-01 12:00:00"), now, now))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `expenses`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WithArgs(8, 8).
		WillReturnRows(sqlmock.NewRows(expenseColumns()).
			AddRow(8, 2, 1, 35.5, "午餐", localTime("2024-06-01 12:00:00"), now, now))

	// GET / DELETE：仅限本人的条件查不到这条记录
	mock.ExpectQuery(ownerWherePattern()).
		WithArgs(8, 1).
		WillReturnRows(sqlmock.NewRows(expenseColumns()))
	mock.ExpectQuery(ownerWherePattern()).
		WithArgs(8, 1).
		WillReturnRows(sqlmock.NewRows(expenseColumns()))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	h := NewExpenseHandler()
	router.GET("/expenses/:id", h.Get)
	router.PATCH("/expenses/:id", h.Update)
	router.DELETE("/expenses/:id", h.Delete)

	patchReq := httptest.NewRequest("PATCH", "/expenses/8", bytes.NewBufferString(`{"amount":35.5}`))
	patchReq.Header.Set("Content-Type", "application/json")
	patchW := httptest.NewRecorder()
	router.ServeHTTP(patchW, patchReq)
	assert.Equal(t, 200, patchW.Code)

	getW := httptest.NewRecorder()
	router.ServeHTTP(getW, httptest.NewRequest("GET", "/expenses/8", nil))
	assert.Equal(t, 404, getW.Code)

	deleteW := httptest.NewRecorder()
	router.ServeHTTP(deleteW, httptest.NewRequest("DELETE", "/expenses/8", nil))
	assert.Equal(t, 404, deleteW.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Delete(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(ownerWherePattern()).
		WithArgs(9, 1).
		WillReturnRows(sqlmock.NewRows(expenseColumns()).
			AddRow(9, 1, 1, 50.0, "聚餐", localTime("2024-06-02 19:00:00"), now, now))

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `expenses`").
		WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	router.DELETE("/expenses/:id", NewExpenseHandler().Delete)

	req := httptest.NewRequest("DELETE", "/expenses/9", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	// 返回被删除的记录
	assert.Contains(t, w.Body.String(), "聚餐")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Delete_Idempotent(t *testing.T) {
	// 对不存在的 ID 重复删除，两次都返回 404，不报错
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery(ownerWherePattern()).
		WithArgs(1000, 1).
		WillReturnRows(sqlmock.NewRows(expenseColumns()))
	mock.ExpectQuery(ownerWherePattern()).
		WithArgs(1000, 1).
		WillReturnRows(sqlmock.NewRows(expenseColumns()))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	router.DELETE("/expenses/:id", NewExpenseHandler().Delete)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("DELETE", "/expenses/1000", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, 404, w.Code)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}
