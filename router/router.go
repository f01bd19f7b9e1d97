package router

import (
	"log/slog"
	"time"

	"ledger/api"
	"ledger/config"
	_ "ledger/docs"
	"ledger/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, logger *slog.Logger) *gin.Engine {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(middleware.RequestLogger(logger))
	r.Use(gin.Recovery())

	// CORS 中间件
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 写操作限流
	writeLimit := middleware.RateLimit(60, time.Minute)

	// API v1 路由组，全部需要 JWT 认证
	v1 := r.Group("/api/v1")
	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth())
	{
		// 消费类别（只读）
		categoryHandler := api.NewCategoryHandler()
		authorized.GET("/categories", categoryHandler.List)

		// 消费记录
		expenseHandler := api.NewExpenseHandler()
		expenses := authorized.Group("/expenses")
		{
			expenses.GET("", expenseHandler.List)
			expenses.GET("/month/:month", expenseHandler.ListByMonth)
			expenses.GET("/statistics", expenseHandler.GetStatistics)
			expenses.GET("/:id", expenseHandler.Get)
			expenses.POST("", writeLimit, expenseHandler.Create)
			expenses.PATCH("/:id", writeLimit, expenseHandler.Update)
			expenses.DELETE("/:id", writeLimit, expenseHandler.Delete)
		}

		// 导出
		exportHandler := api.NewExportHandler()
		export := authorized.Group("/export")
		{
			export.GET("/csv", exportHandler.ExportCSV)
			export.GET("/json", exportHandler.ExportJSON)
			export.GET("/xlsx", exportHandler.ExportExcel)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return r
}
