package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Garden10 Attendance API
// @version 1.0
// @description API for tracking challenge attendance derived from GitHub commit activity
// @host localhost:8080
// @BasePath /api/v1

// SetupRouter configures the API routes
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.Default()

	// API documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	{
		users := v1.Group("/users")
		{
			users.GET("", h.ListUsers)
			users.POST("", h.AddUser)
		}

		attendance := v1.Group("/attendance")
		{
			attendance.POST("/check", h.CheckAllAttendance)
			attendance.POST("/check/:github_id", h.CheckUserAttendance)
			attendance.GET("/history/:github_id", h.GetHistory)
			attendance.GET("/stats", h.GetRangeStats)
			attendance.GET("/stats/:date", h.GetDayStats)
			attendance.GET("/ranking", h.GetRanking)
		}

		v1.GET("/commits/:github_id", h.GetCommits)
	}

	return r
}
