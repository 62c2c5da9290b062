package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all the routes for the investigation service.
func RegisterRoutes(router *gin.Engine, api *API, jwtSecret string) {
	// 健康探针不走认证。
	router.GET("/healthz", api.HealthHandler)

	v1 := router.Group("/api/v1")

	investigations := v1.Group("/investigations")
	investigations.Use(AuthMiddleware(jwtSecret))
	{
		investigations.POST("", api.SubmitHandler)
		investigations.GET("", api.GetTasksHandler)
		investigations.GET("/:id", api.GetTaskHandler)
	}

	ws := router.Group("/ws")
	ws.Use(AuthMiddleware(jwtSecret))
	{
		// 会话级结果推送与任务级进度订阅是两条独立的读路径。
		ws.GET("/results", api.ResultSocketHandler)
		ws.GET("/progress/:id", api.ProgressSocketHandler)
	}
}
