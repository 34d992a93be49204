package api

import (
	"github.com/gin-gonic/gin"

	"kcbxt/internal/api/middleware"
)

// RegisterRoutes 注册 API 路由。所有业务路由都挂在 /v1 下，
// 仅接受携带内部密钥的宿主运行时调用。
func RegisterRoutes(
	router *gin.Engine,
	scheduleHandler *ScheduleHandler,
	galleryHandler *GalleryHandler,
	internalSecret string,
) {
	v1 := router.Group("/v1")
	v1.Use(middleware.InternalSecretMiddleware(internalSecret))
	{
		scheduleGroup := v1.Group("/schedule")
		{
			scheduleGroup.POST("/:userID", scheduleHandler.Upload)
			scheduleGroup.GET("/:userID", scheduleHandler.Show)
			scheduleGroup.GET("/:userID/today", scheduleHandler.ShowToday)
			scheduleGroup.DELETE("/:userID", scheduleHandler.Remove)
		}

		galleryGroup := v1.Group("/galleries")
		{
			galleryGroup.POST("", galleryHandler.Create)
			galleryGroup.GET("", galleryHandler.List)
			galleryGroup.GET("/search", galleryHandler.Search)
			galleryGroup.GET("/:name", galleryHandler.Info)
			galleryGroup.DELETE("/:name", galleryHandler.Delete)
			galleryGroup.POST("/:name/images", galleryHandler.AddImage)
			galleryGroup.DELETE("/:name/images", galleryHandler.DeleteImage)
			galleryGroup.DELETE("/:name/images/:index", galleryHandler.DeleteImage)
			galleryGroup.GET("/:name/images/:index", galleryHandler.GetImage)
		}
	}
}
