package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/api/handler"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/database"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/service"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/logger"
)

// Deps 路由依赖；Overrides/Records 为空时不注册对应接口
type Deps struct {
	Dispatcher *interact.Dispatcher
	Backup     *service.BackupService
	Overrides  *database.OverrideStore
	Records    *database.BackupStore
	// 填充请求中缺省的 SSH 参数
	Defaults func(*netdev.Credentials)
	DBHealth func() error
	Version  string
}

// SetupRouter 设置路由
func SetupRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORSMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware())

	deviceHandler := handler.NewDeviceHandler(deps.Dispatcher, deps.Defaults)
	systemHandler := handler.NewSystemHandler(deps.Dispatcher.Pool(), deps.DBHealth)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    "netdev",
			"version": deps.Version,
			"status":  "running",
		})
	})

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", systemHandler.Health)

		devices := v1.Group("/devices")
		{
			devices.POST("/command", deviceHandler.SendCommand)
			devices.POST("/config", deviceHandler.SendConfig)
			devices.POST("/running-config", deviceHandler.RunningConfig)
			devices.POST("/save", deviceHandler.SaveConfig)
			devices.POST("/reboot", deviceHandler.Reboot)
			devices.POST("/detect", deviceHandler.Detect)
			devices.POST("/execute", deviceHandler.Execute)
		}

		v1.GET("/device-types", handler.ListDeviceTypes)

		pool := v1.Group("/pool")
		{
			pool.GET("/stats", systemHandler.PoolStats)
			pool.POST("/cleanup", systemHandler.PoolCleanup)
		}

		if deps.Backup != nil {
			backupHandler := handler.NewBackupHandler(deps.Backup, deps.Records, deps.Defaults)
			v1.POST("/backup", backupHandler.BatchBackup)
			v1.GET("/backup/records", backupHandler.ListRecords)
		}

		if deps.Overrides != nil {
			overrideHandler := handler.NewOverrideHandler(deps.Overrides)
			overrides := v1.Group("/platform-overrides")
			{
				overrides.GET("", overrideHandler.List)
				overrides.GET("/:device_type", overrideHandler.Get)
				overrides.PUT("/:device_type", overrideHandler.Put)
				overrides.DELETE("/:device_type", overrideHandler.Delete)
			}
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
			"path":    c.Request.URL.Path,
		})
	})

	return r
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestIDMiddleware 请求ID中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// LoggingMiddleware 日志中间件
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		kv := []interface{}{
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("HTTP Error", kv...)
			return
		}
		logger.Info("HTTP Request", kv...)
	}
}
