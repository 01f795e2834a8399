package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
)

var startedAt = time.Now()

// SystemHandler 健康检查与运行状态
type SystemHandler struct {
	pool *netdev.Pool
	// 数据库探活，为空表示未启用持久化
	dbHealth func() error
}

func NewSystemHandler(pool *netdev.Pool, dbHealth func() error) *SystemHandler {
	return &SystemHandler{pool: pool, dbHealth: dbHealth}
}

// Health GET /api/v1/health
func (h *SystemHandler) Health(c *gin.Context) {
	status := "healthy"
	dbStatus := "disabled"
	if h.dbHealth != nil {
		dbStatus = "ok"
		if err := h.dbHealth(); err != nil {
			status, dbStatus = "degraded", err.Error()
		}
	}
	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"database":  dbStatus,
		"pool":      h.pool != nil,
		"uptime":    time.Since(startedAt).Round(time.Second).String(),
		"timestamp": time.Now().Unix(),
	})
}

// PoolStats GET /api/v1/pool/stats
func (h *SystemHandler) PoolStats(c *gin.Context) {
	if h.pool == nil {
		ok(c, netdev.PoolStats{})
		return
	}
	ok(c, h.pool.Stats())
}

// PoolCleanup POST /api/v1/pool/cleanup 关闭全部池化会话
func (h *SystemHandler) PoolCleanup(c *gin.Context) {
	closed := 0
	if h.pool != nil {
		closed = h.pool.ForceCleanup()
	}
	ok(c, gin.H{"closed": closed})
}
