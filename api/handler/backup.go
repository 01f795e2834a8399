package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/database"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/service"
)

// BackupHandler 备份接口处理器
type BackupHandler struct {
	svc      *service.BackupService
	records  *database.BackupStore
	defaults func(*netdev.Credentials)
}

func NewBackupHandler(svc *service.BackupService, records *database.BackupStore, defaults func(*netdev.Credentials)) *BackupHandler {
	return &BackupHandler{svc: svc, records: records, defaults: defaults}
}

// BatchBackup POST /api/v1/backup
func (h *BackupHandler) BatchBackup(c *gin.Context) {
	var req service.BackupBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if h.defaults != nil {
		for i := range req.Devices {
			h.defaults(&req.Devices[i].Credentials)
		}
	}
	resp, err := h.svc.Run(c.Request.Context(), req)
	if err != nil {
		fail(c, err, nil)
		return
	}
	ok(c, resp)
}

// ListRecords GET /api/v1/backup/records?host=&task_id=&limit=
func (h *BackupHandler) ListRecords(c *gin.Context) {
	if h.records == nil {
		badRequest(c, "backup records are not persisted")
		return
	}
	if taskID := c.Query("task_id"); taskID != "" {
		recs, err := h.records.ListByTask(taskID)
		if err != nil {
			fail(c, err, nil)
			return
		}
		ok(c, recs)
		return
	}
	host := c.Query("host")
	if host == "" {
		badRequest(c, "host or task_id is required")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	recs, err := h.records.ListByHost(host, limit)
	if err != nil {
		fail(c, err, nil)
		return
	}
	ok(c, recs)
}
