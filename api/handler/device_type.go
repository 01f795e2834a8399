package handler

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/database"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/model"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
)

// DeviceTypeInfo 设备类型及其能力
type DeviceTypeInfo struct {
	Name            string   `json:"name"`
	Aliases         []string `json:"aliases,omitempty"`
	PrivilegedMode  bool     `json:"privileged_mode"`
	ConfigMode      bool     `json:"config_mode"`
	Commit          bool     `json:"commit"`
	SaveSupported   bool     `json:"save_supported"`
	UsesExecChannel bool     `json:"uses_exec_channel"`
}

// ListDeviceTypes GET /api/v1/device-types
func ListDeviceTypes(c *gin.Context) {
	aliases := map[string][]string{}
	for alias, name := range interact.Aliases() {
		aliases[name] = append(aliases[name], alias)
	}
	for _, list := range aliases {
		sort.Strings(list)
	}
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))

	res := make([]DeviceTypeInfo, 0)
	for _, name := range interact.Types() {
		if q != "" && !strings.Contains(name, q) {
			continue
		}
		d, err := interact.Lookup(name)
		if err != nil {
			continue
		}
		p := d.Profile()
		res = append(res, DeviceTypeInfo{
			Name:            name,
			Aliases:         aliases[name],
			PrivilegedMode:  p.HasPrivilegedMode,
			ConfigMode:      p.HasConfigMode,
			Commit:          p.HasTwoPhaseCommit,
			SaveSupported:   p.SaveMode != netdev.SaveUnsupported,
			UsesExecChannel: p.UsesExecChannel,
		})
	}
	ok(c, res)
}

// OverrideHandler 平台覆盖项维护
type OverrideHandler struct {
	store *database.OverrideStore
}

func NewOverrideHandler(store *database.OverrideStore) *OverrideHandler {
	return &OverrideHandler{store: store}
}

// List GET /api/v1/platform-overrides
func (h *OverrideHandler) List(c *gin.Context) {
	list, err := h.store.List()
	if err != nil {
		fail(c, err, nil)
		return
	}
	ok(c, list)
}

// Get GET /api/v1/platform-overrides/:device_type
func (h *OverrideHandler) Get(c *gin.Context) {
	o, err := h.store.Get(c.Param("device_type"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, Response{Code: "NOT_FOUND", Message: err.Error()})
		return
	}
	if err != nil {
		fail(c, err, nil)
		return
	}
	ok(c, o)
}

// Put PUT /api/v1/platform-overrides/:device_type，设备类型须已注册
func (h *OverrideHandler) Put(c *gin.Context) {
	var req model.PlatformOverride
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	d, err := interact.Lookup(c.Param("device_type"))
	if err != nil {
		fail(c, err, nil)
		return
	}
	req.ID = 0
	req.DeviceType = d.Name()
	if err := h.store.Upsert(&req); err != nil {
		fail(c, err, nil)
		return
	}
	saved, err := h.store.Get(req.DeviceType)
	if err != nil {
		fail(c, err, nil)
		return
	}
	ok(c, saved)
}

// Delete DELETE /api/v1/platform-overrides/:device_type
func (h *OverrideHandler) Delete(c *gin.Context) {
	err := h.store.Delete(c.Param("device_type"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, Response{Code: "NOT_FOUND", Message: err.Error()})
		return
	}
	if err != nil {
		fail(c, err, nil)
		return
	}
	ok(c, nil)
}
