package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
)

// DeviceRequest 设备操作请求：连接参数 + 命令或配置行
type DeviceRequest struct {
	netdev.Credentials
	Command     string   `json:"command,omitempty"`
	ConfigLines []string `json:"configLines,omitempty"`
}

// DetectResult 设备类型探测结果
type DetectResult struct {
	DeviceType string `json:"deviceType"`
	Matched    bool   `json:"matched"`
}

// DeviceHandler 设备交互接口
type DeviceHandler struct {
	dispatcher *interact.Dispatcher
	// 请求未指定超时等参数时填充默认值
	defaults func(*netdev.Credentials)
}

// NewDeviceHandler 创建处理器
func NewDeviceHandler(d *interact.Dispatcher, defaults func(*netdev.Credentials)) *DeviceHandler {
	return &DeviceHandler{dispatcher: d, defaults: defaults}
}

func (h *DeviceHandler) bind(c *gin.Context) (DeviceRequest, bool) {
	var req DeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return req, false
	}
	if h.defaults != nil {
		h.defaults(&req.Credentials)
	}
	return req, true
}

func (h *DeviceHandler) run(c *gin.Context, op interact.Operation) {
	req, bound := h.bind(c)
	if !bound {
		return
	}
	res, err := h.dispatcher.Execute(c.Request.Context(), req.Credentials, interact.Request{
		Operation:   op,
		Command:     req.Command,
		ConfigLines: req.ConfigLines,
	})
	if err != nil {
		fail(c, err, res)
		return
	}
	ok(c, res)
}

// SendCommand POST /api/v1/devices/command
func (h *DeviceHandler) SendCommand(c *gin.Context) { h.run(c, interact.OpSendCommand) }

// SendConfig POST /api/v1/devices/config
func (h *DeviceHandler) SendConfig(c *gin.Context) { h.run(c, interact.OpSendConfig) }

// RunningConfig POST /api/v1/devices/running-config
func (h *DeviceHandler) RunningConfig(c *gin.Context) { h.run(c, interact.OpGetRunningConfig) }

// SaveConfig POST /api/v1/devices/save
func (h *DeviceHandler) SaveConfig(c *gin.Context) { h.run(c, interact.OpSaveConfig) }

// Reboot POST /api/v1/devices/reboot
func (h *DeviceHandler) Reboot(c *gin.Context) { h.run(c, interact.OpReboot) }

// Execute POST /api/v1/devices/execute，操作名由 query 参数 operation 指定
func (h *DeviceHandler) Execute(c *gin.Context) {
	op, err := interact.ParseOperation(c.Query("operation"))
	if err != nil {
		fail(c, err, nil)
		return
	}
	h.run(c, op)
}

// Detect POST /api/v1/devices/detect
func (h *DeviceHandler) Detect(c *gin.Context) {
	req, bound := h.bind(c)
	if !bound {
		return
	}
	ctx := c.Request.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	name, matched, err := h.dispatcher.Detect(ctx, req.Credentials)
	if err != nil {
		fail(c, err, nil)
		return
	}
	ok(c, DetectResult{DeviceType: name, Matched: matched})
}
