package h3c_comware

import (
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
)

// Plugin 华三 / HPE Comware，覆盖 S 系列交换机与 SR、MSR 路由器
type Plugin struct {
	netdev.BaseDriver
}

// Profile Comware 平台数据
func Profile() *netdev.Profile {
	p := interact.BracketStyle("h3c_comware")
	p.DisablePaging = []string{"screen-length disable"}
	// save force 跳过文件名与覆盖确认
	p.SaveCommand = "save force"
	p.ErrorPatterns = []string{
		"% Unrecognized command",
		"% Incomplete command",
		"% Wrong parameter",
		"% Too many parameters",
		"% Ambiguous command",
	}
	return p
}

// New 创建驱动
func New() *Plugin {
	return &Plugin{BaseDriver: netdev.BaseDriver{P: Profile()}}
}

func init() {
	interact.Register("h3c_comware", New(), "h3c", "hp_comware", "h3c_s", "h3c_sr", "h3c_msr")
}
