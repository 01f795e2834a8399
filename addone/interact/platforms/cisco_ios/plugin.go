package cisco_ios

import (
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
)

// Plugin Cisco IOS / IOS-XE 驱动，行为完全由数据描述
type Plugin struct {
	netdev.BaseDriver
}

// Profile IOS 平台数据
func Profile() *netdev.Profile {
	p := interact.CiscoStyle("cisco_ios")
	p.SaveSuccess = []string{"[OK]"}
	return p
}

// New 创建驱动
func New() *Plugin {
	return &Plugin{BaseDriver: netdev.BaseDriver{P: Profile()}}
}

func init() {
	// 注册到交互插件中心
	interact.Register("cisco_ios", New(), "cisco_ios_xe", "cisco_xe", "cisco")
}
