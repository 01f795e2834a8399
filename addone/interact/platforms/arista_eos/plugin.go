package arista_eos

import (
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
)

// Plugin Arista EOS
type Plugin struct {
	netdev.BaseDriver
}

// Profile EOS 平台数据
func Profile() *netdev.Profile {
	p := interact.CiscoStyle("arista_eos")
	p.SetupCommands = []string{"terminal width 32767"}
	p.SaveSuccess = []string{"Copy completed successfully"}
	p.ErrorPatterns = append(p.ErrorPatterns, "% Invalid command")
	return p
}

// New 创建驱动
func New() *Plugin {
	return &Plugin{BaseDriver: netdev.BaseDriver{P: Profile()}}
}

func init() {
	interact.Register("arista_eos", New(), "arista")
}
