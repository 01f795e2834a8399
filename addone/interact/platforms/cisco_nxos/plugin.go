package cisco_nxos

import (
	"regexp"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/channel"
)

// Plugin NX-OS：登录即为特权模式，保存用 copy run start
type Plugin struct {
	netdev.BaseDriver
}

// Profile NX-OS 平台数据
func Profile() *netdev.Profile {
	p := interact.CiscoStyle("cisco_nxos")
	p.HasPrivilegedMode = false
	p.EnablePrompt = nil
	p.SaveCommand = "copy running-config startup-config"
	p.SaveSuccess = []string{"Copy complete"}
	p.ErrorPatterns = append(p.ErrorPatterns, "% Invalid command", "% Invalid parameter", "Syntax error while parsing")
	p.Responders = []channel.Responder{
		{Name: "reload", Pattern: regexp.MustCompile(`(?i)\(y/n\)\?\s*\[n\]\s*$`), Reply: "y\n"},
	}
	return p
}

// New 创建驱动
func New() *Plugin {
	return &Plugin{BaseDriver: netdev.BaseDriver{P: Profile()}}
}

func init() {
	interact.Register("cisco_nxos", New(), "nxos", "cisco_nexus")
}
