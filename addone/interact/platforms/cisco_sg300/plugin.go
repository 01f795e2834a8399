package cisco_sg300

import (
	"regexp"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/channel"
)

// Plugin Cisco 小企业交换机（SG300/SG350），确认提示只接受单字符
type Plugin struct {
	netdev.BaseDriver
}

// Profile SG300 平台数据
func Profile() *netdev.Profile {
	p := interact.CiscoStyle("cisco_sg300")
	p.DisablePaging = []string{"terminal datadump"}
	p.SetupCommands = nil
	p.SaveCommand = "copy running-config startup-config"
	p.SaveSuccess = []string{"Copy succeeded"}
	p.Responders = []channel.Responder{
		{Name: "overwrite", Pattern: regexp.MustCompile(`(?i)\(Y/N\)\s*\[N\]\s*\?\s*$`), Reply: "Y"},
	}
	return p
}

// New 创建驱动
func New() *Plugin {
	return &Plugin{BaseDriver: netdev.BaseDriver{P: Profile()}}
}

func init() {
	interact.Register("cisco_sg300", New(), "cisco_s300", "cisco_sb")
}
