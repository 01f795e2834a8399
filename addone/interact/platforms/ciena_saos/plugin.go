package ciena_saos

import (
	"regexp"
	"time"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
)

// Plugin Ciena SAOS：命令即时生效，"*" 标记未保存修改
type Plugin struct {
	netdev.BaseDriver
}

// Profile SAOS 平台数据
func Profile() *netdev.Profile {
	return &netdev.Profile{
		Name:          "ciena_saos",
		Terminators:   []string{">"},
		GenericPrompt: true,
		DisablePaging: []string{"system shell session set more off"},
		SaveMode:      netdev.SaveCommand,
		SaveCommand:   "configuration save",
		RunningConfig: "configuration show",
		RebootCommand: "chassis reboot now",
		ExitCommand:   "exit",
		ErrorPatterns: []string{
			"SHELL PARSER FAILURE",
			"SHELL COMMAND FAILURE",
			"Error:",
		},
		ArtifactPattern:  []*regexp.Regexp{interact.CaretLine},
		ReadOnlyPrefixes: []string{"show", "configuration show", "port show", "system show"},
		CommandTimeout:   30 * time.Second,
		ConfigTimeout:    2 * time.Minute,
	}
}

// New 创建驱动
func New() *Plugin {
	return &Plugin{BaseDriver: netdev.BaseDriver{P: Profile()}}
}

func init() {
	interact.Register("ciena_saos", New(), "ciena")
}
