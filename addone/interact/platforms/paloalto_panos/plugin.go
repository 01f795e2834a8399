package paloalto_panos

import (
	"regexp"
	"time"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/channel"
)

// Plugin Palo Alto PAN-OS：configure / commit，提交耗时较长
type Plugin struct {
	netdev.BaseDriver
}

// Profile PAN-OS 平台数据
func Profile() *netdev.Profile {
	return &netdev.Profile{
		Name:              "paloalto_panos",
		Terminators:       []string{">", "#"},
		GenericPrompt:     true,
		DisablePaging:     []string{"set cli pager off"},
		SetupCommands:     []string{"set cli terminal width 500"},
		HasConfigMode:     true,
		ConfigCommand:     "configure",
		ExitConfigCommand: "exit",
		ConfigPrompt:      regexp.MustCompile(`#\s*$`),
		HasTwoPhaseCommit: true,
		CommitCommand:     "commit",
		CommitSuccess:     []string{"Configuration committed successfully"},
		CommitErrors:      []string{"Commit failed", "Validation Error"},
		AbortCommand:      "revert config",
		SaveMode:          netdev.SaveOnCommit,
		RunningConfig:     "show config running",
		RebootCommand:     "request restart system",
		ExitCommand:       "exit",
		ErrorPatterns: []string{
			"Invalid syntax",
			"Unknown command",
			"Server error",
		},
		ArtifactPattern:  []*regexp.Regexp{interact.EditMarker},
		ReadOnlyPrefixes: []string{"show ", "ping ", "test "},
		CommandTimeout:   30 * time.Second,
		ConfigTimeout:    5 * time.Minute,
		Responders: []channel.Responder{
			{Name: "y-or-n", Pattern: regexp.MustCompile(`(?i)\(y or n\)\s*\??\s*$`), Reply: "y\n"},
		},
	}
}

// New 创建驱动
func New() *Plugin {
	return &Plugin{BaseDriver: netdev.BaseDriver{P: Profile()}}
}

func init() {
	interact.Register("paloalto_panos", New(), "paloalto", "panos")
}
