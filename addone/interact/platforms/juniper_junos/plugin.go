package juniper_junos

import (
	"regexp"
	"time"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/channel"
)

// Plugin Juniper Junos：configure / commit，提交即持久化
type Plugin struct {
	netdev.BaseDriver
}

var clusterMarker = regexp.MustCompile(`^\{(master|backup|primary|secondary)(:\d+)?\}\s*$`)

// Profile Junos 平台数据
func Profile() *netdev.Profile {
	return &netdev.Profile{
		Name:          "juniper_junos",
		Terminators:   []string{">", "#", "%"},
		GenericPrompt: true,
		DisablePaging: []string{"set cli screen-length 0"},
		SetupCommands: []string{
			"set cli screen-width 511",
			"set cli complete-on-space off",
		},
		PrivilegedSuffix:  "",
		HasConfigMode:     true,
		ConfigCommand:     "configure",
		ExitConfigCommand: "exit configuration-mode",
		ConfigPrompt:      regexp.MustCompile(`#\s*$`),
		HasTwoPhaseCommit: true,
		CommitCommand:     "commit",
		CommitSuccess:     []string{"commit complete"},
		CommitErrors:      []string{"error:", "commit failed", "configuration check-out failed"},
		AbortCommand:      "rollback 0",
		SaveMode:          netdev.SaveOnCommit,
		RunningConfig:     "show configuration | display set | no-more",
		RebootCommand:     "request system reboot",
		ExitCommand:       "exit",
		ErrorPatterns: []string{
			"unknown command",
			"syntax error",
			"error:",
			"missing argument",
			"invalid value",
		},
		ArtifactPattern:  []*regexp.Regexp{interact.CaretLine, interact.EditMarker, clusterMarker},
		ReadOnlyPrefixes: []string{"show ", "ping ", "traceroute "},
		CommandTimeout:   30 * time.Second,
		ConfigTimeout:    3 * time.Minute,
		Responders: []channel.Responder{
			{Name: "yes-no", Pattern: regexp.MustCompile(`(?i)\[yes,no\]\s*(\(no\))?\s*$`), Reply: "yes\n"},
			{Name: "exit-uncommitted", Pattern: regexp.MustCompile(`(?i)exit with uncommitted changes\?.*$`), Reply: "yes\n"},
		},
	}
}

// New 创建驱动
func New() *Plugin {
	return &Plugin{BaseDriver: netdev.BaseDriver{P: Profile()}}
}

func init() {
	interact.Register("juniper_junos", New(), "juniper", "junos", "juniper_srx", "srx")
}
