package vyos

import (
	"context"
	"regexp"
	"time"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
)

// Plugin VyOS：save 只能在配置模式下执行
type Plugin struct {
	netdev.BaseDriver
}

// Profile VyOS 平台数据
func Profile() *netdev.Profile {
	return &netdev.Profile{
		Name:              "vyos",
		Terminators:       []string{"$", "#"},
		GenericPrompt:     true,
		DisablePaging:     []string{"set terminal length 0"},
		SetupCommands:     []string{"set terminal width 512"},
		HasConfigMode:     true,
		ConfigCommand:     "configure",
		ExitConfigCommand: "exit",
		ConfigPrompt:      regexp.MustCompile(`#\s*$`),
		HasTwoPhaseCommit: true,
		CommitCommand:     "commit",
		CommitErrors:      []string{"Commit failed", "failed"},
		// 丢弃修改并退出配置模式
		AbortCommand:  "exit discard",
		SaveMode:      netdev.SaveCommand,
		SaveCommand:   "save",
		SaveSuccess:   []string{"Done"},
		RunningConfig: "show configuration commands",
		RebootCommand: "reboot",
		ExitCommand:   "exit",
		ErrorPatterns: []string{
			"Invalid command",
			"Set failed",
			"Delete failed",
			"is not valid",
		},
		ArtifactPattern:  []*regexp.Regexp{interact.EditMarker},
		ReadOnlyPrefixes: []string{"show ", "ping ", "traceroute "},
		CommandTimeout:   30 * time.Second,
		ConfigTimeout:    2 * time.Minute,
	}
}

// New 创建驱动
func New() *Plugin {
	return &Plugin{BaseDriver: netdev.BaseDriver{P: Profile()}}
}

// SaveConfig 进入配置模式执行 save 后退出
func (d *Plugin) SaveConfig(ctx context.Context, c *netdev.Connection) (string, error) {
	drv := c.Driver()
	if err := drv.EnterConfig(ctx, c); err != nil {
		return "", err
	}
	out, err := d.BaseDriver.SaveConfig(ctx, c)
	if exitErr := drv.ExitConfig(ctx, c); err == nil {
		err = exitErr
	}
	return out, err
}

func init() {
	interact.Register("vyos", New(), "vyatta")
}
