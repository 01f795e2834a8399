package interact

import (
	"regexp"
	"time"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
)

var (
	// PasswordPrompt enable/super 的密码提示
	PasswordPrompt = regexp.MustCompile(`(?i)password:\s*$`)
	// CaretLine 错误提示中指向出错位置的 ^ 行
	CaretLine = regexp.MustCompile(`^\s*\^\s*$`)
	// EditMarker Junos/VyOS/PAN-OS 配置模式下的 [edit] 行
	EditMarker = regexp.MustCompile(`^\[edit.*\]\s*$`)
)

// CiscoStyle IOS 风格 CLI 的公共数据：enable、configure terminal、end、write memory
func CiscoStyle(name string) *netdev.Profile {
	return &netdev.Profile{
		Name:              name,
		Terminators:       []string{"#", ">"},
		GenericPrompt:     true,
		DisablePaging:     []string{"terminal length 0"},
		SetupCommands:     []string{"terminal width 511"},
		HasPrivilegedMode: true,
		EnableCommand:     "enable",
		PrivilegedSuffix:  "#",
		EnablePrompt:      PasswordPrompt,
		HasConfigMode:     true,
		ConfigCommand:     "configure terminal",
		ExitConfigCommand: "end",
		ConfigPrompt:      regexp.MustCompile(`\(config[^)]*\)#\s*$`),
		SaveMode:          netdev.SaveCommand,
		SaveCommand:       "write memory",
		RunningConfig:     "show running-config",
		RebootCommand:     "reload",
		ExitCommand:       "exit",
		ErrorPatterns: []string{
			"% Invalid input",
			"% Incomplete command",
			"% Ambiguous command",
			"% Unknown command",
			"% Bad secrets",
		},
		ArtifactPattern:  []*regexp.Regexp{CaretLine},
		ReadOnlyPrefixes: []string{"show ", "ping ", "traceroute "},
		CommandTimeout:   30 * time.Second,
		ConfigTimeout:    2 * time.Minute,
	}
}

// BracketStyle 华为/华三风格：<host> 用户视图，[host] 系统视图，save 保存
func BracketStyle(name string) *netdev.Profile {
	return &netdev.Profile{
		Name:              name,
		Terminators:       []string{">", "]"},
		GenericPrompt:     true,
		HasConfigMode:     true,
		ConfigCommand:     "system-view",
		ExitConfigCommand: "return",
		ConfigPrompt:      regexp.MustCompile(`^\[.*\]$`),
		SaveMode:          netdev.SaveCommand,
		SaveCommand:       "save",
		SaveSuccess:       []string{"successfully"},
		RunningConfig:     "display current-configuration",
		RebootCommand:     "reboot",
		ExitCommand:       "quit",
		ArtifactPattern:   []*regexp.Regexp{CaretLine},
		ReadOnlyPrefixes:  []string{"display ", "ping ", "tracert "},
		CommandTimeout:    30 * time.Second,
		ConfigTimeout:     2 * time.Minute,
	}
}
