package interact

import (
	"time"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
)

// GenericType 通用设备类型
const GenericType = "generic"

// CommonErrors 多数平台通用的错误提示
var CommonErrors = []string{
	"invalid command",
	"invalid input",
	"unknown command",
	"unrecognized command",
	"syntax error",
	"permission denied",
	"command not found",
}

// GenericProfile 未知平台：通用提示符形态，无模式切换，不支持保存
func GenericProfile() *netdev.Profile {
	return &netdev.Profile{
		Name:             GenericType,
		Terminators:      []string{">", "#", "$", "%", "]"},
		GenericPrompt:    true,
		SaveMode:         netdev.SaveUnsupported,
		RunningConfig:    "show running-config",
		ExitCommand:      "exit",
		ErrorPatterns:    append([]string(nil), CommonErrors...),
		ReadOnlyPrefixes: []string{"show ", "display ", "get "},
		CommandTimeout:   30 * time.Second,
	}
}

// Generic 通用驱动，全部使用 BaseDriver 的默认行为
type Generic struct {
	netdev.BaseDriver
}

// NewGeneric 创建通用驱动
func NewGeneric() *Generic {
	return &Generic{BaseDriver: netdev.BaseDriver{P: GenericProfile()}}
}
