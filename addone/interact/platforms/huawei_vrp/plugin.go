package huawei_vrp

import (
	"regexp"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
)

// Plugin 华为 VRP（S 系列交换机、AR 路由器）
type Plugin struct {
	netdev.BaseDriver
}

// 华为错误提示
var errorPatterns = []string{
	"Error:",
	"Unrecognized command",
	"Incomplete command",
	"Wrong parameter",
	"Too many parameters",
	"Ambiguous command",
}

// Profile VRP 平台数据
func Profile() *netdev.Profile {
	p := interact.BracketStyle("huawei_vrp")
	p.DisablePaging = []string{"screen-length 0 temporary"}
	p.ErrorPatterns = append([]string(nil), errorPatterns...)
	return p
}

// ProfileV8 VRPv8（CE 系列）：候选配置需 commit，[~HUAWEI] / [*HUAWEI] 提示符
func ProfileV8() *netdev.Profile {
	p := Profile()
	p.Name = "huawei_vrpv8"
	p.ConfigPrompt = regexp.MustCompile(`^\[[~*]?.*\]$`)
	p.HasTwoPhaseCommit = true
	p.CommitCommand = "commit"
	p.CommitErrors = []string{"Error:", "Failed to commit"}
	// abort 丢弃候选配置并回到用户视图
	p.AbortCommand = "abort"
	return p
}

// New 创建 VRP 驱动
func New() *Plugin {
	return &Plugin{BaseDriver: netdev.BaseDriver{P: Profile()}}
}

// NewV8 创建 VRPv8 驱动
func NewV8() *Plugin {
	return &Plugin{BaseDriver: netdev.BaseDriver{P: ProfileV8()}}
}

func init() {
	interact.Register("huawei_vrp", New(), "huawei", "huawei_s", "huawei_vrpv5")
	interact.Register("huawei_vrpv8", NewV8(), "huawei_ce")
}
