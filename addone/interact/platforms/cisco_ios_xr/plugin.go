package cisco_ios_xr

import (
	"regexp"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/channel"
)

// Plugin IOS-XR：无 enable，配置需 commit，提交即持久化
type Plugin struct {
	netdev.BaseDriver
}

// show 命令输出前的时间戳行，如 "Mon Mar  4 10:15:42.123 UTC"
var timestampLine = regexp.MustCompile(`^\w{3}\s+\w{3}\s+\d+\s+\d+:\d+:\d+(\.\d+)?\s+\w+$`)

// Profile XR 平台数据
func Profile() *netdev.Profile {
	p := interact.CiscoStyle("cisco_ios_xr")
	p.Terminators = []string{"#"}
	p.HasPrivilegedMode = false
	p.EnablePrompt = nil
	p.HasTwoPhaseCommit = true
	p.CommitCommand = "commit"
	p.CommitErrors = []string{"% Failed to commit", "% Commit failed"}
	p.AbortCommand = "abort"
	p.SaveMode = netdev.SaveOnCommit
	p.SaveCommand = ""
	p.ArtifactPattern = append(p.ArtifactPattern, timestampLine)
	p.Responders = []channel.Responder{
		// 退出时仍有未提交修改：不提交
		{Name: "uncommitted", Pattern: regexp.MustCompile(`(?i)uncommitted changes found.*\[cancel\]:\s*$`), Reply: "no\n"},
	}
	return p
}

// New 创建驱动
func New() *Plugin {
	return &Plugin{BaseDriver: netdev.BaseDriver{P: Profile()}}
}

func init() {
	interact.Register("cisco_ios_xr", New(), "cisco_xr")
}
