package cisco_asa

import (
	"context"
	"regexp"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/channel"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/errs"
)

const contextFlag = "context"

// Plugin Cisco ASA。分页命令需在特权模式下执行，多上下文设备进入特权后切换到指定 context。
type Plugin struct {
	netdev.BaseDriver
}

// Profile ASA 平台数据
func Profile() *netdev.Profile {
	p := interact.CiscoStyle("cisco_asa")
	p.DisablePaging = []string{"terminal pager 0"}
	p.SetupCommands = nil
	p.ErrorPatterns = append(p.ErrorPatterns, "ERROR:")
	p.Responders = []channel.Responder{
		// 首次进入配置模式时的匿名上报询问
		{Name: "call-home", Pattern: regexp.MustCompile(`(?i)\[Y\]es, \[N\]o, \[A\]sk later:\s*$`), Reply: "N\n"},
	}
	return p
}

// New 创建驱动
func New() *Plugin {
	return &Plugin{BaseDriver: netdev.BaseDriver{P: Profile()}}
}

// PrepareSession 只学习提示符，分页留到进入特权模式后
func (d *Plugin) PrepareSession(ctx context.Context, c *netdev.Connection) error {
	_, err := c.DiscoverPrompt(ctx)
	return err
}

// EnterPrivileged enable 后关闭分页并切换 context
func (d *Plugin) EnterPrivileged(ctx context.Context, c *netdev.Connection) error {
	if err := d.BaseDriver.EnterPrivileged(ctx, c); err != nil {
		return err
	}
	if err := c.Driver().DisablePaging(ctx, c); err != nil {
		return err
	}
	name := c.Credentials().Context
	if name == "" || c.Flag(contextFlag) {
		return nil
	}
	out, err := c.Exchange(ctx, "changeto context "+name, netdev.ExchangeOptions{})
	if err != nil {
		return err
	}
	if line, bad := c.Profile().FindError(out); bad {
		return errs.New(errs.KindConfigurationError, "changeto context %s: %s", name, line)
	}
	c.SetFlag(contextFlag, true)
	return nil
}

func init() {
	interact.Register("cisco_asa", New(), "asa")
}
