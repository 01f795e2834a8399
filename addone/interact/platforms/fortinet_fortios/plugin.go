package fortinet_fortios

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/errs"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/logger"
)

// 会话标志
const (
	// 设备开启了多 VDOM
	FlagVDOM = "vdom"
	// 已进入凭据指定的 VDOM
	FlagVDOMContext = "vdom-context"
)

var (
	vdomEnabled = regexp.MustCompile(`(?mi)^Virtual domain configuration:\s*(enable|multiple)`)
	versionLine = regexp.MustCompile(`(?mi)^Version:\s*(.+)$`)
)

// Plugin FortiGate FortiOS：无独立配置模式，配置块即时生效
type Plugin struct {
	netdev.BaseDriver
}

// Profile FortiOS 平台数据
func Profile() *netdev.Profile {
	return &netdev.Profile{
		Name:          "fortinet_fortios",
		Terminators:   []string{"#", "$"},
		GenericPrompt: true,
		SaveMode:      netdev.SaveOnCommit,
		RunningConfig: "show",
		RebootCommand: "execute reboot",
		ExitCommand:   "exit",
		ErrorPatterns: []string{
			"Command fail",
			"Unknown action",
			"command parse error",
			"entry not found",
			"value parse error",
		},
		ReadOnlyPrefixes: []string{"get ", "show ", "diagnose ", "execute ping "},
		CommandTimeout:   30 * time.Second,
		ConfigTimeout:    2 * time.Minute,
	}
}

// New 创建驱动
func New() *Plugin {
	return &Plugin{BaseDriver: netdev.BaseDriver{P: Profile()}}
}

// PrepareSession 学习提示符、按 VDOM 模式关闭分页，指定了 VDOM 时进入该 VDOM
func (d *Plugin) PrepareSession(ctx context.Context, c *netdev.Connection) error {
	if _, err := c.DiscoverPrompt(ctx); err != nil {
		return err
	}
	if err := c.Driver().DisablePaging(ctx, c); err != nil {
		return err
	}
	return d.enterVDOM(ctx, c)
}

// DisablePaging 先读系统状态判断是否多 VDOM；多 VDOM 时控制台设置位于 config global 下
func (d *Plugin) DisablePaging(ctx context.Context, c *netdev.Connection) error {
	out, err := c.Exchange(ctx, "get system status", netdev.ExchangeOptions{})
	if err != nil {
		return err
	}
	if m := versionLine.FindStringSubmatch(out); m != nil {
		c.SetFact("version", strings.TrimSpace(m[1]))
	}
	vdom := vdomEnabled.MatchString(out)
	c.SetFlag(FlagVDOM, vdom)
	return c.RunSetup(ctx, pagingCommands(vdom))
}

func pagingCommands(vdom bool) []string {
	console := []string{"config system console", "set output standard", "end"}
	if !vdom {
		return console
	}
	return append(append([]string{"config global"}, console...), "end")
}

func (d *Plugin) enterVDOM(ctx context.Context, c *netdev.Connection) error {
	name := c.Credentials().Context
	if name == "" || c.Flag(FlagVDOMContext) {
		return nil
	}
	if !c.Flag(FlagVDOM) {
		logger.Warn("fortios: vdom requested but device is not in multi-vdom mode", "host", c.Credentials().Host, "vdom", name)
		return nil
	}
	for _, cmd := range []string{"config vdom", "edit " + name} {
		out, err := c.Exchange(ctx, cmd, netdev.ExchangeOptions{})
		if err != nil {
			return err
		}
		if line, bad := c.Profile().FindError(out); bad {
			return errs.New(errs.KindConfigurationError, "enter vdom %s: %s", name, line)
		}
	}
	c.SetFlag(FlagVDOMContext, true)
	return nil
}

func init() {
	interact.Register("fortinet_fortios", New(), "fortinet", "fortigate", "fortios")
}
