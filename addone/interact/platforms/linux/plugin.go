package linux

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/errs"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/logger"
)

// 会话标志与事实
const (
	FlagShellMode = "inShellMode"
	FactUname     = "uname"
)

// Plugin Linux 主机：命令走 exec 通道，按退出码判断成败；交互 Shell 仅用于学习提示符
type Plugin struct {
	netdev.BaseDriver
}

// Profile Linux 平台数据
func Profile() *netdev.Profile {
	return &netdev.Profile{
		Name:             "linux",
		Terminators:      []string{"$", "#"},
		GenericPrompt:    true,
		SaveMode:         netdev.SaveUnsupported,
		RebootCommand:    "sudo -n reboot",
		ExitCommand:      "exit",
		UsesExecChannel:  true,
		ReadOnlyPrefixes: []string{"cat ", "ls", "ip ", "uname", "df", "free", "uptime", "hostname"},
		CommandTimeout:   30 * time.Second,
		ConfigTimeout:    2 * time.Minute,
	}
}

// New 创建驱动
func New() *Plugin {
	return &Plugin{BaseDriver: netdev.BaseDriver{P: Profile()}}
}

// PrepareSession Shell 提示符学习与 uname 探测并行进行，二者使用不同通道
func (d *Plugin) PrepareSession(ctx context.Context, c *netdev.Connection) error {
	g, gctx := errgroup.WithContext(ctx)
	if c.HasShell() {
		g.Go(func() error {
			_, err := c.DiscoverPrompt(gctx)
			return err
		})
	}
	g.Go(func() error {
		res, err := c.Exec(gctx, "uname -a")
		if err != nil {
			logger.Warn("linux: uname probe failed", "host", c.Credentials().Host, "error", err)
			return nil
		}
		if res.ExitCode == 0 {
			c.SetFact(FactUname, strings.TrimSpace(res.Stdout))
		}
		return nil
	})
	err := g.Wait()
	c.SetFlag(FlagShellMode, c.HasShell())
	return err
}

// DisablePaging exec 通道无分页
func (d *Plugin) DisablePaging(context.Context, *netdev.Connection) error { return nil }

// RunCommand 经 exec 通道执行，非零退出码视为命令被拒绝
func (d *Plugin) RunCommand(ctx context.Context, c *netdev.Connection, command string) (string, error) {
	res, err := c.Exec(ctx, command)
	if err != nil {
		return "", err
	}
	out := strings.TrimRight(res.Stdout, "\n")
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = out
		}
		return out, errs.New(errs.KindCommandRejected, "exit status %d: %s", res.ExitCode, msg)
	}
	return out, nil
}

// RunningConfig Linux 没有运行配置
func (d *Plugin) RunningConfig(context.Context, *netdev.Connection) (string, error) {
	return "", errs.New(errs.KindUnsupportedOperation, "running configuration is not available on linux")
}

// Reboot 经 exec 通道重启，通道随即断开属于预期
func (d *Plugin) Reboot(ctx context.Context, c *netdev.Connection) (string, error) {
	out, err := d.RunCommand(ctx, c, c.Profile().RebootCommand)
	if err != nil && errs.KindOf(err) == errs.KindChannelUnavailable {
		logger.Debug("linux: host dropped session after reboot", "host", c.Credentials().Host)
		return out, nil
	}
	return out, err
}

func init() {
	interact.Register("linux", New(), "ubuntu", "centos", "debian", "rhel")
}
