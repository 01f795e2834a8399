package netdev

import (
	"context"
	"strings"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/channel"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/errs"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/logger"
)

// Driver 厂商驱动。Connection 负责编排与状态迁移，驱动只描述每一步在该平台上如何完成。
// 方法调用时 Connection 已持有会话锁。
type Driver interface {
	Name() string
	Profile() *Profile
	PrepareSession(ctx context.Context, c *Connection) error
	DisablePaging(ctx context.Context, c *Connection) error
	EnterPrivileged(ctx context.Context, c *Connection) error
	EnterConfig(ctx context.Context, c *Connection) error
	ExitConfig(ctx context.Context, c *Connection) error
	Commit(ctx context.Context, c *Connection) (string, error)
	Abort(ctx context.Context, c *Connection) error
	SaveConfig(ctx context.Context, c *Connection) (string, error)
	Reboot(ctx context.Context, c *Connection) (string, error)
	RunCommand(ctx context.Context, c *Connection, command string) (string, error)
	RunningConfig(ctx context.Context, c *Connection) (string, error)
	Sanitize(c *Connection, output, command string) string
}

// BaseDriver 由 Profile 数据驱动的默认实现，厂商驱动嵌入后按需覆盖。
// 内部经 c.Driver() 回调，使厂商覆盖的 Sanitize、DisablePaging 生效。
type BaseDriver struct {
	P *Profile
}

// Name 平台名
func (b *BaseDriver) Name() string { return b.P.Name }

// Profile 注册时的原型数据
func (b *BaseDriver) Profile() *Profile { return b.P }

// PrepareSession 学习提示符后关闭分页
func (b *BaseDriver) PrepareSession(ctx context.Context, c *Connection) error {
	if _, err := c.DiscoverPrompt(ctx); err != nil {
		return err
	}
	return c.Driver().DisablePaging(ctx, c)
}

// DisablePaging 关闭分页与终端宽度等设置命令彼此独立，流水线发送后统一等待。
// 快速模式只发送分页命令。
func (b *BaseDriver) DisablePaging(ctx context.Context, c *Connection) error {
	p := c.Profile()
	setup := append([]string(nil), p.DisablePaging...)
	if !c.Credentials().FastMode {
		setup = append(setup, p.SetupCommands...)
	}
	return c.RunSetup(ctx, setup)
}

// EnterPrivileged 执行 enable，遇到密码提示时应答 enable 密码
func (b *BaseDriver) EnterPrivileged(ctx context.Context, c *Connection) error {
	p := c.Profile()
	if !p.HasPrivilegedMode || c.InPrivilegedMode() {
		return nil
	}
	cmd := p.EnableCommand
	if cmd == "" {
		cmd = "enable"
	}
	opts := ExchangeOptions{}
	if p.EnablePrompt != nil {
		opts.AlsoExpect = &channel.ExpectMatcher{Pattern: p.EnablePrompt}
	}
	out, err := c.Exchange(ctx, cmd, opts)
	if err != nil {
		return err
	}
	if p.EnablePrompt != nil && p.EnablePrompt.MatchString(channel.LastLine(out)) {
		if _, err := c.Exchange(ctx, c.Credentials().Secret(), ExchangeOptions{Hidden: true}); err != nil {
			return err
		}
	}
	if !c.InPrivilegedMode() {
		return errs.New(errs.KindAuthenticationFailed, "enable failed, prompt is %q", c.Prompt())
	}
	return nil
}

// EnterConfig 进入配置模式并校验提示符
func (b *BaseDriver) EnterConfig(ctx context.Context, c *Connection) error {
	p := c.Profile()
	if !p.HasConfigMode || c.InConfigMode() {
		return nil
	}
	out, err := c.Exchange(ctx, p.ConfigCommand, ExchangeOptions{})
	if err != nil {
		return errs.Wrap(errs.KindConfigurationError, err, "enter config mode")
	}
	if line, bad := p.FindError(out); bad {
		return errs.New(errs.KindConfigurationError, "enter config mode: %s", line)
	}
	if !c.InConfigMode() {
		return errs.New(errs.KindConfigurationError, "enter config mode: unexpected prompt %q", c.Prompt())
	}
	return nil
}

// ExitConfig 退出配置模式，应答"未提交修改"类确认
func (b *BaseDriver) ExitConfig(ctx context.Context, c *Connection) error {
	p := c.Profile()
	if !p.HasConfigMode || !c.InConfigMode() {
		return nil
	}
	if _, err := c.Exchange(ctx, p.ExitConfigCommand, ExchangeOptions{Responders: channel.ConfirmResponders()}); err != nil {
		return err
	}
	if c.InConfigMode() {
		return errs.New(errs.KindConfigurationError, "still in config mode, prompt is %q", c.Prompt())
	}
	return nil
}

// Commit 两阶段提交平台执行提交并检查结果
func (b *BaseDriver) Commit(ctx context.Context, c *Connection) (string, error) {
	p := c.Profile()
	if !p.HasTwoPhaseCommit {
		return "", nil
	}
	out, err := c.Exchange(ctx, p.CommitCommand, ExchangeOptions{Timeout: p.ConfigTimeout})
	clean := c.Driver().Sanitize(c, out, p.CommitCommand)
	if err != nil {
		return clean, errs.Wrap(errs.KindCommitFailed, err, "commit")
	}
	lower := strings.ToLower(clean)
	for _, e := range p.CommitErrors {
		if strings.Contains(lower, strings.ToLower(e)) {
			return clean, errs.New(errs.KindCommitFailed, "commit rejected: %s", firstLineContaining(clean, e))
		}
	}
	if len(p.CommitSuccess) > 0 {
		for _, ok := range p.CommitSuccess {
			if strings.Contains(lower, strings.ToLower(ok)) {
				return clean, nil
			}
		}
		return clean, errs.New(errs.KindCommitFailed, "commit did not report success")
	}
	return clean, nil
}

// Abort 丢弃未提交的候选配置
func (b *BaseDriver) Abort(ctx context.Context, c *Connection) error {
	p := c.Profile()
	if p.AbortCommand == "" || !c.InConfigMode() {
		return nil
	}
	_, err := c.Exchange(ctx, p.AbortCommand, ExchangeOptions{Responders: channel.ConfirmResponders()})
	return err
}

// SaveConfig 按平台保存语义持久化配置
func (b *BaseDriver) SaveConfig(ctx context.Context, c *Connection) (string, error) {
	p := c.Profile()
	switch p.SaveMode {
	case SaveOnCommit:
		return "configuration is persisted on commit", nil
	case SaveUnsupported:
		return "", errs.New(errs.KindUnsupportedOperation, "save configuration is not supported on %s", p.Name)
	}
	out, err := c.Exchange(ctx, p.SaveCommand, ExchangeOptions{Timeout: p.ConfigTimeout, Responders: channel.ConfirmResponders()})
	clean := c.Driver().Sanitize(c, out, p.SaveCommand)
	if err != nil {
		return clean, err
	}
	if line, bad := p.FindError(clean); bad {
		return clean, errs.New(errs.KindCommandRejected, "save failed: %s", line)
	}
	if len(p.SaveSuccess) > 0 {
		lower := strings.ToLower(clean)
		for _, ok := range p.SaveSuccess {
			if strings.Contains(lower, strings.ToLower(ok)) {
				return clean, nil
			}
		}
		return clean, errs.New(errs.KindCommandRejected, "save did not report success")
	}
	return clean, nil
}

// Reboot 发送重启命令并应答确认，不保存未保存的配置。设备随后断开连接属于预期结果。
func (b *BaseDriver) Reboot(ctx context.Context, c *Connection) (string, error) {
	p := c.Profile()
	if p.RebootCommand == "" {
		return "", errs.New(errs.KindUnsupportedOperation, "reboot is not supported on %s", p.Name)
	}
	out, err := c.Exchange(ctx, p.RebootCommand, ExchangeOptions{Timeout: p.ConfigTimeout, Responders: channel.RebootResponders()})
	clean := c.Driver().Sanitize(c, out, p.RebootCommand)
	if err != nil {
		switch errs.KindOf(err) {
		case errs.KindChannelUnavailable, errs.KindPromptTimeout:
			logger.Debug("netdev: device dropped session after reboot", "host", c.Credentials().Host, "error", err)
		default:
			return clean, err
		}
	}
	if line, bad := p.FindError(clean); bad {
		return clean, errs.New(errs.KindCommandRejected, "reboot rejected: %s", line)
	}
	return clean, nil
}

// RunCommand 在 Shell 上执行并清洗输出
func (b *BaseDriver) RunCommand(ctx context.Context, c *Connection, command string) (string, error) {
	out, err := c.Exchange(ctx, command, ExchangeOptions{})
	return c.Driver().Sanitize(c, out, command), err
}

// RunningConfig 读取运行配置
func (b *BaseDriver) RunningConfig(ctx context.Context, c *Connection) (string, error) {
	p := c.Profile()
	out, err := c.Exchange(ctx, p.RunningConfig, ExchangeOptions{Timeout: p.ConfigTimeout})
	return c.Driver().Sanitize(c, out, p.RunningConfig), err
}

// Sanitize 去掉回显、尾部提示符与厂商横幅
func (b *BaseDriver) Sanitize(c *Connection, output, command string) string {
	out := channel.StripEcho(channel.Clean(output), command)
	out = channel.StripTrailingPrompt(out, c.PromptMatcher())
	out = channel.StripPatterns(out, c.Profile().ArtifactPattern)
	return strings.Trim(out, "\n")
}

func firstLineContaining(s, sub string) string {
	for _, line := range strings.Split(s, "\n") {
		if strings.Contains(strings.ToLower(line), strings.ToLower(sub)) {
			return strings.TrimSpace(line)
		}
	}
	return sub
}
