package interact

import (
	"context"
	"strings"
	"time"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/errs"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/logger"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/ssh"
)

// Operation 对外开放的操作集合
type Operation string

const (
	OpSendCommand      Operation = "send-command"
	OpSendConfig       Operation = "send-config"
	OpGetRunningConfig Operation = "get-running-config"
	OpSaveConfig       Operation = "save-config"
	OpReboot           Operation = "reboot"
)

// Operations 全部操作
var Operations = []Operation{OpSendCommand, OpSendConfig, OpGetRunningConfig, OpSaveConfig, OpReboot}

// ParseOperation 解析操作名
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	for _, o := range Operations {
		if o == op {
			return op, nil
		}
	}
	return "", errs.New(errs.KindUnsupportedOperation, "unknown operation %q", s)
}

// Request 一次调用：操作 + 命令或配置行
type Request struct {
	Operation   Operation `json:"operation" yaml:"operation"`
	Command     string    `json:"command,omitempty" yaml:"command,omitempty"`
	ConfigLines []string  `json:"configLines,omitempty" yaml:"config_lines,omitempty"`
}

// OverrideSource 平台覆盖项来源（配置文件、数据库）
type OverrideSource interface {
	Override(deviceType string) *netdev.Override
}

// OverrideFunc 函数适配器
type OverrideFunc func(deviceType string) *netdev.Override

// Override 实现 OverrideSource
func (f OverrideFunc) Override(deviceType string) *netdev.Override { return f(deviceType) }

// ChainOverrides 依次查询，返回第一个非空覆盖项；靠前的来源优先
func ChainOverrides(sources ...OverrideSource) OverrideSource {
	return OverrideFunc(func(deviceType string) *netdev.Override {
		for _, src := range sources {
			if src == nil {
				continue
			}
			if o := src.Override(deviceType); o != nil {
				return o
			}
		}
		return nil
	})
}

// Config Dispatcher 参数
type Config struct {
	Pool         *netdev.Pool
	Dialer       netdev.Dialer
	Overrides    OverrideSource
	SettleDelay  time.Duration
	DecodeLegacy bool
	Pty          ssh.PtyOptions
}

// Dispatcher 按设备类型选择驱动并执行完整的连接-操作-断开流程
type Dispatcher struct {
	cfg Config
}

// NewDispatcher 创建调度器；Dialer 为空时使用 SSH
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.Dialer == nil {
		cfg.Dialer = &netdev.SSHDialer{}
	}
	return &Dispatcher{cfg: cfg}
}

// Pool 调度器持有的连接池，可能为 nil
func (d *Dispatcher) Pool() *netdev.Pool { return d.cfg.Pool }

// New 为 creds 构造连接但不建立会话
func (d *Dispatcher) New(creds netdev.Credentials) (*netdev.Connection, error) {
	driver, err := Lookup(creds.DeviceType)
	if err != nil {
		return nil, err
	}
	var override *netdev.Override
	if d.cfg.Overrides != nil {
		override = d.cfg.Overrides.Override(driver.Name())
	}
	return netdev.NewConnection(creds, driver, netdev.Options{
		Dialer:       d.cfg.Dialer,
		Pool:         d.cfg.Pool,
		Override:     override,
		SettleDelay:  d.cfg.SettleDelay,
		DecodeLegacy: d.cfg.DecodeLegacy,
		Pty:          d.cfg.Pty,
	}), nil
}

// Execute 连接、执行、断开。总是返回结果，错误同时体现在结果与返回值中。
func (d *Dispatcher) Execute(ctx context.Context, creds netdev.Credentials, req Request) (netdev.CommandResult, error) {
	label := requestLabel(req)
	if err := validateRequest(req); err != nil {
		return netdev.Failed(label, "", err), err
	}
	conn, err := d.New(creds)
	if err != nil {
		return netdev.Failed(label, "", err), err
	}
	started := time.Now()
	if err := conn.Connect(ctx); err != nil {
		logger.Warn("dispatcher: connect failed", "host", creds.Host, "device_type", creds.DeviceType, "error", err)
		return netdev.Failed(label, "", err), err
	}
	defer func() {
		if err := conn.Disconnect(context.Background()); err != nil {
			logger.Debug("dispatcher: disconnect", "host", creds.Host, "error", err)
		}
	}()

	var res netdev.CommandResult
	switch req.Operation {
	case OpSendCommand:
		res, err = conn.SendCommand(ctx, req.Command)
	case OpSendConfig:
		res, err = conn.SendConfig(ctx, req.ConfigLines)
	case OpGetRunningConfig:
		res, err = conn.GetCurrentConfig(ctx)
	case OpSaveConfig:
		res, err = conn.SaveConfig(ctx)
	case OpReboot:
		res, err = conn.RebootDevice(ctx)
	}
	logger.Info("dispatcher: operation finished",
		"host", creds.Host,
		"device_type", conn.Driver().Name(),
		"operation", string(req.Operation),
		"success", res.Success,
		"elapsed", time.Since(started).String(),
	)
	return res, err
}

func validateRequest(req Request) error {
	switch req.Operation {
	case OpSendCommand:
		if strings.TrimSpace(req.Command) == "" {
			return errs.New(errs.KindConfigurationError, "command is required")
		}
	case OpSendConfig:
		if len(req.ConfigLines) == 0 {
			return errs.New(errs.KindConfigurationError, "config lines are required")
		}
	case OpGetRunningConfig, OpSaveConfig, OpReboot:
	default:
		_, err := ParseOperation(string(req.Operation))
		return err
	}
	return nil
}

func requestLabel(req Request) string {
	switch req.Operation {
	case OpSendCommand:
		return req.Command
	case OpSendConfig:
		return strings.Join(req.ConfigLines, "\n")
	}
	return string(req.Operation)
}
