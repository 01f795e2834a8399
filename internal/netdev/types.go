// Package netdev 实现网络设备会话引擎：连接状态机、厂商驱动接口与连接池
package netdev

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/errs"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/ssh"
)

// 默认超时
const (
	DefaultConnectTimeout = 20 * time.Second
	DefaultCommandTimeout = 30 * time.Second
	// 请求开启保活但未配置间隔时使用
	DefaultKeepAliveInterval = 30 * time.Second
)

// Timeout 请求中的超时值：数字按秒计，字符串按 Go duration 解析（如 "1m30s"）
type Timeout time.Duration

// Seconds 把秒数转换为 Timeout
func Seconds(n float64) Timeout {
	return Timeout(n * float64(time.Second))
}

// Duration 转换为 time.Duration
func (t Timeout) Duration() time.Duration { return time.Duration(t) }

func (t Timeout) String() string { return time.Duration(t).String() }

// MarshalJSON 输出为秒数
func (t Timeout) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(t).Seconds())
}

// UnmarshalJSON 接受秒数或 duration 字符串
func (t *Timeout) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		return t.setSeconds(n)
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("timeout must be seconds or a duration string: %s", data)
	}
	return t.parse(str)
}

// UnmarshalYAML 与 JSON 规则一致
func (t *Timeout) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: timeout must be a scalar", node.Line)
	}
	switch node.ShortTag() {
	case "!!int", "!!float":
		n, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		return t.setSeconds(n)
	case "!!null":
		return nil
	}
	return t.parse(node.Value)
}

func (t *Timeout) setSeconds(n float64) error {
	if n < 0 {
		return fmt.Errorf("timeout must not be negative: %v", n)
	}
	*t = Seconds(n)
	return nil
}

func (t *Timeout) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*t = 0
		return nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return t.setSeconds(n)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid timeout %q: %w", s, err)
	}
	if d < 0 {
		return fmt.Errorf("timeout must not be negative: %s", s)
	}
	*t = Timeout(d)
	return nil
}

// JumpHost 跳板机参数
type JumpHost struct {
	Host       string `json:"host" yaml:"host"`
	Port       int    `json:"port" yaml:"port"`
	Username   string `json:"username" yaml:"username"`
	AuthMethod string `json:"authMethod" yaml:"auth_method"`
	Password   string `json:"password,omitempty" yaml:"password"`
	PrivateKey string `json:"privateKey,omitempty" yaml:"private_key"`
	Passphrase string `json:"passphrase,omitempty" yaml:"passphrase"`
}

// Credentials 设备连接参数，构造 Connection 时按值复制
type Credentials struct {
	Host           string  `json:"host" yaml:"host"`
	Port           int     `json:"port" yaml:"port"`
	Username       string  `json:"username" yaml:"username"`
	AuthMethod     string  `json:"authMethod" yaml:"auth_method"`
	Password       string  `json:"password,omitempty" yaml:"password"`
	PrivateKey     string  `json:"privateKey,omitempty" yaml:"private_key"`
	Passphrase     string  `json:"passphrase,omitempty" yaml:"passphrase"`
	EnablePassword string  `json:"enablePassword,omitempty" yaml:"enable_password"`
	DeviceType     string  `json:"deviceType" yaml:"device_type"`
	ConnectTimeout Timeout `json:"connectTimeout" yaml:"connect_timeout"`
	CommandTimeout Timeout `json:"commandTimeout" yaml:"command_timeout"`
	KeepAlive      bool    `json:"keepAlive" yaml:"keep_alive"`
	// 保活间隔，取自 ssh 配置段，不随请求传入
	KeepAliveInterval time.Duration `json:"-" yaml:"-"`
	// 只读命令超时/空输出视为成功，需显式开启
	FastMode bool `json:"fastMode" yaml:"fast_mode"`
	Pooled   bool `json:"pooled" yaml:"pooled"`
	// 厂商配置上下文，如 FortiGate VDOM
	Context  string    `json:"context,omitempty" yaml:"context"`
	JumpHost *JumpHost `json:"jumpHost,omitempty" yaml:"jump_host"`
}

// Address host:port
func (c Credentials) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.port()))
}

func (c Credentials) port() int {
	if c.Port == 0 {
		return 22
	}
	return c.Port
}

// PoolKey 连接池键 host:port:username
func (c Credentials) PoolKey() string {
	return fmt.Sprintf("%s:%d:%s", c.Host, c.port(), c.Username)
}

// Secret enable 密码，未设置时复用登录密码
func (c Credentials) Secret() string {
	if c.EnablePassword != "" {
		return c.EnablePassword
	}
	return c.Password
}

func (c Credentials) connectTimeout() time.Duration {
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout.Duration()
	}
	return DefaultConnectTimeout
}

func (c Credentials) commandTimeout() time.Duration {
	if c.CommandTimeout > 0 {
		return c.CommandTimeout.Duration()
	}
	return DefaultCommandTimeout
}

func (c Credentials) keepAliveInterval() time.Duration {
	if !c.KeepAlive {
		return 0
	}
	if c.KeepAliveInterval > 0 {
		return c.KeepAliveInterval
	}
	return DefaultKeepAliveInterval
}

// Validate 基本参数校验
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return errs.New(errs.KindConfigurationError, "host is required")
	}
	if strings.TrimSpace(c.Username) == "" {
		return errs.New(errs.KindConfigurationError, "username is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return errs.New(errs.KindConfigurationError, "invalid port %d", c.Port)
	}
	switch c.AuthMethod {
	case "", ssh.AuthPassword:
	case ssh.AuthPrivateKey:
		if strings.TrimSpace(c.PrivateKey) == "" {
			return errs.New(errs.KindInvalidKey, "private key is required for privateKey auth")
		}
	default:
		return errs.New(errs.KindConfigurationError, "unknown auth method %q", c.AuthMethod)
	}
	if c.JumpHost != nil && strings.TrimSpace(c.JumpHost.Host) == "" {
		return errs.New(errs.KindConfigurationError, "jump host address is required")
	}
	return nil
}

// Endpoint 转换为传输层参数
func (c Credentials) Endpoint() ssh.Endpoint {
	return ssh.Endpoint{
		Host:     c.Host,
		Port:     c.port(),
		Username: c.Username,
		Auth:     ssh.Auth{Method: c.AuthMethod, Password: c.Password, PrivateKey: c.PrivateKey, Passphrase: c.Passphrase},
		Timeout:  c.connectTimeout(),
	}
}

// JumpEndpoint 跳板机传输层参数
func (c Credentials) JumpEndpoint() (ssh.Endpoint, bool) {
	j := c.JumpHost
	if j == nil {
		return ssh.Endpoint{}, false
	}
	port := j.Port
	if port == 0 {
		port = 22
	}
	return ssh.Endpoint{
		Host:     j.Host,
		Port:     port,
		Username: j.Username,
		Auth:     ssh.Auth{Method: j.AuthMethod, Password: j.Password, PrivateKey: j.PrivateKey, Passphrase: j.Passphrase},
		Timeout:  c.connectTimeout(),
	}, true
}

// CommandResult 单次操作结果，创建后不再修改
type CommandResult struct {
	Command string `json:"command" yaml:"command"`
	Output  string `json:"output" yaml:"output"`
	Success bool   `json:"success" yaml:"success"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
	// 错误类别，便于上层映射状态码
	Kind errs.Kind `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// Succeeded 成功结果
func Succeeded(command, output string) CommandResult {
	return CommandResult{Command: command, Output: output, Success: true}
}

// Failed 失败结果，保留已取得的输出
func Failed(command, output string, err error) CommandResult {
	r := CommandResult{Command: command, Output: output}
	if err != nil {
		r.Error = err.Error()
		r.Kind = errs.KindOf(err)
	}
	return r
}
