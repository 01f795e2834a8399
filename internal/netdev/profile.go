package netdev

import (
	"regexp"
	"strings"
	"time"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/channel"
)

// SaveMode 保存配置语义
type SaveMode int

const (
	// SaveCommand 需显式执行保存命令（write memory / save）
	SaveCommand SaveMode = iota
	// SaveOnCommit 提交即持久化，保存为空操作
	SaveOnCommit
	// SaveUnsupported 平台无保存概念
	SaveUnsupported
)

// Profile 厂商行为数据。驱动以数据为主，仅在行为差异无法用数据表达时覆盖方法。
type Profile struct {
	Name string

	// 提示符
	Terminators    []string
	PromptPatterns []*regexp.Regexp
	// 不认识的提示符是否按通用形态兜底
	GenericPrompt bool

	// 会话准备：关闭分页与其他一次性设置，彼此无依赖可流水线发送
	DisablePaging []string
	SetupCommands []string

	// 特权模式
	HasPrivilegedMode bool
	EnableCommand     string
	PrivilegedSuffix  string
	EnablePrompt      *regexp.Regexp

	// 配置模式
	HasConfigMode     bool
	ConfigCommand     string
	ExitConfigCommand string
	ConfigPrompt      *regexp.Regexp

	// 两阶段提交
	HasTwoPhaseCommit bool
	CommitCommand     string
	CommitSuccess     []string
	CommitErrors      []string
	AbortCommand      string

	SaveMode        SaveMode
	SaveCommand     string
	SaveSuccess     []string
	RunningConfig   string
	RebootCommand   string
	ExitCommand     string
	ErrorPatterns   []string
	ArtifactPattern []*regexp.Regexp
	// 快速模式下允许超时即成功的只读命令前缀
	ReadOnlyPrefixes []string

	// 命令走 exec 通道（Linux）
	UsesExecChannel bool
	Newline         string

	CommandTimeout time.Duration
	ConfigTimeout  time.Duration
	Debounce       time.Duration
	// 额外的自动应答
	Responders []channel.Responder
}

// Clone 深拷贝切片字段，覆盖配置时不影响注册的原型
func (p *Profile) Clone() *Profile {
	c := *p
	c.Terminators = append([]string(nil), p.Terminators...)
	c.PromptPatterns = append([]*regexp.Regexp(nil), p.PromptPatterns...)
	c.DisablePaging = append([]string(nil), p.DisablePaging...)
	c.SetupCommands = append([]string(nil), p.SetupCommands...)
	c.CommitSuccess = append([]string(nil), p.CommitSuccess...)
	c.CommitErrors = append([]string(nil), p.CommitErrors...)
	c.SaveSuccess = append([]string(nil), p.SaveSuccess...)
	c.ErrorPatterns = append([]string(nil), p.ErrorPatterns...)
	c.ArtifactPattern = append([]*regexp.Regexp(nil), p.ArtifactPattern...)
	c.ReadOnlyPrefixes = append([]string(nil), p.ReadOnlyPrefixes...)
	c.Responders = append([]channel.Responder(nil), p.Responders...)
	return &c
}

func (p *Profile) newline() string {
	if p.Newline != "" {
		return p.Newline
	}
	return "\n"
}

// IsReadOnly 命令是否属于只读前缀
func (p *Profile) IsReadOnly(command string) bool {
	cmd := strings.ToLower(strings.TrimSpace(command))
	for _, prefix := range p.ReadOnlyPrefixes {
		if strings.HasPrefix(cmd, prefix) {
			return true
		}
	}
	return false
}

// FindError 返回输出中第一处匹配错误模式的行
func (p *Profile) FindError(output string) (string, bool) {
	if len(p.ErrorPatterns) == 0 {
		return "", false
	}
	for _, line := range strings.Split(output, "\n") {
		l := strings.TrimSpace(line)
		if l == "" {
			continue
		}
		for _, pat := range p.ErrorPatterns {
			if strings.Contains(strings.ToLower(l), strings.ToLower(pat)) {
				return l, true
			}
		}
	}
	return "", false
}

// Override 运行时覆盖项（配置文件或数据库）
type Override struct {
	DisablePaging  []string
	ErrorPatterns  []string
	CommandTimeout time.Duration
	Debounce       time.Duration
}

// Apply 返回应用覆盖后的副本
func (p *Profile) Apply(o *Override) *Profile {
	if o == nil {
		return p
	}
	c := p.Clone()
	if len(o.DisablePaging) > 0 {
		c.DisablePaging = append([]string(nil), o.DisablePaging...)
	}
	c.ErrorPatterns = append(c.ErrorPatterns, o.ErrorPatterns...)
	if o.CommandTimeout > 0 {
		c.CommandTimeout = o.CommandTimeout
	}
	if o.Debounce > 0 {
		c.Debounce = o.Debounce
	}
	return c
}
