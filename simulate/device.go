// Package simulate 提供网络设备 CLI 模拟器，可运行在内存管道或真实 SSH 服务上
package simulate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// DeviceProfile 模拟设备的行为描述
type DeviceProfile struct {
	Hostname string `mapstructure:"hostname" yaml:"hostname"`
	// 用户模式与特权模式提示符后缀
	UserSuffix string `mapstructure:"user_suffix" yaml:"user_suffix"`
	PrivSuffix string `mapstructure:"priv_suffix" yaml:"priv_suffix"`
	// 提示符包裹，如华为 <HUAWEI> 使用 "<" 与 ">"
	PromptPrefix string `mapstructure:"prompt_prefix" yaml:"prompt_prefix"`
	// 非空时需要 enable 提权
	EnablePassword string `mapstructure:"enable_password" yaml:"enable_password"`
	EnableCommand  string `mapstructure:"enable_command" yaml:"enable_command"`

	ConfigCommand string   `mapstructure:"config_command" yaml:"config_command"`
	ConfigPrompt  string   `mapstructure:"config_prompt" yaml:"config_prompt"` // fmt 格式，参数为主机名
	ExitConfig    []string `mapstructure:"exit_config" yaml:"exit_config"`
	// 两阶段提交
	CommitCommand string `mapstructure:"commit_command" yaml:"commit_command"`
	CommitOutput  string `mapstructure:"commit_output" yaml:"commit_output"`
	CommitFail    bool   `mapstructure:"commit_fail" yaml:"commit_fail"`
	AbortCommand  string `mapstructure:"abort_command" yaml:"abort_command"`

	Outputs map[string]string `mapstructure:"outputs" yaml:"outputs"`
	// 未知命令的错误输出
	ErrorOutput string `mapstructure:"error_output" yaml:"error_output"`
	// 配置模式下会报错的行
	InvalidConfig []string `mapstructure:"invalid_config" yaml:"invalid_config"`
	// 输出中间插入分页提示的命令
	Paged map[string]bool `mapstructure:"paged" yaml:"paged"`
	// 分页命令在关闭分页后不再分页
	PagingOffCommand string `mapstructure:"paging_off_command" yaml:"paging_off_command"`
	// 不返回提示符的命令，用于超时测试
	Silent map[string]bool `mapstructure:"silent" yaml:"silent"`

	SaveCommand   string `mapstructure:"save_command" yaml:"save_command"`
	SaveConfirm   string `mapstructure:"save_confirm" yaml:"save_confirm"`
	SaveOutput    string `mapstructure:"save_output" yaml:"save_output"`
	RebootCommand string `mapstructure:"reboot_command" yaml:"reboot_command"`
	RebootConfirm string `mapstructure:"reboot_confirm" yaml:"reboot_confirm"`
	// 非空时重启前先询问是否保存修改过的配置
	RebootSavePrompt string `mapstructure:"reboot_save_prompt" yaml:"reboot_save_prompt"`

	Banner string `mapstructure:"banner" yaml:"banner"`
	// exec 通道命令输出，未命中时返回 127
	ExecOutputs map[string]string `mapstructure:"exec_outputs" yaml:"exec_outputs"`
}

// Recorder 记录设备收到的命令，便于测试断言
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *Recorder) add(line string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()
}

// Lines 返回已记录的输入行副本
func (r *Recorder) Lines() []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// Count 某行出现次数
func (r *Recorder) Count(line string) int {
	n := 0
	for _, l := range r.Lines() {
		if l == line {
			n++
		}
	}
	return n
}

// ErrRebooted 设备执行重启后会话结束
var ErrRebooted = errors.New("device rebooted")

// savedMarker 重启前保存配置时写入 Recorder 的标记行
const savedMarker = "<config saved>"

// Saved 重启对话中是否保存过配置
func (r *Recorder) Saved() bool { return r.Count(savedMarker) > 0 }

// session 单个 Shell 会话状态
type session struct {
	p        *DeviceProfile
	r        *bufio.Reader
	w        io.Writer
	rec      *Recorder
	priv     bool
	config   bool
	pagerOff bool
	pending  []string
}

// Serve 在 rw 上运行交互式 CLI，直到对端关闭、exit 或重启
func Serve(p *DeviceProfile, rw io.ReadWriter, rec *Recorder) error {
	s := &session{p: p, r: bufio.NewReader(rw), w: rw, rec: rec, priv: p.EnablePassword == ""}
	if p.Banner != "" {
		s.write(crlf(p.Banner))
	}
	s.prompt()
	for {
		line, err := s.readLine(true)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		rec.add(line)
		done, err := s.handle(line)
		if err != nil || done {
			return err
		}
	}
}

func (s *session) write(text string) {
	_, _ = io.WriteString(s.w, text)
}

// readLine 读取以 CR 或 LF 结束的一行，CRLF 视为一个结束符
func (s *session) readLine(echo bool) (string, error) {
	var sb strings.Builder
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return sb.String(), err
		}
		if b == '\r' || b == '\n' {
			if b == '\r' {
				if next, err := s.r.Peek(1); err == nil && next[0] == '\n' {
					_, _ = s.r.ReadByte()
				}
			}
			if echo {
				s.write(sb.String() + "\r\n")
			}
			return strings.TrimSpace(sb.String()), nil
		}
		sb.WriteByte(b)
	}
}

func (s *session) promptText() string {
	p := s.p
	if s.config {
		format := p.ConfigPrompt
		if format == "" {
			format = "%s(config)#"
		}
		return fmt.Sprintf(format, p.Hostname)
	}
	suffix := p.UserSuffix
	if s.priv && p.PrivSuffix != "" {
		suffix = p.PrivSuffix
	}
	return p.PromptPrefix + p.Hostname + suffix
}

func (s *session) prompt() {
	s.write(s.promptText())
}

func (s *session) errorOutput(line string) string {
	if s.p.ErrorOutput != "" {
		return crlf(s.p.ErrorOutput)
	}
	return "% Invalid input detected at '^' marker.\r\n"
}

func (s *session) handle(line string) (bool, error) {
	p := s.p
	switch {
	case line == "":
		s.prompt()
		return false, nil
	case !s.config && (line == "exit" || line == "quit" || line == "logout"):
		return true, nil
	case p.Silent[line]:
		s.write("working...")
		return false, nil
	}

	if s.config {
		return s.handleConfig(line)
	}

	enableCmd := p.EnableCommand
	if enableCmd == "" {
		enableCmd = "enable"
	}
	switch {
	case line == enableCmd && p.EnablePassword != "":
		if s.priv {
			s.prompt()
			return false, nil
		}
		s.write("Password: ")
		pw, err := s.readLine(false)
		if err != nil {
			return true, nil
		}
		s.write("\r\n")
		if pw == p.EnablePassword {
			s.priv = true
		} else {
			s.write("% Bad secrets\r\n")
		}
		s.prompt()
		return false, nil
	case p.ConfigCommand != "" && line == p.ConfigCommand:
		if !s.priv {
			s.write(s.errorOutput(line))
			s.prompt()
			return false, nil
		}
		s.config = true
		s.prompt()
		return false, nil
	case p.PagingOffCommand != "" && line == p.PagingOffCommand:
		s.pagerOff = true
		s.prompt()
		return false, nil
	case p.SaveCommand != "" && line == p.SaveCommand:
		if p.SaveConfirm != "" {
			s.write(p.SaveConfirm)
			ans, err := s.readLine(true)
			if err != nil {
				return true, nil
			}
			s.rec.add(ans)
		}
		out := p.SaveOutput
		if out == "" {
			out = "[OK]"
		}
		s.write(crlf(out))
		s.prompt()
		return false, nil
	case p.RebootCommand != "" && line == p.RebootCommand:
		if p.RebootSavePrompt != "" {
			s.write(p.RebootSavePrompt)
			ans, err := s.readLine(true)
			if err != nil {
				return true, nil
			}
			s.rec.add(ans)
			if strings.HasPrefix(strings.ToLower(ans), "y") {
				s.rec.add(savedMarker)
				s.write("Building configuration...\r\n[OK]\r\n")
			}
		}
		if p.RebootConfirm != "" {
			s.write(p.RebootConfirm)
			ans, err := s.readLine(true)
			if err != nil {
				return true, nil
			}
			s.rec.add(ans)
		}
		s.write("\r\nReloading...\r\n")
		return true, ErrRebooted
	}

	out, ok := p.Outputs[line]
	if !ok {
		s.write(s.errorOutput(line))
		s.prompt()
		return false, nil
	}
	return s.emit(line, crlf(out))
}

// emit 输出命令结果，必要时在中间插入分页提示
func (s *session) emit(line, out string) (bool, error) {
	if !s.p.Paged[line] || s.pagerOff {
		s.write(out)
		s.prompt()
		return false, nil
	}
	lines := strings.SplitAfter(out, "\r\n")
	half := len(lines) / 2
	if half == 0 {
		half = 1
	}
	s.write(strings.Join(lines[:half], ""))
	const more = " --More-- "
	s.write(more)
	b, err := s.r.ReadByte()
	if err != nil {
		return true, nil
	}
	s.write(strings.Repeat("\b", len(more)) + strings.Repeat(" ", len(more)) + strings.Repeat("\b", len(more)))
	if b == 'q' {
		s.prompt()
		return false, nil
	}
	s.write(strings.Join(lines[half:], ""))
	s.prompt()
	return false, nil
}

func (s *session) handleConfig(line string) (bool, error) {
	p := s.p
	exits := p.ExitConfig
	if len(exits) == 0 {
		exits = []string{"end", "exit"}
	}
	for _, e := range exits {
		if line == e {
			s.config = false
			s.pending = nil
			s.prompt()
			return false, nil
		}
	}
	if p.AbortCommand != "" && line == p.AbortCommand {
		s.pending = nil
		s.prompt()
		return false, nil
	}
	if p.CommitCommand != "" && line == p.CommitCommand {
		if p.CommitFail {
			s.write("error: configuration check-out failed\r\n")
		} else {
			out := p.CommitOutput
			if out == "" {
				out = "commit complete"
			}
			s.write(crlf(out))
			s.pending = nil
		}
		s.prompt()
		return false, nil
	}
	for _, bad := range p.InvalidConfig {
		if line == bad {
			s.write(s.errorOutput(line))
			s.prompt()
			return false, nil
		}
	}
	s.pending = append(s.pending, line)
	if out, ok := p.Outputs[line]; ok {
		s.write(crlf(out))
	}
	s.prompt()
	return false, nil
}

// Exec 模拟 exec 通道：返回 stdout、stderr 与退出码
func Exec(p *DeviceProfile, command string) (stdout, stderr string, code int) {
	if out, ok := p.ExecOutputs[command]; ok {
		return out, "", 0
	}
	if strings.HasPrefix(command, "false") {
		return "", "", 1
	}
	return "", fmt.Sprintf("sh: 1: %s: not found\n", strings.Fields(command + " x")[0]), 127
}

func crlf(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", "\r\n")
	if !strings.HasSuffix(s, "\r\n") {
		s += "\r\n"
	}
	return s
}
