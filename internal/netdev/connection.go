package netdev

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/channel"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/errs"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/logger"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/ssh"
)

const (
	defaultDebounce      = 80 * time.Millisecond
	defaultSettleDelay   = 10 * time.Millisecond
	discoverDebounce     = 200 * time.Millisecond
	discoverAttemptLimit = 10 * time.Second
	// 回显判定只比较命令前缀，长命令可能被设备折行
	echoKeyLen = 30
)

// Options Connection 构造参数
type Options struct {
	Dialer Dialer
	Pool   *Pool
	// 平台覆盖项（配置文件或数据库）
	Override    *Override
	SettleDelay time.Duration
	// 非 UTF-8 输出按 GBK/Big5 等解码
	DecodeLegacy bool
	Pty          ssh.PtyOptions
}

// Prompts 运行时学习到的提示符
type Prompts struct {
	// 去掉终止符后的主机名部分
	Base       string
	Privileged string
	Config     string
	// 最近一次观察到的完整提示符行
	Current string
}

// session 传输与 Shell 通道，连接池中的多个 Connection 可共享同一个 session
type session struct {
	mu sync.Mutex

	key       string
	driver    string
	transport Transport
	stream    *channel.Stream

	// 提示符与模式快照，池化共享时其他 Connection 可能并发读取
	modeMu     sync.RWMutex
	prompts    Prompts
	privileged bool
	inConfig   bool
	flags      map[string]bool

	factsMu sync.Mutex
	facts   map[string]string

	lastUsed atomic.Int64
	closed   atomic.Bool
	cancel   context.CancelFunc
}

func (s *session) snapshot() Prompts {
	s.modeMu.RLock()
	defer s.modeMu.RUnlock()
	return s.prompts
}

func (s *session) mode() (privileged, inConfig bool) {
	s.modeMu.RLock()
	defer s.modeMu.RUnlock()
	return s.privileged, s.inConfig
}

func (s *session) setConfig(on bool) {
	s.modeMu.Lock()
	s.inConfig = on
	s.modeMu.Unlock()
}

func (s *session) flag(name string) bool {
	s.modeMu.RLock()
	defer s.modeMu.RUnlock()
	return s.flags[name]
}

func (s *session) setFlag(name string, on bool) {
	s.modeMu.Lock()
	defer s.modeMu.Unlock()
	if s.flags == nil {
		s.flags = make(map[string]bool)
	}
	s.flags[name] = on
}

// learn 按平台规则从提示符行推导模式；reset 时先清空已学习的提示符
func (s *session) learn(line string, p *Profile, reset bool) Prompts {
	s.modeMu.Lock()
	defer s.modeMu.Unlock()
	if reset {
		s.prompts = Prompts{}
	}
	s.prompts.Current = line
	if s.prompts.Base == "" {
		s.prompts.Base = promptStem(line, p.Terminators)
	}
	if p.ConfigPrompt != nil {
		s.inConfig = p.ConfigPrompt.MatchString(line)
	}
	if s.inConfig {
		s.prompts.Config = line
	}
	if p.HasPrivilegedMode && p.PrivilegedSuffix != "" {
		s.privileged = s.inConfig || strings.HasSuffix(line, p.PrivilegedSuffix)
		if strings.HasSuffix(line, p.PrivilegedSuffix) && !s.inConfig {
			s.prompts.Privileged = line
		}
	}
	return s.prompts
}

func (s *session) touch(now time.Time) { s.lastUsed.Store(now.UnixNano()) }

func (s *session) idleSince() time.Time { return time.Unix(0, s.lastUsed.Load()) }

func (s *session) alive() bool {
	if s.closed.Load() || !s.transport.Alive() {
		return false
	}
	return s.stream == nil || !s.stream.Closed()
}

func (s *session) close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.stream != nil {
		_ = s.stream.Close()
	}
	return s.transport.Close()
}

// Connection 单台设备的会话。同一 Connection 上的操作严格串行。
type Connection struct {
	creds   Credentials
	driver  Driver
	profile *Profile
	opts    Options

	mu    sync.Mutex
	state State
	sess  *session
	// 本 Connection 是否通过连接池复用了已有会话
	adopted bool
}

// NewConnection 构造连接，Credentials 按值复制
func NewConnection(creds Credentials, driver Driver, opts Options) *Connection {
	if opts.Dialer == nil {
		opts.Dialer = &SSHDialer{}
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = defaultSettleDelay
	}
	return &Connection{
		creds:   creds,
		driver:  driver,
		profile: driver.Profile().Apply(opts.Override),
		opts:    opts,
	}
}

// State 当前状态
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected 是否处于可用状态
func (c *Connection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess != nil && c.state != StateDisconnected
}

// Adopted 本次连接是否复用了连接池中的会话
func (c *Connection) Adopted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.adopted
}

// Driver 当前驱动
func (c *Connection) Driver() Driver { return c.driver }

// Credentials 连接参数副本
func (c *Connection) Credentials() Credentials { return c.creds }

// Profile 应用覆盖项后的有效平台数据
func (c *Connection) Profile() *Profile { return c.profile }

func (c *Connection) current() *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// Prompts 已学习的提示符
func (c *Connection) Prompts() Prompts {
	s := c.current()
	if s == nil {
		return Prompts{}
	}
	return s.snapshot()
}

// Prompt 当前完整提示符
func (c *Connection) Prompt() string { return c.Prompts().Current }

// BasePrompt 去掉终止符的基础提示符
func (c *Connection) BasePrompt() string { return c.Prompts().Base }

// InPrivilegedMode 是否处于特权模式
func (c *Connection) InPrivilegedMode() bool {
	if !c.profile.HasPrivilegedMode {
		return true
	}
	s := c.current()
	if s == nil {
		return false
	}
	privileged, _ := s.mode()
	return privileged
}

// InConfigMode 是否处于配置模式
func (c *Connection) InConfigMode() bool {
	s := c.current()
	if s == nil {
		return false
	}
	_, inConfig := s.mode()
	return inConfig
}

// SetConfigMode 供无法从提示符判断模式的驱动显式设置
func (c *Connection) SetConfigMode(on bool) {
	if s := c.current(); s != nil {
		s.setConfig(on)
	}
}

// Flag 厂商扩展模式标志，如 inShellMode、vdom
func (c *Connection) Flag(name string) bool {
	s := c.current()
	return s != nil && s.flag(name)
}

// SetFlag 设置厂商扩展模式标志
func (c *Connection) SetFlag(name string, on bool) {
	if s := c.current(); s != nil {
		s.setFlag(name, on)
	}
}

// Fact 会话准备阶段采集的设备信息
func (c *Connection) Fact(name string) string {
	s := c.current()
	if s == nil {
		return ""
	}
	s.factsMu.Lock()
	defer s.factsMu.Unlock()
	return s.facts[name]
}

// SetFact 可并发调用
func (c *Connection) SetFact(name, value string) {
	s := c.current()
	if s == nil {
		return
	}
	s.factsMu.Lock()
	defer s.factsMu.Unlock()
	if s.facts == nil {
		s.facts = make(map[string]string)
	}
	s.facts[name] = value
}

// HasShell 是否存在交互式 Shell 通道
func (c *Connection) HasShell() bool {
	s := c.current()
	return s != nil && s.stream != nil
}

// PromptMatcher 基于已学习提示符的匹配器
func (c *Connection) PromptMatcher() *channel.PromptMatcher {
	p := c.profile
	m := &channel.PromptMatcher{
		Terminators: p.Terminators,
		Generic:     p.GenericPrompt,
		Patterns:    p.PromptPatterns,
	}
	s := c.current()
	if s == nil {
		return m
	}
	pr := s.snapshot()
	m.Stem = pr.Base
	for _, s := range []string{pr.Current, pr.Privileged, pr.Config} {
		if s != "" {
			m.Prompts = append(m.Prompts, s)
		}
	}
	if m.Stem == "" {
		m.Generic = true
	}
	return m
}

func (c *Connection) commandTimeout() time.Duration {
	if c.creds.CommandTimeout > 0 {
		return c.creds.CommandTimeout.Duration()
	}
	if c.profile.CommandTimeout > 0 {
		return c.profile.CommandTimeout
	}
	return DefaultCommandTimeout
}

func (c *Connection) debounce() time.Duration {
	if c.profile.Debounce > 0 {
		return c.profile.Debounce
	}
	return defaultDebounce
}

func (c *Connection) stream() (*channel.Stream, error) {
	if c.sess == nil || c.sess.stream == nil {
		return nil, errs.New(errs.KindChannelUnavailable, "no interactive channel")
	}
	return c.sess.stream, nil
}

// ExchangeOptions 单次命令交互参数
type ExchangeOptions struct {
	// 替代提示符检测的完成标志
	Expect channel.Matcher
	// 与提示符检测并列的完成标志，如密码提示
	AlsoExpect channel.Matcher
	Timeout    time.Duration
	Responders []channel.Responder
	// 不追加换行
	NoNewline bool
	// 不回显的输入（密码），跳过回显判定且不写日志
	Hidden bool
}

// Exchange 写入一条命令并读到完成标志，返回清洗过换行与控制符的输出。
// 只有在看到命令回显之后提示符才算数，避免把命令发出前残留的提示符当作完成。
func (c *Connection) Exchange(ctx context.Context, command string, opts ExchangeOptions) (string, error) {
	st, err := c.stream()
	if err != nil {
		return "", err
	}
	if stale := st.Drain(); stale != "" {
		logger.Debug("netdev: discarded stale output", "host", c.creds.Host, "bytes", len(stale))
	}

	text := command
	if !opts.NoNewline {
		text += c.profile.newline()
	}
	if err := st.Write(text); err != nil {
		return "", err
	}
	if !opts.Hidden {
		logger.Debug("netdev: sent", "host", c.creds.Host, "command", command)
	}

	var m channel.Matcher = c.PromptMatcher()
	if opts.Expect != nil {
		m = opts.Expect
	} else if opts.AlsoExpect != nil {
		m = channel.AnyOf(m, opts.AlsoExpect)
	}
	if !opts.Hidden {
		m = afterEcho(command, m)
	}
	timeout := opts.Timeout
	if timeout <= 0 || timeout < c.commandTimeout() {
		timeout = c.commandTimeout()
	}
	responders := append(channel.PagerResponders(), c.profile.Responders...)
	responders = append(responders, opts.Responders...)

	out, err := st.ReadUntil(ctx, channel.ReadOptions{
		Matcher:    m,
		Timeout:    timeout,
		Debounce:   c.debounce(),
		Responders: responders,
	})
	clean := channel.Clean(out)
	if err != nil {
		return clean, err
	}
	c.observePrompt(clean)
	return clean, nil
}

// afterEcho 包装匹配器：命令回显出现之前不判定完成
func afterEcho(command string, m channel.Matcher) channel.Matcher {
	key := strings.TrimSpace(command)
	if r := []rune(key); len(r) > echoKeyLen {
		key = string(r[:echoKeyLen])
	}
	if key == "" {
		return m
	}
	seen := false
	return channel.MatcherFunc(func(text string) bool {
		clean := channel.Clean(text)
		if i := strings.Index(clean, key); i >= 0 {
			seen = true
			return m.Match(clean[i+len(key):])
		}
		// 分页应答之后评估窗口不再包含回显
		return seen && m.Match(clean)
	})
}

// observePrompt 根据最后一行更新提示符与模式标志
func (c *Connection) observePrompt(out string) {
	last := channel.LastLine(out)
	if last == "" || !c.PromptMatcher().Match(last) {
		return
	}
	c.learnPrompt(last)
}

func (c *Connection) learnPrompt(line string) {
	if s := c.current(); s != nil {
		s.learn(line, c.profile, false)
	}
}

// promptStem 去掉终止符与包裹字符，截到模式标记之前
func promptStem(line string, terminators []string) string {
	s := strings.TrimSpace(line)
	for changed := true; changed; {
		changed = false
		for _, t := range append(terminators, "#", ">", "$", "%", "]") {
			if t != "" && strings.HasSuffix(s, t) {
				s = strings.TrimRight(strings.TrimSuffix(s, t), " ")
				changed = true
			}
		}
	}
	s = strings.TrimRight(s, "*")
	s = strings.TrimLeft(s, "<[~*")
	if i := strings.IndexAny(s, "(: "); i > 0 {
		s = s[:i]
	}
	return s
}

// WriteLine 写入一行，不等待响应
func (c *Connection) WriteLine(text string) error {
	st, err := c.stream()
	if err != nil {
		return err
	}
	return st.Write(text + c.profile.newline())
}

// ReadFor 固定时长读取
func (c *Connection) ReadFor(ctx context.Context, d time.Duration) (string, error) {
	st, err := c.stream()
	if err != nil {
		return "", err
	}
	out, err := st.ReadFor(ctx, d)
	return channel.Clean(out), err
}

// Exec 通过 exec 通道执行，命令超时约束整个调用
func (c *Connection) Exec(ctx context.Context, command string) (*ssh.ExecResult, error) {
	if c.sess == nil {
		return nil, errs.New(errs.KindChannelUnavailable, "not connected")
	}
	ctx, cancel := context.WithTimeout(ctx, c.commandTimeout())
	defer cancel()
	logger.Debug("netdev: exec", "host", c.creds.Host, "command", command)
	return c.sess.transport.Exec(ctx, command)
}

// DiscoverPrompt 发送空行并从最后一行学习提示符，最多尝试三次（快速模式一次）
func (c *Connection) DiscoverPrompt(ctx context.Context) (string, error) {
	st, err := c.stream()
	if err != nil {
		return "", err
	}
	p := c.profile
	matcher := &channel.PromptMatcher{Terminators: p.Terminators, Generic: true, Patterns: p.PromptPatterns}
	attempts := 3
	if c.creds.FastMode {
		attempts = 1
	}
	timeout := c.commandTimeout()
	if timeout > discoverAttemptLimit {
		timeout = discoverAttemptLimit
	}

	var line string
	for i := 0; i < attempts && line == ""; i++ {
		if err := st.Write(p.newline()); err != nil {
			return "", err
		}
		out, err := st.ReadUntil(ctx, channel.ReadOptions{
			Matcher:    matcher,
			Timeout:    timeout,
			Debounce:   discoverDebounce,
			Responders: channel.PagerResponders(),
		})
		if errs.KindOf(err) == errs.KindChannelUnavailable {
			return "", err
		}
		if err == nil {
			line = channel.LastLine(channel.Clean(out))
		} else {
			logger.Debug("netdev: prompt discovery attempt failed", "host", c.creds.Host, "attempt", i+1, "error", err)
		}
	}
	if line == "" {
		return "", errs.New(errs.KindPromptTimeout, "could not discover prompt on %s", c.creds.Host)
	}
	// 吞掉多余空行引起的重复提示符
	_, _ = st.ReadFor(ctx, 100*time.Millisecond)
	st.Drain()

	pr := c.current().learn(line, c.profile, true)
	logger.Debug("netdev: prompt discovered", "host", c.creds.Host, "prompt", line, "base", pr.Base)
	return pr.Base, nil
}

// RunSetup 流水线发送彼此独立的设置命令，等到提示符出现 len(commands) 次。
// 快速模式不等待完成标志，只按固定窗口读取。
func (c *Connection) RunSetup(ctx context.Context, commands []string) error {
	if len(commands) == 0 {
		return nil
	}
	st, err := c.stream()
	if err != nil {
		return err
	}
	nl := c.profile.newline()
	if err := st.Write(strings.Join(commands, nl) + nl); err != nil {
		return err
	}
	if c.creds.FastMode {
		_, err := st.ReadFor(ctx, 300*time.Millisecond)
		st.Drain()
		return err
	}

	pm := c.PromptMatcher()
	n := len(commands)
	out, err := st.ReadUntil(ctx, channel.ReadOptions{
		Matcher: channel.MatcherFunc(func(text string) bool {
			clean := channel.Clean(text)
			return countPromptLines(clean, pm) >= n && pm.Match(clean)
		}),
		Timeout:    c.commandTimeout(),
		Debounce:   c.debounce(),
		Responders: channel.PagerResponders(),
	})
	clean := channel.Clean(out)
	if err != nil {
		return errs.Wrap(errs.KindOf(err), err, "session setup")
	}
	if line, bad := c.profile.FindError(clean); bad {
		logger.Warn("netdev: setup command rejected", "host", c.creds.Host, "line", line)
	}
	c.observePrompt(clean)
	return nil
}

// countPromptLines 统计以提示符开头的行（提示符后可能紧跟下一条命令的回显）
func countPromptLines(text string, pm *channel.PromptMatcher) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if pm.Match(line) {
			n++
			continue
		}
		for _, p := range pm.Prompts {
			if p != "" && strings.HasPrefix(line, p) {
				n++
				break
			}
		}
	}
	return n
}

// Connect 建立会话。开启连接池时优先复用同键的存活会话。
func (c *Connection) Connect(ctx context.Context) error {
	if err := c.creds.Validate(); err != nil {
		return err
	}
	if err := c.transition(StateConnecting); err != nil {
		return err
	}

	var (
		sess    *session
		adopted bool
		err     error
	)
	if c.creds.Pooled && c.opts.Pool != nil {
		sess, adopted, err = c.opts.Pool.acquire(ctx, c.creds.PoolKey(), c.driver.Name(), c.establish)
	} else {
		sess, err = c.establish(ctx)
	}
	if err != nil {
		c.reset()
		return err
	}

	c.mu.Lock()
	c.sess = sess
	c.adopted = adopted
	if c.state == StateConnecting {
		c.state = StateSessionPreparing
	}
	c.state = StateReady
	c.mu.Unlock()
	if adopted {
		logger.Debug("netdev: reused pooled session", "host", c.creds.Host, "prompt", sess.snapshot().Current)
	}
	return nil
}

// establish 拨号、打开 Shell 并完成会话准备
func (c *Connection) establish(ctx context.Context) (*session, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.creds.connectTimeout())
	defer cancel()
	started := time.Now()
	t, err := c.opts.Dialer.Dial(dialCtx, c.creds)
	if err != nil {
		logger.Warn("netdev: dial failed", "host", c.creds.Host, "device_type", c.driver.Name(), "error", err)
		return nil, err
	}
	sess := &session{key: c.creds.PoolKey(), driver: c.driver.Name(), transport: t}
	sess.touch(time.Now())

	shell, err := t.OpenShell(dialCtx, c.opts.Pty)
	switch {
	case err == nil:
		sess.stream = channel.NewStream(shell, channel.Options{SettleDelay: c.opts.SettleDelay, DecodeLegacy: c.opts.DecodeLegacy})
	case c.profile.UsesExecChannel:
		logger.Warn("netdev: no interactive shell, continuing exec-only", "host", c.creds.Host, "error", err)
	default:
		_ = t.Close()
		return nil, err
	}

	c.mu.Lock()
	c.sess = sess
	c.state = StateSessionPreparing
	c.mu.Unlock()

	if err := c.driver.PrepareSession(ctx, c); err != nil {
		_ = sess.close()
		c.mu.Lock()
		c.sess = nil
		c.mu.Unlock()
		return nil, errs.Wrap(errs.KindOf(err), err, "session preparation on %s", c.creds.Host)
	}
	if c.profile.HasPrivilegedMode && !c.InPrivilegedMode() && c.creds.Secret() != "" {
		if err := c.driver.EnterPrivileged(ctx, c); err != nil {
			logger.Warn("netdev: enable failed, staying in user mode", "host", c.creds.Host, "error", err)
		}
	}

	if interval := c.creds.keepAliveInterval(); interval > 0 {
		if ka, ok := t.(KeepAliver); ok {
			kctx, kcancel := context.WithCancel(context.Background())
			sess.cancel = kcancel
			go ka.KeepAlive(kctx, interval)
		}
	}
	logger.Info("netdev: session ready", "host", c.creds.Host, "device_type", c.driver.Name(),
		"prompt", sess.snapshot().Current, "elapsed", time.Since(started).String())
	return sess, nil
}

func (c *Connection) transition(to State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !CanTransition(c.state, to) {
		return transitionError(c.state, to)
	}
	c.state = to
	return nil
}

func (c *Connection) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Connection) reset() {
	c.mu.Lock()
	c.sess = nil
	c.adopted = false
	c.state = StateDisconnected
	c.mu.Unlock()
}

// begin 进入操作状态并独占会话
func (c *Connection) begin(to State) (*session, error) {
	c.mu.Lock()
	sess := c.sess
	from := c.state
	c.mu.Unlock()
	if sess == nil || from == StateDisconnected {
		return nil, errs.New(errs.KindChannelUnavailable, "not connected")
	}
	if !CanTransition(from, to) {
		return nil, transitionError(from, to)
	}
	sess.mu.Lock()
	if sess.closed.Load() {
		sess.mu.Unlock()
		c.reset()
		return nil, errs.New(errs.KindChannelUnavailable, "session closed")
	}
	c.setState(to)
	return sess, nil
}

// end 释放会话；通道失效时拆除会话
func (c *Connection) end(sess *session, err error) {
	now := time.Now()
	sess.touch(now)
	if errs.KindOf(err) == errs.KindChannelUnavailable || !sess.alive() {
		c.teardown(sess)
		sess.mu.Unlock()
		return
	}
	c.setState(StateReady)
	sess.mu.Unlock()
}

// teardown 关闭会话并移出连接池，调用方持有 sess.mu
func (c *Connection) teardown(sess *session) {
	if c.opts.Pool != nil {
		c.opts.Pool.remove(sess)
	}
	if err := sess.close(); err != nil {
		logger.Debug("netdev: close transport", "host", c.creds.Host, "error", err)
	}
	c.reset()
}

func (c *Connection) ensurePrivileged(ctx context.Context) error {
	if c.InPrivilegedMode() {
		return nil
	}
	return c.driver.EnterPrivileged(ctx, c)
}

// SendCommand 执行一条命令
func (c *Connection) SendCommand(ctx context.Context, command string) (res CommandResult, err error) {
	sess, err := c.begin(StateExecutingCommand)
	if err != nil {
		return Failed(command, "", err), err
	}
	defer func() { c.end(sess, err) }()

	out, err := c.driver.RunCommand(ctx, c, command)
	if err != nil {
		if c.creds.FastMode && errs.KindOf(err) == errs.KindPromptTimeout && c.profile.IsReadOnly(command) {
			logger.Warn("netdev: fast mode treating timeout as success", "host", c.creds.Host, "command", command)
			return Succeeded(command, out), nil
		}
		return Failed(command, out, err), err
	}
	if line, bad := c.profile.FindError(out); bad {
		err = errs.New(errs.KindCommandRejected, "%s", line)
		return Failed(command, out, err), err
	}
	logger.DebugCommandOutput(c.creds.Host, command, out)
	return Succeeded(command, out), nil
}

// SendConfig 进入配置模式逐行下发，遇错中止；两阶段平台提交或回滚；最后总是尝试退出配置模式
func (c *Connection) SendConfig(ctx context.Context, lines []string) (res CommandResult, err error) {
	joined := strings.Join(lines, "\n")
	sess, err := c.begin(StateEnteringConfig)
	if err != nil {
		return Failed(joined, "", err), err
	}
	defer func() { c.end(sess, err) }()

	p := c.profile
	if p.HasPrivilegedMode {
		if err = c.ensurePrivileged(ctx); err != nil {
			return Failed(joined, "", err), err
		}
	}
	if err = c.driver.EnterConfig(ctx, c); err != nil {
		c.exitConfig(ctx)
		return Failed(joined, "", err), err
	}
	c.setState(StateInConfig)

	var outputs []string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var out string
		out, err = c.driver.RunCommand(ctx, c, line)
		if out != "" {
			outputs = append(outputs, out)
		}
		if errs.KindOf(err) == errs.KindCommandRejected {
			err = errs.Wrap(errs.KindConfigurationError, err, "config line %q rejected", line)
			break
		}
		if err != nil {
			err = errs.Wrap(errs.KindOf(err), err, "config line %q", line)
			break
		}
		if bad, hit := p.FindError(out); hit {
			err = errs.New(errs.KindConfigurationError, "config line %q rejected: %s", line, bad)
			break
		}
	}

	if err == nil && p.HasTwoPhaseCommit {
		var out string
		out, err = c.driver.Commit(ctx, c)
		if out != "" {
			outputs = append(outputs, out)
		}
	}
	if err != nil && p.HasTwoPhaseCommit && errs.KindOf(err) != errs.KindChannelUnavailable {
		if abortErr := c.driver.Abort(ctx, c); abortErr != nil {
			logger.Warn("netdev: abort failed", "host", c.creds.Host, "error", abortErr)
		}
	}
	exitErr := c.exitConfig(ctx)
	if err == nil {
		err = exitErr
	}
	output := strings.Join(outputs, "\n")
	if err != nil {
		return Failed(joined, output, err), err
	}
	return Succeeded(joined, output), nil
}

// exitConfig 尽力退出配置模式
func (c *Connection) exitConfig(ctx context.Context) error {
	c.setState(StateExitingConfig)
	if !c.InConfigMode() || !c.HasShell() || c.sess.stream.Closed() {
		return nil
	}
	if err := c.driver.ExitConfig(ctx, c); err != nil {
		logger.Warn("netdev: exit config mode failed", "host", c.creds.Host, "error", err)
		return err
	}
	return nil
}

// GetCurrentConfig 读取运行配置
func (c *Connection) GetCurrentConfig(ctx context.Context) (res CommandResult, err error) {
	command := c.profile.RunningConfig
	sess, err := c.begin(StateExecutingCommand)
	if err != nil {
		return Failed(command, "", err), err
	}
	defer func() { c.end(sess, err) }()

	if err = c.ensurePrivileged(ctx); err != nil {
		return Failed(command, "", err), err
	}
	out, err := c.driver.RunningConfig(ctx, c)
	if err != nil {
		return Failed(command, out, err), err
	}
	return Succeeded(command, out), nil
}

// SaveConfig 持久化配置
func (c *Connection) SaveConfig(ctx context.Context) (res CommandResult, err error) {
	command := c.profile.SaveCommand
	sess, err := c.begin(StateExecutingCommand)
	if err != nil {
		return Failed(command, "", err), err
	}
	defer func() { c.end(sess, err) }()

	if err = c.ensurePrivileged(ctx); err != nil {
		return Failed(command, "", err), err
	}
	out, err := c.driver.SaveConfig(ctx, c)
	if err != nil {
		return Failed(command, out, err), err
	}
	return Succeeded(command, out), nil
}

// RebootDevice 重启设备。成功后会话被拆除，连接回到 Disconnected。
func (c *Connection) RebootDevice(ctx context.Context) (CommandResult, error) {
	command := c.profile.RebootCommand
	sess, err := c.begin(StateExecutingCommand)
	if err != nil {
		return Failed(command, "", err), err
	}
	if err = c.ensurePrivileged(ctx); err != nil {
		c.end(sess, err)
		return Failed(command, "", err), err
	}
	out, err := c.driver.Reboot(ctx, c)
	if err != nil {
		c.end(sess, err)
		return Failed(command, out, err), err
	}
	c.teardown(sess)
	sess.mu.Unlock()
	logger.Info("netdev: reboot issued", "host", c.creds.Host)
	return Succeeded(command, out), nil
}

// Disconnect 断开连接。池化且仍存活的会话保留在池中，只刷新活跃时间。
func (c *Connection) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	sess := c.sess
	from := c.state
	c.mu.Unlock()
	if sess == nil || from == StateDisconnected {
		c.reset()
		return nil
	}
	if err := c.transition(StateDisconnecting); err != nil {
		return err
	}

	pool := c.opts.Pool
	if c.creds.Pooled && pool != nil && pool.owns(sess) && sess.alive() {
		pool.touch(sess)
		c.reset()
		return nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.stream != nil && !sess.stream.Closed() {
		closeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if c.InConfigMode() {
			if err := c.driver.ExitConfig(closeCtx, c); err != nil {
				logger.Debug("netdev: exit config before disconnect", "host", c.creds.Host, "error", err)
			}
		}
		if c.profile.ExitCommand != "" {
			_ = c.WriteLine(c.profile.ExitCommand)
		}
		cancel()
	}
	if pool != nil {
		pool.remove(sess)
	}
	if err := sess.close(); err != nil {
		logger.Debug("netdev: close transport", "host", c.creds.Host, "error", err)
	}
	c.reset()
	logger.Debug("netdev: disconnected", "host", c.creds.Host)
	return nil
}
