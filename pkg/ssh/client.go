package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/errs"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/logger"
)

const defaultTimeout = 20 * time.Second

// Endpoint SSH 连接目标
type Endpoint struct {
	Host     string
	Port     int
	Username string
	Auth     Auth
	Timeout  time.Duration
	// 为空时使用 DefaultAlgorithmSets
	Algorithms []AlgorithmSet
	// 为空时不校验主机密钥（设备多为自签名且频繁更换）
	HostKeyCallback ssh.HostKeyCallback
}

// Address host:port
func (e Endpoint) Address() string {
	port := e.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(port))
}

func (e Endpoint) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return defaultTimeout
}

type closer struct {
	name string
	fn   func() error
}

// closeTrace 记录资源关闭顺序，仅测试使用
var closeTrace func(name string)

// Client SSH 客户端，可能承载在跳板机转发的流上
type Client struct {
	conn      *ssh.Client
	addr      string
	algorithm string

	mu      sync.Mutex
	closed  bool
	closers []closer
}

// Dial 直连目标。私钥在发起任何网络连接之前校验；握手失败时按算法集顺序回退。
func Dial(ctx context.Context, ep Endpoint) (*Client, error) {
	methods, err := ep.Auth.Methods()
	if err != nil {
		return nil, err
	}
	dialer := &net.Dialer{Timeout: ep.timeout()}
	open := func(ctx context.Context) (net.Conn, error) {
		return dialer.DialContext(ctx, "tcp", ep.Address())
	}
	conn, set, err := handshake(ctx, ep, methods, open)
	if err != nil {
		return nil, err
	}
	c := &Client{conn: conn, addr: ep.Address(), algorithm: set}
	c.closers = []closer{{name: "client", fn: conn.Close}}
	return c, nil
}

// handshake 依次使用每个算法集建立新的底层连接并握手。
// 认证失败与超时不重试，避免账号锁定和无谓等待。
func handshake(ctx context.Context, ep Endpoint, methods []ssh.AuthMethod, open func(context.Context) (net.Conn, error)) (*ssh.Client, string, error) {
	sets := ep.Algorithms
	if len(sets) == 0 {
		sets = DefaultAlgorithmSets()
	}
	hostKey := ep.HostKeyCallback
	if hostKey == nil {
		hostKey = ssh.InsecureIgnoreHostKey()
	}
	addr := ep.Address()

	var lastErr error
	for _, set := range sets {
		if err := ctx.Err(); err != nil {
			return nil, "", errs.Wrap(errs.KindConnectionTimeout, err, "connect to %s", addr)
		}

		hctx, cancel := context.WithTimeout(ctx, ep.timeout())
		conn, err := open(hctx)
		if err != nil {
			cancel()
			return nil, "", errs.Classify(fmt.Errorf("dial %s: %w", addr, err))
		}

		cfg := &ssh.ClientConfig{
			User:            ep.Username,
			Auth:            methods,
			HostKeyCallback: hostKey,
			Timeout:         ep.timeout(),
		}
		set.apply(cfg)

		// 转发流不支持 SetDeadline，统一以关闭连接的方式打断握手
		stop := context.AfterFunc(hctx, func() { _ = conn.Close() })
		sc, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
		expired := !stop()
		cancel()

		if err == nil && expired {
			_ = sc.Close()
			err = context.DeadlineExceeded
		}
		if err != nil {
			_ = conn.Close()
			if expired {
				return nil, "", errs.Wrap(errs.KindConnectionTimeout, err, "handshake with %s timed out", addr)
			}
			classified := errs.Classify(err)
			if errs.KindOf(classified) == errs.KindAuthenticationFailed {
				return nil, "", classified
			}
			lastErr = err
			logger.Debug("ssh: handshake failed, trying next algorithm set", "address", addr, "set", set.Name, "error", err)
			continue
		}

		logger.Debug("ssh: handshake ok", "address", addr, "set", set.Name, "server", string(sc.ServerVersion()))
		return ssh.NewClient(sc, chans, reqs), set.Name, nil
	}
	return nil, "", errs.Wrap(errs.KindHostUnreachable, lastErr, "no algorithm set accepted by %s", addr)
}

// Algorithm 握手成功的算法集名称
func (c *Client) Algorithm() string { return c.algorithm }

// ServerVersion 服务端版本串，如 SSH-2.0-Cisco-1.25
func (c *Client) ServerVersion() string {
	if c.conn == nil {
		return ""
	}
	return string(c.conn.ServerVersion())
}

// newSessionWithRetry 创建会话通道。
// 部分设备在登录后立即打开通道会返回 "administratively prohibited"，短延迟重试。
func (c *Client) newSessionWithRetry(ctx context.Context) (*ssh.Session, error) {
	if c.isClosed() {
		return nil, errs.New(errs.KindChannelUnavailable, "ssh connection closed")
	}
	backoffs := []time.Duration{0, 200 * time.Millisecond, 500 * time.Millisecond, time.Second}
	var lastErr error
	for _, d := range backoffs {
		if d > 0 {
			select {
			case <-ctx.Done():
				return nil, errs.Wrap(errs.KindChannelUnavailable, ctx.Err(), "open session")
			case <-time.After(d):
			}
		}
		sess, err := c.conn.NewSession()
		if err == nil {
			return sess, nil
		}
		lastErr = err
		msg := strings.ToLower(err.Error())
		if !strings.Contains(msg, "prohibited") && !strings.Contains(msg, "open failed") {
			break
		}
	}
	return nil, errs.Wrap(errs.KindChannelUnavailable, lastErr, "open session")
}

// PtyOptions 伪终端参数
type PtyOptions struct {
	// 依次尝试的终端类型，为空时使用 vt100, xterm, ansi, dumb
	Terms  []string
	Width  int
	Height int
}

// Shell 交互式 Shell 通道，stdout 与 stderr 合并读取
type Shell struct {
	session *ssh.Session
	stdin   io.WriteCloser
	r       *io.PipeReader
	w       *io.PipeWriter
	term    string
	once    sync.Once
}

// OpenShell 申请 PTY 并启动 Shell
func (c *Client) OpenShell(ctx context.Context, opts PtyOptions) (*Shell, error) {
	session, err := c.newSessionWithRetry(ctx)
	if err != nil {
		return nil, err
	}

	terms := opts.Terms
	if len(terms) == 0 {
		terms = []string{"vt100", "xterm", "ansi", "dumb"}
	}
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 511
	}
	if height <= 0 {
		height = 24
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}

	var (
		term   string
		ptyErr error
	)
	for _, t := range terms {
		if ptyErr = session.RequestPty(t, height, width, modes); ptyErr == nil {
			term = t
			break
		}
	}
	if term == "" {
		_ = session.Close()
		return nil, errs.Wrap(errs.KindChannelUnavailable, ptyErr, "request pty")
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		_ = session.Close()
		return nil, errs.Wrap(errs.KindChannelUnavailable, err, "stdin pipe")
	}
	r, w := io.Pipe()
	session.Stdout = w
	session.Stderr = w

	if err := session.Shell(); err != nil {
		_ = session.Close()
		return nil, errs.Wrap(errs.KindChannelUnavailable, err, "start shell")
	}

	sh := &Shell{session: session, stdin: stdin, r: r, w: w, term: term}
	go func() {
		_ = session.Wait()
		_ = w.Close()
	}()
	return sh, nil
}

// Term 协商成功的终端类型
func (s *Shell) Term() string { return s.term }

func (s *Shell) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *Shell) Write(p []byte) (int, error) { return s.stdin.Write(p) }

// Close 关闭 Shell 会话，可重复调用
func (s *Shell) Close() error {
	var err error
	s.once.Do(func() {
		err = s.session.Close()
		_ = s.w.Close()
		if errors.Is(err, io.EOF) {
			err = nil
		}
	})
	return err
}

// ExecResult exec 通道执行结果
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Exec 在独立 exec 通道执行命令，分别返回 stdout、stderr 与退出码。
// 非零退出码不视为错误，由调用方判断。
func (c *Client) Exec(ctx context.Context, command string) (*ExecResult, error) {
	session, err := c.newSessionWithRetry(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	var stdout, stderr lockedBuffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case err := <-done:
		res := &ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}
		if err == nil {
			return res, nil
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitStatus()
			return res, nil
		}
		var missing *ssh.ExitMissingError
		if errors.As(err, &missing) {
			res.ExitCode = -1
			return res, nil
		}
		return res, errs.Classify(err)
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGTERM)
		res := &ExecResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: -1}
		return res, errs.Wrap(errs.KindPromptTimeout, ctx.Err(), "exec %q", command)
	}
}

// DialForward 通过本连接打开 direct-tcpip 转发流
func (c *Client) DialForward(ctx context.Context, addr string) (net.Conn, error) {
	if c.isClosed() {
		return nil, errs.New(errs.KindChannelUnavailable, "ssh connection closed")
	}
	conn, err := c.conn.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errs.Classify(fmt.Errorf("forward to %s: %w", addr, err))
	}
	return conn, nil
}

// Alive 轻量健康检查，不创建会话以免触发设备的会话数上限
func (c *Client) Alive() bool {
	if c.isClosed() {
		return false
	}
	_, _, err := c.conn.SendRequest("keepalive@openssh.com", false, nil)
	return err == nil
}

// KeepAlive 定期发送保活请求，失败时关闭连接
func (c *Client) KeepAlive(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.isClosed() {
				return
			}
			if !c.Alive() {
				logger.Debug("ssh: keepalive failed, closing", "address", c.addr)
				_ = c.Close()
				return
			}
		}
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed || c.conn == nil
}

// Close 按登记顺序关闭所有资源，可重复调用
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	closers := c.closers
	c.mu.Unlock()

	var first error
	for _, cl := range closers {
		if closeTrace != nil {
			closeTrace(cl.name)
		}
		if err := cl.fn(); err != nil && first == nil && !isClosedErr(err) {
			first = err
		}
	}
	return first
}

// release 关闭底层连接但不经过登记的关闭链，供外层客户端关闭其承载的跳板连接
func (c *Client) release() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close()
}

func isClosedErr(err error) bool {
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return true
	}
	return strings.Contains(err.Error(), "use of closed network connection")
}
