package simulate

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/logger"
)

// ServerConfig 模拟 SSH 服务配置。用户名选择设备，所有设备共用登录密码。
type ServerConfig struct {
	Listen   string                    `mapstructure:"listen" yaml:"listen"`
	Password string                    `mapstructure:"password" yaml:"password"`
	Devices  map[string]*DeviceProfile `mapstructure:"devices" yaml:"devices"`
	// 为空时使用内存生成的主机密钥
	HostKeyPath string `mapstructure:"host_key_path" yaml:"host_key_path"`
	MaxConn     int    `mapstructure:"max_conn" yaml:"max_conn"`
	// 允许作为跳板机转发 direct-tcpip
	AllowForward bool `mapstructure:"allow_forward" yaml:"allow_forward"`
}

// Server 模拟 SSH 服务
type Server struct {
	cfg      ServerConfig
	hostKey  ssh.Signer
	listener net.Listener
	recorder *Recorder

	mu      sync.Mutex
	active  int
	accepts int
	wg      sync.WaitGroup
}

// NewServer 创建服务，未启动
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Password == "" {
		cfg.Password = "nova"
	}
	key, err := loadOrCreateHostKey(cfg.HostKeyPath)
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, hostKey: key, recorder: &Recorder{}}, nil
}

// Recorder 所有会话收到的命令
func (s *Server) Recorder() *Recorder { return s.recorder }

// Accepts 已接受的 TCP 连接数
func (s *Server) Accepts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepts
}

// Active 当前活跃连接数
func (s *Server) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Start 开始监听
func (s *Server) Start() error {
	addr := s.cfg.Listen
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	logger.Debug("Simulate: listener started", "addr", ln.Addr().String())

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					time.Sleep(200 * time.Millisecond)
					continue
				}
				return
			}
			s.mu.Lock()
			s.accepts++
			if s.cfg.MaxConn > 0 && s.active >= s.cfg.MaxConn {
				s.mu.Unlock()
				_ = conn.Close()
				logger.Warn("Simulate: reject connection, max_conn exceeded", "active", s.active)
				continue
			}
			s.active++
			s.mu.Unlock()

			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.handleConn(c)
				s.mu.Lock()
				s.active--
				s.mu.Unlock()
			}(conn)
		}
	}()
	return nil
}

// Addr 实际监听地址
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop 停止监听并等待连接结束
func (s *Server) Stop() {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
}

func (s *Server) device(user string) *DeviceProfile {
	if p, ok := s.cfg.Devices[user]; ok {
		return p
	}
	return CiscoIOS(user)
}

func (s *Server) handleConn(nc net.Conn) {
	defer nc.Close()
	srvCfg := &ssh.ServerConfig{
		PasswordCallback: func(meta ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if strings.TrimSpace(string(password)) == s.cfg.Password {
				return nil, nil
			}
			logger.Debug("Simulate: auth failed (password)", "user", meta.User())
			return nil, fmt.Errorf("access denied")
		},
		KeyboardInteractiveCallback: func(meta ssh.ConnMetadata, challenge ssh.KeyboardInteractiveChallenge) (*ssh.Permissions, error) {
			answers, err := challenge(meta.User(), "Authentication", []string{"Password:"}, []bool{false})
			if err != nil {
				return nil, err
			}
			if len(answers) > 0 && strings.TrimSpace(answers[0]) == s.cfg.Password {
				return nil, nil
			}
			return nil, fmt.Errorf("access denied")
		},
	}
	srvCfg.AddHostKey(s.hostKey)

	conn, chans, reqs, err := ssh.NewServerConn(nc, srvCfg)
	if err != nil {
		logger.Debug("Simulate: SSH handshake failed", "remote", nc.RemoteAddr().String(), "error", err)
		return
	}
	defer conn.Close()
	go ssh.DiscardRequests(reqs)

	profile := s.device(conn.User())
	for ch := range chans {
		switch ch.ChannelType() {
		case "session":
			channel, requests, err := ch.Accept()
			if err != nil {
				continue
			}
			go s.handleSession(channel, requests, profile, conn)
		case "direct-tcpip":
			if !s.cfg.AllowForward {
				_ = ch.Reject(ssh.Prohibited, "forwarding disabled")
				continue
			}
			go forward(ch)
		default:
			_ = ch.Reject(ssh.UnknownChannelType, "unknown channel type")
		}
	}
}

func (s *Server) handleSession(channel ssh.Channel, requests <-chan *ssh.Request, p *DeviceProfile, conn *ssh.ServerConn) {
	defer channel.Close()
	for req := range requests {
		switch req.Type {
		case "pty-req":
			_ = req.Reply(true, nil)
		case "shell":
			_ = req.Reply(true, nil)
			if err := Serve(p, channel, s.recorder); errors.Is(err, ErrRebooted) {
				_ = conn.Close()
			}
			return
		case "exec":
			var payload struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
				_ = req.Reply(false, nil)
				return
			}
			_ = req.Reply(true, nil)
			s.recorder.add("exec:" + payload.Command)
			stdout, stderr, code := Exec(p, payload.Command)
			_, _ = channel.Write([]byte(stdout))
			_, _ = channel.Stderr().Write([]byte(stderr))
			_, _ = channel.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{uint32(code)}))
			return
		default:
			_ = req.Reply(false, nil)
		}
	}
}

type directTCPIP struct {
	DestHost   string
	DestPort   uint32
	OriginHost string
	OriginPort uint32
}

func forward(nch ssh.NewChannel) {
	var data directTCPIP
	if err := ssh.Unmarshal(nch.ExtraData(), &data); err != nil {
		_ = nch.Reject(ssh.ConnectionFailed, "invalid payload")
		return
	}
	dest, err := net.Dial("tcp", net.JoinHostPort(data.DestHost, fmt.Sprint(data.DestPort)))
	if err != nil {
		_ = nch.Reject(ssh.ConnectionFailed, err.Error())
		return
	}
	defer dest.Close()
	ch, reqs, err := nch.Accept()
	if err != nil {
		return
	}
	defer ch.Close()
	go ssh.DiscardRequests(reqs)

	done := make(chan struct{}, 2)
	go func() { _, _ = io.Copy(ch, dest); done <- struct{}{} }()
	go func() { _, _ = io.Copy(dest, ch); done <- struct{}{} }()
	<-done
}

func loadOrCreateHostKey(path string) (ssh.Signer, error) {
	if path != "" {
		if bs, err := os.ReadFile(path); err == nil {
			if signer, err := ssh.ParsePrivateKey(bs); err == nil {
				return signer, nil
			}
			logger.Warn("Simulate: host key parse failed, regenerating", "file", path)
		}
	}
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate host key: %w", err)
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
			block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
			if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
				logger.Warn("Simulate: host key write failed", "file", path, "error", err)
			}
		}
	}
	return ssh.NewSignerFromKey(key)
}
