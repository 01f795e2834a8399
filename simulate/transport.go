package simulate

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/errs"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/ssh"
)

// PipeTransport 内存传输：每个 Shell 为一对 net.Pipe，另一端运行设备模拟
type PipeTransport struct {
	Profile  *DeviceProfile
	Recorder *Recorder

	mu     sync.Mutex
	conns  []net.Conn
	closed atomic.Bool
	// 重启后设备端断开
	rebooted atomic.Bool
	execs    atomic.Int32
}

// NewPipeTransport 创建内存传输
func NewPipeTransport(p *DeviceProfile, rec *Recorder) *PipeTransport {
	return &PipeTransport{Profile: p, Recorder: rec}
}

// OpenShell 打开模拟 Shell
func (t *PipeTransport) OpenShell(ctx context.Context, _ ssh.PtyOptions) (io.ReadWriteCloser, error) {
	if t.closed.Load() {
		return nil, errs.New(errs.KindChannelUnavailable, "transport closed")
	}
	client, server := net.Pipe()
	t.mu.Lock()
	t.conns = append(t.conns, client, server)
	t.mu.Unlock()
	go func() {
		err := Serve(t.Profile, server, t.Recorder)
		if err == ErrRebooted {
			t.rebooted.Store(true)
		}
		_ = server.Close()
	}()
	return client, nil
}

// Exec 模拟 exec 通道
func (t *PipeTransport) Exec(ctx context.Context, command string) (*ssh.ExecResult, error) {
	if t.closed.Load() {
		return nil, errs.New(errs.KindChannelUnavailable, "transport closed")
	}
	t.execs.Add(1)
	t.Recorder.add("exec:" + command)
	stdout, stderr, code := Exec(t.Profile, command)
	return &ssh.ExecResult{Stdout: stdout, Stderr: stderr, ExitCode: code}, nil
}

// Execs exec 调用次数
func (t *PipeTransport) Execs() int { return int(t.execs.Load()) }

// Alive 连接是否存活
func (t *PipeTransport) Alive() bool {
	return !t.closed.Load() && !t.rebooted.Load()
}

// Closed 是否已关闭
func (t *PipeTransport) Closed() bool { return t.closed.Load() }

// Close 关闭所有管道
func (t *PipeTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.conns {
		_ = c.Close()
	}
	return nil
}
