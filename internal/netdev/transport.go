package netdev

import (
	"context"
	"io"
	"time"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/ssh"
)

// Transport 会话引擎依赖的传输能力：交互式 Shell、exec 通道、存活探测
type Transport interface {
	OpenShell(ctx context.Context, opts ssh.PtyOptions) (io.ReadWriteCloser, error)
	Exec(ctx context.Context, command string) (*ssh.ExecResult, error)
	Alive() bool
	Close() error
}

// KeepAliver 可选能力，传输支持保活时由 Connection 在后台驱动
type KeepAliver interface {
	KeepAlive(ctx context.Context, interval time.Duration)
}

// Dialer 建立到设备的传输
type Dialer interface {
	Dial(ctx context.Context, creds Credentials) (Transport, error)
}

// DialerFunc 函数适配器
type DialerFunc func(ctx context.Context, creds Credentials) (Transport, error)

// Dial 实现 Dialer
func (f DialerFunc) Dial(ctx context.Context, creds Credentials) (Transport, error) {
	return f(ctx, creds)
}

// SSHDialer 基于 x/crypto/ssh 的默认拨号器，配置了跳板机时走两跳隧道
type SSHDialer struct {
	// 为空时使用 ssh.DefaultAlgorithmSets
	Algorithms []ssh.AlgorithmSet
}

// Dial 实现 Dialer
func (d *SSHDialer) Dial(ctx context.Context, creds Credentials) (Transport, error) {
	target := creds.Endpoint()
	target.Algorithms = d.Algorithms
	var (
		client *ssh.Client
		err    error
	)
	if jump, ok := creds.JumpEndpoint(); ok {
		jump.Algorithms = d.Algorithms
		client, err = ssh.DialViaJumpHost(ctx, jump, target)
	} else {
		client, err = ssh.Dial(ctx, target)
	}
	if err != nil {
		return nil, err
	}
	return &sshTransport{Client: client}, nil
}

type sshTransport struct {
	*ssh.Client
}

func (t *sshTransport) OpenShell(ctx context.Context, opts ssh.PtyOptions) (io.ReadWriteCloser, error) {
	sh, err := t.Client.OpenShell(ctx, opts)
	if err != nil {
		return nil, err
	}
	return sh, nil
}
