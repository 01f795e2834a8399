package ssh

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/logger"
)

// DialViaJumpHost 经跳板机连接目标设备：
// 先与跳板机握手，再由跳板机打开到目标的 direct-tcpip 转发流，最后在该流上与目标握手。
// 两次握手各自执行算法集回退；目标每次重试都会打开新的转发流。
// 任一阶段失败都会关闭已建立的资源。关闭顺序为目标会话、转发流、跳板机。
func DialViaJumpHost(ctx context.Context, jump, target Endpoint) (*Client, error) {
	// 两端的密钥都在联网前校验
	if _, err := jump.Auth.Methods(); err != nil {
		return nil, fmt.Errorf("jump host: %w", err)
	}
	targetMethods, err := target.Auth.Methods()
	if err != nil {
		return nil, err
	}

	bastion, err := Dial(ctx, jump)
	if err != nil {
		return nil, fmt.Errorf("jump host %s: %w", jump.Address(), err)
	}

	var (
		mu        sync.Mutex
		forwarded []net.Conn
	)
	open := func(ctx context.Context) (net.Conn, error) {
		conn, err := bastion.DialForward(ctx, target.Address())
		if err != nil {
			return nil, err
		}
		mu.Lock()
		forwarded = append(forwarded, conn)
		mu.Unlock()
		return conn, nil
	}

	conn, set, err := handshake(ctx, target, targetMethods, open)
	if err != nil {
		mu.Lock()
		for _, f := range forwarded {
			_ = f.Close()
		}
		mu.Unlock()
		_ = bastion.Close()
		return nil, fmt.Errorf("via jump host %s: %w", jump.Address(), err)
	}

	stream := forwarded[len(forwarded)-1]
	logger.Debug("ssh: connected via jump host", "jump", jump.Address(), "target", target.Address(), "set", set)

	c := &Client{conn: conn, addr: target.Address(), algorithm: set}
	c.closers = []closer{
		{name: "target", fn: conn.Close},
		{name: "forward", fn: func() error { _ = stream.Close(); return nil }},
		{name: "jump", fn: bastion.release},
	}
	return c, nil
}
