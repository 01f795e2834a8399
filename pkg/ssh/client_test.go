package ssh

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/errs"
)

func endpointFor(s *testServer, password string) Endpoint {
	host, port := s.hostPort()
	return Endpoint{
		Host:     host,
		Port:     port,
		Username: "admin",
		Auth:     Auth{Method: AuthPassword, Password: password},
		Timeout:  5 * time.Second,
	}
}

func TestDialAndExec(t *testing.T) {
	srv := startServer(t, serverOptions{password: "secret"})
	c, err := Dial(context.Background(), endpointFor(srv, "secret"))
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "modern", c.Algorithm())
	assert.True(t, c.Alive())

	res, err := c.Exec(context.Background(), "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Equal(t, 0, res.ExitCode)

	res, err = c.Exec(context.Background(), "fail")
	require.NoError(t, err)
	assert.Equal(t, "oops\n", res.Stderr)
	assert.Equal(t, 2, res.ExitCode)
}

func TestDialWrongPasswordIsNotRetried(t *testing.T) {
	srv := startServer(t, serverOptions{password: "secret"})
	_, err := Dial(context.Background(), endpointFor(srv, "wrong"))
	require.Error(t, err)
	assert.Equal(t, errs.KindAuthenticationFailed, errs.KindOf(err))
	assert.EqualValues(t, 1, srv.accepts.Load())
}

func TestDialRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().(*net.TCPAddr)
	l.Close()

	_, err = Dial(context.Background(), Endpoint{Host: "127.0.0.1", Port: addr.Port, Username: "admin", Auth: Auth{Password: "x"}, Timeout: time.Second})
	assert.Equal(t, errs.KindHostUnreachable, errs.KindOf(err))
}

func TestAlgorithmFallbackReachesLegacySet(t *testing.T) {
	srv := startServer(t, serverOptions{
		password: "secret",
		rsaHost:  true,
		ciphers:  []string{"aes128-cbc"},
		kex:      []string{"diffie-hellman-group14-sha1"},
		macs:     []string{"hmac-sha1"},
	})
	c, err := Dial(context.Background(), endpointFor(srv, "secret"))
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "legacy", c.Algorithm())
	assert.EqualValues(t, 3, srv.accepts.Load())
}

func TestInvalidKeyFailsBeforeNetwork(t *testing.T) {
	srv := startServer(t, serverOptions{password: "secret"})
	ep := endpointFor(srv, "")
	ep.Auth = Auth{Method: AuthPrivateKey, PrivateKey: "not a key"}

	_, err := Dial(context.Background(), ep)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidKey)
	assert.EqualValues(t, 0, srv.accepts.Load())
}

func generateKey(t *testing.T, passphrase string) (string, gossh.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	var block *pem.Block
	if passphrase == "" {
		block, err = gossh.MarshalPrivateKey(priv, "")
	} else {
		block, err = gossh.MarshalPrivateKeyWithPassphrase(priv, "", []byte(passphrase))
	}
	require.NoError(t, err)
	sshPub, err := gossh.NewPublicKey(pub)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(block)), sshPub
}

func TestPrivateKeyAuth(t *testing.T) {
	pemText, pub := generateKey(t, "s3cret")
	srv := startServer(t, serverOptions{publicKey: pub})
	ep := endpointFor(srv, "")

	ep.Auth = Auth{Method: AuthPrivateKey, PrivateKey: pemText}
	_, err := Dial(context.Background(), ep)
	assert.Equal(t, errs.KindInvalidKey, errs.KindOf(err), "encrypted key without passphrase")

	ep.Auth.Passphrase = "s3cret"
	c, err := Dial(context.Background(), ep)
	require.NoError(t, err)
	defer c.Close()
	res, err := c.Exec(context.Background(), "echo key")
	require.NoError(t, err)
	assert.Equal(t, "key\n", res.Stdout)
}

func TestOpenShellFallsBackTerm(t *testing.T) {
	srv := startServer(t, serverOptions{password: "secret", rejectPty: map[string]bool{"vt100": true}})
	c, err := Dial(context.Background(), endpointFor(srv, "secret"))
	require.NoError(t, err)
	defer c.Close()

	sh, err := c.OpenShell(context.Background(), PtyOptions{})
	require.NoError(t, err)
	defer sh.Close()
	assert.Equal(t, "xterm", sh.Term())

	_, err = sh.Write([]byte("show clock\r"))
	require.NoError(t, err)

	var out strings.Builder
	buf := make([]byte, 1024)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && !strings.Contains(out.String(), "output of show clock\r\nrouter#") {
		n, err := sh.Read(buf)
		out.Write(buf[:n])
		if err != nil {
			break
		}
	}
	assert.Contains(t, out.String(), "output of show clock")
	assert.NoError(t, sh.Close())
	assert.NoError(t, sh.Close())
}

func TestCloseMarksClientDead(t *testing.T) {
	srv := startServer(t, serverOptions{password: "secret"})
	c, err := Dial(context.Background(), endpointFor(srv, "secret"))
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.False(t, c.Alive())
	assert.NoError(t, c.Close())

	_, err = c.Exec(context.Background(), "echo x")
	assert.ErrorIs(t, err, errs.ErrChannelUnavailable)
}

func TestDialViaJumpHost(t *testing.T) {
	jump := startServer(t, serverOptions{password: "jumppw", forward: true})
	target := startServer(t, serverOptions{password: "secret"})

	var (
		mu    sync.Mutex
		order []string
	)
	closeTrace = func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}
	defer func() { closeTrace = nil }()

	c, err := DialViaJumpHost(context.Background(), endpointFor(jump, "jumppw"), endpointFor(target, "secret"))
	require.NoError(t, err)

	res, err := c.Exec(context.Background(), "echo through")
	require.NoError(t, err)
	assert.Equal(t, "through\n", res.Stdout)
	assert.EqualValues(t, 1, jump.accepts.Load())
	assert.EqualValues(t, 1, target.accepts.Load())

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	mu.Lock()
	assert.Equal(t, []string{"target", "forward", "jump"}, order)
	mu.Unlock()
	assert.Eventually(t, func() bool { return jump.active.Load() == 0 }, 5*time.Second, 20*time.Millisecond)
}

func TestJumpHostTargetFailureClosesBastion(t *testing.T) {
	jump := startServer(t, serverOptions{password: "jumppw", forward: true})
	target := startServer(t, serverOptions{password: "secret"})

	_, err := DialViaJumpHost(context.Background(), endpointFor(jump, "jumppw"), endpointFor(target, "bad"))
	require.Error(t, err)
	assert.Equal(t, errs.KindAuthenticationFailed, errs.KindOf(err))
	assert.Eventually(t, func() bool { return jump.active.Load() == 0 }, 5*time.Second, 20*time.Millisecond)
}

func TestJumpHostAuthFailure(t *testing.T) {
	jump := startServer(t, serverOptions{password: "jumppw", forward: true})
	target := startServer(t, serverOptions{password: "secret"})

	_, err := DialViaJumpHost(context.Background(), endpointFor(jump, "nope"), endpointFor(target, "secret"))
	require.Error(t, err)
	assert.Equal(t, errs.KindAuthenticationFailed, errs.KindOf(err))
	assert.Contains(t, err.Error(), "jump host")
	assert.EqualValues(t, 0, target.accepts.Load())
}
