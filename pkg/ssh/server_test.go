package ssh

import (
	"bufio"
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	gossh "golang.org/x/crypto/ssh"
)

type serverOptions struct {
	password  string
	publicKey gossh.PublicKey
	rsaHost   bool
	ciphers   []string
	kex       []string
	macs      []string
	forward   bool
	rejectPty map[string]bool
}

type testServer struct {
	addr    string
	accepts atomic.Int32
	active  atomic.Int32
	ptyTerm atomic.Value
}

func startServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	var signer gossh.Signer
	if opts.rsaHost {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generate rsa key: %v", err)
		}
		signer, err = gossh.NewSignerFromKey(key)
		if err != nil {
			t.Fatalf("rsa signer: %v", err)
		}
	} else {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			t.Fatalf("generate ed25519 key: %v", err)
		}
		signer, err = gossh.NewSignerFromKey(priv)
		if err != nil {
			t.Fatalf("ed25519 signer: %v", err)
		}
	}

	cfg := &gossh.ServerConfig{}
	cfg.Ciphers = opts.ciphers
	cfg.KeyExchanges = opts.kex
	cfg.MACs = opts.macs
	if opts.password != "" {
		cfg.PasswordCallback = func(c gossh.ConnMetadata, pass []byte) (*gossh.Permissions, error) {
			if c.User() == "admin" && string(pass) == opts.password {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %q", c.User())
		}
	}
	if opts.publicKey != nil {
		want := opts.publicKey.Marshal()
		cfg.PublicKeyCallback = func(c gossh.ConnMetadata, key gossh.PublicKey) (*gossh.Permissions, error) {
			if bytes.Equal(key.Marshal(), want) {
				return nil, nil
			}
			return nil, fmt.Errorf("unknown key")
		}
	}
	cfg.AddHostKey(signer)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &testServer{addr: l.Addr().String()}
	t.Cleanup(func() { l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			s.accepts.Add(1)
			go s.serve(conn, cfg, opts)
		}
	}()
	return s
}

func (s *testServer) hostPort() (string, int) {
	host, port, _ := net.SplitHostPort(s.addr)
	var p int
	fmt.Sscanf(port, "%d", &p)
	return host, p
}

func (s *testServer) serve(nc net.Conn, cfg *gossh.ServerConfig, opts serverOptions) {
	defer nc.Close()
	conn, chans, reqs, err := gossh.NewServerConn(nc, cfg)
	if err != nil {
		return
	}
	s.active.Add(1)
	defer s.active.Add(-1)
	defer conn.Close()
	go gossh.DiscardRequests(reqs)

	var wg sync.WaitGroup
	for nch := range chans {
		switch nch.ChannelType() {
		case "session":
			ch, creqs, err := nch.Accept()
			if err != nil {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.serveSession(ch, creqs, opts)
			}()
		case "direct-tcpip":
			if !opts.forward {
				nch.Reject(gossh.Prohibited, "forwarding disabled")
				continue
			}
			go serveDirectTCPIP(nch)
		default:
			nch.Reject(gossh.UnknownChannelType, "unsupported channel type")
		}
	}
	wg.Wait()
}

func (s *testServer) serveSession(ch gossh.Channel, reqs <-chan *gossh.Request, opts serverOptions) {
	defer ch.Close()
	for req := range reqs {
		switch req.Type {
		case "pty-req":
			term := ptyTerm(req.Payload)
			if opts.rejectPty[term] {
				req.Reply(false, nil)
				continue
			}
			s.ptyTerm.Store(term)
			req.Reply(true, nil)
		case "shell":
			req.Reply(true, nil)
			runShell(ch)
			return
		case "exec":
			var payload struct{ Command string }
			gossh.Unmarshal(req.Payload, &payload)
			req.Reply(true, nil)
			code := runExec(ch, payload.Command)
			ch.SendRequest("exit-status", false, gossh.Marshal(struct{ Status uint32 }{code}))
			return
		default:
			req.Reply(false, nil)
		}
	}
}

func ptyTerm(payload []byte) string {
	var p struct {
		Term     string
		Columns  uint32
		Rows     uint32
		Width    uint32
		Height   uint32
		Modelist string
	}
	gossh.Unmarshal(payload, &p)
	return p.Term
}

func runShell(ch gossh.Channel) {
	io.WriteString(ch, "Welcome\r\nrouter#")
	r := bufio.NewReader(ch)
	for {
		line, err := r.ReadString('\r')
		if err != nil {
			return
		}
		cmd := strings.TrimSpace(line)
		if cmd == "exit" {
			return
		}
		io.WriteString(ch, cmd+"\r\n")
		if cmd != "" {
			io.WriteString(ch, "output of "+cmd+"\r\n")
		}
		io.WriteString(ch, "router#")
	}
}

func runExec(ch gossh.Channel, command string) uint32 {
	switch {
	case strings.HasPrefix(command, "echo "):
		io.WriteString(ch, strings.TrimPrefix(command, "echo ")+"\n")
		return 0
	case command == "fail":
		io.WriteString(ch.Stderr(), "oops\n")
		return 2
	default:
		io.WriteString(ch.Stderr(), command+": command not found\n")
		return 127
	}
}

type directTCPIPData struct {
	DestHost   string
	DestPort   uint32
	OriginHost string
	OriginPort uint32
}

func serveDirectTCPIP(nch gossh.NewChannel) {
	var data directTCPIPData
	if err := gossh.Unmarshal(nch.ExtraData(), &data); err != nil {
		nch.Reject(gossh.ConnectionFailed, "invalid payload")
		return
	}
	dest, err := net.Dial("tcp", net.JoinHostPort(data.DestHost, fmt.Sprint(data.DestPort)))
	if err != nil {
		nch.Reject(gossh.ConnectionFailed, err.Error())
		return
	}
	defer dest.Close()

	ch, reqs, err := nch.Accept()
	if err != nil {
		return
	}
	defer ch.Close()
	go gossh.DiscardRequests(reqs)

	done := make(chan struct{}, 2)
	go func() { io.Copy(ch, dest); done <- struct{}{} }()
	go func() { io.Copy(dest, ch); done <- struct{}{} }()
	<-done
}
