package channel

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/errs"
)

// fakeDevice 在 net.Pipe 的另一端按行应答
func fakeDevice(t *testing.T, handle func(line string, w net.Conn)) *Stream {
	t.Helper()
	client, server := net.Pipe()
	go func() {
		r := bufio.NewReader(server)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			handle(strings.TrimRight(line, "\r\n"), server)
		}
	}()
	s := NewStream(client, Options{})
	t.Cleanup(func() {
		s.Close()
		server.Close()
	})
	return s
}

func TestReadUntilPrompt(t *testing.T) {
	s := fakeDevice(t, func(line string, w net.Conn) {
		w.Write([]byte(line + "\r\nline a\r\nline b\r\nR1#"))
	})

	require.NoError(t, s.Write("show ver\n"))
	out, err := s.ReadUntil(context.Background(), ReadOptions{
		Matcher:  &PromptMatcher{Prompts: []string{"R1#"}},
		Timeout:  2 * time.Second,
		Debounce: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, "line a\nline b\n", StripTrailingPrompt(StripEcho(Clean(out), "show ver"), &PromptMatcher{Prompts: []string{"R1#"}}))
}

func TestReadUntilTimeoutReturnsPartial(t *testing.T) {
	s := fakeDevice(t, func(line string, w net.Conn) {
		w.Write([]byte("working..."))
	})

	require.NoError(t, s.Write("slow\n"))
	out, err := s.ReadUntil(context.Background(), ReadOptions{
		Matcher: &PromptMatcher{Prompts: []string{"R1#"}},
		Timeout: 150 * time.Millisecond,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrPromptTimeout)
	assert.Equal(t, "working...", out)
}

func TestReadUntilAnswersPager(t *testing.T) {
	client, server := net.Pipe()
	s := NewStream(client, Options{})
	defer s.Close()
	defer server.Close()

	gotSpace := make(chan bool, 1)
	go func() {
		r := bufio.NewReader(server)
		if _, err := r.ReadString('\n'); err != nil {
			return
		}
		server.Write([]byte("hostname R1\r\n --More-- "))
		b, err := r.ReadByte()
		gotSpace <- err == nil && b == ' '
		server.Write([]byte(strings.Repeat("\b", 10) + "interface Gi0/1\r\nR1#"))
	}()

	require.NoError(t, s.Write("show run\n"))
	out, err := s.ReadUntil(context.Background(), ReadOptions{
		Matcher:    &PromptMatcher{Prompts: []string{"R1#"}},
		Timeout:    2 * time.Second,
		Responders: PagerResponders(),
	})
	require.NoError(t, err)
	assert.True(t, <-gotSpace)
	assert.Equal(t, "hostname R1\ninterface Gi0/1\nR1#", Clean(out))
}

func TestReadFor(t *testing.T) {
	s := fakeDevice(t, func(line string, w net.Conn) {
		w.Write([]byte("banner"))
	})
	require.NoError(t, s.Write("\n"))
	out, err := s.ReadFor(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "banner", out)
	assert.Equal(t, "", s.Drain())
}

func TestWriteAfterCloseIsChannelUnavailable(t *testing.T) {
	s := fakeDevice(t, func(string, net.Conn) {})
	require.NoError(t, s.Close())
	err := s.Write("show clock\n")
	assert.Equal(t, errs.KindChannelUnavailable, errs.KindOf(err))
	assert.True(t, s.Closed())
}

func TestReadUntilPeerClosed(t *testing.T) {
	client, server := net.Pipe()
	s := NewStream(client, Options{})
	defer s.Close()
	go func() {
		server.Write([]byte("bye"))
		server.Close()
	}()
	out, err := s.ReadUntil(context.Background(), ReadOptions{Matcher: &PromptMatcher{Prompts: []string{"R1#"}}, Timeout: time.Second})
	assert.Equal(t, "bye", out)
	assert.Equal(t, errs.KindChannelUnavailable, errs.KindOf(err))
}
