package simulate

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cli 测试端：写一行，读到指定结尾
type cli struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func startCLI(t *testing.T, p *DeviceProfile) (*cli, *Recorder, chan error) {
	t.Helper()
	client, server := net.Pipe()
	rec := &Recorder{}
	done := make(chan error, 1)
	go func() {
		done <- Serve(p, server, rec)
		server.Close()
	}()
	t.Cleanup(func() { client.Close() })
	return &cli{t: t, conn: client, r: bufio.NewReader(client)}, rec, done
}

func (c *cli) readUntil(suffix string) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var sb strings.Builder
	for !strings.HasSuffix(sb.String(), suffix) {
		b, err := c.r.ReadByte()
		require.NoError(c.t, err, "got %q", sb.String())
		sb.WriteByte(b)
	}
	return sb.String()
}

func (c *cli) send(line string) {
	c.t.Helper()
	_, err := io.WriteString(c.conn, line+"\r\n")
	require.NoError(c.t, err)
}

func TestServeEnableAndConfig(t *testing.T) {
	c, rec, _ := startCLI(t, CiscoIOS("r1"))
	c.readUntil("r1>")

	c.send("configure terminal")
	assert.Contains(t, c.readUntil("r1>"), "% Invalid input")

	c.send("enable")
	c.readUntil("Password: ")
	c.send("nova")
	c.readUntil("r1#")

	c.send("configure terminal")
	c.readUntil("r1(config)#")
	c.send("bogus command")
	assert.Contains(t, c.readUntil("r1(config)#"), "% Invalid input")
	c.send("end")
	c.readUntil("r1#")

	assert.Equal(t, 2, rec.Count("configure terminal"))
	assert.Zero(t, rec.Count("nova"), "enable secret must not be recorded")
}

func TestServePagesUntilDisabled(t *testing.T) {
	c, _, _ := startCLI(t, CiscoIOS("r1"))
	c.readUntil("r1>")

	c.send("show running-config")
	c.readUntil("--More-- ")
	_, err := io.WriteString(c.conn, " ")
	require.NoError(t, err)
	assert.Contains(t, c.readUntil("r1>"), "end")

	c.send("terminal length 0")
	c.readUntil("r1>")
	c.send("show running-config")
	out := c.readUntil("r1>")
	assert.NotContains(t, out, "--More--")
	assert.Contains(t, out, "hostname r1")
}

func TestServeRebootEndsSession(t *testing.T) {
	c, rec, done := startCLI(t, HuaweiVRP("core"))
	c.readUntil("<core>")
	c.send("reboot")
	c.readUntil("[y/n]:")
	_ = c.conn.SetReadDeadline(time.Time{})
	go func() { _, _ = io.Copy(io.Discard, c.r) }()
	c.send("y")

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrRebooted)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end after reboot")
	}
	assert.Equal(t, 1, rec.Count("y"))
}

func TestServeCommitAndAbort(t *testing.T) {
	c, rec, _ := startCLI(t, JuniperJunos("vmx1"))
	c.readUntil("admin@vmx1>")
	c.send("configure")
	c.readUntil("admin@vmx1#")
	c.send("set system host-name vmx1")
	c.readUntil("admin@vmx1#")
	c.send("commit")
	assert.Contains(t, c.readUntil("admin@vmx1#"), "commit complete")
	c.send("rollback 0")
	c.readUntil("admin@vmx1#")
	c.send("exit configuration-mode")
	c.readUntil("admin@vmx1>")
	assert.Equal(t, 1, rec.Count("rollback 0"))
}

func TestExecOutputs(t *testing.T) {
	p := Linux("core")
	out, _, code := Exec(p, "hostname")
	assert.Equal(t, "core\n", out)
	assert.Zero(t, code)

	_, _, code = Exec(p, "false")
	assert.Equal(t, 1, code)

	_, stderr, code := Exec(p, "nosuch --flag")
	assert.Equal(t, 127, code)
	assert.Contains(t, stderr, "nosuch")
}
