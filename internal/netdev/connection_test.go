package netdev

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/channel"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/errs"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/simulate"
)

func iosProfile() *Profile {
	return &Profile{
		Name:              "test_ios",
		Terminators:       []string{"#", ">"},
		GenericPrompt:     true,
		DisablePaging:     []string{"terminal length 0"},
		SetupCommands:     []string{"terminal width 511"},
		HasPrivilegedMode: true,
		EnableCommand:     "enable",
		PrivilegedSuffix:  "#",
		EnablePrompt:      regexp.MustCompile(`(?i)password:\s*$`),
		HasConfigMode:     true,
		ConfigCommand:     "configure terminal",
		ExitConfigCommand: "end",
		ConfigPrompt:      regexp.MustCompile(`\(config[^)]*\)#$`),
		SaveMode:          SaveCommand,
		SaveCommand:       "write memory",
		SaveSuccess:       []string{"[OK]"},
		RunningConfig:     "show running-config",
		RebootCommand:     "reload",
		ExitCommand:       "exit",
		ErrorPatterns:     []string{"% Invalid input", "% Incomplete command", "% Bad secrets"},
		ReadOnlyPrefixes:  []string{"show "},
	}
}

func junosProfile() *Profile {
	return &Profile{
		Name:              "test_junos",
		Terminators:       []string{">", "#"},
		GenericPrompt:     true,
		DisablePaging:     []string{"set cli screen-length 0"},
		SetupCommands:     []string{"set cli screen-width 511"},
		HasConfigMode:     true,
		ConfigCommand:     "configure",
		ExitConfigCommand: "exit configuration-mode",
		ConfigPrompt:      regexp.MustCompile(`#$`),
		HasTwoPhaseCommit: true,
		CommitCommand:     "commit",
		CommitSuccess:     []string{"commit complete"},
		CommitErrors:      []string{"error:"},
		AbortCommand:      "rollback 0",
		SaveMode:          SaveOnCommit,
		RunningConfig:     "show configuration | display set | no-more",
		ErrorPatterns:     []string{"syntax error", "unknown command"},
		ArtifactPattern:   []*regexp.Regexp{regexp.MustCompile(`^\[edit.*\]$`)},
	}
}

// pipeDialer 每次拨号创建一个内存模拟设备并计数
type pipeDialer struct {
	mu         sync.Mutex
	build      func() *simulate.DeviceProfile
	rec        *simulate.Recorder
	transports []*simulate.PipeTransport
	delay      time.Duration
}

func newPipeDialer(build func() *simulate.DeviceProfile) *pipeDialer {
	return &pipeDialer{build: build, rec: &simulate.Recorder{}}
}

func (d *pipeDialer) Dial(ctx context.Context, creds Credentials) (Transport, error) {
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	t := simulate.NewPipeTransport(d.build(), d.rec)
	d.mu.Lock()
	d.transports = append(d.transports, t)
	d.mu.Unlock()
	return t, nil
}

func (d *pipeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.transports)
}

func (d *pipeDialer) last() *simulate.PipeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transports[len(d.transports)-1]
}

func testCreds(host string) Credentials {
	return Credentials{
		Host:           host,
		Username:       "admin",
		Password:       "nova",
		CommandTimeout: Seconds(3),
	}
}

func connectIOS(t *testing.T) (*Connection, *pipeDialer) {
	t.Helper()
	d := newPipeDialer(func() *simulate.DeviceProfile { return simulate.CiscoIOS("r1") })
	c := NewConnection(testCreds("r1"), &BaseDriver{P: iosProfile()}, Options{Dialer: d})
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { c.Disconnect(context.Background()) })
	return c, d
}

func TestConnectLearnsPromptAndEnables(t *testing.T) {
	c, d := connectIOS(t)

	assert.Equal(t, StateReady, c.State())
	assert.Equal(t, "r1", c.BasePrompt())
	assert.Equal(t, "r1#", c.Prompt())
	assert.True(t, c.InPrivilegedMode())
	assert.False(t, c.InConfigMode())
	assert.Equal(t, 1, d.rec.Count("terminal length 0"))
	assert.Equal(t, 1, d.rec.Count("terminal width 511"))
	assert.Equal(t, 1, d.rec.Count("enable"))
}

func TestBasePromptHasNoTerminator(t *testing.T) {
	cases := []struct {
		name    string
		build   func() *simulate.DeviceProfile
		profile *Profile
		want    string
	}{
		{"ios", func() *simulate.DeviceProfile { return simulate.CiscoIOS("edge-1") }, iosProfile(), "edge-1"},
		{"junos", func() *simulate.DeviceProfile { return simulate.JuniperJunos("srx") }, junosProfile(), "admin@srx"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewConnection(testCreds("h"), &BaseDriver{P: tc.profile}, Options{Dialer: newPipeDialer(tc.build)})
			require.NoError(t, c.Connect(context.Background()))
			defer c.Disconnect(context.Background())
			base := c.BasePrompt()
			assert.Equal(t, tc.want, base)
			assert.False(t, strings.ContainsAny(base[len(base)-1:], ">#$%"))
		})
	}
}

func TestPromptStem(t *testing.T) {
	assert.Equal(t, "R1", promptStem("R1(config-if)#", []string{"#"}))
	assert.Equal(t, "core", promptStem("<core>", []string{">", "]"}))
	assert.Equal(t, "core", promptStem("[~core]", []string{">", "]"}))
	assert.Equal(t, "admin@web", promptStem("admin@web:~$ ", []string{"$"}))
	assert.Equal(t, "FGT-1", promptStem("FGT-1 (vdom) #", []string{"#"}))
	assert.Equal(t, "switch", promptStem("switch*>", []string{">"}))
}

func TestSendCommandSanitizesOutput(t *testing.T) {
	c, _ := connectIOS(t)

	res, err := c.SendCommand(context.Background(), "show version")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "show version", res.Command)
	assert.True(t, strings.HasPrefix(res.Output, "Cisco IOS Software"), res.Output)
	assert.NotContains(t, res.Output, "show version")
	assert.False(t, strings.HasSuffix(strings.TrimSpace(res.Output), "r1#"))
	assert.Contains(t, res.Output, "r1 uptime is 3 weeks")

	again := c.Driver().Sanitize(c, res.Output, "show version")
	assert.Equal(t, res.Output, again)
	assert.Equal(t, StateReady, c.State())
}

func TestSendCommandRejected(t *testing.T) {
	c, _ := connectIOS(t)

	res, err := c.SendCommand(context.Background(), "show bogus")
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, errs.KindCommandRejected, res.Kind)
	assert.Contains(t, res.Error, "Invalid input")
	assert.Equal(t, StateReady, c.State())
}

func TestGetCurrentConfigAnswersPager(t *testing.T) {
	p := iosProfile()
	p.DisablePaging = nil
	d := newPipeDialer(func() *simulate.DeviceProfile { return simulate.CiscoIOS("r1") })
	c := NewConnection(testCreds("r1"), &BaseDriver{P: p}, Options{Dialer: d})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Disconnect(context.Background())

	res, err := c.GetCurrentConfig(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Output, "Building configuration..."), res.Output)
	assert.Contains(t, res.Output, "hostname r1")
	assert.Contains(t, res.Output, " description uplink")
	assert.NotContains(t, strings.ToLower(res.Output), "more")
	assert.True(t, strings.HasSuffix(res.Output, "end"), res.Output)
}

func TestSendConfigAbortsOnFirstError(t *testing.T) {
	c, d := connectIOS(t)

	res, err := c.SendConfig(context.Background(), []string{
		"interface GigabitEthernet0/1",
		"bogus command",
		"description never sent",
	})
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, errs.KindConfigurationError, errs.KindOf(err))
	assert.Contains(t, res.Error, "Invalid input")
	assert.Zero(t, d.rec.Count("description never sent"))
	assert.Equal(t, 1, d.rec.Count("end"))
	assert.False(t, c.InConfigMode())
	assert.Equal(t, StateReady, c.State())
	assert.Equal(t, "r1#", c.Prompt())
}

func TestSendConfigSuccess(t *testing.T) {
	c, d := connectIOS(t)

	res, err := c.SendConfig(context.Background(), []string{"interface GigabitEthernet0/1", "description uplink"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "interface GigabitEthernet0/1\ndescription uplink", res.Command)
	assert.Equal(t, 1, d.rec.Count("configure terminal"))
	assert.False(t, c.InConfigMode())

	// 配置后会话仍可用
	out, err := c.SendCommand(context.Background(), "show clock")
	require.NoError(t, err)
	assert.Equal(t, "*10:15:42.123 UTC Mon Mar 4 2024", out.Output)
}

func TestTwoPhaseCommit(t *testing.T) {
	d := newPipeDialer(func() *simulate.DeviceProfile { return simulate.JuniperJunos("srx") })
	c := NewConnection(testCreds("srx"), &BaseDriver{P: junosProfile()}, Options{Dialer: d})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Disconnect(context.Background())

	res, err := c.SendConfig(context.Background(), []string{"set interfaces ge-0/0/1 description uplink"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Output, "commit complete")
	assert.NotContains(t, res.Output, "[edit]")
	assert.Equal(t, 1, d.rec.Count("commit"))
	assert.Equal(t, 1, d.rec.Count("exit configuration-mode"))
	assert.False(t, c.InConfigMode())
	assert.Equal(t, "admin@srx>", c.Prompt())
}

func TestCommitFailureRollsBack(t *testing.T) {
	d := newPipeDialer(func() *simulate.DeviceProfile {
		p := simulate.JuniperJunos("srx")
		p.CommitFail = true
		return p
	})
	c := NewConnection(testCreds("srx"), &BaseDriver{P: junosProfile()}, Options{Dialer: d})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Disconnect(context.Background())

	res, err := c.SendConfig(context.Background(), []string{"set interfaces ge-0/0/1 description uplink"})
	require.Error(t, err)
	assert.Equal(t, errs.KindCommitFailed, res.Kind)
	assert.Equal(t, 1, d.rec.Count("rollback 0"))
	assert.Equal(t, 1, d.rec.Count("exit configuration-mode"))
	assert.False(t, c.InConfigMode())
}

func TestSaveConfig(t *testing.T) {
	c, d := connectIOS(t)
	res, err := c.SaveConfig(context.Background())
	require.NoError(t, err)
	assert.Contains(t, res.Output, "[OK]")
	assert.Equal(t, 1, d.rec.Count("write memory"))

	jd := newPipeDialer(func() *simulate.DeviceProfile { return simulate.JuniperJunos("srx") })
	jc := NewConnection(testCreds("srx"), &BaseDriver{P: junosProfile()}, Options{Dialer: jd})
	require.NoError(t, jc.Connect(context.Background()))
	defer jc.Disconnect(context.Background())
	res, err = jc.SaveConfig(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Zero(t, jd.rec.Count("save"))
}

func TestSaveUnsupported(t *testing.T) {
	p := iosProfile()
	p.SaveMode = SaveUnsupported
	c := NewConnection(testCreds("r1"), &BaseDriver{P: p}, Options{Dialer: newPipeDialer(func() *simulate.DeviceProfile { return simulate.CiscoIOS("r1") })})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Disconnect(context.Background())

	_, err := c.SaveConfig(context.Background())
	assert.Equal(t, errs.KindUnsupportedOperation, errs.KindOf(err))
	assert.Equal(t, StateReady, c.State())
}

func TestRebootAnswersConfirmAndTearsDown(t *testing.T) {
	c, d := connectIOS(t)

	res, err := c.RebootDevice(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Output, "Proceed with reload")
	assert.Equal(t, StateDisconnected, c.State())
	assert.True(t, d.last().Closed())

	_, err = c.SendCommand(context.Background(), "show clock")
	assert.Equal(t, errs.KindChannelUnavailable, errs.KindOf(err))
}

func TestRebootDeclinesSavePrompt(t *testing.T) {
	d := newPipeDialer(func() *simulate.DeviceProfile { return simulate.CiscoIOSUnsaved("r1") })
	c := NewConnection(testCreds("r1"), &BaseDriver{P: iosProfile()}, Options{Dialer: d})
	require.NoError(t, c.Connect(context.Background()))

	res, err := c.RebootDevice(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Output, "Proceed with reload")
	assert.Equal(t, 1, d.rec.Count("no"))
	assert.Zero(t, d.rec.Count("yes"))
	assert.False(t, d.rec.Saved())
	assert.True(t, d.last().Closed())
}

// 快速模式会把只读命令的超时当作成功，这是有意保留的冒险路径
func TestFastModeSwallowsReadOnlyTimeoutRiskyPath(t *testing.T) {
	build := func() *simulate.DeviceProfile {
		p := simulate.CiscoIOS("r1")
		p.Silent["show tech-support"] = true
		return p
	}
	creds := testCreds("r1")
	creds.CommandTimeout = Timeout(400 * time.Millisecond)

	slow := NewConnection(creds, &BaseDriver{P: iosProfile()}, Options{Dialer: newPipeDialer(build)})
	require.NoError(t, slow.Connect(context.Background()))
	defer slow.Disconnect(context.Background())
	res, err := slow.SendCommand(context.Background(), "show tech-support")
	require.Error(t, err)
	assert.Equal(t, errs.KindPromptTimeout, res.Kind)
	assert.Contains(t, res.Output, "working...")

	creds.FastMode = true
	fast := NewConnection(creds, &BaseDriver{P: iosProfile()}, Options{Dialer: newPipeDialer(build)})
	require.NoError(t, fast.Connect(context.Background()))
	defer fast.Disconnect(context.Background())
	res, err = fast.SendCommand(context.Background(), "show tech-support")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Output, "working...")

	// 非只读命令在快速模式下依然报告超时
	fast2 := NewConnection(creds, &BaseDriver{P: iosProfile()}, Options{Dialer: newPipeDialer(func() *simulate.DeviceProfile {
		p := simulate.CiscoIOS("r1")
		p.Silent["debug all"] = true
		return p
	})})
	require.NoError(t, fast2.Connect(context.Background()))
	defer fast2.Disconnect(context.Background())
	_, err = fast2.SendCommand(context.Background(), "debug all")
	assert.Equal(t, errs.KindPromptTimeout, errs.KindOf(err))
}

func TestOperationsRequireConnection(t *testing.T) {
	c := NewConnection(testCreds("r1"), &BaseDriver{P: iosProfile()}, Options{Dialer: newPipeDialer(func() *simulate.DeviceProfile { return simulate.CiscoIOS("r1") })})

	res, err := c.SendCommand(context.Background(), "show clock")
	assert.Equal(t, errs.KindChannelUnavailable, errs.KindOf(err))
	assert.False(t, res.Success)
	assert.NoError(t, c.Disconnect(context.Background()))

	require.NoError(t, c.Connect(context.Background()))
	defer c.Disconnect(context.Background())
	err = c.Connect(context.Background())
	assert.Equal(t, errs.KindInvalidState, errs.KindOf(err))
}

func TestConnectValidatesCredentials(t *testing.T) {
	d := newPipeDialer(func() *simulate.DeviceProfile { return simulate.CiscoIOS("r1") })
	creds := testCreds("")
	c := NewConnection(creds, &BaseDriver{P: iosProfile()}, Options{Dialer: d})
	err := c.Connect(context.Background())
	assert.Equal(t, errs.KindConfigurationError, errs.KindOf(err))
	assert.Zero(t, d.dials())
	assert.Equal(t, StateDisconnected, c.State())
}

func TestDisconnectClosesTransport(t *testing.T) {
	c, d := connectIOS(t)
	require.NoError(t, c.Disconnect(context.Background()))
	assert.Equal(t, StateDisconnected, c.State())
	assert.True(t, d.last().Closed())
	assert.Eventually(t, func() bool { return d.rec.Count("exit") == 1 }, time.Second, 10*time.Millisecond)
}

func TestBrokenChannelDisconnects(t *testing.T) {
	c, d := connectIOS(t)
	require.NoError(t, d.last().Close())

	res, err := c.SendCommand(context.Background(), "show clock")
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, errs.KindChannelUnavailable, errs.KindOf(err))
	assert.Equal(t, StateDisconnected, c.State())
}

func TestAfterEchoIgnoresStalePrompt(t *testing.T) {
	m := afterEcho("show clock", &channel.PromptMatcher{Prompts: []string{"r1#"}})
	assert.False(t, m.Match("r1#"))
	assert.False(t, m.Match("r1#show clock"))
	assert.True(t, m.Match("r1#show clock\r\n10:00\r\nr1#"))
}

func TestSendConfigNeedsPrivilege(t *testing.T) {
	// 非特权用户进入配置模式会被拒绝
	creds := testCreds("r1")
	creds.Password = "wrong"
	d := newPipeDialer(func() *simulate.DeviceProfile { return simulate.CiscoIOS("r1") })
	c := NewConnection(creds, &BaseDriver{P: iosProfile()}, Options{Dialer: d})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Disconnect(context.Background())
	assert.False(t, c.InPrivilegedMode())
	assert.Equal(t, "r1>", c.Prompt())

	res, err := c.SendConfig(context.Background(), []string{"interface GigabitEthernet0/1"})
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, errs.KindAuthenticationFailed, errs.KindOf(err))
	assert.False(t, c.InConfigMode())
	assert.Equal(t, StateReady, c.State())
}
