package interact_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/simulate"
)

func fortigate(vdom string) func() *simulate.DeviceProfile {
	return func() *simulate.DeviceProfile {
		return &simulate.DeviceProfile{
			Hostname:   "FGT-1",
			UserSuffix: "#",
			Outputs: map[string]string{
				"get system status":     "Version: FortiGate-VM64 v7.2.5,build1517\nVirtual domain configuration: " + vdom,
				"config global":         "",
				"config system console": "",
				"set output standard":   "",
				"end":                   "",
				"config vdom":           "",
				"edit root":             "current vf=root:0",
				"show":                  "config system global\n    set hostname \"FGT-1\"\nend",
			},
		}
	}
}

func TestFortiOSMultiVDOMEntersContext(t *testing.T) {
	disp, dialer := dispatcherFor(fortigate("multiple"))
	c := creds("fgt", "fortinet")
	c.Context = "root"

	res, err := disp.Execute(context.Background(), c, interact.Request{Operation: interact.OpGetRunningConfig})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Output, "set hostname")
	assert.Equal(t, 1, dialer.rec.Count("config global"))
	assert.Equal(t, 1, dialer.rec.Count("edit root"))
}

func TestFortiOSSingleVDOMSkipsContext(t *testing.T) {
	disp, dialer := dispatcherFor(fortigate("disable"))
	c := creds("fgt", "fortigate")
	c.Context = "root"

	res, err := disp.Execute(context.Background(), c, interact.Request{Operation: interact.OpSendCommand, Command: "get system status"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 0, dialer.rec.Count("config global"))
	assert.Equal(t, 0, dialer.rec.Count("config vdom"))
	assert.Equal(t, 1, dialer.rec.Count("set output standard"))
}
