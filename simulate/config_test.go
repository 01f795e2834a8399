package simulate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAppliesPresetsAndOutputs(t *testing.T) {
	cfg, err := FileConfig{
		Listen: "127.0.0.1:0",
		Devices: map[string]DeviceConfig{
			"r1":   {},
			"core": {Preset: "Huawei_VRP", Outputs: map[string]string{"display clock": "2024-03-04 10:15:42"}},
		},
	}.Build()
	require.NoError(t, err)

	assert.Equal(t, "r1", cfg.Devices["r1"].Hostname)
	assert.Equal(t, "terminal length 0", cfg.Devices["r1"].PagingOffCommand)
	assert.Equal(t, "<", cfg.Devices["core"].PromptPrefix)
	assert.Equal(t, "2024-03-04 10:15:42", cfg.Devices["core"].Outputs["display clock"])
}

func TestBuildRejectsUnknownPreset(t *testing.T) {
	_, err := FileConfig{Devices: map[string]DeviceConfig{"x": {Preset: "nokia"}}}.Build()
	assert.ErrorContains(t, err, "unknown preset")
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "simulate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: 127.0.0.1:2222
password: secret
devices:
  vmx:
    preset: juniper_junos
    hostname: vmx1
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:2222", cfg.Listen)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, "vmx1", cfg.Devices["vmx"].Hostname)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPreset(t *testing.T) {
	p, ok := Preset("LINUX", "box")
	require.True(t, ok)
	assert.Equal(t, "box", p.Hostname)
	_, ok = Preset("unknown", "box")
	assert.False(t, ok)
}
