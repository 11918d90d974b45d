package configs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/openstack-archive/networking-zvm/pkg/terrors"
	"github.com/openstack-archive/networking-zvm/pkg/test/assert"
)

func newTestConfig(t *testing.T) *Config {
	conf, err := New()
	assert.NilErr(t, err)
	conf.XCAT.Server = "10.0.0.1"
	conf.XCAT.Username = "admin"
	conf.XCAT.Password = "passw0rd"
	return conf
}

func TestDefaults(t *testing.T) {
	conf, err := New()
	assert.NilErr(t, err)
	assert.Equal(t, 2*time.Second, conf.PollingInterval.Duration())
	assert.Equal(t, 300*time.Second, conf.XCAT.Timeout.Duration())
	assert.Equal(t, "zhcp", conf.XCAT.ZHCPNodename)
	assert.Equal(t, 1000, conf.XCAT.MaxRegrantBatch)
	assert.Equal(t, "2.8.3.16", conf.XCAT.MinVersion)
	assert.Equal(t, 5*time.Second, conf.Monitor.RetryDelay.Duration())
	assert.Equal(t, "https", conf.XCAT.Scheme)
	assert.Equal(t, 90*time.Second, conf.AgentStateTTL())
}

func TestLoad(t *testing.T) {
	var file = filepath.Join(t.TempDir(), "agent.toml")
	var raw = `
host = "zvm01"
polling_interval = "5s"

[xcat]
server = "xcat.example.com"
username = "admin"
password = "secret"
mgt_ip = "10.1.1.1"
mgt_mask = "255.255.0.0"

[network]
flat_networks = ["xcatvsw2"]
network_vlan_ranges = ["datanet1:100:200"]

[[vswitches]]
name = "datanet1"
rdev_list = "6243"
`
	assert.NilErr(t, os.WriteFile(file, []byte(raw), 0600))

	conf, err := New()
	assert.NilErr(t, err)
	assert.NilErr(t, conf.Load([]string{file}))
	assert.NilErr(t, conf.Check())

	assert.Equal(t, "zvm01", conf.Host)
	assert.Equal(t, 5*time.Second, conf.PollingInterval.Duration())
	assert.Equal(t, "zhcp", conf.XCAT.ZHCPNodename)
	assert.Equal(t, []string{"xcatvsw2"}, conf.Network.FlatNetworks)
	assert.Equal(t, "6243", conf.RdevList("datanet1"))
	assert.Equal(t, "", conf.RdevList("xcatvsw2"))
}

func TestLoadHostFallback(t *testing.T) {
	conf := newTestConfig(t)
	assert.NilErr(t, conf.Load(nil))
	hn, err := os.Hostname()
	assert.NilErr(t, err)
	assert.Equal(t, hn, conf.Host)
}

func TestLoadMissingFile(t *testing.T) {
	conf := newTestConfig(t)
	assert.Err(t, conf.Load([]string{"/not/exists.toml"}))
}

func TestCheck(t *testing.T) {
	conf := newTestConfig(t)
	assert.NilErr(t, conf.Check())

	conf.XCAT.Scheme = "ftp"
	err := conf.Check()
	assert.True(t, terrors.IsConfiguration(err))

	conf = newTestConfig(t)
	conf.XCAT.Server = ""
	assert.True(t, terrors.IsConfiguration(conf.Check()))

	conf = newTestConfig(t)
	conf.XCAT.MgtIP = "10.1.1.1"
	assert.True(t, terrors.IsConfiguration(conf.Check()))

	conf = newTestConfig(t)
	conf.XCAT.MaxRegrantBatch = 0
	assert.True(t, terrors.IsConfiguration(conf.Check()))

	conf = newTestConfig(t)
	conf.LogLevel = "verbose"
	assert.True(t, terrors.IsConfiguration(conf.Check()))
}

func TestDumpHidesPassword(t *testing.T) {
	conf := newTestConfig(t)
	dump, err := conf.Dump()
	assert.NilErr(t, err)
	assert.False(t, strings.Contains(dump, "passw0rd"))
	assert.True(t, strings.Contains(dump, "zhcp_nodename"))
	assert.Equal(t, "passw0rd", conf.XCAT.Password)
}

func TestDurationText(t *testing.T) {
	var d Duration
	assert.NilErr(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	buf, err := d.MarshalText()
	assert.NilErr(t, err)
	assert.Equal(t, "90s", string(buf))

	buf, err = Duration(2 * time.Hour).MarshalText()
	assert.NilErr(t, err)
	assert.Equal(t, "2h", string(buf))

	buf, err = Duration(0).MarshalText()
	assert.NilErr(t, err)
	assert.Equal(t, "0s", string(buf))

	assert.Err(t, d.UnmarshalText([]byte("soon")))
}
