package configs

import (
	"crypto/tls"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"go.etcd.io/etcd/client/pkg/v3/transport"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/openstack-archive/networking-zvm/pkg/terrors"
)

// DefaultTemplate .
const DefaultTemplate = `
topic = "q-agent-notifier"
polling_interval = "2s"
report_interval = "30s"
graceful_timeout = "20s"

log_level = "info"

[xcat]
scheme = "https"
timeout = "300s"
zhcp_nodename = "zhcp"
max_regrant_batch = 1000
min_version = "2.8.3.16"

[monitor]
retry_delay = "5s"
interval = "10m"

[etcd]
prefix = "/networking-zvm/v1"
endpoints = ["http://127.0.0.1:2379"]

[metrics]
bind_http_addr = "0.0.0.0:9797"
`

// Config .
type Config struct {
	Host            string   `toml:"host"`
	Topic           string   `toml:"topic"`
	PollingInterval Duration `toml:"polling_interval"`
	ReportInterval  Duration `toml:"report_interval"`
	GracefulTimeout Duration `toml:"graceful_timeout"`

	LogLevel  string `toml:"log_level" enum:"debug,info,warn,error"`
	LogFile   string `toml:"log_file"`
	LogSentry string `toml:"log_sentry"`

	XCAT      XCATConfig      `toml:"xcat"`
	Network   NetworkConfig   `toml:"network"`
	Vswitches []VswitchConfig `toml:"vswitches"`
	Monitor   MonitorConfig   `toml:"monitor"`
	Etcd      EtcdConfig      `toml:"etcd"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

// XCATConfig describes how to reach the xCAT management node.
type XCATConfig struct {
	Scheme   string   `toml:"scheme" enum:"http,https"`
	Server   string   `toml:"server"`
	Username string   `toml:"username"`
	Password string   `toml:"password"`
	Timeout  Duration `toml:"timeout"`
	CAFile   string   `toml:"ca_file"`
	Token    string   `toml:"token"`

	// ZHCPNodename is the xCAT node which runs smcli against z/VM.
	ZHCPNodename    string `toml:"zhcp_nodename" range:"1-64"`
	MgtIP           string `toml:"mgt_ip"`
	MgtMask         string `toml:"mgt_mask"`
	MaxRegrantBatch int    `toml:"max_regrant_batch" range:"1-100000"`
	MinVersion      string `toml:"min_version"`
}

// NetworkConfig .
type NetworkConfig struct {
	FlatNetworks      []string `toml:"flat_networks"`
	NetworkVLANRanges []string `toml:"network_vlan_ranges"`
}

// VswitchConfig .
type VswitchConfig struct {
	Name     string `toml:"name"`
	RdevList string `toml:"rdev_list"`
}

// MonitorConfig .
type MonitorConfig struct {
	RetryDelay Duration `toml:"retry_delay"`
	Interval   Duration `toml:"interval"`
}

// EtcdConfig .
type EtcdConfig struct {
	Prefix    string   `toml:"prefix"`
	Endpoints []string `toml:"endpoints"`
	Username  string   `toml:"username"`
	Password  string   `toml:"password"`
	CA        string   `toml:"ca"`
	Key       string   `toml:"key"`
	Cert      string   `toml:"cert"`
}

// MetricsConfig .
type MetricsConfig struct {
	BindHTTPAddr string `toml:"bind_http_addr"`
}

// New returns a config holding the defaults.
func New() (*Config, error) {
	var conf Config
	if err := Decode(DefaultTemplate, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Dump .
func (c *Config) Dump() (string, error) {
	var cp = *c
	if len(cp.XCAT.Password) > 0 {
		cp.XCAT.Password = "******"
	}
	if len(cp.Etcd.Password) > 0 {
		cp.Etcd.Password = "******"
	}
	return Encode(&cp)
}

// Load layers the files on top of the current values in order.
func (c *Config) Load(files []string) error {
	for _, path := range files {
		if err := DecodeFile(path, c); err != nil {
			return err
		}
	}

	if len(c.Host) < 1 {
		hn, err := os.Hostname()
		if err != nil {
			return errors.Wrap(err, "")
		}
		c.Host = hn
	}

	return nil
}

// Check validates the tagged fields and the required ones.
func (c *Config) Check() error {
	for _, field := range []string{
		"LogLevel",
		"XCAT.Scheme",
		"XCAT.ZHCPNodename",
		"XCAT.MaxRegrantBatch",
	} {
		if err := newChecker(c, field).check(); err != nil {
			return terrors.Mark(errors.Wrapf(err, "check %s", field), terrors.ErrConfiguration)
		}
	}

	switch {
	case len(c.XCAT.Server) < 1:
		return terrors.Newf(terrors.ErrConfiguration, "xcat.server is required")
	case len(c.XCAT.Username) < 1 || len(c.XCAT.Password) < 1:
		return terrors.Newf(terrors.ErrConfiguration, "xcat.username and xcat.password are required")
	case len(c.Etcd.Endpoints) < 1:
		return terrors.Newf(terrors.ErrConfiguration, "etcd.endpoints is required")
	case c.PollingInterval <= 0:
		return terrors.Newf(terrors.ErrConfiguration, "polling_interval must be positive")
	case c.ReportInterval < 0:
		return terrors.Newf(terrors.ErrConfiguration, "report_interval can't be negative")
	case (len(c.XCAT.MgtIP) > 0) != (len(c.XCAT.MgtMask) > 0):
		return terrors.Newf(terrors.ErrConfiguration, "xcat.mgt_ip and xcat.mgt_mask must be set together")
	}

	return nil
}

// RdevList returns the uplink real device list of the vswitch.
func (c *Config) RdevList(vswitch string) string {
	for _, vsw := range c.Vswitches {
		if vsw.Name == vswitch {
			return vsw.RdevList
		}
	}
	return ""
}

// NewEtcdConfig .
func (c *Config) NewEtcdConfig() (etcdcnf clientv3.Config, err error) {
	etcdcnf.Endpoints = c.Etcd.Endpoints
	etcdcnf.Username = c.Etcd.Username
	etcdcnf.Password = c.Etcd.Password
	etcdcnf.DialTimeout = c.GracefulTimeout.Duration()
	etcdcnf.TLS, err = c.newEtcdTLSConfig()
	return
}

func (c *Config) newEtcdTLSConfig() (*tls.Config, error) {
	if len(c.Etcd.CA) < 1 || len(c.Etcd.Key) < 1 || len(c.Etcd.Cert) < 1 {
		return nil, nil
	}

	return transport.TLSInfo{
		TrustedCAFile: c.Etcd.CA,
		KeyFile:       c.Etcd.Key,
		CertFile:      c.Etcd.Cert,
	}.ClientConfig()
}

// AgentStateTTL is how long a reported state stays alive upstream.
func (c *Config) AgentStateTTL() time.Duration {
	return 3 * c.ReportInterval.Duration() //nolint:gomnd // TTL is 3 times the interval
}
