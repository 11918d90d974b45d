package etcd

import (
	"path"
	"strings"
)

const (
	portsDir    = "ports"
	devicesDir  = "devices"
	agentsDir   = "agents"
	networksDir = "networks"
)

type keys struct {
	prefix string
}

func newKeys(prefix string) keys {
	prefix = "/" + strings.Trim(prefix, "/")
	return keys{prefix: prefix}
}

func (k keys) root() string {
	return k.prefix + "/"
}

func (k keys) port(id string) string {
	return path.Join(k.prefix, portsDir, id)
}

func (k keys) device(host, id string) string {
	return path.Join(k.prefix, devicesDir, host, id)
}

func (k keys) agent(host string) string {
	return path.Join(k.prefix, agentsDir, host)
}

// split returns the directory and the id of a watched key.
func (k keys) split(key string) (dir, id string, ok bool) {
	rel, found := strings.CutPrefix(key, k.root())
	if !found {
		return "", "", false
	}
	dir, id, found = strings.Cut(rel, "/")
	if !found || len(id) < 1 || strings.Contains(id, "/") {
		return "", "", false
	}
	return dir, id, true
}
