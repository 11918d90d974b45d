package xcat

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	prefix = "/xcatws"
	tables = "/tables"
	nodes  = "/nodes"
	dsh    = "/dsh"
)

var credentialRegexp = regexp.MustCompile(`(?i)(userName|password)=[^&]*`)

// Filter narrows a table read down to one attribute of the rows where col == value.
type Filter struct {
	Column    string
	Value     string
	Attribute string
}

func (f *Filter) encode() string {
	if f == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("&col=")
	b.WriteString(url.QueryEscape(f.Column))
	b.WriteString("&value=")
	b.WriteString(url.QueryEscape(f.Value))
	if len(f.Attribute) > 0 {
		b.WriteString("&attribute=")
		b.WriteString(url.QueryEscape(f.Attribute))
	}
	return b.String()
}

// urls builds request targets, every one carrying the credentials.
type urls struct {
	suffix string
}

func newURLs(username, password string) urls {
	return urls{
		suffix: "?userName=" + url.QueryEscape(username) +
			"&password=" + url.QueryEscape(password) +
			"&format=json",
	}
}

// table is used by dump, lookup and change alike; only the filter differs.
func (u urls) table(name string, f *Filter) string {
	return prefix + tables + "/" + strings.TrimPrefix(name, "/") + u.suffix + f.encode()
}

func (u urls) xdsh(node string) string {
	return prefix + nodes + "/" + strings.TrimPrefix(node, "/") + dsh + u.suffix
}

func (u urls) version() string {
	return prefix + "/version" + u.suffix
}

// Redact masks the credentials embedded in a request target.
func Redact(target string) string {
	return credentialRegexp.ReplaceAllString(target, "${1}=xxx")
}
