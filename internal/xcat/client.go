package xcat

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/projecteru2/core/log"

	"github.com/openstack-archive/networking-zvm/configs"
	"github.com/openstack-archive/networking-zvm/pkg/terrors"
)

const maxErrBody = 512

var versionRegexp = regexp.MustCompile(`Version\s+([0-9][0-9.]*)`)

// Client talks to the xCAT REST service.
type Client struct {
	base  string
	token string
	urls  urls
	cli   *http.Client
}

// New .
func New(cfg *configs.XCATConfig) (*Client, error) {
	if len(cfg.Server) < 1 {
		return nil, terrors.Newf(terrors.ErrConfiguration, "xCAT server is not set")
	}

	scheme := cfg.Scheme
	if len(scheme) < 1 {
		scheme = "https"
	}

	tr := http.DefaultTransport.(*http.Transport).Clone() //nolint
	if scheme == "https" && len(cfg.CAFile) > 0 {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, terrors.Mark(errors.Wrapf(err, "read xCAT CA %s", cfg.CAFile), terrors.ErrConfiguration)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, terrors.Newf(terrors.ErrConfiguration, "no certificate found in %s", cfg.CAFile)
		}
		tr.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	}

	return &Client{
		base:  scheme + "://" + strings.TrimSuffix(cfg.Server, "/"),
		token: cfg.Token,
		urls:  newURLs(cfg.Username, cfg.Password),
		cli: &http.Client{
			Transport: tr,
			Timeout:   cfg.Timeout.Duration(),
		},
	}, nil
}

// ReadTable reads the first data block of a table. A nil filter dumps the whole
// table, header line included.
func (c *Client) ReadTable(ctx context.Context, table string, filter *Filter) ([]string, error) {
	env, err := c.request(ctx, http.MethodGet, c.urls.table(table, filter), nil)
	if err != nil {
		return nil, err
	}
	return env.FirstData(), nil
}

// RunCommand runs a shell command on an xCAT node through xdsh.
func (c *Client) RunCommand(ctx context.Context, node, command string) (*Envelope, error) {
	return c.request(ctx, http.MethodPut, c.urls.xdsh(node), []string{"command=" + command})
}

// MutateTable adds or changes rows of a table with an xCAT chtab row spec.
func (c *Client) MutateTable(ctx context.Context, table, rowSpec string) (*Envelope, error) {
	return c.request(ctx, http.MethodPut, c.urls.table(table, nil), []string{rowSpec})
}

// Version returns the dotted version of the xCAT server.
func (c *Client) Version(ctx context.Context) (string, error) {
	env, err := c.request(ctx, http.MethodGet, c.urls.version(), nil)
	if err != nil {
		return "", err
	}
	match := versionRegexp.FindStringSubmatch(env.Output())
	if len(match) < 2 {
		return "", terrors.Newf(terrors.ErrInvalidData, "unknown xCAT version string %q", env.Output())
	}
	return match[1], nil
}

func (c *Client) request(ctx context.Context, method, target string, body []string) (*Envelope, error) {
	redacted := Redact(target)
	logger := log.WithFunc("xcat.Client.request").WithField("method", method).WithField("url", redacted)

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+target, reader)
	if err != nil {
		// the error text carries the full target
		return nil, terrors.Newf(terrors.ErrConfiguration, "invalid xCAT request %s %s", method, redacted)
	}
	if body != nil {
		req.Header.Set("Content-Type", "text/plain")
	}
	if len(c.token) > 0 {
		req.Header.Set("X-Auth-Token", c.token)
	}

	logger.Debugf(ctx, "request body %v", body)
	resp, err := c.cli.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, terrors.Mark(errors.Wrapf(err, "%s %s%s", method, c.base, redacted), terrors.ErrConnectionFailure)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, terrors.Mark(errors.Wrapf(err, "read response of %s %s", method, redacted), terrors.ErrConnectionFailure)
	}

	expected := http.StatusOK
	if method == http.MethodPost {
		expected = http.StatusCreated
	}
	if resp.StatusCode != expected {
		return nil, terrors.Newf(terrors.ErrRequestFailure, "%s %s: status %d, reason %q",
			method, redacted, resp.StatusCode, truncate(raw))
	}

	env, err := DecodeEnvelope(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, redacted)
	}
	logger.Debugf(ctx, "response %s", truncate(raw))

	if err := env.Verify(method); err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, redacted)
	}
	return env, nil
}

func truncate(raw []byte) string {
	if len(raw) > maxErrBody {
		return string(raw[:maxErrBody]) + "..."
	}
	return string(raw)
}
