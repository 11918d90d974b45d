package agent

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/projecteru2/core/log"

	"github.com/openstack-archive/networking-zvm/internal/zvm"
	"github.com/openstack-archive/networking-zvm/pkg/terrors"
)

const (
	versionFirstWait = 5 * time.Second
	versionMaxWait   = 60 * time.Second
)

// checkXCATVersion waits until xCAT reports at least min_version.
func (m *Manager) checkXCATVersion(ctx context.Context) error {
	logger := log.WithFunc("agent.checkXCATVersion")
	required := m.config.XCAT.MinVersion
	if len(required) < 1 {
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = versionFirstWait
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = versionMaxWait
	bo.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		current, err := m.accessor.XCATVersion(ctx)
		if err != nil {
			logger.Warnf(ctx, "failed to get xCAT version, will check again: %s", err)
			return err
		}
		if !zvm.HasMinVersion(current, required) {
			logger.Warnf(ctx, "the xCAT version is %s, but the minimum requested version is %s, will check again", current, required)
			return terrors.Newf(terrors.ErrInvalidData, "xCAT version %s is lower than %s", current, required)
		}
		logger.Infof(ctx, "xCAT version %s", current)
		return nil
	}, backoff.WithContext(bo, ctx))
}
