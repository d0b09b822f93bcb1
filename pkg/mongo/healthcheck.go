package mongo

import (
	"context"
	"errors"
)

// Healthcheck returns a readiness probe that pings through the manager.
// It fails fast with ErrNotConnected while the manager is not connected.
func Healthcheck(m *Manager) func(context.Context) error {
	return func(ctx context.Context) error {
		if !m.Status().IsConnected {
			return errors.Join(ErrHealthcheckFailed, ErrNotConnected)
		}
		if err := m.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
