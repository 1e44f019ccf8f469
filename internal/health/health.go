package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	clarityerrors "github.com/clarity-app/clarity-api/internal/errors"
	"github.com/clarity-app/clarity-api/internal/invoker"
	"github.com/clarity-app/clarity-api/internal/registry"
	"github.com/sirupsen/logrus"
)

var _ HealthCheckerInterface = (*HealthChecker)(nil)

func NewHealthChecker(timeout, interval time.Duration, logger *logrus.Entry) *HealthChecker {
	return &HealthChecker{
		client:   &http.Client{Timeout: 2 * time.Second},
		logger:   logger.WithField("component", "health"),
		timeout:  timeout,
		interval: interval,
	}
}

func (hc *HealthChecker) IsHealthy(ctx context.Context, fn *registry.Function) (bool, error) {
	log := hc.logger.WithField("function", fn.Name)
	// A GET on the invocation path gets a client error once the emulator
	// is listening.
	url := fmt.Sprintf(invoker.InvokeEndpoint, fn.Port)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, clarityerrors.NewHealthCheckFailedError(fn.Name, err.Error())
	}

	resp, err := hc.client.Do(req)
	if err != nil {
		log.WithError(err).Debug("failed to perform health check request")
		return false, clarityerrors.NewHealthCheckFailedError(fn.Name, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusInternalServerError {
		log.Debug("function is healthy")
		return true, nil
	}
	log.WithField("status_code", resp.StatusCode).Warn("function returned unhealthy status")
	return false, clarityerrors.NewHealthCheckFailedError(fn.Name, resp.Status)
}

func (hc *HealthChecker) WaitForHealthy(ctx context.Context, fn *registry.Function) error {
	log := hc.logger.WithField("function", fn.Name)

	timeoutCtx, cancel := context.WithTimeout(ctx, hc.timeout)
	defer cancel()

	ticker := time.NewTicker(hc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-timeoutCtx.Done():
			return clarityerrors.NewTimeoutError(fn.Name)
		case <-ticker.C:
			healthy, err := hc.IsHealthy(timeoutCtx, fn)
			if err != nil {
				log.WithError(err).Debug("health check attempt failed")
				continue
			}
			if healthy {
				log.Info("function is healthy")
				return nil
			}
		}
	}
}
