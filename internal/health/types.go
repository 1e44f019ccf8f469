package health

import (
	"context"
	"net/http"
	"time"

	"github.com/clarity-app/clarity-api/internal/registry"
	"github.com/sirupsen/logrus"
)

type HealthChecker struct {
	client   *http.Client
	logger   *logrus.Entry
	timeout  time.Duration
	interval time.Duration
}

type HealthCheckerInterface interface {
	WaitForHealthy(ctx context.Context, fn *registry.Function) error
	IsHealthy(ctx context.Context, fn *registry.Function) (bool, error)
}
