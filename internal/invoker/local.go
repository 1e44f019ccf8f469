package invoker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clarity-app/clarity-api/internal/handler"
	"github.com/sirupsen/logrus"
)

var _ Invoker = (*Local)(nil)

// NewLocal returns an Invoker that runs h in-process.
func NewLocal(h *handler.Handler, logger *logrus.Entry) *Local {
	return &Local{
		handler: h,
		logger:  logger.WithField("component", "invoker"),
	}
}

func (l *Local) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	start := time.Now()

	response, err := l.handler.Handle(ctx, json.RawMessage(payload))
	if err != nil {
		return nil, fmt.Errorf("handler failed: %w", err)
	}

	body, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to encode handler response: %w", err)
	}

	l.logger.WithFields(logrus.Fields{
		"status_code": response.StatusCode,
		"duration":    time.Since(start),
	}).Debug("function invoked in-process")
	return body, nil
}
