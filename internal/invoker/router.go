package invoker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	clarityerrors "github.com/clarity-app/clarity-api/internal/errors"
	"github.com/sirupsen/logrus"
)

// InvokeEndpoint is the invocation URL served by the Lambda Runtime Interface
// Emulator on the given host port.
var InvokeEndpoint = "http://localhost:%s/2015-03-31/functions/function/invocations"

var (
	_ Invoker         = (*Router)(nil)
	_ RouterInterface = (*Router)(nil)
)

// NewRouter returns an Invoker that POSTs payloads for function to url.
// The caller's context bounds each request; the client sets no timeout of
// its own.
func NewRouter(function, url string, logger *logrus.Entry) *Router {
	return &Router{
		function: function,
		url:      url,
		client:   &http.Client{},
		logger:   logger.WithFields(logrus.Fields{"component": "router", "function": function}),
	}
}

func (r *Router) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	response, _, err := r.SendRequest(ctx, r.url, nil, payload)
	return response, err
}

func (r *Router) SendRequest(
	ctx context.Context,
	url string,
	headers map[string]string,
	payload []byte,
) ([]byte, int, error) {
	startTime := time.Now()
	logger := r.logger.WithField("url", url)
	logger.Debug("sending request to function")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		logger.WithError(err).Error("failed to create http request")
		return nil, http.StatusInternalServerError, fmt.Errorf("router failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		logger.WithError(err).Error("failed to send http request")
		var netErr net.Error
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded),
			errors.As(err, &netErr) && netErr.Timeout():
			return nil, http.StatusRequestTimeout, clarityerrors.NewTimeoutError(r.function)
		case errors.Is(ctx.Err(), context.Canceled):
			return nil, http.StatusRequestTimeout, fmt.Errorf("router: request canceled: %w", ctx.Err())
		default:
			return nil, http.StatusInternalServerError, clarityerrors.NewConnectionError(r.function)
		}
	}

	defer resp.Body.Close()

	logger.WithField("status_code", resp.StatusCode).Debug("received response from function")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.WithError(err).Error("failed to read response body")
		return nil, resp.StatusCode, fmt.Errorf("router: failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		logger.Warn("function returned non-2xx response")
		return nil, resp.StatusCode, clarityerrors.NewFunctionInvocationError(r.function, resp.StatusCode, string(body))
	}

	logger.WithField("duration", time.Since(startTime)).Info("request completed successfully")
	return body, resp.StatusCode, nil
}
