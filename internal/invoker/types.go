package invoker

import (
	"context"
	"net/http"

	"github.com/clarity-app/clarity-api/internal/handler"
	"github.com/sirupsen/logrus"
)

// Invoker turns an event payload into the function's JSON result.
type Invoker interface {
	Invoke(ctx context.Context, payload []byte) ([]byte, error)
}

type RouterInterface interface {
	SendRequest(
		ctx context.Context,
		url string,
		headers map[string]string,
		payload []byte,
	) (response []byte, statusCode int, err error)
}

type Local struct {
	handler *handler.Handler
	logger  *logrus.Entry
}

type Router struct {
	function string
	url      string
	client   *http.Client
	logger   *logrus.Entry
}
