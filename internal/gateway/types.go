package gateway

import (
	"context"

	"github.com/clarity-app/clarity-api/internal/config"
	"github.com/clarity-app/clarity-api/internal/invoker"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type GatewayInterface interface {
	Start(ctx context.Context) error
	RegisterRoutes()
}

type APIGateway struct {
	config  *config.APIGateway
	invoker invoker.Invoker
	logger  *logrus.Entry
	router  *mux.Router
	limiter *rate.Limiter
	metrics *metrics
}

type metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	throttled prometheus.Counter
}

type errorBody struct {
	Message string `json:"message"`
}
