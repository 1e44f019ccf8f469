package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/clarity-app/clarity-api/internal/config"
	clarityerrors "github.com/clarity-app/clarity-api/internal/errors"
	"github.com/clarity-app/clarity-api/internal/invoker"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	methodAny         = "ANY"
	requestTimeFormat = "02/Jan/2006:15:04:05 -0700"
	accountID         = "012345678901"

	// maxPayloadBytes is the API Gateway request payload quota.
	maxPayloadBytes = 10 << 20
)

var _ GatewayInterface = (*APIGateway)(nil)

func NewAPIGateway(cfg *config.APIGateway, inv invoker.Invoker, logger *logrus.Logger) *APIGateway {
	g := &APIGateway{
		config:  cfg,
		invoker: inv,
		logger:  logger.WithField("component", "gateway"),
		router:  mux.NewRouter(),
		metrics: newMetrics(),
	}
	if cfg.RateLimit.RPS > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	}
	return g
}

func (g *APIGateway) Start(ctx context.Context) error {
	g.RegisterRoutes()
	return g.createHttpServer(ctx)
}

// RegisterRoutes mounts the health check, metrics and every configured route
// under the stage prefix. The health check is registered first so a catch-all
// route cannot shadow it.
func (g *APIGateway) RegisterRoutes() {
	g.router.HandleFunc(path.Join("/", g.config.Stage, "health"), g.handleHealthCheck()).Methods(http.MethodGet)
	g.router.Handle("/metrics", g.metrics.handler()).Methods(http.MethodGet)
	g.router.Use(g.loggingMiddleware)

	for _, route := range g.config.Routes {
		rPath := path.Join("/", g.config.Stage, route.Path)
		g.logger.WithFields(logrus.Fields{
			"method": route.Method,
			"path":   rPath,
		}).Info("registering route")

		r := g.router.Path(rPath).HandlerFunc(g.handleRequest(route))
		if !strings.EqualFold(route.Method, methodAny) {
			r.Methods(strings.ToUpper(route.Method))
		}
	}
}

func (g *APIGateway) handleRequest(route config.Route) http.HandlerFunc {
	routeKey := fmt.Sprintf("%s %s", strings.ToUpper(route.Method), route.Path)

	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := g.logger.WithFields(logrus.Fields{
			"path":   r.URL.Path,
			"method": r.Method,
			"route":  routeKey,
		})

		if g.limiter != nil && !g.limiter.Allow() {
			logger.Warn("request throttled")
			g.metrics.throttled.Inc()
			g.metrics.observe(routeKey, http.StatusTooManyRequests, time.Since(start))
			writeError(w, http.StatusTooManyRequests)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxPayloadBytes)
		defer r.Body.Close()

		payload, err := g.buildAPIGatewayEvent(r, routeKey)
		if err != nil {
			status := http.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			logger.WithError(err).Warn("failed to build api gateway event")
			g.metrics.observe(routeKey, status, time.Since(start))
			writeError(w, status)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), g.config.Timeout)
		defer cancel()

		response, err := g.invoker.Invoke(ctx, payload)
		if err != nil {
			status := http.StatusBadGateway
			var timeoutErr *clarityerrors.TimeoutError
			if errors.As(err, &timeoutErr) || errors.Is(err, context.DeadlineExceeded) {
				status = http.StatusGatewayTimeout
			}
			logger.WithError(err).Error("failed to invoke function")
			g.metrics.observe(routeKey, status, time.Since(start))
			writeError(w, status)
			return
		}

		status := writeProxyResponse(w, response)
		g.metrics.observe(routeKey, status, time.Since(start))
		logger.WithFields(logrus.Fields{
			"status_code": status,
			"duration":    time.Since(start),
		}).Debug("successfully routed request")
	}
}

func (g *APIGateway) createHttpServer(ctx context.Context) error {
	server := &http.Server{
		Addr:              net.JoinHostPort(g.config.Host, g.config.Port),
		Handler:           g.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Infof("starting gateway on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("gateway server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	g.logger.Info("shutting down API gateway")
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdown)
}

// buildAPIGatewayEvent renders r as an HTTP API payload v2.0 event.
func (g *APIGateway) buildAPIGatewayEvent(r *http.Request, routeKey string) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	event := &events.APIGatewayV2HTTPRequest{
		Version:               "2.0",
		RouteKey:              routeKey,
		RawPath:               r.URL.Path,
		RawQueryString:        r.URL.RawQuery,
		Cookies:               extractCookies(r),
		Headers:               extractHeaders(r),
		QueryStringParameters: extractQuery(r),
		PathParameters:        mux.Vars(r),
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			RouteKey:     routeKey,
			AccountID:    accountID,
			Stage:        g.config.Stage,
			RequestID:    uuid.NewString(),
			APIID:        "local",
			DomainName:   r.Host,
			DomainPrefix: strings.Split(r.Host, ".")[0],
			Time:         now.Format(requestTimeFormat),
			TimeEpoch:    now.UnixMilli(),
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:    r.Method,
				Path:      r.URL.Path,
				Protocol:  r.Proto,
				SourceIP:  sourceIP(r),
				UserAgent: r.UserAgent(),
			},
		},
	}

	if utf8.Valid(body) {
		event.Body = string(body)
	} else {
		event.Body = base64.StdEncoding.EncodeToString(body)
		event.IsBase64Encoded = true
	}

	return json.Marshal(event)
}

// writeProxyResponse writes a Lambda proxy result. A payload that is not a
// JSON object with a statusCode is passed through as a 200 JSON body, which
// is how HTTP APIs treat such results.
func writeProxyResponse(w http.ResponseWriter, payload []byte) int {
	resp, ok := decodeProxyResponse(payload)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
		return http.StatusOK
	}

	body := []byte(resp.Body)
	if resp.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(resp.Body)
		if err != nil {
			writeError(w, http.StatusBadGateway)
			return http.StatusBadGateway
		}
		body = decoded
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	for key, values := range resp.MultiValueHeaders {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	for _, cookie := range resp.Cookies {
		w.Header().Add("Set-Cookie", cookie)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}

	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(body)
	return resp.StatusCode
}

func decodeProxyResponse(payload []byte) (events.APIGatewayV2HTTPResponse, bool) {
	var resp events.APIGatewayV2HTTPResponse

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(payload, &probe); err != nil {
		return resp, false
	}
	if _, ok := probe["statusCode"]; !ok {
		return resp, false
	}
	if err := json.Unmarshal(payload, &resp); err != nil || resp.StatusCode < 100 || resp.StatusCode > 599 {
		return resp, false
	}
	return resp, true
}

func writeError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Message: http.StatusText(status)})
}

func extractHeaders(r *http.Request) map[string]string {
	headers := make(map[string]string, len(r.Header))
	for key, values := range r.Header {
		if strings.EqualFold(key, "Cookie") {
			continue
		}
		headers[strings.ToLower(key)] = strings.Join(values, ",")
	}
	return headers
}

func extractCookies(r *http.Request) []string {
	cookies := []string{}
	for _, cookie := range r.Cookies() {
		cookies = append(cookies, cookie.Name+"="+cookie.Value)
	}
	return cookies
}

func extractQuery(r *http.Request) map[string]string {
	query := r.URL.Query()
	if len(query) == 0 {
		return nil
	}
	params := make(map[string]string, len(query))
	for key, values := range query {
		params[key] = strings.Join(values, ",")
	}
	return params
}

func sourceIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (g *APIGateway) handleHealthCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func (g *APIGateway) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		g.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"remoteAddr": r.RemoteAddr,
			"duration":   time.Since(start),
		}).Info("handled request")
	})
}
