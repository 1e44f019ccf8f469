package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/clarity-app/clarity-api/internal/config"
	clarityerrors "github.com/clarity-app/clarity-api/internal/errors"
	"github.com/clarity-app/clarity-api/internal/handler"
	"github.com/clarity-app/clarity-api/internal/invoker"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingInvoker struct {
	mu       sync.Mutex
	payloads [][]byte
	response []byte
	err      error
}

func (r *recordingInvoker) Invoke(_ context.Context, payload []byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
	return r.response, r.err
}

func testConfig() *config.APIGateway {
	return &config.APIGateway{
		Host:    "127.0.0.1",
		Port:    "8080",
		Stage:   "v1",
		Timeout: time.Second,
		Routes: []config.Route{
			{Path: "/", Method: "ANY"},
			{Path: "/{proxy:.*}", Method: "ANY"},
		},
	}
}

func newTestGateway(cfg *config.APIGateway, inv invoker.Invoker) *APIGateway {
	g := NewAPIGateway(cfg, inv, &logrus.Logger{Out: io.Discard})
	g.RegisterRoutes()
	return g
}

func serve(g *APIGateway, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	g.router.ServeHTTP(rec, req)
	return rec
}

func TestGateway_LocalHandler(t *testing.T) {
	logger := logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	local := invoker.NewLocal(handler.New(logger), logger)
	g := newTestGateway(testConfig(), local)

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{name: "TestStageRoot", method: http.MethodGet, target: "/v1"},
		{name: "TestStageRootSlash", method: http.MethodGet, target: "/v1/"},
		{name: "TestNestedPath", method: http.MethodGet, target: "/v1/anything/deep?x=1"},
		{name: "TestPostWithBody", method: http.MethodPost, target: "/v1/hello", body: `{"foo":"bar"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(g, httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, `{"message":"Hello from Clarity API"}`, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestGateway_HealthCheck(t *testing.T) {
	inv := &recordingInvoker{}
	g := newTestGateway(testConfig(), inv)

	rec := serve(g, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Empty(t, inv.payloads)
}

func TestGateway_BuildsHTTPAPIEvent(t *testing.T) {
	inv := &recordingInvoker{response: []byte(`{"statusCode":204}`)}
	cfg := testConfig()
	cfg.Routes = []config.Route{{Path: "/items/{id}", Method: "PUT"}}
	g := newTestGateway(cfg, inv)

	req := httptest.NewRequest(http.MethodPut, "/v1/items/42?tag=a&tag=b", strings.NewReader(`{"name":"x"}`))
	req.Header.Set("X-Custom", "one")
	req.Header.Add("X-Custom", "two")
	req.AddCookie(&http.Cookie{Name: "session", Value: "abc"})

	rec := serve(g, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, inv.payloads, 1)

	var event events.APIGatewayV2HTTPRequest
	require.NoError(t, json.Unmarshal(inv.payloads[0], &event))

	assert.Equal(t, "2.0", event.Version)
	assert.Equal(t, "PUT /items/{id}", event.RouteKey)
	assert.Equal(t, "/v1/items/42", event.RawPath)
	assert.Equal(t, "tag=a&tag=b", event.RawQueryString)
	assert.Equal(t, map[string]string{"tag": "a,b"}, event.QueryStringParameters)
	assert.Equal(t, map[string]string{"id": "42"}, event.PathParameters)
	assert.Equal(t, "one,two", event.Headers["x-custom"])
	assert.NotContains(t, event.Headers, "cookie")
	assert.Equal(t, []string{"session=abc"}, event.Cookies)
	assert.Equal(t, `{"name":"x"}`, event.Body)
	assert.False(t, event.IsBase64Encoded)
	assert.Equal(t, "v1", event.RequestContext.Stage)
	assert.Equal(t, http.MethodPut, event.RequestContext.HTTP.Method)
	assert.NotEmpty(t, event.RequestContext.RequestID)
	assert.NotZero(t, event.RequestContext.TimeEpoch)
}

func TestGateway_BinaryBodyIsBase64Encoded(t *testing.T) {
	inv := &recordingInvoker{response: []byte(`{"statusCode":200}`)}
	g := newTestGateway(testConfig(), inv)

	raw := []byte{0xff, 0xfe, 0x00, 0x01}
	rec := serve(g, httptest.NewRequest(http.MethodPost, "/v1/upload", strings.NewReader(string(raw))))
	require.Equal(t, http.StatusOK, rec.Code)

	var event events.APIGatewayV2HTTPRequest
	require.NoError(t, json.Unmarshal(inv.payloads[0], &event))
	assert.True(t, event.IsBase64Encoded)
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), event.Body)
}

func TestGateway_ProxyResponseTranslation(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		wantStatus  int
		wantBody    string
		wantHeaders map[string]string
		wantCookies []string
	}{
		{
			name:       "TestPlainResultPassesThrough",
			response:   `"hello"`,
			wantStatus: http.StatusOK,
			wantBody:   `"hello"`,
			wantHeaders: map[string]string{
				"Content-Type": "application/json",
			},
		},
		{
			name:       "TestObjectWithoutStatusCode",
			response:   `{"message":"hi"}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"message":"hi"}`,
		},
		{
			name:       "TestHeadersAndCookies",
			response:   `{"statusCode":201,"headers":{"Content-Type":"text/plain","X-Trace":"t1"},"cookies":["a=1"],"body":"created"}`,
			wantStatus: http.StatusCreated,
			wantBody:   "created",
			wantHeaders: map[string]string{
				"Content-Type": "text/plain",
				"X-Trace":      "t1",
			},
			wantCookies: []string{"a=1"},
		},
		{
			name:       "TestBase64Body",
			response:   `{"statusCode":200,"isBase64Encoded":true,"body":"` + base64.StdEncoding.EncodeToString([]byte("binary")) + `"}`,
			wantStatus: http.StatusOK,
			wantBody:   "binary",
		},
		{
			name:       "TestInvalidBase64Body",
			response:   `{"statusCode":200,"isBase64Encoded":true,"body":"%%%"}`,
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"message":"Bad Gateway"}` + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(testConfig(), &recordingInvoker{response: []byte(tt.response)})
			rec := serve(g, httptest.NewRequest(http.MethodGet, "/v1/", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
			for key, value := range tt.wantHeaders {
				assert.Equal(t, value, rec.Header().Get(key))
			}
			if tt.wantCookies != nil {
				assert.Equal(t, tt.wantCookies, rec.Header().Values("Set-Cookie"))
			}
		})
	}
}

func TestGateway_InvocationErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "TestTimeout", err: clarityerrors.NewTimeoutError("clarity-api"), wantStatus: http.StatusGatewayTimeout},
		{name: "TestDeadline", err: context.DeadlineExceeded, wantStatus: http.StatusGatewayTimeout},
		{name: "TestConnection", err: clarityerrors.NewConnectionError("clarity-api"), wantStatus: http.StatusBadGateway},
		{name: "TestOther", err: errors.New("boom"), wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(testConfig(), &recordingInvoker{err: tt.err})
			rec := serve(g, httptest.NewRequest(http.MethodGet, "/v1/", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, http.StatusText(tt.wantStatus), body.Message)
		})
	}
}

func TestGateway_PayloadLimit(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		wantStatus int
		wantCalls  int
	}{
		{name: "TestAtLimit", size: maxPayloadBytes, wantStatus: http.StatusOK, wantCalls: 1},
		{name: "TestOverLimit", size: maxPayloadBytes + 1, wantStatus: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &recordingInvoker{response: []byte(`{"statusCode":200}`)}
			g := newTestGateway(testConfig(), inv)

			body := strings.NewReader(strings.Repeat("a", tt.size))
			rec := serve(g, httptest.NewRequest(http.MethodPost, "/v1/upload", body))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Len(t, inv.payloads, tt.wantCalls)
		})
	}
}

func TestGateway_MethodNotAllowed(t *testing.T) {
	cfg := testConfig()
	cfg.Routes = []config.Route{{Path: "/hello", Method: "GET"}}
	inv := &recordingInvoker{response: []byte(`{"statusCode":200}`)}
	g := newTestGateway(cfg, inv)

	rec := serve(g, httptest.NewRequest(http.MethodPost, "/v1/hello", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Empty(t, inv.payloads)

	rec = serve(g, httptest.NewRequest(http.MethodGet, "/v1/hello", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGateway_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimit{RPS: 0.001, Burst: 1}
	g := newTestGateway(cfg, &recordingInvoker{response: []byte(`{"statusCode":200}`)})

	first := serve(g, httptest.NewRequest(http.MethodGet, "/v1", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := serve(g, httptest.NewRequest(http.MethodGet, "/v1", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.JSONEq(t, `{"message":"Too Many Requests"}`, second.Body.String())

	metrics := serve(g, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "clarity_gateway_throttled_total 1")
	assert.Contains(t, metrics.Body.String(), `clarity_gateway_requests_total{code="429",route="ANY /"}`)
}

func TestGateway_StartAndShutdown(t *testing.T) {
	cfg := testConfig()
	cfg.Port = "0"
	g := NewAPIGateway(cfg, &recordingInvoker{}, &logrus.Logger{Out: io.Discard})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("gateway did not shut down")
	}
}
