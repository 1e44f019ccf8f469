// Package handler holds the Clarity API entry point that Lambda invokes.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/sirupsen/logrus"
)

// Greeting is the message every invocation answers with.
const Greeting = "Hello from Clarity API"

// Response is the proxy-style result returned to the caller.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Message is the JSON document carried in Response.Body.
type Message struct {
	Message string `json:"message"`
}

// greetingBody is the serialised Message every response carries.
var greetingBody = func() string {
	body, err := json.Marshal(Message{Message: Greeting})
	if err != nil {
		panic(err)
	}
	return string(body)
}()

type Handler struct {
	logger *logrus.Entry
}

func New(logger *logrus.Entry) *Handler {
	return &Handler{logger: logger.WithField("component", "handler")}
}

// Handle answers any event with a 200 and the greeting. The event is never
// read, so Handle cannot fail and is safe for concurrent use.
func (h *Handler) Handle(ctx context.Context, _ json.RawMessage) (Response, error) {
	if h.logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		logger := h.logger
		if lc, ok := lambdacontext.FromContext(ctx); ok {
			logger = logger.WithField("request_id", lc.AwsRequestID)
		}
		logger.Debug("handling invocation")
	}

	return Response{
		StatusCode: http.StatusOK,
		Body:       greetingBody,
	}, nil
}
