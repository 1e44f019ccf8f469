package clarityerrors

import "fmt"

type FunctionNotFoundError struct {
	FunctionName string
}

func NewFunctionNotFoundError(name string) error {
	return &FunctionNotFoundError{FunctionName: name}
}

func (e *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("function %s not found", e.FunctionName)
}

type TimeoutError struct {
	FunctionName string
}

func NewTimeoutError(name string) error {
	return &TimeoutError{FunctionName: name}
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out for function %s", e.FunctionName)
}

type ConnectionError struct {
	FunctionName string
}

func NewConnectionError(name string) error {
	return &ConnectionError{FunctionName: name}
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to function %s", e.FunctionName)
}

type FunctionInvocationError struct {
	FunctionName string
	StatusCode   int
	Body         string
}

func NewFunctionInvocationError(name string, status int, body string) error {
	return &FunctionInvocationError{FunctionName: name, StatusCode: status, Body: body}
}

func (e *FunctionInvocationError) Error() string {
	return fmt.Sprintf("function %s returned %d: %s", e.FunctionName, e.StatusCode, e.Body)
}

// Health check error
type HealthCheckFailedError struct {
	FunctionName string
	Reason       string
}

func NewHealthCheckFailedError(name string, reason string) error {
	return &HealthCheckFailedError{FunctionName: name, Reason: reason}
}

func (e *HealthCheckFailedError) Error() string {
	return fmt.Sprintf("health check failed for function %s: reason = %s", e.FunctionName, e.Reason)
}

// Runtime errors
type RuntimeConfigError struct {
	Reason string
}

func (e *RuntimeConfigError) Error() string {
	return fmt.Sprintf("invalid runtime config: reason = %s", e.Reason)
}

func NewRuntimeConfigError(reason string) error {
	return &RuntimeConfigError{Reason: reason}
}

// Registry errors
type RegistryLoadError struct {
	Reason string
}

func (e *RegistryLoadError) Error() string {
	return fmt.Sprintf("failed to load registry: reason = %s", e.Reason)
}

func NewRegistryLoadError(reason string) error {
	return &RegistryLoadError{Reason: reason}
}

type RegistrySaveError struct {
	Reason string
}

func (e *RegistrySaveError) Error() string {
	return fmt.Sprintf("failed to save registry: reason = %s", e.Reason)
}

func NewRegistrySaveError(reason string) error {
	return &RegistrySaveError{Reason: reason}
}

// InvalidEventError is returned when an event payload handed to the CLI is
// not a JSON document. The Lambda Invoke API rejects those before they reach
// a function, so the CLI does the same.
type InvalidEventError struct {
	Source string
	Reason string
}

func NewInvalidEventError(source, reason string) error {
	return &InvalidEventError{Source: source, Reason: reason}
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("invalid event from %s: reason = %s", e.Source, e.Reason)
}

// Config errors
type ConfigError struct {
	Field  string
	Reason string
}

func NewConfigError(field, reason string) error {
	return &ConfigError{Field: field, Reason: reason}
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid config: reason = %s", e.Reason)
	}
	return fmt.Sprintf("invalid config field %s: reason = %s", e.Field, e.Reason)
}
