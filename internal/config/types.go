package config

import "time"

type Function struct {
	Name          string            `mapstructure:"name" validate:"required"`
	Runtime       string            `mapstructure:"runtime"`
	Image         string            `mapstructure:"image"`
	Architecture  string            `mapstructure:"architecture" validate:"oneof=amd64 arm64"`
	CodePath      string            `mapstructure:"codePath" validate:"required"`
	Cmd           []string          `mapstructure:"cmd"`
	Entrypoint    []string          `mapstructure:"entrypoint"`
	Environment   map[string]string `mapstructure:"environment"`
	Port          string            `mapstructure:"port" validate:"required,numeric"`
	HealthTimeout time.Duration     `mapstructure:"healthTimeout" validate:"gt=0"`
}

type Route struct {
	Path   string `mapstructure:"path" validate:"required,startswith=/"`
	Method string `mapstructure:"method" validate:"required,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS ANY"`
}

type RateLimit struct {
	RPS   float64 `mapstructure:"rps" validate:"gte=0"`
	Burst int     `mapstructure:"burst" validate:"gte=1"`
}

type APIGateway struct {
	Host      string        `mapstructure:"host"`
	Port      string        `mapstructure:"port" validate:"required,numeric"`
	Stage     string        `mapstructure:"stage" validate:"required"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RateLimit RateLimit     `mapstructure:"rateLimit"`
	Routes    []Route       `mapstructure:"routes" validate:"dive"`
}

type Config struct {
	LogLevel   string     `mapstructure:"logLevel" validate:"oneof=trace debug info warn error"`
	LogFormat  string     `mapstructure:"logFormat" validate:"oneof=text json"`
	APIGateway APIGateway `mapstructure:"gateway"`
	Function   Function   `mapstructure:"function"`
}
