package config

import (
	"errors"
	"io/fs"
	"strings"

	clarityerrors "github.com/clarity-app/clarity-api/internal/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "CLARITY"
	FileName  = ".clarity"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads the configuration from file, or from .clarity.yaml in the
// working directory when file is empty. A missing config file is not an
// error; defaults and CLARITY_* environment variables still apply.
func Load(file string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, clarityerrors.NewConfigError(".env", err.Error())
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, clarityerrors.NewConfigError("", err.Error())
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, clarityerrors.NewConfigError("", err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid field as a ConfigError.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return clarityerrors.NewConfigError(fe.Namespace(), "failed on '"+fe.Tag()+"' rule")
	}
	return clarityerrors.NewConfigError("", err.Error())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("logFormat", "text")

	v.SetDefault("gateway.host", "127.0.0.1")
	v.SetDefault("gateway.port", "8080")
	v.SetDefault("gateway.stage", "v1")
	v.SetDefault("gateway.timeout", "10s")
	v.SetDefault("gateway.rateLimit.rps", 0)
	v.SetDefault("gateway.rateLimit.burst", 1)
	v.SetDefault("gateway.routes", []map[string]any{
		{"path": "/", "method": "ANY"},
		{"path": "/{proxy:.*}", "method": "ANY"},
	})

	v.SetDefault("function.name", "clarity-api")
	v.SetDefault("function.runtime", "provided.al2023")
	v.SetDefault("function.architecture", "amd64")
	v.SetDefault("function.codePath", "./bin")
	v.SetDefault("function.cmd", []string{"bootstrap"})
	v.SetDefault("function.port", "9000")
	v.SetDefault("function.healthTimeout", "30s")
}
