package clarity

import (
	"fmt"
	"time"

	"github.com/clarity-app/clarity-api/internal/emulator"
	"github.com/clarity-app/clarity-api/internal/handler"
	"github.com/clarity-app/clarity-api/internal/health"
	"github.com/clarity-app/clarity-api/internal/invoker"
	"github.com/clarity-app/clarity-api/internal/registry"
	"github.com/clarity-app/clarity-api/internal/runtime"
)

const healthCheckInterval = 500 * time.Millisecond

// newInvoker returns the in-process handler, or the containerised function
// when container is set.
func newInvoker(container bool) (invoker.Invoker, error) {
	if !container {
		h := handler.New(logger.WithField("function", cfg.Function.Name))
		return invoker.NewLocal(h, logger.WithField("mode", "local")), nil
	}
	e, err := newEmulator()
	if err != nil {
		return nil, err
	}
	return e, nil
}

func newFunctionRegistry() (*registry.FunctionRegistry, error) {
	path, err := registry.DefaultPath()
	if err != nil {
		return nil, err
	}
	reg := registry.NewRegistry(path, logger.WithField("mode", "container"))
	if err := reg.Load(ctx); err != nil {
		return nil, err
	}
	return reg, nil
}

func newEmulator() (*emulator.Emulator, error) {
	entry := logger.WithField("mode", "container")

	rt, err := runtime.NewRuntime(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	reg, err := newFunctionRegistry()
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf(invoker.InvokeEndpoint, cfg.Function.Port)
	return emulator.NewEmulator(
		&cfg.Function,
		rt,
		reg,
		health.NewHealthChecker(cfg.Function.HealthTimeout, healthCheckInterval, entry),
		invoker.NewRouter(cfg.Function.Name, url, entry),
		entry,
	), nil
}
