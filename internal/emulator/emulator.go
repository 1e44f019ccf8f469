package emulator

import (
	"context"
	"fmt"

	"github.com/clarity-app/clarity-api/internal/config"
	clarityerrors "github.com/clarity-app/clarity-api/internal/errors"
	"github.com/clarity-app/clarity-api/internal/health"
	"github.com/clarity-app/clarity-api/internal/invoker"
	"github.com/clarity-app/clarity-api/internal/registry"
	"github.com/clarity-app/clarity-api/internal/runtime"
	"github.com/sirupsen/logrus"
)

var _ EmulatorInterface = (*Emulator)(nil)

func NewEmulator(
	function *config.Function,
	rt runtime.RuntimeInterface,
	reg registry.FunctionRegistryInterface,
	hc health.HealthCheckerInterface,
	router invoker.RouterInterface,
	logger *logrus.Entry,
) *Emulator {
	return &Emulator{
		function: function,
		runtime:  rt,
		registry: reg,
		health:   hc,
		router:   router,
		logger:   logger.WithFields(logrus.Fields{"component": "emulator", "function": function.Name}),
	}
}

func (e *Emulator) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	if err := e.Start(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf(invoker.InvokeEndpoint, e.function.Port)
	headers := map[string]string{}

	response, statusCode, err := e.router.SendRequest(ctx, url, headers, payload)
	if err != nil {
		e.logger.WithField("status_code", statusCode).WithError(err).Warn("function invocation failed")
		return nil, err
	}

	e.logger.Debug("function invoked successfully")
	return response, nil
}

// Start brings the function container up unless it is already running and
// healthy. Concurrent callers share a single start.
func (e *Emulator) Start(ctx context.Context) error {
	e.startLock.Lock()
	defer e.startLock.Unlock()

	name := e.function.Name
	fn, exists := e.registry.GetFunction(ctx, name)
	if exists && fn.Status == registry.StatusRunning && fn.Healthy {
		return nil
	}

	fn, err := e.registry.Register(ctx, name, e.function.Port)
	if err != nil {
		return err
	}

	e.logger.Info("starting function container")
	e.registry.UpdateStatus(ctx, name, registry.StatusPending)

	containerID, err := e.runtime.StartContainer(ctx, &runtime.RuntimeConfig{
		Name:         name,
		Runtime:      e.function.Runtime,
		Image:        e.function.Image,
		Architecture: e.function.Architecture,
		CodePath:     e.function.CodePath,
		Cmd:          e.function.Cmd,
		Entrypoint:   e.function.Entrypoint,
		Environment:  e.function.Environment,
		Port:         e.function.Port,
	})
	if err != nil {
		e.registry.UpdateStatus(ctx, name, registry.StatusFailed)
		return err
	}

	if err := e.registry.UpdateContainerID(ctx, name, containerID); err != nil {
		return err
	}

	if err := e.health.WaitForHealthy(ctx, fn); err != nil {
		e.registry.UpdateStatus(ctx, name, registry.StatusFailed)
		e.registry.UpdateHealth(ctx, name, false)
		return err
	}

	e.registry.UpdateStatus(ctx, name, registry.StatusRunning)
	e.registry.UpdateHealth(ctx, name, true)

	e.logger.WithField("container_id", containerID).Info("function started successfully")
	return nil
}

func (e *Emulator) Stop(ctx context.Context) error {
	return StopFunction(ctx, e.function.Name, e.runtime, e.registry, e.logger)
}

// StopFunction stops and removes the container recorded for name and drops
// it from the registry. Unknown functions are ignored.
func StopFunction(
	ctx context.Context,
	name string,
	rt runtime.RuntimeInterface,
	reg registry.FunctionRegistryInterface,
	logger *logrus.Entry,
) error {
	logger = logger.WithField("function", name)

	fn, exists := reg.GetFunction(ctx, name)
	if !exists {
		logger.WithError(clarityerrors.NewFunctionNotFoundError(name)).Debug("nothing to stop")
		return nil
	}

	if fn.ID != "" {
		logger.Info("stopping function container")
		if err := rt.StopContainer(ctx, fn.ID); err != nil {
			return err
		}
		if err := rt.DeleteContainer(ctx, fn.ID); err != nil {
			return err
		}
	}

	reg.UpdateStatus(ctx, name, registry.StatusStopped)
	if err := reg.Remove(ctx, name); err != nil {
		return err
	}

	logger.Info("function stopped successfully")
	return nil
}
