package emulator

import (
	"context"
	"sync"

	"github.com/clarity-app/clarity-api/internal/config"
	"github.com/clarity-app/clarity-api/internal/health"
	"github.com/clarity-app/clarity-api/internal/invoker"
	"github.com/clarity-app/clarity-api/internal/registry"
	"github.com/clarity-app/clarity-api/internal/runtime"
	"github.com/sirupsen/logrus"
)

type EmulatorInterface interface {
	invoker.Invoker
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Emulator runs the function in a container and invokes it through the
// runtime interface emulator.
type Emulator struct {
	function  *config.Function
	runtime   runtime.RuntimeInterface
	registry  registry.FunctionRegistryInterface
	health    health.HealthCheckerInterface
	router    invoker.RouterInterface
	logger    *logrus.Entry
	startLock sync.Mutex
}
