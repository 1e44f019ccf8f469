package registry

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Status string

const (
	StatusRunning Status = "running"
	StatusPending Status = "pending"
	StatusStopped Status = "stopped"
	StatusFailed  Status = "failed"
)

type Function struct {
	Name        string    `yaml:"name"`
	ID          string    `yaml:"id"`
	Port        string    `yaml:"port"`
	Status      Status    `yaml:"-"`
	Healthy     bool      `yaml:"-"`
	LastChecked time.Time `yaml:"-"`
}

type FunctionRegistry struct {
	Functions map[string]*Function `yaml:"functions"`
	FilePath  string               `yaml:"-"`
	logger    *logrus.Entry
	mutex     *sync.RWMutex
}

type FunctionRegistryInterface interface {
	Load(ctx context.Context) error
	Save(ctx context.Context) error
	Register(ctx context.Context, name, port string) (fn *Function, err error)
	GetFunction(ctx context.Context, name string) (fn *Function, exists bool)
	ListFunctions(ctx context.Context) []*Function
	UpdateStatus(ctx context.Context, name string, status Status)
	UpdateHealth(ctx context.Context, name string, healthy bool)
	UpdateContainerID(ctx context.Context, name, containerID string) error
	Remove(ctx context.Context, name string) error
}
