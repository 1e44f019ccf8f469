package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	clarityerrors "github.com/clarity-app/clarity-api/internal/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var registryFile = "registry.yaml"

var _ FunctionRegistryInterface = (*FunctionRegistry)(nil)

// DefaultPath is ~/.clarity/registry.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".clarity", registryFile), nil
}

func NewRegistry(path string, logger *logrus.Entry) *FunctionRegistry {
	return &FunctionRegistry{
		Functions: make(map[string]*Function),
		FilePath:  path,
		logger:    logger.WithField("component", "registry"),
		mutex:     &sync.RWMutex{},
	}
}

func (r *FunctionRegistry) Load(ctx context.Context) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	logger := r.logger.WithField("path", r.FilePath)
	logger.Debug("loading registry from file")

	file, err := os.Open(r.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(filepath.Dir(r.FilePath), 0755); err != nil {
				return fmt.Errorf("failed to create registry directory: %w", err)
			}
			r.Functions = make(map[string]*Function)
			return nil
		}
		return clarityerrors.NewRegistryLoadError(err.Error())
	}

	defer file.Close()

	temp := &FunctionRegistry{}
	if err := yaml.NewDecoder(file).Decode(temp); err != nil {
		return clarityerrors.NewRegistryLoadError(err.Error())
	}

	r.Functions = temp.Functions
	if r.Functions == nil {
		r.Functions = make(map[string]*Function)
	}
	for name, fn := range r.Functions {
		fn.Name = name
		// A recorded container may still be up; health is re-established on use.
		fn.Status = StatusPending
	}

	logger.WithField("functions", len(r.Functions)).Debug("loaded registry from file")
	return nil
}

func (r *FunctionRegistry) Save(ctx context.Context) error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.save()
}

// save expects the caller to hold the mutex.
func (r *FunctionRegistry) save() error {
	r.logger.Debug("saving registry to file")

	if err := os.MkdirAll(filepath.Dir(r.FilePath), 0755); err != nil {
		return clarityerrors.NewRegistrySaveError(err.Error())
	}

	file, err := os.Create(r.FilePath)
	if err != nil {
		return clarityerrors.NewRegistrySaveError(err.Error())
	}

	defer file.Close()

	encoder := yaml.NewEncoder(file)

	defer encoder.Close()

	if err := encoder.Encode(r); err != nil {
		return clarityerrors.NewRegistrySaveError(err.Error())
	}

	r.logger.Debug("saved registry to file")
	return nil
}

// Register records name on port, keeping any container ID already known.
func (r *FunctionRegistry) Register(ctx context.Context, name, port string) (*Function, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	fn, exists := r.Functions[name]
	if !exists {
		r.logger.Infof("adding function %s to registry", name)
		fn = &Function{Name: name, Status: StatusPending}
		r.Functions[name] = fn
	}
	fn.Port = port

	if err := r.save(); err != nil {
		return nil, err
	}
	return fn, nil
}

func (r *FunctionRegistry) GetFunction(ctx context.Context, name string) (*Function, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	fn, exists := r.Functions[name]
	if !exists {
		r.logger.Debug(clarityerrors.NewFunctionNotFoundError(name).Error())
	}
	return fn, exists
}

func (r *FunctionRegistry) ListFunctions(ctx context.Context) []*Function {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	functions := make([]*Function, 0, len(r.Functions))
	for _, fn := range r.Functions {
		functions = append(functions, fn)
	}
	return functions
}

func (r *FunctionRegistry) UpdateStatus(ctx context.Context, name string, status Status) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if fn, exists := r.Functions[name]; exists {
		fn.Status = status
	}
}

func (r *FunctionRegistry) UpdateHealth(ctx context.Context, name string, healthy bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if fn, exists := r.Functions[name]; exists {
		fn.Healthy = healthy
		fn.LastChecked = time.Now()
	}
}

func (r *FunctionRegistry) UpdateContainerID(ctx context.Context, name, containerID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	fn, exists := r.Functions[name]
	if !exists {
		return clarityerrors.NewFunctionNotFoundError(name)
	}
	fn.ID = containerID
	return r.save()
}

func (r *FunctionRegistry) Remove(ctx context.Context, name string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, exists := r.Functions[name]; !exists {
		return nil
	}
	delete(r.Functions, name)
	return r.save()
}
