package runtime

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	clarityerrors "github.com/clarity-app/clarity-api/internal/errors"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/sirupsen/logrus"
)

const (
	InternalPort = "8080"
	OS           = "linux"
	NetworkName  = "clarity-network"
	TaskRoot     = "/var/task"
	Label        = "clarity"
)

var _ RuntimeInterface = (*Runtime)(nil)

func NewRuntime(logger *logrus.Entry) (*Runtime, error) {
	client, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	return &Runtime{
		client: client,
		logger: logger.WithField("component", "runtime"),
	}, nil
}

// StartContainer runs the function in a Lambda base image with the runtime
// interface emulator listening on config.Port.
// It pulls the image when missing, replaces stale containers for the same
// function and returns the new container ID.
func (r *Runtime) StartContainer(ctx context.Context, config *RuntimeConfig) (containerID string, err error) {
	if config.Image == "" && config.Runtime == "" {
		return "", clarityerrors.NewRuntimeConfigError("image or runtime must be specified")
	}

	if config.Image == "" && config.Runtime != "" {
		config.Image = inferImageFromRuntime(config.Runtime)
	}

	if err = r.ensureImage(ctx, config.Image, config.Architecture); err != nil {
		return "", err
	}

	if containerID, err = r.createContainer(ctx, config); err != nil {
		return "", err
	}

	if err = r.startContainer(ctx, containerID); err != nil {
		return "", err
	}
	return containerID, nil
}

// ensureImage makes ref available locally, pulling it for arch when absent.
// The pull is only complete once its progress stream has been read to the
// end, and the daemon reports pull failures inside that stream.
func (r *Runtime) ensureImage(ctx context.Context, ref, arch string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return clarityerrors.NewRuntimeConfigError("image field is empty")
	}
	logger := r.logger.WithField("image", ref)

	local, err := r.client.ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", ref)),
	})
	if err != nil {
		return fmt.Errorf("listing local images: %w", err)
	}
	if len(local) > 0 {
		logger.Debug("image present locally")
		return nil
	}

	logger.Info("pulling image")
	progress, err := r.client.ImagePull(ctx, ref, image.PullOptions{Platform: OS + "/" + arch})
	if err != nil {
		return fmt.Errorf("requesting pull of %s: %w", ref, err)
	}
	defer progress.Close()

	if err := jsonmessage.DisplayJSONMessagesStream(progress, io.Discard, 0, false, nil); err != nil {
		return fmt.Errorf("pulling %s: %w", ref, err)
	}

	logger.Info("image pulled")
	return nil
}

// containerSpec describes the function container: the RIE port published on
// loopback only and the code directory mounted read-only at the task root.
func containerSpec(config *RuntimeConfig, codeDir string) (*container.Config, *container.HostConfig) {
	rie := nat.Port(InternalPort + "/tcp")

	spec := &container.Config{
		Image:        config.Image,
		Cmd:          config.Cmd,
		Entrypoint:   config.Entrypoint,
		Env:          formatEnvVars(config.Environment),
		ExposedPorts: nat.PortSet{rie: struct{}{}},
		Labels: map[string]string{
			Label:               "true",
			Label + ".function": config.Name,
		},
	}

	host := &container.HostConfig{
		Mounts: []mount.Mount{{
			Type:     mount.TypeBind,
			Source:   codeDir,
			Target:   TaskRoot,
			ReadOnly: true,
		}},
		PortBindings: nat.PortMap{
			rie: {{HostIP: "127.0.0.1", HostPort: config.Port}},
		},
	}
	return spec, host
}

func (r *Runtime) createContainer(ctx context.Context, config *RuntimeConfig) (string, error) {
	if err := r.CleanContainerEnvironment(ctx, config.Name); err != nil {
		return "", err
	}

	codeDir, err := filepath.Abs(config.CodePath)
	if err != nil {
		return "", fmt.Errorf("resolving code path %q: %w", config.CodePath, err)
	}

	if err := r.ensureNetwork(ctx); err != nil {
		return "", err
	}

	spec, host := containerSpec(config, codeDir)
	endpoints := &network.NetworkingConfig{
		EndpointsConfig: map[string]*network.EndpointSettings{
			NetworkName: {NetworkID: NetworkName},
		},
	}

	created, err := r.client.ContainerCreate(ctx, spec, host, endpoints, toV1Platform(config.Architecture), containerName(config.Name))
	if err != nil {
		return "", fmt.Errorf("creating container for %s: %w", config.Name, err)
	}
	for _, warning := range created.Warnings {
		r.logger.WithField("container_id", created.ID).Warn(warning)
	}
	return created.ID, nil
}

func containerName(function string) string {
	return function + "-" + uuid.NewString()
}

func toV1Platform(arch string) *v1.Platform {
	return &v1.Platform{OS: OS, Architecture: arch}
}

// formatEnvVars renders env as sorted KEY=value pairs. Keys are upper-cased
// because config loading lowercases map keys.
func formatEnvVars(env map[string]string) []string {
	variables := make([]string, 0, len(env))
	for key, value := range env {
		variables = append(variables, strings.ToUpper(key)+"="+value)
	}
	sort.Strings(variables)
	return variables
}

// ensureNetwork creates the shared bridge network on first use.
func (r *Runtime) ensureNetwork(ctx context.Context) error {
	existing, err := r.client.NetworkList(ctx, network.ListOptions{
		Filters: filters.NewArgs(filters.Arg("name", NetworkName)),
	})
	if err != nil {
		return fmt.Errorf("listing networks: %w", err)
	}
	// The name filter matches substrings.
	for _, n := range existing {
		if n.Name == NetworkName {
			return nil
		}
	}

	if _, err := r.client.NetworkCreate(ctx, NetworkName, network.CreateOptions{}); err != nil {
		return fmt.Errorf("creating network %s: %w", NetworkName, err)
	}
	r.logger.WithField("network", NetworkName).Info("network created")
	return nil
}

func (r *Runtime) startContainer(ctx context.Context, containerID string) error {
	logger := r.logger.WithField("container_id", containerID)
	logger.Info("starting container")
	if err := r.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return fmt.Errorf("error starting container: %w", err)
	}
	logger.Info("container started successfully")
	return nil
}

// StopContainer stops the container with a 5-second grace period.
// A container that no longer exists is not an error.
func (r *Runtime) StopContainer(ctx context.Context, containerID string) error {
	stopTimeout := 5
	logger := r.logger.WithField("container_id", containerID)
	logger.Info("stopping container")

	if err := r.client.ContainerStop(ctx, containerID, container.StopOptions{
		Timeout: &stopTimeout,
	}); err != nil {
		if errdefs.IsNotFound(err) {
			logger.Warn("container not found, ignoring stop")
			return nil
		}
		return fmt.Errorf("failed to stop container: %w", err)
	}

	logger.Info("container stopped successfully")
	return nil
}

// DeleteContainer force-removes the container.
// A container that no longer exists is not an error.
func (r *Runtime) DeleteContainer(ctx context.Context, containerID string) error {
	logger := r.logger.WithField("container_id", containerID)
	logger.Info("deleting container")

	err := r.client.ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force: true,
	})
	if err != nil {
		if errdefs.IsNotFound(err) {
			logger.Warn("container not found, ignoring delete")
			return nil
		}
		return fmt.Errorf("failed to delete container: %w", err)
	}

	logger.Info("container deleted successfully")
	return nil
}

// inferImageFromRuntime maps a Lambda runtime identifier to its AWS base
// image: provided.al2023 becomes public.ecr.aws/lambda/provided:al2023 and
// nodejs20.x becomes public.ecr.aws/lambda/nodejs:20.
func inferImageFromRuntime(runtime string) string {
	const base = "public.ecr.aws/lambda/%s:%s"

	if name, tag, found := strings.Cut(runtime, "."); found && name == "provided" {
		return fmt.Sprintf(base, name, tag)
	}

	i := strings.IndexFunc(runtime, unicode.IsDigit)
	if i <= 0 {
		return fmt.Sprintf(base, runtime, "latest")
	}
	return fmt.Sprintf(base, runtime[:i], strings.TrimSuffix(runtime[i:], ".x"))
}

// CleanContainerEnvironment removes every container labelled for function,
// running or not.
func (r *Runtime) CleanContainerEnvironment(ctx context.Context, function string) error {
	summary, err := r.client.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", Label+".function="+function)),
	})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	for _, container := range summary {
		r.logger.WithField("container_id", container.ID).Info("removing stale container")
		if err := r.DeleteContainer(ctx, container.ID); err != nil {
			return fmt.Errorf("failed to delete container %s: %w", container.ID, err)
		}
	}

	return nil
}
