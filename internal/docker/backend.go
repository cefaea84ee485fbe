// Package docker manages an optional local tool-execution backend container
// that is recreated before each model so every model starts from empty state.
package docker

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"sort"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/client"
)

const (
	DefaultName         = "mcpbench-backend"
	DefaultReadyTimeout = 60 * time.Second
	labelKey            = "mcpbench"
)

// Backend describes the backend container. Addr is the host:port the
// backend listens on; the container uses host networking so Addr is
// reachable from the benchmark process unchanged.
type Backend struct {
	Image        string
	Name         string
	Command      []string
	Env          map[string]string
	Addr         string
	ReadyTimeout time.Duration
	Logger       *log.Logger
}

func (b *Backend) name() string {
	if b.Name != "" {
		return b.Name
	}
	return DefaultName
}

func (b *Backend) logger() *log.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return log.Default()
}

func newClient() (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return cli, nil
}

// Restart removes any previous backend container, starts a fresh one and
// waits until Addr accepts connections.
func (b *Backend) Restart(ctx context.Context) error {
	if b.Image == "" {
		return fmt.Errorf("backend image not configured")
	}
	cli, err := newClient()
	if err != nil {
		return err
	}
	defer cli.Close()

	cli.ContainerRemove(ctx, b.name(), client.ContainerRemoveOptions{Force: true})

	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Name: b.name(),
		Config: &container.Config{
			Image:  b.Image,
			Cmd:    b.Command,
			Env:    envSlice(b.Env),
			Labels: map[string]string{labelKey: "true"},
		},
		HostConfig: &container.HostConfig{
			NetworkMode: container.NetworkMode("host"),
		},
	})
	if err != nil {
		return fmt.Errorf("creating container: %w", err)
	}
	if _, err := cli.ContainerStart(ctx, createResp.ID, client.ContainerStartOptions{}); err != nil {
		cli.ContainerRemove(context.Background(), createResp.ID, client.ContainerRemoveOptions{Force: true})
		return fmt.Errorf("starting container: %w", err)
	}

	timeout := b.ReadyTimeout
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	if err := waitForAddr(ctx, b.Addr, timeout); err != nil {
		logReader, _ := cli.ContainerLogs(context.Background(), createResp.ID, client.ContainerLogsOptions{ShowStdout: true, ShowStderr: true, Tail: "50"})
		if logReader != nil {
			logData, _ := io.ReadAll(logReader)
			logReader.Close()
			b.logger().Printf("warning: backend container logs:\n%s", logData)
		}
		return fmt.Errorf("backend did not start: %w", err)
	}
	return nil
}

// Stop removes the backend container.
func (b *Backend) Stop(ctx context.Context) error {
	cli, err := newClient()
	if err != nil {
		return err
	}
	defer cli.Close()
	cli.ContainerRemove(ctx, b.name(), client.ContainerRemoveOptions{Force: true})
	return nil
}

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func waitForAddr(ctx context.Context, addr string, timeout time.Duration) error {
	if addr == "" {
		return nil
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			conn.Close()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return fmt.Errorf("%s not ready after %s", addr, timeout)
}
