package rediscontainer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	image         = "redis:7-alpine"
	containerName = "marketcache-redis-test"
	hostPort      = "6390"
)

var (
	once     sync.Once
	setupErr error
)

// Addr exposes the Redis host:port combination used by integration tests.
func Addr() string { return "127.0.0.1:" + hostPort }

// Setup runs a throwaway Redis container and waits until it answers PING.
// The maxmemory cap lets tests provoke OOM rejections.
func Setup() error {
	once.Do(func() {
		if err := ensureDocker(); err != nil {
			setupErr = err
			return
		}
		_ = stopContainer()
		if err := runDocker(
			"run", "-d", "--rm",
			"--name", containerName,
			"-p", fmt.Sprintf("%s:6379", hostPort),
			image,
			"redis-server", "--maxmemory", "8mb", "--maxmemory-policy", "noeviction",
		); err != nil {
			setupErr = err
			return
		}
		if err := waitForRedis(Addr(), 10*time.Second); err != nil {
			setupErr = err
			return
		}
	})
	return setupErr
}

// Teardown stops the Redis container if it is running.
func Teardown() error {
	if setupErr != nil {
		return setupErr
	}
	return stopContainer()
}

func ensureDocker() error {
	if _, err := exec.LookPath("docker"); err != nil {
		return fmt.Errorf("docker executable not found: %w", err)
	}
	return nil
}

func stopContainer() error {
	output, err := exec.Command("docker", "stop", containerName).CombinedOutput()
	if err != nil {
		if strings.Contains(string(output), "No such container") {
			return nil
		}
		return fmt.Errorf("docker stop failed: %w: %s", err, output)
	}
	return nil
}

func runDocker(args ...string) error {
	output, err := exec.Command("docker", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("docker %s failed: %w: %s", args[0], err, output)
	}
	return nil
}

func waitForRedis(addr string, timeout time.Duration) error {
	client := goredis.NewClient(&goredis.Options{Addr: addr, DialTimeout: 200 * time.Millisecond})
	defer client.Close()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		err := client.Ping(ctx).Err()
		cancel()
		if err == nil {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return errors.New("redis container did not respond to ping")
}
