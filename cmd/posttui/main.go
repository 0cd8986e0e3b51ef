package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matheus3301/postbot/internal/control"
	"github.com/matheus3301/postbot/internal/lock"
	"github.com/matheus3301/postbot/internal/profile"
	"github.com/matheus3301/postbot/internal/tui"
)

const publishedLimit = 100

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	start := flag.Bool("start", false, "start postd when it is not running")
	flag.Parse()

	name := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	paths := control.ProfilePaths(name)
	if *start && !lock.IsHeld(paths.Dir) {
		fmt.Fprintf(os.Stderr, "daemon not running for profile %q, starting...\n", name)
		if err := startDaemon(name); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start daemon: %v\n", err)
			os.Exit(1)
		}
		if !waitForDaemon(paths.Socket, 10*time.Second) {
			fmt.Fprintf(os.Stderr, "daemon did not become ready\n")
			os.Exit(1)
		}
	}

	app := tui.NewApp(name, func(ctx context.Context) (*control.Snapshot, error) {
		return control.Take(ctx, name, paths, publishedLimit)
	})
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// probeDaemon reports whether the daemon answers a health check.
func probeDaemon(socketPath string) bool {
	c, err := control.Dial(socketPath)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = c.Check(ctx, "")
	return err == nil
}

func startDaemon(name string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	postd := filepath.Join(filepath.Dir(executable), "postd")
	if _, err := os.Stat(postd); err != nil {
		postd = "postd"
	}

	cmd := exec.Command(postd, "--profile", name)
	// Inherit stderr so daemon startup errors are visible.
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

func waitForDaemon(socketPath string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if probeDaemon(socketPath) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}
