/*
The vector sandbox: a grid, a set of arrow gizmos and a pushable cube drawn
through the engine package.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/vecsandbox/engine"
	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/testbed"
)

func main() {
	configPath := flag.String("config", engine.DefaultConfigPath, "path of the sandbox configuration")
	backend := flag.String("backend", "", "overrides the configured backend (vulkan or headless)")
	flag.Parse()

	config, err := engine.LoadApplicationConfig(*configPath)
	if errors.Is(err, fs.ErrNotExist) {
		core.LogWarn("no configuration at `%s`, using defaults", *configPath)
		config, err = engine.DefaultApplicationConfig(), nil
	}
	if err != nil {
		core.LogFatal("failed to load configuration: %s", err)
	}
	if *backend != "" {
		config.Backend = *backend
		if err := config.Validate(); err != nil {
			core.LogFatal(err.Error())
		}
	}

	sb, err := testbed.NewSandboxGame(config)
	if err != nil {
		core.LogFatal(err.Error())
	}

	e, err := engine.New(sb.Game)
	if err != nil {
		core.LogFatal("failed to create the engine: %s", err)
	}

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal("failed to initialize the engine: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		// capture sigterm and other system call here
		sig := <-sigCh
		core.LogInfo("received %s, stopping after this frame.", sig)
		cancel()
	}()

	// run engine
	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	if runErr != nil {
		core.LogFatal(runErr.Error())
	}
}
