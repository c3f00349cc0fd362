/*
strata converts a hierarchical chip layout into extruded 3D meshes and
streams them, with cell bounds, labels and the instance hierarchy, to a
websocket viewer.

	strata -layout chip.json -listen :8080 -watch
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/strata/engine"
	"github.com/spaghettifunk/strata/engine/core"
)

func main() {
	config, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	e, err := engine.New(config)
	if err != nil {
		core.LogFatal("%s", err.Error())
	}

	if err := e.Initialize(); err != nil {
		core.LogFatal("%s", err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// cancel the run on sigterm and other system calls
	go func() {
		<-sigCh
		cancel()
	}()

	runErr := e.Run(ctx)
	cancel()
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err.Error())
	}
	if runErr != nil {
		core.LogFatal("%s", runErr.Error())
	}
}

// parseFlags loads the optional config file and applies the flags that were
// given explicitly on top of it. A trailing argument names the layout file.
func parseFlags(args []string) (*engine.ApplicationConfig, error) {
	fs := flag.NewFlagSet("strata", flag.ContinueOnError)
	configPath := fs.String("config", "", "TOML config file")
	layoutPath := fs.String("layout", "", "layout file (.json, .yaml, .yml)")
	stackPath := fs.String("layers", "", "layer stack file (.toml, .yaml, .yml), SKY130 when empty")
	lines := fs.Bool("lines", false, "emit wireframes instead of solids")
	depth := fs.Int("depth", 0, "reference levels flattened into each cell, -1 for all")
	workers := fs.Int("workers", 1, "cells processed in parallel")
	logLevel := fs.String("log-level", "info", "debug, info, warn, error or fatal")
	listen := fs.String("listen", "", "viewer websocket address, e.g. :8080")
	watch := fs.Bool("watch", false, "re-process when the input files change")
	attr := fs.Uint64("instance-attr", 0, "GDS property attribute naming instances, 0 for the first one")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	config := engine.DefaultApplicationConfig()
	if *configPath != "" {
		c, err := engine.LoadApplicationConfig(*configPath)
		if err != nil {
			return nil, err
		}
		config = c
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "layout":
			config.LayoutPath = *layoutPath
		case "layers":
			config.LayerStackPath = *stackPath
		case "lines":
			config.Lines = *lines
		case "depth":
			config.Depth = *depth
		case "workers":
			config.Workers = *workers
		case "log-level":
			config.LogLevel = *logLevel
		case "listen":
			config.ListenAddr = *listen
		case "watch":
			config.Watch = *watch
		case "instance-attr":
			config.InstanceAttribute = *attr
		}
	})
	if fs.NArg() > 0 {
		config.LayoutPath = fs.Arg(0)
	}
	return config, nil
}
