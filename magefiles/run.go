//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Processes $STRATA_LAYOUT (or layout.json) and serves the viewer websocket
// on :8080, re-processing on change.
func (Run) Viewer() error {
	mg.Deps(Build.Binary)

	layout := os.Getenv("STRATA_LAYOUT")
	if layout == "" {
		layout = "layout.json"
	}
	fmt.Printf("Serving %s on ws://localhost:8080/ws\n", layout)
	if _, err := executeCmd("bin/strata", withArgs("-listen", ":8080", "-watch", "-log-level", "debug", layout), withStream()); err != nil {
		return err
	}
	return nil
}
