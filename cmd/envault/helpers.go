package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/envault/envault/internal/client"
	"github.com/envault/envault/internal/config"
	"github.com/envault/envault/internal/registry"
	"github.com/spf13/cobra"
)

var errUsage = errors.New("usage")

// usageArgs wraps a cobra argument validator so validation failures map
// to the usage exit code.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		return nil
	}
}

// loadConfig reads envault.yaml from the working directory and applies
// the persistent flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(config.DefaultFile)
	if err != nil {
		return config.Config{}, err
	}
	if serverFlag != "" {
		cfg.ServerURL = serverFlag
	}
	if registryFlag != "" {
		cfg.Registry = registryFlag
	}
	if timeoutFlag > 0 {
		cfg.Timeout = int(timeoutFlag / time.Second)
	}
	return cfg, nil
}

// buildClient wires the registry and the HTTP API into a client.
func buildClient() (*client.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger.Debugf("server %s, registry %s", cfg.ServerURL, cfg.Registry)
	reg := registry.Open(cfg.Registry)
	api := client.NewAPI(cfg.ServerURL, cfg.RequestTimeout())
	return client.NewClient(reg, api), nil
}

// startSpinner creates and starts a spinner with the given message when
// not in verbose or debug mode. Returns the spinner and a cleanup to
// defer; cleanup prints FinalMSG with a guaranteed trailing newline.
func startSpinner(message string) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	_ = s.Color("cyan")

	if !verbose && !debug {
		s.Start()
		log.SetOutput(io.Discard)
	}

	cleanup := func() {
		if !verbose && !debug {
			log.SetOutput(os.Stdout)
		}
		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ensureNewline(s.FinalMSG)
			s.FinalMSG = ""
		}
		if !verbose && !debug {
			s.Stop()
		}
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}
	return s, cleanup
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
