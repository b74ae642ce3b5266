package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"versereel/internal/config"
	"versereel/internal/daemon"
	"versereel/internal/daemonrun"
	"versereel/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error

	runtimeOpts daemonrun.RuntimeOptions
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// withRuntime opens the ledger and workflow runtime for the duration of fn.
func (c *commandContext) withRuntime(cmd *cobra.Command, fn func(*daemonrun.Runtime) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.logger()
	if err != nil {
		return err
	}
	rt, err := daemonrun.Open(cmd.Context(), cfg, logger, c.runtimeOpts)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

// withPipeline is withRuntime for commands that run stages or uploads. It
// holds the scheduler's pipeline lock so CLI work never overlaps a scheduled
// job, and fails items an earlier crashed run left behind before fn starts.
func (c *commandContext) withPipeline(cmd *cobra.Command, fn func(*daemonrun.Runtime) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	lock := daemon.NewPipelineLock(cfg.LockPath())
	if err := lock.TryAcquire(); err != nil {
		return err
	}
	defer lock.Release()

	return c.withRuntime(cmd, func(rt *daemonrun.Runtime) error {
		if _, err := rt.Manager.RecoverInterrupted(cmd.Context()); err != nil {
			return fmt.Errorf("recover interrupted items: %w", err)
		}
		return fn(rt)
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
