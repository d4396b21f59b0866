package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"airdate/internal/api"
	"airdate/internal/apiclient"
	"airdate/internal/config"
	"airdate/internal/queue"
)

type commandContext struct {
	configFlag *string
	ownerFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, ownerFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		ownerFlag:  ownerFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) owner() string {
	if c.ownerFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.ownerFlag)
}

func (c *commandContext) withClient(ctx context.Context, fn func(context.Context, *apiclient.Client) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	client := apiclient.New(cfg, c.owner())
	if err := fn(ctx, client); err != nil {
		return wrapDaemonError(err, cfg.Paths.APIBind)
	}
	return nil
}

func wrapDaemonError(err error, bind string) error {
	if daemonDown(err) {
		return fmt.Errorf("daemon at %s is not reachable; start it with `airdate run`: %w", bind, err)
	}
	return err
}

func daemonDown(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH)
}

// listJobsDirect reads jobs straight from the store for read-only commands
// when the daemon is not running.
func (c *commandContext) listJobsDirect(ctx context.Context) ([]api.JobView, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	defer store.Close()

	owner := c.owner()
	if owner == "" {
		owner = "default"
	}
	jobs, err := store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	return api.FromJobs(jobs), nil
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
