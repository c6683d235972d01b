package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joshsymonds/mailpurge/internal/config"
	"github.com/joshsymonds/mailpurge/internal/gmailctl"
	"github.com/joshsymonds/mailpurge/internal/purge"
	"github.com/joshsymonds/mailpurge/internal/rate"
	"github.com/joshsymonds/mailpurge/internal/runtime"
)

func main() {
	if err := run(); err != nil {
		runtime.DefaultLogger().Error("mailpurge failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return newRootCmd().ExecuteContext(ctx)
}

// execute authenticates with the scope the job needs and runs it.
func execute(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := runtime.NewLogger(cfg.LogLevel)

	client, err := runtime.NewGmailClient(ctx, runtime.AuthOptions{
		Backend:   cfg.Auth.Backend,
		ConfigDir: authDir(cfg),
		Logger:    logger,
	}, scopeFor(cfg.Job))
	if err != nil {
		return fmt.Errorf("create gmail client: %w", err)
	}

	var limiter rate.Limiter = rate.Unlimited{}
	if cfg.RPS > 0 {
		bucket := rate.NewTokenBucket(cfg.RPS, cfg.Burst)
		defer bucket.Stop()
		limiter = bucket
	}

	svc := purge.NewService(client, limiter, logger)
	return runJob(ctx, cfg, svc, out)
}

func runJob(ctx context.Context, cfg *config.Config, svc *purge.Service, out io.Writer) error {
	if cfg.Job.Mode == config.ModeLabels {
		return printLabels(ctx, svc, out)
	}

	var rules config.RuleSource
	if cfg.Job.Mode == config.ModeGmailctlRule {
		rules = gmailctl.Runner{Binary: cfg.Gmailctl.Binary, ConfigDir: cfg.Gmailctl.Config}
	}
	plan, err := cfg.Job.Plan(ctx, rules)
	if err != nil {
		return err
	}

	res, err := svc.Run(ctx, plan)
	if err != nil {
		return fmt.Errorf("run %s: %w", plan.Name, err)
	}
	if ferr := res.Err(); ferr != nil {
		return fmt.Errorf("%s: %d of %d messages failed: %w", plan.Name, len(res.Failures), res.Attempted, ferr)
	}
	return nil
}

func printLabels(ctx context.Context, svc *purge.Service, out io.Writer) error {
	labels, err := svc.Labels(ctx)
	if err != nil {
		return err
	}
	for _, l := range labels {
		if _, err := fmt.Fprintf(out, "%s → %s\n", l.Name, l.ID); err != nil {
			return fmt.Errorf("write labels: %w", err)
		}
	}
	return nil
}

func scopeFor(job config.Job) runtime.Scope {
	switch {
	case job.NeedsFullAccess() && !job.DryRun:
		return runtime.ScopeFull
	case job.ReadOnly():
		return runtime.ScopeReadonly
	default:
		return runtime.ScopeModify
	}
}

// authDir points the gmailctl backend at gmailctl's own config directory.
func authDir(cfg *config.Config) string {
	if cfg.Auth.Backend == runtime.BackendGmailctl {
		return cfg.Gmailctl.Config
	}
	return cfg.Auth.Dir
}
