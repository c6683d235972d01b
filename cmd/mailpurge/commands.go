package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshsymonds/mailpurge/internal/config"
	"github.com/joshsymonds/mailpurge/internal/runtime"
)

type globalFlags struct {
	configPath  string
	authDir     string
	authBackend string
	rps         int
	logLevel    string
	dryRun      bool
	max         int
	pageSize    int
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "mailpurge",
		Short:         "Bulk archive, trash or delete Gmail messages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "config/job file (.yaml or .json)")
	pf.StringVar(&g.authDir, "auth-dir", "", "directory holding client_secret.json and cached tokens")
	pf.StringVar(&g.authBackend, "auth-backend", "", "credential backend: file or gmailctl")
	pf.IntVar(&g.rps, "rps", 4, "max Gmail API requests per second (0 disables)")
	pf.StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error")
	pf.BoolVar(&g.dryRun, "dry-run", false, "count matching messages; skip modifications")
	pf.IntVar(&g.max, "max", 0, "max messages to process, -1 for no limit (defaults per command)")
	pf.IntVar(&g.pageSize, "page-size", 500, "Gmail list page size (<=500)")

	root.AddCommand(
		runCmd(g),
		jobCmd(g, "trash-sender <address>", "Move mail from one sender to Trash",
			config.ModeTrashSender, cobra.ExactArgs(1),
			func(j *config.Job, args []string) { j.Sender = args[0] }),
		jobCmd(g, "trash-label <label>", "Move mail carrying a label to Trash",
			config.ModeTrashLabel, cobra.ExactArgs(1),
			func(j *config.Job, args []string) { j.Label = args[0] }),
		jobCmd(g, "archive <query>", "Remove matching mail from the inbox",
			config.ModeArchive, cobra.ExactArgs(1),
			func(j *config.Job, args []string) { j.Query = args[0] }),
		jobCmd(g, "delete-promotions", "Permanently delete mail in the Promotions category",
			config.ModeDeletePromotions, cobra.NoArgs, nil),
		jobCmd(g, "delete-stale-unread", "Permanently delete unread mail older than 30 days",
			config.ModeDeleteStaleUnread, cobra.NoArgs, nil),
		jobCmd(g, "unlabel <label>", "Remove a label from every message carrying it",
			config.ModeUnlabel, cobra.ExactArgs(1),
			func(j *config.Job, args []string) { j.Label = args[0] }),
		jobCmd(g, "labels", "Print every label name and id",
			config.ModeLabels, cobra.NoArgs, nil),
		purgeCmd(g),
		ruleCmd(g),
		authCmd(g),
	)
	return root
}

// load reads the config file and applies any flags the user set.
func (g *globalFlags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("auth-dir") {
		cfg.Auth.Dir = config.ExpandHome(g.authDir)
	}
	if flags.Changed("auth-backend") {
		cfg.Auth.Backend = g.authBackend
	}
	if flags.Changed("rps") {
		cfg.RPS = g.rps
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	g.applyJobFlags(cmd, &cfg.Job)
	return cfg, nil
}

func (g *globalFlags) applyJobFlags(cmd *cobra.Command, job *config.Job) {
	flags := cmd.Flags()
	if flags.Changed("dry-run") {
		job.DryRun = g.dryRun
	}
	if flags.Changed("max") {
		n := g.max
		job.Max = &n
	}
	if flags.Changed("page-size") {
		job.PageSize = g.pageSize
	}
}

func runCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the job described in --config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if g.configPath == "" {
				return fmt.Errorf("run requires --config")
			}
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			return execute(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
}

// jobCmd builds a subcommand that replaces the config file's job with mode
// and the positional arguments.
func jobCmd(
	g *globalFlags,
	use, short string,
	mode config.Mode,
	args cobra.PositionalArgs,
	apply func(*config.Job, []string),
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, argv []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			cfg.Job = freshJob(cfg.Job, mode)
			if apply != nil {
				apply(&cfg.Job, argv)
			}
			return execute(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
}

// freshJob keeps only the paging and safety settings from base.
func freshJob(base config.Job, mode config.Mode) config.Job {
	return config.Job{
		Mode:     mode,
		Max:      base.Max,
		PageSize: base.PageSize,
		DryRun:   base.DryRun,
	}
}

func purgeCmd(g *globalFlags) *cobra.Command {
	var sel config.Job
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Apply any action to messages chosen by sender, query or label",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			job := freshJob(cfg.Job, config.ModePurge)
			job.Sender, job.Query, job.Label, job.LabelID, job.Action = sel.Sender, sel.Query, sel.Label, sel.LabelID, sel.Action
			cfg.Job = job
			return execute(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&sel.Sender, "sender", "", "select mail from this address")
	f.StringVar(&sel.Query, "query", "", "select mail matching this Gmail search")
	f.StringVar(&sel.Label, "label", "", "select mail carrying this label name")
	f.StringVar(&sel.LabelID, "label-id", "", "select mail carrying this label id")
	f.StringVar(&sel.Action, "action", "trash", "archive, trash, delete or unlabel (unlabel needs --label or --label-id)")
	return cmd
}

func ruleCmd(g *globalFlags) *cobra.Command {
	var action, binary, gmailctlDir string
	cmd := &cobra.Command{
		Use:   "gmailctl-rule <label>",
		Short: "Apply an action to mail matched by the gmailctl filters for a label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, argv []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("gmailctl-binary") {
				cfg.Gmailctl.Binary = binary
			}
			if cmd.Flags().Changed("gmailctl-config") {
				cfg.Gmailctl.Config = config.ExpandHome(gmailctlDir)
			}
			job := freshJob(cfg.Job, config.ModeGmailctlRule)
			job.Label, job.Action = argv[0], action
			cfg.Job = job
			return execute(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&action, "action", "archive", "archive, trash or delete")
	f.StringVar(&binary, "gmailctl-binary", "gmailctl", "gmailctl binary to invoke")
	f.StringVar(&gmailctlDir, "gmailctl-config", "", "gmailctl config directory")
	return cmd
}

func authCmd(g *globalFlags) *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize mailpurge and cache the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			s, err := parseScope(scope)
			if err != nil {
				return err
			}
			auth, err := runtime.FileAuthenticator(runtime.AuthOptions{
				ConfigDir: cfg.Auth.Dir,
				Logger:    runtime.NewLogger(cfg.LogLevel),
			}, s)
			if err != nil {
				return err
			}
			if _, err := auth.Token(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token cached in %s\n", cfg.Auth.Dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "modify", "readonly, modify or full")
	return cmd
}

func parseScope(s string) (runtime.Scope, error) {
	switch s {
	case "readonly":
		return runtime.ScopeReadonly, nil
	case "modify":
		return runtime.ScopeModify, nil
	case "full":
		return runtime.ScopeFull, nil
	default:
		return 0, fmt.Errorf("unknown scope %q", s)
	}
}
