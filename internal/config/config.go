package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/joshsymonds/mailpurge/internal/gmail"
	"github.com/joshsymonds/mailpurge/internal/purge"
)

//go:embed defaults.yaml
var defaultConfig []byte

// Mode selects the workflow a job runs.
type Mode string

const (
	ModeTrashSender       Mode = "trash-sender"
	ModeTrashLabel        Mode = "trash-label"
	ModeArchive           Mode = "archive"
	ModeDeletePromotions  Mode = "delete-promotions"
	ModeDeleteStaleUnread Mode = "delete-stale-unread"
	ModeUnlabel           Mode = "unlabel"
	ModePurge             Mode = "purge"
	ModeGmailctlRule      Mode = "gmailctl-rule"
	ModeLabels            Mode = "labels"
)

// MaxRPS bounds the request rate; Gmail's per-user quota is far below it.
const MaxRPS = 1000

// StaleUnreadQuery selects unread mail older than 30 days.
const StaleUnreadQuery = "is:unread older_than:30d"

// Config is everything one invocation needs: where credentials live, how
// fast to call the API and which job to run.
type Config struct {
	Auth     Auth     `koanf:"auth"`
	RPS      int      `koanf:"rps"`
	Burst    int      `koanf:"burst"`
	LogLevel string   `koanf:"log_level"`
	Gmailctl Gmailctl `koanf:"gmailctl"`
	Job      Job      `koanf:"job"`
}

type Auth struct {
	Backend string `koanf:"backend"`
	Dir     string `koanf:"dir"`
}

type Gmailctl struct {
	Binary string `koanf:"binary"`
	Config string `koanf:"config"`
}

// Job is the selected mode plus its parameters. Only the parameters the
// mode uses may be set.
type Job struct {
	Mode     Mode   `koanf:"mode"`
	Sender   string `koanf:"sender"`
	Query    string `koanf:"query"`
	Label    string `koanf:"label"`
	LabelID  string `koanf:"label_id"`
	Action   string `koanf:"action"`
	Max      *int   `koanf:"max"`
	PageSize int    `koanf:"page_size"`
	DryRun   bool   `koanf:"dry_run"`
}

// Load reads the built-in defaults, then path if non-empty. The parser is
// chosen by extension: .json for JSON, anything else is YAML.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaultConfig), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		var parser koanf.Parser = yaml.Parser()
		if strings.EqualFold(filepath.Ext(path), ".json") {
			parser = json.Parser()
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Auth.Dir = ExpandHome(cfg.Auth.Dir)
	cfg.Gmailctl.Config = ExpandHome(cfg.Gmailctl.Config)
	return &cfg, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Validate checks the static shape of the config.
func (c *Config) Validate() error {
	switch c.Auth.Backend {
	case "file", "gmailctl":
	default:
		return fmt.Errorf("auth.backend must be file or gmailctl, got %q", c.Auth.Backend)
	}
	if strings.TrimSpace(c.Auth.Dir) == "" {
		return errors.New("auth.dir must not be empty")
	}
	if c.RPS < 0 || c.RPS > MaxRPS {
		return fmt.Errorf("rps must be between 0 (unlimited) and %d", MaxRPS)
	}
	return c.Job.Validate()
}

// Validate checks that the mode is known and has the parameters it needs.
func (j Job) Validate() error {
	if j.PageSize < 0 || j.PageSize > gmail.MaxPageSize {
		return fmt.Errorf("page_size must be between 0 (default) and %d", gmail.MaxPageSize)
	}
	if j.Max != nil && *j.Max < purge.NoCap {
		return fmt.Errorf("max must be -1 (unbounded) or more, got %d", *j.Max)
	}
	switch j.Mode {
	case ModeTrashSender:
		return requireField(j.Mode, "sender", j.Sender)
	case ModeTrashLabel, ModeUnlabel:
		return requireField(j.Mode, "label", j.Label)
	case ModeGmailctlRule:
		if err := requireField(j.Mode, "label", j.Label); err != nil {
			return err
		}
		a, err := purge.ParseAction(j.Action)
		if err != nil {
			return err
		}
		if a == purge.ActionUnlabel {
			return fmt.Errorf("mode %s selects by query; use mode unlabel to remove label %q", j.Mode, j.Label)
		}
		return nil
	case ModeArchive:
		return requireField(j.Mode, "query", j.Query)
	case ModeDeletePromotions, ModeDeleteStaleUnread, ModeLabels:
		return nil
	case ModePurge:
		sel, err := j.selection()
		if err != nil {
			return err
		}
		a, err := purge.ParseAction(j.Action)
		if err != nil {
			return err
		}
		if a == purge.ActionUnlabel && sel.Kind != purge.ByLabel && sel.Kind != purge.ByLabelName {
			return fmt.Errorf("action unlabel needs a label or label_id selection, got %s", sel.Kind)
		}
		return nil
	case "":
		return errors.New("job.mode must be set")
	default:
		return fmt.Errorf("unknown job mode %q", j.Mode)
	}
}

func requireField(mode Mode, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("mode %s requires %s", mode, field)
	}
	return nil
}

// selection picks the single selection source of a purge job.
func (j Job) selection() (purge.Selection, error) {
	var set []purge.Selection
	if j.Sender != "" {
		set = append(set, purge.Sender(j.Sender))
	}
	if j.Query != "" {
		set = append(set, purge.Query(j.Query))
	}
	if j.Label != "" {
		set = append(set, purge.LabelName(j.Label))
	}
	if j.LabelID != "" {
		set = append(set, purge.LabelID(gmail.LabelID(j.LabelID)))
	}
	if len(set) != 1 {
		return purge.Selection{}, fmt.Errorf("purge needs exactly one of sender, query, label, label_id; got %d", len(set))
	}
	return set[0], nil
}
