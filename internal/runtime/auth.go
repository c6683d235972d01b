// internal/runtime/auth.go
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mbrt/gmailctl/cmd/gmailctl/localcred"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/joshsymonds/mailpurge/internal/credential"
	gc "github.com/joshsymonds/mailpurge/internal/gmail"
)

type Scope int

const (
	ScopeReadonly Scope = iota
	ScopeModify
	// ScopeFull is required by users.messages.delete.
	ScopeFull
)

func (s Scope) oauthScope() string {
	switch s {
	case ScopeReadonly:
		return gmail.GmailReadonlyScope
	case ScopeModify:
		return gmail.GmailModifyScope
	case ScopeFull:
		return gmail.MailGoogleComScope
	default:
		panic("unknown scope")
	}
}

// tokenFile keeps one cache per scope so a narrow token is never reused for
// a wider request.
func (s Scope) tokenFile() string {
	switch s {
	case ScopeReadonly:
		return "token-readonly.json"
	case ScopeFull:
		return "token-full.json"
	default:
		return "token.json"
	}
}

// Credential backends.
const (
	BackendFile     = "file"
	BackendGmailctl = "gmailctl"
)

// AuthOptions selects where credentials come from.
type AuthOptions struct {
	Backend string
	// ConfigDir holds client_secret.json and the token cache for the file
	// backend, or gmailctl's own credentials for the gmailctl backend.
	ConfigDir string
	Logger    *slog.Logger
}

// NewGmailClient authenticates and returns the Gmail capability.
func NewGmailClient(ctx context.Context, opts AuthOptions, scope Scope) (gc.Client, error) {
	svc, err := newService(ctx, opts, scope)
	if err != nil {
		return nil, err
	}
	return NewGoogleAPIClient(svc), nil
}

func newService(ctx context.Context, opts AuthOptions, scope Scope) (*gmail.Service, error) {
	switch opts.Backend {
	case BackendFile, "":
		auth, err := FileAuthenticator(opts, scope)
		if err != nil {
			return nil, err
		}
		client, err := auth.HTTPClient(ctx)
		if err != nil {
			return nil, err
		}
		svc, err := gmail.NewService(ctx, option.WithHTTPClient(client))
		if err != nil {
			return nil, fmt.Errorf("create gmail service: %w", err)
		}
		return svc, nil
	case BackendGmailctl:
		// gmailctl decides the granted scopes on its own first run
		svc, err := (localcred.Provider{}).Service(ctx, opts.ConfigDir)
		if err != nil {
			return nil, fmt.Errorf("%w: gmailctl credentials in %s: %w", credential.ErrAuthentication, opts.ConfigDir, err)
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unknown credential backend %q", opts.Backend)
	}
}

// FileAuthenticator builds the token-file backed authenticator for scope.
func FileAuthenticator(opts AuthOptions, scope Scope) (*credential.Authenticator, error) {
	cfg, err := credential.ConfigFromFile(filepath.Join(opts.ConfigDir, "client_secret.json"), scope.oauthScope())
	if err != nil {
		return nil, err
	}
	return &credential.Authenticator{
		Config: cfg,
		Store:  credential.FileStore{Path: filepath.Join(opts.ConfigDir, scope.tokenFile())},
		Logger: opts.Logger,
	}, nil
}

func DefaultLogger() *slog.Logger {
	return NewLogger("info")
}

// NewLogger returns a text logger on stderr. Unknown levels mean info.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
