package credential

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrAuthentication wraps every failure to obtain a usable token. It is
// fatal for the whole run.
var ErrAuthentication = errors.New("authentication failed")

const defaultRedirectTimeout = 2 * time.Minute

// ConfigFromFile reads a Google "installed app" client secret.
func ConfigFromFile(path string, scopes ...string) (*oauth2.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read client secret %s: %w", ErrAuthentication, path, err)
	}
	cfg, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: parse client secret: %w", ErrAuthentication, err)
	}
	return cfg, nil
}

// Authenticator hands out tokens from Store, running the browser consent
// flow once when the store is empty or its token can no longer be refreshed.
type Authenticator struct {
	Config *oauth2.Config
	Store  Store
	Logger *slog.Logger

	// Prompt receives the consent URL and instructions; defaults to stderr.
	Prompt io.Writer
	// Input is read for a pasted code when the loopback redirect times out;
	// defaults to stdin.
	Input io.Reader
	// RedirectTimeout bounds the wait for the loopback redirect.
	RedirectTimeout time.Duration
}

// TokenSource returns a source that refreshes as needed and writes every new
// token back to the store.
func (a *Authenticator) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tok, err := a.Token(ctx)
	if err != nil {
		return nil, err
	}
	base := a.Config.TokenSource(ctx, tok)
	return oauth2.ReuseTokenSource(tok, &persistingSource{base: base, store: a.Store, last: tok.AccessToken, log: a.logger()}), nil
}

// HTTPClient is an *http.Client authorized with TokenSource.
func (a *Authenticator) HTTPClient(ctx context.Context) (*http.Client, error) {
	ts, err := a.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}

// Token returns a valid token, refreshing or re-authorizing as needed.
func (a *Authenticator) Token(ctx context.Context) (*oauth2.Token, error) {
	log := a.logger()
	cached, err := a.Store.Load()
	switch {
	case err == nil:
		fresh, refreshErr := a.Config.TokenSource(ctx, cached).Token()
		if refreshErr == nil {
			if fresh.AccessToken != cached.AccessToken {
				if saveErr := a.Store.Save(fresh); saveErr != nil {
					return nil, fmt.Errorf("%w: save refreshed token: %w", ErrAuthentication, saveErr)
				}
			}
			return fresh, nil
		}
		log.WarnContext(ctx, "cached token unusable, re-authorizing", slog.Any("error", refreshErr))
	case errors.Is(err, ErrNoToken):
		log.InfoContext(ctx, "no cached token, starting authorization")
	default:
		log.WarnContext(ctx, "cached token unreadable, re-authorizing", slog.Any("error", err))
	}

	tok, err := a.authorize(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	if err := a.Store.Save(tok); err != nil {
		return nil, fmt.Errorf("%w: save token: %w", ErrAuthentication, err)
	}
	return tok, nil
}

// authorize runs a loopback server to capture the redirect. If the browser
// never comes back it falls back to reading a pasted code or redirect URL.
func (a *Authenticator) authorize(ctx context.Context) (*oauth2.Token, error) {
	cfg := *a.Config
	out := a.prompt()

	codeCh := make(chan string, 1)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err == nil {
		cfg.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/", ln.Addr().(*net.TCPAddr).Port)
		srv := &http.Server{ReadHeaderTimeout: 5 * time.Second}
		srv.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "missing 'code' parameter", http.StatusBadRequest)
				return
			}
			fmt.Fprintln(w, "Authentication complete. You can close this window.")
			select {
			case codeCh <- code:
			default:
			}
		})
		go func() { _ = srv.Serve(ln) }()
		defer func() { _ = srv.Shutdown(context.Background()) }()

		fmt.Fprintln(out, "Open this URL in your browser to authorize mailpurge:")
		fmt.Fprintln(out, cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce))
		fmt.Fprintf(out, "Waiting for redirect on %s\n", cfg.RedirectURL)

		timeout := a.RedirectTimeout
		if timeout <= 0 {
			timeout = defaultRedirectTimeout
		}
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case code := <-codeCh:
			return exchange(ctx, &cfg, code)
		case <-timer.C:
			fmt.Fprintln(out, "Timed out waiting for redirect; falling back to manual paste.")
		}
	}

	// manual paste keeps the loopback redirect URL so the exchange matches
	fmt.Fprintln(out, "Open this URL in your browser to authorize mailpurge:")
	fmt.Fprintln(out, cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce))
	fmt.Fprintln(out, "Paste the auth code or the full redirect URL, then press Enter.")
	fmt.Fprint(out, "> ")

	sc := bufio.NewScanner(a.input())
	sc.Buffer(make([]byte, 0, 1024), 1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read auth code: %w", err)
		}
		return nil, errors.New("empty authorization code")
	}
	code, err := CodeFromInput(sc.Text())
	if err != nil {
		return nil, err
	}
	return exchange(ctx, &cfg, code)
}

// CodeFromInput accepts either a bare auth code or the redirect URL the
// browser landed on.
func CodeFromInput(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("empty authorization code")
	}
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return input, nil
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("parse redirect URL: %w", err)
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", errors.New("no 'code' parameter found in pasted URL")
	}
	return code, nil
}

func exchange(ctx context.Context, cfg *oauth2.Config, code string) (*oauth2.Token, error) {
	tok, err := cfg.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	return tok, nil
}

func (a *Authenticator) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return a.Logger
}

func (a *Authenticator) prompt() io.Writer {
	if a.Prompt == nil {
		return os.Stderr
	}
	return a.Prompt
}

func (a *Authenticator) input() io.Reader {
	if a.Input == nil {
		return os.Stdin
	}
	return a.Input
}

// persistingSource saves each newly minted access token.
type persistingSource struct {
	mu    sync.Mutex
	base  oauth2.TokenSource
	store Store
	last  string
	log   *slog.Logger
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		if err := p.store.Save(tok); err != nil {
			p.log.Warn("could not persist refreshed token", slog.Any("error", err))
		}
		p.last = tok.AccessToken
	}
	return tok, nil
}
