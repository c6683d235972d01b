package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsymonds/mailpurge/internal/config"
	"github.com/joshsymonds/mailpurge/internal/gmail"
	"github.com/joshsymonds/mailpurge/internal/purge"
	"github.com/joshsymonds/mailpurge/internal/runtime"
)

type stubClient struct {
	ids     []gmail.MessageID
	labels  []gmail.Label
	failIDs map[gmail.MessageID]error
	trashed []gmail.MessageID
}

func (s *stubClient) List(context.Context, gmail.Criteria, string, int) (gmail.ListPage, error) {
	return gmail.ListPage{IDs: s.ids}, nil
}

func (s *stubClient) ListLabels(context.Context) ([]gmail.Label, error) {
	return s.labels, nil
}

func (s *stubClient) Trash(_ context.Context, id gmail.MessageID) error {
	s.trashed = append(s.trashed, id)
	return s.failIDs[id]
}

func (s *stubClient) Delete(context.Context, gmail.MessageID) error { return nil }

func (s *stubClient) Modify(context.Context, gmail.MessageID, gmail.ModifyOps) error { return nil }

func newTestService(c gmail.Client) *purge.Service {
	return purge.NewService(c, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRunJobTrashSender(t *testing.T) {
	client := &stubClient{ids: []gmail.MessageID{"a", "b", "c"}}
	cfg := &config.Config{Job: config.Job{Mode: config.ModeTrashSender, Sender: "x@y.z"}}

	require.NoError(t, runJob(context.Background(), cfg, newTestService(client), io.Discard))
	assert.Equal(t, []gmail.MessageID{"a", "b", "c"}, client.trashed)
}

func TestRunJobReportsFailures(t *testing.T) {
	client := &stubClient{
		ids:     []gmail.MessageID{"a", "b", "c"},
		failIDs: map[gmail.MessageID]error{"b": errors.New("boom")},
	}
	cfg := &config.Config{Job: config.Job{Mode: config.ModeTrashSender, Sender: "x@y.z"}}

	err := runJob(context.Background(), cfg, newTestService(client), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 messages failed")
	assert.Len(t, client.trashed, 3)
}

func TestRunJobPrintsLabels(t *testing.T) {
	client := &stubClient{labels: []gmail.Label{
		{ID: "INBOX", Name: "INBOX"},
		{ID: "Label_7", Name: "society/Twitter"},
	}}
	cfg := &config.Config{Job: config.Job{Mode: config.ModeLabels}}

	var out bytes.Buffer
	require.NoError(t, runJob(context.Background(), cfg, newTestService(client), &out))
	assert.Equal(t, "INBOX → INBOX\nsociety/Twitter → Label_7\n", out.String())
}

func TestScopeFor(t *testing.T) {
	assert.Equal(t, runtime.ScopeFull, scopeFor(config.Job{Mode: config.ModeDeletePromotions}))
	assert.Equal(t, runtime.ScopeReadonly, scopeFor(config.Job{Mode: config.ModeDeletePromotions, DryRun: true}))
	assert.Equal(t, runtime.ScopeReadonly, scopeFor(config.Job{Mode: config.ModeLabels}))
	assert.Equal(t, runtime.ScopeModify, scopeFor(config.Job{Mode: config.ModeTrashSender}))
}

func TestAuthDir(t *testing.T) {
	cfg := &config.Config{
		Auth:     config.Auth{Backend: runtime.BackendFile, Dir: "/creds"},
		Gmailctl: config.Gmailctl{Config: "/gmailctl"},
	}
	assert.Equal(t, "/creds", authDir(cfg))
	cfg.Auth.Backend = runtime.BackendGmailctl
	assert.Equal(t, "/gmailctl", authDir(cfg))
}

func TestFreshJobKeepsPagingOnly(t *testing.T) {
	limit := 42
	base := config.Job{Mode: config.ModePurge, Sender: "a@b.c", Action: "delete", Max: &limit, PageSize: 100, DryRun: true}
	got := freshJob(base, config.ModeUnlabel)
	assert.Equal(t, config.Job{Mode: config.ModeUnlabel, Max: &limit, PageSize: 100, DryRun: true}, got)
}

func TestParseScope(t *testing.T) {
	s, err := parseScope("full")
	require.NoError(t, err)
	assert.Equal(t, runtime.ScopeFull, s)
	_, err = parseScope("admin")
	assert.Error(t, err)
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{
		"run", "trash-sender", "trash-label", "archive", "delete-promotions",
		"delete-stale-unread", "unlabel", "labels", "purge", "gmailctl-rule", "auth",
	} {
		assert.Contains(t, names, want)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"run"})
	root.SetOut(io.Discard)
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--config")
}
