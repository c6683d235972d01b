package purge

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/joshsymonds/mailpurge/internal/gmail"
)

type listCall struct {
	criteria  gmail.Criteria
	pageToken string
	pageSize  int
}

type mutateCall struct {
	op  string
	id  gmail.MessageID
	ops gmail.ModifyOps
}

// fakeClient serves ids from a fixed mailbox, honoring page size and tokens
// the way users.messages.list does.
type fakeClient struct {
	mailbox    []gmail.MessageID
	fixedPage  int // when set, pages ignore the requested size
	labels     []gmail.Label
	listErr    error
	labelsErr  error
	failIDs    map[gmail.MessageID]error
	listCalls  []listCall
	labelCalls int
	mutations  []mutateCall
	onMutate   func(n int)
}

func (f *fakeClient) List(
	ctx context.Context,
	c gmail.Criteria,
	pageToken string,
	pageSize int,
) (gmail.ListPage, error) {
	_ = ctx
	f.listCalls = append(f.listCalls, listCall{criteria: c, pageToken: pageToken, pageSize: pageSize})
	if f.listErr != nil {
		return gmail.ListPage{}, f.listErr
	}
	start := 0
	if pageToken != "" {
		for i, id := range f.mailbox {
			if string(id) == pageToken {
				start = i
				break
			}
		}
	}
	if f.fixedPage > 0 {
		pageSize = f.fixedPage
	}
	end := min(start+pageSize, len(f.mailbox))
	page := gmail.ListPage{IDs: append([]gmail.MessageID(nil), f.mailbox[start:end]...)}
	if end < len(f.mailbox) {
		page.NextPageToken = string(f.mailbox[end])
	}
	return page, nil
}

func (f *fakeClient) ListLabels(ctx context.Context) ([]gmail.Label, error) {
	_ = ctx
	f.labelCalls++
	return f.labels, f.labelsErr
}

func (f *fakeClient) Trash(ctx context.Context, id gmail.MessageID) error {
	return f.record(ctx, mutateCall{op: "trash", id: id})
}

func (f *fakeClient) Delete(ctx context.Context, id gmail.MessageID) error {
	return f.record(ctx, mutateCall{op: "delete", id: id})
}

func (f *fakeClient) Modify(ctx context.Context, id gmail.MessageID, ops gmail.ModifyOps) error {
	return f.record(ctx, mutateCall{op: "modify", id: id, ops: ops})
}

func (f *fakeClient) record(ctx context.Context, call mutateCall) error {
	_ = ctx
	f.mutations = append(f.mutations, call)
	if f.onMutate != nil {
		f.onMutate(len(f.mutations))
	}
	return f.failIDs[call.id]
}

func mailbox(n int) []gmail.MessageID {
	ids := make([]gmail.MessageID, n)
	for i := range ids {
		ids[i] = gmail.MessageID(fmt.Sprintf("m-%05d", i))
	}
	return ids
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
