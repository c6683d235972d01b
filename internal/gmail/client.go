package gmail

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Client implementations when the target message
// or label no longer exists.
var ErrNotFound = errors.New("not found")

// Client is the narrow Gmail surface required by mailpurge.
type Client interface {
	List(ctx context.Context, c Criteria, pageToken string, pageSize int) (ListPage, error)
	ListLabels(ctx context.Context) ([]Label, error)
	Trash(ctx context.Context, id MessageID) error
	Delete(ctx context.Context, id MessageID) error
	Modify(ctx context.Context, id MessageID, ops ModifyOps) error
}
