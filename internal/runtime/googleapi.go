// internal/runtime/googleapi.go adapts *gmail.Service to gmail.Client
package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	gc "github.com/joshsymonds/mailpurge/internal/gmail"
)

const userMe = "me"

type googleClient struct{ svc *gmail.Service }

// NewGoogleAPIClient wraps an authorized Gmail service.
func NewGoogleAPIClient(svc *gmail.Service) gc.Client { return &googleClient{svc} }

func (g *googleClient) List(ctx context.Context, c gc.Criteria, pageToken string, pageSize int) (gc.ListPage, error) {
	call := g.svc.Users.Messages.List(userMe).MaxResults(int64(pageSize))
	if c.Query != "" {
		call = call.Q(c.Query)
	}
	if len(c.LabelIDs) > 0 {
		call = call.LabelIds(labelStrings(c.LabelIDs)...)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return gc.ListPage{}, classify(err)
	}
	page := gc.ListPage{IDs: make([]gc.MessageID, 0, len(res.Messages)), NextPageToken: res.NextPageToken}
	for _, m := range res.Messages {
		page.IDs = append(page.IDs, gc.MessageID(m.Id))
	}
	return page, nil
}

func (g *googleClient) ListLabels(ctx context.Context) ([]gc.Label, error) {
	lr, err := g.svc.Users.Labels.List(userMe).Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}
	labels := make([]gc.Label, 0, len(lr.Labels))
	for _, l := range lr.Labels {
		labels = append(labels, gc.Label{ID: gc.LabelID(l.Id), Name: l.Name, Type: l.Type})
	}
	return labels, nil
}

func (g *googleClient) Trash(ctx context.Context, id gc.MessageID) error {
	_, err := g.svc.Users.Messages.Trash(userMe, string(id)).Context(ctx).Do()
	return classify(err)
}

func (g *googleClient) Delete(ctx context.Context, id gc.MessageID) error {
	return classify(g.svc.Users.Messages.Delete(userMe, string(id)).Context(ctx).Do())
}

func (g *googleClient) Modify(ctx context.Context, id gc.MessageID, ops gc.ModifyOps) error {
	req := &gmail.ModifyMessageRequest{}
	if len(ops.AddLabels) > 0 {
		req.AddLabelIds = labelStrings(ops.AddLabels)
	}
	if len(ops.RemoveLabels) > 0 {
		req.RemoveLabelIds = labelStrings(ops.RemoveLabels)
	}
	_, err := g.svc.Users.Messages.Modify(userMe, string(id), req).Context(ctx).Do()
	return classify(err)
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	switch gerr.Code {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", gc.ErrNotFound, err)
	case http.StatusForbidden:
		return fmt.Errorf("permission denied, the cached token may lack the required scope: %w", err)
	default:
		return err
	}
}

func labelStrings(ids []gc.LabelID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
