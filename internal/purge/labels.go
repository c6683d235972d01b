package purge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joshsymonds/mailpurge/internal/gmail"
)

// ErrLabelNotFound is returned when no label name matches. It aborts the
// label-based workflow before any mutation.
var ErrLabelNotFound = errors.New("label not found")

// ResolveLabel returns the id of the first label whose name equals name,
// ignoring case. Order of labels decides between duplicates.
func ResolveLabel(labels []gmail.Label, name string) (gmail.LabelID, error) {
	for _, l := range labels {
		if strings.EqualFold(l.Name, name) {
			return l.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrLabelNotFound, name)
}

// Labels fetches the full label list. Results are never cached.
func (s *Service) Labels(ctx context.Context) ([]gmail.Label, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	labels, err := s.Client.ListLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	return labels, nil
}

func (s *Service) resolveLabel(ctx context.Context, name string) (gmail.LabelID, error) {
	labels, err := s.Labels(ctx)
	if err != nil {
		return "", err
	}
	return ResolveLabel(labels, name)
}
