package purge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joshsymonds/mailpurge/internal/gmail"
)

// NoCap disables the fetch bound.
const NoCap = -1

// Fetch pages through users.messages.list until the listing is exhausted or
// limit ids have been collected. A negative limit means no bound. The result
// never holds more than limit ids.
func (s *Service) Fetch(
	ctx context.Context,
	c gmail.Criteria,
	limit int,
	pageSize int,
) ([]gmail.MessageID, error) {
	if limit == 0 {
		return nil, nil
	}
	if pageSize <= 0 || pageSize > gmail.MaxPageSize {
		pageSize = gmail.MaxPageSize
	}

	var (
		all       []gmail.MessageID
		pageToken string
		pages     int
	)
	for {
		size := pageSize
		if limit > 0 {
			size = min(size, limit-len(all))
		}
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		page, err := s.Client.List(ctx, c, pageToken, size)
		if err != nil {
			return nil, fmt.Errorf("list messages (page %d): %w", pages+1, err)
		}
		pages++
		all = append(all, page.IDs...)
		pageToken = page.NextPageToken
		s.Logger.DebugContext(ctx, "fetched page",
			slog.Int("page", pages),
			slog.Int("ids", len(page.IDs)),
			slog.Int("total", len(all)),
		)
		if pageToken == "" || (limit > 0 && len(all) >= limit) {
			break
		}
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
