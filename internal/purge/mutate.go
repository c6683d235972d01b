package purge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/joshsymonds/mailpurge/internal/gmail"
)

// Action is the mutation applied to every selected message.
type Action int

const (
	// ActionArchive removes the INBOX label.
	ActionArchive Action = iota + 1
	// ActionTrash moves the message to Trash, recoverable for 30 days.
	ActionTrash
	// ActionDelete removes the message permanently.
	ActionDelete
	// ActionUnlabel removes the label the messages were selected by.
	ActionUnlabel
)

func (a Action) String() string {
	switch a {
	case ActionArchive:
		return "archive"
	case ActionTrash:
		return "trash"
	case ActionDelete:
		return "delete"
	case ActionUnlabel:
		return "unlabel"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// ParseAction maps a config or flag value onto an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "archive", "remove-inbox":
		return ActionArchive, nil
	case "trash":
		return ActionTrash, nil
	case "delete":
		return ActionDelete, nil
	case "unlabel":
		return ActionUnlabel, nil
	default:
		return 0, fmt.Errorf("unknown action %q", s)
	}
}

// ItemFailure records one message whose mutation call failed.
type ItemFailure struct {
	ID  gmail.MessageID
	Err error
}

func (f ItemFailure) Error() string { return f.Err.Error() }

func (f ItemFailure) Unwrap() error { return f.Err }

// Mutate applies action to each id in order, one call per message. A failing
// call is recorded and the batch moves on; only context cancellation stops it
// early, in which case the partial result is returned with the context error.
// label is only consulted for ActionUnlabel.
func (s *Service) Mutate(
	ctx context.Context,
	ids []gmail.MessageID,
	action Action,
	label gmail.LabelID,
) (Result, error) {
	res := Result{Matched: len(ids), State: StateMutating}
	if action == ActionUnlabel && label == "" {
		res.State = StateAborted
		return res, fmt.Errorf("unlabel requires a label id")
	}

	total := len(ids)
	marks := ProgressMarks(total)
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			res.State = StateAborted
			return res, fmt.Errorf("stopped after %d of %d: %w", res.Attempted, total, err)
		}
		if err := s.wait(ctx); err != nil {
			res.State = StateAborted
			return res, err
		}
		res.Attempted++
		if err := s.apply(ctx, id, action, label); err != nil {
			res.Failures = append(res.Failures, ItemFailure{ID: id, Err: err})
			s.Logger.WarnContext(ctx, "mutation failed",
				slog.String("action", action.String()),
				slog.String("id", string(id)),
				slog.Any("error", err),
			)
		} else {
			res.Succeeded++
		}
		if idx := i + 1; marks.Has(idx) {
			s.progress(idx, total, Percent(idx, total))
		}
	}
	res.State = StateDone
	return res, nil
}

func (s *Service) apply(ctx context.Context, id gmail.MessageID, action Action, label gmail.LabelID) error {
	var err error
	switch action {
	case ActionArchive:
		err = s.Client.Modify(ctx, id, gmail.ModifyOps{RemoveLabels: []gmail.LabelID{gmail.LabelInbox}})
	case ActionTrash:
		err = s.Client.Trash(ctx, id)
	case ActionDelete:
		err = s.Client.Delete(ctx, id)
	case ActionUnlabel:
		err = s.Client.Modify(ctx, id, gmail.ModifyOps{RemoveLabels: []gmail.LabelID{label}})
	default:
		return fmt.Errorf("unsupported action %s", action)
	}
	if err != nil {
		return fmt.Errorf("%s message %s: %w", action, id, err)
	}
	return nil
}

// Err folds the per-item failures into one error, or nil when every call
// succeeded.
func (r Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	var merr *multierror.Error
	for _, f := range r.Failures {
		merr = multierror.Append(merr, f)
	}
	return merr.ErrorOrNil()
}
