package purge

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/joshsymonds/mailpurge/internal/gmail"
	"github.com/joshsymonds/mailpurge/internal/rate"
)

// State is the position of a purge pass in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateResolving
	StateMutating
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateResolving:
		return "resolving"
	case StateMutating:
		return "mutating"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Plan describes one purge pass.
type Plan struct {
	Name      string // shown in logs, e.g. "trash-sender"
	Selection Selection
	Action    Action
	Limit     int // NoCap for unbounded, 0 to fetch nothing
	PageSize  int
	DryRun    bool
}

// Result summarizes a purge pass. Failures lists every message whose
// mutation call failed; the pass still ends in StateDone.
type Result struct {
	Matched   int
	Attempted int
	Succeeded int
	Failures  []ItemFailure
	State     State
}

// Service runs purge passes against a Gmail client.
type Service struct {
	Client   gmail.Client
	Limiter  rate.Limiter
	Logger   *slog.Logger
	Progress ProgressFunc
}

// NewService constructs a Service. A nil limiter never blocks and a nil
// logger writes text to stderr.
func NewService(client gmail.Client, limiter rate.Limiter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if limiter == nil {
		limiter = rate.Unlimited{}
	}
	return &Service{
		Client:  client,
		Limiter: limiter,
		Logger:  logger,
	}
}

// Run executes plan: resolve the label if the selection names one, fetch the
// matching ids, then mutate them in fetch order. The returned error is set
// only when the pass aborted; per-message failures are in Result.Failures.
func (s *Service) Run(ctx context.Context, plan Plan) (Result, error) {
	svc := *s
	svc.Logger = s.Logger.With(
		slog.String("run", uuid.NewString()),
		slog.String("plan", plan.Name),
		slog.String("action", plan.Action.String()),
	)
	return svc.run(ctx, plan)
}

func (s *Service) run(ctx context.Context, plan Plan) (Result, error) {
	res := Result{State: StateIdle}
	sel := plan.Selection

	var label gmail.LabelID
	switch sel.Kind {
	case ByLabelName:
		res.State = StateResolving
		id, err := s.resolveLabel(ctx, sel.Value)
		if err != nil {
			res.State = StateAborted
			s.Logger.ErrorContext(ctx, "label lookup failed", slog.String("label", sel.Value), slog.Any("error", err))
			return res, err
		}
		s.Logger.InfoContext(ctx, "resolved label", slog.String("label", sel.Value), slog.String("id", string(id)))
		label = id
		sel = LabelID(id)
	case ByLabel:
		label = gmail.LabelID(sel.Value)
	}
	if plan.Action == ActionUnlabel && label == "" {
		res.State = StateAborted
		return res, fmt.Errorf("unlabel needs a label selection, got %s", sel.Kind)
	}

	criteria, err := sel.Criteria()
	if err != nil {
		res.State = StateAborted
		return res, err
	}

	res.State = StateFetching
	ids, err := s.Fetch(ctx, criteria, plan.Limit, plan.PageSize)
	if err != nil {
		res.State = StateAborted
		return res, err
	}
	res.Matched = len(ids)
	s.Logger.InfoContext(ctx, "found messages",
		slog.String("selection", plan.Selection.String()),
		slog.Int("count", len(ids)),
	)

	if len(ids) == 0 {
		res.State = StateDone
		s.Logger.InfoContext(ctx, "no emails to process", slog.String("selection", plan.Selection.String()))
		return res, nil
	}
	if plan.DryRun {
		res.State = StateDone
		s.Logger.InfoContext(ctx, "dry-run", slog.Int("count", len(ids)))
		return res, nil
	}

	mres, err := s.Mutate(ctx, ids, plan.Action, label)
	mres.Matched = res.Matched
	if err != nil {
		s.Logger.ErrorContext(ctx, "purge aborted",
			slog.Int("attempted", mres.Attempted),
			slog.Int("matched", mres.Matched),
			slog.Any("error", err),
		)
		return mres, err
	}
	s.Logger.InfoContext(ctx, "done",
		slog.String("selection", plan.Selection.String()),
		slog.Int("succeeded", mres.Succeeded),
		slog.Int("failed", len(mres.Failures)),
	)
	return mres, nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.Limiter == nil {
		return ctx.Err()
	}
	return s.Limiter.Wait(ctx)
}

func (s *Service) progress(done, total, percent int) {
	if s.Progress != nil {
		s.Progress(done, total, percent)
		return
	}
	s.Logger.Info(fmt.Sprintf("%d%% done...", percent), slog.Int("done", done), slog.Int("total", total))
}
