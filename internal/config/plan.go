package config

import (
	"context"
	"fmt"

	"github.com/joshsymonds/mailpurge/internal/gmail"
	"github.com/joshsymonds/mailpurge/internal/purge"
)

// Default caps per workflow. The single-page modes stop after one
// DefaultPageSize listing unless the job sets max.
const (
	DefaultSenderCap = 500
	DefaultLabelCap  = 1000
)

// RuleSource turns a gmailctl label into the query its filters match.
type RuleSource interface {
	QueryForLabel(ctx context.Context, label string) (string, error)
}

// Plan builds the purge plan for the job. rules is only consulted in
// gmailctl-rule mode and may be nil otherwise.
func (j Job) Plan(ctx context.Context, rules RuleSource) (purge.Plan, error) {
	if err := j.Validate(); err != nil {
		return purge.Plan{}, err
	}
	plan := purge.Plan{
		Name:     string(j.Mode),
		PageSize: j.PageSize,
		DryRun:   j.DryRun,
	}
	switch j.Mode {
	case ModeTrashSender:
		plan.Selection = purge.Sender(j.Sender)
		plan.Action = purge.ActionTrash
		plan.Limit = j.limit(DefaultSenderCap)
	case ModeTrashLabel:
		plan.Selection = purge.LabelName(j.Label)
		plan.Action = purge.ActionTrash
		plan.Limit = j.limit(DefaultLabelCap)
	case ModeArchive:
		plan.Selection = purge.Query(j.Query)
		plan.Action = purge.ActionArchive
		plan.Limit = j.limit(gmail.DefaultPageSize)
	case ModeDeletePromotions:
		plan.Selection = purge.LabelID(gmail.LabelPromotions)
		plan.Action = purge.ActionDelete
		plan.Limit = j.limit(gmail.DefaultPageSize)
	case ModeDeleteStaleUnread:
		plan.Selection = purge.Query(StaleUnreadQuery)
		plan.Action = purge.ActionDelete
		plan.Limit = j.limit(gmail.DefaultPageSize)
	case ModeUnlabel:
		plan.Selection = purge.LabelName(j.Label)
		plan.Action = purge.ActionUnlabel
		plan.Limit = j.limit(purge.NoCap)
	case ModePurge:
		plan.Selection, _ = j.selection()
		plan.Action, _ = purge.ParseAction(j.Action)
		plan.Limit = j.limit(purge.NoCap)
	case ModeGmailctlRule:
		if rules == nil {
			return purge.Plan{}, fmt.Errorf("mode %s needs gmailctl", j.Mode)
		}
		q, err := rules.QueryForLabel(ctx, j.Label)
		if err != nil {
			return purge.Plan{}, fmt.Errorf("compile gmailctl rules for %q: %w", j.Label, err)
		}
		plan.Selection = purge.Query(q)
		plan.Action, _ = purge.ParseAction(j.Action)
		plan.Limit = j.limit(purge.NoCap)
	default:
		return purge.Plan{}, fmt.Errorf("mode %s does not mutate messages", j.Mode)
	}
	return plan, nil
}

func (j Job) limit(def int) int {
	if j.Max == nil {
		return def
	}
	return *j.Max
}

// NeedsFullAccess reports whether the job permanently deletes mail, which
// requires the full mail scope rather than gmail.modify.
func (j Job) NeedsFullAccess() bool {
	switch j.Mode {
	case ModeDeletePromotions, ModeDeleteStaleUnread:
		return true
	case ModePurge, ModeGmailctlRule:
		a, err := purge.ParseAction(j.Action)
		return err == nil && a == purge.ActionDelete
	default:
		return false
	}
}

// ReadOnly reports whether the job never mutates mail.
func (j Job) ReadOnly() bool {
	return j.Mode == ModeLabels || j.DryRun
}
