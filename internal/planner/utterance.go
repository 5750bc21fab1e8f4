package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sandeepkv93/phantom/internal/classify"
	"github.com/sandeepkv93/phantom/internal/model"
	"github.com/sandeepkv93/phantom/internal/scheduler"
)

type Kind string

const (
	KindCreated     Kind = "created"
	KindDeleted     Kind = "deleted"
	KindClarify     Kind = "clarify"
	KindAmbiguous   Kind = "ambiguous"
	KindUnsupported Kind = "unsupported"
	KindQuery       Kind = "query"
)

// Interpretation is what the engine understood from the request.
type Interpretation struct {
	Intent    classify.Intent  `json:"intent"`
	Category  model.Category   `json:"category,omitempty"`
	Title     string           `json:"title,omitempty"`
	Intervals []model.Interval `json:"intervals,omitempty"`
}

type Response struct {
	Kind                Kind             `json:"kind"`
	Message             string           `json:"message"`
	ClarificationNeeded bool             `json:"clarification_needed"`
	Created             []model.Event    `json:"created,omitempty"`
	Updated             []model.Event    `json:"updated,omitempty"`
	Deleted             []model.Event    `json:"deleted,omitempty"`
	Events              []model.Event    `json:"events,omitempty"`
	Unresolved          []model.Conflict `json:"unresolved,omitempty"`
	Notes               []string         `json:"notes,omitempty"`
	Interpretation      Interpretation   `json:"interpretation"`
}

// HandleUtterance runs one free-text request through the engine. Recoverable
// problems (no category, no time, nothing to delete) come back as a Response
// asking for clarification; only validation and store failures are errors,
// and nothing is written when an error is returned.
func (p *Planner) HandleUtterance(ctx context.Context, text, owner string, ref time.Time) (Response, error) {
	text = strings.TrimSpace(text)
	settings, err := p.settings(ctx, owner)
	if err != nil {
		return Response{}, err
	}

	res, classErr := p.classifier.Classify(text)
	interp := Interpretation{Intent: res.Intent, Category: res.Category, Title: res.Title}

	var resp Response
	switch res.Intent {
	case classify.IntentDelete:
		resp, err = p.deleteByText(ctx, text, owner, ref)
	case classify.IntentQuery:
		resp, err = p.query(ctx, text, owner, ref, settings)
	case classify.IntentUpdate, classify.IntentReschedule:
		resp = Response{
			Kind:    KindUnsupported,
			Message: "Changing existing events is not supported yet. Delete it and schedule it again.",
		}
	default:
		resp, err = p.create(ctx, text, owner, ref, settings, res, classErr, &interp)
	}
	if err != nil {
		p.log.Warn("utterance failed", zap.String("owner", owner), zap.String("intent", string(res.Intent)), zap.Error(err))
		return Response{}, err
	}

	resp.Interpretation = interp
	p.metrics.ObserveUtterance(string(resp.Kind))
	p.log.Info("utterance handled",
		zap.String("owner", owner),
		zap.String("intent", string(res.Intent)),
		zap.String("kind", string(resp.Kind)),
		zap.Int("created", len(resp.Created)),
		zap.Int("updated", len(resp.Updated)),
		zap.Int("deleted", len(resp.Deleted)),
		zap.Int("unresolved", len(resp.Unresolved)),
	)
	p.remember(ctx, owner, text, resp, ref)
	return resp, nil
}

func (p *Planner) create(ctx context.Context, text, owner string, ref time.Time, s Settings, res classify.Result, classErr error, interp *Interpretation) (Response, error) {
	if errors.Is(classErr, model.ErrAmbiguous) {
		return Response{
			Kind:                KindAmbiguous,
			ClarificationNeeded: true,
			Message:             "What kind of activity is this? Try mentioning an exam, study, gym, social or gaming.",
		}, nil
	}

	in := p.interpreter.WithDefaultDuration(s.DefaultDuration)
	intervals, err := in.Interpret(text, ref, s.Location)
	if err != nil {
		var pe *model.ParseError
		if errors.As(err, &pe) {
			return Response{
				Kind:                KindClarify,
				ClarificationNeeded: true,
				Message:             fmt.Sprintf("When should I schedule %q? For example \"tomorrow at 6pm\".", res.Title),
			}, nil
		}
		return Response{}, err
	}
	interp.Intervals = intervals

	drafts := make([]model.Event, 0, len(intervals))
	for _, iv := range intervals {
		d := p.draft(owner, res.Title, res.Category, iv, ref)
		if err := d.Validate(); err != nil {
			return Response{}, err
		}
		drafts = append(drafts, d)
	}
	drafts, notes := p.withDerived(drafts, ref)

	from, to := span(drafts)
	plan, err := p.plan(ctx, owner, ref, drafts, from, to)
	if err != nil {
		return Response{}, err
	}
	if err := p.apply(ctx, owner, ref, plan); err != nil {
		return Response{}, err
	}

	resp := Response{
		Kind:       KindCreated,
		Created:    inLocation(plan.Created, s.Location),
		Updated:    inLocation(plan.Updated, s.Location),
		Deleted:    inLocation(plan.Deleted, s.Location),
		Unresolved: plan.Unresolved,
		Notes:      notes,
	}
	resp.Message = summarize(resp)
	return resp, nil
}

func (p *Planner) deleteByText(ctx context.Context, text, owner string, ref time.Time) (Response, error) {
	opts := p.match
	if opts.Lookback <= 0 {
		opts.Lookback = classify.DefaultLookback
	}
	recent, err := p.store.RecentEvents(ctx, owner, opts.Lookback)
	if err != nil {
		return Response{}, p.storeFailure("recent events", err)
	}
	m := p.classifier.MatchForDeletion(text, recent, opts)
	if m.NeedsDetail {
		return Response{
			Kind:                KindClarify,
			ClarificationNeeded: true,
			Message:             "I couldn't tell which event you mean. Could you give its name?",
		}, nil
	}

	if err := p.applyDeletes(ctx, owner, ref, m.Events, "requested: "+text); err != nil {
		return Response{}, err
	}
	resp := Response{Kind: KindDeleted, Deleted: m.Events}
	resp.Message = summarize(resp)
	return resp, nil
}

func (p *Planner) applyDeletes(ctx context.Context, owner string, at time.Time, events []model.Event, reason string) error {
	audit := make([]scheduler.AuditEntry, 0, len(events))
	for i := range events {
		before := events[i]
		audit = append(audit, scheduler.AuditEntry{
			Actor:   userActor,
			Action:  scheduler.ActionDelete,
			EventID: before.ID,
			Before:  &before,
			Reason:  reason,
		})
	}
	if err := p.store.Apply(ctx, owner, Batch{At: at, Deleted: events, Audit: audit}); err != nil {
		return p.storeFailure("apply", err)
	}
	p.metrics.ObserveDelete(len(events))
	return nil
}

// query lists events on the day the text names, or the coming week when it
// names none.
func (p *Planner) query(ctx context.Context, text, owner string, ref time.Time, s Settings) (Response, error) {
	local := ref.In(s.Location)
	y, m, d := local.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, s.Location)
	to := from.AddDate(0, 0, 7)
	label := "in the next 7 days"
	if ivs, err := p.interpreter.Interpret(text, ref, s.Location); err == nil && len(ivs) > 0 {
		y, m, d = ivs[0].Start.Date()
		from = time.Date(y, m, d, 0, 0, 0, 0, s.Location)
		to = from.AddDate(0, 0, 1)
		label = "on " + from.Format("Mon Jan 2")
	}

	events, err := p.Agenda(ctx, owner, from, to)
	if err != nil {
		return Response{}, err
	}
	msg := fmt.Sprintf("You have nothing scheduled %s.", label)
	if len(events) > 0 {
		lines := make([]string, 0, len(events)+1)
		lines = append(lines, fmt.Sprintf("You have %d event(s) %s:", len(events), label))
		for _, ev := range events {
			lines = append(lines, "- "+describe(ev))
		}
		msg = strings.Join(lines, "\n")
	}
	return Response{Kind: KindQuery, Events: events, Message: msg}, nil
}

func (p *Planner) remember(ctx context.Context, owner, text string, resp Response, at time.Time) {
	h, ok := p.store.(History)
	if !ok {
		return
	}
	if err := h.AppendConversation(ctx, owner, text, resp.Message, string(resp.Kind), at); err != nil {
		p.log.Warn("conversation not recorded", zap.String("owner", owner), zap.Error(err))
	}
}

func summarize(r Response) string {
	lines := make([]string, 0)
	for _, ev := range r.Created {
		lines = append(lines, "Scheduled "+describe(ev)+".")
	}
	for _, ev := range r.Updated {
		lines = append(lines, "Moved "+describe(ev)+".")
	}
	for _, ev := range r.Deleted {
		lines = append(lines, "Removed "+describe(ev)+".")
	}
	for _, c := range r.Unresolved {
		lines = append(lines, fmt.Sprintf("Still overlapping: %s and %s (%s).", c.A.Title, c.B.Title, c.Reason))
	}
	lines = append(lines, r.Notes...)
	if len(lines) == 0 {
		return "Nothing changed."
	}
	return strings.Join(lines, "\n")
}

func inLocation(events []model.Event, loc *time.Location) []model.Event {
	if len(events) == 0 {
		return nil
	}
	out := make([]model.Event, len(events))
	for i, ev := range events {
		out[i] = ev.In(loc)
	}
	return out
}
