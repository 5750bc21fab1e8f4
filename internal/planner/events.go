package planner

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sandeepkv93/phantom/internal/model"
)

var validate = validator.New()

// EventRequest is a structured request to add one event.
type EventRequest struct {
	OwnerID     string `validate:"required"`
	Title       string `validate:"required,max=200"`
	Description string `validate:"max=2000"`
	Category    string `validate:"required"`
	Start       time.Time
	End         time.Time
	// Flexible defaults to true for everything but exams.
	Flexible *bool
}

func (r EventRequest) check() (model.Category, error) {
	fields := make([]model.FieldError, 0)
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return "", &model.ValidationError{Err: err}
		}
		for _, fe := range verrs {
			fields = append(fields, model.FieldError{Field: strings.ToLower(fe.Field()), Message: fe.Tag()})
		}
	}
	category, catErr := model.ParseCategory(r.Category)
	if r.Category != "" && catErr != nil {
		fields = append(fields, model.FieldError{Field: "category", Message: catErr.Error()})
	}
	if r.Start.IsZero() || r.End.IsZero() {
		fields = append(fields, model.FieldError{Field: "start", Message: "start and end are required"})
	}
	if len(fields) > 0 {
		return "", &model.ValidationError{Fields: fields}
	}
	if !r.End.After(r.Start) {
		return "", &model.ValidationError{
			Fields: []model.FieldError{{Field: "end", Message: "must be after start"}},
			Err:    model.ErrInvalidInterval,
		}
	}
	return category, nil
}

// CreateEvent validates req, then schedules it exactly like a parsed request
// would be, including derived study sessions for exams. It returns the event
// as stored, which may have been moved to resolve a conflict.
func (p *Planner) CreateEvent(ctx context.Context, req EventRequest) (model.Event, error) {
	category, err := req.check()
	if err != nil {
		return model.Event{}, err
	}
	settings, err := p.settings(ctx, req.OwnerID)
	if err != nil {
		return model.Event{}, err
	}
	now := p.clock()

	ev := p.draft(req.OwnerID, strings.TrimSpace(req.Title), category, model.Interval{Start: req.Start, End: req.End}, now)
	ev.Description = req.Description
	if req.Flexible != nil {
		ev.Flexible = *req.Flexible
	}
	if err := ev.Validate(); err != nil {
		return model.Event{}, err
	}

	drafts, notes := p.withDerived([]model.Event{ev}, now)
	from, to := span(drafts)
	plan, err := p.plan(ctx, req.OwnerID, now, drafts, from, to)
	if err != nil {
		return model.Event{}, err
	}
	if err := p.apply(ctx, req.OwnerID, now, plan); err != nil {
		return model.Event{}, err
	}
	for _, c := range plan.Created {
		if c.ID == ev.ID {
			ev = c
			break
		}
	}
	p.log.Info("event created", zap.String("owner", req.OwnerID), zap.String("event_id", ev.ID), zap.Int("unresolved", len(plan.Unresolved)), zap.Strings("notes", notes))
	return ev.In(settings.Location), nil
}

// DeleteEvent removes one event by ID.
func (p *Planner) DeleteEvent(ctx context.Context, owner, id string) error {
	if strings.TrimSpace(id) == "" {
		return &model.ValidationError{Fields: []model.FieldError{{Field: "id", Message: "is required"}}}
	}
	return p.applyDeletes(ctx, owner, p.clock(), []model.Event{{ID: id, OwnerID: owner}}, "deleted by id")
}

// Agenda returns the owner's events overlapping [from, to) in start order,
// expressed in the owner's timezone.
func (p *Planner) Agenda(ctx context.Context, owner string, from, to time.Time) ([]model.Event, error) {
	settings, err := p.settings(ctx, owner)
	if err != nil {
		return nil, err
	}
	events, err := p.store.ListEvents(ctx, owner, from, to)
	if err != nil {
		return nil, p.storeFailure("list events", err)
	}
	out := inLocation(events, settings.Location)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// Result is the outcome of an explicit optimization run.
type Result struct {
	Updated    []model.Event
	Deleted    []model.Event
	Unresolved []model.Conflict
	Iterations int
}

// Optimize re-resolves every overlap among the owner's events in [from, to).
// Events are only moved inside that range and never into the past. When
// nothing could be changed but overlaps remain, the error is a
// *model.ImpossibleScheduleError carrying them.
func (p *Planner) Optimize(ctx context.Context, owner string, from, to time.Time) (Result, error) {
	if !to.After(from) {
		return Result{}, &model.ValidationError{Err: model.ErrInvalidInterval}
	}
	settings, err := p.settings(ctx, owner)
	if err != nil {
		return Result{}, err
	}
	now := p.clock()
	existing, err := p.store.ListEvents(ctx, owner, from, to)
	if err != nil {
		return Result{}, p.storeFailure("list events", err)
	}

	window := model.Interval{Start: from, End: to}
	if window.Start.Before(now) {
		window.Start = now
	}
	plan := p.optimizer(now, window).Optimize(existing, nil)

	res := Result{
		Updated:    inLocation(plan.Updated, settings.Location),
		Deleted:    inLocation(plan.Deleted, settings.Location),
		Unresolved: plan.Unresolved,
		Iterations: plan.Iterations,
	}
	if !plan.HasChanges() {
		if len(plan.Unresolved) > 0 {
			return res, &model.ImpossibleScheduleError{Conflicts: plan.Unresolved}
		}
		return res, nil
	}
	if err := p.apply(ctx, owner, now, plan); err != nil {
		return Result{}, err
	}
	p.log.Info("schedule optimized",
		zap.String("owner", owner),
		zap.Int("updated", len(res.Updated)),
		zap.Int("deleted", len(res.Deleted)),
		zap.Int("unresolved", len(res.Unresolved)),
		zap.Int("iterations", res.Iterations),
	)
	return res, nil
}
