// Package planner is the entry point to the scheduling engine. It turns
// requests into drafts, runs the optimizer over the affected range and hands
// the resulting batch to a Store in one call.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sandeepkv93/phantom/internal/classify"
	"github.com/sandeepkv93/phantom/internal/metrics"
	"github.com/sandeepkv93/phantom/internal/model"
	"github.com/sandeepkv93/phantom/internal/scheduler"
	"github.com/sandeepkv93/phantom/internal/temporal"
)

const (
	DefaultHorizon  = 7 * 24 * time.Hour
	DefaultTimezone = "Asia/Dhaka"
	userActor       = "user"
)

type Planner struct {
	store       Store
	log         *zap.Logger
	metrics     *metrics.Recorder
	classifier  *classify.Classifier
	interpreter *temporal.Interpreter
	priorities  model.PriorityTable
	study       scheduler.StudyConfig
	match       classify.MatchOptions
	horizon     time.Duration
	maxIter     int
	location    *time.Location
	clock       func() time.Time
	newID       func() string
}

type Option func(*Planner)

func WithLogger(l *zap.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.log = l
		}
	}
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(p *Planner) { p.metrics = r }
}

func WithClassifier(c *classify.Classifier) Option {
	return func(p *Planner) {
		if c != nil {
			p.classifier = c
		}
	}
}

func WithInterpreter(in *temporal.Interpreter) Option {
	return func(p *Planner) {
		if in != nil {
			p.interpreter = in
		}
	}
}

func WithPriorities(t model.PriorityTable) Option {
	return func(p *Planner) { p.priorities = t }
}

func WithStudyConfig(c scheduler.StudyConfig) Option {
	return func(p *Planner) { p.study = c }
}

func WithMatchOptions(o classify.MatchOptions) Option {
	return func(p *Planner) { p.match = o }
}

// WithHorizon bounds how far the optimizer may move an event.
func WithHorizon(d time.Duration) Option {
	return func(p *Planner) {
		if d > 0 {
			p.horizon = d
		}
	}
}

func WithMaxIterations(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.maxIter = n
		}
	}
}

// WithLocation sets the timezone used when the store has none for an owner.
func WithLocation(loc *time.Location) Option {
	return func(p *Planner) {
		if loc != nil {
			p.location = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Planner) {
		if now != nil {
			p.clock = now
		}
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(p *Planner) {
		if gen != nil {
			p.newID = gen
		}
	}
}

func New(store Store, opts ...Option) (*Planner, error) {
	if store == nil {
		return nil, errors.New("planner: nil store")
	}
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		loc = time.UTC
	}
	p := &Planner{
		store:       store,
		log:         zap.NewNop(),
		classifier:  classify.Default(),
		interpreter: temporal.Default(),
		priorities:  model.DefaultPriorityTable(),
		study:       scheduler.DefaultStudyConfig(),
		horizon:     DefaultHorizon,
		maxIter:     scheduler.DefaultMaxIterations,
		location:    loc,
		clock:       time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Planner) Priorities() model.PriorityTable { return p.priorities }

func (p *Planner) settings(ctx context.Context, owner string) (Settings, error) {
	s, err := p.store.Settings(ctx, owner)
	if err != nil {
		return Settings{}, p.storeFailure("settings", err)
	}
	if s.Location == nil {
		s.Location = p.location
	}
	return s, nil
}

func (p *Planner) optimizer(now time.Time, window model.Interval) scheduler.Optimizer {
	r := scheduler.NewResolver(p.priorities, now, window)
	o := scheduler.NewOptimizer(r)
	o.MaxIterations = p.maxIter
	return o
}

// plan loads everything overlapping the search window around drafts, runs
// the optimizer and returns its plan together with the window used.
func (p *Planner) plan(ctx context.Context, owner string, now time.Time, drafts []model.Event, from, to time.Time) (scheduler.Plan, error) {
	window := model.Interval{Start: from.Add(-p.horizon), End: to.Add(p.horizon)}
	if window.Start.Before(now) {
		window.Start = now
	}
	if !window.End.After(window.Start) {
		window.End = window.Start.Add(p.horizon)
	}
	existing, err := p.store.ListEvents(ctx, owner, window.Start, window.End)
	if err != nil {
		return scheduler.Plan{}, p.storeFailure("list events", err)
	}
	plan := p.optimizer(now, window).Optimize(existing, drafts)
	for i := range plan.Audit {
		if plan.Audit[i].Action == scheduler.ActionCreate {
			plan.Audit[i].Actor = userActor
		}
	}
	return plan, nil
}

func (p *Planner) apply(ctx context.Context, owner string, at time.Time, plan scheduler.Plan) error {
	if !plan.HasChanges() {
		return nil
	}
	b := Batch{
		At:      at,
		Created: plan.Created,
		Updated: plan.Updated,
		Deleted: plan.Deleted,
		Audit:   plan.Audit,
	}
	if err := p.store.Apply(ctx, owner, b); err != nil {
		return p.storeFailure("apply", err)
	}
	for _, a := range plan.Audit {
		p.log.Debug("audit",
			zap.String("owner", owner),
			zap.String("action", a.Action),
			zap.String("event_id", a.EventID),
			zap.String("reason", a.Reason),
		)
	}
	p.metrics.ObservePlan(len(plan.Created), len(plan.Updated), len(plan.Deleted), len(plan.Unresolved), plan.Iterations)
	return nil
}

func (p *Planner) storeFailure(op string, err error) error {
	var sf *model.StoreFailure
	if errors.As(err, &sf) {
		return err
	}
	p.metrics.ObserveStoreFailure()
	p.log.Error("store failure", zap.String("op", op), zap.Error(err))
	return &model.StoreFailure{Op: op, Err: err}
}

// draft builds a new event with a fresh ID. Exams are pinned; everything
// else may be moved by the optimizer.
func (p *Planner) draft(owner, title string, category model.Category, iv model.Interval, now time.Time) model.Event {
	return model.Event{
		ID:        p.newID(),
		OwnerID:   owner,
		Title:     title,
		Category:  category,
		Start:     iv.Start,
		End:       iv.End,
		Flexible:  category != model.CategoryExam,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// earliestStudyHour bounds how early in the day a catch-up session may start.
const earliestStudyHour = 8

// withDerived appends study sessions for the exams in drafts. Exams sharing a
// title derive once, from the earliest of them. Sessions that would start
// before now are packed back to back ahead of the first remaining session
// (or the exam); the notes say when fewer than planned still fit.
func (p *Planner) withDerived(drafts []model.Event, now time.Time) ([]model.Event, []string) {
	out := append([]model.Event(nil), drafts...)
	var notes []string
	for _, exam := range earliestExams(drafts) {
		planned := scheduler.DeriveStudySessions(exam, p.study)
		sessions := catchUp(exam, planned, now)
		if len(sessions) < len(planned) {
			notes = append(notes, fmt.Sprintf("Only %d of %d study sessions fit before %s.", len(sessions), len(planned), exam.Title))
		}
		for _, s := range sessions {
			s.ID = p.newID()
			s.CreatedAt, s.UpdatedAt = now, now
			out = append(out, s)
		}
	}
	return out, notes
}

func earliestExams(drafts []model.Event) []model.Event {
	out := make([]model.Event, 0)
	index := make(map[string]int)
	for _, d := range drafts {
		if d.Category != model.CategoryExam {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(d.Title))
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, d)
			continue
		}
		if d.Start.Before(out[i].Start) {
			out[i] = d
		}
	}
	return out
}

// catchUp keeps the sessions that start at or after now and moves the rest
// into the hours just before the earliest kept one, never before now or
// before earliestStudyHour.
func catchUp(exam model.Event, sessions []model.Event, now time.Time) []model.Event {
	kept := make([]model.Event, 0, len(sessions))
	for _, s := range sessions {
		if !s.Start.Before(now) {
			kept = append(kept, s)
		}
	}
	missing := len(sessions) - len(kept)
	if missing == 0 {
		return kept
	}

	limit := exam.Start
	if len(kept) > 0 {
		limit = kept[0].Start
	}
	d := sessions[0].Duration()
	early := make([]model.Event, 0, missing)
	for i := 1; i <= missing; i++ {
		start := limit.Add(-time.Duration(i) * d)
		if start.Before(now) || start.Hour() < earliestStudyHour || !sameDay(start, limit) {
			break
		}
		early = append(early, sessions[0].Shift(start))
	}
	for i, j := 0, len(early)-1; i < j; i, j = i+1, j-1 {
		early[i], early[j] = early[j], early[i]
	}
	return append(early, kept...)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

func span(events []model.Event) (time.Time, time.Time) {
	var from, to time.Time
	for i, ev := range events {
		if i == 0 || ev.Start.Before(from) {
			from = ev.Start
		}
		if i == 0 || ev.End.After(to) {
			to = ev.End
		}
	}
	return from, to
}

func describe(ev model.Event) string {
	return fmt.Sprintf("%s (%s, %s)", ev.Title, ev.Category, ev.Start.Format("Mon Jan 2 15:04"))
}
