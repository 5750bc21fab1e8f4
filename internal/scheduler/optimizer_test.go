package scheduler

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/phantom/internal/model"
)

func finalSchedule(existing []model.Event, plan Plan) []model.Event {
	byID := make(map[string]model.Event)
	for _, e := range existing {
		byID[e.ID] = e
	}
	for _, e := range plan.Updated {
		byID[e.ID] = e
	}
	for _, e := range plan.Deleted {
		delete(byID, e.ID)
	}
	for _, e := range plan.Created {
		byID[e.ID] = e
	}
	out := make([]model.Event, 0, len(byID))
	for _, e := range byID {
		out = append(out, e)
	}
	return out
}

func TestOptimizerExamScenario(t *testing.T) {
	// Monday 2026-05-04; the exam is on Friday.
	exam := ev("exam", model.CategoryExam, at(4, 9, 0), 3*time.Hour, false)
	drafts := append([]model.Event{exam}, DeriveStudySessions(exam, DefaultStudyConfig())...)
	for i := range drafts[1:] {
		drafts[i+1].ID = fmt.Sprintf("study-%d", i+1)
	}
	existing := []model.Event{
		ev("gym", model.CategoryGym, at(1, 19, 0), time.Hour, true),
		ev("social", model.CategorySocial, at(2, 20, 0), time.Hour, false),
		ev("gaming", model.CategoryGaming, at(3, 19, 30), 2*time.Hour, false),
	}

	plan := NewOptimizer(weekResolver(at(0, 8, 0))).Optimize(existing, drafts)

	require.Empty(t, plan.Unresolved)
	assert.Len(t, plan.Created, 4)
	require.Len(t, plan.Updated, 1)
	assert.Equal(t, "gym", plan.Updated[0].ID)
	assert.Equal(t, at(0, 19, 0), plan.Updated[0].Start)

	deleted := []string{}
	for _, e := range plan.Deleted {
		deleted = append(deleted, e.ID)
	}
	assert.ElementsMatch(t, []string{"social", "gaming"}, deleted)

	final := finalSchedule(existing, plan)
	assert.Len(t, final, len(existing)+len(drafts)-len(plan.Deleted))
	assert.Empty(t, FindOverlaps(final))

	actions := map[string]int{}
	for _, a := range plan.Audit {
		actions[a.Action]++
	}
	assert.Equal(t, map[string]int{ActionCreate: 4, ActionReschedule: 1, ActionDelete: 2}, actions)
}

func TestOptimizerKeepsDurationAndCategory(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cats := model.Categories
	existing := make([]model.Event, 0, 30)
	for i := 0; i < 30; i++ {
		start := at(1+rng.Intn(3), 8+rng.Intn(12), 30*rng.Intn(2))
		d := time.Duration(1+rng.Intn(4)) * 30 * time.Minute
		existing = append(existing, ev(fmt.Sprintf("e%02d", i), cats[rng.Intn(len(cats))], start, d, rng.Intn(2) == 0))
	}
	byID := make(map[string]model.Event, len(existing))
	for _, e := range existing {
		byID[e.ID] = e
	}

	plan := NewOptimizer(weekResolver(at(0, 8, 0))).Optimize(existing, nil)

	for _, u := range plan.Updated {
		orig := byID[u.ID]
		assert.Equal(t, orig.Duration(), u.Duration(), u.ID)
		assert.Equal(t, orig.Category, u.Category, u.ID)
		assert.True(t, orig.Flexible, "only flexible events move: %s", u.ID)
	}
	final := finalSchedule(existing, plan)
	assert.Len(t, final, len(existing)-len(plan.Deleted))

	// Whatever still overlaps must be reported.
	reported := make(map[string]bool)
	for _, c := range plan.Unresolved {
		reported[pairKey(Pair{A: c.A, B: c.B})] = true
	}
	for _, p := range FindOverlaps(final) {
		assert.True(t, reported[pairKey(p)], "unreported overlap %s", pairKey(p))
	}
}

func TestOptimizerNeverDeletesDrafts(t *testing.T) {
	exam := ev("exam", model.CategoryExam, at(2, 10, 0), 2*time.Hour, false)
	draft := ev("", model.CategoryGaming, at(2, 11, 0), time.Hour, false)

	plan := NewOptimizer(weekResolver(at(0, 8, 0))).Optimize([]model.Event{exam}, []model.Event{draft})
	assert.Empty(t, plan.Deleted)
	require.Len(t, plan.Created, 1)
	assert.Equal(t, "draft-1", plan.Created[0].ID)
	require.Len(t, plan.Unresolved, 1)
	assert.Contains(t, plan.Unresolved[0].Reason, "new event would be removed")
}

func TestOptimizerNoConflictsIsNoop(t *testing.T) {
	existing := []model.Event{
		ev("a", model.CategoryGym, at(1, 9, 0), time.Hour, true),
		ev("b", model.CategoryStudy, at(1, 10, 0), time.Hour, true),
	}
	plan := NewOptimizer(weekResolver(at(0, 8, 0))).Optimize(existing, nil)
	assert.False(t, plan.HasChanges())
	assert.Zero(t, plan.Iterations)
	assert.Empty(t, plan.Audit)
}

func TestOptimizerSeparatesEqualPriorityFlexibleEvents(t *testing.T) {
	existing := []model.Event{
		ev("first", model.CategoryStudy, at(1, 18, 0), 2*time.Hour, true),
		ev("second", model.CategoryStudy, at(1, 19, 0), 2*time.Hour, true),
	}

	plan := NewOptimizer(weekResolver(at(0, 8, 0))).Optimize(existing, nil)

	require.Empty(t, plan.Unresolved)
	require.Len(t, plan.Updated, 1)
	assert.Equal(t, "second", plan.Updated[0].ID)
	assert.Equal(t, at(2, 19, 0), plan.Updated[0].Start)

	for _, p := range FindOverlaps(finalSchedule(existing, plan)) {
		assert.False(t, p.A.Flexible && p.B.Flexible, "flexible pair still overlaps: %s", pairKey(p))
	}
}

func TestOptimizerStopsAtIterationLimit(t *testing.T) {
	existing := []model.Event{
		ev("a", model.CategoryGym, at(1, 9, 0), time.Hour, false),
		ev("b", model.CategoryGym, at(1, 9, 30), time.Hour, false),
	}
	o := NewOptimizer(weekResolver(at(0, 8, 0)))
	o.MaxIterations = 1
	plan := o.Optimize(existing, nil)
	assert.Equal(t, 1, plan.Iterations)
	require.Len(t, plan.Unresolved, 1)
	assert.Contains(t, plan.Unresolved[0].Reason, "equal priority")
}

func TestDeriveStudySessions(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Dhaka")
	require.NoError(t, err)
	exam := model.Event{
		OwnerID:  "owner",
		Title:    "Physics exam",
		Category: model.CategoryExam,
		Start:    time.Date(2026, 5, 8, 9, 0, 0, 0, loc),
		End:      time.Date(2026, 5, 8, 12, 0, 0, 0, loc),
	}

	got := DeriveStudySessions(exam, DefaultStudyConfig())
	require.Len(t, got, 3)
	for i, s := range got {
		assert.Equal(t, time.Date(2026, 5, 5+i, 19, 0, 0, 0, loc), s.Start)
		assert.Equal(t, 2*time.Hour, s.Duration())
		assert.Equal(t, model.CategoryStudy, s.Category)
		assert.Equal(t, "Study for Physics exam", s.Title)
		assert.True(t, s.Flexible)
		assert.Equal(t, "owner", s.OwnerID)
	}

	assert.Len(t, DeriveStudySessions(exam, StudyConfig{Sessions: 9}), 3)
	assert.Len(t, DeriveStudySessions(exam, StudyConfig{Sessions: 1}), 2)

	exam.Category = model.CategoryGym
	assert.Nil(t, DeriveStudySessions(exam, DefaultStudyConfig()))
}
