package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/fhstp/meeteux-odwww/internal/location"
	"github.com/fhstp/meeteux-odwww/internal/models"
	"github.com/fhstp/meeteux-odwww/internal/native"
	"github.com/fhstp/meeteux-odwww/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProtocol struct {
	calls []string
	conts []func(string)
}

func (f *fakeProtocol) RegisterLocation(id int, dismissed bool) {
	f.calls = append(f.calls, fmt.Sprintf("registerLocation(%d,%v)", id, dismissed))
}

func (f *fakeProtocol) CheckLocationStatus(id int, cont func(string)) {
	f.calls = append(f.calls, fmt.Sprintf("checkLocationStatus(%d)", id))
	f.conts = append(f.conts, cont)
}

func (f *fakeProtocol) RegisterTimelineUpdate(id int) {
	f.calls = append(f.calls, fmt.Sprintf("registerTimelineUpdate(%d)", id))
}

func (f *fakeProtocol) DisconnectedFromExhibit(parentID, locationID int) {
	f.calls = append(f.calls, fmt.Sprintf("disconnectedFromExhibit(%d,%d)", parentID, locationID))
}

type fakeNotifier struct{ bodies []any }

func (f *fakeNotifier) Notify(body any, _ native.Action) { f.bodies = append(f.bodies, body) }

func testTable() models.LookupTable {
	return models.LookupTable{
		3:  {ID: 3, Description: "Hall", LocationTypeID: 1, ContentURL: "/hall"},
		7:  {ID: 7, Description: "Exhibit", LocationTypeID: 1, ContentURL: "/tableat"},
		9:  {ID: 9, Description: "Other exhibit", LocationTypeID: 3, ContentURL: "/tableat"},
		12: {ID: 12, Description: "Seat", LocationTypeID: models.LocationTypeTableOn, ParentID: 7, ContentURL: "/tableon"},
		13: {ID: 13, Description: "Other seat", LocationTypeID: models.LocationTypeTableOn, ParentID: 9, ContentURL: "/tableon"},
	}
}

type fixture struct {
	engine  *Engine
	store   *store.Store
	tracker *location.Tracker
	god     *fakeProtocol
	native  *fakeNotifier
}

func newFixture(t *testing.T, mutate func(*store.State), cfg Config) *fixture {
	t.Helper()
	state := store.State{
		User:        &models.User{ID: 42},
		LookupTable: testTable(),
		IsLoggedIn:  true,
	}
	if mutate != nil {
		mutate(&state)
	}
	st := store.New(state, zap.NewNop())
	tr := location.NewTracker(st, 0, zap.NewNop())
	f := &fixture{store: st, tracker: tr, god: &fakeProtocol{}, native: &fakeNotifier{}}
	f.engine = New(st, tr, f.god, f.native, cfg, zap.NewNop())
	return f
}

func at(id int) func(*store.State) {
	return func(s *store.State) {
		loc := testTable()[id]
		s.CurrentLocation = &loc
	}
}

// Scenario A
func TestEvaluateCandidate_ExhibitTransition(t *testing.T) {
	f := newFixture(t, at(3), Config{})

	f.engine.EvaluateCandidate(7)

	assert.Equal(t, []string{"registerLocation(7,false)"}, f.god.calls)
}

// Scenario B
func TestEvaluateCandidate_SubLocationFree(t *testing.T) {
	f := newFixture(t, func(s *store.State) {
		at(7)(s)
		s.AtExhibitParentID = 7
	}, Config{})

	f.engine.EvaluateCandidate(12)
	require.Equal(t, []string{"checkLocationStatus(12)"}, f.god.calls)

	f.god.conts[0](store.StatusFree)

	assert.Equal(t, []string{"checkLocationStatus(12)", "registerLocation(12,false)"}, f.god.calls)
	assert.Equal(t, store.StatusFree, f.store.GetState().LocationSocketStatus)
}

func TestEvaluateCandidate_SubLocationOccupied(t *testing.T) {
	f := newFixture(t, func(s *store.State) {
		at(7)(s)
		s.AtExhibitParentID = 7
	}, Config{})

	f.engine.EvaluateCandidate(12)
	f.god.conts[0](store.StatusOccupied)

	assert.Equal(t, []string{"checkLocationStatus(12)"}, f.god.calls)
	assert.Equal(t, store.StatusOccupied, f.store.GetState().LocationSocketStatus)
}

func TestEvaluateCandidate_Unresolved(t *testing.T) {
	f := newFixture(t, nil, Config{})

	f.engine.EvaluateCandidate(404)

	assert.Empty(t, f.god.calls)
	assert.Equal(t, []any{"this is not a valid location"}, f.native.bodies)
}

func TestEvaluateCandidate_Idempotent(t *testing.T) {
	f := newFixture(t, at(7), Config{})

	f.engine.EvaluateCandidate(7)
	f.engine.EvaluateCandidate(7)

	assert.Empty(t, f.god.calls)
}

func TestEvaluateCandidate_SeatedIgnoresOtherBeacons(t *testing.T) {
	f := newFixture(t, func(s *store.State) {
		at(12)(s)
		s.AtExhibitParentID = 7
	}, Config{})

	f.engine.EvaluateCandidate(3)
	f.engine.EvaluateCandidate(7)

	assert.Empty(t, f.god.calls)
}

func TestEvaluateCandidate_SubLocationOfOtherExhibit(t *testing.T) {
	f := newFixture(t, func(s *store.State) {
		at(7)(s)
		s.AtExhibitParentID = 7
	}, Config{})

	f.engine.EvaluateCandidate(13)

	assert.Empty(t, f.god.calls)
}

func TestEvaluateCandidate_SubLocationWithoutJoining(t *testing.T) {
	f := newFixture(t, at(7), Config{})

	f.engine.EvaluateCandidate(12)

	assert.Empty(t, f.god.calls)
}

func TestEvaluateCandidate_OnExhibitRejectsExhibits(t *testing.T) {
	f := newFixture(t, func(s *store.State) {
		at(7)(s)
		s.OnExhibit = true
		s.AtExhibitParentID = 7
	}, Config{})

	f.engine.EvaluateCandidate(3)
	f.engine.EvaluateCandidate(9)

	assert.Empty(t, f.god.calls)
}

func TestEvaluateCandidate_FromUnset(t *testing.T) {
	f := newFixture(t, nil, Config{})

	f.engine.EvaluateCandidate(9)

	assert.Equal(t, []string{"registerLocation(9,false)"}, f.god.calls)
}

func TestHandleBeacon_Throttled(t *testing.T) {
	f := newFixture(t, nil, Config{BeaconRate: 0.001, BeaconBurst: 1})

	f.engine.HandleBeacon(native.Beacon{Minor: 7, Major: 100})
	f.engine.HandleBeacon(native.Beacon{Minor: 7, Major: 100})
	f.engine.HandleBeacon(native.Beacon{Minor: 3, Major: 100})

	assert.Equal(t, []string{"registerLocation(7,false)", "registerLocation(3,false)"}, f.god.calls)
	assert.Equal(t, 3, f.store.GetState().ClosestExhibit)
}

func TestHandleBeacon_Unlimited(t *testing.T) {
	f := newFixture(t, nil, Config{})

	for i := 0; i < 3; i++ {
		f.engine.HandleBeacon(native.Beacon{Minor: 7})
	}

	assert.Len(t, f.god.calls, 3)
}

func TestHandleTimelineUpdate(t *testing.T) {
	f := newFixture(t, nil, Config{})
	f.engine.HandleTimelineUpdate(native.Beacon{Minor: 1000, Major: 100})
	assert.Equal(t, []string{"registerTimelineUpdate(1000)"}, f.god.calls)

	out := newFixture(t, func(s *store.State) { s.IsLoggedIn = false }, Config{})
	out.engine.HandleTimelineUpdate(native.Beacon{Minor: 1000})
	assert.Empty(t, out.god.calls)
}

func TestExhibitContext(t *testing.T) {
	f := newFixture(t, func(s *store.State) {
		at(7)(s)
		s.ClosestExhibit = 12
	}, Config{})

	require.True(t, f.engine.JoinExhibit())
	f.engine.SetOnExhibit(true)
	assert.Equal(t, 7, f.store.GetState().AtExhibitParentID)
	assert.True(t, f.store.GetState().OnExhibit)

	f.tracker.UpdateCurrentLocation(12)
	assert.False(t, f.engine.JoinExhibit())

	f.engine.LeaveExhibit()
	assert.Equal(t, []string{"disconnectedFromExhibit(7,12)"}, f.god.calls)
	assert.Zero(t, f.store.GetState().AtExhibitParentID)
	assert.False(t, f.store.GetState().OnExhibit)
}

func TestJoinExhibit_RequiresExhibitInRange(t *testing.T) {
	f := newFixture(t, at(7), Config{})

	assert.False(t, f.engine.JoinExhibit())

	f.engine.HandleBeacon(native.Beacon{Minor: 3})
	assert.False(t, f.engine.JoinExhibit())
	assert.Zero(t, f.store.GetState().AtExhibitParentID)

	f.store.Dispatch(store.ChangeClosestExhibit{LocationID: 7})
	assert.True(t, f.engine.JoinExhibit())
	assert.Equal(t, 7, f.store.GetState().AtExhibitParentID)
}

type fakeScheduler struct {
	delay, interval time.Duration
	fn              func()
	stopped         int
}

func (s *fakeScheduler) Every(delay, interval time.Duration, fn func()) func() {
	s.delay, s.interval, s.fn = delay, interval, fn
	return func() { s.stopped++ }
}

func TestStatusPoller(t *testing.T) {
	f := newFixture(t, at(7), Config{})
	sched := &fakeScheduler{}
	p := NewStatusPoller(sched, f.store, f.tracker, f.god, 100*time.Millisecond, 50*time.Second, zap.NewNop())

	p.Start()
	p.Start()
	require.NotNil(t, sched.fn)
	assert.Equal(t, 100*time.Millisecond, sched.delay)
	assert.Equal(t, 50*time.Second, sched.interval)

	sched.fn()
	assert.Equal(t, []string{"checkLocationStatus(7)"}, f.god.calls)
	assert.Nil(t, f.god.conts[0])

	p.Stop()
	p.Stop()
	assert.Equal(t, 1, sched.stopped)
}

func TestStatusPoller_SkipsWithoutLocation(t *testing.T) {
	f := newFixture(t, nil, Config{})
	p := NewStatusPoller(&fakeScheduler{}, f.store, f.tracker, f.god, 0, time.Second, zap.NewNop())

	p.Poll()

	assert.Empty(t, f.god.calls)
}
