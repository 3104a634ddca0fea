package store

import (
	"context"
	"errors"
	"testing"

	"github.com/fhstp/meeteux-odwww/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSink struct {
	entries []Entry
	err     error
}

func (r *recordingSink) Record(ctx context.Context, e Entry) error {
	r.entries = append(r.entries, e)
	return r.err
}

type bogusAction struct{}

func (bogusAction) Type() string { return "BOGUS" }

func TestReduce_AllActions(t *testing.T) {
	user := &models.User{ID: 4, Name: "visitor"}
	loc := &models.Location{ID: 7}
	table := models.LookupTable{7: *loc}

	s := State{}
	for _, a := range []Action{
		ChangeUser{User: user},
		ChangeLookupTable{Table: table},
		ChangeToken{Token: "tok"},
		ChangeLoggedIn{LoggedIn: true},
		ChangeLanguage{Language: 2},
		ChangeCurrentLocation{Location: loc},
		ChangeLocationStatus{Status: StatusFree},
		ChangeLocationSocketStatus{Status: StatusOccupied},
		ChangeAtExhibitParentID{ParentID: 7},
		ChangeOnExhibit{OnExhibit: true},
		ChangeClosestExhibit{LocationID: 7},
		ChangeErrorMessage{Message: models.Message{Code: 501, Text: "login failed"}},
		ChangeSuccessMessage{Message: models.Message{Code: 200, Text: "ok"}},
	} {
		var ok bool
		s, ok = Reduce(s, a)
		require.True(t, ok, a.Type())
	}

	assert.Equal(t, 4, s.UserID())
	assert.Equal(t, "tok", s.Token)
	assert.True(t, s.IsLoggedIn)
	assert.Equal(t, 2, s.Language)
	assert.Equal(t, 7, s.CurrentLocation.ID)
	assert.Equal(t, StatusFree, s.LocationStatus)
	assert.Equal(t, StatusOccupied, s.LocationSocketStatus)
	assert.Equal(t, 7, s.AtExhibitParentID)
	assert.True(t, s.OnExhibit)
	assert.Equal(t, 501, s.ErrorMessage.Code)
	assert.Equal(t, 200, s.SuccessMessage.Code)
}

func TestReduce_UnknownAction(t *testing.T) {
	s := State{Token: "keep"}
	next, ok := Reduce(s, bogusAction{})
	assert.False(t, ok)
	assert.Equal(t, s, next)
}

func TestStore_DispatchNotifiesInOrder(t *testing.T) {
	st := New(State{}, zap.NewNop())

	var calls []string
	st.Subscribe(func(s State) { calls = append(calls, "first:"+s.Token) })
	unsubscribe := st.Subscribe(func(s State) { calls = append(calls, "second:"+s.Token) })

	st.Dispatch(ChangeToken{Token: "a"})
	unsubscribe()
	st.Dispatch(ChangeToken{Token: "b"})

	assert.Equal(t, []string{"first:a", "second:a", "first:b"}, calls)
	assert.Equal(t, uint64(2), st.Seq())
	assert.Equal(t, "b", st.GetState().Token)
}

func TestStore_UnknownActionDoesNotNotify(t *testing.T) {
	st := New(State{}, zap.NewNop())
	notified := false
	st.Subscribe(func(State) { notified = true })

	st.Dispatch(bogusAction{})

	assert.False(t, notified)
	assert.Equal(t, uint64(0), st.Seq())
}

func TestStore_SinkReceivesEntries(t *testing.T) {
	st := New(State{}, zap.NewNop())
	sink := &recordingSink{err: errors.New("redis down")}
	st.SetSink(sink)

	st.Dispatch(ChangeLoggedIn{LoggedIn: true})
	st.Dispatch(ChangeOnExhibit{OnExhibit: true})

	// sink 失败不影响状态
	require.Len(t, sink.entries, 2)
	assert.Equal(t, uint64(1), sink.entries[0].Seq)
	assert.Equal(t, "CHANGE_LOGGED_IN", sink.entries[0].Type)
	assert.Equal(t, "CHANGE_ON_EXHIBIT", sink.entries[1].Type)
	assert.True(t, st.GetState().OnExhibit)
}

func TestStore_ListenerMayDispatch(t *testing.T) {
	st := New(State{}, zap.NewNop())
	st.Subscribe(func(s State) {
		if s.IsLoggedIn && s.Language == 0 {
			st.Dispatch(ChangeLanguage{Language: 1})
		}
	})

	st.Dispatch(ChangeLoggedIn{LoggedIn: true})

	assert.Equal(t, 1, st.GetState().Language)
}
