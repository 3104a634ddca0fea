package native

import (
	"errors"
	"testing"

	"github.com/fhstp/meeteux-odwww/internal/platform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type emitted struct {
	event string
	body  any
}

type fakeEmitter struct {
	sent []emitted
	err  error
}

func (f *fakeEmitter) Emit(event string, payload any) error {
	f.sent = append(f.sent, emitted{event: event, body: payload})
	return f.err
}

type fakeListener struct {
	handlers map[string]func([]byte)
}

func (f *fakeListener) On(event string, h func([]byte)) {
	if f.handlers == nil {
		f.handlers = make(map[string]func([]byte))
	}
	f.handlers[event] = h
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("triggerSignal")
	require.NoError(t, err)
	assert.Equal(t, ActionTriggerSignal, a)

	_, err = ParseAction("saveToken")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestBridge_IOSPostsBody(t *testing.T) {
	e := &fakeEmitter{}
	b := NewBridge(platform.Detection{Platform: platform.IOS}, e, zap.NewNop())

	b.Notify("success", ActionRegisterOD)

	require.Len(t, e.sent, 1)
	assert.Equal(t, "ios/registerOD", e.sent[0].event)
	assert.Equal(t, "success", e.sent[0].body)
}

func TestBridge_AndroidOnlyPrintCarriesBody(t *testing.T) {
	e := &fakeEmitter{}
	b := NewBridge(platform.Detection{Platform: platform.Android}, e, zap.NewNop())

	b.Notify("hello", ActionPrint)
	b.Notify("success", ActionTriggerSignal)

	require.Len(t, e.sent, 2)
	assert.Equal(t, emitted{event: "android/print", body: "hello"}, e.sent[0])
	assert.Equal(t, "android/triggerSignal", e.sent[1].event)
	assert.Nil(t, e.sent[1].body)
}

func TestBridge_WebOnlyLogs(t *testing.T) {
	e := &fakeEmitter{}
	b := NewBridge(platform.Detection{Platform: platform.Web}, e, zap.NewNop())

	b.Notify("diagnostic", ActionPrint)

	assert.Empty(t, e.sent)
}

func TestBridge_UnknownActionDropped(t *testing.T) {
	e := &fakeEmitter{}
	b := NewBridge(platform.Detection{Platform: platform.IOS}, e, zap.NewNop())

	b.Notify("x", Action(42))

	assert.Empty(t, e.sent)
}

func TestBridge_EmitErrorSwallowed(t *testing.T) {
	e := &fakeEmitter{err: errors.New("offline")}
	b := NewBridge(platform.Detection{Platform: platform.IOS, Fallback: true}, e, zap.NewNop())

	assert.NotPanics(t, func() { b.Notify("x", ActionPrint) })
	assert.True(t, b.Detection().Fallback)
}

func TestInbound_Handle(t *testing.T) {
	var (
		beacons  []Beacon
		timeline []Beacon
		devices  []DeviceInfos
		tokens   []string
	)
	in := Inbound{
		Beacon:         func(b Beacon) { beacons = append(beacons, b) },
		TimelineUpdate: func(b Beacon) { timeline = append(timeline, b) },
		DeviceInfos:    func(d DeviceInfos) { devices = append(devices, d) },
		Token:          func(tok string) { tokens = append(tokens, tok) },
	}

	require.NoError(t, in.Handle(EventBeacon, []byte(`{"minor":7,"major":100}`)))
	require.NoError(t, in.Handle(EventTimelineUpdate, []byte(`{"minor":1000,"major":100}`)))
	require.NoError(t, in.Handle(EventDeviceInfos, []byte(`{"deviceAddress":"aa:bb","deviceOS":"Android","deviceVersion":"9","deviceModel":"SM-G960F"}`)))
	require.NoError(t, in.Handle(EventToken, []byte(`"tok-1"`)))
	require.NoError(t, in.Handle(EventToken, []byte(`{"token":"tok-2"}`)))

	assert.Equal(t, []Beacon{{Minor: 7, Major: 100}}, beacons)
	assert.Equal(t, []Beacon{{Minor: 1000, Major: 100}}, timeline)
	require.Len(t, devices, 1)
	assert.Equal(t, "SM-G960F", devices[0].DeviceModel)
	assert.Equal(t, []string{"tok-1", "tok-2"}, tokens)

	assert.Error(t, in.Handle(EventBeacon, []byte(`nope`)))
	assert.Error(t, in.Handle("wifi", nil))
}

func TestInbound_Attach(t *testing.T) {
	l := &fakeListener{}
	var got []int
	var failed []string
	Inbound{Beacon: func(b Beacon) { got = append(got, b.Minor) }}.Attach(l, func(event string, err error) {
		failed = append(failed, event)
	})

	require.Len(t, l.handlers, 4)
	l.handlers[EventBeacon]([]byte(`{"minor":3}`))
	l.handlers[EventDeviceInfos]([]byte(`[`))

	assert.Equal(t, []int{3}, got)
	assert.Equal(t, []string{EventDeviceInfos}, failed)
}
