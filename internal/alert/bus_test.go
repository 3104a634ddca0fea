package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBus_FanOut(t *testing.T) {
	b := NewBus(zap.NewNop())
	first, cancelFirst := b.Subscribe(4)
	second, cancelSecond := b.Subscribe(4)
	defer cancelSecond()

	b.SendLocationID(7)
	b.SetWrongLoginCheck(true)

	a := <-first
	assert.Equal(t, Alert{Kind: KindLocationID, LocationID: 7}, a)
	a = <-first
	assert.Equal(t, KindWrongLoginCheck, a.Kind)
	assert.True(t, a.Flag)

	a = <-second
	assert.Equal(t, KindLocationID, a.Kind)

	cancelFirst()
	cancelFirst()
	_, open := <-first
	assert.False(t, open)
}

func TestBus_DropsWhenFull(t *testing.T) {
	b := NewBus(zap.NewNop())
	ch, cancel := b.Subscribe(1)
	defer cancel()

	b.TriggerScrollToCurrentLocation()
	b.SendCredentialsChanged(true)

	require.Len(t, ch, 1)
	assert.Equal(t, KindScrollToCurrentLocation, (<-ch).Kind)
}
