package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fhstp/meeteux-odwww/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTokenStore(t *testing.T) (*RedisTokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisTokenStore(client, "meeteux:token:test"), mr
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestRedisTokenStore(t *testing.T) {
	ts, mr := newTokenStore(t)
	ctx := context.Background()

	_, err := ts.Load(ctx)
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, ts.Save(ctx, "tok"))
	mr.CheckGet(t, "meeteux:token:test", "tok")

	got, err := ts.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", got)

	require.NoError(t, ts.Delete(ctx))
	assert.False(t, mr.Exists("meeteux:token:test"))
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()

	assert.False(t, TokenExpired("opaque-token", now))
	assert.False(t, TokenExpired(signed(t, now.Add(time.Hour)), now))
	assert.True(t, TokenExpired(signed(t, now.Add(-time.Hour)), now))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"}).SignedString([]byte("k"))
	require.NoError(t, err)
	assert.False(t, TokenExpired(noExp, now))
}

func TestPersister_Watch(t *testing.T) {
	ts, mr := newTokenStore(t)
	st := store.New(store.State{}, zap.NewNop())
	p := NewPersister(ts, zap.NewNop())

	unwatch := p.Watch(st)
	defer unwatch()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	st.Dispatch(store.ChangeToken{Token: "first"})
	require.Eventually(t, func() bool {
		v, err := mr.Get("meeteux:token:test")
		return err == nil && v == "first"
	}, time.Second, 10*time.Millisecond)

	st.Dispatch(store.ChangeLoggedIn{LoggedIn: true})
	mr.CheckGet(t, "meeteux:token:test", "first")

	st.Dispatch(store.ChangeToken{Token: ""})
	require.Eventually(t, func() bool {
		return !mr.Exists("meeteux:token:test")
	}, time.Second, 10*time.Millisecond)
}

type blockingTokens struct {
	release chan struct{}
	mu      sync.Mutex
	saved   []string
}

func (b *blockingTokens) Load(context.Context) (string, error) { return "", ErrNoToken }

func (b *blockingTokens) Save(_ context.Context, token string) error {
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saved = append(b.saved, token)
	return nil
}

func (b *blockingTokens) Delete(context.Context) error { return nil }

func (b *blockingTokens) tokens() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.saved...)
}

func TestPersister_WatchDoesNotBlockDispatch(t *testing.T) {
	tokens := &blockingTokens{release: make(chan struct{})}
	st := store.New(store.State{}, zap.NewNop())
	p := NewPersister(tokens, zap.NewNop())
	defer p.Watch(st)()

	dispatched := make(chan struct{})
	go func() {
		st.Dispatch(store.ChangeToken{Token: "first"})
		st.Dispatch(store.ChangeToken{Token: "second"})
		close(dispatched)
	}()
	select {
	case <-dispatched:
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked on token write")
	}

	// 未写入的旧值被最新值覆盖
	close(tokens.release)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Run(ctx)
	assert.Equal(t, []string{"second"}, tokens.tokens())
}

func TestPersister_Restore(t *testing.T) {
	ts, mr := newTokenStore(t)
	p := NewPersister(ts, zap.NewNop())
	ctx := context.Background()

	var logins []string
	login := func(tok string) { logins = append(logins, tok) }

	restored, err := p.Restore(ctx, login)
	require.NoError(t, err)
	assert.False(t, restored)

	valid := signed(t, time.Now().Add(time.Hour))
	require.NoError(t, mr.Set("meeteux:token:test", valid))
	restored, err = p.Restore(ctx, login)
	require.NoError(t, err)
	assert.True(t, restored)
	assert.Equal(t, []string{valid}, logins)

	require.NoError(t, mr.Set("meeteux:token:test", signed(t, time.Now().Add(-time.Hour))))
	restored, err = p.Restore(ctx, login)
	require.NoError(t, err)
	assert.False(t, restored)
	assert.Len(t, logins, 1)
	assert.False(t, mr.Exists("meeteux:token:test"))
}

func TestPersister_RestoreRedisDown(t *testing.T) {
	ts, mr := newTokenStore(t)
	mr.Close()

	_, err := NewPersister(ts, zap.NewNop()).Restore(context.Background(), func(string) {
		t.Fatal("unexpected auto login")
	})
	assert.Error(t, err)
}
