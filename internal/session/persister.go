package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fhstp/meeteux-odwww/internal/store"

	"go.uber.org/zap"
)

// Persister token 变化时保存，启动时读取一次用于自动登录
type Persister struct {
	tokens  TokenStore
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger

	last string

	mu     sync.Mutex
	queued *string
	signal chan struct{}
}

// NewPersister 创建持久化器
func NewPersister(tokens TokenStore, logger *zap.Logger) *Persister {
	return &Persister{
		tokens:  tokens,
		timeout: 2 * time.Second,
		now:     time.Now,
		logger:  logger,
		signal:  make(chan struct{}, 1),
	}
}

// Watch 订阅 store，token 变化时排队等待 Run 写入；返回取消函数
func (p *Persister) Watch(st *store.Store) func() {
	p.last = st.GetState().Token
	return st.Subscribe(func(s store.State) {
		if s.Token == p.last {
			return
		}
		p.last = s.Token
		p.enqueue(s.Token)
	})
}

// Run 写入排队的 token，直到 ctx 结束；只保留最新一次变化
func (p *Persister) Run(ctx context.Context) {
	for {
		select {
		case <-p.signal:
			p.flush()
		case <-ctx.Done():
			p.flush()
			return
		}
	}
}

func (p *Persister) enqueue(token string) {
	p.mu.Lock()
	p.queued = &token
	p.mu.Unlock()

	select {
	case p.signal <- struct{}{}:
	default:
	}
}

func (p *Persister) flush() {
	p.mu.Lock()
	token := p.queued
	p.queued = nil
	p.mu.Unlock()
	if token == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	var err error
	if *token == "" {
		err = p.tokens.Delete(ctx)
	} else {
		err = p.tokens.Save(ctx, *token)
	}
	if err != nil {
		p.logger.Warn("Failed to persist token", zap.Error(err))
		return
	}
	p.logger.Debug("Token persisted")
}

// Restore 读取保存的 token；存在且未过期时调用 autoLogin
func (p *Persister) Restore(ctx context.Context, autoLogin func(token string)) (bool, error) {
	token, err := p.tokens.Load(ctx)
	if errors.Is(err, ErrNoToken) {
		p.logger.Info("No saved token, waiting for registration")
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if TokenExpired(token, p.now()) {
		p.logger.Info("Saved token expired, discarding")
		if err := p.tokens.Delete(ctx); err != nil {
			p.logger.Warn("Failed to delete expired token", zap.Error(err))
		}
		return false, nil
	}

	p.last = token
	autoLogin(token)
	return true, nil
}
