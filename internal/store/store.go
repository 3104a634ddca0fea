package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Entry 动作日志条目
type Entry struct {
	Seq    uint64    `json:"seq"`
	Type   string    `json:"type"`
	At     time.Time `json:"at"`
	Action Action    `json:"action"`
}

// ActionSink 动作日志镜像（如 Redis Stream），失败只记录日志
type ActionSink interface {
	Record(ctx context.Context, entry Entry) error
}

// Listener 状态变更监听
type Listener func(State)

// Store 单写者共享状态
type Store struct {
	mu        sync.RWMutex
	state     State
	seq       uint64
	listeners map[int]Listener
	nextID    int
	sink      ActionSink
	logger    *zap.Logger
}

// New 创建 Store
func New(initial State, logger *zap.Logger) *Store {
	return &Store{
		state:     initial,
		listeners: make(map[int]Listener),
		logger:    logger,
	}
}

// SetSink 设置动作日志镜像
func (s *Store) SetSink(sink ActionSink) {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
}

// GetState 返回当前状态快照
func (s *Store) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch 应用动作并通知监听者
func (s *Store) Dispatch(action Action) {
	s.mu.Lock()
	next, ok := Reduce(s.state, action)
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("Unknown store action dropped", zap.String("type", action.Type()))
		return
	}
	s.state = next
	s.seq++
	entry := Entry{Seq: s.seq, Type: action.Type(), At: time.Now(), Action: action}
	sink := s.sink
	listeners := make([]Listener, 0, len(s.listeners))
	for _, id := range s.sortedIDs() {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	s.logger.Debug("Store action applied",
		zap.Uint64("seq", entry.Seq),
		zap.String("type", entry.Type),
	)

	if sink != nil {
		if err := sink.Record(context.Background(), entry); err != nil {
			s.logger.Warn("Failed to record store action", zap.String("type", entry.Type), zap.Error(err))
		}
	}

	for _, l := range listeners {
		l(next)
	}
}

// Subscribe 订阅状态变更，返回取消函数
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Seq 已应用的动作数量
func (s *Store) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// sortedIDs 按订阅顺序返回监听者 id（调用方持有锁）
func (s *Store) sortedIDs() []int {
	ids := make([]int, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if _, ok := s.listeners[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
