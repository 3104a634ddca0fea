package god

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Transport 命名事件通道（transport.Channel 实现）
type Transport interface {
	Emit(event string, payload any) error
	On(event string, handler func(payload []byte))
	Off(event string)
}

// ResultEvent 请求对应的结果事件名
func ResultEvent(name string) string {
	return name + "Result"
}

type pendingCall struct {
	id     string
	name   string
	handle func(Envelope)
}

// correlator 请求/响应配对
// 每个结果事件在通道上至多一个监听，挂起的调用按发出顺序排队。
type correlator struct {
	transport Transport
	newID     func() string
	logger    *zap.Logger

	mu      sync.Mutex
	pending map[string][]*pendingCall
}

func newCorrelator(transport Transport, logger *zap.Logger) *correlator {
	return &correlator{
		transport: transport,
		newID:     uuid.NewString,
		logger:    logger,
		pending:   make(map[string][]*pendingCall),
	}
}

// call 先挂监听再发送，避免响应先于订阅到达
func (c *correlator) call(name string, data any, handle func(Envelope)) (string, error) {
	result := ResultEvent(name)
	pc := &pendingCall{id: c.newID(), name: name, handle: handle}

	c.mu.Lock()
	first := len(c.pending[result]) == 0
	c.pending[result] = append(c.pending[result], pc)
	c.mu.Unlock()

	if first {
		c.transport.On(result, func(payload []byte) {
			c.resolve(result, payload)
		})
	}

	if err := c.transport.Emit(name, Request{RequestID: pc.id, Data: data}); err != nil {
		c.drop(result, pc.id)
		return pc.id, fmt.Errorf("failed to emit %s: %w", name, err)
	}

	c.logger.Debug("Request emitted", zap.String("event", name), zap.String("request_id", pc.id))
	return pc.id, nil
}

// resolve 处理结果事件；先注销再执行回调
func (c *correlator) resolve(result string, payload []byte) {
	env, err := DecodeEnvelope(payload)
	if err != nil {
		c.logger.Warn("Malformed response, listener kept",
			zap.String("event", result),
			zap.Error(err),
		)
		return
	}

	pc, orphaned, empty := c.take(result, env.RequestID)
	for _, o := range orphaned {
		c.logger.Warn("Pending request orphaned by newer call",
			zap.String("event", o.name),
			zap.String("request_id", o.id),
		)
	}
	if empty {
		c.transport.Off(result)
	}
	if pc == nil {
		c.logger.Warn("Response for unknown request ignored",
			zap.String("event", result),
			zap.String("request_id", env.RequestID),
		)
		return
	}

	pc.handle(env)
}

// take 取出响应对应的调用
// 带 requestId 时精确匹配，排在它之前的同名调用一并丢弃；
// 否则最新的调用胜出，较早的调用被丢弃。
func (c *correlator) take(result, requestID string) (pc *pendingCall, orphaned []*pendingCall, empty bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	calls := c.pending[result]
	if len(calls) == 0 {
		return nil, nil, true
	}

	if requestID == "" {
		pc = calls[len(calls)-1]
		orphaned = calls[:len(calls)-1]
		delete(c.pending, result)
		return pc, orphaned, true
	}

	for i, call := range calls {
		if call.id != requestID {
			continue
		}
		orphaned = calls[:i]
		rest := calls[i+1:]
		if len(rest) == 0 {
			delete(c.pending, result)
			return call, orphaned, true
		}
		c.pending[result] = rest
		return call, orphaned, false
	}
	return nil, nil, false
}

func (c *correlator) drop(result, id string) {
	c.mu.Lock()
	calls := c.pending[result]
	for i, call := range calls {
		if call.id == id {
			calls = append(calls[:i:i], calls[i+1:]...)
			break
		}
	}
	empty := len(calls) == 0
	if empty {
		delete(c.pending, result)
	} else {
		c.pending[result] = calls
	}
	c.mu.Unlock()

	if empty {
		c.transport.Off(result)
	}
}

// reset 断线时丢弃全部挂起调用并注销结果监听
func (c *correlator) reset() []*pendingCall {
	c.mu.Lock()
	var dropped []*pendingCall
	results := make([]string, 0, len(c.pending))
	for result, calls := range c.pending {
		results = append(results, result)
		dropped = append(dropped, calls...)
	}
	c.pending = make(map[string][]*pendingCall)
	c.mu.Unlock()

	for _, result := range results {
		c.transport.Off(result)
	}
	return dropped
}

// pendingTotal 全部挂起的调用数
func (c *correlator) pendingTotal() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, calls := range c.pending {
		n += len(calls)
	}
	return n
}

// inFlight 某请求挂起的调用数
func (c *correlator) inFlight(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending[ResultEvent(name)])
}
