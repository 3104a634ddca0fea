package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/fhstp/meeteux-odwww/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	// defaultStreamMaxLen 动作日志保留的大致条数
	defaultStreamMaxLen = 10000
	defaultSinkBuffer   = 256
)

// StreamSink 把 store 动作日志镜像到 Redis Stream
// Record 只入队，由 Run 在后台写入。
type StreamSink struct {
	client  *redis.Client
	stream  string
	maxLen  int64
	timeout time.Duration
	entries chan store.Entry
	logger  *zap.Logger
}

// NewStreamSink 创建动作日志镜像
func NewStreamSink(client *redis.Client, stream string, logger *zap.Logger) *StreamSink {
	return &StreamSink{
		client:  client,
		stream:  stream,
		maxLen:  defaultStreamMaxLen,
		timeout: 2 * time.Second,
		entries: make(chan store.Entry, defaultSinkBuffer),
		logger:  logger,
	}
}

// Record 实现 store.ActionSink；队列满时丢弃并返回错误
func (s *StreamSink) Record(_ context.Context, entry store.Entry) error {
	select {
	case s.entries <- entry:
		return nil
	default:
		return fmt.Errorf("action log queue full, seq %d dropped", entry.Seq)
	}
}

// Run 写入排队的动作，直到 ctx 结束；退出前写完已排队的动作
func (s *StreamSink) Run(ctx context.Context) {
	for {
		select {
		case entry := <-s.entries:
			s.record(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-s.entries:
					s.record(entry)
				default:
					return
				}
			}
		}
	}
}

func (s *StreamSink) record(entry store.Entry) {
	if err := s.write(context.Background(), entry); err != nil {
		s.logger.Warn("Failed to mirror store action",
			zap.Uint64("seq", entry.Seq),
			zap.String("type", entry.Type),
			zap.Error(err),
		)
	}
}

func (s *StreamSink) write(ctx context.Context, entry store.Entry) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := PublishToStream(ctx, s.client, s.stream, s.maxLen, map[string]interface{}{
		"seq":    entry.Seq,
		"type":   entry.Type,
		"at":     entry.At.UnixMilli(),
		"action": entry.Action,
	})
	return err
}

// ActionRecord 动作日志中的一条记录
type ActionRecord struct {
	ID     string          `json:"id"`
	Seq    uint64          `json:"seq"`
	Type   string          `json:"type"`
	At     time.Time       `json:"at"`
	Action json.RawMessage `json:"action"`
}

// ReadActions 读取最近的 count 条动作日志，按写入顺序返回
func ReadActions(ctx context.Context, client *redis.Client, stream string, count int64) ([]ActionRecord, error) {
	msgs, err := ReadStream(ctx, client, stream, count)
	if err != nil {
		return nil, fmt.Errorf("failed to read action stream %s: %w", stream, err)
	}

	records := make([]ActionRecord, 0, len(msgs))
	for _, msg := range msgs {
		rec := ActionRecord{ID: msg.ID}
		rec.Type, _ = msg.Values["type"].(string)
		if action, ok := msg.Values["action"].(string); ok {
			rec.Action = json.RawMessage(action)
		}
		if seq, ok := msg.Values["seq"].(string); ok {
			if rec.Seq, err = strconv.ParseUint(seq, 10, 64); err != nil {
				return nil, fmt.Errorf("invalid seq in %s: %w", msg.ID, err)
			}
		}
		if at, ok := msg.Values["at"].(string); ok {
			ms, err := strconv.ParseInt(at, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid timestamp in %s: %w", msg.ID, err)
			}
			rec.At = time.UnixMilli(ms)
		}
		records = append(records, rec)
	}
	return records, nil
}
