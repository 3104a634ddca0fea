package journal

import (
	"context"
	"time"

	"github.com/fhstp/meeteux-odwww/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VisitWriter 参观记录写入（*Repository 实现）
type VisitWriter interface {
	Insert(ctx context.Context, v Visit) error
}

// Recorder 监听当前位置变化，异步写入参观记录
type Recorder struct {
	writer  VisitWriter
	visits  chan Visit
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger

	lastID int
}

// NewRecorder 创建记录器；buffer 满时丢弃记录
func NewRecorder(writer VisitWriter, buffer int, logger *zap.Logger) *Recorder {
	if buffer <= 0 {
		buffer = 64
	}
	return &Recorder{
		writer:  writer,
		visits:  make(chan Visit, buffer),
		timeout: 5 * time.Second,
		now:     time.Now,
		logger:  logger,
	}
}

// Watch 订阅 store；返回取消函数
func (r *Recorder) Watch(st *store.Store) func() {
	if cur := st.GetState().CurrentLocation; cur != nil {
		r.lastID = cur.ID
	}
	return st.Subscribe(func(s store.State) {
		cur := s.CurrentLocation
		if cur == nil {
			r.lastID = 0
			return
		}
		if cur.ID == r.lastID {
			return
		}
		r.lastID = cur.ID

		if s.User == nil {
			return
		}
		v := Visit{
			VisitID:        uuid.NewString(),
			UserID:         s.User.ID,
			LocationID:     cur.ID,
			ParentID:       cur.ParentID,
			LocationTypeID: cur.LocationTypeID,
			Description:    cur.Description,
			VisitedAt:      r.now(),
		}
		select {
		case r.visits <- v:
		default:
			r.logger.Warn("Visit dropped, journal queue full", zap.Int("location_id", cur.ID))
		}
	})
}

// Run 写入排队的记录，直到 ctx 结束；退出前尽量写完已排队的记录
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case v := <-r.visits:
			r.write(context.Background(), v)
		case <-ctx.Done():
			for {
				select {
				case v := <-r.visits:
					r.write(context.Background(), v)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(ctx context.Context, v Visit) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.writer.Insert(ctx, v); err != nil {
		r.logger.Error("Failed to record visit",
			zap.String("visit_id", v.VisitID),
			zap.Int("location_id", v.LocationID),
			zap.Error(err),
		)
		return
	}
	r.logger.Debug("Visit recorded",
		zap.Int("user_id", v.UserID),
		zap.Int("location_id", v.LocationID),
	)
}
