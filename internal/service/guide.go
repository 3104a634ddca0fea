package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/fhstp/meeteux-odwww/internal/alert"
	"github.com/fhstp/meeteux-odwww/internal/config"
	"github.com/fhstp/meeteux-odwww/internal/content"
	"github.com/fhstp/meeteux-odwww/internal/database"
	"github.com/fhstp/meeteux-odwww/internal/engine"
	"github.com/fhstp/meeteux-odwww/internal/god"
	"github.com/fhstp/meeteux-odwww/internal/journal"
	"github.com/fhstp/meeteux-odwww/internal/location"
	"github.com/fhstp/meeteux-odwww/internal/loop"
	"github.com/fhstp/meeteux-odwww/internal/models"
	"github.com/fhstp/meeteux-odwww/internal/native"
	"github.com/fhstp/meeteux-odwww/internal/platform"
	rediscommon "github.com/fhstp/meeteux-odwww/internal/redis"
	"github.com/fhstp/meeteux-odwww/internal/session"
	"github.com/fhstp/meeteux-odwww/internal/store"
	"github.com/fhstp/meeteux-odwww/internal/transport"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Deps 外部连接；Redis 和 DB 为 nil 时对应功能关闭
type Deps struct {
	Broker transport.Broker
	Redis  *redis.Client
	DB     *sql.DB
}

// GuideService 导览客户端服务
type GuideService struct {
	config *config.Config
	logger *zap.Logger
	deps   Deps

	loop      *loop.Loop
	detection platform.Detection
	store     *store.Store
	godCh     *transport.Channel
	nativeCh  *transport.Channel
	bridge    *native.Bridge
	tracker   *location.Tracker
	navigator *content.Navigator
	alerts    *alert.Bus
	god       *god.Client
	engine    *engine.Engine
	poller    *engine.StatusPoller
	persister *session.Persister
	recorder  *journal.Recorder
	sink      *rediscommon.StreamSink

	mu      sync.Mutex
	cancel  context.CancelFunc
	unwatch []func()
	wg      sync.WaitGroup
	lastMsg map[string]models.Message
}

// NewGuideService 连接 MQTT、Redis、PostgreSQL 并创建服务
func NewGuideService(cfg *config.Config, logger *zap.Logger) (*GuideService, error) {
	mqttClient, err := transport.NewClient(&cfg.MQTT, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
	}
	deps := Deps{Broker: mqttClient}

	redisClient, err := rediscommon.Connect(context.Background(), &cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, token persistence and action log disabled", zap.Error(err))
	} else {
		deps.Redis = redisClient
	}

	if cfg.Journal.Enabled {
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			mqttClient.Disconnect()
			rediscommon.Close(deps.Redis)
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		deps.DB = db
	}

	return New(cfg, deps, logger), nil
}

// New 用已建立的连接装配服务
func New(cfg *config.Config, deps Deps, logger *zap.Logger) *GuideService {
	s := &GuideService{
		config:  cfg,
		logger:  logger,
		deps:    deps,
		lastMsg: make(map[string]models.Message),
	}

	s.loop = loop.New(cfg.Guide.LoopBuffer, logger)
	s.detection = platform.Classify(cfg.Native.UserAgent)
	s.store = store.New(store.State{}, logger)
	if deps.Redis != nil && cfg.Guide.ActionStream != "" {
		s.sink = rediscommon.NewStreamSink(deps.Redis, cfg.Guide.ActionStream, logger)
		s.store.SetSink(s.sink)
	}
	s.store.Dispatch(store.ChangePlatform{Platform: s.detection.Platform})

	s.godCh = transport.NewChannel(deps.Broker, cfg.GoD.UpTopic, cfg.GoD.DownTopic, cfg.MQTT.QoS, s.loop.Post, logger)
	s.nativeCh = transport.NewChannel(deps.Broker, cfg.Native.OutTopic, cfg.Native.InTopic, cfg.MQTT.QoS, s.loop.Post, logger)

	s.bridge = native.NewBridge(s.detection, s.nativeCh, logger)
	s.tracker = location.NewTracker(s.store, cfg.Guide.StartLocationID, logger)
	s.navigator = content.NewNavigator(cfg.Content.BaseURL, cfg.Content.Timeout, logger)
	s.alerts = alert.NewBus(logger)
	s.god = god.NewClient(s.godCh, s.store, s.tracker, s.navigator, s.bridge, s.alerts, logger)
	s.engine = engine.New(s.store, s.tracker, s.god, s.bridge, engine.Config{
		BeaconRate:  cfg.Guide.BeaconRate,
		BeaconBurst: cfg.Guide.BeaconBurst,
	}, logger)
	s.poller = engine.NewStatusPoller(s.loop, s.store, s.tracker, s.god,
		cfg.Guide.StatusPollDelay, cfg.Guide.StatusPollInterval, logger)

	// 原生壳自己保存 token
	if deps.Redis != nil && !s.detection.IsNative() {
		s.persister = session.NewPersister(session.NewRedisTokenStore(deps.Redis, cfg.Session.TokenKey), logger)
	}
	if deps.DB != nil {
		s.recorder = journal.NewRecorder(journal.NewRepository(deps.DB, logger), 64, logger)
	}

	return s
}

// Start 启动服务
func (s *GuideService) Start(ctx context.Context) error {
	s.logger.Info("Starting guide service",
		zap.String("platform", s.detection.Platform.String()),
		zap.Bool("platform_fallback", s.detection.Fallback),
	)

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.loop.Run(runCtx); err != nil && runCtx.Err() == nil {
			s.logger.Error("Event loop stopped", zap.Error(err))
		}
	}()

	if s.sink != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.sink.Run(runCtx)
		}()
	}

	s.god.Attach()
	native.Inbound{
		Beacon:         s.engine.HandleBeacon,
		TimelineUpdate: s.engine.HandleTimelineUpdate,
		DeviceInfos:    s.register,
		Token:          s.god.AutoLogin,
	}.Attach(s.nativeCh, func(event string, err error) {
		s.logger.Warn("Malformed native message", zap.String("event", event), zap.Error(err))
	})

	if err := s.godCh.Open(); err != nil {
		cancel()
		return fmt.Errorf("failed to open GoD channel: %w", err)
	}
	if err := s.nativeCh.Open(); err != nil {
		cancel()
		return fmt.Errorf("failed to open native channel: %w", err)
	}

	s.watch(s.store.Subscribe(s.logMessages))
	if s.recorder != nil {
		s.watch(s.recorder.Watch(s.store))
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.recorder.Run(runCtx)
		}()
	}

	s.loop.Post(func() {
		s.store.Dispatch(store.ChangeAtExhibitParentID{ParentID: 0})
		s.store.Dispatch(store.ChangeOnExhibit{OnExhibit: false})
	})

	restored := false
	if s.persister != nil {
		var err error
		restored, err = s.persister.Restore(ctx, func(token string) {
			s.loop.Post(func() { s.god.AutoLogin(token) })
		})
		if err != nil {
			s.logger.Warn("Failed to restore token", zap.Error(err))
		}
	}
	if !restored {
		s.loop.Post(func() { s.bridge.Notify("", native.ActionGetDeviceInfos) })
	}
	if s.persister != nil {
		s.watch(s.persister.Watch(s.store))
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.persister.Run(runCtx)
		}()
	}

	s.poller.Start()

	s.logger.Info("Guide service started successfully")
	return nil
}

// Stop 停止服务
func (s *GuideService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping guide service")

	s.poller.Stop()

	s.mu.Lock()
	for _, unwatch := range s.unwatch {
		unwatch()
	}
	s.unwatch = nil
	cancel := s.cancel
	s.mu.Unlock()

	if err := s.godCh.Close(); err != nil {
		s.logger.Error("Error closing GoD channel", zap.Error(err))
	}
	if err := s.nativeCh.Close(); err != nil {
		s.logger.Error("Error closing native channel", zap.Error(err))
	}

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		s.navigator.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("Shutdown timed out", zap.Error(ctx.Err()))
	}

	if c, ok := s.deps.Broker.(*transport.Client); ok {
		c.Disconnect()
	}
	if s.deps.Redis != nil {
		rediscommon.Close(s.deps.Redis)
	}
	if s.deps.DB != nil {
		database.Close(s.deps.DB)
	}

	s.logger.Info("Guide service stopped",
		zap.String("route", s.navigator.Current()),
		zap.Int("pending_requests", s.god.Pending()),
	)
	return nil
}

// Store 共享状态
func (s *GuideService) Store() *store.Store { return s.store }

// Alerts 界面提示总线
func (s *GuideService) Alerts() *alert.Bus { return s.alerts }

// God 协议客户端
func (s *GuideService) God() *god.Client { return s.god }

// Engine 位置切换引擎
func (s *GuideService) Engine() *engine.Engine { return s.engine }

// Post 在事件循环内执行
func (s *GuideService) Post(fn func()) bool { return s.loop.Post(fn) }

func (s *GuideService) watch(unwatch func()) {
	s.mu.Lock()
	s.unwatch = append(s.unwatch, unwatch)
	s.mu.Unlock()
}

// register 原生壳上报设备信息后注册访客
func (s *GuideService) register(d native.DeviceInfos) {
	reg := s.config.Guide.Registration
	data := map[string]any{
		"identifier":    reg.Identifier,
		"deviceAddress": d.DeviceAddress,
		"deviceOS":      d.DeviceOS,
		"deviceVersion": d.DeviceVersion,
		"deviceModel":   d.DeviceModel,
	}
	if reg.Guest {
		s.god.RegisterODGuest(data)
		return
	}
	if reg.Email != "" {
		data["email"] = reg.Email
		data["password"] = reg.Password
	}
	s.god.RegisterOD(data)
}

// logMessages 错误/成功通知按内容去重后记录
func (s *GuideService) logMessages(st store.State) {
	s.logMessage("error", st.ErrorMessage)
	s.logMessage("success", st.SuccessMessage)
}

func (s *GuideService) logMessage(kind string, msg *models.Message) {
	if msg == nil {
		return
	}
	if last, ok := s.lastMsg[kind]; ok && last == *msg {
		return
	}
	s.lastMsg[kind] = *msg

	fields := []zap.Field{zap.Int("code", msg.Code), zap.String("text", msg.Text)}
	if kind == "error" {
		s.logger.Warn("Error notification", fields...)
		return
	}
	s.logger.Info("Success notification", fields...)
}
