package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fhstp/meeteux-odwww/internal/config"
	"github.com/fhstp/meeteux-odwww/internal/logger"
	"github.com/fhstp/meeteux-odwww/internal/service"

	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化Logger
	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "meeteux-guide")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting meeteux-guide",
		zap.String("mqtt_broker", cfg.MQTT.Broker),
		zap.String("god_up", cfg.GoD.UpTopic),
		zap.String("god_down", cfg.GoD.DownTopic),
	)

	guideService, err := service.NewGuideService(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create guide service", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := guideService.Start(ctx); err != nil {
		zapLogger.Fatal("Failed to start guide service", zap.Error(err))
	}

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	zapLogger.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	cancel()
	if err := guideService.Stop(shutdownCtx); err != nil {
		zapLogger.Error("Error during shutdown", zap.Error(err))
	}

	zapLogger.Info("Service stopped")
}
