package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vitalwatch/internal/auth"
	"vitalwatch/internal/cache"
	"vitalwatch/internal/config"
	"vitalwatch/internal/consumer"
	httpapi "vitalwatch/internal/http"
	"vitalwatch/internal/notify"
	"vitalwatch/internal/repository"
	"vitalwatch/internal/service"
	"vitalwatch/internal/ws"
	"vitalwatch/pkg/database"
	"vitalwatch/pkg/logger"
	"vitalwatch/pkg/mqtt"
	redisutil "vitalwatch/pkg/redis"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载环境变量与配置
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "vitalwatch")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. 初始化数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database",
			zap.Error(err),
		)
	}
	defer db.Close()

	// 4. 初始化 Redis
	redisClient := redisutil.NewRedisClient(&cfg.Redis)
	if err := redisutil.Ping(context.Background(), redisClient); err != nil {
		log.Fatal("Failed to connect to redis",
			zap.Error(err),
		)
	}
	defer redisClient.Close()

	// 5. 仓库层
	vitalsRepo := repository.NewVitalsRepository(db, log)
	thresholdsRepo := repository.NewThresholdsRepository(db, log)
	patientsRepo := repository.NewPatientsRepository(db, log)
	alertsRepo := repository.NewAlertsRepository(db, log)

	cacheManager := cache.NewCacheManager(cfg, redisClient, log)

	// 6. 推送总线（优雅关闭时随上下文退出）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := ws.NewHub(log)
	go hub.Run(ctx)

	notifier := notify.NewWebhookNotifier(
		cfg.Notify.WebhookURL,
		time.Duration(cfg.Notify.TimeoutSeconds)*time.Second,
		log,
	)

	// 7. 服务层
	vitalsService := service.NewVitalsService(
		vitalsRepo, thresholdsRepo, patientsRepo, alertsRepo,
		cacheManager, hub, notifier, log,
	)
	alertService := service.NewAlertService(alertsRepo, patientsRepo, hub, log)
	thresholdService := service.NewThresholdService(thresholdsRepo, patientsRepo, cacheManager, log)
	wsEvents := service.NewWSEventService(hub, patientsRepo, alertService, log)

	// 8. MQTT 设备接入（可选）
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.NewClient(&cfg.MQTT, log)
		if err != nil {
			log.Fatal("Failed to connect to MQTT broker",
				zap.Error(err),
			)
		}
		defer mqttClient.Disconnect()

		mqttConsumer := consumer.NewMQTTConsumer(cfg, mqttClient, vitalsService, log)
		if err := mqttConsumer.Start(ctx); err != nil {
			log.Fatal("Failed to start MQTT consumer",
				zap.Error(err),
			)
		}
	}

	// 9. HTTP 路由与服务器
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)
	router := httpapi.NewRouter(httpapi.RouterDeps{
		Verifier:   verifier,
		Patients:   httpapi.NewPatientsHandler(patientsRepo, log),
		Vitals:     httpapi.NewVitalsHandler(vitalsService, patientsRepo, log),
		Alerts:     httpapi.NewAlertsHandler(alertService, log),
		Thresholds: httpapi.NewThresholdsHandler(thresholdService, log),
		WS:         ws.NewHandler(hub, verifier, wsEvents, log),
	})

	server := service.NewServer(cfg.HTTP.Addr, router, log)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	// 10. 等待信号（优雅关闭）
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down",
			zap.String("signal", sig.String()),
		)
	case err := <-serverErrChan:
		log.Error("HTTP server error",
			zap.Error(err),
		)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop HTTP server gracefully",
			zap.Error(err),
		)
	}

	log.Info("vitalwatch stopped")
}
