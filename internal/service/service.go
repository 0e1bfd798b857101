package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"wisefido-hrv/internal/config"
	"wisefido-hrv/internal/consumer"
	"wisefido-hrv/internal/publisher"
	"wisefido-hrv/internal/repository"
	"wisefido-hrv/pkg/database"
	"wisefido-hrv/pkg/mqttx"
	"wisefido-hrv/pkg/redisx"
)

// HrvService HRV管线服务
type HrvService struct {
	config     *config.Config
	logger     *zap.Logger
	db         *sql.DB
	redis      *redis.Client
	mqttClient *mqttx.Client
	consumer   *consumer.MQTTConsumer
	manager    *consumer.SessionManager
}

// NewHrvService 创建HRV服务
func NewHrvService(cfg *config.Config, logger *zap.Logger) (*HrvService, error) {
	// 初始化数据库（可选：未配置DB_HOST时调参档案全部使用默认值）
	var db *sql.DB
	if cfg.Database.Host != "" {
		var err error
		db, err = database.NewPostgresDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
	} else {
		logger.Info("No database configured, device profiles disabled")
	}

	// 初始化Redis
	redisClient := redisx.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisx.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// 初始化MQTT
	mqttClient, err := mqttx.NewClient(&mqttx.Options{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	// 创建Repository与发布器
	profileRepo := repository.NewProfileRepository(db, logger)
	sink := publisher.NewRedisPublisher(
		cfg,
		publisher.NewRedisKVStore(redisClient),
		publisher.NewRedisStreamAppender(redisClient),
		logger,
	)

	// 基础管线配置钳制一次；每设备档案在attach时再覆盖并钳制
	baseCfg := cfg.HRV.Pipeline
	baseCfg.Normalize(logger)

	// 会话注册表与Consumer
	manager := consumer.NewSessionManager(baseCfg, profileRepo, sink, logger)
	mqttConsumer := consumer.NewMQTTConsumer(cfg, mqttClient, manager, logger)

	return &HrvService{
		config:     cfg,
		logger:     logger,
		db:         db,
		redis:      redisClient,
		mqttClient: mqttClient,
		consumer:   mqttConsumer,
		manager:    manager,
	}, nil
}

// Start 启动服务
func (s *HrvService) Start(ctx context.Context) error {
	s.logger.Info("Starting HRV service components")

	if err := s.consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start MQTT consumer: %w", err)
	}

	s.logger.Info("HRV service started successfully")
	return nil
}

// Stop 停止服务
func (s *HrvService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HRV service")

	// 停止Consumer（会关闭全部会话）
	if s.consumer != nil {
		if err := s.consumer.Stop(ctx); err != nil {
			s.logger.Error("Error stopping consumer", zap.Error(err))
		}
	}

	// 断开MQTT
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	// 关闭Redis
	if s.redis != nil {
		redisx.Close(s.redis)
	}

	// 关闭数据库
	if s.db != nil {
		database.Close(s.db)
	}

	s.logger.Info("HRV service stopped")
	return nil
}
