// Package publisher 出站发布器
//
// 把管线的派生值扇出到 Redis：指标/基准点/QT事件走 Redis Streams，
// 每设备的实时快照写入带TTL的缓存键。发布失败只记日志，
// 从不中断管线。
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"wisefido-hrv/internal/config"
	"wisefido-hrv/internal/models"
	"wisefido-hrv/pkg/redisx"
)

// redisStreamAppender 基于 redisx 的流追加实现
type redisStreamAppender struct {
	client *redis.Client
}

// NewRedisStreamAppender 创建 Redis Streams 追加器
func NewRedisStreamAppender(client *redis.Client) StreamAppender {
	return &redisStreamAppender{client: client}
}

func (a *redisStreamAppender) Append(ctx context.Context, stream string, values map[string]interface{}) error {
	_, err := redisx.PublishToStream(ctx, a.client, stream, values)
	return err
}

// RedisPublisher 实现 pipeline.Sink
type RedisPublisher struct {
	cfg     *config.Config
	kv      KVStore
	streams StreamAppender
	logger  *zap.Logger
}

// NewRedisPublisher 创建发布器
func NewRedisPublisher(cfg *config.Config, kv KVStore, streams StreamAppender, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{
		cfg:     cfg,
		kv:      kv,
		streams: streams,
		logger:  logger,
	}
}

// PublishMetric 发布指标到指标流
func (p *RedisPublisher) PublishMetric(m models.MetricStreamMessage) {
	p.appendJSON(p.cfg.HRV.Streams.Metric, m)
}

// PublishFiducial 发布基准点到基准点流
func (p *RedisPublisher) PublishFiducial(f models.FiducialStreamMessage) {
	p.appendJSON(p.cfg.HRV.Streams.Fiducial, f)
}

// PublishQt 发布QT事件到QT流
func (p *RedisPublisher) PublishQt(q models.QtStreamMessage) {
	p.appendJSON(p.cfg.HRV.Streams.Qt, q)
}

// PublishSnapshot 写入每设备实时快照缓存（带TTL）
func (p *RedisPublisher) PublishSnapshot(s models.RealtimeSnapshot) {
	key := fmt.Sprintf("%s%s%s",
		p.cfg.HRV.Cache.RealtimeKeyPrefix,
		s.DeviceID,
		p.cfg.HRV.Cache.RealtimeSuffix,
	)

	jsonData, err := json.Marshal(s)
	if err != nil {
		p.logger.Error("Failed to marshal realtime snapshot", zap.Error(err))
		return
	}

	ttl := time.Duration(p.cfg.HRV.Cache.RealtimeTTL) * time.Second
	if err := p.kv.Set(context.Background(), key, string(jsonData), ttl); err != nil {
		p.logger.Error("Failed to set realtime cache",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func (p *RedisPublisher) appendJSON(stream string, data interface{}) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		p.logger.Error("Failed to marshal stream message",
			zap.String("stream", stream),
			zap.Error(err),
		)
		return
	}

	err = p.streams.Append(context.Background(), stream, map[string]interface{}{
		"data":      string(jsonBytes),
		"timestamp": time.Now().Unix(),
	})
	if err != nil {
		p.logger.Error("Failed to append to stream",
			zap.String("stream", stream),
			zap.Error(err),
		)
	}
}
