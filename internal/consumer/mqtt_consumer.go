package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"wisefido-hrv/internal/config"
	"wisefido-hrv/internal/models"
	"wisefido-hrv/pkg/mqttx"
)

// MQTTConsumer MQTT消息消费者
//
// 主题格式: hrv/{device_id}/{attach|detach|ecg|acc|rr}
// 畸形载荷记日志后丢弃，不中断订阅。
type MQTTConsumer struct {
	config     *config.Config
	mqttClient *mqttx.Client
	manager    *SessionManager
	logger     *zap.Logger
}

// NewMQTTConsumer 创建MQTT消费者
func NewMQTTConsumer(
	cfg *config.Config,
	mqttClient *mqttx.Client,
	manager *SessionManager,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		config:     cfg,
		mqttClient: mqttClient,
		manager:    manager,
		logger:     logger,
	}
}

// Start 订阅全部入站主题
func (c *MQTTConsumer) Start(ctx context.Context) error {
	qos := c.config.MQTT.QoS
	topics := map[string]mqttx.MessageHandler{
		c.config.HRV.Topics.Attach: c.handleAttach,
		c.config.HRV.Topics.Detach: c.handleDetach,
		c.config.HRV.Topics.Ecg:    c.handleEcg,
		c.config.HRV.Topics.Acc:    c.handleAcc,
		c.config.HRV.Topics.Rr:     c.handleRr,
	}

	for topic, handler := range topics {
		if err := c.mqttClient.Subscribe(topic, qos, handler); err != nil {
			return fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
		}
	}

	c.logger.Info("MQTT consumer started",
		zap.String("ecg_topic", c.config.HRV.Topics.Ecg),
		zap.String("acc_topic", c.config.HRV.Topics.Acc),
		zap.String("rr_topic", c.config.HRV.Topics.Rr),
	)
	return nil
}

// Stop 取消订阅并关闭全部会话
func (c *MQTTConsumer) Stop(ctx context.Context) error {
	topics := []string{
		c.config.HRV.Topics.Attach,
		c.config.HRV.Topics.Detach,
		c.config.HRV.Topics.Ecg,
		c.config.HRV.Topics.Acc,
		c.config.HRV.Topics.Rr,
	}
	if err := c.mqttClient.Unsubscribe(topics...); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}

	c.manager.CloseAll()
	c.logger.Info("MQTT consumer stopped")
	return nil
}

// handleAttach 流接入：创建设备会话
func (c *MQTTConsumer) handleAttach(topic string, payload []byte) error {
	deviceID, err := deviceFromTopic(topic)
	if err != nil {
		return err
	}

	var msg models.AttachMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal attach message: %w", err)
	}
	if msg.FsEcg <= 0 || msg.FsAcc <= 0 {
		return fmt.Errorf("invalid sampling rates: fs_ecg=%f fs_acc=%f", msg.FsEcg, msg.FsAcc)
	}

	c.manager.Attach(deviceID, models.SamplingRates{FsEcg: msg.FsEcg, FsAcc: msg.FsAcc})
	c.logger.Info("Device attached",
		zap.String("device_id", deviceID),
		zap.Float64("fs_ecg", msg.FsEcg),
		zap.Float64("fs_acc", msg.FsAcc),
	)
	return nil
}

// handleDetach 流断开：关闭设备会话
func (c *MQTTConsumer) handleDetach(topic string, payload []byte) error {
	deviceID, err := deviceFromTopic(topic)
	if err != nil {
		return err
	}
	c.manager.Detach(deviceID)
	c.logger.Info("Device detached", zap.String("device_id", deviceID))
	return nil
}

func (c *MQTTConsumer) handleEcg(topic string, payload []byte) error {
	session, err := c.sessionFor(topic)
	if err != nil {
		return err
	}

	var msg models.EcgBatchMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal ecg batch: %w", err)
	}
	session.AcceptEcgBatch(msg.Samples)
	return nil
}

func (c *MQTTConsumer) handleAcc(topic string, payload []byte) error {
	session, err := c.sessionFor(topic)
	if err != nil {
		return err
	}

	var msg models.AccFrameMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal acc frame: %w", err)
	}
	session.AcceptAccFrame(msg.X, msg.Y, msg.Z)
	return nil
}

func (c *MQTTConsumer) handleRr(topic string, payload []byte) error {
	session, err := c.sessionFor(topic)
	if err != nil {
		return err
	}

	var msg models.RrMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal rr message: %w", err)
	}
	session.AcceptRr(msg.RrMs)
	return nil
}

func (c *MQTTConsumer) sessionFor(topic string) (sessionAcceptor, error) {
	deviceID, err := deviceFromTopic(topic)
	if err != nil {
		return nil, err
	}
	session, ok := c.manager.Get(deviceID)
	if !ok {
		return nil, fmt.Errorf("no session for device: %s", deviceID)
	}
	return session, nil
}

// sessionAcceptor 会话的入站面（便于测试替换）
type sessionAcceptor interface {
	AcceptEcgBatch(samples []int32)
	AcceptAccFrame(x, y, z []int16)
	AcceptRr(rrMs float64)
}

// deviceFromTopic 从主题中提取设备标识
// 主题格式: hrv/{device_id}/{suffix}
func deviceFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[1] == "" {
		return "", fmt.Errorf("invalid topic format: %s", topic)
	}
	return parts[1], nil
}
