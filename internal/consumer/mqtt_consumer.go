package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"vitalwatch/internal/config"
	"vitalwatch/internal/models"
	"vitalwatch/internal/service"
	"vitalwatch/pkg/mqtt"

	"go.uber.org/zap"
)

// MQTTConsumer 设备端读数接入：床旁监护设备向
// vitalwatch/{patient_id}/vitals 发布读数，走与 HTTP 相同的接入管道。
// 设备凭 broker 凭证接入，视为已授权。
type MQTTConsumer struct {
	config        *config.Config
	client        *mqtt.Client
	vitalsService *service.VitalsService
	logger        *zap.Logger
}

// NewMQTTConsumer 创建 MQTT 接入消费者
func NewMQTTConsumer(
	cfg *config.Config,
	client *mqtt.Client,
	vitalsService *service.VitalsService,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		config:        cfg,
		client:        client,
		vitalsService: vitalsService,
		logger:        logger,
	}
}

// Start 订阅读数主题
func (c *MQTTConsumer) Start(ctx context.Context) error {
	topic := c.config.MQTT.VitalsTopic
	qos := c.config.MQTT.QoS

	if err := c.client.Subscribe(topic, qos, func(topic string, payload []byte) error {
		return c.handleMessage(ctx, topic, payload)
	}); err != nil {
		return fmt.Errorf("failed to subscribe to vitals topic: %w", err)
	}

	c.logger.Info("MQTT vitals consumer started",
		zap.String("topic", topic),
	)

	return nil
}

// handleMessage 解析主题中的患者 id 并接入读数
func (c *MQTTConsumer) handleMessage(ctx context.Context, topic string, payload []byte) error {
	patientID, err := patientIDFromTopic(topic)
	if err != nil {
		return err
	}

	var input models.VitalsInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return fmt.Errorf("failed to unmarshal vitals payload: %w", err)
	}

	_, alert, err := c.vitalsService.Ingest(ctx, patientID, &input)
	if err != nil {
		return fmt.Errorf("failed to ingest device reading: %w", err)
	}

	if alert != nil {
		c.logger.Info("Device reading triggered alert",
			zap.Int64("patient_id", patientID),
			zap.Int64("alert_id", alert.ID),
		)
	}

	return nil
}

// patientIDFromTopic 从 vitalwatch/{patient_id}/vitals 中取患者 id
func patientIDFromTopic(topic string) (int64, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[2] != "vitals" {
		return 0, fmt.Errorf("unexpected topic format: %s", topic)
	}
	patientID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || patientID <= 0 {
		return 0, fmt.Errorf("invalid patient id in topic: %s", topic)
	}
	return patientID, nil
}
