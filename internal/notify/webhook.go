package notify

import (
	"context"
	"fmt"
	"time"

	"vitalwatch/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// WebhookNotifier 危急报警外推通知（如对接值班呼叫系统）。
// 尽力而为：失败只记日志，不回传到报警主链路。
type WebhookNotifier struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

// NewWebhookNotifier 创建 webhook 通知器；url 为空表示禁用
func NewWebhookNotifier(url string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0)

	return &WebhookNotifier{
		client: client,
		url:    url,
		logger: logger,
	}
}

// Enabled 是否配置了 webhook
func (n *WebhookNotifier) Enabled() bool {
	return n.url != ""
}

// NotifyCritical 推送危急报警
func (n *WebhookNotifier) NotifyCritical(ctx context.Context, alert *models.Alert) error {
	if !n.Enabled() {
		return nil
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(alert).
		Post(n.url)

	if err != nil {
		n.logger.Error("Failed to deliver alert webhook",
			zap.Int64("alert_id", alert.ID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to deliver webhook: %w", err)
	}

	if resp.IsError() {
		n.logger.Error("Alert webhook rejected",
			zap.Int64("alert_id", alert.ID),
			zap.Int("status", resp.StatusCode()),
		)
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}

	n.logger.Info("Critical alert webhook delivered",
		zap.Int64("alert_id", alert.ID),
	)

	return nil
}
