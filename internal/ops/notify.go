package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/config"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/httputil"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/logger"
)

// Slack attachment colors per alert level
var levelColors = map[contracts.AlertLevel]string{
	contracts.AlertInfo:             "#36a64f",
	contracts.AlertWarn:             "#ff9900",
	contracts.AlertError:            "#ff0000",
	contracts.AlertDecisionRequired: "#ff6b6b",
}

// Notifier sends Slack notifications. Unconfigured channels are a
// silent no-op, and a delivery failure never propagates to the caller.
// ⭐ SSOT: Slack 발송은 여기서만
type Notifier struct {
	cfg        config.SlackConfig
	env        string
	httpClient *httputil.Client
	pool       *pgxpool.Pool
	logger     *logger.Logger
}

// NewNotifier creates a Slack notifier. pool may be nil, in which case
// delivered alerts are not persisted.
func NewNotifier(cfg config.SlackConfig, env string, httpClient *httputil.Client, pool *pgxpool.Pool, log *logger.Logger) *Notifier {
	return &Notifier{
		cfg:        cfg,
		env:        env,
		httpClient: httpClient,
		pool:       pool,
		logger:     log,
	}
}

// Send delivers a notification to the named channel. Returns true if
// it was actually sent, false on no-op or failure.
func (n *Notifier) Send(ctx context.Context, level contracts.AlertLevel, channel, title string, body map[string]interface{}) bool {
	webhookURL := n.webhookFor(channel)
	if webhookURL == "" {
		n.logger.WithFields(map[string]interface{}{
			"channel": channel,
			"title":   title,
		}).Info("Slack webhook not configured, skipping notification")
		return false
	}

	color, ok := levelColors[level]
	if !ok {
		color = levelColors[contracts.AlertInfo]
	}

	bodyText, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		n.logger.WithError(err).Error("Failed to marshal notification body")
		return false
	}

	payload := map[string]interface{}{
		"attachments": []map[string]interface{}{
			{
				"color":  color,
				"title":  fmt.Sprintf("[%s][%s] %s", level, n.env, title),
				"text":   string(bodyText),
				"footer": "Trading System",
				"ts":     time.Now().Unix(),
			},
		},
	}

	resp, err := n.httpClient.PostJSON(ctx, webhookURL, payload)
	if err != nil {
		n.logger.WithError(err).WithField("title", title).Error("Failed to send Slack notification")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		n.logger.WithFields(map[string]interface{}{
			"title":  title,
			"status": resp.StatusCode,
		}).Error("Slack webhook returned non-OK status")
		return false
	}

	n.logger.WithField("title", title).Info("Slack notification sent")
	n.persist(ctx, level, channel, title, body)
	return true
}

// webhookFor maps a logical channel name to its webhook URL
func (n *Notifier) webhookFor(channel string) string {
	switch channel {
	case "dev":
		return n.cfg.WebhookDev
	case "alerts":
		return n.cfg.WebhookAlerts
	case "decisions":
		return n.cfg.WebhookDecisions
	default:
		return ""
	}
}

// persist records a delivered alert. Failures are logged, never returned.
func (n *Notifier) persist(ctx context.Context, level contracts.AlertLevel, channel, title string, body map[string]interface{}) {
	if n.pool == nil {
		return
	}

	bodyJSON, err := json.Marshal(body)
	if err != nil {
		n.logger.WithError(err).Warn("Failed to marshal alert body for persistence")
		return
	}

	query := `
		INSERT INTO alerts_sent (id, level, channel, title, body, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := n.pool.Exec(ctx, query, uuid.New(), string(level), channel, title, bodyJSON, time.Now()); err != nil {
		n.logger.WithError(err).Warn("Failed to persist sent alert")
	}
}
