package ops

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/config"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/httputil"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/logger"
)

func TestNotifierSend(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.SlackConfig{WebhookDecisions: server.URL}
	n := NewNotifier(cfg, "development", httputil.New(logger.NewNop()).DisableRetry(), nil, logger.NewNop())

	sent := n.Send(context.Background(), contracts.AlertDecisionRequired, "decisions", "Rebalance Plan 생성", map[string]interface{}{
		"plan_id": "abc",
	})
	require.True(t, sent)

	attachments, ok := received["attachments"].([]interface{})
	require.True(t, ok)
	require.Len(t, attachments, 1)

	attachment := attachments[0].(map[string]interface{})
	assert.Equal(t, "#ff6b6b", attachment["color"])

	title := attachment["title"].(string)
	assert.True(t, strings.HasPrefix(title, "[DECISION_REQUIRED][development]"), "title was %q", title)
	assert.Contains(t, title, "Rebalance Plan 생성")
	assert.Contains(t, attachment["text"].(string), "plan_id")
	assert.Equal(t, "Trading System", attachment["footer"])
}

func TestNotifierNoOpWhenUnconfigured(t *testing.T) {
	n := NewNotifier(config.SlackConfig{}, "development", httputil.New(logger.NewNop()), nil, logger.NewNop())

	sent := n.Send(context.Background(), contracts.AlertInfo, "dev", "ignored", nil)
	assert.False(t, sent)
}

func TestNotifierUnknownChannel(t *testing.T) {
	cfg := config.SlackConfig{WebhookDev: "http://localhost:1"}
	n := NewNotifier(cfg, "development", httputil.New(logger.NewNop()), nil, logger.NewNop())

	sent := n.Send(context.Background(), contracts.AlertInfo, "nonexistent", "ignored", nil)
	assert.False(t, sent)
}

func TestNotifierFailureDoesNotPanic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := config.SlackConfig{WebhookAlerts: server.URL}
	n := NewNotifier(cfg, "production", httputil.New(logger.NewNop()).DisableRetry(), nil, logger.NewNop())

	sent := n.Send(context.Background(), contracts.AlertError, "alerts", "Execution 실패", map[string]interface{}{
		"error": "boom",
	})
	assert.False(t, sent)
}
