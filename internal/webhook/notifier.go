package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/scailup/creditcore/internal/clock"
	"github.com/scailup/creditcore/internal/config"
	"github.com/scailup/creditcore/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Event names emitted to the downstream automation hook.
const (
	EventContactCreated      = "contact_created"
	EventBulkContactsCreated = "bulk_contacts_created"
)

// Notifier delivers conversion events to an external automation endpoint.
// Delivery is advisory: a failed post is logged and dropped, never retried
// into the caller's request path.
type Notifier interface {
	Emit(ctx context.Context, event string, payload any)
}

type Param struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type httpNotifier struct {
	url     string
	apiKey  string
	client  *http.Client
	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewNotifier(p Param) Notifier {
	if p.Cfg.WebhookURL == "" {
		p.Log.Info("webhook url not configured, conversion events disabled")
		return noopNotifier{}
	}
	return &httpNotifier{
		url:     p.Cfg.WebhookURL,
		apiKey:  p.Cfg.WebhookAPIKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		clock:   p.Clock,
		log:     p.Log.Named("webhook"),
		metrics: p.Metrics,
	}
}

func (n *httpNotifier) Emit(ctx context.Context, event string, payload any) {
	body, err := json.Marshal(map[string]any{
		"event":     event,
		"timestamp": n.clock.Now().UTC().Format(time.RFC3339),
		"payload":   payload,
	})
	if err != nil {
		n.log.Error("marshal webhook payload", zap.String("event", event), zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.log.Error("build webhook request", zap.String("event", event), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if n.apiKey != "" {
		req.Header.Set("X-Api-Key", n.apiKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Warn("webhook delivery failed", zap.String("event", event), zap.Error(err))
		n.observe(event, "error")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.log.Warn("webhook rejected",
			zap.String("event", event),
			zap.Int("status", resp.StatusCode),
		)
		n.observe(event, fmt.Sprintf("%d", resp.StatusCode))
		return
	}
	n.observe(event, "ok")
}

func (n *httpNotifier) observe(event, status string) {
	if n.metrics != nil {
		n.metrics.WebhookDelivered.WithLabelValues(event, status).Inc()
	}
}

type noopNotifier struct{}

func (noopNotifier) Emit(context.Context, string, any) {}

var Module = fx.Module("webhook",
	fx.Provide(NewNotifier),
)
