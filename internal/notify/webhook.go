// Package notify delivers transaction events to merchant webhooks.
package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/baharkarakas/paycore/internal/metrics"
	"github.com/baharkarakas/paycore/internal/models"
	repo "github.com/baharkarakas/paycore/internal/repository"
	"github.com/baharkarakas/paycore/internal/worker"
)

const SignatureHeader = "X-Paycore-Signature"

type Event struct {
	Event  string             `json:"event"`
	Data   models.Transaction `json:"data"`
	SentAt time.Time          `json:"sent_at"`
}

type Webhooks struct {
	client    *resty.Client
	merchants repo.Merchants
	pool      *worker.Pool
	secret    []byte
	log       *slog.Logger
}

func NewWebhooks(merchants repo.Merchants, pool *worker.Pool, secret string, timeout time.Duration, log *slog.Logger) *Webhooks {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "paycore-webhook/1.0").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &Webhooks{client: client, merchants: merchants, pool: pool, secret: []byte(secret), log: log}
}

// Publish queues a delivery for terminal transactions that belong to a
// merchant with a webhook configured.
func (w *Webhooks) Publish(tx models.Transaction) {
	if !tx.Status.Terminal() || !tx.HasMerchant() {
		return
	}
	ok := w.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := w.deliver(ctx, tx); err != nil {
			metrics.WebhooksFailed.Inc()
			w.log.Error("webhook delivery failed", "txn_id", tx.ID, "merchant_id", *tx.MerchantID, "err", err)
		}
	})
	if !ok {
		w.log.Warn("webhook queue full, event dropped", "txn_id", tx.ID)
	}
}

func (w *Webhooks) deliver(ctx context.Context, tx models.Transaction) error {
	m, err := w.merchants.GetByID(ctx, *tx.MerchantID)
	if err != nil {
		return fmt.Errorf("load merchant: %w", err)
	}
	if m.WebhookURL == "" {
		return nil
	}

	body, err := json.Marshal(Event{
		Event:  "transaction." + strings.ToLower(string(tx.Status)),
		Data:   tx,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader(SignatureHeader, Sign(w.secret, body)).
		SetBody(body).
		Post(m.WebhookURL)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("merchant endpoint returned %d", resp.StatusCode())
	}
	w.log.Debug("webhook delivered", "txn_id", tx.ID, "url", m.WebhookURL)
	return nil
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
