// Package outbox drains the append-only event log written by
// ledger.Service.EmitOutboxEvent, delivering each entry as a signed
// webhook callback and fanning it out to a RabbitMQ exchange for any
// downstream consumer. Grounded on ledger_jobs/outbox_dispatcher.py's
// OutboxDispatcher, carrying the same retry/backoff/DLQ contract.
package outbox

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"github.com/brackwater/payrail/internal/domain/outboxevent"
	"github.com/brackwater/payrail/internal/idgen"
	"github.com/brackwater/payrail/internal/mlog"
	"github.com/brackwater/payrail/internal/store"
)

const (
	outboxKey   = "outbox/events.jsonl"
	processedKey = "outbox/processed_events.json"
	dlqKey      = "outbox/dlq.jsonl"

	maxRetries = 3

	exchangeName = "payrail.events"
)

var retryBackoff = []time.Duration{1 * time.Second, 3 * time.Second, 10 * time.Second}

// Dispatcher drains pending outbox events on a fixed interval.
type Dispatcher struct {
	store        store.Store
	http         *http.Client
	callbackURL  string
	secret       string
	amqpChannel  *amqp.Channel
	amqpBreaker  *gobreaker.CircuitBreaker[any]
}

// New builds a Dispatcher. amqpChannel may be nil, in which case events
// are only delivered as webhooks and RabbitMQ fan-out is skipped — useful
// for environments without a broker.
func New(st store.Store, callbackURL, secret string, amqpChannel *amqp.Channel) *Dispatcher {
	var cb *gobreaker.CircuitBreaker[any]

	if amqpChannel != nil {
		cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:    "outbox.rabbitmq",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		})
	}

	return &Dispatcher{
		store:       st,
		http:        &http.Client{Timeout: 10 * time.Second},
		callbackURL: callbackURL,
		secret:      secret,
		amqpChannel: amqpChannel,
		amqpBreaker: cb,
	}
}

// Run processes pending events every interval until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	logger := mlog.FromContext(ctx)
	logger.Infof("outbox dispatcher started (interval=%s)", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := d.ProcessPending(ctx); err != nil {
			logger.Errorf("outbox dispatcher error: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

type webhookEnvelope struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Provider  any       `json:"provider"`
	Data      any       `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

// ProcessPending delivers every event not yet recorded in the processed
// index, moving exhausted deliveries to the DLQ.
func (d *Dispatcher) ProcessPending(ctx context.Context) error {
	logger := mlog.FromContext(ctx)

	raw, err := d.store.ReadJSONL(ctx, outboxKey)
	if err != nil && err != store.ErrNotFound {
		return err
	}

	if len(raw) == 0 {
		return nil
	}

	events := make([]outboxevent.Event, 0, len(raw))

	for _, r := range raw {
		var e outboxevent.Event
		if err := json.Unmarshal(r, &e); err != nil {
			continue
		}

		events = append(events, e)
	}

	processed := map[string]outboxevent.ProcessedRecord{}
	if err := d.store.ReadJSON(ctx, processedKey, &processed); err != nil && err != store.ErrNotFound {
		return err
	}

	var pending []outboxevent.Event

	for _, e := range events {
		if _, ok := processed[e.ID]; !ok {
			pending = append(pending, e)
		}
	}

	if len(pending) == 0 {
		return nil
	}

	logger.Infof("processing %d outbox events", len(pending))

	for _, event := range pending {
		d.fanOut(ctx, event)

		delivered := d.deliverWebhook(ctx, event)
		now := time.Now().UTC()

		if delivered {
			processed[event.ID] = outboxevent.ProcessedRecord{ProcessedAt: now, Status: "delivered"}
			logger.Infof("delivered outbox event %s", event.ID)
		} else {
			entry := outboxevent.DLQEntry{Event: event, DLQReason: "max_retries_exceeded", DLQAt: now}
			if err := d.store.AppendJSONL(ctx, dlqKey, entry); err != nil {
				return err
			}

			processed[event.ID] = outboxevent.ProcessedRecord{ProcessedAt: now, Status: "dlq"}
			logger.Warnf("event %s moved to dlq", event.ID)
		}
	}

	return d.store.WriteJSON(ctx, processedKey, processed)
}

func (d *Dispatcher) deliverWebhook(ctx context.Context, event outboxevent.Event) bool {
	logger := mlog.FromContext(ctx)

	var provider any
	if m, ok := event.Payload.(map[string]any); ok {
		provider = m["provider"]
	}

	envelope := webhookEnvelope{
		ID:        orDefault(event.ID),
		Type:      event.Type,
		Provider:  provider,
		Data:      event.Payload,
		CreatedAt: orDefaultTime(event.CreatedAt),
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		logger.Errorf("failed to marshal outbox event %s: %v", event.ID, err)
		return false
	}

	signature := sign(body, d.secret)

	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.callbackURL, bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Webhook-Signature", signature)
			req.Header.Set("X-Correlation-Id", event.CorrelationID)

			resp, doErr := d.http.Do(req)
			if doErr == nil {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				if resp.StatusCode < 400 {
					return true
				}

				logger.Warnf("webhook returned %d, attempt %d", resp.StatusCode, attempt+1)
			} else {
				logger.Warnf("webhook delivery failed (attempt %d): %v", attempt+1, doErr)
			}
		}

		if attempt < maxRetries-1 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(retryBackoff[attempt]):
			}
		}
	}

	return false
}

// fanOut best-effort publishes event to the configured exchange. A
// missing channel or an open breaker silently skips fan-out — RabbitMQ
// delivery is additive, never a condition for marking an event delivered.
func (d *Dispatcher) fanOut(ctx context.Context, event outboxevent.Event) {
	if d.amqpChannel == nil {
		return
	}

	logger := mlog.FromContext(ctx)

	_, err := d.amqpBreaker.Execute(func() (any, error) {
		body, err := json.Marshal(event)
		if err != nil {
			return nil, err
		}

		return nil, d.amqpChannel.PublishWithContext(ctx, exchangeName, event.Type, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID,
			Body:         body,
		})
	})
	if err != nil {
		logger.Warnf("rabbitmq fan-out skipped for event %s: %v", event.ID, err)
	}
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func orDefault(v string) string {
	if v == "" {
		return idgen.OutboxEventID()
	}

	return v
}

func orDefaultTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}

	return t
}
