// Package notifier tells interested parties that a transaction changed:
// the business's callback URL, and a Redis stream for internal consumers.
// Delivery is best effort; the lifecycle never blocks on a notification.
package notifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/anchorline/anchor-engine/internal/metrics"
)

// Event is the wire snapshot of a transaction at a status change. Amounts
// travel as strings so consumers never round them.
type Event struct {
	TransactionID string  `json:"transaction_id"`
	Kind          string  `json:"kind"`
	Status        string  `json:"status"`
	StatusMessage *string `json:"status_message,omitempty"`

	AmountExpected string  `json:"amount_expected"`
	AmountIn       *string `json:"amount_in,omitempty"`
	AmountOut      *string `json:"amount_out,omitempty"`
	AmountFee      *string `json:"amount_fee,omitempty"`

	StellarTransactionID  *string `json:"stellar_transaction_id,omitempty"`
	ExternalTransactionID *string `json:"external_transaction_id,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`

	// Callback is the transaction's registered callback URL, if any. Not
	// serialized; sinks that deliver elsewhere ignore it.
	Callback string `json:"-"`
}

// NewEvent snapshots the transaction for delivery.
func NewEvent(tx *model.Transaction) *Event {
	e := &Event{
		TransactionID:         tx.ID.String(),
		Kind:                  tx.Kind.String(),
		Status:                tx.Status.String(),
		StatusMessage:         tx.StatusMessage,
		AmountExpected:        tx.AmountExpected.String(),
		StellarTransactionID:  tx.StellarTransactionID,
		ExternalTransactionID: tx.ExternalTransactionID,
		UpdatedAt:             tx.UpdatedAt,
	}
	if tx.AmountIn != nil {
		v := tx.AmountIn.String()
		e.AmountIn = &v
	}
	if tx.AmountOut != nil {
		v := tx.AmountOut.String()
		e.AmountOut = &v
	}
	if tx.AmountFee != nil {
		v := tx.AmountFee.String()
		e.AmountFee = &v
	}
	if tx.OnChangeCallback != nil {
		e.Callback = *tx.OnChangeCallback
	}
	return e
}

// Sink delivers one event to one destination.
type Sink interface {
	Name() string
	Notify(ctx context.Context, event *Event) error
}

// Dispatcher fans one event out to every sink. Sink failures are counted and
// logged, never propagated.
type Dispatcher struct {
	sinks  []Sink
	logger *slog.Logger
}

func NewDispatcher(logger *slog.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sinks:  sinks,
		logger: logger.With("component", "notifier"),
	}
}

func (d *Dispatcher) Notify(ctx context.Context, event *Event) {
	for _, sink := range d.sinks {
		if err := sink.Notify(ctx, event); err != nil {
			metrics.NotificationErrors.WithLabelValues(sink.Name()).Inc()
			d.logger.Warn("notification delivery failed",
				"sink", sink.Name(),
				"transaction_id", event.TransactionID,
				"status", event.Status,
				"error", err)
			continue
		}
		metrics.NotificationsSent.WithLabelValues(sink.Name()).Inc()
	}
}
