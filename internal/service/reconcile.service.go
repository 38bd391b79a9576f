package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"pixelmart/internal/domain"
	"pixelmart/internal/metrics"
	"pixelmart/internal/repo"
	"pixelmart/internal/signature"
)

// Notifier delivers the confirmation for a completed order. Delivery may be
// repeated by the transport; the engine calls Send at most once per order.
type Notifier interface {
	Send(ctx context.Context, order *domain.Order) error
}

type Outcome string

const (
	// OutcomeTransitioned: this call moved the order from pending to completed.
	OutcomeTransitioned Outcome = "transitioned"
	// OutcomeAlreadyFinal: the order was already completed or failed; nothing changed.
	OutcomeAlreadyFinal Outcome = "already_final"
	// OutcomeIgnored: a well-signed webhook event that does not settle a payment.
	OutcomeIgnored Outcome = "ignored"
)

type Result struct {
	Outcome Outcome
	Order   *domain.Order
	// NotifyErr is set when the transition committed but the confirmation failed.
	NotifyErr error
}

// Degraded reports a committed transition whose notification failed.
func (r Result) Degraded() bool {
	return r.NotifyErr != nil
}

type ReconcileService interface {
	ReconcileFromClient(ctx context.Context, gatewayOrderID, gatewayPaymentID, sig string) (Result, error)
	ReconcileFromWebhook(ctx context.Context, rawBody []byte, sig string) (Result, error)
	Reconcile(ctx context.Context, a domain.PaymentAssertion) (Result, error)
	// ExpireStale fails orders left pending longer than olderThan and returns how many it moved.
	ExpireStale(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

type ReconcileOptions struct {
	MaxRetries     uint64
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	NotifyTimeout  time.Duration
}

type reconcileService struct {
	orders   repo.OrderRepo
	verifier *signature.Verifier
	notifier Notifier
	metrics  *metrics.ReconcileMetrics
	log      *slog.Logger
	opts     ReconcileOptions
}

func NewReconcileService(
	orders repo.OrderRepo,
	verifier *signature.Verifier,
	notifier Notifier,
	m *metrics.ReconcileMetrics,
	log *slog.Logger,
	opts ReconcileOptions,
) ReconcileService {
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 100 * time.Millisecond
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = opts.InitialBackoff
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 5 * time.Second
	}
	return &reconcileService{
		orders:   orders,
		verifier: verifier,
		notifier: notifier,
		metrics:  m,
		log:      log,
		opts:     opts,
	}
}

func (s *reconcileService) ReconcileFromClient(ctx context.Context, gatewayOrderID, gatewayPaymentID, sig string) (Result, error) {
	return s.Reconcile(ctx, domain.PaymentAssertion{
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: gatewayPaymentID,
		Source:           domain.SourceClient,
		Signature:        sig,
	})
}

func (s *reconcileService) ReconcileFromWebhook(ctx context.Context, rawBody []byte, sig string) (res Result, err error) {
	start := time.Now()
	defer func() { s.record(domain.SourceWebhook, start, res, err) }()

	// The body is untrusted until the signature over its exact bytes checks out.
	if !s.verifier.VerifyWebhook(rawBody, sig) {
		s.log.Warn("webhook signature rejected", "source", domain.SourceWebhook)
		return Result{}, domain.ErrBadSignature
	}

	event, err := parseWebhookEvent(rawBody)
	if err != nil {
		s.log.Warn("webhook payload rejected", "error", err)
		return Result{}, err
	}
	if !event.settlesPayment() {
		s.log.Info("webhook event ignored", "event", event.Event)
		return Result{Outcome: OutcomeIgnored}, nil
	}

	return s.reconcile(ctx, domain.PaymentAssertion{
		GatewayOrderID:   event.Payload.Payment.Entity.OrderID,
		GatewayPaymentID: event.Payload.Payment.Entity.ID,
		Source:           domain.SourceWebhook,
		Signature:        sig,
		RawBody:          rawBody,
	})
}

func (s *reconcileService) Reconcile(ctx context.Context, a domain.PaymentAssertion) (res Result, err error) {
	start := time.Now()
	defer func() { s.record(a.Source, start, res, err) }()
	return s.reconcile(ctx, a)
}

func (s *reconcileService) reconcile(ctx context.Context, a domain.PaymentAssertion) (Result, error) {
	log := s.log.With("gateway_order_id", a.GatewayOrderID, "payment_id", a.GatewayPaymentID, "source", a.Source)

	if !s.verify(a) {
		log.Warn("payment signature rejected")
		return Result{}, domain.ErrBadSignature
	}

	var order *domain.Order
	err := s.withRetry(ctx, log, "lookup", func() (err error) {
		order, err = s.orders.FindByGatewayOrderID(ctx, a.GatewayOrderID)
		return err
	})
	if err != nil {
		log.Error("order lookup failed", "error", err)
		return Result{}, err
	}
	if order == nil {
		log.Warn("no order for gateway order id")
		return Result{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, a.GatewayOrderID)
	}

	// Re-issuing the conditional write after an ambiguous failure is safe: once
	// the order has left pending it matches nothing.
	var tr repo.TransitionResult
	err = s.withRetry(ctx, log, "conditional complete", func() (err error) {
		tr, err = s.orders.ConditionalComplete(ctx, a.GatewayOrderID, a.GatewayPaymentID)
		return err
	})
	if err != nil {
		log.Error("conditional complete failed", "error", err)
		return Result{}, err
	}

	if !tr.Updated {
		if tr.Order == nil {
			log.Warn("order disappeared during reconciliation")
			return Result{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, a.GatewayOrderID)
		}
		if tr.Order.Status == domain.OrderFailed {
			// Captured funds against an expired order need a refund or manual backfill.
			log.Warn("payment captured for failed order", "status", tr.Order.Status)
		} else {
			log.Info("payment already reconciled", "status", tr.Order.Status)
		}
		return Result{Outcome: OutcomeAlreadyFinal, Order: tr.Order}, nil
	}

	log.Info("order completed")
	res := Result{Outcome: OutcomeTransitioned, Order: tr.Order}
	res.NotifyErr = s.notify(ctx, log, tr.Order)
	return res, nil
}

func (s *reconcileService) verify(a domain.PaymentAssertion) bool {
	switch a.Source {
	case domain.SourceClient:
		return s.verifier.VerifyClient(a.GatewayOrderID, a.GatewayPaymentID, a.Signature)
	case domain.SourceWebhook:
		if !s.verifier.VerifyWebhook(a.RawBody, a.Signature) {
			return false
		}
		// Only the body is signed, so the ids acted on must be the ones it carries.
		event, err := parseWebhookEvent(a.RawBody)
		if err != nil || !event.settlesPayment() {
			return false
		}
		entity := event.Payload.Payment.Entity
		return entity.OrderID == a.GatewayOrderID && entity.ID == a.GatewayPaymentID
	default:
		return false
	}
}

// notify runs after the commit. It is detached from the caller's cancellation so
// an aborted request neither undoes the transition nor cuts delivery short.
func (s *reconcileService) notify(ctx context.Context, log *slog.Logger, order *domain.Order) error {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.NotifyTimeout)
	defer cancel()

	if err := s.notifier.Send(nctx, order); err != nil {
		s.metrics.NotifyFailuresTotal.Inc()
		log.Error("order confirmation failed", "error", err)
		if !errors.Is(err, domain.ErrNotifyFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrNotifyFailed, err)
		}
		return err
	}
	return nil
}

func (s *reconcileService) withRetry(ctx context.Context, log *slog.Logger, op string, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.InitialBackoff
	b.MaxInterval = s.opts.MaxBackoff
	b.MaxElapsedTime = 0

	attempt := 0
	err := backoff.RetryNotify(
		func() error {
			attempt++
			return fn()
		},
		backoff.WithContext(backoff.WithMaxRetries(b, s.opts.MaxRetries), ctx),
		func(err error, next time.Duration) {
			s.metrics.StoreRetriesTotal.Inc()
			log.Warn("order store call failed, retrying", "op", op, "attempt", attempt, "next", next, "error", err)
		},
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
	}
	return nil
}

func (s *reconcileService) ExpireStale(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	log := s.log.With("op", "expire")

	var stale []domain.Order
	err := s.withRetry(ctx, log, "find stale", func() (err error) {
		stale, err = s.orders.FindStalePending(ctx, olderThan, limit)
		return err
	})
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, order := range stale {
		var tr repo.TransitionResult
		err := s.withRetry(ctx, log, "conditional fail", func() (err error) {
			tr, err = s.orders.ConditionalFail(ctx, order.GatewayOrderID)
			return err
		})
		if err != nil {
			return expired, err
		}
		if tr.Updated {
			expired++
			s.metrics.OrdersExpiredTotal.Inc()
			log.Info("abandoned order failed", "gateway_order_id", order.GatewayOrderID)
		}
	}
	return expired, nil
}

func (s *reconcileService) record(source domain.Source, start time.Time, res Result, err error) {
	s.metrics.Duration.WithLabelValues(string(source)).Observe(time.Since(start).Seconds())
	s.metrics.OutcomesTotal.WithLabelValues(string(source), outcomeLabel(res, err)).Inc()
}

func outcomeLabel(res Result, err error) string {
	switch {
	case err == nil && res.Outcome == OutcomeAlreadyFinal && res.Order != nil && res.Order.Status == domain.OrderFailed:
		return "already_final_failed"
	case err == nil:
		return string(res.Outcome)
	case errors.Is(err, domain.ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, domain.ErrOrderNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrMalformedPayload):
		return "malformed"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}
