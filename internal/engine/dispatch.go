package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Priya8975/webhook-notifier/internal/domain"
	"github.com/Priya8975/webhook-notifier/internal/metrics"
	"github.com/Priya8975/webhook-notifier/internal/store"
	"github.com/Priya8975/webhook-notifier/internal/variables"
)

const (
	DefaultMailTimeout = 30 * time.Second

	errSenderMissing = "sender configuration not found"
	errCircuitOpen   = "sender circuit open"
)

// Mailer delivers a rendered message through a sender and returns the
// message id assigned to it.
type Mailer interface {
	Send(ctx context.Context, sender domain.Sender, msg domain.Message) (string, error)
}

// Publisher receives every log entry after it is stored. Failures are
// logged and never fail the ingestion.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, entry domain.LogEntry) error
}

type Deps struct {
	Targets    store.TargetStore
	Senders    store.SenderStore
	Logs       store.LogStore
	Limiter    *RateController
	Mailer     Mailer
	Breaker    *SenderBreaker // optional
	Publishers []Publisher
	Metrics    *metrics.Recorder
	Logger     *slog.Logger

	Now         func() time.Time
	MailTimeout time.Duration
}

// Engine runs the ingestion pipeline and every mutation of targets. All
// changes to one target happen under that target's lock.
type Engine struct {
	targets    store.TargetStore
	senders    store.SenderStore
	logs       store.LogStore
	limiter    *RateController
	mailer     Mailer
	breaker    *SenderBreaker
	publishers []Publisher
	metrics    *metrics.Recorder
	logger     *slog.Logger
	tracer     *tracer
	locks      *KeyedMutex

	now         func() time.Time
	mailTimeout time.Duration
}

func NewEngine(d Deps) *Engine {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.MailTimeout <= 0 {
		d.MailTimeout = DefaultMailTimeout
	}
	return &Engine{
		targets:     d.Targets,
		senders:     d.Senders,
		logs:        d.Logs,
		limiter:     d.Limiter,
		mailer:      d.Mailer,
		breaker:     d.Breaker,
		publishers:  d.Publishers,
		metrics:     d.Metrics,
		logger:      d.Logger,
		tracer:      newTracer(),
		locks:       NewKeyedMutex(),
		now:         d.Now,
		mailTimeout: d.MailTimeout,
	}
}

type IngestRequest struct {
	TargetID   string
	SourceAddr string
	Data       json.RawMessage
}

// Ingest records an inbound event for a target and, when the target is
// active, sends its notification. The returned entry is the stored log.
//
// Once admitted, the call runs to completion even if ctx is cancelled; only
// the mail send is bounded, by the engine's mail timeout.
func (e *Engine) Ingest(ctx context.Context, req IngestRequest) (entry *domain.LogEntry, err error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := e.tracer.startIngest(ctx, req.TargetID, req.SourceAddr)
	defer func() {
		endIngest(span, entry, err)
		e.metrics.IncIngestion(ingestOutcome(err))
	}()

	target, err := e.targets.GetTarget(ctx, req.TargetID)
	if err != nil {
		return nil, storageFailed(err, "loading target")
	}
	if target == nil {
		return nil, targetNotFound(req.TargetID)
	}

	if e.limiter != nil {
		if err := e.limiter.Admit(ctx, req.SourceAddr, req.TargetID); err != nil {
			if tier, ok := RateLimitTier(err); ok {
				e.metrics.IncRateLimited(string(tier))
			}
			return nil, err
		}
	}

	data := req.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}

	unlock := e.locks.Lock(req.TargetID)
	defer unlock()

	// Re-read under the lock: the target may have changed or gone.
	target, err = e.targets.GetTarget(ctx, req.TargetID)
	if err != nil {
		return nil, storageFailed(err, "loading target")
	}
	if target == nil {
		return nil, targetNotFound(req.TargetID)
	}

	now := e.now()
	payload := domain.NewWebhookPayload(data, now)
	if evicted := target.AddPayload(payload); evicted > 0 {
		e.logger.Debug("payload history trimmed", "target_id", target.ID, "evicted", evicted)
	}
	target.RefreshVariables()
	target.LastActiveAt = &now

	if err := e.targets.PutTarget(ctx, target); err != nil {
		return nil, storageFailed(err, "saving target")
	}

	record := domain.LogEntry{
		ID:             domain.NewLogID(),
		TargetID:       target.ID,
		TargetName:     target.Name,
		PayloadID:      payload.ID,
		Timestamp:      now,
		Payload:        data,
		DeliveryStatus: domain.DeliverySkipped,
	}
	if target.Status == domain.StatusActive {
		e.deliver(ctx, target, data, &record)
	}

	if err := e.logs.AppendLog(ctx, record, domain.MaxLogEntries); err != nil {
		return nil, storageFailed(err, "appending log")
	}
	e.metrics.IncNotification(string(record.DeliveryStatus))

	e.logger.Info("webhook ingested",
		"target_id", target.ID,
		"payload_id", payload.ID,
		"delivery_status", record.DeliveryStatus,
	)

	e.publish(ctx, record)
	return &record, nil
}

// deliver renders the target's template against data and sends it,
// recording the outcome on entry.
func (e *Engine) deliver(ctx context.Context, target *domain.Target, data json.RawMessage, entry *domain.LogEntry) {
	entry.DeliveryStatus = domain.DeliveryFailed

	if target.SenderID == nil {
		entry.Error = errSenderMissing
		return
	}
	sender, err := e.senders.GetSender(ctx, *target.SenderID)
	if err != nil {
		e.logger.Error("loading sender", "error", err, "sender_id", *target.SenderID)
		entry.Error = fmt.Sprintf("loading sender: %v", err)
		return
	}
	if sender == nil {
		entry.Error = errSenderMissing
		return
	}

	msg := renderMessage(target.Template, data)
	entry.Recipient = msg.To
	entry.Subject = msg.Subject
	entry.Body = msg.Body

	messageID, err := e.send(ctx, target.ID, *sender, msg)
	if err != nil {
		entry.Error = err.Error()
		return
	}
	entry.DeliveryStatus = domain.DeliverySent
	entry.MessageID = messageID
}

// send passes msg to the mailer under the sender's circuit breaker and the
// mail timeout.
func (e *Engine) send(ctx context.Context, targetID string, sender domain.Sender, msg domain.Message) (string, error) {
	if e.breaker != nil {
		if _, ok := e.breaker.Allow(ctx, sender.ID); !ok {
			return "", errors.New(errCircuitOpen)
		}
	}

	ctx, span := e.tracer.startSend(ctx, targetID, sender.ID)
	defer span.End()

	sendCtx, cancel := context.WithTimeout(ctx, e.mailTimeout)
	defer cancel()

	start := e.now()
	messageID, err := e.mailer.Send(sendCtx, sender, msg)
	elapsed := e.now().Sub(start)

	if err != nil {
		e.metrics.ObserveSend(string(domain.DeliveryFailed), elapsed)
		if e.breaker != nil {
			e.breaker.RecordFailure(ctx, sender.ID)
		}
		e.logger.Warn("notification send failed",
			"target_id", targetID,
			"sender_id", sender.ID,
			"error", err,
		)
		return "", err
	}

	e.metrics.ObserveSend(string(domain.DeliverySent), elapsed)
	if e.breaker != nil {
		e.breaker.RecordSuccess(ctx, sender.ID)
	}
	return messageID, nil
}

func (e *Engine) publish(ctx context.Context, entry domain.LogEntry) {
	for _, p := range e.publishers {
		err := p.Publish(ctx, entry)
		e.metrics.IncPublished(p.Name(), err == nil)
		if err != nil {
			e.logger.Warn("publishing log entry",
				"publisher", p.Name(),
				"log_id", entry.ID,
				"error", err,
			)
		}
	}
}

func renderMessage(tmpl domain.EmailTemplate, data json.RawMessage) domain.Message {
	root, err := variables.Parse(data)
	if err != nil {
		root = nil
	}
	return domain.Message{
		To:      variables.RenderValue(tmpl.To, root),
		Subject: variables.RenderValue(tmpl.Subject, root),
		Body:    variables.RenderValue(tmpl.Body, root),
		IsHTML:  tmpl.IsHTML,
	}
}

func ingestOutcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case IsNotFound(err):
		return "not_found"
	case IsRateLimited(err):
		return "rate_limited"
	default:
		return "error"
	}
}
