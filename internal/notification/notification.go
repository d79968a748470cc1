// Package notification delivers workflow events after commit. Delivery is
// best effort: failures are logged and counted, never returned.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"portfolio-workers/internal/common/logger"
	"portfolio-workers/internal/common/metrics"
	"portfolio-workers/internal/models"
)

type Sink interface {
	Notify(ctx context.Context, event models.NotificationEvent)
}

// Publisher is satisfied by aws.SNSClient.
type Publisher interface {
	Publish(ctx context.Context, subject, message string, attributes map[string]string) (string, error)
}

// Mailer is satisfied by aws.SESClient.
type Mailer interface {
	SendText(ctx context.Context, to []string, subject, body string) (string, error)
}

type DispatcherConfig struct {
	Timeout           time.Duration
	GatewayRecipients []string
}

// Dispatcher publishes every event to SNS and emails gateway passes through SES.
type Dispatcher struct {
	publisher Publisher
	mailer    Mailer
	config    DispatcherConfig
	logger    logger.Logger
	wg        sync.WaitGroup
}

var _ Sink = (*Dispatcher)(nil)

// NewDispatcher builds a dispatcher. mailer may be nil to disable email.
func NewDispatcher(publisher Publisher, mailer Mailer, config DispatcherConfig, log logger.Logger) *Dispatcher {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &Dispatcher{
		publisher: publisher,
		mailer:    mailer,
		config:    config,
		logger:    logger.ForComponent(log, "notification"),
	}
}

// Notify returns immediately. Delivery runs on its own goroutine, detached
// from the caller's cancellation and bounded by the configured timeout.
func (d *Dispatcher) Notify(ctx context.Context, event models.NotificationEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.config.Timeout)
		defer cancel()
		d.deliver(sendCtx, event)
	}()
}

// Wait blocks until in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, event models.NotificationEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		d.failed(event, "sns", err)
		return
	}

	if d.publisher != nil {
		attrs := map[string]string{
			"kind":      string(event.Kind),
			"studentId": event.StudentID,
		}
		messageID, err := d.publisher.Publish(ctx, subjectFor(event), string(body), attrs)
		if err != nil {
			d.failed(event, "sns", err)
		} else {
			d.logger.Debug("notification published", map[string]interface{}{
				"kind":      event.Kind,
				"studentId": event.StudentID,
				"messageId": messageID,
			})
		}
	}

	if event.Kind == models.NotifyGatewayPassed && d.mailer != nil && len(d.config.GatewayRecipients) > 0 {
		if _, err := d.mailer.SendText(ctx, d.config.GatewayRecipients, subjectFor(event), gatewayPassedBody(event)); err != nil {
			d.failed(event, "email", err)
		}
	}
}

func (d *Dispatcher) failed(event models.NotificationEvent, channel string, err error) {
	metrics.NotificationsFailed.WithLabelValues(string(event.Kind), channel).Inc()
	d.logger.Warn("notification delivery failed", map[string]interface{}{
		"kind":      event.Kind,
		"studentId": event.StudentID,
		"channel":   channel,
		"error":     err.Error(),
	})
}

func subjectFor(event models.NotificationEvent) string {
	switch event.Kind {
	case models.NotifyFeedback:
		return "Assessor feedback available"
	case models.NotifyEvidenceRequested:
		return "Additional evidence requested"
	case models.NotifySignedOff:
		return "Portfolio category signed off"
	case models.NotifyIQASampled:
		return "Submission selected for IQA sampling"
	case models.NotifyIQAVerified:
		return "IQA verification completed"
	case models.NotifyGatewayPassed:
		return fmt.Sprintf("Gateway passed: %s", event.StudentID)
	default:
		return "Gateway checklist updated"
	}
}

func gatewayPassedBody(event models.NotificationEvent) string {
	qual, _ := event.Payload["qualificationId"].(string)
	return fmt.Sprintf(
		"Learner %s has met all gateway criteria for qualification %s on %s and is eligible for EPA booking.",
		event.StudentID, qual, event.OccurredAt.Format("2 January 2006"),
	)
}

// Noop drops every event.
type Noop struct{}

func (Noop) Notify(context.Context, models.NotificationEvent) {}

// Recorder keeps events in memory. Tests use it to assert on what was sent.
type Recorder struct {
	mu     sync.Mutex
	events []models.NotificationEvent
}

func (r *Recorder) Notify(_ context.Context, event models.NotificationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *Recorder) Events() []models.NotificationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.NotificationEvent(nil), r.events...)
}

// OfKind returns recorded events of the given kind.
func (r *Recorder) OfKind(kind models.NotificationKind) []models.NotificationEvent {
	out := []models.NotificationEvent{}
	for _, e := range r.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
