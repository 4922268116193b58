// Package notify delivers generated reports over email and WhatsApp.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/octobees/brandintel/internal/config"
	"github.com/octobees/brandintel/internal/dto"
	"github.com/octobees/brandintel/internal/entity"
	"github.com/octobees/brandintel/internal/repository"
)

// ReportSource loads reports with their recipient and records deliveries.
type ReportSource interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Report, error)
	GetRecipient(ctx context.Context, reportID uuid.UUID) (*entity.Recipient, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, channel string) error
}

var errChannelNotConfigured = errors.New("channel not configured")

// Notifier fans a report out to every channel its owner opted into.
type Notifier struct {
	reports  ReportSource
	email    EmailSender
	whatsapp WhatsAppSender
	appURL   string
	region   string
	timeout  time.Duration
	log      *zap.Logger
}

// New wires a notifier. Either sender may be nil, which leaves that channel
// unconfigured.
func New(reports ReportSource, email EmailSender, whatsapp WhatsAppSender, cfg config.NotifyConfig) *Notifier {
	n := &Notifier{
		reports: reports,
		appURL:  cfg.AppURL,
		region:  cfg.DefaultPhoneRegion,
		timeout: cfg.Timeout,
		log:     zap.L().With(zap.String("component", "notify")),
	}
	if n.timeout <= 0 {
		n.timeout = defaultSendTimeout
	}
	// Typed nil pointers must not become non-nil interfaces.
	if s, ok := email.(*ResendClient); !ok || s != nil {
		n.email = email
	}
	if s, ok := whatsapp.(*GupshupClient); !ok || s != nil {
		n.whatsapp = whatsapp
	}
	return n
}

type channel struct {
	name    string
	optedIn bool
	contact *string
	send    func(ctx context.Context, contact string, d Digest) error
	valid   func(raw string) (string, bool)
}

// Notify delivers the report on every eligible channel concurrently, waits for
// all of them and reports each outcome. A channel failure is logged and
// recorded in the outcome; it never fails the call. Only a failure to load the
// report or its recipient is returned.
func (n *Notifier) Notify(ctx context.Context, reportID uuid.UUID) (dto.NotifyResult, error) {
	report, err := n.reports.Get(ctx, reportID)
	if err != nil {
		return dto.NotifyResult{}, err
	}
	recipient, err := n.reports.GetRecipient(ctx, reportID)
	if err != nil {
		return dto.NotifyResult{}, err
	}
	digest, err := NewDigest(report, recipient.BrandName, n.appURL)
	if err != nil {
		return dto.NotifyResult{}, err
	}

	channels := []channel{
		{
			name:    repository.ChannelEmail,
			optedIn: recipient.EmailOptedIn,
			contact: recipient.Email,
			valid:   NormalizeEmail,
			send:    n.sendEmail,
		},
		{
			name:    repository.ChannelWhatsApp,
			optedIn: recipient.WhatsAppOptedIn,
			contact: recipient.WhatsAppNumber,
			valid:   func(raw string) (string, bool) { return NormalizePhone(raw, n.region) },
			send:    n.sendWhatsApp,
		},
	}

	outcomes := make([]dto.ChannelOutcome, len(channels))
	var g errgroup.Group
	for i, ch := range channels {
		g.Go(func() error {
			outcomes[i] = n.deliver(ctx, report.ID, ch, digest)
			return nil
		})
	}
	_ = g.Wait()

	return dto.NotifyResult{ReportID: report.ID.String(), Channels: outcomes}, nil
}

func (n *Notifier) deliver(ctx context.Context, reportID uuid.UUID, ch channel, d Digest) dto.ChannelOutcome {
	out := dto.ChannelOutcome{Channel: ch.name}
	log := n.log.With(zap.String("report_id", reportID.String()), zap.String("channel", ch.name))

	if !ch.optedIn {
		out.Reason = "not opted in"
		return out
	}
	if ch.contact == nil || *ch.contact == "" {
		out.Reason = "no contact on file"
		return out
	}
	contact, ok := ch.valid(*ch.contact)
	if !ok {
		out.Reason = "invalid contact"
		log.Warn("invalid contact")
		return out
	}

	out.Attempted = true
	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := ch.send(sendCtx, contact, d); err != nil {
		out.Reason = err.Error()
		log.Warn("delivery failed", zap.Error(err))
		return out
	}

	if err := n.reports.MarkDelivered(ctx, reportID, ch.name); err != nil {
		out.Reason = "delivered but flag not saved: " + err.Error()
		log.Error("mark delivered", zap.Error(err))
		return out
	}
	out.Delivered = true
	log.Info("report delivered")
	return out
}

func (n *Notifier) sendEmail(ctx context.Context, to string, d Digest) error {
	if n.email == nil {
		return errChannelNotConfigured
	}
	html, err := RenderEmail(d)
	if err != nil {
		return err
	}
	return n.email.SendEmail(ctx, to, EmailSubject(d), html)
}

func (n *Notifier) sendWhatsApp(ctx context.Context, to string, d Digest) error {
	if n.whatsapp == nil {
		return errChannelNotConfigured
	}
	return n.whatsapp.SendWhatsApp(ctx, to, RenderWhatsApp(d))
}
