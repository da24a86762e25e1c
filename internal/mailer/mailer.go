// Package mailer sends templated transactional email. Delivery is a side
// effect: every template send reports success as a boolean and never
// propagates an error to the caller.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/charlene/kitchen-api/internal/config"
	"github.com/charlene/kitchen-api/internal/limiter"
	"github.com/charlene/kitchen-api/internal/model"
)

const (
	maxAttempts   = 3
	backoffStep   = time.Second
	verifyTimeout = 5 * time.Second
)

// Template kinds, used as throttle keys.
const (
	KindWelcome           = "welcome"
	KindOrderConfirmation = "order-confirmation"
	KindOrderStatus       = "order-status-changed"
)

type dialer interface {
	Dial() (gomail.SendCloser, error)
	DialAndSend(m ...*gomail.Message) error
}

type Mailer struct {
	cfg         config.SMTPConfig
	frontendURL string
	dialer      dialer
	throttle    limiter.Throttle
	log         *slog.Logger
	sleep       func(time.Duration)
}

func New(cfg config.SMTPConfig, frontendURL string, throttle limiter.Throttle, log *slog.Logger) *Mailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.SSL = cfg.SSL
	d.TLSConfig = &tls.Config{
		ServerName: cfg.Host,
		MinVersion: tls.VersionTLS12,
	}
	return &Mailer{
		cfg:         cfg,
		frontendURL: frontendURL,
		dialer:      d,
		throttle:    throttle,
		log:         log,
		sleep:       time.Sleep,
	}
}

// SendRaw sends one message without templating or throttling, surfacing
// the transport error. Used by the development probes.
func (m *Mailer) SendRaw(ctx context.Context, to, subject, htmlBody, textBody string) error {
	return m.send(ctx, to, subject, htmlBody, textBody)
}

// VerifyConnection dials the SMTP server and disconnects.
func (m *Mailer) VerifyConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		sc, err := m.dialer.Dial()
		if err == nil {
			err = sc.Close()
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("verify connection: %w", ctx.Err())
	}
}

// SendWelcome greets a newly registered user.
func (m *Mailer) SendWelcome(ctx context.Context, user *model.User) bool {
	return m.sendTemplate(ctx, KindWelcome, user.Email, welcomeMessage(user, m.frontendURL))
}

// SendOrderConfirmation summarizes a freshly placed order.
func (m *Mailer) SendOrderConfirmation(ctx context.Context, order *model.Order, user *model.User) bool {
	return m.sendTemplate(ctx, KindOrderConfirmation, user.Email, confirmationMessage(order, user, m.frontendURL))
}

// SendOrderStatusUpdate notifies a customer of a status change. Pending
// is the initial state, not a change, so it is suppressed.
func (m *Mailer) SendOrderStatusUpdate(ctx context.Context, order *model.Order, user *model.User, status model.OrderStatus) bool {
	if status == model.OrderStatusPending {
		return true
	}
	return m.sendTemplate(ctx, KindOrderStatus, user.Email, statusMessage(order, user, status, m.frontendURL))
}

func (m *Mailer) sendTemplate(ctx context.Context, kind, to string, msg message) bool {
	log := m.log.With("template", kind, "to", to)

	ok, err := m.throttle.Allow(ctx, to+":"+kind)
	if err != nil {
		log.Error("email throttle check", "error", err)
	} else if !ok {
		log.Info("email suppressed by throttle")
		return true
	}

	if err := m.send(ctx, to, msg.subject, msg.html, msg.text); err != nil {
		log.Error("send email", "error", err)
		return false
	}
	log.Info("email sent")
	return true
}

// send retries the transport with linear backoff (1s x attempt). Each
// attempt is bounded by the configured send timeout so a hung SMTP
// connection cannot stall the caller.
func (m *Mailer) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	gm := gomail.NewMessage()
	gm.SetAddressHeader("From", m.cfg.From, m.cfg.FromName)
	gm.SetHeader("To", to)
	gm.SetHeader("Subject", subject)
	gm.SetBody("text/plain", textBody)
	gm.AddAlternative("text/html", htmlBody)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := m.sendOnce(ctx, gm); err != nil {
			lastErr = err
			if attempt < maxAttempts {
				m.sleep(backoffStep * time.Duration(attempt))
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("send email after %d attempts: %w", maxAttempts, lastErr)
}

func (m *Mailer) sendOnce(ctx context.Context, gm *gomail.Message) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.SendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(gm) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
