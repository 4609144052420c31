package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eventcraft/notifications/internal/domain"
	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

const defaultSMTPTimeout = 10 * time.Second

// smtpDialer is the slice of gomail.Dialer the adapter needs; tests inject a
// fake here.
type smtpDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailAdapter delivers notifications over SMTP.
type EmailAdapter struct {
	dialer  smtpDialer
	from    string
	domain  string
	timeout time.Duration
}

func NewEmailAdapter(host string, port int, username string, password string, from string, mailDomain string) (*EmailAdapter, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}

	return NewEmailAdapterWithDialer(gomail.NewDialer(host, port, username, password), from, mailDomain)
}

func NewEmailAdapterWithDialer(dialer smtpDialer, from string, mailDomain string) (*EmailAdapter, error) {
	if dialer == nil {
		return nil, fmt.Errorf("smtp dialer is required")
	}

	mailDomain = strings.TrimSpace(mailDomain)
	if mailDomain == "" {
		if at := strings.LastIndex(from, "@"); at >= 0 {
			mailDomain = from[at+1:]
		}
	}

	return &EmailAdapter{
		dialer:  dialer,
		from:    strings.TrimSpace(from),
		domain:  mailDomain,
		timeout: defaultSMTPTimeout,
	}, nil
}

func (a *EmailAdapter) Channel() domain.Channel {
	return domain.ChannelEmail
}

func (a *EmailAdapter) Send(ctx context.Context, msg Message) (*SendResult, error) {
	if a == nil || a.dialer == nil {
		return nil, fmt.Errorf("email adapter is not initialized")
	}
	if strings.TrimSpace(msg.To) == "" {
		return nil, &ProviderError{Message: "recipient email address is required"}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), a.domain)

	m := gomail.NewMessage()
	m.SetHeader("Message-ID", messageID)
	m.SetHeader("Date", time.Now().Format(time.RFC1123Z))
	m.SetHeader("From", a.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.Body)

	// gomail has no context support; run the dial in a goroutine and give up
	// on the result once the deadline passes.
	done := make(chan error, 1)
	go func() {
		done <- a.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return nil, &ProviderError{
			Message:   "smtp send timed out",
			Transient: true,
			Cause:     ctx.Err(),
		}
	case err := <-done:
		if err != nil {
			return nil, &ProviderError{
				Message:   "smtp send failed",
				Transient: true,
				Cause:     err,
			}
		}
	}

	return &SendResult{ProviderID: messageID}, nil
}
