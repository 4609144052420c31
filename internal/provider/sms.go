package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eventcraft/notifications/internal/domain"
	"github.com/go-resty/resty/v2"
)

const defaultSMSTimeout = 5 * time.Second

type smsRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

type smsResponse struct {
	MessageID string `json:"messageId"`
}

// SMSAdapter delivers notifications through an HTTP SMS gateway.
type SMSAdapter struct {
	client   *resty.Client
	endpoint string
	from     string
}

func NewSMSAdapter(endpoint string, apiKey string, from string) (*SMSAdapter, error) {
	client := resty.New()
	client.SetTimeout(defaultSMSTimeout)
	client.SetRetryCount(0)
	if strings.TrimSpace(apiKey) != "" {
		client.SetAuthToken(apiKey)
	}

	return NewSMSAdapterWithClient(endpoint, from, client)
}

func NewSMSAdapterWithClient(endpoint string, from string, client *resty.Client) (*SMSAdapter, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("sms endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid sms endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSMSTimeout)
	}
	client.SetRetryCount(0)

	return &SMSAdapter{
		client:   client,
		endpoint: trimmedEndpoint,
		from:     strings.TrimSpace(from),
	}, nil
}

func (a *SMSAdapter) Channel() domain.Channel {
	return domain.ChannelSMS
}

func (a *SMSAdapter) Send(ctx context.Context, msg Message) (*SendResult, error) {
	if a == nil || a.client == nil {
		return nil, fmt.Errorf("sms adapter is not initialized")
	}
	if strings.TrimSpace(msg.To) == "" {
		return nil, &ProviderError{Message: "recipient phone number is required"}
	}

	reqBody := smsRequest{
		From: a.from,
		To:   msg.To,
		Body: TruncateSMS(msg.Body),
	}

	var parsed smsResponse
	response, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		SetResult(&parsed).
		Post(a.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message:   "sms gateway request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Message:   "sms gateway returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &SendResult{
			StatusCode: statusCode,
			ProviderID: gatewayMessageID(parsed, response),
		}, nil
	}

	return nil, &ProviderError{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("sms gateway returned status %d", statusCode),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

// TruncateSMS caps a body at the SMS content limit without splitting runes.
func TruncateSMS(body string) string {
	runes := []rune(body)
	if len(runes) <= domain.MaxSMSContent {
		return body
	}
	return string(runes[:domain.MaxSMSContent-3]) + "..."
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func gatewayMessageID(parsed smsResponse, response *resty.Response) string {
	if id := strings.TrimSpace(parsed.MessageID); id != "" {
		return id
	}
	if response == nil {
		return ""
	}

	for _, key := range []string{"X-Message-ID", "X-Message-Id", "X-Request-ID", "X-Request-Id"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
