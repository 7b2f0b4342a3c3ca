package notification

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// SMSClient is the plain-text fallback channel. It posts to a generic
// SMS gateway configured through SMS_API_URL and SMS_API_KEY; the From
// number comes from application config.
type SMSClient struct {
	APIURL     string
	APIKey     string
	From       string
	HTTPClient *http.Client
}

func NewSMSClient(from string) *SMSClient {
	return &SMSClient{
		APIURL:     os.Getenv("SMS_API_URL"),
		APIKey:     os.Getenv("SMS_API_KEY"),
		From:       from,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send delivers one SMS to the given phone number.
func (s *SMSClient) Send(ctx context.Context, phone, message string) error {
	if s.APIURL == "" || s.APIKey == "" || s.From == "" {
		return fmt.Errorf("sms client not configured")
	}
	form := url.Values{}
	form.Set("key", s.APIKey)
	form.Set("from", s.From)
	form.Set("to", phone)
	form.Set("msg", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms api status %d: %s", resp.StatusCode, b)
	}
	return nil
}
