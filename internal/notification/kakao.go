package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const kakaoSendURL = "https://alimtalk-api.bizmsg.kr/v2/sender/send"

// KakaoClient delivers messages through the Kakao Alimtalk business API.
// An empty API key disables the client; Send then fails immediately so
// the dispatcher falls through to SMS.
type KakaoClient struct {
	APIKey     string
	SenderKey  string
	HTTPClient *http.Client
	BaseURL    string
}

func NewKakaoClient(apiKey, senderKey string) *KakaoClient {
	return &KakaoClient{
		APIKey:     apiKey,
		SenderKey:  senderKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		BaseURL:    kakaoSendURL,
	}
}

// Send delivers one Alimtalk message to the given phone number.
func (k *KakaoClient) Send(ctx context.Context, phone, message string) error {
	if k.APIKey == "" || k.SenderKey == "" {
		return fmt.Errorf("kakao client not configured")
	}
	payload := map[string]interface{}{
		"senderKey": k.SenderKey,
		"to":        phone,
		"message":   message,
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.BaseURL, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+k.APIKey)

	resp, err := k.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("kakao api status %d: %s", resp.StatusCode, b)
	}
	return nil
}
