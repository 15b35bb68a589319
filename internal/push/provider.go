package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Provider is the outbound push service. Subscriber ids are issued by
// the provider asynchronously after a device registers, which is why
// SubscriberID can legitimately return empty with no error.
type Provider interface {
	Ready() bool
	RegisterDevice(ctx context.Context, deviceToken, platform string) error
	SubscriberID(ctx context.Context, deviceToken string) (string, error)
	Send(ctx context.Context, subscriberIDs []string, title, message, link string) error
}

// HTTPProvider talks to the push provider's REST API.
type HTTPProvider struct {
	baseURL string
	appID   string
	apiKey  string
	client  *http.Client
}

func NewHTTPProvider(baseURL, appID, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		appID:   appID,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *HTTPProvider) Ready() bool {
	return p.baseURL != "" && p.appID != ""
}

type registerDeviceRequest struct {
	AppID       string `json:"app_id"`
	DeviceToken string `json:"device_token"`
	Platform    string `json:"platform"`
}

type subscriberResponse struct {
	SubscriberID string `json:"subscriber_id"`
}

type sendRequest struct {
	AppID         string   `json:"app_id"`
	SubscriberIDs []string `json:"subscriber_ids"`
	Title         string   `json:"title"`
	Message       string   `json:"message"`
	Link          string   `json:"link,omitempty"`
}

func (p *HTTPProvider) RegisterDevice(ctx context.Context, deviceToken, platform string) error {
	payload := registerDeviceRequest{
		AppID:       p.appID,
		DeviceToken: deviceToken,
		Platform:    platform,
	}

	return p.post(ctx, "/devices", payload)
}

func (p *HTTPProvider) SubscriberID(ctx context.Context, deviceToken string) (string, error) {
	url := fmt.Sprintf("%s/devices/%s?app_id=%s", p.baseURL, deviceToken, p.appID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	p.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to query push provider: %w", err)
	}
	defer resp.Body.Close()

	// The provider has not issued an id yet; not an error.
	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("push provider returned status %d", resp.StatusCode)
	}

	var body subscriberResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode provider response: %w", err)
	}

	return body.SubscriberID, nil
}

func (p *HTTPProvider) Send(ctx context.Context, subscriberIDs []string, title, message, link string) error {
	if len(subscriberIDs) == 0 {
		return nil
	}

	payload := sendRequest{
		AppID:         p.appID,
		SubscriberIDs: subscriberIDs,
		Title:         title,
		Message:       message,
		Link:          link,
	}

	return p.post(ctx, "/notifications", payload)
}

func (p *HTTPProvider) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal provider payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	p.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call push provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("push provider returned status %d", resp.StatusCode)
	}

	return nil
}

func (p *HTTPProvider) authorize(req *http.Request) {
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
}
