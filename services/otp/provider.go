package otp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DefaultProviderTimeout bounds outbound calls to the SMS provider.
const DefaultProviderTimeout = 10 * time.Second

// Provider delivers one-time codes and verifies them against a session
// reference issued at send time.
type Provider interface {
	SendOTP(ctx context.Context, phone string) (string, error)
	VerifyOTP(ctx context.Context, sessionRef, code string) error
}

// APIProvider talks to the upstream SMS OTP API. The API issues a session
// reference on send; verification is by session reference, not phone.
type APIProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAPIProvider creates a client for the upstream OTP API.
func NewAPIProvider(baseURL, apiKey string) *APIProvider {
	return &APIProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultProviderTimeout,
		},
	}
}

type providerResponse struct {
	Status  string `json:"Status"`
	Details string `json:"Details"`
}

// SendOTP asks the provider to deliver a code and returns the session
// reference to verify against.
func (p *APIProvider) SendOTP(ctx context.Context, phone string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/SMS/%s/AUTOGEN", p.baseURL, p.apiKey, url.PathEscape(phone))

	res, err := p.call(ctx, endpoint)
	if err != nil {
		return "", err
	}
	if res.Status != "Success" {
		return "", fmt.Errorf("otp provider rejected send: %s", res.Details)
	}
	return res.Details, nil
}

// VerifyOTP checks the code against the session reference.
func (p *APIProvider) VerifyOTP(ctx context.Context, sessionRef, code string) error {
	endpoint := fmt.Sprintf("%s/%s/SMS/VERIFY/%s/%s",
		p.baseURL, p.apiKey, url.PathEscape(sessionRef), url.PathEscape(code))

	res, err := p.call(ctx, endpoint)
	if err != nil {
		return err
	}
	if res.Status != "Success" {
		return ErrInvalidOTP
	}
	return nil
}

func (p *APIProvider) call(ctx context.Context, endpoint string) (*providerResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("otp provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("otp provider returned status %d", resp.StatusCode)
	}

	var res providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("otp provider response decode failed: %w", err)
	}
	return &res, nil
}
