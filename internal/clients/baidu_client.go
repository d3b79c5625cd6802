/**
 * Baidu OCR Client - Remote recognition provider transport
 *
 * Handles the credential exchange and the per-document-type recognition
 * endpoints. The provider signals failures through an error_code /
 * error_msg pair inside a 200 response; retry policy for those codes
 * lives in the engine adapter, not here.
 */

package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/henryLiu9527/invoice-ocr/internal/logging"
)

// Provider error codes for credential expiry and QPS limits.
const (
	CodeTokenInvalid  = 110
	CodeTokenExpired  = 111
	CodeQPSLimit      = 17
	CodeDailyLimit    = 18
	CodeTransportFail = -1
)

// tokenExpirySafetyMargin is subtracted from the declared token lifetime
// so a token is never used right at its expiry boundary.
const tokenExpirySafetyMargin = time.Hour

// BaiduClient handles communication with the Baidu OCR service
type BaiduClient struct {
	apiKey      string
	secretKey   string
	tokenURL    string
	endpointURL string
	httpClient  *http.Client
	logger      *logging.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// RecognizeResponse is the raw provider payload for one recognition call.
// ErrorCode is zero on success.
type RecognizeResponse struct {
	ErrorCode int
	ErrorMsg  string
	Payload   map[string]interface{}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// NewBaiduClient creates a new Baidu OCR client
func NewBaiduClient(apiKey, secretKey, tokenURL, endpointURL string) *BaiduClient {
	return &BaiduClient{
		apiKey:      apiKey,
		secretKey:   secretKey,
		tokenURL:    tokenURL,
		endpointURL: strings.TrimRight(endpointURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logging.NewLogger("BaiduClient"),
	}
}

// AccessToken returns the cached bearer credential, fetching a new one
// from the credential-exchange endpoint if none is cached or the cached
// one is past its expiry (minus the safety margin).
func (c *BaiduClient) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	c.logger.Info("Requesting new access token")

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.apiKey},
		"client_secret": {c.secretKey},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}

	if tok.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access token")
	}

	expiresIn := time.Duration(tok.ExpiresIn) * time.Second
	if expiresIn <= tokenExpirySafetyMargin {
		// Short-lived token, keep half of its lifetime instead
		expiresIn = expiresIn / 2
	} else {
		expiresIn -= tokenExpirySafetyMargin
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(expiresIn)

	c.logger.Info("Access token obtained", "validFor", expiresIn.String())
	return c.accessToken, nil
}

// InvalidateToken discards the cached credential so the next call
// fetches a fresh one. Called by the adapter on credential-expired
// provider codes.
func (c *BaiduClient) InvalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = ""
	c.tokenExpiry = time.Time{}
}

// Recognize posts one base64-encoded image to the named recognition
// endpoint and returns the raw provider payload. The endpoint name is
// one of the provider's document-type variants (vat_invoice, invoice,
// receipt, form, multiple_invoice, accurate_basic).
func (c *BaiduClient) Recognize(ctx context.Context, endpoint, imageBase64 string, extra url.Values) (*RecognizeResponse, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	requestURL := fmt.Sprintf("%s/%s?access_token=%s", c.endpointURL, endpoint, url.QueryEscape(token))

	form := url.Values{"image": {imageBase64}}
	for k, vs := range extra {
		for _, v := range vs {
			form.Add(k, v)
		}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", requestURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create recognition request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recognition request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read recognition response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recognition endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse recognition response: %w", err)
	}

	result := &RecognizeResponse{Payload: payload}
	if rawCode, ok := payload["error_code"]; ok {
		if code, ok := rawCode.(float64); ok {
			result.ErrorCode = int(code)
		}
		if msg, ok := payload["error_msg"].(string); ok {
			result.ErrorMsg = msg
		}
		if result.ErrorMsg == "" {
			result.ErrorMsg = "unknown provider error"
		}
	}

	return result, nil
}
