package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrCaptchaFailed is returned when a reCAPTCHA token is missing or rejected
var ErrCaptchaFailed = errors.New("captcha verification failed")

// CaptchaVerifier checks a client-supplied challenge token
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Recaptcha verifies tokens against Google's siteverify endpoint
type Recaptcha struct {
	secret string
	url    string
	client *http.Client
}

// NewRecaptcha returns a nil verifier when secret is empty, which disables
// verification
func NewRecaptcha(secret, verifyURL string) CaptchaVerifier {
	if secret == "" {
		return nil
	}
	return &Recaptcha{
		secret: secret,
		url:    verifyURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify posts the token and reports ErrCaptchaFailed unless Google accepts it
func (r *Recaptcha) Verify(ctx context.Context, token, remoteIP string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: missing token", ErrCaptchaFailed)
	}

	form := url.Values{
		"secret":   {r.secret},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach captcha service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("captcha service returned %d", resp.StatusCode)
	}

	var body siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode captcha response: %w", err)
	}
	if !body.Success {
		return fmt.Errorf("%w: %s", ErrCaptchaFailed, strings.Join(body.ErrorCodes, ","))
	}
	return nil
}
