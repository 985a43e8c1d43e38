// Package providers holds one adapter per external messaging API. Every
// adapter speaks its own wire protocol but reports through DeliveryResult,
// so the delivery service never sees vendor specifics.
package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"footballhub/internal/models"
)

// ErrorKind classifies a failed send for the orchestrator.
type ErrorKind string

const (
	ErrorNone          ErrorKind = ""
	ErrorConfiguration ErrorKind = "configuration_error"
	ErrorTransient     ErrorKind = "transient_provider_error"
)

const (
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

var ErrNotConfigured = errors.New("provider not configured")

// Message is the uniform send input.
type Message struct {
	PhoneKey    string
	Code        string
	DisplayName string
	Lang        string
	TTL         time.Duration
}

type DeliveryResult struct {
	OK                bool
	ProviderMessageID string
	ErrorKind         ErrorKind
	Err               error
}

type Provider interface {
	Name() string
	Channel() models.Channel
	// Check validates credentials without touching the network.
	Check() error
	Send(ctx context.Context, msg Message) DeliveryResult
}

func delivered(id string) DeliveryResult {
	return DeliveryResult{OK: true, ProviderMessageID: id}
}

func misconfigured(err error) DeliveryResult {
	return DeliveryResult{ErrorKind: ErrorConfiguration, Err: err}
}

func transient(format string, args ...any) DeliveryResult {
	return DeliveryResult{ErrorKind: ErrorTransient, Err: fmt.Errorf(format, args...)}
}

func missing(provider string, fields ...string) error {
	return fmt.Errorf("%w: %s: missing %v", ErrNotConfigured, provider, fields)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// do executes req and returns the status and (bounded) body.
func do(client *http.Client, req *http.Request) (int, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func is2xx(status int) bool { return status >= 200 && status < 300 }

func truncate(b []byte) string {
	const n = 256
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
