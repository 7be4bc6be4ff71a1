package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dwizi/taskify/internal/clienterr"
	"github.com/dwizi/taskify/internal/config"
	"github.com/dwizi/taskify/internal/logging"
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

type ActivationStatus struct {
	ActivationStatus      string `json:"activationStatus"`
	SystemID              string `json:"systemId"`
	Success               bool   `json:"success"`
	DeviceActivation      bool   `json:"deviceActivation"`
	RequiresActivationKey bool   `json:"requiresActivationKey"`
	Message               string `json:"message"`
}

type SystemInfo struct {
	SystemID string `json:"systemId"`
}

type ActivationRequest struct {
	SystemID      string `json:"systemId"`
	ActivationKey string `json:"activationKey"`
	AppName       string `json:"appName"`
}

type ActivationResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	DeviceActivation bool   `json:"deviceActivation"`
	ActivationStatus string `json:"activationStatus"`
	SystemID         string `json:"systemId"`
}

type BrowserStatus struct {
	Success     bool   `json:"success"`
	BrowserOpen bool   `json:"browser_open"`
	LoggedIn    bool   `json:"logged_in"`
	Message     string `json:"message"`
	CurrentURL  string `json:"current_url"`
}

type StartBrowserResponse struct {
	Success       bool   `json:"success"`
	ReusedSession bool   `json:"reused_session"`
	Message       string `json:"message"`
	Status        string `json:"status"`
}

type RunAutomationResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ProcessedCount *int   `json:"processed_count"`
	Status         string `json:"status"`
	Error          string `json:"error"`
}

type CloseBrowserResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func New(cfg config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		http: &http.Client{
			Timeout: time.Duration(cfg.HTTPTimeoutSec) * time.Second,
		},
		logger: logger,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) CheckActivation(ctx context.Context) (ActivationStatus, error) {
	var response ActivationStatus
	if err := c.call(ctx, "check activation", http.MethodGet, "/check-activation", nil, &response); err != nil {
		return ActivationStatus{}, err
	}
	return response, nil
}

func (c *Client) SystemInfo(ctx context.Context) (SystemInfo, error) {
	var response SystemInfo
	if err := c.call(ctx, "system info", http.MethodGet, "/system-info", nil, &response); err != nil {
		return SystemInfo{}, err
	}
	return response, nil
}

func (c *Client) ActivateDevice(ctx context.Context, input ActivationRequest) (ActivationResponse, error) {
	input.SystemID = strings.TrimSpace(input.SystemID)
	input.ActivationKey = strings.TrimSpace(input.ActivationKey)
	var response ActivationResponse
	if err := c.call(ctx, "activate device", http.MethodPost, "/activate-device", input, &response); err != nil {
		return ActivationResponse{}, err
	}
	return response, nil
}

// Logout only reports the HTTP outcome; the response body is ignored.
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, "logout", http.MethodPost, "/logout", nil, nil)
}

func (c *Client) CheckBrowserStatus(ctx context.Context) (BrowserStatus, error) {
	var response BrowserStatus
	if err := c.call(ctx, "check browser status", http.MethodGet, "/check-browser-status", nil, &response); err != nil {
		return BrowserStatus{}, err
	}
	return response, nil
}

func (c *Client) StartBrowser(ctx context.Context) (StartBrowserResponse, error) {
	var response StartBrowserResponse
	if err := c.call(ctx, "start browser", http.MethodPost, "/start-browser", nil, &response); err != nil {
		return StartBrowserResponse{}, err
	}
	return response, nil
}

func (c *Client) RunAutomation(ctx context.Context) (RunAutomationResponse, error) {
	var response RunAutomationResponse
	if err := c.call(ctx, "run automation", http.MethodPost, "/run-automation", nil, &response); err != nil {
		return RunAutomationResponse{}, err
	}
	return response, nil
}

func (c *Client) CloseBrowser(ctx context.Context) (CloseBrowserResponse, error) {
	var response CloseBrowserResponse
	if err := c.call(ctx, "close browser", http.MethodPost, "/close-browser", nil, &response); err != nil {
		return CloseBrowserResponse{}, err
	}
	return response, nil
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var response Health
	if err := c.call(ctx, "health", http.MethodGet, "/health", nil, &response); err != nil {
		return Health{}, err
	}
	return response, nil
}

func (c *Client) call(ctx context.Context, op, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		requestBody, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(requestBody)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	ctx = logging.WithRequestID(ctx, requestID)
	started := time.Now()
	err = c.doJSON(op, req, out)
	if err != nil {
		c.logger.WarnContext(ctx, "api call failed", "op", op, "method", method, "path", path, "duration_ms", time.Since(started).Milliseconds(), "error", err)
		return err
	}
	c.logger.DebugContext(ctx, "api call", "op", op, "method", method, "path", path, "duration_ms", time.Since(started).Milliseconds())
	return nil
}

func (c *Client) doJSON(op string, req *http.Request, out any) error {
	res, err := c.http.Do(req)
	if err != nil {
		return clienterr.Transport(op, err)
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		var apiError struct {
			Error   string `json:"error"`
			Detail  any    `json:"detail"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(res.Body).Decode(&apiError)
		return clienterr.Server(op, res.StatusCode, errorText(apiError.Error, apiError.Detail, apiError.Message, res.Status))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return clienterr.Transport(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func errorText(errText string, detail any, message, status string) string {
	if text := strings.TrimSpace(errText); text != "" {
		return text
	}
	if text, ok := detail.(string); ok && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text)
	}
	if text := strings.TrimSpace(message); text != "" {
		return text
	}
	return status
}
