package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/application"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/config"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/metrics"
	"github.com/google/uuid"
)

const maxErrorBody = 4 << 10

var actionPaths = map[application.DispatchAction]string{
	application.ActionDeliverGiftCards:     "/purchase-gift-card",
	application.ActionMarkOrderFailed:      "/update-order",
	application.ActionUpdateSepaTransfer:   "/update-sepa-transfer",
	application.ActionUpdateCardThreeDS:    "/update-card-3ds",
	application.ActionUpdateCardActivation: "/update-card-activation",
}

// HTTPClient calls the downstream fulfillment server. It never retries;
// redelivery is driven by the processor when the webhook fails.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg config.FulfillmentConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (c *HTTPClient) Dispatch(ctx context.Context, action application.DispatchAction, payload any) (*application.DispatchResponse, error) {
	path, ok := actionPaths[action]
	if !ok {
		return nil, &application.DispatchError{Action: action, Err: fmt.Errorf("unknown dispatch action %q", action)}
	}

	start := time.Now()
	resp, err := sendRequest(c, ctx, action, c.baseURL+path, payload)
	metrics.DispatchDuration.WithLabelValues(string(action)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DispatchErrors.WithLabelValues(string(action)).Inc()
		return nil, err
	}
	return resp, nil
}

func sendRequest(c *HTTPClient, ctx context.Context, action application.DispatchAction, url string, reqBody any) (*application.DispatchResponse, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &application.DispatchError{Action: action, Err: fmt.Errorf("error marshalling json: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, &application.DispatchError{Action: action, Err: fmt.Errorf("error creating request: %w", err)}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.New().String())
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &application.DispatchError{Action: action, Err: fmt.Errorf("error making request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		dispatchErr := &application.DispatchError{
			Action:     action,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       string(body),
		}
		var errResp application.DispatchErrorResponse
		if json.Unmarshal(body, &errResp) == nil {
			dispatchErr.Code = errResp.Code
			if errResp.Message != "" {
				dispatchErr.Message = errResp.Message
			} else if errResp.Err != "" {
				dispatchErr.Message = errResp.Err
			}
		}
		return nil, dispatchErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &application.DispatchError{Action: action, StatusCode: resp.StatusCode, Err: fmt.Errorf("error reading response: %w", err)}
	}

	// The side effect has happened once we see a 2xx, so a non-JSON body is dropped rather than failed.
	out := &application.DispatchResponse{StatusCode: resp.StatusCode}
	if json.Valid(body) {
		out.Body = json.RawMessage(body)
	}

	return out, nil
}
