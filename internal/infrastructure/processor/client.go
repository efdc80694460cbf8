package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/application"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/config"
)

// errorResponse is the processor's documented error envelope.
type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a client for the environment's processor endpoint.
func NewClient(cfg config.ProcessorConfig, env string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.ActiveBaseURL(env), "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (c *HTTPClient) GetPayment(ctx context.Context, paymentID string) (*application.ProcessorPayment, error) {
	u := fmt.Sprintf("%s/payments/%s", c.baseURL, url.PathEscape(paymentID))
	return sendRequest[application.ProcessorPayment](c, ctx, http.MethodGet, u)
}

func sendRequest[Resp any](c *HTTPClient, ctx context.Context, method, url string) (*Resp, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return nil, &application.ProcessorError{
				Code:       codeForStatus(resp.StatusCode),
				Message:    strings.TrimSpace(string(body)),
				StatusCode: resp.StatusCode,
			}
		}
		code := application.ParseProcessorErrorCode(firstNonEmpty(errResp.Code, errResp.Error))
		if code == application.ProcessorUnknownError {
			code = codeForStatus(resp.StatusCode)
		}
		return nil, &application.ProcessorError{
			Code:       code,
			Message:    firstNonEmpty(errResp.Message, errResp.Error),
			StatusCode: resp.StatusCode,
		}
	}

	var out Resp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &out, nil
}

// codeForStatus infers a code when the processor omits one.
func codeForStatus(status int) application.ProcessorErrorCode {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return application.ProcessorInvalidAPIKey
	case status == http.StatusNotFound:
		return application.ProcessorPaymentNotFound
	case status == http.StatusTooManyRequests:
		return application.ProcessorRateLimited
	case status >= 500:
		return application.ProcessorInternalError
	case status >= 400:
		return application.ProcessorInvalidRequest
	}
	return application.ProcessorUnknownError
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
