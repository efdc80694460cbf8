package middleware

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/application"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/infrastructure/signature"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/interfaces/rest"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/metrics"
)

// Signature buffers the body and rejects requests whose HMAC header is
// missing (400) or does not match (401). Handlers read the verified body
// from r.Body as usual.
func Signature(verifier *signature.Verifier, maxBodyBytes int64, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					rest.WriteError(w, application.NewPayloadTooLargeError(maxBodyBytes))
					return
				}
				rest.WriteError(w, application.NewInvalidInputError(domain.NewMalformedPayloadError(err)))
				return
			}

			header := r.Header.Get(signature.HeaderName)
			if header == "" {
				metrics.SignatureFailures.Inc()
				logger.Warn("webhook without signature header", "path", r.URL.Path)
				rest.WriteError(w, application.NewMissingSignatureError())
				return
			}

			if !verifier.Verify(body, header) {
				metrics.SignatureFailures.Inc()
				logger.Warn("webhook signature mismatch", "path", r.URL.Path, "body_bytes", len(body))
				rest.WriteError(w, application.NewInvalidSignatureError())
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}
