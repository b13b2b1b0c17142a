// Package handler adapts Lambda events to the usecase services.
package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/aws/aws-lambda-go/events"

	"agrinudge/internal/domain"
	"agrinudge/internal/usecase"
)

const signatureHeader = "x-hub-signature-256"

// SecretGetter resolves the webhook signing secret.
type SecretGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// WebhookHandler is the Ingestion Gateway entrypoint: GET verification and
// POST message intake. It acknowledges the channel fast and never blocks on
// downstream processing.
type WebhookHandler struct {
	ingest      *usecase.IngestService
	verifyToken string
	getter      SecretGetter
	secretParam string

	secretOnce sync.Once
	secret     string
	secretErr  error
}

// NewWebhookHandler creates the gateway handler.
func NewWebhookHandler(ingest *usecase.IngestService, getter SecretGetter, secretParam, verifyToken string) (*WebhookHandler, error) {
	if ingest == nil {
		return nil, errors.New("handler: ingest service must not be nil")
	}
	if getter == nil {
		return nil, errors.New("handler: secret getter must not be nil")
	}
	if strings.TrimSpace(secretParam) == "" || strings.TrimSpace(verifyToken) == "" {
		return nil, errors.New("handler: secret parameter and verify token must not be empty")
	}
	return &WebhookHandler{ingest: ingest, verifyToken: verifyToken, getter: getter, secretParam: secretParam}, nil
}

// webhookPayload is the channel's event envelope walk: entry → changes →
// value → messages.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []json.RawMessage `json:"messages"`
				Metadata json.RawMessage   `json:"metadata"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

func (h *WebhookHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch req.HTTPMethod {
	case "GET":
		return h.handleVerification(req), nil
	case "POST":
		return h.handleMessages(ctx, req), nil
	default:
		return jsonResponse(405, map[string]string{"error": "Method not allowed"}), nil
	}
}

func (h *WebhookHandler) handleVerification(req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	params := req.QueryStringParameters
	if params["hub.mode"] == "subscribe" && params["hub.verify_token"] == h.verifyToken {
		return events.APIGatewayProxyResponse{StatusCode: 200, Body: params["hub.challenge"]}
	}
	return jsonResponse(403, map[string]string{"error": "Verification failed"})
}

func (h *WebhookHandler) handleMessages(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	body := req.Body
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return jsonResponse(400, map[string]string{"error": "Invalid body encoding"})
		}
		body = string(decoded)
	}

	if !h.verifySignature(ctx, body, headerValue(req.Headers, signatureHeader)) {
		return jsonResponse(403, map[string]string{"error": "Invalid signature"})
	}

	var payload webhookPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return jsonResponse(400, map[string]string{"error": "Invalid JSON"})
	}

	var messages []domain.InboundMessage
	var metadata json.RawMessage
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if metadata == nil {
				metadata = change.Value.Metadata
			}
			for _, raw := range change.Value.Messages {
				m, err := domain.ParseInboundMessage(raw)
				if err != nil {
					// Unrecognized shapes are rejected at the boundary.
					slog.Warn("skipping unparseable message", "err", err)
					continue
				}
				messages = append(messages, m)
			}
		}
	}

	report := h.ingest.HandleEvent(ctx, messages, metadata)
	slog.Info("webhook event handled",
		"accepted", report.Accepted,
		"duplicates", report.Duplicates,
		"bypassed", report.Bypassed,
		"voice", report.Voice,
		"failed", report.Failed,
	)
	return jsonResponse(200, map[string]string{"status": "queued"})
}

// verifySignature checks the channel's HMAC-SHA256 header in constant time.
func (h *WebhookHandler) verifySignature(ctx context.Context, body, signature string) bool {
	h.secretOnce.Do(func() {
		h.secret, h.secretErr = h.getter.GetParameter(ctx, h.secretParam)
	})
	if h.secretErr != nil {
		slog.Error("webhook secret unavailable", "err", h.secretErr)
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write([]byte(body))
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func jsonResponse(status int, body any) events.APIGatewayProxyResponse {
	encoded, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: 500}
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       string(encoded),
	}
}
