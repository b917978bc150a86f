package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/yuuki999/ai-line-bot/internal/domain"
	"github.com/yuuki999/ai-line-bot/internal/integrations/line"
)

const (
	signatureHeader = "x-line-signature"
	unknownUserName = "Unknown User"

	statusOK      = "ok"
	statusSkipped = "skipped"
	statusFailed  = "failed"
)

// Answerer runs the retrieval-augmented pipeline for one question.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

// ReplyDispatcher sends the generated text back via the messaging platform.
type ReplyDispatcher interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// ProfileGetter resolves a user id to a display name. Best-effort.
type ProfileGetter interface {
	GetProfile(ctx context.Context, userID string) (string, error)
}

// AuditLogger appends one exchange to the audit trail. Best-effort.
type AuditLogger interface {
	Record(ctx context.Context, rec domain.AuditRecord) error
}

// eventResult is one entry of the aggregate webhook response, in event
// arrival order.
type eventResult struct {
	ReplyToken string `json:"replyToken"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

type webhookResponse struct {
	Results []eventResult `json:"results"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler orchestrates one inbound webhook call: verify the raw-body
// signature, parse the event list, fan out per-event pipelines, and wait for
// all of them before responding. One event's failure never blocks siblings.
type Handler struct {
	answerer      Answerer
	replier       ReplyDispatcher
	profiles      ProfileGetter
	audit         AuditLogger
	channelSecret string
	callTimeout   time.Duration
	logger        *slog.Logger
}

type Option func(*Handler)

// WithCallTimeout bounds each external pipeline stage per event.
func WithCallTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.callTimeout = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// NewHandler creates a Handler. All four dependencies and the channel secret
// are required.
func NewHandler(answerer Answerer, replier ReplyDispatcher, profiles ProfileGetter, audit AuditLogger, channelSecret string, opts ...Option) (*Handler, error) {
	if answerer == nil {
		return nil, errors.New("handler: answerer must not be nil")
	}
	if replier == nil {
		return nil, errors.New("handler: reply dispatcher must not be nil")
	}
	if profiles == nil {
		return nil, errors.New("handler: profile getter must not be nil")
	}
	if audit == nil {
		return nil, errors.New("handler: audit logger must not be nil")
	}
	if strings.TrimSpace(channelSecret) == "" {
		return nil, errors.New("handler: channel secret must not be empty")
	}
	h := &Handler{
		answerer:      answerer,
		replier:       replier,
		profiles:      profiles,
		audit:         audit,
		channelSecret: channelSecret,
		callTimeout:   30 * time.Second,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle processes one API Gateway invocation.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	body, err := rawBody(req)
	if err != nil {
		h.logger.Error("failed to decode request body", "err", err)
		return respond(http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"}), nil
	}

	// The signature covers the body exactly as received; verification must
	// precede any JSON parsing.
	sig := headerValue(req.Headers, signatureHeader)
	if !line.ValidateSignature(body, h.channelSecret, sig) {
		h.logger.Warn("rejected webhook with invalid signature")
		return respond(http.StatusForbidden, errorResponse{Error: "invalid signature"}), nil
	}

	var webhook domain.WebhookBody
	if err := json.Unmarshal(body, &webhook); err != nil {
		h.logger.Error("failed to parse webhook body", "err", err)
		return respond(http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"}), nil
	}

	if len(webhook.Events) == 0 {
		// Normal case: the platform sends empty verification pings.
		h.logger.Info("webhook contained no events, skipping")
		return respond(http.StatusOK, messageResponse{Message: "no events to process"}), nil
	}

	results := make([]eventResult, len(webhook.Events))
	var wg sync.WaitGroup
	for i, ev := range webhook.Events {
		wg.Add(1)
		go func(i int, ev domain.InboundEvent) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					h.logger.Error("event processing panicked", "replyToken", ev.ReplyToken, "panic", r)
					results[i] = eventResult{ReplyToken: ev.ReplyToken, Status: statusFailed, Error: "internal error"}
				}
			}()
			results[i] = h.processEvent(ctx, ev)
		}(i, ev)
	}
	wg.Wait()

	return respond(http.StatusOK, webhookResponse{Results: results}), nil
}

// processEvent runs the full pipeline for one event: answer, reply, then the
// best-effort audit trail. The audit write happens regardless of the reply
// outcome; a delivery failure is still reported in the event result.
func (h *Handler) processEvent(ctx context.Context, ev domain.InboundEvent) eventResult {
	log := h.logger.With("replyToken", ev.ReplyToken, "userId", ev.Source.UserID)

	if !ev.IsTextMessage() {
		log.Info("skipping unsupported event", "eventType", ev.Type, "messageType", ev.Message.Type)
		return eventResult{ReplyToken: ev.ReplyToken, Status: statusSkipped}
	}

	question := ev.Message.Text

	answerCtx, cancelAnswer := context.WithTimeout(ctx, h.callTimeout)
	defer cancelAnswer()
	answer, err := h.answerer.Answer(answerCtx, question)
	if err != nil {
		log.Error("answer pipeline failed", "err", err)
		return eventResult{ReplyToken: ev.ReplyToken, Status: statusFailed, Error: err.Error()}
	}

	replyCtx, cancelReply := context.WithTimeout(ctx, h.callTimeout)
	defer cancelReply()
	replyErr := h.replier.Reply(replyCtx, ev.ReplyToken, answer)
	if replyErr != nil {
		// Reply tokens are single-use; the failure is terminal for this event.
		log.Error("reply dispatch failed", "err", replyErr)
	}

	h.recordAudit(ctx, log, ev, question, answer)

	if replyErr != nil {
		return eventResult{ReplyToken: ev.ReplyToken, Status: statusFailed, Error: replyErr.Error()}
	}
	return eventResult{ReplyToken: ev.ReplyToken, Status: statusOK}
}

// recordAudit appends the exchange to the audit trail. Both the profile
// lookup and the append are best-effort: failures are logged and discarded,
// never surfaced to the event result.
func (h *Handler) recordAudit(ctx context.Context, log *slog.Logger, ev domain.InboundEvent, question, answer string) {
	auditCtx, cancel := context.WithTimeout(ctx, h.callTimeout)
	defer cancel()

	userName := unknownUserName
	if name, err := h.profiles.GetProfile(auditCtx, ev.Source.UserID); err != nil {
		log.Warn("profile lookup failed", "err", err)
	} else {
		userName = name
	}

	rec := domain.AuditRecord{
		UserName: userName,
		UserID:   ev.Source.UserID,
		Question: question,
		Answer:   answer,
	}
	if err := h.audit.Record(auditCtx, rec); err != nil {
		log.Error("audit record failed", "err", err)
	}
}

// rawBody returns the request body bytes exactly as the platform sent them.
func rawBody(req events.APIGatewayProxyRequest) ([]byte, error) {
	if req.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(req.Body)
	}
	return []byte(req.Body), nil
}

// headerValue looks up a header case-insensitively; API Gateway does not
// normalize header casing.
func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func respond(status int, body any) events.APIGatewayProxyResponse {
	encoded, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"error":"Internal Server Error"}`,
		}
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(encoded),
	}
}
