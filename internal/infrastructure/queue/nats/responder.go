package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/groundedqa/internal/core/domain"
	"github.com/kirillkom/groundedqa/internal/core/ports"
)

const DefaultQueueGroup = "qa-workers"

// RequestObserver records worker-side request metrics.
type RequestObserver interface {
	ObserveRequest(subject, outcome string, duration time.Duration)
}

// Responder answers questions published on a subject with request/reply.
type Responder struct {
	conn           *nats.Conn
	subject        string
	queueGroup     string
	service        ports.QueryService
	requestTimeout time.Duration
	observer       RequestObserver
}

func NewResponder(conn *nats.Conn, subject string, service ports.QueryService, requestTimeout time.Duration) *Responder {
	return &Responder{
		conn:           conn,
		subject:        subject,
		queueGroup:     DefaultQueueGroup,
		service:        service,
		requestTimeout: requestTimeout,
	}
}

func (r *Responder) WithObserver(observer RequestObserver) *Responder {
	r.observer = observer
	return r
}

// Serve blocks until ctx is done, then drains the subscription so in-flight
// requests still get their reply.
func (r *Responder) Serve(ctx context.Context) error {
	sub, err := r.conn.QueueSubscribe(r.subject, r.queueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		start := time.Now()
		reply, outcome := r.handle(ctx, msg.Data)
		if msg.Reply != "" {
			if err := msg.Respond(reply); err != nil {
				slog.Warn("nats_reply_failed", "subject", r.subject, "error", err)
			}
		}
		if r.observer != nil {
			r.observer.ObserveRequest(r.subject, outcome, time.Since(start))
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := r.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	slog.Info("nats_responder_started", "subject", r.subject, "queue_group", r.queueGroup)

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := r.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// handle turns one request body into a reply body. Plain-text bodies are
// accepted as the question itself.
func (r *Responder) handle(ctx context.Context, data []byte) ([]byte, string) {
	question := decodeQuestion(data)

	reqCtx := ctx
	if r.requestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, r.requestTimeout)
		defer cancel()
	}

	result, err := r.service.Ask(reqCtx, question)
	if err != nil {
		failure := domain.DescribeFailure(err)
		slog.Warn("nats_request_failed", "subject", r.subject, "kind", failure.Kind, "error", err)
		body, _ := json.Marshal(failure)
		return body, string(failure.Kind)
	}

	body, err := json.Marshal(domain.NewAskResponse(result))
	if err != nil {
		failure := domain.Failure{Kind: domain.FailureInternal, Message: "internal error"}
		body, _ = json.Marshal(failure)
		return body, string(failure.Kind)
	}
	return body, "ok"
}

func decodeQuestion(data []byte) string {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var req domain.AskRequest
		if err := json.Unmarshal([]byte(trimmed), &req); err == nil {
			return req.Question
		}
		return ""
	}
	return trimmed
}
