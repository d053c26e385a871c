package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/groundedqa/internal/core/domain"
	"github.com/kirillkom/groundedqa/internal/infrastructure/resilience"
)

// Requester asks a remote worker over NATS request/reply.
type Requester struct {
	conn     *nats.Conn
	subject  string
	timeout  time.Duration
	executor *resilience.Executor
}

func NewRequester(conn *nats.Conn, subject string, timeout time.Duration, executor *resilience.Executor) *Requester {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Requester{conn: conn, subject: subject, timeout: timeout, executor: executor}
}

// Ask returns the decoded reply. A worker-side failure is returned as a
// *domain.Failure error.
func (r *Requester) Ask(ctx context.Context, question string) (*domain.AskResponse, error) {
	payload, err := json.Marshal(domain.AskRequest{Question: question})
	if err != nil {
		return nil, fmt.Errorf("marshal ask request: %w", err)
	}

	var msg *nats.Msg
	call := func(ctx context.Context) error {
		reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		reply, err := r.conn.RequestWithContext(reqCtx, r.subject, payload)
		if err != nil {
			return fmt.Errorf("nats request: %w", err)
		}
		msg = reply
		return nil
	}

	if r.executor != nil {
		err = r.executor.Execute(ctx, "nats.request", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded(err)
	}
	return decodeReply(msg.Data)
}

func decodeReply(data []byte) (*domain.AskResponse, error) {
	var reply domain.AskReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("decode ask reply: %w", err)
	}
	if reply.Failed() {
		return nil, &domain.Failure{Kind: reply.Kind, Message: reply.Error}
	}
	return &reply.AskResponse, nil
}
