package tasks

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-contacts/internal/auth"
	"github.com/hugh/go-contacts/pkg/crypto"
	"github.com/hugh/go-contacts/pkg/queue"
)

// TaskClient is the part of *asynq.Client the enqueuer needs.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer hands verification mail to the worker instead of sending it
// inside the request.
type Enqueuer struct {
	client    TaskClient
	encryptor *crypto.Encryptor
}

var _ auth.Notifier = (*Enqueuer)(nil)

func NewEnqueuer(client TaskClient, encryptor *crypto.Encryptor) *Enqueuer {
	return &Enqueuer{client: client, encryptor: encryptor}
}

func (e *Enqueuer) SendVerification(ctx context.Context, email, token string) error {
	task, err := NewVerificationEmailTask(e.encryptor, VerificationEmailPayload{
		Email: email,
		Token: token,
	})
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}

	if _, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(queue.Critical),
		asynq.MaxRetry(5),
	); err != nil {
		return fmt.Errorf("enqueueing verification email: %w", err)
	}
	return nil
}
