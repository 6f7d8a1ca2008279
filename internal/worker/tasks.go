package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/pkg/errors"

	"autism-screening/internal/schemas"
)

const (
	TypeClassifyMedia = "screening:classify_media"

	classifyMaxRetry = 3
	classifyTimeout  = 2 * time.Minute
)

// NewClassifyMediaTask builds the task that finishes a pending media
// screening.
func NewClassifyMediaTask(p schemas.ClassifyMediaPayload) (*asynq.Task, error) {
	if p.ScreeningID == "" {
		return nil, errors.New("screening id required")
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeClassifyMedia, b, asynq.MaxRetry(classifyMaxRetry), asynq.Timeout(classifyTimeout)), nil
}

// Enqueuer puts classify tasks on the queue for the API.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) EnqueueClassify(ctx context.Context, p schemas.ClassifyMediaPayload) error {
	task, err := NewClassifyMediaTask(p)
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task, asynq.TaskID(p.ScreeningID)); err != nil {
		return errors.Wrapf(err, "enqueue %s", TypeClassifyMedia)
	}
	return nil
}
