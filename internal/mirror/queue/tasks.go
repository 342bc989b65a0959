// Package queue defines the asynq task that copies one approved circular into
// the offline archive.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// MirrorCircularTask is enqueued once per approved circular not yet archived.
	MirrorCircularTask = "circular:mirror"

	maxRetry = 5
)

// MirrorPayload tells the worker which circular to download and how to file it.
type MirrorPayload struct {
	CircularID string `json:"circular_id"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	FileName   string `json:"file_name"`
}

// Enqueuer is the part of *asynq.Client used here.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewMirrorTask serializes payload into a task.
func NewMirrorTask(payload MirrorPayload) (*asynq.Task, error) {
	if payload.CircularID == "" {
		return nil, errors.New("mirror payload needs a circular id")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(MirrorCircularTask, data), nil
}

// ParseMirrorPayload decodes the payload of a mirror task.
func ParseMirrorPayload(task *asynq.Task) (MirrorPayload, error) {
	var payload MirrorPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return MirrorPayload{}, fmt.Errorf("decode payload: %w", err)
	}
	if payload.CircularID == "" {
		return MirrorPayload{}, errors.New("mirror payload needs a circular id")
	}
	return payload, nil
}

// EnqueueMirror schedules a mirror job keyed by the circular id, so a second
// enqueue of the same circular while the first is still known to the queue is
// a no-op.
func EnqueueMirror(ctx context.Context, client Enqueuer, payload MirrorPayload) error {
	task, err := NewMirrorTask(payload)
	if err != nil {
		return err
	}
	_, err = client.EnqueueContext(ctx, task,
		asynq.TaskID(MirrorCircularTask+":"+payload.CircularID),
		asynq.MaxRetry(maxRetry),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("enqueue mirror task: %w", err)
	}
	return nil
}
