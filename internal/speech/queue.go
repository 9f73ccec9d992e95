package speech

import (
	"context"
	"errors"
)

// ErrQueueClosed reports a push or pull on a closed queue.
var ErrQueueClosed = errors.New("speech: queue closed")

// Queue hands utterances from the capture side to the dispatcher loop with
// bounded buffering. Push blocks when the loop falls behind.
type Queue struct {
	ch     chan string
	closed chan struct{}
}

func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{ch: make(chan string, size), closed: make(chan struct{})}
}

func (q *Queue) Push(ctx context.Context, utterance string) error {
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}
	select {
	case q.ch <- utterance:
		return nil
	case <-q.closed:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Pull(ctx context.Context) (string, error) {
	select {
	case utterance := <-q.ch:
		return utterance, nil
	case <-q.closed:
		// Drain what was pushed before the close.
		select {
		case utterance := <-q.ch:
			return utterance, nil
		default:
			return "", ErrQueueClosed
		}
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *Queue) Close() {
	select {
	case <-q.closed:
	default:
		close(q.closed)
	}
}
