package speech

import "context"

// Task is the pending result of one capture session.
type Task struct {
	// Language is the language the session was started with.
	Language string

	done       chan struct{}
	transcript Transcript
	err        error
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

func (t *Task) resolve(transcript Transcript, err error) {
	t.transcript = transcript
	t.err = err
	close(t.done)
}

// Done is closed once the session has resolved.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the session resolves. Cancelling ctx abandons the wait,
// not the session.
func (t *Task) Wait(ctx context.Context) (Transcript, error) {
	select {
	case <-t.done:
		return t.transcript, t.err
	case <-ctx.Done():
		return Transcript{}, ctx.Err()
	}
}
