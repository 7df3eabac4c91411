package queue

import "context"

// Outcome is the two-way promise returned by Enqueue: fulfilled with the
// transport delivery identifier or rejected with an error, exactly once.
type Outcome struct {
	done      chan struct{}
	messageID string
	err       error
}

func newOutcome() *Outcome {
	return &Outcome{done: make(chan struct{})}
}

// Done is closed once the task reached a terminal state.
func (o *Outcome) Done() <-chan struct{} {
	return o.done
}

// Result is only valid after Done is closed.
func (o *Outcome) Result() (string, error) {
	return o.messageID, o.err
}

// Wait blocks until the task resolves or the context expires.
func (o *Outcome) Wait(ctx context.Context) (string, error) {
	select {
	case <-o.done:
		return o.messageID, o.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (o *Outcome) resolve(messageID string) {
	o.messageID = messageID
	close(o.done)
}

func (o *Outcome) reject(err error) {
	o.err = err
	close(o.done)
}
