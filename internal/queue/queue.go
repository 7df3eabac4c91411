// Package queue serializes outbound message delivery per user. Each user gets
// one FIFO of tasks drained by at most one loop at a time, with a fixed pacing
// delay between sends so bulk traffic does not look automated to the
// transport's abuse detection. Different users' queues drain independently.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/delta-events/whatsapp-service/internal/logger"
	"github.com/delta-events/whatsapp-service/internal/transport"
)

const sendTimeout = 30 * time.Second

// ClientSource resolves the live transport handle for a user at send time.
// The session manager implements it.
type ClientSource interface {
	Client(userID string) (transport.Handle, bool)
}

// Task is one pending outbound message.
type Task struct {
	Recipient string
	Message   transport.Message
	outcome   *Outcome
}

type userQueue struct {
	tasks    []*Task
	draining bool
}

type Manager struct {
	mu      sync.Mutex
	queues  map[string]*userQueue
	clients ClientSource
	delay   time.Duration
}

func NewManager(clients ClientSource, delay time.Duration) *Manager {
	return &Manager{
		queues:  make(map[string]*userQueue),
		clients: clients,
		delay:   delay,
	}
}

// Delay returns the configured pacing delay between two sends of one user.
func (m *Manager) Delay() time.Duration {
	return m.delay
}

// EstimatedDrainSeconds is the rough wall time to drain n freshly enqueued
// tasks, as reported by the bulk endpoint.
func (m *Manager) EstimatedDrainSeconds(n int) int {
	return n * int(m.delay.Seconds())
}

// Enqueue appends a task to the user's queue and starts a drain loop when
// none is active. The returned outcome resolves asynchronously. Tasks are
// never retried and never cancelled: a logout does not retract queued tasks,
// they fail one by one at send time once the handle is gone.
func (m *Manager) Enqueue(userID, recipient string, msg transport.Message) *Outcome {
	task := &Task{
		Recipient: recipient,
		Message:   msg,
		outcome:   newOutcome(),
	}

	m.mu.Lock()
	q, ok := m.queues[userID]
	if !ok {
		q = &userQueue{}
		m.queues[userID] = q
	}
	q.tasks = append(q.tasks, task)
	start := !q.draining
	if start {
		q.draining = true
	}
	m.mu.Unlock()

	if start {
		go m.drain(userID, q)
	}
	return task.outcome
}

// SendBulk enqueues one task per recipient. Outcomes are aggregated without
// short-circuiting: one recipient failing leaves the others untouched.
func (m *Manager) SendBulk(userID string, recipients []string, msg transport.Message) []*Outcome {
	outcomes := make([]*Outcome, 0, len(recipients))
	for _, recipient := range recipients {
		outcomes = append(outcomes, m.Enqueue(userID, recipient, msg))
	}
	return outcomes
}

// drain pops and executes tasks until the queue empties, pausing between
// consecutive sends. Exactly one drain loop runs per user; the flag is
// cleared under the lock that also sees the queue empty.
func (m *Manager) drain(userID string, q *userQueue) {
	for {
		m.mu.Lock()
		if len(q.tasks) == 0 {
			q.draining = false
			m.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		m.mu.Unlock()

		m.process(userID, task)

		m.mu.Lock()
		remaining := len(q.tasks)
		m.mu.Unlock()
		if remaining > 0 {
			logger.DebugF("[%s] Pacing delay %v before next message", userID, m.delay)
			time.Sleep(m.delay)
		}
	}
}

// process executes one task. Failures reject only this task's outcome; the
// loop always moves on to the next task.
func (m *Manager) process(userID string, task *Task) {
	handle, ok := m.clients.Client(userID)
	if !ok {
		logger.WarnF("[%s] Dropping task for %s: not connected", userID, task.Recipient)
		task.outcome.reject(fmt.Errorf("%w: user %s", transport.ErrNotConnected, userID))
		return
	}

	recipient := transport.NormalizeRecipient(task.Recipient)
	if recipient == "" {
		task.outcome.reject(fmt.Errorf("%w: %q", transport.ErrInvalidRecipient, task.Recipient))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	messageID, err := handle.Send(ctx, recipient, task.Message)
	if err != nil {
		logger.ErrorF("[%s] Fail to send message to %s, details: %v", userID, recipient, err)
		task.outcome.reject(err)
		return
	}

	logger.DebugF("[%s] Message sent to %s, id=%s", userID, recipient, messageID)
	task.outcome.resolve(messageID)
}
