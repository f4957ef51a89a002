// internal/match/queue.go
package match

import "sync"

// Command is one unit of work for a match: a raw game payload from a seat,
// or a notice that the seat's player is gone.
type Command struct {
	Seat    int
	Payload []byte
	Leave   bool
}

// CommandQueue is an unbounded FIFO safe for many producers and one consumer.
type CommandQueue struct {
	mu    sync.Mutex
	items []Command
}

// Push appends cmd. It never blocks on the consumer.
func (q *CommandQueue) Push(cmd Command) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, cmd)
}

// Drain returns everything queued so far in arrival order and empties the queue.
func (q *CommandQueue) Drain() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
