package browser

import (
	"sync"

	"route-auditor/pkg/types"
)

// ConsoleBuffer collects console messages delivered by the browser's event
// goroutine until the owner drains them.
type ConsoleBuffer struct {
	mu   sync.Mutex
	msgs []types.ConsoleMessage
}

// NewConsoleBuffer returns an empty buffer.
func NewConsoleBuffer() *ConsoleBuffer {
	return &ConsoleBuffer{}
}

// Push appends a message.
func (b *ConsoleBuffer) Push(msg types.ConsoleMessage) {
	b.mu.Lock()
	b.msgs = append(b.msgs, msg)
	b.mu.Unlock()
}

// Drain returns every buffered message in arrival order and resets the buffer.
func (b *ConsoleBuffer) Drain() []types.ConsoleMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.msgs
	b.msgs = nil
	return out
}

// Len reports how many messages are waiting.
func (b *ConsoleBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.msgs)
}
