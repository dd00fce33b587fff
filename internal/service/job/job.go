package job

import (
	"fmt"
	"sync/atomic"
)

// Generator hands out job ids of the form "<chatID>-<n>".
// The counter is process-wide, so ids are unique across chats.
type Generator struct {
	counter uint64
}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Next(chatID int64) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%d-%d", chatID, n)
}
