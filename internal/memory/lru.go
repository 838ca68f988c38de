package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/sozercan/cheatsheet-ai/internal/llm"
)

// LRU holds threads in process memory. The least recently used thread is
// evicted when size is reached and idle threads expire after ttl.
type LRU struct {
	mu      sync.Mutex
	threads *expirable.LRU[string, []llm.Message]
}

func NewLRU(size int, ttl time.Duration) *LRU {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &LRU{threads: expirable.NewLRU[string, []llm.Message](size, nil, ttl)}
}

func (l *LRU) History(_ context.Context, threadID string) ([]llm.Message, error) {
	msgs, ok := l.threads.Get(threadID)
	if !ok {
		return nil, nil
	}
	out := make([]llm.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (l *LRU) Append(_ context.Context, threadID string, msgs ...llm.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev, _ := l.threads.Get(threadID)
	next := make([]llm.Message, 0, len(prev)+len(msgs))
	next = append(next, prev...)
	next = append(next, msgs...)
	l.threads.Add(threadID, capMessages(next))
	return nil
}

func (l *LRU) Delete(_ context.Context, threadID string) error {
	l.threads.Remove(threadID)
	return nil
}

func (l *LRU) Len() int {
	return l.threads.Len()
}
