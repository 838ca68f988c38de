// Package memory keeps conversation history per thread id so that follow-up
// questions on the same thread see the earlier turns.
package memory

import (
	"context"
	"fmt"

	"github.com/sozercan/cheatsheet-ai/internal/config"
	"github.com/sozercan/cheatsheet-ai/internal/llm"
)

// Store is an abstraction for thread history persistence.
type Store interface {
	// History returns the turns recorded for threadID, oldest first.
	History(ctx context.Context, threadID string) ([]llm.Message, error)
	Append(ctx context.Context, threadID string, msgs ...llm.Message) error
	Delete(ctx context.Context, threadID string) error
}

// maxMessages bounds a single thread regardless of backend.
const maxMessages = 200

func New(cfg config.MemoryConfig) (Store, error) {
	switch cfg.Backend {
	case "none":
		return Nop{}, nil
	case "memory", "":
		return NewLRU(cfg.Size, cfg.TTL), nil
	case "redis":
		return NewRedis(cfg)
	default:
		return nil, fmt.Errorf("unknown memory backend %q", cfg.Backend)
	}
}

// Nop forgets everything; every request starts a fresh conversation.
type Nop struct{}

func (Nop) History(context.Context, string) ([]llm.Message, error) { return nil, nil }
func (Nop) Append(context.Context, string, ...llm.Message) error    { return nil }
func (Nop) Delete(context.Context, string) error                    { return nil }

func capMessages(msgs []llm.Message) []llm.Message {
	if len(msgs) > maxMessages {
		return msgs[len(msgs)-maxMessages:]
	}
	return msgs
}
