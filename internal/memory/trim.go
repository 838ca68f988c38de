package memory

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/sozercan/cheatsheet-ai/internal/llm"
)

// Counter measures text in model tokens.
type Counter interface {
	Count(text string) int
}

// TiktokenCounter counts with the model's BPE encoding once Load has
// succeeded, and with a four-bytes-per-token estimate until then. Count
// never fetches the encoding itself.
type TiktokenCounter struct {
	model string

	mu  sync.RWMutex
	enc *tiktoken.Tiktoken
}

func NewTiktokenCounter(model string) *TiktokenCounter {
	return &TiktokenCounter{model: model}
}

// Load fetches the encoding, which may mean downloading it. It gives up when
// ctx is done; a download still in flight then installs the encoding when it
// finishes.
func (c *TiktokenCounter) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("loading token encoding for %q: %w", c.model, err)
	}

	done := make(chan error, 1)
	go func() {
		enc, err := tiktoken.EncodingForModel(c.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding("cl100k_base")
		}
		if err == nil {
			c.mu.Lock()
			c.enc = enc
			c.mu.Unlock()
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("loading token encoding for %q: %w", c.model, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("loading token encoding for %q: %w", c.model, ctx.Err())
	}
}

func (c *TiktokenCounter) Count(text string) int {
	c.mu.RLock()
	enc := c.enc
	c.mu.RUnlock()
	if enc == nil {
		return estimate(text)
	}
	return len(enc.Encode(text, nil, nil))
}

func estimate(text string) int {
	return utf8.RuneCountInString(text)/4 + 1
}

// Trim drops the oldest turns until the rest fit in budget tokens.
// A budget of zero or less disables trimming.
func Trim(history []llm.Message, budget int, counter Counter) []llm.Message {
	if budget <= 0 || len(history) == 0 {
		return history
	}

	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		total += counter.Count(history[i].Content)
		if total > budget {
			break
		}
		start = i
	}
	// never open the window on an assistant turn without its question
	for start < len(history) && history[start].Role == llm.RoleAssistant {
		start++
	}
	return history[start:]
}
