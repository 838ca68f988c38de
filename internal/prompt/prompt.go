// Package prompt assembles the conversation sent to the model: a system
// instruction, the prior turns of the thread and the current question.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/sozercan/cheatsheet-ai/internal/llm"
	"github.com/sozercan/cheatsheet-ai/internal/search"
)

type Builder struct {
	system *template.Template
}

type Input struct {
	Language string
	History  []llm.Message
	Question string
	// Hits are optional web search results added to the system instruction.
	Hits []search.Result
}

func New(systemTemplate string) (*Builder, error) {
	tmpl, err := template.New("system").Option("missingkey=error").Parse(systemTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing system prompt template: %w", err)
	}
	return &Builder{system: tmpl}, nil
}

func (b *Builder) Build(in Input) ([]llm.Message, error) {
	var sys strings.Builder
	if err := b.system.Execute(&sys, struct{ Language string }{Language: in.Language}); err != nil {
		return nil, fmt.Errorf("rendering system prompt: %w", err)
	}
	if len(in.Hits) > 0 {
		sys.WriteString("\n\n")
		sys.WriteString(formatHits(in.Hits))
	}

	messages := make([]llm.Message, 0, len(in.History)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: sys.String()})
	for _, m := range in.History {
		if m.Role == llm.RoleSystem {
			continue
		}
		messages = append(messages, m)
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: in.Question})
	return messages, nil
}

func formatHits(hits []search.Result) string {
	var b strings.Builder
	b.WriteString("Web search results that may help answer the question:\n")
	for i, h := range hits {
		title := h.Title
		if title == "" {
			title = h.URL
		}
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, title, h.URL)
		if h.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", h.Snippet)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
