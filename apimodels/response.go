package apimodels

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type QueryResponse struct {
	Status string `json:"status"`

	// Results holds the model answer, followed by a sources block when web
	// search was used.
	Results []string `json:"results"`

	// File is the saved cheatsheet name; empty when saving failed.
	File string `json:"file,omitempty"`

	ThreadID string `json:"thread_id"`

	// Warnings lists problems that did not fail the request.
	Warnings []string `json:"warnings,omitempty"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`

	// Kind classifies upstream failures: upstream_timeout, upstream_rejected
	// or internal.
	Kind string `json:"kind,omitempty"`
}

type ThreadResponse struct {
	ThreadID string    `json:"thread_id"`
	Messages []Message `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
