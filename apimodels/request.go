package apimodels

type QueryRequest struct {
	// Question is required; nil means the field was absent or null.
	Question *string `json:"question"`

	// Language the answer should be written in, "en" when empty.
	Language string `json:"language,omitempty"`

	// ThreadID groups requests into one conversation.
	ThreadID string `json:"thread_id,omitempty"`

	// OutputFolder overrides the directory the cheatsheet is written to.
	OutputFolder string `json:"output_folder,omitempty"`

	// Configurable carries the same per-run settings in the nested form some
	// clients send. Top-level fields take precedence.
	Configurable Configurable `json:"configurable,omitempty"`
}

type Configurable struct {
	ThreadID     string `json:"thread_id,omitempty"`
	OutputFolder string `json:"output_folder,omitempty"`
}

// Thread returns the effective thread id.
func (r QueryRequest) Thread() string {
	if r.ThreadID != "" {
		return r.ThreadID
	}
	return r.Configurable.ThreadID
}

// Folder returns the effective output folder.
func (r QueryRequest) Folder() string {
	if r.OutputFolder != "" {
		return r.OutputFolder
	}
	return r.Configurable.OutputFolder
}
