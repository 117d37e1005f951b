package models

// ChatRequest is the body of POST /Chat.
type ChatRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Query     string `json:"query" validate:"required"`
}

// Validate ensures both fields are present.
func (r *ChatRequest) Validate() error {
	return Validate(r)
}

// ChatResponse is the body returned by POST /Chat.
type ChatResponse struct {
	Answer string `json:"answer"`
}

// UploadResponse is the body returned by POST /Upload_Document.
type UploadResponse struct {
	Status string `json:"status"`
	Chunks int    `json:"chunks"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
