package api

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
