package handlers

// ErrorDetail is the code/message pair inside an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the error envelope returned by every handler.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// MessageResponse is a bare acknowledgement payload.
type MessageResponse struct {
	Message string `json:"message"`
}
