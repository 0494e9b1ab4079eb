package http

// ErrorBody is the error payload shape. Clients surface Detail verbatim.
type ErrorBody struct {
	Detail string            `json:"detail"`
	Code   string            `json:"code,omitempty"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError describes one rejected input field.
type ValidationError struct {
	Code    string                 `json:"code,omitempty"`
	Field   string                 `json:"field,omitempty"`
	Message string                 `json:"message,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
