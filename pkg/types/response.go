package types

// ErrorResponse is the body of every non-2xx reply. Clients may rely on Error only.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}
