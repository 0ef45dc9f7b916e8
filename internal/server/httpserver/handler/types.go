package handler

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Code      string `json:"code"`
	Detail    string `json:"detail"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// PutResponse is the response body for PUT /store/{key}.
type PutResponse struct {
	OK  bool   `json:"ok"`
	Key string `json:"key"`
}

// DeleteResponse is the response body for DELETE /store/{key}.
type DeleteResponse struct {
	OK bool `json:"ok"`
}

// ImportResponse is the response body for POST /backup/import.
type ImportResponse struct {
	OK       bool `json:"ok"`
	Imported int  `json:"imported"`
	Removed  int  `json:"removed"`
}

// StatusResponse is the response body of the probe endpoints.
type StatusResponse struct {
	Status string `json:"status"`
}
