package request

// UpdateGameRequest is the request body for PATCH /games/{id}.
// Omitted fields are left unchanged.
type UpdateGameRequest struct {
	Status   *string `json:"status,omitempty"`
	Turn     *string `json:"turn,omitempty"`
	WinnerID *string `json:"winner_id,omitempty"`
}

// IsEmpty reports whether the request changes nothing
func (r UpdateGameRequest) IsEmpty() bool {
	return r.Status == nil && r.Turn == nil && r.WinnerID == nil
}
