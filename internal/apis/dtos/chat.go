package dtos

type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

type QueryRequest struct {
	Question string `json:"question" binding:"required"`
}

// QueryResponse carries the SQL the backend generated for a question
// and, when the backend executed it, the resulting rows.
type QueryResponse struct {
	SQL      string                   `json:"sql"`
	Rows     []map[string]interface{} `json:"rows,omitempty"`
	RowCount int                      `json:"row_count"`
}
