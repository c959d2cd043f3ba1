package models

// Decision is the structured output of the query pipeline. It is produced
// fresh per query and never persisted.
type Decision struct {
	Decision      string  `json:"decision"`
	Amount        float64 `json:"amount"`
	Justification string  `json:"justification"`
}
