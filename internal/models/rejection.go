package models

// RejectionReason names why the quality filter refused a post
type RejectionReason string

const (
	ReasonBelowMinComments RejectionReason = "BELOW_MIN_COMMENTS"
	ReasonEmptyContent     RejectionReason = "EMPTY_CONTENT"
	ReasonOutOfRangeDate   RejectionReason = "OUT_OF_RANGE_DATE"
	ReasonMarkedIrrelevant RejectionReason = "MARKED_IRRELEVANT"
)

// RejectedPost keeps a refused post together with every applicable reason
type RejectedPost struct {
	Post    Post              `json:"post"`
	Reasons []RejectionReason `json:"reasons"`
}

// HasReason reports whether r was recorded for this post
func (r RejectedPost) HasReason(reason RejectionReason) bool {
	for _, got := range r.Reasons {
		if got == reason {
			return true
		}
	}
	return false
}
