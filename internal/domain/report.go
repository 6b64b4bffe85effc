package domain

import "time"

// Report reasons.
const (
	ReportReasonSpam          = "spam"
	ReportReasonInappropriate = "inappropriate"
	ReportReasonFake          = "fake"
	ReportReasonOffensive     = "offensive"
	ReportReasonIrrelevant    = "irrelevant"
	ReportReasonOther         = "other"
)

// Report is a user's abuse flag on a review. A user may report a review once.
type Report struct {
	ID          string    `json:"id"`
	ReviewID    string    `json:"review_id"`
	UserID      string    `json:"user_id"`
	Reason      string    `json:"reason"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ValidReportReasons returns the closed set of report reasons.
func ValidReportReasons() []string {
	return []string{
		ReportReasonSpam,
		ReportReasonInappropriate,
		ReportReasonFake,
		ReportReasonOffensive,
		ReportReasonIrrelevant,
		ReportReasonOther,
	}
}

// IsValidReportReason checks reason against ValidReportReasons.
func IsValidReportReason(reason string) bool {
	for _, r := range ValidReportReasons() {
		if r == reason {
			return true
		}
	}
	return false
}
