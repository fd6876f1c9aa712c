// internal/domain/notification/shared_types.go
package notification

// Source identifies which alert feed an alert id belongs to. Acknowledgements
// are keyed by (Source, id) since loan and campaign ids may collide.
type Source string

const (
	SourceLoan     Source = "loan"
	SourceCampaign Source = "campaign"
)

// ParseSource accepts the wire names used by the HTTP and Telegram consumers.
func ParseSource(s string) (Source, bool) {
	switch Source(s) {
	case SourceLoan, "loans":
		return SourceLoan, true
	case SourceCampaign, "campaigns":
		return SourceCampaign, true
	default:
		return "", false
	}
}

// AlertKind is the reason an alert was raised.
type AlertKind string

const (
	KindOverdue       AlertKind = "OVERDUE"
	KindDueSoon       AlertKind = "DUE_SOON"
	KindRecentlyEnded AlertKind = "RECENTLY_ENDED"
	KindEndingSoon    AlertKind = "ENDING_SOON"
)

// Source returns the feed a kind belongs to.
func (k AlertKind) Source() Source {
	switch k {
	case KindRecentlyEnded, KindEndingSoon:
		return SourceCampaign
	default:
		return SourceLoan
	}
}
