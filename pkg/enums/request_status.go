package enums

import "fmt"

// RequestStatus tracks a service request as its quote moves through review.
type RequestStatus string

const (
	RequestStatusOpen           RequestStatus = "open"
	RequestStatusQuoteSubmitted RequestStatus = "quote_submitted"
	RequestStatusQuoteAccepted  RequestStatus = "quote_accepted"
	RequestStatusQuoteRejected  RequestStatus = "quote_rejected"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusOpen,
	RequestStatusQuoteSubmitted,
	RequestStatusQuoteAccepted,
	RequestStatusQuoteRejected,
}

// String implements fmt.Stringer.
func (s RequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is recognized.
func (s RequestStatus) IsValid() bool {
	for _, candidate := range validRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseRequestStatus converts a raw string into a RequestStatus.
func ParseRequestStatus(value string) (RequestStatus, error) {
	for _, candidate := range validRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request status %q", value)
}
