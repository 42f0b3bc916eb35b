package model

import (
	"encoding/json"
	"fmt"
)

// Status is the outcome of visiting one page during a run.
type Status int

const (
	// StatusNew means no fingerprint existed for the page before this visit.
	StatusNew Status = iota

	// StatusChanged means the stored fingerprint differs from the new one.
	StatusChanged

	// StatusUnchanged means the stored fingerprint equals the new one.
	StatusUnchanged

	// StatusFetchFailed means the page could not be retrieved. No fingerprint
	// is read or written for it.
	StatusFetchFailed
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusNew, StatusChanged, StatusUnchanged, StatusFetchFailed}

// String returns the console label of the status.
func (s Status) String() string {
	switch s {
	case StatusNew:
		return "New"
	case StatusChanged:
		return "Changed"
	case StatusUnchanged:
		return "Unchanged"
	case StatusFetchFailed:
		return "FetchFailed"
	default:
		return "Unknown"
	}
}

// IsChange reports whether the status counts as a change for the run summary.
// A page seen for the first time is a change.
func (s Status) IsChange() bool {
	return s == StatusNew || s == StatusChanged
}

// ParseStatus converts a label produced by String back to a Status.
func ParseStatus(label string) (Status, error) {
	for _, s := range Statuses {
		if s.String() == label {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", label)
}

// MarshalJSON encodes the status as its label.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status label.
func (s *Status) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	parsed, err := ParseStatus(label)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
