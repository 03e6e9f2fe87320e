// Package domain provides core business rules for the leads bounded context:
// the closed status and source types, the qualification rule engine and the
// status transitions derived from it.
package domain

import "fmt"

// Status is the qualification state of a lead.
type Status string

const (
	StatusNew          Status = "NEW"
	StatusNeedsInfo    Status = "NEEDS_INFO"
	StatusQualified    Status = "QUALIFIED"
	StatusDisqualified Status = "DISQUALIFIED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusNeedsInfo, StatusQualified, StatusDisqualified:
		return true
	}
	return false
}

// IsTerminal reports whether no further automated transitions apply.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusQualified, StatusDisqualified:
		return true
	case StatusNew, StatusNeedsInfo:
		return false
	}
	return false
}

// ParseStatus converts a stored value into a Status.
func ParseStatus(value string) (Status, error) {
	s := Status(value)
	if !s.Valid() {
		return "", fmt.Errorf("unknown lead status %q", value)
	}
	return s, nil
}

// Source is the channel a lead arrived through.
type Source string

const (
	SourceFacebook  Source = "facebook"
	SourceInstagram Source = "instagram"
	SourceWebsite   Source = "website"
	SourceManual    Source = "manual"
	SourceOther     Source = "other"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceFacebook, SourceInstagram, SourceWebsite, SourceManual, SourceOther:
		return true
	}
	return false
}

// ParseSource converts a request value into a Source, rejecting unknown values.
func ParseSource(value string) (Source, error) {
	s := Source(value)
	if !s.Valid() {
		return "", fmt.Errorf("unknown lead source %q", value)
	}
	return s, nil
}

// SourceFromWebhook maps a webhook path segment to a Source. Unknown
// integrations are still accepted and recorded as other.
func SourceFromWebhook(value string) Source {
	if s, err := ParseSource(value); err == nil {
		return s
	}
	return SourceOther
}
