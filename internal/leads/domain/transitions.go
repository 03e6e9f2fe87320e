package domain

import "fmt"

// DeriveStatus returns the status implied by the current status and the
// freshly computed missing fields. Terminal statuses are frozen: data
// changes on a qualified or disqualified lead never reopen it.
func DeriveStatus(current Status, missing []MissingField) Status {
	switch current {
	case StatusQualified, StatusDisqualified:
		return current
	case StatusNew, StatusNeedsInfo, "":
		if len(missing) > 0 {
			return StatusNeedsInfo
		}
		return StatusNew
	}
	return current
}

// TransitionError describes a status change the state machine refuses.
type TransitionError struct {
	From   Status
	To     Status
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move lead from %s to %s: %s", e.From, e.To, e.Reason)
}

// CanQualify checks whether the lead may be qualified now.
func CanQualify(l Lead) error {
	switch l.Status {
	case StatusDisqualified:
		return &TransitionError{From: l.Status, To: StatusQualified, Reason: "lead is disqualified"}
	case StatusQualified, StatusNew, StatusNeedsInfo:
	}
	if missing := ComputeMissing(l); len(missing) > 0 {
		return &TransitionError{From: l.Status, To: StatusQualified, Reason: fmt.Sprintf("missing fields %v", missing)}
	}
	return nil
}

// CanDisqualify checks whether the lead may be disqualified now.
func CanDisqualify(l Lead) error {
	switch l.Status {
	case StatusQualified:
		return &TransitionError{From: l.Status, To: StatusDisqualified, Reason: "lead is already qualified"}
	case StatusDisqualified, StatusNew, StatusNeedsInfo:
	}
	return nil
}

// CanRequestInfo checks whether the lead may be forced into NEEDS_INFO.
func CanRequestInfo(l Lead) error {
	switch l.Status {
	case StatusQualified, StatusDisqualified:
		return &TransitionError{From: l.Status, To: StatusNeedsInfo, Reason: "lead is closed"}
	case StatusNew, StatusNeedsInfo:
	}
	return nil
}
