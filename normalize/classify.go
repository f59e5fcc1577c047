package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PROJECT CLASSIFICATION - Resolved once at ingestion
// =============================================================================

// ProjectClass says how a time entry counts toward utilization.
type ProjectClass string

const (
	ClassBillable    ProjectClass = "billable"
	ClassNonBillable ProjectClass = "non_billable"
	ClassProBono     ProjectClass = "pro_bono"
	ClassLeave       ProjectClass = "leave"
)

// DefaultProBonoMarker identifies the firm's pro-bono program project.
const DefaultProBonoMarker = "Pro Bono - Leave a Mark"

// Classifier decides a ProjectClass from project identity.
//
// Order matters: the pro-bono program's project name contains the word
// "Leave", so pro-bono markers are checked before leave markers.
type Classifier struct {
	ProBonoMarkers  []string // case-insensitive substrings of the project name
	LeaveProjectIDs []string // exact project ids
	LeaveMarkers    []string // case-insensitive substrings of the project name
}

// DefaultClassifier returns the classifier the firm's time data is set up for.
func DefaultClassifier() Classifier {
	return Classifier{
		ProBonoMarkers: []string{DefaultProBonoMarker},
		LeaveMarkers:   []string{"Paid Time Off", "Vacation", "Holiday", "Sick Leave", "Parental Leave"},
	}
}

// Classify returns the class for one entry.
func (c Classifier) Classify(projectID, projectName string, billableAmount decimal.Decimal) ProjectClass {
	name := strings.ToLower(projectName)

	for _, m := range c.ProBonoMarkers {
		if m != "" && strings.Contains(name, strings.ToLower(m)) {
			return ClassProBono
		}
	}
	id := strings.TrimSpace(projectID)
	for _, leaveID := range c.LeaveProjectIDs {
		if id != "" && id == leaveID {
			return ClassLeave
		}
	}
	for _, m := range c.LeaveMarkers {
		if m != "" && strings.Contains(name, strings.ToLower(m)) {
			return ClassLeave
		}
	}
	if !billableAmount.IsZero() {
		return ClassBillable
	}
	return ClassNonBillable
}
