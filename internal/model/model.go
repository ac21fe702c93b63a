package model

// Record is an event-like record as supplied by the upstream data provider:
// an assessment event, a participant assignment or an evaluation. Date and
// time fields are raw strings exactly as the provider sends them; see
// internal/temporal for the accepted shapes.
type Record struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`

	// Kind is a free-form label from the provider ("event", "evaluation",
	// ...). It is carried through to views untouched.
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`

	StartDate string `json:"startDate" yaml:"startDate"`
	StartTime string `json:"startTime" yaml:"startTime"`

	// CloseDate / CloseTime mark when submissions close. CloseDate defaults
	// to StartDate.
	CloseDate string `json:"closeDate,omitempty" yaml:"closeDate,omitempty"`
	CloseTime string `json:"closeTime,omitempty" yaml:"closeTime,omitempty"`

	// EndDate / EndTime are optional. With both empty the event ends on its
	// start day.
	EndDate string `json:"endDate,omitempty" yaml:"endDate,omitempty"`
	EndTime string `json:"endTime,omitempty" yaml:"endTime,omitempty"`
}

// HasClose reports whether the record carries any close field.
func (r Record) HasClose() bool {
	return r.CloseDate != "" || r.CloseTime != ""
}

// HasEnd reports whether the record carries any end field.
func (r Record) HasEnd() bool {
	return r.EndDate != "" || r.EndTime != ""
}
