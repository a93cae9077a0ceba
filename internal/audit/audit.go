// Package audit builds the structured details payload written with every
// admin action and normalizes historical rows whose details predate the
// structured form.
package audit

import "encoding/json"

// Details is the structured payload stored in audit_logs.details. The write
// path always produces this shape; only reads of historical rows go through
// the normalizer.
type Details struct {
	Message  string            `json:"message"`
	Status   string            `json:"status,omitempty"`
	Location string            `json:"location,omitempty"`
	Extras   map[string]string `json:"extras,omitempty"`
	Target   string            `json:"target,omitempty"`
	Reason   string            `json:"reason,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// Encode serializes the payload for storage. Marshal of this shape cannot
// fail, so the error is dropped.
func (d Details) Encode() string {
	b, _ := json.Marshal(d)
	return string(b)
}
