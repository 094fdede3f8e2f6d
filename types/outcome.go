//nolint:revive // types is a common Go package naming convention
package types

// ItemError records the failure of a single uploaded item (one row or one file).
type ItemError struct {
	// Item identifies the failed item (row insert id or blob key).
	Item string `json:"item" yaml:"item"`
	// Message is the underlying error message.
	Message string `json:"message" yaml:"message"`
}

// UploadOutcome is the result of one upload call.
//
// Either every attempted item has a definitive state (Errors lists the failures),
// or Err is set and the whole call failed without per-item granularity.
type UploadOutcome struct {
	// Target names the destination (namespace.collection or bucket/prefix).
	Target string `json:"target" yaml:"target"`
	// Succeeded is true only when Err is nil, Errors is empty and at least one item was attempted.
	Succeeded bool `json:"succeeded" yaml:"succeeded"`
	// Attempted is the number of items submitted.
	Attempted int `json:"attempted" yaml:"attempted"`
	// Bytes is the total payload size of successfully uploaded items, when known.
	Bytes int64 `json:"bytes,omitempty" yaml:"bytes,omitempty"`
	// Errors lists per-item failures.
	Errors []ItemError `json:"errors,omitempty" yaml:"errors,omitempty"`
	// Err is a call-level failure.
	Err error `json:"-" yaml:"-"`
}

// FailedOutcome returns a call-level failure outcome for target.
func FailedOutcome(target string, err error) *UploadOutcome {
	return &UploadOutcome{Target: target, Err: err}
}

// AddError records a per-item failure.
func (o *UploadOutcome) AddError(item string, err error) {
	o.Errors = append(o.Errors, ItemError{Item: item, Message: err.Error()})
}

// Failed returns the number of items that failed.
func (o *UploadOutcome) Failed() int {
	return len(o.Errors)
}

// ErrorMessage returns the call-level error message, or "" when there is none.
func (o *UploadOutcome) ErrorMessage() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
