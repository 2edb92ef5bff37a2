package shared

// MaxItemErrors bounds the per-item error list carried by batch results
const MaxItemErrors = 100

// ItemError is one failed item of a batch operation
type ItemError struct {
	Ref     string `json:"ref"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchResult carries the counters every batch operation reports
type BatchResult struct {
	Processed int         `json:"processed"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Errors    []ItemError `json:"errors,omitempty"`
}

// Success counts a processed item that succeeded
func (r *BatchResult) Success() {
	r.Processed++
	r.Succeeded++
}

// Fail counts a processed item that failed and keeps its error while the
// list is below MaxItemErrors.
func (r *BatchResult) Fail(ref string, err error) {
	r.Processed++
	r.Failed++
	r.Errors = AppendItemError(r.Errors, ref, err)
}

// AppendItemError appends err to errs unless the list is full
func AppendItemError(errs []ItemError, ref string, err error) []ItemError {
	if len(errs) >= MaxItemErrors || err == nil {
		return errs
	}
	code := CodeOf(err)
	if code == "" {
		code = "ERROR"
	}
	return append(errs, ItemError{Ref: ref, Code: code, Message: err.Error()})
}
