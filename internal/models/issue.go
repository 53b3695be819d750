package models

import "fmt"

// IssueKind classifies a non-fatal pipeline outcome
type IssueKind string

const (
	IssueSchemaError       IssueKind = "schema_error"
	IssueDecodeError       IssueKind = "decode_error"
	IssueDuplicateConflict IssueKind = "duplicate_conflict"
	IssueQualityRejection  IssueKind = "quality_rejection"
	IssueUnparseableDate   IssueKind = "unparseable_date"
	IssueEmptyComment      IssueKind = "empty_comment"
	IssueDuplicateComment  IssueKind = "duplicate_comment"
)

// Issue records a skipped, rejected or otherwise noteworthy record.
// Record is the 1-based position of the record inside Source.
type Issue struct {
	Kind     IssueKind   `json:"kind"`
	Source   string      `json:"source,omitempty"`
	Record   int         `json:"record,omitempty"`
	RecordID string      `json:"record_id,omitempty"`
	Field    string      `json:"field,omitempty"`
	Message  string      `json:"message"`
	Value    interface{} `json:"value,omitempty"`
}

// SchemaError is returned by normalization when a record cannot be mapped:
// the platform tag is not recognized or a required field is missing.
// It is fatal for that record only.
type SchemaError struct {
	Platform string
	Field    string
	Message  string
	Value    interface{}
}

func (e *SchemaError) Error() string {
	if e.Platform != "" {
		return fmt.Sprintf("schema error (%s) on %s: %s", e.Platform, e.Field, e.Message)
	}
	return fmt.Sprintf("schema error on %s: %s", e.Field, e.Message)
}

// IOError wraps a file system failure with the offending path; it aborts the run
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
