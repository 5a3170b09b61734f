package validator

import (
	"fmt"
	"strings"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/schema"
)

// StructuralInputError aborts a whole batch: it has no data rows or none of
// its columns maps onto the canonical schema.
type StructuralInputError struct {
	SourceID string
	Reason   string
}

func (e *StructuralInputError) Error() string {
	if e.SourceID == "" {
		return fmt.Sprintf("structural input error: %s", e.Reason)
	}
	return fmt.Sprintf("structural input error in %s: %s", e.SourceID, e.Reason)
}

// MissingMandatoryColumnError is returned in strict mode when no source column
// maps to one or more mandatory fields.
type MissingMandatoryColumnError struct {
	SourceID string
	Fields   []schema.Field
}

func (e *MissingMandatoryColumnError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f)
	}
	return fmt.Sprintf("missing mandatory columns in %s: [%s]", e.SourceID, strings.Join(names, ", "))
}

// Unwrap lets errors.As match a missing mandatory column as a structural error.
func (e *MissingMandatoryColumnError) Unwrap() error {
	return &StructuralInputError{SourceID: e.SourceID, Reason: "missing mandatory columns"}
}
