// internal/eligibility/violation.go
package eligibility

// ErrorKind classifies a violation. Structural kinds come from the parser,
// business kinds from the rule evaluator.
type ErrorKind string

// Structural kinds.
const (
	InvalidEnum    ErrorKind = "INVALID_ENUM"
	InvalidDate    ErrorKind = "INVALID_DATE"
	InvalidNumber  ErrorKind = "INVALID_NUMBER"
	InvalidBoolean ErrorKind = "INVALID_BOOLEAN"
	OutOfDomain    ErrorKind = "OUT_OF_DOMAIN"
	MissingField   ErrorKind = "MISSING_FIELD"
	InvalidPayload ErrorKind = "INVALID_PAYLOAD"
)

// Business kinds.
const (
	DateOutOfRange               ErrorKind = "DATE_OUT_OF_RANGE"
	StemDegreeRequired           ErrorKind = "STEM_DEGREE_REQUIRED"
	DegreeIneligibleForExtension ErrorKind = "DEGREE_INELIGIBLE_FOR_EXTENSION"
	UnemploymentCapExceeded      ErrorKind = "UNEMPLOYMENT_CAP_EXCEEDED"
	ProgramAlreadyEnded          ErrorKind = "PROGRAM_ALREADY_ENDED"
)

// Structural reports whether the kind is produced by the parser.
func (k ErrorKind) Structural() bool {
	switch k {
	case InvalidEnum, InvalidDate, InvalidNumber, InvalidBoolean, OutOfDomain, MissingField, InvalidPayload:
		return true
	}
	return false
}

type Violation struct {
	Field   string    `json:"field"`
	Message string    `json:"message"`
	Code    ErrorKind `json:"code"`
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}
