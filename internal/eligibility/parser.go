// internal/eligibility/parser.go
package eligibility

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"opt-eligibility/internal/common/validation"
)

// maxSafeInteger bounds float64 counters that still convert to int exactly.
const maxSafeInteger = 1 << 53

var (
	requestSchemaJSON = buildRequestSchema()
	requestSchema     = validation.MustCompile(requestSchemaJSON)
)

// RequestSchema returns the JSON Schema that gates incoming applications.
func RequestSchema() string {
	return requestSchemaJSON
}

func buildRequestSchema() string {
	degrees := make([]string, len(degreeLevels))
	for i, d := range degreeLevels {
		degrees[i] = string(d)
	}
	stages := make([]string, len(optStages))
	for i, s := range optStages {
		stages[i] = string(s)
	}

	schema := map[string]interface{}{
		"type": "object",
		"required": []string{
			FieldDegreeLevel,
			FieldIsStemDegree,
			FieldProgramEndDate,
			FieldOptStage,
		},
		"properties": map[string]interface{}{
			FieldDegreeLevel:    map[string]interface{}{"type": "string", "enum": degrees},
			FieldIsStemDegree:   map[string]interface{}{"enum": []interface{}{true, false, "true", "false"}},
			FieldProgramEndDate: map[string]interface{}{"type": "string", "format": "date"},
			FieldOptStage:       map[string]interface{}{"type": "string", "enum": stages},
			FieldUnemploymentDaysUsed: map[string]interface{}{
				"type":    []string{"integer", "string"},
				"minimum": 0,
			},
		},
	}

	b, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("marshal request schema: %v", err))
	}
	return string(b)
}

// Parse turns a loosely-typed payload into a Snapshot. Every field is checked
// independently, so one bad field never hides another. When any field fails
// the snapshot is nil.
func Parse(raw map[string]interface{}) (*Snapshot, []Violation) {
	if raw == nil {
		return nil, []Violation{payloadViolation("application payload must be a JSON object")}
	}

	result, err := requestSchema.ValidateInput(raw)
	if err != nil {
		return nil, []Violation{payloadViolation("application payload could not be read")}
	}

	var (
		snapshot   Snapshot
		violations []Violation
	)
	for _, field := range fieldOrder {
		if schemaErr, ok := result.FirstErrorForField(field); ok {
			violations = append(violations, schemaViolation(field, schemaErr))
			continue
		}
		if v := parseField(&snapshot, field, raw); v != nil {
			violations = append(violations, *v)
		}
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return &snapshot, nil
}

func schemaViolation(field string, schemaErr validation.ValidationError) Violation {
	if schemaErr.Code == validation.CodeRequired {
		return Violation{Field: field, Code: MissingField, Message: fmt.Sprintf("%s is required", field)}
	}
	switch field {
	case FieldDegreeLevel:
		return invalidDegree()
	case FieldOptStage:
		return invalidStage()
	case FieldIsStemDegree:
		return invalidBoolean()
	case FieldProgramEndDate:
		return invalidDate()
	case FieldUnemploymentDaysUsed:
		if schemaErr.Code == validation.CodeNumberGTE {
			return negativeDays()
		}
		return invalidDays()
	}
	return payloadViolation(schemaErr.Message)
}

func parseField(s *Snapshot, field string, raw map[string]interface{}) *Violation {
	value, present := raw[field]

	switch field {
	case FieldDegreeLevel:
		str, _ := value.(string)
		d, ok := ParseDegreeLevel(str)
		if !ok {
			v := invalidDegree()
			return &v
		}
		s.DegreeLevel = d

	case FieldIsStemDegree:
		b, ok := parseBool(value)
		if !ok {
			v := invalidBoolean()
			return &v
		}
		s.IsStemDegree = b

	case FieldProgramEndDate:
		str, _ := value.(string)
		date, err := ParseDate(str)
		if err != nil {
			v := invalidDate()
			return &v
		}
		s.ProgramEndDate = date

	case FieldOptStage:
		str, _ := value.(string)
		st, ok := ParseOptStage(str)
		if !ok {
			v := invalidStage()
			return &v
		}
		s.OptStage = st

	case FieldUnemploymentDaysUsed:
		if !present {
			s.UnemploymentDaysUsed = 0
			return nil
		}
		days, ok := parseDays(value)
		if !ok {
			v := invalidDays()
			return &v
		}
		if days < 0 {
			v := negativeDays()
			return &v
		}
		s.UnemploymentDaysUsed = days
	}
	return nil
}

func parseBool(value interface{}) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		switch v {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

func parseDays(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		if v > math.MaxInt32 || v < math.MinInt32 {
			return 0, false
		}
		return int(v), true
	case float64:
		if v != math.Trunc(v) || math.Abs(v) > maxSafeInteger {
			return 0, false
		}
		return int(v), true
	case json.Number:
		// 10.0 and 1e1 arrive here from UseNumber decoders; they must match
		// what the float64 branch accepts.
		if n, err := v.Int64(); err == nil {
			return parseDays(n)
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return parseDays(f)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}

func payloadViolation(msg string) Violation {
	return Violation{Field: FieldGeneral, Code: InvalidPayload, Message: msg}
}

func invalidDegree() Violation {
	return Violation{
		Field:   FieldDegreeLevel,
		Code:    InvalidEnum,
		Message: "Degree level must be one of Bachelor, Master, PhD.",
	}
}

func invalidStage() Violation {
	return Violation{
		Field:   FieldOptStage,
		Code:    InvalidEnum,
		Message: "OPT stage must be one of Pre, Post, STEM.",
	}
}

func invalidBoolean() Violation {
	return Violation{
		Field:   FieldIsStemDegree,
		Code:    InvalidBoolean,
		Message: "STEM degree flag must be true or false.",
	}
}

func invalidDate() Violation {
	return Violation{
		Field:   FieldProgramEndDate,
		Code:    InvalidDate,
		Message: "Program end date must be a valid calendar date in YYYY-MM-DD format.",
	}
}

func invalidDays() Violation {
	return Violation{
		Field:   FieldUnemploymentDaysUsed,
		Code:    InvalidNumber,
		Message: "Unemployment days used must be a whole number.",
	}
}

func negativeDays() Violation {
	return Violation{
		Field:   FieldUnemploymentDaysUsed,
		Code:    OutOfDomain,
		Message: "Unemployment days used cannot be negative.",
	}
}
