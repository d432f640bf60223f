// internal/workers/eligibility/check-opt-eligibility/models.go
package checkopteligibility

import "opt-eligibility/internal/eligibility"

type Input struct {
	Application map[string]interface{} `json:"application"`
	RequestID   string                 `json:"requestId"`
}

type Output struct {
	IsEligible     bool                  `json:"isEligible"`
	NormalizedData eligibility.Snapshot  `json:"normalizedData"`
	Timeline       *eligibility.Timeline `json:"timeline,omitempty"`
	RequestID      string                `json:"requestId"`
	CheckedOn      string                `json:"checkedOn"`
}
