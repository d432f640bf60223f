package metrics

import (
	"testing"
	"time"

	"opt-eligibility/internal/eligibility"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordValidation(t *testing.T) {
	eligibleBefore := testutil.ToFloat64(ValidationsTotal.WithLabelValues(ChannelCLI, OutcomeEligible))
	ineligibleBefore := testutil.ToFloat64(ValidationsTotal.WithLabelValues(ChannelCLI, OutcomeIneligible))
	capBefore := testutil.ToFloat64(ViolationsTotal.WithLabelValues(ChannelCLI, string(eligibility.UnemploymentCapExceeded)))

	RecordValidation(ChannelCLI, eligibility.Eligible{}, time.Millisecond)
	RecordValidation(ChannelCLI, eligibility.Ineligible{Violations: []eligibility.Violation{
		{Field: eligibility.FieldUnemploymentDaysUsed, Code: eligibility.UnemploymentCapExceeded},
		{Field: eligibility.FieldIsStemDegree, Code: eligibility.StemDegreeRequired},
	}}, 2*time.Millisecond)

	assert.Equal(t, eligibleBefore+1, testutil.ToFloat64(ValidationsTotal.WithLabelValues(ChannelCLI, OutcomeEligible)))
	assert.Equal(t, ineligibleBefore+1, testutil.ToFloat64(ValidationsTotal.WithLabelValues(ChannelCLI, OutcomeIneligible)))
	assert.Equal(t, capBefore+1, testutil.ToFloat64(ViolationsTotal.WithLabelValues(ChannelCLI, string(eligibility.UnemploymentCapExceeded))))
}

func TestOutcomeLabel(t *testing.T) {
	assert.Equal(t, OutcomeEligible, OutcomeLabel(eligibility.Eligible{}))
	assert.Equal(t, OutcomeIneligible, OutcomeLabel(eligibility.Ineligible{}))
}
