package configuration

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowOptionsDefaults(t *testing.T) {
	var w WorkflowOptions
	require.NoError(t, env.Parse(&w))

	assert.True(t, w.PaymentRequired, "payment is collected unless a deployment opts out")
	assert.Equal(t, 60*time.Minute, w.DefaultServiceDuration)
	assert.Equal(t, 30*time.Minute, w.DefaultSlotGranularity)
	assert.Equal(t, 5, w.PaymentRejectionFlagThreshold)
	assert.Equal(t, time.UTC, w.Location())
}

func TestWorkflowOptionsPaymentOptOut(t *testing.T) {
	t.Setenv("WORKFLOW_PAYMENT_REQUIRED", "false")

	var w WorkflowOptions
	require.NoError(t, env.Parse(&w))
	assert.False(t, w.PaymentRequired)
}

func TestWorkflowOptionsBadTimezoneFallsBackToUTC(t *testing.T) {
	w := WorkflowOptions{Timezone: "Not/AZone"}
	assert.Equal(t, time.UTC, w.Location())
}
