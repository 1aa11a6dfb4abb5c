package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayByMode(t *testing.T) {
	fixed := NewPolicy(BackoffFixed, time.Second, 10*time.Second, 3)
	assert.Equal(t, time.Second, fixed.Delay(1))
	assert.Equal(t, time.Second, fixed.Delay(3))

	linear := NewPolicy(BackoffLinear, time.Second, 10*time.Second, 3)
	assert.Equal(t, time.Second, linear.Delay(1))
	assert.Equal(t, 3*time.Second, linear.Delay(3))
	assert.Equal(t, 10*time.Second, linear.Delay(25), "capped at max")

	exp := NewPolicy(BackoffExponential, time.Second, 10*time.Second, 3)
	assert.Equal(t, time.Second, exp.Delay(1))
	assert.Equal(t, 4*time.Second, exp.Delay(3))
	assert.Equal(t, 10*time.Second, exp.Delay(6), "capped at max")

	assert.Equal(t, time.Duration(0), exp.Delay(0))
}

func TestNewPolicyFallsBackToDefaults(t *testing.T) {
	p := NewPolicy("bogus", 0, 0, -1)
	def := DefaultPolicy()
	assert.Equal(t, def, p)
}

func TestNewPolicyClampsInitialToMax(t *testing.T) {
	p := NewPolicy(BackoffFixed, time.Minute, time.Second, 1)
	assert.Equal(t, time.Second, p.Initial)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())
	assert.Error(t, Policy{Mode: BackoffFixed, Initial: 0, Max: time.Second}.Validate())
	assert.Error(t, Policy{Mode: BackoffFixed, Initial: time.Second, Max: 0}.Validate())
	assert.Error(t, Policy{Mode: BackoffFixed, Initial: time.Second, Max: time.Second, MaxRetries: -1}.Validate())
}
