package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestDenyByDefault is the property from §8.4.
func TestDenyByDefault(t *testing.T) {
	e := NewEngine()
	assert.False(t, e.EvaluatePolicy("anyone", "doc", "read", nil))
}

// TestWildcardPermission is the property from §8.3.
func TestWildcardPermission(t *testing.T) {
	e := NewEngine()
	e.AssignRole("sensor-1", "reader")
	e.DefineRolePermissions("reader", []string{"sensor.*:read"})

	assert.True(t, e.CheckPermission("sensor-1", "sensor.temp:read"))
	assert.True(t, e.CheckPermission("sensor-1", "sensor.humidity:read"))
	assert.False(t, e.CheckPermission("sensor-1", "sensor.temp.inner:read"))
	assert.False(t, e.CheckPermission("sensor-1", "actuator.valve:read"))
}

// TestPolicyDenial is scenario E3.
func TestPolicyDenial(t *testing.T) {
	e := NewEngine()
	e.AssignRole("guest", "reader")
	e.DefineRolePermissions("reader", []string{"doc:read"})

	assert.True(t, e.EvaluatePolicy("guest", "doc", "read", nil))
	assert.False(t, e.EvaluatePolicy("guest", "doc", "write", nil))
}

func TestExplicitDenyPolicyOverridesMatch(t *testing.T) {
	e := NewEngine()
	e.AddPolicy(&Policy{
		ID:        "block-mallory",
		Resources: []string{"*"},
		Actions:   []string{"*"},
		EntitiesInclude: []string{"mallory"},
		Effect:    EffectDeny,
	})

	assert.False(t, e.EvaluatePolicy("mallory", "doc", "read", nil))
}

func TestPolicyEntityExclusion(t *testing.T) {
	e := NewEngine()
	e.AddPolicy(&Policy{
		ID:              "open-docs",
		Resources:       []string{"doc"},
		Actions:         []string{"read"},
		EntitiesExclude: []string{"banned"},
	})

	assert.True(t, e.EvaluatePolicy("anyone", "doc", "read", nil))
	assert.False(t, e.EvaluatePolicy("banned", "doc", "read", nil))
}

func TestTimeRangeCondition(t *testing.T) {
	e := NewEngine()
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 1, 17, 0, 0, 0, time.UTC)
	e.AddPolicy(&Policy{
		ID:        "business-hours",
		Resources: []string{"vault"},
		Actions:   []string{"open"},
		Conditions: []Condition{
			TimeRange{Start: &start, End: &end},
		},
	})

	inHours := EvalContext{"current_time": time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	afterHours := EvalContext{"current_time": time.Date(2026, 1, 1, 20, 0, 0, 0, time.UTC)}

	assert.True(t, e.EvaluatePolicy("anyone", "vault", "open", inHours))
	assert.False(t, e.EvaluatePolicy("anyone", "vault", "open", afterHours))
}

func TestIPRangeCondition(t *testing.T) {
	e := NewEngine()
	e.AddPolicy(&Policy{
		ID:        "office-only",
		Resources: []string{"admin"},
		Actions:   []string{"*"},
		Conditions: []Condition{
			IPRange{AllowedCIDRs: []string{"10.0.0.0/8"}},
		},
	})

	assert.True(t, e.EvaluatePolicy("anyone", "admin", "login", EvalContext{"client_ip": "10.1.2.3"}))
	assert.False(t, e.EvaluatePolicy("anyone", "admin", "login", EvalContext{"client_ip": "8.8.8.8"}))
}

func TestAttributeCondition(t *testing.T) {
	e := NewEngine()
	e.AddPolicy(&Policy{
		ID:        "senior-only",
		Resources: []string{"payroll"},
		Actions:   []string{"approve"},
		Conditions: []Condition{
			Attribute{Attribute: "clearance", Value: "senior", Operator: OpEQ},
		},
	})

	senior := EvalContext{"entity_attributes": map[string]any{"clearance": "senior"}}
	junior := EvalContext{"entity_attributes": map[string]any{"clearance": "junior"}}

	assert.True(t, e.EvaluatePolicy("anyone", "payroll", "approve", senior))
	assert.False(t, e.EvaluatePolicy("anyone", "payroll", "approve", junior))
}

func TestUnknownAttributeOperatorFailsClosed(t *testing.T) {
	e := NewEngine()
	e.AddPolicy(&Policy{
		ID:        "mystery",
		Resources: []string{"x"},
		Actions:   []string{"y"},
		Conditions: []Condition{
			Attribute{Attribute: "z", Value: "w", Operator: "unknown-op"},
		},
	})
	assert.False(t, e.EvaluatePolicy("anyone", "x", "y", EvalContext{"entity_attributes": map[string]any{"z": "w"}}))
}
