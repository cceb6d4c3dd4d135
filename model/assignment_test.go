package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := map[[2]KpiStatus]bool{
		{KpiPending, KpiApproved}: true,
		{KpiPending, KpiRedo}:     true,
		{KpiRedo, KpiPending}:     true,
	}

	all := []KpiStatus{KpiPending, KpiApproved, KpiRedo}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]KpiStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.False(t, CanTransition("done", KpiPending))
}

func TestTotalStudents(t *testing.T) {
	info := DepartmentInfo{
		TotalCalculationType: TotalAdmitted,
		StudentStrength: []StudentStrength{
			{Year: "I", Intake: 60, Admitted: 55},
			{Year: "II", Intake: 60, Admitted: 58},
		},
	}
	assert.Equal(t, 113, info.TotalStudents())

	info.TotalCalculationType = TotalSanctioned
	assert.Equal(t, 120, info.TotalStudents())
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" hod ")
	assert.True(t, ok)
	assert.Equal(t, RoleHOD, r)

	_, ok = ParseRole("QOC")
	assert.False(t, ok)
}
