package services

import (
	"testing"

	"github.com/sahilchouksey/kpi-tracker-api/utils/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepartmentCreateAndList(t *testing.T) {
	f := newFixture(t)

	dept, err := f.departments.Create(ctx, f.qacA, CreateDepartmentInput{Name: "  Mechanical "})
	require.NoError(t, err)
	assert.Equal(t, "Mechanical", dept.Name)

	_, err = f.departments.Create(ctx, f.qacB, CreateDepartmentInput{Name: "computer science"})
	requireKind(t, err, apperr.KindConflict)

	_, err = f.departments.Create(ctx, f.hodCSE, CreateDepartmentInput{Name: "Civil"})
	requireKind(t, err, apperr.KindForbidden)

	list, err := f.departments.List(ctx)
	require.NoError(t, err)
	names := []string{}
	for _, d := range list {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Computer Science", "Electronics", "Mechanical"}, names)
}
