package services

import (
	"testing"

	"github.com/sahilchouksey/kpi-tracker-api/model"
	"github.com/sahilchouksey/kpi-tracker-api/utils/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPillarWeightLimitPerOwner(t *testing.T) {
	f := newFixture(t)

	f.pillar(t, f.qacA, "Teaching", 0.6)

	_, err := f.pillars.Create(ctx, f.qacA, CreatePillarInput{PillarName: "Research", PillarValue: 0.5})
	requireKind(t, err, apperr.KindBadRequest)
	assert.EqualValues(t, 1, f.count(t, &model.Pillar{}, ""))

	f.pillar(t, f.qacA, "Research", 0.4)

	status, err := f.pillars.WeightStatus(ctx, f.qacA)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Count)
	assert.InDelta(t, 1.0, status.Total, 1e-9)
	assert.Zero(t, status.Available)
	assert.True(t, status.Complete)

	// another owner has a separate budget
	f.pillar(t, f.qacB, "Outreach", 0.9)
}

func TestPillarFloatSumsWithinTolerance(t *testing.T) {
	f := newFixture(t)

	f.pillar(t, f.qacA, "A", 0.1)
	f.pillar(t, f.qacA, "B", 0.2)
	f.pillar(t, f.qacA, "C", 0.7)

	_, err := f.pillars.Create(ctx, f.qacA, CreatePillarInput{PillarName: "D", PillarValue: 0.001})
	requireKind(t, err, apperr.KindBadRequest)
}

func TestPillarUpdateExcludesOwnWeight(t *testing.T) {
	f := newFixture(t)

	teaching := f.pillar(t, f.qacA, "Teaching", 0.6)
	f.pillar(t, f.qacA, "Research", 0.4)

	updated, err := f.pillars.Update(ctx, f.qacA, teaching.ID, UpdatePillarInput{PillarValue: ptr(0.6), PillarName: ptr("Teaching & Learning")})
	require.NoError(t, err)
	assert.Equal(t, "Teaching & Learning", updated.PillarName)

	_, err = f.pillars.Update(ctx, f.qacA, teaching.ID, UpdatePillarInput{PillarValue: ptr(0.61)})
	requireKind(t, err, apperr.KindBadRequest)

	var stored model.Pillar
	require.NoError(t, f.db.First(&stored, teaching.ID).Error)
	assert.Equal(t, 0.6, stored.PillarValue)
	assert.Equal(t, "Teaching & Learning", stored.PillarName)

	updated, err = f.pillars.Update(ctx, f.qacA, teaching.ID, UpdatePillarInput{PillarValue: ptr(0.2)})
	require.NoError(t, err)
	assert.Equal(t, 0.2, updated.PillarValue)
}

func TestPillarScopedToOwner(t *testing.T) {
	f := newFixture(t)
	p := f.pillar(t, f.qacA, "Teaching", 0.5)

	_, err := f.pillars.Get(ctx, f.qacB, p.ID)
	requireKind(t, err, apperr.KindNotFound)

	_, err = f.pillars.Update(ctx, f.qacB, p.ID, UpdatePillarInput{PillarName: ptr("Hijacked")})
	requireKind(t, err, apperr.KindNotFound)

	err = f.pillars.Delete(ctx, f.qacB, p.ID)
	requireKind(t, err, apperr.KindNotFound)

	list, err := f.pillars.List(ctx, f.qacB, false)
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := f.pillars.Get(ctx, f.qacA, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Teaching", got.PillarName)
}

func TestPillarRequiresQAC(t *testing.T) {
	f := newFixture(t)

	_, err := f.pillars.Create(ctx, f.hodCSE, CreatePillarInput{PillarName: "X", PillarValue: 0.1})
	requireKind(t, err, apperr.KindForbidden)

	_, err = f.pillars.List(ctx, f.faculty, false)
	requireKind(t, err, apperr.KindForbidden)
}

func TestPillarDeleteCascades(t *testing.T) {
	f := newFixture(t)

	p := f.pillar(t, f.qacA, "Teaching", 0.5)
	f.kpi(t, f.qacA, p.ID, "Pass rate", 0.5, nil)
	f.kpi(t, f.qacA, p.ID, "Feedback", 0.5, nil)

	other := f.pillar(t, f.qacA, "Research", 0.5)
	f.kpi(t, f.qacA, other.ID, "Papers", 1, nil)

	_, err := f.assignments.AssignPillar(ctx, f.qacA, p.ID, AssignPillarInput{DepartmentIDs: []uint{f.cse.ID, f.ece.ID}, AcademicYear: "2024-25"})
	require.NoError(t, err)
	assert.EqualValues(t, 4, f.count(t, &model.DepartmentKpi{}, ""))

	require.NoError(t, f.pillars.Delete(ctx, f.qacA, p.ID))

	assert.Zero(t, f.count(t, &model.Pillar{}, "id = ?", p.ID))
	assert.Zero(t, f.count(t, &model.KPI{}, "pillar_template_id = ?", p.ID))
	assert.Zero(t, f.count(t, &model.DepartmentPillar{}, "pillar_id = ?", p.ID))
	assert.Zero(t, f.count(t, &model.DepartmentKpi{}, ""))
	assert.EqualValues(t, 1, f.count(t, &model.KPI{}, "pillar_template_id = ?", other.ID))

	err = f.pillars.Delete(ctx, f.qacA, p.ID)
	requireKind(t, err, apperr.KindNotFound)
}

func TestPillarListIncludesOrderedKPIs(t *testing.T) {
	f := newFixture(t)
	p := f.pillar(t, f.qacA, "Teaching", 0.5)

	_, err := f.kpis.Create(ctx, f.qacA, p.ID, CreateKPIInput{KpiMetricName: "old", KpiValue: 0.2, AcademicYear: "2023-24"})
	require.NoError(t, err)
	f.kpi(t, f.qacA, p.ID, "second", 0.2, nil)
	f.kpi(t, f.qacA, p.ID, "third", 0.2, nil)

	list, err := f.pillars.List(ctx, f.qacA, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].KPIs, 3)
	assert.Equal(t, "second", list[0].KPIs[0].KpiMetricName)
	assert.Equal(t, "third", list[0].KPIs[1].KpiMetricName)
	assert.Equal(t, "old", list[0].KPIs[2].KpiMetricName)
}
