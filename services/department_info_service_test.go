package services

import (
	"testing"

	"github.com/sahilchouksey/kpi-tracker-api/model"
	"github.com/sahilchouksey/kpi-tracker-api/utils/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func profileInput() DepartmentInfoInput {
	return DepartmentInfoInput{
		UGPrograms:       2,
		PGPrograms:       1,
		FullTimeTeachers: 30,
		StudentStrength: []StudentStrengthInput{
			{Year: "First", Intake: 120, Admitted: 110},
			{Year: "Second", Intake: 120, Admitted: 100},
			{Year: "Third", Intake: 60, Admitted: 58},
		},
	}
}

func TestDepartmentInfoCreate(t *testing.T) {
	f := newFixture(t)

	view, err := f.infos.Create(ctx, f.hodCSE, profileInput())
	require.NoError(t, err)
	assert.Equal(t, f.cse.ID, view.DepartmentID)
	assert.Equal(t, model.TotalAdmitted, view.TotalCalculationType)
	assert.Len(t, view.StudentStrength, 3)
	assert.Equal(t, 268, view.TotalStudents)

	_, err = f.infos.Create(ctx, f.hodCSE, profileInput())
	requireKind(t, err, apperr.KindConflict)

	_, err = f.infos.Create(ctx, f.faculty, profileInput())
	requireKind(t, err, apperr.KindForbidden)
}

func TestDepartmentInfoOnePerDepartment(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.db.Create(&model.DepartmentInfo{DepartmentID: f.cse.ID}).Error)
	err := f.db.Create(&model.DepartmentInfo{DepartmentID: f.cse.ID}).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	requireKind(t, dbError(err, departmentInfoNotFound), apperr.KindConflict)
}

func TestDepartmentInfoCrossDepartmentAccess(t *testing.T) {
	f := newFixture(t)

	view, err := f.infos.Create(ctx, f.hodCSE, profileInput())
	require.NoError(t, err)

	_, err = f.infos.GetByID(ctx, f.hodECE, view.ID)
	requireKind(t, err, apperr.KindForbidden)

	_, err = f.infos.Update(ctx, f.hodECE, view.ID, UpdateDepartmentInfoInput{UGPrograms: ptr(9)})
	requireKind(t, err, apperr.KindForbidden)

	err = f.infos.Delete(ctx, f.hodECE, view.ID)
	requireKind(t, err, apperr.KindForbidden)

	got, err := f.infos.GetByID(ctx, f.qacA, view.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.UGPrograms)

	got, err = f.infos.GetByID(ctx, f.faculty, view.ID)
	require.NoError(t, err)
	assert.Equal(t, f.cse.ID, got.DepartmentID)

	_, err = f.infos.Get(ctx, f.hodECE)
	requireKind(t, err, apperr.KindNotFound)
}

func TestDepartmentInfoUpdateReplacesStrengthRows(t *testing.T) {
	f := newFixture(t)

	view, err := f.infos.Create(ctx, f.hodCSE, profileInput())
	require.NoError(t, err)

	shorter := []StudentStrengthInput{{Year: "First", Intake: 100, Admitted: 90}}
	updated, err := f.infos.Update(ctx, f.hodCSE, view.ID, UpdateDepartmentInfoInput{
		StudentStrength:      &shorter,
		TotalCalculationType: ptr(string(model.TotalSanctioned)),
	})
	require.NoError(t, err)
	require.Len(t, updated.StudentStrength, 1)
	assert.Equal(t, 100, updated.TotalStudents)
	assert.Equal(t, 2, updated.UGPrograms)

	assert.EqualValues(t, 1, f.count(t, &model.StudentStrength{}, ""))

	// scalar-only update keeps the rows
	updated, err = f.infos.Update(ctx, f.hodCSE, view.ID, UpdateDepartmentInfoInput{PGPrograms: ptr(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.PGPrograms)
	assert.Len(t, updated.StudentStrength, 1)

	got, err := f.infos.Get(ctx, f.hodCSE)
	require.NoError(t, err)
	assert.Equal(t, updated.ID, got.ID)
}

func TestDepartmentInfoDeleteRemovesChildren(t *testing.T) {
	f := newFixture(t)

	view, err := f.infos.Create(ctx, f.hodCSE, profileInput())
	require.NoError(t, err)

	require.NoError(t, f.infos.Delete(ctx, f.hodCSE, view.ID))
	assert.Zero(t, f.count(t, &model.DepartmentInfo{}, ""))
	assert.Zero(t, f.count(t, &model.StudentStrength{}, ""))

	_, err = f.infos.GetByID(ctx, f.qacA, view.ID)
	requireKind(t, err, apperr.KindNotFound)
}

func TestDepartmentInfoRequiresDepartment(t *testing.T) {
	f := newFixture(t)

	_, err := f.infos.Create(ctx, f.qacA, profileInput())
	requireKind(t, err, apperr.KindForbidden)

	var u model.User
	require.NoError(t, f.db.Create(&model.User{Email: "lonely@uni.edu", Name: "lonely", Role: model.RoleHOD}).Error)
	require.NoError(t, f.db.Where("email = ?", "lonely@uni.edu").First(&u).Error)

	_, err = f.infos.Create(ctx, ActorFromUser(&u), profileInput())
	requireKind(t, err, apperr.KindBadRequest)
}
