package services

import (
	"context"
	"testing"

	"github.com/sahilchouksey/kpi-tracker-api/model"
	"github.com/sahilchouksey/kpi-tracker-api/utils/apperr"
	"github.com/sahilchouksey/kpi-tracker-api/utils/logger"
	"github.com/sahilchouksey/kpi-tracker-api/utils/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var ctx = context.Background()

type fixture struct {
	db          *gorm.DB
	pillars     *PillarService
	kpis        *KPIService
	infos       *DepartmentInfoService
	assignments *AssignmentService
	departments *DepartmentService

	cse, ece model.Department
	qacA     Actor
	qacB     Actor
	hodCSE   Actor
	hodECE   Actor
	faculty  Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	log := logger.Nop()

	f := &fixture{
		db:          db,
		pillars:     NewPillarService(db, log),
		kpis:        NewKPIService(db, log),
		infos:       NewDepartmentInfoService(db, log),
		assignments: NewAssignmentService(db, log),
		departments: NewDepartmentService(db, log),
	}

	f.cse = testutil.CreateDepartment(t, db, "Computer Science")
	f.ece = testutil.CreateDepartment(t, db, "Electronics")

	actor := func(email string, role model.Role, dept *uint) Actor {
		u := testutil.CreateUser(t, db, email, role, dept, "")
		return ActorFromUser(&u)
	}
	f.qacA = actor("qac.a@uni.edu", model.RoleQAC, nil)
	f.qacB = actor("qac.b@uni.edu", model.RoleQAC, nil)
	f.hodCSE = actor("hod.cse@uni.edu", model.RoleHOD, &f.cse.ID)
	f.hodECE = actor("hod.ece@uni.edu", model.RoleHOD, &f.ece.ID)
	f.faculty = actor("fac.cse@uni.edu", model.RoleFaculty, &f.cse.ID)
	return f
}

func (f *fixture) pillar(t *testing.T, owner Actor, name string, value float64) *model.Pillar {
	t.Helper()
	p, err := f.pillars.Create(ctx, owner, CreatePillarInput{PillarName: name, PillarValue: value})
	require.NoError(t, err)
	return p
}

func (f *fixture) kpi(t *testing.T, owner Actor, pillarID uint, name string, value float64, schema *model.FormSchema) *model.KPI {
	t.Helper()
	k, err := f.kpis.Create(ctx, owner, pillarID, CreateKPIInput{
		KpiMetricName: name,
		KpiValue:      value,
		KpiData:       schema,
		AcademicYear:  "2024-25",
	})
	require.NoError(t, err)
	return k
}

func (f *fixture) count(t *testing.T, m interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := f.db.Model(m)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apperr.KindOf(err), "unexpected error: %v", err)
}

func ptr[T any](v T) *T { return &v }
