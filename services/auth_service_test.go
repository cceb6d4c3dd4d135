package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sahilchouksey/kpi-tracker-api/model"
	"github.com/sahilchouksey/kpi-tracker-api/utils/apperr"
	"github.com/sahilchouksey/kpi-tracker-api/utils/auth"
	"github.com/sahilchouksey/kpi-tracker-api/utils/logger"
	"github.com/sahilchouksey/kpi-tracker-api/utils/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type capturedMail struct {
	to, code string
}

type fakeMailer struct {
	sent []capturedMail
	err  error
}

func (m *fakeMailer) SendOTP(_ context.Context, to, code string, _ time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, capturedMail{to: to, code: code})
	return nil
}

func (m *fakeMailer) last() string {
	return m.sent[len(m.sent)-1].code
}

type fakeGoogle struct {
	identities map[string]*auth.GoogleIdentity
}

func (g *fakeGoogle) Verify(idToken string) (*auth.GoogleIdentity, error) {
	id, ok := g.identities[idToken]
	if !ok {
		return nil, errors.New("token rejected")
	}
	return id, nil
}

type authFixture struct {
	db     *gorm.DB
	svc    *AuthService
	jwt    *auth.JWTManager
	mailer *fakeMailer
	google *fakeGoogle
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := testutil.NewDB(t)
	jwt := auth.NewJWTManager(auth.JWTConfig{Secret: "test-secret", Expiry: time.Hour, Issuer: "kpi-tracker-test"})
	mailer := &fakeMailer{}
	google := &fakeGoogle{identities: map[string]*auth.GoogleIdentity{}}

	svc := NewAuthService(db, jwt, google, mailer, AuthConfig{OTPTTL: 10 * time.Minute, OTPMaxAttempts: 3}, logger.Nop())
	return &authFixture{db: db, svc: svc, jwt: jwt, mailer: mailer, google: google}
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestPasswordLogin(t *testing.T) {
	f := newAuthFixture(t)
	testutil.CreateUser(t, f.db, "hod@uni.edu", model.RoleHOD, nil, "correct-horse")

	res, err := f.svc.Login(ctx, LoginInput{Email: " HOD@uni.edu ", Password: "correct-horse", ExpectedRole: "hod"})
	require.NoError(t, err)
	assert.Equal(t, "hod@uni.edu", res.User.Email)

	claims, err := f.jwt.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, "HOD", claims.Role)

	_, err = f.svc.Login(ctx, LoginInput{Email: "hod@uni.edu", Password: "wrong-horse"})
	requireKind(t, err, apperr.KindUnauthorized)

	_, err = f.svc.Login(ctx, LoginInput{Email: "nobody@uni.edu", Password: "correct-horse"})
	requireKind(t, err, apperr.KindUnauthorized)
}

func TestLoginRejectsUnexpectedRole(t *testing.T) {
	f := newAuthFixture(t)
	testutil.CreateUser(t, f.db, "hod@uni.edu", model.RoleHOD, nil, "correct-horse")

	_, err := f.svc.Login(ctx, LoginInput{Email: "hod@uni.edu", Password: "correct-horse", ExpectedRole: "QAC"})
	requireKind(t, err, apperr.KindUnauthorized)
}

func TestPasswordlessAccountCannotUsePasswordLogin(t *testing.T) {
	f := newAuthFixture(t)
	testutil.CreateUser(t, f.db, "otp@uni.edu", model.RoleFaculty, nil, "")

	_, err := f.svc.Login(ctx, LoginInput{Email: "otp@uni.edu", Password: ""})
	requireKind(t, err, apperr.KindUnauthorized)
}

func TestOTPLoginCreatesGrantedUser(t *testing.T) {
	f := newAuthFixture(t)
	dept := testutil.CreateDepartment(t, f.db, "Civil")
	require.NoError(t, f.db.Create(&model.RoleGrant{Email: "head@uni.edu", Role: model.RoleHOD, DepartmentID: &dept.ID}).Error)

	require.NoError(t, f.svc.RequestOTP(ctx, OTPRequestInput{Email: "Head@uni.edu"}))
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "head@uni.edu", f.mailer.sent[0].to)
	assert.Len(t, f.mailer.last(), auth.OTPLength)

	var stored model.Otp
	require.NoError(t, f.db.First(&stored).Error)
	assert.NotEqual(t, f.mailer.last(), stored.CodeHash)

	res, err := f.svc.VerifyOTP(ctx, OTPVerifyInput{Email: "head@uni.edu", Code: f.mailer.last(), ExpectedRole: "HOD"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleHOD, res.User.Role)
	require.NotNil(t, res.User.DeptID)
	assert.Equal(t, dept.ID, *res.User.DeptID)

	// single use
	_, err = f.svc.VerifyOTP(ctx, OTPVerifyInput{Email: "head@uni.edu", Code: f.mailer.last()})
	requireKind(t, err, apperr.KindUnauthorized)
}

func TestOTPLoginDefaultsToFaculty(t *testing.T) {
	f := newAuthFixture(t)

	require.NoError(t, f.svc.RequestOTP(ctx, OTPRequestInput{Email: "new.person@uni.edu"}))
	res, err := f.svc.VerifyOTP(ctx, OTPVerifyInput{Email: "new.person@uni.edu", Code: f.mailer.last()})
	require.NoError(t, err)
	assert.Equal(t, model.RoleFaculty, res.User.Role)
	assert.Equal(t, "new.person", res.User.Name)
	assert.Nil(t, res.User.DeptID)
}

func TestOTPExpectedRoleMismatch(t *testing.T) {
	f := newAuthFixture(t)

	require.NoError(t, f.svc.RequestOTP(ctx, OTPRequestInput{Email: "x@uni.edu"}))
	_, err := f.svc.VerifyOTP(ctx, OTPVerifyInput{Email: "x@uni.edu", Code: f.mailer.last(), ExpectedRole: "QAC"})
	requireKind(t, err, apperr.KindUnauthorized)
}

func TestOTPAttemptsAreCapped(t *testing.T) {
	f := newAuthFixture(t)

	require.NoError(t, f.svc.RequestOTP(ctx, OTPRequestInput{Email: "x@uni.edu"}))
	code := f.mailer.last()

	for i := 0; i < 3; i++ {
		_, err := f.svc.VerifyOTP(ctx, OTPVerifyInput{Email: "x@uni.edu", Code: wrongCode(code)})
		requireKind(t, err, apperr.KindUnauthorized)
	}

	var stored model.Otp
	require.NoError(t, f.db.First(&stored).Error)
	assert.Equal(t, 3, stored.Attempts)

	_, err := f.svc.VerifyOTP(ctx, OTPVerifyInput{Email: "x@uni.edu", Code: code})
	requireKind(t, err, apperr.KindUnauthorized)
}

func TestOTPExpires(t *testing.T) {
	f := newAuthFixture(t)
	start := time.Now()
	f.svc.now = func() time.Time { return start }

	require.NoError(t, f.svc.RequestOTP(ctx, OTPRequestInput{Email: "x@uni.edu"}))

	f.svc.now = func() time.Time { return start.Add(11 * time.Minute) }
	_, err := f.svc.VerifyOTP(ctx, OTPVerifyInput{Email: "x@uni.edu", Code: f.mailer.last()})
	requireKind(t, err, apperr.KindUnauthorized)
}

func TestOTPMailFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.mailer.err = ErrSMTPNotConfigured

	err := f.svc.RequestOTP(ctx, OTPRequestInput{Email: "x@uni.edu"})
	requireKind(t, err, apperr.KindUnavailable)
}

func TestGoogleLogin(t *testing.T) {
	f := newAuthFixture(t)
	f.google.identities["good"] = &auth.GoogleIdentity{Subject: "sub-1", Email: "g@uni.edu", EmailVerified: true, Name: "Gee"}
	f.google.identities["impostor"] = &auth.GoogleIdentity{Subject: "sub-2", Email: "g@uni.edu", EmailVerified: true, Name: "Gee"}

	res, err := f.svc.LoginWithGoogle(ctx, GoogleLoginInput{IDToken: "good"})
	require.NoError(t, err)
	assert.Equal(t, "Gee", res.User.Name)
	assert.Equal(t, model.RoleFaculty, res.User.Role)

	var stored model.User
	require.NoError(t, f.db.Where("email = ?", "g@uni.edu").First(&stored).Error)
	require.NotNil(t, stored.GoogleID)
	assert.Equal(t, "sub-1", *stored.GoogleID)

	again, err := f.svc.LoginWithGoogle(ctx, GoogleLoginInput{IDToken: "good"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, again.User.ID)

	_, err = f.svc.LoginWithGoogle(ctx, GoogleLoginInput{IDToken: "impostor"})
	requireKind(t, err, apperr.KindUnauthorized)

	_, err = f.svc.LoginWithGoogle(ctx, GoogleLoginInput{IDToken: "forged"})
	requireKind(t, err, apperr.KindUnauthorized)

	_, err = f.svc.LoginWithGoogle(ctx, GoogleLoginInput{IDToken: "good", ExpectedRole: "QAC"})
	requireKind(t, err, apperr.KindUnauthorized)
}

func TestGoogleLinksExistingAccount(t *testing.T) {
	f := newAuthFixture(t)
	existing := testutil.CreateUser(t, f.db, "qac@uni.edu", model.RoleQAC, nil, "pw-12345678")
	f.google.identities["t"] = &auth.GoogleIdentity{Subject: "sub-q", Email: "qac@uni.edu", EmailVerified: true}

	res, err := f.svc.LoginWithGoogle(ctx, GoogleLoginInput{IDToken: "t", ExpectedRole: "QAC"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, res.User.ID)
	assert.Equal(t, model.RoleQAC, res.User.Role)
}

func TestGoogleRejectsUnverifiedEmail(t *testing.T) {
	f := newAuthFixture(t)
	existing := testutil.CreateUser(t, f.db, "qac@uni.edu", model.RoleQAC, nil, "pw-12345678")
	require.NoError(t, f.db.Create(&model.RoleGrant{Email: "new-hod@uni.edu", Role: model.RoleHOD}).Error)
	f.google.identities["takeover"] = &auth.GoogleIdentity{Subject: "sub-x", Email: "qac@uni.edu"}
	f.google.identities["granted"] = &auth.GoogleIdentity{Subject: "sub-y", Email: "new-hod@uni.edu"}

	_, err := f.svc.LoginWithGoogle(ctx, GoogleLoginInput{IDToken: "takeover"})
	requireKind(t, err, apperr.KindUnauthorized)

	var stored model.User
	require.NoError(t, f.db.First(&stored, existing.ID).Error)
	assert.Nil(t, stored.GoogleID)

	_, err = f.svc.LoginWithGoogle(ctx, GoogleLoginInput{IDToken: "granted"})
	requireKind(t, err, apperr.KindUnauthorized)

	var count int64
	require.NoError(t, f.db.Model(&model.User{}).Where("email = ?", "new-hod@uni.edu").Count(&count).Error)
	assert.Zero(t, count)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newAuthFixture(t)
	testutil.CreateUser(t, f.db, "hod@uni.edu", model.RoleHOD, nil, "correct-horse")

	res, err := f.svc.Login(ctx, LoginInput{Email: "hod@uni.edu", Password: "correct-horse"})
	require.NoError(t, err)
	claims, err := f.jwt.ValidateToken(res.Token)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, claims))
	require.NoError(t, f.svc.Logout(ctx, claims), "second logout is a no-op")

	revoked, err := auth.NewBlacklistService(f.db).IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	me, err := f.svc.Me(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "hod@uni.edu", me.Email)

	_, err = f.svc.Me(ctx, 9999)
	requireKind(t, err, apperr.KindNotFound)
}
