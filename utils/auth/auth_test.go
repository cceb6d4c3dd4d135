package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *JWTManager {
	return NewJWTManager(JWTConfig{Secret: "test-secret", Expiry: time.Hour, Issuer: "kpi-tracker-test"})
}

func TestIssueAndValidate(t *testing.T) {
	m := testManager()
	issued, err := m.Issue(Identity{UserID: 7, Email: "qac@uni.edu", Name: "QAC", Role: "QAC", TokenVersion: 2})
	require.NoError(t, err)
	assert.NotEmpty(t, issued.JTI)

	claims, err := m.ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "qac@uni.edu", claims.Email)
	assert.Equal(t, "QAC", claims.Name)
	assert.Equal(t, "QAC", claims.Role)
	assert.Equal(t, 2, claims.TokenVersion)
	assert.Equal(t, issued.JTI, claims.ID)
}

func TestValidateRejectsExpiredAndForeignTokens(t *testing.T) {
	m := testManager()
	issued, err := m.Issue(Identity{UserID: 1, Email: "a@uni.edu", Role: "HOD"})
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.ValidateToken(issued.Token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	other := NewJWTManager(JWTConfig{Secret: "other", Expiry: time.Hour, Issuer: "kpi-tracker-test"})
	_, err = other.ValidateToken(issued.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = testManager().ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	prev := SetHashCost(4)
	defer SetHashCost(prev)

	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NoError(t, VerifyPassword(hash, "correct horse"))
	assert.ErrorIs(t, VerifyPassword(hash, "wrong horse"), ErrPasswordMismatch)
}

func TestOTP(t *testing.T) {
	prev := SetHashCost(4)
	defer SetHashCost(prev)

	code, err := GenerateOTP()
	require.NoError(t, err)
	assert.Len(t, code, OTPLength)
	assert.Regexp(t, `^\d{6}$`, code)

	hash, err := HashOTP(code)
	require.NoError(t, err)
	assert.NoError(t, VerifyOTP(hash, code))

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	assert.ErrorIs(t, VerifyOTP(hash, wrong), ErrOTPMismatch)
}

func TestGoogleVerifierRequiresClientID(t *testing.T) {
	_, err := NewGoogleVerifier("").Verify("token")
	assert.ErrorIs(t, err, ErrGoogleNotConfigured)
}
