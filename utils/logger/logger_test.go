package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactMasksCredentialKeys(t *testing.T) {
	out := redact([]interface{}{
		"email", "hod@uni.edu",
		"password", "hunter22",
		"otp_code", "123456",
		"access_token", "abc",
		"pillar_id", 7,
	})

	assert.Equal(t, []interface{}{
		"email", "hod@uni.edu",
		"password", "[REDACTED]",
		"otp_code", "[REDACTED]",
		"access_token", "[REDACTED]",
		"pillar_id", 7,
	}, out)
}

func TestRedactKeepsDanglingKey(t *testing.T) {
	out := redact([]interface{}{"pillar_id", 1, "orphan"})
	assert.Equal(t, []interface{}{"pillar_id", 1, "orphan"}, out)
}
