package auth

import (
	"errors"
	"strings"

	verifier "github.com/futurenda/google-auth-id-token-verifier"
)

var ErrGoogleNotConfigured = errors.New("google login is not configured")

// GoogleIdentity is what the service needs from a verified Google ID token.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// GoogleVerifier verifies a Google ID token.
type GoogleVerifier interface {
	Verify(idToken string) (*GoogleIdentity, error)
}

type googleIDTokenVerifier struct {
	clientID string
	v        verifier.Verifier
}

// NewGoogleVerifier checks tokens against Google's published certificates and
// the configured client id.
func NewGoogleVerifier(clientID string) GoogleVerifier {
	return &googleIDTokenVerifier{clientID: clientID}
}

func (g *googleIDTokenVerifier) Verify(idToken string) (*GoogleIdentity, error) {
	if g.clientID == "" {
		return nil, ErrGoogleNotConfigured
	}
	if err := g.v.VerifyIDToken(idToken, []string{g.clientID}); err != nil {
		return nil, err
	}

	claims, err := verifier.Decode(idToken)
	if err != nil {
		return nil, err
	}
	if claims.Email == "" {
		return nil, errors.New("google token has no email")
	}

	return &GoogleIdentity{
		Subject:       claims.Sub,
		Email:         strings.ToLower(strings.TrimSpace(claims.Email)),
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}
