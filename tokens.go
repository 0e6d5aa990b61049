package users

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenValidityDays is the fixed validity window for issued tokens.
// Expiry lands on the start of day so tokens minted during one day all
// share the same cutoff.
const TokenValidityDays = 15

// Token is a decoded bearer token. Raw carries the compact signed form
// handed back to clients; everything else is derived from the claims.
type Token struct {
	Raw       string
	Subject   string
	Issuer    string
	Algorithm string
	ExpiresAt time.Time
}

// TokenProvider signs and verifies the bearer tokens the service
// issues on sign-in. Tokens are fully self describing; nothing is kept
// server side.
type TokenProvider struct {
	signingKey []byte
	issuer     string
	location   *time.Location
	logger     Logger
	now        func() time.Time
}

// NewTokenProvider creates a TokenProvider keyed with the shared
// signing secret. Expiry is computed in loc; pass nil for time.Local.
func NewTokenProvider(signingKey []byte, issuer string, loc *time.Location, logger Logger) *TokenProvider {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenProvider{
		signingKey: signingKey,
		issuer:     issuer,
		location:   loc,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the provider's clock. Test hook.
func (p *TokenProvider) WithClock(now func() time.Time) *TokenProvider {
	if now != nil {
		p.now = now
	}
	return p
}

// ExpiresAt returns the expiry a token issued now would carry: start
// of day, TokenValidityDays from now, in the provider's location.
func (p *TokenProvider) ExpiresAt() time.Time {
	return DateOnly(p.now().In(p.location).AddDate(0, 0, TokenValidityDays))
}

// Issue signs a token for the given subject.
func (p *TokenProvider) Issue(subject string) (*Token, error) {
	now := p.now()
	expiresAt := p.ExpiresAt()

	claims := jwt.RegisteredClaims{
		Issuer:    p.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.signingKey)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token")
	}

	return &Token{
		Raw:       raw,
		Subject:   subject,
		Issuer:    p.issuer,
		Algorithm: jwt.SigningMethodHS256.Alg(),
		ExpiresAt: expiresAt,
	}, nil
}

// Decode verifies signature, issuer and expiry and returns the decoded
// token. Failures collapse into the token error taxonomy.
func (p *TokenProvider) Decode(raw string) (*Token, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			p.logger.Error("token decode: unexpected signing method", "alg", t.Header["alg"])
			return nil, ErrTokenMalformed
		}
		return p.signingKey, nil
	}, jwt.WithIssuer(p.issuer), jwt.WithTimeFunc(p.now))

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	if !token.Valid {
		return nil, ErrTokenMalformed
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time.In(p.location)
	}

	return &Token{
		Raw:       raw,
		Subject:   claims.Subject,
		Issuer:    claims.Issuer,
		Algorithm: token.Method.Alg(),
		ExpiresAt: expiresAt,
	}, nil
}

// Subject extracts the subject claim without verifying the token. Only
// call this on tokens that already went through Decode; anything
// coming off the wire must be verified first.
func (p *TokenProvider) Subject(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return "", ErrTokenMalformed
	}
	return claims.Subject, nil
}
