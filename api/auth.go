package api

import (
	"errors"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"coaching-api/domain"
)

const (
	defaultJWKSCacheTTL = 15 * time.Minute

	claimOrgID   = "org_id"
	claimOrgRole = "org_role"
	claimOrgName = "org_name"
)

// errNoOrganization marks a valid session that has not selected an organization.
var errNoOrganization = errors.New("no active organization")

// AuthConfig configures token validation. A non-empty HS256Secret switches
// validation to shared-secret mode for local runs and tests.
type AuthConfig struct {
	Audience    string
	Issuer      string
	HS256Secret []byte
	KeyCacheTTL time.Duration
}

// Auth validates incoming JWT tokens and resolves the caller's scope.
type Auth struct {
	JWKS       *keyfunc.JWKS
	Audience   string
	Issuer     string
	TestMode   bool
	TestSecret []byte

	parser      *jwt.Parser
	keyCache    sync.Map
	keyCacheTTL time.Duration
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

// NewAuth creates a new Auth instance.
func NewAuth(jwks *keyfunc.JWKS, cfg AuthConfig) *Auth {
	a := &Auth{JWKS: jwks, Audience: cfg.Audience, Issuer: cfg.Issuer, keyCacheTTL: cfg.KeyCacheTTL}
	if a.keyCacheTTL == 0 {
		a.keyCacheTTL = defaultJWKSCacheTTL
	}
	if len(cfg.HS256Secret) > 0 {
		a.TestMode = true
		a.TestSecret = cfg.HS256Secret
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	} else {
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	}
	return a
}

// ScopeFromAuthHeader resolves the caller from the Authorization header.
func (a *Auth) ScopeFromAuthHeader(h string) (domain.Scope, error) {
	if h == "" {
		return domain.Scope{}, errMissingAuthorization
	}
	token, err := bearerTokenFromString(h)
	if err != nil {
		return domain.Scope{}, err
	}
	return a.ScopeFromBearer(token)
}

// ScopeFromBearer validates a bearer token presented as raw bytes. A token
// without an organization claim yields the user id together with
// errNoOrganization.
func (a *Auth) ScopeFromBearer(token []byte) (domain.Scope, error) {
	if len(token) == 0 {
		return domain.Scope{}, errBadAuthorization
	}

	tokenStr := readOnlyString(token)
	var parsedToken *jwt.Token
	var err error
	if a.TestMode {
		parsedToken, err = a.parser.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return a.TestSecret, nil
		})
	} else {
		parsedToken, err = a.parser.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			return a.keyForToken(t)
		})
	}
	if err != nil {
		return domain.Scope{}, err
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Scope{}, errors.New("invalid claims")
	}

	now := time.Now().Add(time.Minute).Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return domain.Scope{}, errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return domain.Scope{}, errors.New("token not valid yet")
	}
	if !claims.VerifyIssuedAt(now, false) {
		return domain.Scope{}, errors.New("token used before issued")
	}
	if a.Audience != "" && !claims.VerifyAudience(a.Audience, false) {
		return domain.Scope{}, errors.New("invalid audience")
	}
	if a.Issuer != "" && !claims.VerifyIssuer(a.Issuer, false) {
		return domain.Scope{}, errors.New("invalid issuer")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return domain.Scope{}, errors.New("missing sub")
	}

	scope := domain.Scope{UserID: sub}
	scope.OrgID, _ = claims[claimOrgID].(string)
	scope.OrgRole, _ = claims[claimOrgRole].(string)
	scope.OrgName, _ = claims[claimOrgName].(string)
	if scope.OrgID == "" {
		return scope, errNoOrganization
	}
	return scope, nil
}

func (a *Auth) keyForToken(token *jwt.Token) (any, error) {
	if a.JWKS == nil {
		return nil, errors.New("jwks not configured")
	}

	kid, _ := token.Header["kid"].(string)
	if kid != "" && a.keyCacheTTL > 0 {
		if cached, ok := a.keyCache.Load(kid); ok {
			entry := cached.(cachedKey)
			if time.Now().Before(entry.expiresAt) {
				return entry.key, nil
			}
			a.keyCache.Delete(kid)
		}
	}

	key, err := a.JWKS.Keyfunc(token)
	if err != nil {
		return nil, err
	}

	if kid != "" && a.keyCacheTTL > 0 {
		a.keyCache.Store(kid, cachedKey{key: key, expiresAt: time.Now().Add(a.keyCacheTTL)})
	}
	return key, nil
}
