package turborest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Identity is what the external auth collaborator yields for a request: the
// acting user and the tenant every persistence call is scoped to.
type Identity struct {
	User   string
	Tenant string
}

type identityCtxKey struct{}

// WithIdentity returns a derived context carrying the resolved identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext extracts the identity and whether one is attached.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}

// VerifyFunc validates the incoming token and returns its claims map.
type VerifyFunc func(ctx context.Context, token string) (map[string]any, error)

// ExtractFunc converts a claims map into an Identity.
type ExtractFunc func(claims map[string]any) (Identity, error)

// ExtractBearerToken pulls the bearer token out of the Authorization header.
func ExtractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	const prefix = "Bearer "
	if len(authHeader) < len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(authHeader[len(prefix):]), true
}

// Authenticate returns middleware resolving the request identity through the
// provided verify/extract pair. A failed resolution is rendered through the
// exception taxonomy as AuthenticationError (401); nothing downstream runs
// without an identity on the context.
func Authenticate(verify VerifyFunc, extract ExtractFunc) func(http.Handler) http.Handler {
	if verify == nil {
		panic("turborest: Authenticate requires a verify func")
	}
	if extract == nil {
		extract = DefaultIdentityExtractor
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, found := ExtractBearerToken(r)
			if !found {
				NewAuthenticationError("MissingToken", "no bearer token on request").WriteResponse(w)
				return
			}

			claims, err := verify(r.Context(), token)
			if err != nil {
				NewAuthenticationError("InvalidToken", err.Error()).WriteResponse(w)
				return
			}

			identity, err := extract(claims)
			if err != nil {
				NewAuthenticationError("InvalidClaims", err.Error()).WriteResponse(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// DefaultIdentityExtractor reads the user from the first present of
// uid/user_id/sub and the tenant from the tenant claim.
func DefaultIdentityExtractor(claims map[string]any) (Identity, error) {
	if claims == nil {
		return Identity{}, errors.New("missing claims")
	}

	user := ""
	for _, key := range []string{"uid", "user_id", "sub"} {
		if v, ok := claims[key].(string); ok && v != "" {
			user = v
			break
		}
	}
	if user == "" {
		return Identity{}, errors.New("no user claim")
	}

	tenant, _ := claims["tenant"].(string)
	if tenant == "" {
		return Identity{}, errors.New("no tenant claim")
	}

	return Identity{User: user, Tenant: tenant}, nil
}

// UnsignedTokenVerifier decodes the payload of an unsigned JWT without any
// signature check. Development and CI only; production deployments plug in a
// real verifier.
func UnsignedTokenVerifier() VerifyFunc {
	return func(_ context.Context, token string) (map[string]any, error) {
		parts := strings.Split(token, ".")
		if len(parts) < 2 {
			return nil, errors.New("invalid token format")
		}

		payload := parts[1]
		switch len(payload) % 4 {
		case 2:
			payload += "=="
		case 3:
			payload += "="
		}

		decoded, err := base64.URLEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}

		claims := make(map[string]any)
		if err := json.Unmarshal(decoded, &claims); err != nil {
			return nil, fmt.Errorf("unmarshal claims: %w", err)
		}
		return claims, nil
	}
}

// StaticIdentity attaches a fixed identity to every request without looking
// at credentials, mirroring the demo-tenant middleware of early deployments.
// Samples and tests only.
func StaticIdentity(id Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
