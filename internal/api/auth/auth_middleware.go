package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/go-pokedex-api/app/observability/metrics"
	"github.com/FACorreiaa/go-pokedex-api/internal/api"
	"github.com/FACorreiaa/go-pokedex-api/internal/types"
)

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity types.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the identity admitted for the current request.
func IdentityFromContext(ctx context.Context) (types.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(types.Identity)
	return identity, ok
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

// Admission resolves the caller identity from the bearer token and asks the
// access policy whether the route's operation is allowed.
type Admission struct {
	verifier TokenVerifier
	policy   *AccessPolicy
	logger   *slog.Logger
}

func NewAdmission(verifier TokenVerifier, policy *AccessPolicy, logger *slog.Logger) *Admission {
	return &Admission{verifier: verifier, policy: policy, logger: logger}
}

func (a *Admission) identify(r *http.Request) *types.Identity {
	token, ok := BearerToken(r)
	if !ok {
		return nil
	}
	identity, ok := a.verifier.Verify(token)
	if !ok {
		return nil
	}
	return &identity
}

// Require admits the request only when the policy allows op for the caller.
// A missing, malformed or invalid token leaves the caller anonymous.
func (a *Admission) Require(op Operation) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identity := a.identify(r)

			switch decision := a.policy.Evaluate(op, identity); decision {
			case Allow:
				if identity != nil {
					ctx = WithIdentity(ctx, *identity)
				}
				next.ServeHTTP(w, r.WithContext(ctx))
			case Unauthenticated:
				a.deny(ctx, op, decision)
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
			default:
				a.deny(ctx, op, decision)
				api.ErrorResponse(w, r, http.StatusForbidden, "Insufficient permissions")
			}
		})
	}
}

func (a *Admission) deny(ctx context.Context, op Operation, decision Decision) {
	a.logger.DebugContext(ctx, "Request rejected by access policy",
		slog.String("resource", string(op.Resource)),
		slog.String("action", string(op.Action)),
		slog.String("decision", decision.String()))
	metrics.Get().AdmissionDeniedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource", string(op.Resource)),
		attribute.String("decision", decision.String()),
	))
}
