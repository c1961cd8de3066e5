package middleware

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

type actorKey struct{}

// RequireCompany rejects tokens without a company scope and stores the
// acting user and company for handlers.
func RequireCompany(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.Unauthorized(w, "unauthorized")
			return
		}

		companyID, ok := claims[jwt.ClaimCompanyID].(string)
		if !ok || companyID == "" {
			response.Forbidden(w, "company_id is required")
			return
		}

		userID, ok := claims[jwt.ClaimUserID].(string)
		if !ok || userID == "" {
			response.Unauthorized(w, "user_id claim missing")
			return
		}

		ctx := WithActor(r.Context(), payroll.Actor{CompanyID: companyID, UserID: userID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func WithActor(ctx context.Context, actor payroll.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor set by RequireCompany.
func ActorFromContext(ctx context.Context) (payroll.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(payroll.Actor)
	return actor, ok
}
