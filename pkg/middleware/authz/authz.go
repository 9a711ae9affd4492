// Package authz provides authentication and authorization middleware components.
package authz

import (
	"strings"

	"github.com/nimburion/taskboard/pkg/auth"
	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/server/router"
	"github.com/nimburion/taskboard/pkg/service"
)

// ClaimsKey is the context key for storing JWT claims.
const ClaimsKey = "claims"

// Authenticate validates the Bearer token in the Authorization header and
// stores its claims on the router context and the request context.
func Authenticate(validator auth.JWTValidator) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return controller.Error(c, controller.NewUnauthorizedError("missing authorization header"))
			}
			scheme, token, ok := strings.Cut(authHeader, " ")
			token = strings.TrimSpace(token)
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				return controller.Error(c, controller.NewUnauthorizedError("invalid authorization header format"))
			}

			claims, err := validator.Validate(c.Request().Context(), token)
			if err != nil {
				return controller.Error(c, controller.NewUnauthorizedError("invalid or expired token"))
			}

			c.Set(ClaimsKey, claims)
			c.SetRequest(c.Request().WithContext(auth.WithClaims(c.Request().Context(), claims)))
			return next(c)
		}
	}
}

// RequireRoles lets the request through when the caller holds any of roles.
func RequireRoles(roles ...string) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			claims := ClaimsFrom(c)
			if claims == nil {
				return controller.Error(c, controller.NewUnauthorizedError("missing authentication"))
			}
			for _, role := range roles {
				if claims.HasRole(role) {
					return next(c)
				}
			}
			appErr := controller.NewForbiddenError("insufficient permissions")
			appErr.Details = map[string]interface{}{"required_roles": roles}
			return controller.Error(c, appErr)
		}
	}
}

// ClaimsFrom returns the claims stored by Authenticate, or nil.
func ClaimsFrom(c router.Context) *auth.Claims {
	if claims, ok := c.Get(ClaimsKey).(*auth.Claims); ok && claims != nil {
		return claims
	}
	return auth.GetClaims(c.Request().Context())
}

// Actor converts the caller's claims into a service actor.
func Actor(c router.Context) (service.Actor, bool) {
	claims := ClaimsFrom(c)
	if claims == nil {
		return service.Actor{}, false
	}
	return service.Actor{UserID: claims.Subject, Roles: claims.Roles}, true
}
