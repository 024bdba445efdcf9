package middleware

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"bank-ledger/internal/services"
	"bank-ledger/internal/utils"
)

type AuthMiddleware struct {
	sessions *services.SessionService
}

func NewAuthMiddleware(sessions *services.SessionService) *AuthMiddleware {
	utils.LogSuccess("Middleware", "Auth middleware ready")
	return &AuthMiddleware{
		sessions: sessions,
	}
}

// RequireAuth resolves the bearer token to a user before the handler
// runs. Handlers behind it can rely on user_id being set.
func (m *AuthMiddleware) RequireAuth(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		startTime := time.Now()

		authHeader := string(ctx.Request.Header.Peek("Authorization"))
		if authHeader == "" {
			utils.LogWarning("Middleware", "Missing Authorization header")
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			ctx.SetContentType("application/json")
			json.NewEncoder(ctx).Encode(map[string]string{
				"error": "authorization required",
			})
			utils.LogResponse("RequireAuth", fasthttp.StatusUnauthorized, time.Since(startTime))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.LogWarning("Middleware", "Malformed Authorization header")
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			ctx.SetContentType("application/json")
			json.NewEncoder(ctx).Encode(map[string]string{
				"error": "malformed bearer token",
			})
			utils.LogResponse("RequireAuth", fasthttp.StatusUnauthorized, time.Since(startTime))
			return
		}

		token := parts[1]

		userID, err := m.sessions.Validate(ctx, token)
		if err != nil {
			// A session-store outage is not the caller's fault; only a
			// session known to be bad earns a 401.
			if !errors.Is(err, services.ErrSessionInvalid) {
				utils.LogError("Middleware", "Session validation failed", err)
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
				ctx.SetContentType("application/json")
				json.NewEncoder(ctx).Encode(map[string]string{
					"error": "session validation unavailable",
				})
				utils.LogResponse("RequireAuth", fasthttp.StatusInternalServerError, time.Since(startTime))
				return
			}
			utils.LogWarning("Middleware", "Session rejected: %v", err)
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			ctx.SetContentType("application/json")
			json.NewEncoder(ctx).Encode(map[string]string{
				"error": "invalid or expired session",
			})
			utils.LogResponse("RequireAuth", fasthttp.StatusUnauthorized, time.Since(startTime))
			return
		}

		ctx.SetUserValue("user_id", userID)
		ctx.SetUserValue("session_token", token)
		utils.LogDebug("Middleware", "Authenticated user %d", userID)

		next(ctx)
	}
}
