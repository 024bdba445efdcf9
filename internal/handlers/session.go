package handlers

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"

	"bank-ledger/internal/services"
	"bank-ledger/internal/utils"
)

type SessionHandler struct {
	sessions *services.SessionService
}

func NewSessionHandler(sessions *services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Logout handles POST /logout. With ?all=1 every session of the caller
// is terminated, otherwise only the one presented in this request.
func (h *SessionHandler) Logout(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := ctx.UserValue("user_id").(int64)
	if !ok {
		utils.LogError("SessionHandler", "user_id missing from request context", nil)
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetContentType("application/json")
		json.NewEncoder(ctx).Encode(map[string]string{"error": "unauthorized"})
		utils.LogResponse("/logout", fasthttp.StatusUnauthorized, time.Since(startTime))
		return
	}

	utils.LogRequest("POST", "/logout", userID)

	var err error
	if ctx.QueryArgs().GetBool("all") {
		err = h.sessions.LogoutAll(ctx, userID)
	} else {
		token, _ := ctx.UserValue("session_token").(string)
		err = h.sessions.Logout(ctx, token)
	}

	if err != nil {
		utils.LogError("SessionHandler", "Logout failed", err)
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetContentType("application/json")
		json.NewEncoder(ctx).Encode(map[string]string{"error": "logout failed"})
		utils.LogResponse("/logout", fasthttp.StatusInternalServerError, time.Since(startTime))
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(map[string]string{"message": "logged out"})

	utils.LogResponse("/logout", fasthttp.StatusOK, time.Since(startTime))
}
