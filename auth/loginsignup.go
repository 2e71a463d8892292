package auth

import (
	"context"
	"net/http"
	"time"

	"shophub/apperr"
	"shophub/globals"
	"shophub/utils"

	"github.com/julienschmidt/httprouter"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SetTokenCookie mirrors the bearer token into an httpOnly cookie.
func SetTokenCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     globals.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   globals.TokenCookieMaxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearTokenCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     globals.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Service) HandleRegister(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var in RegisterInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	view, err := s.Register(ctx, in)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusCreated, view, "User registered successfully")
}

func (s *Service) HandleLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.handleLogin(w, r, s.Login)
}

func (s *Service) HandleAdminLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.handleLogin(w, r, s.AdminLogin)
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request, login func(context.Context, string, string) (*LoginResult, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var in credentials
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	res, err := login(ctx, in.Email, in.Password)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	SetTokenCookie(w, r, res.Token)
	utils.SendResponse(w, http.StatusOK, res, "Login successful")
}

func (s *Service) HandleLogout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	id, ok := utils.IdentityFromRequest(r)
	if !ok {
		utils.RespondWithAppError(w, r, apperr.Unauthorized("authentication required"))
		return
	}
	if err := s.Logout(ctx, id); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	clearTokenCookie(w, r)
	utils.SendResponse(w, http.StatusOK, nil, "User logged out successfully")
}
