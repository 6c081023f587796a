package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"puerto-real/internal/app"
	"puerto-real/internal/core"
)

const sessionCookie = "auth_token"

type authUserKey struct{}

// userFromContext returns the authenticated user stored in ctx, or nil.
func userFromContext(ctx context.Context) *core.User {
	v, _ := ctx.Value(authUserKey{}).(*core.User)
	return v
}

// sessionToken reads the bearer token first and falls back to the session
// cookie.
func sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireAuth is chi middleware that validates the session token and injects
// the user into the request context. Returns 401 if the token is absent or invalid.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			writeError(w, r, "authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		res, err := h.svc.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, r, "invalid or expired token", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), authUserKey{}, res.User)
		ctx = h.log.WithUserID(ctx, res.User.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// signUp handles POST /api/auth/signup.
func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req core.SignUpInput
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.SignUp(r.Context(), req)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, res)
}

// login handles POST /api/auth/login.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteStrictMode,
		Expires:  session.ExpiresAt,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
	})
	writeJSON(w, session)
}

// logout handles POST /api/auth/logout and clears the auth cookie.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

// forgotPassword handles POST /api/auth/forgot-password.
func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}

	type response struct {
		Message string `json:"message"`
		Token   string `json:"token,omitempty"`
	}
	out := response{Message: "password reset instructions were sent to " + res.Email}
	if h.opts.ExposeResetTokens {
		out.Token = res.Token
	}
	writeJSONStatus(w, http.StatusAccepted, out)
}

// resetPassword handles POST /api/auth/reset-password.
func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token           string `json:"token"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.svc.ResetPassword(r.Context(), app.ResetPasswordRequest{
		Token:           req.Token,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// me handles GET /api/auth/me.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, userFromContext(r.Context()))
}
