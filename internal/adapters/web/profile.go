package web

import (
	"net/http"

	"puerto-real/internal/app"
)

// profile handles GET /api/profile.
func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	res, err := h.svc.GetProfile(r.Context(), user.ID)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// updateProfile handles PATCH /api/profile. Only the display name is editable.
func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName string `json:"displayName"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	user := userFromContext(r.Context())
	res, err := h.svc.UpdateDisplayName(r.Context(), user.ID, req.DisplayName)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// changePassword handles POST /api/profile/password.
func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	user := userFromContext(r.Context())
	err := h.svc.ChangePassword(r.Context(), app.ChangePasswordRequest{
		UserID:          user.ID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// preferences handles GET /api/preferences.
func (h *Handler) preferences(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	prefs, err := h.svc.GetPreferences(r.Context(), user.ID)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, prefs)
}

// updatePreferences handles PUT /api/preferences.
func (h *Handler) updatePreferences(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DarkMode      bool `json:"darkMode"`
		Notifications bool `json:"notifications"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	user := userFromContext(r.Context())
	prefs, err := h.svc.UpdatePreferences(r.Context(), user.ID, app.PreferencesRequest{
		DarkMode:      req.DarkMode,
		Notifications: req.Notifications,
	})
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, prefs)
}
