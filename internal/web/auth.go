package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/PauloHFS/goth-blog/internal/db"
	"github.com/PauloHFS/goth-blog/internal/logging"
	"github.com/PauloHFS/goth-blog/internal/middleware"
	"github.com/PauloHFS/goth-blog/internal/services"
)

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u db.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// @Summary Cadastro
// @Tags auth
// @Accept json
// @Produce json
// @Param user body services.RegisterInput true "Novo usuário"
// @Success 201 {object} map[string]any
// @Failure 400 {object} errorResponse
// @Router /api/auth/signup [post]
func handleSignup(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	logging.AddToEvent(r.Context(), slog.String("operation", "signup"))

	var input services.RegisterInput
	if err := decodeJSON(w, r, &input); err != nil {
		return err
	}

	if _, err := deps.Auth.Register(r.Context(), input); err != nil {
		return err
	}

	logging.AddToEvent(r.Context(), slog.String("outcome", "success"))

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"success": true,
	})
	return nil
}

// @Summary Login
// @Description Troca email e senha por um bearer token.
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body services.LoginInput true "Credenciais"
// @Success 200 {object} map[string]any
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Failure 429 {object} errorResponse
// @Router /api/auth/login [post]
func handleLogin(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	logging.AddToEvent(r.Context(), slog.String("operation", "login"))

	var input services.LoginInput
	if err := decodeJSON(w, r, &input); err != nil {
		return err
	}

	out, err := deps.Auth.Login(r.Context(), input)
	if err != nil {
		return err
	}

	logging.AddToEvent(r.Context(), slog.String("outcome", "success"))

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"success": true,
		"token":   out.Token,
	})
	return nil
}

// @Summary Usuário autenticado
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Failure 401 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /api/auth/me [get]
func handleMe(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	user, err := deps.Auth.Me(r.Context(), middleware.GetRequester(r.Context()))
	if err != nil {
		return err
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "User found",
		"data":    toUserResponse(user),
	})
	return nil
}

// Tokens are not stored server side; the client just drops its copy.
//
// @Summary Logout
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/auth/logout [get]
func handleLogout(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Logout successful",
		"success": true,
	})
	return nil
}
