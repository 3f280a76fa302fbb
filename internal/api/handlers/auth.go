package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/go-contacts/internal/api/dto"
	"github.com/hugh/go-contacts/internal/api/middleware"
	"github.com/hugh/go-contacts/internal/auth"
	"github.com/hugh/go-contacts/internal/avatar"
	"github.com/hugh/go-contacts/internal/database/models"
)

// AvatarProcessor stores an uploaded avatar and returns its public URL.
type AvatarProcessor interface {
	Process(ctx context.Context, userID uuid.UUID, upload avatar.Upload) (string, error)
}

type AuthHandler struct {
	authService auth.Authenticator
	avatars     AvatarProcessor
	maxUpload   int64
	logger      *slog.Logger
}

func NewAuthHandler(authService auth.Authenticator, avatars AvatarProcessor, maxUpload int64, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		avatars:     avatars,
		maxUpload:   maxUpload,
		logger:      logger,
	}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	req, ok := middleware.Body[dto.SignupRequest](r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.authService.Signup(r.Context(), auth.SignupInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			writeError(w, http.StatusConflict, "Email in use")
			return
		}
		internalError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SignupResponse{User: dto.NewUserDTO(user)})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := middleware.Body[dto.LoginRequest](r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.authService.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Email or password is wrong")
		case errors.Is(err, auth.ErrEmailNotVerified):
			writeError(w, http.StatusUnauthorized, "Email is not verified")
		default:
			internalError(w, r, h.logger, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.AuthResponse{
		Token: resp.Token,
		User:  dto.NewUserDTO(resp.User),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), middleware.GetUserID(r.Context())); err != nil {
		internalError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Current(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	writeJSON(w, http.StatusOK, dto.NewUserDTO(user))
}

func (h *AuthHandler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	req, ok := middleware.Body[dto.SubscriptionRequest](r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.authService.UpdateSubscription(r.Context(), middleware.GetUserID(r.Context()), models.Subscription(req.Subscription))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "Not authorized")
			return
		}
		internalError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewUserDTO(user))
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	req, ok := middleware.Body[dto.EmailRequest](r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.authService.ResendVerification(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, auth.ErrAlreadyVerified):
			writeError(w, http.StatusBadRequest, "Verification has already been passed")
		default:
			internalError(w, r, h.logger, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Verification email sent"})
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authService.Verify(r.Context(), chi.URLParam(r, "token")); err != nil {
		if errors.Is(err, auth.ErrVerificationTokenNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		internalError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Verification successful"})
}

// UpdateAvatar accepts a single multipart file field named "avatar".
func (h *AuthHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Missing avatar file")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.Warn("failed to remove multipart files", "error", err)
		}
	}()

	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing avatar file")
		return
	}
	defer file.Close()

	url, err := h.avatars.Process(r.Context(), middleware.GetUserID(r.Context()), avatar.Upload{
		Filename: header.Filename,
		Body:     file,
	})
	if err != nil {
		switch {
		case errors.Is(err, avatar.ErrMissingFile):
			writeError(w, http.StatusBadRequest, "Missing avatar file")
		case errors.Is(err, avatar.ErrUnsupportedImage):
			writeError(w, http.StatusBadRequest, "Unsupported image")
		case errors.Is(err, avatar.ErrImageTooLarge):
			writeError(w, http.StatusBadRequest, "Image dimensions too large")
		default:
			internalError(w, r, h.logger, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.AvatarResponse{AvatarURL: url})
}
