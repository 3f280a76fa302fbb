package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-contacts/internal/avatar"
	"github.com/hugh/go-contacts/internal/database/models"
	"github.com/hugh/go-contacts/internal/mail"
	"github.com/hugh/go-contacts/pkg/crypto"
	"gorm.io/gorm"
)

type Handler struct {
	db        *gorm.DB
	logger    *slog.Logger
	encryptor *crypto.Encryptor
	sender    mail.Sender
	storage   avatar.Storage
	baseURL   string
}

func NewHandler(db *gorm.DB, logger *slog.Logger, encryptor *crypto.Encryptor, sender mail.Sender, storage avatar.Storage, baseURL string) *Handler {
	return &Handler{
		db:        db,
		logger:    logger,
		encryptor: encryptor,
		sender:    sender,
		storage:   storage,
		baseURL:   baseURL,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeVerificationEmail, h.HandleVerificationEmail)
	mux.HandleFunc(TypeAvatarSweep, h.HandleAvatarSweep)
}

func (h *Handler) HandleVerificationEmail(ctx context.Context, t *asynq.Task) error {
	var payload VerificationEmailPayload
	if err := h.encryptor.Open(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	var user models.User
	err := h.db.WithContext(ctx).Where("email = ?", payload.Email).First(&user).Error
	if err != nil {
		// The signup transaction may not have committed yet; let asynq retry.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %s not found yet", payload.Email)
		}
		return err
	}

	if user.Verify || user.VerificationToken == nil || *user.VerificationToken != payload.Token {
		h.logger.Info("skipping stale verification email", "user_id", user.ID)
		return nil
	}

	msg, err := mail.RenderVerification(h.baseURL, payload.Email, payload.Token)
	if err != nil {
		return fmt.Errorf("rendering verification email: %w", err)
	}

	if err := h.sender.Send(ctx, msg); err != nil {
		return err
	}

	h.logger.Info("sent verification email", "user_id", user.ID)
	return nil
}

func (h *Handler) HandleAvatarSweep(ctx context.Context, _ *asynq.Task) error {
	var urls []string
	err := h.db.WithContext(ctx).
		Model(&models.User{}).
		Where("avatar_url <> ''").
		Pluck("avatar_url", &urls).Error
	if err != nil {
		return fmt.Errorf("loading avatar urls: %w", err)
	}

	inUse := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		inUse[u] = struct{}{}
	}

	removed, err := avatar.Sweep(ctx, h.storage, inUse, time.Now().Add(-AvatarMaxAge))
	if err != nil {
		h.logger.Error("avatar sweep failed", "removed", removed, "error", err)
		return err
	}

	h.logger.Info("avatar sweep completed", "removed", removed)
	return nil
}
