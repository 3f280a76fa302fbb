package tasks

import (
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-contacts/pkg/crypto"
)

// Task type names
const (
	TypeVerificationEmail = "mail:verification"
	TypeAvatarSweep       = "avatars:sweep"
)

// AvatarMaxAge is how old an unreferenced avatar must be before the sweep
// removes it. Uploads still waiting for their DB update are younger.
const AvatarMaxAge = time.Hour

// VerificationEmailPayload is sealed with the encryptor before it is
// enqueued since the token is a live credential.
type VerificationEmailPayload struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

func NewVerificationEmailTask(enc *crypto.Encryptor, payload VerificationEmailPayload) (*asynq.Task, error) {
	data, err := enc.Seal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeVerificationEmail, data), nil
}

// NewAvatarSweepTask has no payload; the sweep checks every stored avatar.
func NewAvatarSweepTask() *asynq.Task {
	return asynq.NewTask(TypeAvatarSweep, nil)
}
