package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/hugh/go-contacts/internal/auth"
	"github.com/hugh/go-contacts/internal/database/models"
	"github.com/hugh/go-contacts/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestService_Signup(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	svc := tc.AuthService()
	ctx := testutil.TestContext(t)

	t.Run("creates unverified user and sends token", func(t *testing.T) {
		user, err := svc.Signup(ctx, auth.SignupInput{Email: " New@Example.com", Password: "secret123"})
		require.NoError(t, err)

		assert.Equal(t, "new@example.com", user.Email)
		assert.Equal(t, models.SubscriptionStarter, user.Subscription)
		assert.Contains(t, user.AvatarURL, "gravatar.com")
		assert.False(t, user.Verify)
		require.NotNil(t, user.VerificationToken)

		stored := testutil.ReloadUser(t, tc.DB, user.ID)
		assert.False(t, stored.Verify)
		require.NotNil(t, stored.VerificationToken)
		assert.NotEqual(t, "secret123", stored.PasswordHash)
		assert.True(t, auth.CheckPassword("secret123", stored.PasswordHash))

		sent, err := tc.Notifier.Last()
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", sent.Email)
		assert.Equal(t, *stored.VerificationToken, sent.Token)
	})

	t.Run("duplicate email in any case", func(t *testing.T) {
		_, err := svc.Signup(ctx, auth.SignupInput{Email: "NEW@example.com", Password: "secret123"})
		assert.ErrorIs(t, err, auth.ErrUserExists)
	})

	t.Run("notifier failure rolls back the user", func(t *testing.T) {
		failing := &testutil.RecordingNotifier{Err: errors.New("smtp down")}
		svc := auth.NewService(tc.DB, tc.JWTService, failing)

		_, err := svc.Signup(ctx, auth.SignupInput{Email: "rollback@example.com", Password: "secret123"})
		require.Error(t, err)

		var count int64
		tc.DB.Unscoped().Model(&models.User{}).Where("email = ?", "rollback@example.com").Count(&count)
		assert.Zero(t, count)

		// The address is free again once delivery works.
		_, err = svc.Signup(ctx, auth.SignupInput{Email: "rollback@example.com", Password: "secret123"})
		assert.NoError(t, err)
	})

	t.Run("user is committed before the notifier runs", func(t *testing.T) {
		lookup := &lookupNotifier{db: tc.DB}
		svc := auth.NewService(tc.DB, tc.JWTService, lookup)

		_, err := svc.Signup(ctx, auth.SignupInput{Email: "committed@example.com", Password: "secret123"})
		require.NoError(t, err)
		assert.True(t, lookup.found)
	})
}

// lookupNotifier reads the user back through the shared pool while sending.
// The test database has a single connection, so this only succeeds when no
// transaction is holding it.
type lookupNotifier struct {
	db    *gorm.DB
	found bool
}

func (n *lookupNotifier) SendVerification(ctx context.Context, email, token string) error {
	var user models.User
	if err := n.db.WithContext(ctx).Where("email = ? AND verification_token = ?", email, token).First(&user).Error; err != nil {
		return err
	}
	n.found = true
	return nil
}

func TestService_Login(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	svc := tc.AuthService()
	ctx := testutil.TestContext(t)

	t.Run("verified user gets a token bound to their id", func(t *testing.T) {
		resp, err := svc.Login(ctx, auth.LoginInput{Email: tc.User.Email, Password: testutil.TestPassword})
		require.NoError(t, err)

		claims, err := tc.JWTService.ValidateToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, tc.User.ID, claims.UserID)

		stored := testutil.ReloadUser(t, tc.DB, tc.User.ID)
		assert.True(t, stored.HasSession(resp.Token))
	})

	t.Run("login replaces the previous session", func(t *testing.T) {
		first, err := svc.Login(ctx, auth.LoginInput{Email: tc.User.Email, Password: testutil.TestPassword})
		require.NoError(t, err)
		second, err := svc.Login(ctx, auth.LoginInput{Email: tc.User.Email, Password: testutil.TestPassword})
		require.NoError(t, err)

		stored := testutil.ReloadUser(t, tc.DB, tc.User.ID)
		assert.False(t, stored.HasSession(first.Token))
		assert.True(t, stored.HasSession(second.Token))
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.LoginInput{Email: tc.User.Email, Password: "wrong"})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.LoginInput{Email: "nobody@example.com", Password: "whatever"})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unverified user", func(t *testing.T) {
		user := testutil.CreateUnverifiedUser(t, tc.DB, "pending@example.com")

		_, err := svc.Login(ctx, auth.LoginInput{Email: user.Email, Password: testutil.TestPassword})
		assert.ErrorIs(t, err, auth.ErrEmailNotVerified)

		_, err = svc.Login(ctx, auth.LoginInput{Email: user.Email, Password: "wrong"})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestService_Logout(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	require.NoError(t, tc.AuthService().Logout(ctx, tc.User.ID))

	stored := testutil.ReloadUser(t, tc.DB, tc.User.ID)
	assert.Nil(t, stored.Token)
	assert.False(t, stored.HasSession(tc.Token))
}

func TestService_Verify(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	svc := tc.AuthService()
	ctx := testutil.TestContext(t)

	user := testutil.CreateUnverifiedUser(t, tc.DB, "verify@example.com")
	token := *user.VerificationToken

	verified, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, verified.ID)
	assert.True(t, verified.Verify)

	stored := testutil.ReloadUser(t, tc.DB, user.ID)
	assert.True(t, stored.Verify)
	assert.Nil(t, stored.VerificationToken)

	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, auth.ErrVerificationTokenNotFound)

	_, err = svc.Verify(ctx, "")
	assert.ErrorIs(t, err, auth.ErrVerificationTokenNotFound)
}

func TestService_Verify_ConcurrentConsumption(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	svc := tc.AuthService()
	ctx := testutil.TestContext(t)

	user := testutil.CreateUnverifiedUser(t, tc.DB, "race@example.com")
	token := *user.VerificationToken

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Verify(ctx, token); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestService_ResendVerification(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	svc := tc.AuthService()
	ctx := testutil.TestContext(t)

	t.Run("reuses the pending token", func(t *testing.T) {
		user := testutil.CreateUnverifiedUser(t, tc.DB, "resend@example.com")

		require.NoError(t, svc.ResendVerification(ctx, "RESEND@example.com"))

		sent, err := tc.Notifier.Last()
		require.NoError(t, err)
		assert.Equal(t, *user.VerificationToken, sent.Token)
	})

	t.Run("mints a token when none is stored", func(t *testing.T) {
		user := testutil.CreateUnverifiedUser(t, tc.DB, "notoken@example.com")
		require.NoError(t, tc.DB.Model(user).Update("verification_token", nil).Error)

		require.NoError(t, svc.ResendVerification(ctx, user.Email))

		stored := testutil.ReloadUser(t, tc.DB, user.ID)
		require.NotNil(t, stored.VerificationToken)
		sent, err := tc.Notifier.Last()
		require.NoError(t, err)
		assert.Equal(t, *stored.VerificationToken, sent.Token)
	})

	t.Run("already verified", func(t *testing.T) {
		err := svc.ResendVerification(ctx, tc.User.Email)
		assert.ErrorIs(t, err, auth.ErrAlreadyVerified)
	})

	t.Run("unknown email", func(t *testing.T) {
		err := svc.ResendVerification(ctx, "ghost@example.com")
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})
}

func TestService_UpdateAvatarURL(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	svc := tc.AuthService()
	ctx := testutil.TestContext(t)

	require.NoError(t, svc.UpdateAvatarURL(ctx, tc.User.ID, "/avatars/x.png"))
	assert.Equal(t, "/avatars/x.png", testutil.ReloadUser(t, tc.DB, tc.User.ID).AvatarURL)

	err := svc.UpdateAvatarURL(ctx, uuid.New(), "/avatars/y.png")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestService_UpdateSubscription(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	svc := tc.AuthService()
	ctx := testutil.TestContext(t)

	user, err := svc.UpdateSubscription(ctx, tc.User.ID, models.SubscriptionPro)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionPro, user.Subscription)

	_, err = svc.UpdateSubscription(ctx, uuid.New(), models.SubscriptionPro)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestService_GetUserByID(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	svc := tc.AuthService()
	ctx := testutil.TestContext(t)

	user, err := svc.GetUserByID(ctx, tc.User.ID)
	require.NoError(t, err)
	assert.Equal(t, tc.User.Email, user.Email)

	_, err = svc.GetUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}
