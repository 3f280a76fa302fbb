package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-contacts/internal/auth"
	"github.com/hugh/go-contacts/internal/database"
	"github.com/hugh/go-contacts/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestPassword is the plaintext password of every user made by CreateTestUser.
const TestPassword = "testpassword123"

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Every pooled connection to ":memory:" is a separate database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", time.Hour)
}

// CreateTestUser creates a verified user with TestPassword.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	email := "test-" + uuid.New().String()[:8] + "@example.com"
	user := &models.User{
		Base:         models.Base{ID: uuid.New()},
		Email:        email,
		PasswordHash: hash,
		Subscription: models.SubscriptionStarter,
		AvatarURL:    auth.GravatarURL(email),
		Verify:       true,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateUnverifiedUser creates a user still holding a verification token.
func CreateUnverifiedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	token := auth.NewVerificationToken()
	user := &models.User{
		Email:             auth.NormalizeEmail(email),
		PasswordHash:      hash,
		Subscription:      models.SubscriptionStarter,
		VerificationToken: &token,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create unverified user: %v", err)
	}

	return user
}

// LoginTestUser issues a token for user and stores it as the active session,
// the same way a successful login does.
func LoginTestUser(t *testing.T, db *gorm.DB, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	if err := db.Model(user).Update("token", token).Error; err != nil {
		t.Fatalf("failed to store test token: %v", err)
	}
	user.Token = &token

	return token
}

// ReloadUser reads the user row again.
func ReloadUser(t *testing.T, db *gorm.DB, id uuid.UUID) *models.User {
	t.Helper()

	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	return &user
}

// CreateTestContact creates a contact owned by ownerID.
func CreateTestContact(t *testing.T, db *gorm.DB, ownerID uuid.UUID, name string, favorite bool) *models.Contact {
	t.Helper()

	contact := &models.Contact{
		Name:     name,
		Email:    name + "@example.com",
		Phone:    "+48 1234567890",
		Favorite: favorite,
		OwnerID:  ownerID,
	}

	if err := db.Create(contact).Error; err != nil {
		t.Fatalf("failed to create test contact: %v", err)
	}

	return contact
}

// SentVerification is one call recorded by RecordingNotifier.
type SentVerification struct {
	Email string
	Token string
}

// RecordingNotifier is an auth.Notifier that remembers what it was asked to send.
type RecordingNotifier struct {
	mu   sync.Mutex
	Sent []SentVerification
	Err  error
}

func (n *RecordingNotifier) SendVerification(_ context.Context, email, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.Err != nil {
		return n.Err
	}
	n.Sent = append(n.Sent, SentVerification{Email: email, Token: token})
	return nil
}

// Last returns the most recent verification sent, if any.
func (n *RecordingNotifier) Last() (SentVerification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.Sent) == 0 {
		return SentVerification{}, errors.New("no verification sent")
	}
	return n.Sent[len(n.Sent)-1], nil
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Notifier   *RecordingNotifier
	User       *models.User
	Token      string
}

// NewTestContext creates a DB, a verified logged-in user and its token.
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	user := CreateTestUser(t, db)
	token := LoginTestUser(t, db, jwtService, user)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		Notifier:   &RecordingNotifier{},
		User:       user,
		Token:      token,
	}
}

// AuthService builds an auth.Service over the setup's DB, JWT service and notifier.
func (ts *TestSetup) AuthService() *auth.Service {
	return auth.NewService(ts.DB, ts.JWTService, ts.Notifier)
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		_ = database.Close(ts.DB)
	}
}
