//go:build ignore

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/hugh/go-contacts/internal/auth"
	"github.com/hugh/go-contacts/internal/contacts"
	"github.com/hugh/go-contacts/internal/database"
	"github.com/hugh/go-contacts/pkg/config"
	"github.com/hugh/go-contacts/pkg/util"
	"github.com/joho/godotenv"
)

// tokenCapture keeps the verification token instead of mailing it.
type tokenCapture struct {
	token string
}

func (c *tokenCapture) SendVerification(_ context.Context, _, token string) error {
	c.token = token
	return nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	ctx := context.Background()
	capture := &tokenCapture{}
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService, capture)

	email := os.Getenv("SEED_EMAIL")
	password := os.Getenv("SEED_PASSWORD")
	if email == "" {
		email = "demo@example.com"
	}
	if password == "" {
		password = "demo12345"
	}

	user, err := authService.Signup(ctx, auth.SignupInput{Email: email, Password: password})
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			fmt.Printf("Demo user already exists: %s\n", email)
			return
		}
		log.Fatalf("failed to create demo user: %v", err)
	}

	if _, err := authService.Verify(ctx, capture.token); err != nil {
		log.Fatalf("failed to verify demo user: %v", err)
	}

	contactService := contacts.NewService(db)
	seed := []contacts.CreateInput{
		{Name: "Allen Raymond", Email: "nulla.ante@vestibul.co.uk", Phone: "+48 1234567890"},
		{Name: "Chaim Lewis", Email: "dui.in@egetlacus.ca", Phone: "2948296134"},
		{Name: "Kennedy Lane", Email: "mattis.cras@nonenimmauris.net", Phone: "+1 9142234550"},
		{Name: "Wylie Pope", Email: "est@utquamvel.net", Phone: "4700102530"},
	}
	for _, in := range seed {
		if _, err := contactService.Create(ctx, user.ID, in); err != nil {
			log.Fatalf("failed to create contact %s: %v", in.Name, err)
		}
	}

	fmt.Printf("Demo user created successfully!\n")
	fmt.Printf("Email: %s\n", user.Email)
	fmt.Printf("Contacts: %d\n", len(seed))
}
