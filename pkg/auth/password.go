package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserRecord is the subset of the User row the password backend needs.
type UserRecord struct {
	ID           uuid.UUID
	PasswordHash string
	Email        string
}

// UserRepo is the narrow slice of pkg/user.Store the password backend calls
// against, kept as an interface here to avoid an import cycle between
// pkg/auth and pkg/user.
type UserRepo interface {
	GetByUsername(ctx context.Context, username string) (*UserRecord, error)
	GetByEmail(ctx context.Context, email string) (*UserRecord, error)
	Create(ctx context.Context, username, email, passwordHash, domain string) (uuid.UUID, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	SaveResetCode(ctx context.Context, userID uuid.UUID, code string, expiresAt time.Time) error
	ConsumeResetCode(ctx context.Context, code string) (uuid.UUID, error)
}

// Mailer sends the single-use password reset code to an external address.
// The control plane has no first-party mail provider in its dependency set,
// so this stays a minimal interface the caller wires up (e.g. SendGrid over
// plain net/http, using SENDGRID_KEY from config).
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// PasswordBackend implements Backend using a salted bcrypt hash stored
// alongside the User row, plus short-lived single-use reset codes.
type PasswordBackend struct {
	repo   UserRepo
	mailer Mailer
}

// NewPasswordBackend creates a password/email identity backend.
func NewPasswordBackend(repo UserRepo, mailer Mailer) *PasswordBackend {
	return &PasswordBackend{repo: repo, mailer: mailer}
}

// Authenticate verifies a username/password pair.
func (b *PasswordBackend) Authenticate(ctx context.Context, username, password string) (uuid.UUID, error) {
	rec, err := b.repo.GetByUsername(ctx, username)
	if err != nil {
		return uuid.Nil, fmt.Errorf("looking up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
		return uuid.Nil, fmt.Errorf("invalid credentials")
	}
	return rec.ID, nil
}

// CreateUser hashes the password and creates a new User row.
func (b *PasswordBackend) CreateUser(ctx context.Context, username, email, password string) (uuid.UUID, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, fmt.Errorf("hashing password: %w", err)
	}
	return b.repo.Create(ctx, username, email, string(hash), "")
}

// DeleteUser removes a user's credentials.
func (b *PasswordBackend) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return b.repo.Delete(ctx, userID)
}

// ResetPassword mails a short-lived single-use reset code.
func (b *PasswordBackend) ResetPassword(ctx context.Context, email string) error {
	rec, err := b.repo.GetByEmail(ctx, email)
	if err != nil {
		// Do not leak whether the email exists.
		return nil
	}

	code, err := generateResetCode()
	if err != nil {
		return fmt.Errorf("generating reset code: %w", err)
	}

	if err := b.repo.SaveResetCode(ctx, rec.ID, code, time.Now().Add(30*time.Minute)); err != nil {
		return fmt.Errorf("saving reset code: %w", err)
	}

	if b.mailer != nil {
		body := fmt.Sprintf("Your password reset code is %s. It expires in 30 minutes.", code)
		if err := b.mailer.Send(ctx, email, "Reset your password", body); err != nil {
			return fmt.Errorf("sending reset email: %w", err)
		}
	}
	return nil
}

// CompletePasswordReset consumes a reset code and sets a new password.
func (b *PasswordBackend) CompletePasswordReset(ctx context.Context, code, newPassword string) error {
	userID, err := b.repo.ConsumeResetCode(ctx, code)
	if err != nil {
		return fmt.Errorf("invalid or expired reset code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return b.repo.SetPasswordHash(ctx, userID, string(hash))
}

func generateResetCode() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
