package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"taskboard/internal/auth"
	"taskboard/internal/models"
	"taskboard/internal/storage"
	"taskboard/internal/textclean"
)

// Registration is the payload of a sign-up request.
type Registration struct {
	FullName         string
	Email            string
	Password         string
	RepeatedPassword string
}

const invalidLogin = "Invalid email or password."

// Register validates the registration and creates the account.
func (s *Service) Register(ctx context.Context, r Registration) (models.User, error) {
	fullName := textclean.Normalize(r.FullName)
	email := strings.TrimSpace(r.Email)

	v := newValidator()
	v.check(fullName != "", "fullname", "This field is required.")
	v.check(textclean.Len(fullName) <= 150, "fullname", "Ensure this field has no more than 150 characters.")
	v.checkEmail("email", email)
	v.check(r.Password != "", "password", "This field is required.")
	v.check(textclean.Len(r.Password) >= 8, "password", "This password is too short. It must contain at least 8 characters.")
	v.check(len(r.Password) <= 72, "password", "This password is too long. It must be at most 72 bytes long.")
	v.check(r.RepeatedPassword != "", "repeated_password", "This field is required.")
	if !v.failed("password") && !v.failed("repeated_password") {
		v.check(r.Password == r.RepeatedPassword, "password", "Password fields didn't match.")
	}
	if err := v.err(); err != nil {
		return models.User{}, err
	}

	hash, err := auth.HashPassword(r.Password)
	if err != nil {
		return models.User{}, err
	}

	u, err := s.store.CreateUser(ctx, models.User{Email: email, FullName: fullName, PasswordHash: hash})
	if errors.Is(err, storage.ErrConflict) {
		return models.User{}, invalid("email", "A user with this email already exists.")
	}
	if err != nil {
		return models.User{}, fmt.Errorf("register: %w", err)
	}
	s.logger.Info("user registered", slog.Int64("user_id", u.ID))
	return u, nil
}

// Authenticate verifies email and password. Unknown emails and wrong
// passwords fail with the same message.
func (s *Service) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	email = strings.TrimSpace(email)

	v := newValidator()
	v.check(email != "", "email", "This field is required.")
	v.check(password != "", "password", "This field is required.")
	if err := v.err(); err != nil {
		return models.User{}, err
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return models.User{}, invalid("non_field_errors", invalidLogin)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("authenticate: %w", err)
	}

	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return models.User{}, invalid("non_field_errors", invalidLogin)
		}
		return models.User{}, err
	}
	return u, nil
}

// UserByID resolves an account by id.
func (s *Service) UserByID(ctx context.Context, id int64) (models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	return resolve(u, err, "user", id)
}

// UserByEmail looks up an account by its exact email.
func (s *Service) UserByEmail(ctx context.Context, email string) (models.User, error) {
	email = strings.TrimSpace(email)
	v := newValidator()
	v.checkEmail("email", email)
	if err := v.err(); err != nil {
		return models.User{}, err
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return models.User{}, &NotFoundError{Resource: "user"}
	}
	if err != nil {
		return models.User{}, fmt.Errorf("lookup email: %w", err)
	}
	return u, nil
}
