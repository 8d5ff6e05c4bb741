// Package google verifies Google Sign-In ID tokens.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"
)

var (
	// ErrNotConfigured Google Sign-In выключен (не задан client ID)
	ErrNotConfigured = errors.New("google sign-in is not configured")
	// ErrNoEmail токен не содержит email
	ErrNoEmail = errors.New("google token has no email")
	// ErrEmailNotVerified Google явно сообщает, что email не подтвержден
	ErrEmailNotVerified = errors.New("google email is not verified")
)

// Identity данные пользователя из проверенного ID токена
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// Verifier проверяет ID токен Google
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

// validateFunc сигнатура idtoken.Validate
type validateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// IDTokenVerifier проверяет подпись и audience через google.golang.org/api/idtoken
type IDTokenVerifier struct {
	validate validateFunc
	clientID string
}

// NewIDTokenVerifier creates verifier for the OAuth client ID
func NewIDTokenVerifier(clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{
		clientID: clientID,
		validate: idtoken.Validate,
	}
}

// Verify validates the token and extracts the identity
func (v *IDTokenVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	if v.clientID == "" {
		return nil, ErrNotConfigured
	}
	if idToken == "" {
		return nil, errors.New("google token is empty")
	}

	payload, err := v.validate(ctx, idToken, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("validate google token: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrNoEmail
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return nil, ErrEmailNotVerified
	}

	name, _ := payload.Claims["name"].(string)

	return &Identity{
		Subject: payload.Subject,
		Email:   email,
		Name:    strings.TrimSpace(name),
	}, nil
}
