package cli

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/iudanet/inventory/internal/client/storage"
	pkgapi "github.com/iudanet/inventory/pkg/api"
)

func (c *Cli) runRegister(ctx context.Context) error {
	c.io.Println("=== Registration ===")
	c.io.Println()

	fullName, err := c.io.ReadInput("Full name: ")
	if err != nil {
		return fmt.Errorf("failed to read full name: %w", err)
	}
	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}
	password, err := c.io.ReadPassword("Password (min 6 chars): ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := c.io.ReadPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	resp, err := c.public.SignUp(ctx, pkgapi.SignUpRequest{
		FullName:        fullName,
		Email:           email,
		Password:        password,
		ConfirmPassword: confirm,
	})
	if err != nil {
		c.printFieldErrors(err)
		return fmt.Errorf("registration failed: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ " + resp.Message)
	c.io.Println("Open the link from the email or run 'inventory verify -email EMAIL -token TOKEN'.")
	return nil
}

func (c *Cli) runLogin(ctx context.Context) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}
	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	resp, err := c.public.SignIn(ctx, pkgapi.SignInRequest{Email: email, Password: password})
	if err != nil {
		c.printFieldErrors(err)
		return fmt.Errorf("login failed: %w", err)
	}
	return c.startSession(ctx, resp)
}

func (c *Cli) runVerify(ctx context.Context, args []string) error {
	fs := newFlagSet("verify")
	email := fs.String("email", "", "email from the verification link")
	token := fs.String("token", "", "token from the verification link")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *token == "" {
		return fmt.Errorf("usage: inventory verify -email EMAIL -token TOKEN")
	}

	resp, err := c.public.VerifyEmail(ctx, *email, *token)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	return c.startSession(ctx, resp)
}

func (c *Cli) runResend(ctx context.Context, args []string) error {
	fs := newFlagSet("resend")
	email := fs.String("email", "", "registered email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("usage: inventory resend -email EMAIL")
	}

	resp, err := c.public.ResendVerification(ctx, *email)
	if err != nil {
		c.printFieldErrors(err)
		return fmt.Errorf("resend failed: %w", err)
	}
	c.io.Println("✓ " + resp.Message)
	return nil
}

func (c *Cli) runGoogle(ctx context.Context, args []string) error {
	fs := newFlagSet("google")
	idToken := fs.String("id-token", "", "Google ID token")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *idToken == "" {
		return fmt.Errorf("usage: inventory google -id-token TOKEN")
	}

	resp, err := c.public.GoogleSignIn(ctx, *idToken)
	if err != nil {
		return fmt.Errorf("google sign-in failed: %w", err)
	}
	return c.startSession(ctx, resp)
}

func (c *Cli) runLogout(ctx context.Context) error {
	c.io.Println("=== Logout ===")

	// Локальная сессия удаляется даже если сервер недоступен
	serverErr := c.public.Logout(ctx)
	if err := c.session.Logout(ctx); err != nil {
		return fmt.Errorf("failed to clear local session: %w", err)
	}
	if serverErr != nil {
		c.io.Printf("Warning: server logout failed: %v\n", serverErr)
	}

	c.io.Println("✓ Logged out successfully.")
	return nil
}

// startSession сохраняет пользователя и access token после входа
// Refresh cookie уже лежит в cookie jar сессии
func (c *Cli) startSession(ctx context.Context, resp *pkgapi.AuthResponse) error {
	if resp.User == nil || resp.AccessToken == "" {
		return fmt.Errorf("server response has no user or access token")
	}

	user := storage.SessionUser{
		ID:       resp.User.ID,
		FullName: resp.User.FullName,
		Email:    resp.User.Email,
	}
	if err := c.session.Login(ctx, user, resp.AccessToken); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	c.io.Println()
	if resp.Message != "" {
		c.io.Println("✓ " + resp.Message)
	} else {
		c.io.Println("✓ Login successful!")
	}
	c.io.Printf("Signed in as %s <%s>\n", user.FullName, user.Email)
	return nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}
