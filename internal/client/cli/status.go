package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runStatus() error {
	c.io.Println("=== Session Status ===")
	c.io.Println()

	user := c.session.User()
	if user == nil || !c.session.IsAuthenticated() {
		c.io.Println("Status: Not authenticated")
		c.io.Println()
		c.io.Println("Run 'inventory login' to authenticate.")
		return nil
	}

	c.io.Println("Status: Authenticated")
	c.io.Printf("User:  %s\n", user.FullName)
	c.io.Printf("Email: %s\n", user.Email)

	expiresAt, ok := c.session.RefreshExpiresAt()
	if !ok {
		c.io.Println("⚠️  No refresh cookie. You will need to login again when the access token expires.")
		return nil
	}
	c.io.Printf("Session expires: %s\n", expiresAt.Format(time.RFC3339))
	if remaining := time.Until(expiresAt); remaining > 0 {
		c.io.Printf("Time remaining: %s\n", remaining.Round(time.Second))
	}
	return nil
}

// runMe запрашивает пользователя у сервера, проверяя токен
func (c *Cli) runMe(ctx context.Context) error {
	if err := c.requireLogin(); err != nil {
		return err
	}

	user, err := c.user.Me(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	c.io.Printf("ID:        %s\n", user.ID)
	c.io.Printf("Full name: %s\n", user.FullName)
	c.io.Printf("Email:     %s\n", user.Email)
	return nil
}
