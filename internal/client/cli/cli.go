// Package cli команды клиента inventory.
package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/inventory/internal/client/api"
	"github.com/iudanet/inventory/internal/client/iocli"
	"github.com/iudanet/inventory/internal/client/storage"
	pkgapi "github.com/iudanet/inventory/pkg/api"
)

// ErrNotAuthenticated команда требует входа
var ErrNotAuthenticated = errors.New("not authenticated. Please run 'inventory login' first")

// AuthAPI публичные маршруты /api/auth
type AuthAPI interface {
	SignUp(ctx context.Context, req pkgapi.SignUpRequest) (*pkgapi.MessageResponse, error)
	SignIn(ctx context.Context, req pkgapi.SignInRequest) (*pkgapi.AuthResponse, error)
	VerifyEmail(ctx context.Context, email, token string) (*pkgapi.AuthResponse, error)
	ResendVerification(ctx context.Context, email string) (*pkgapi.MessageResponse, error)
	GoogleSignIn(ctx context.Context, idToken string) (*pkgapi.AuthResponse, error)
	Logout(ctx context.Context) error
}

// UserAPI маршруты, требующие access token
type UserAPI interface {
	Me(ctx context.Context) (*pkgapi.User, error)
	ListProducts(ctx context.Context, q api.ProductQuery) (*pkgapi.ProductListResponse, error)
	CreateProduct(ctx context.Context, req pkgapi.CreateProductRequest) (*pkgapi.Product, error)
	UpdateProduct(ctx context.Context, id string, req pkgapi.UpdateProductRequest) (*pkgapi.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// Session состояние входа
type Session interface {
	Login(ctx context.Context, user storage.SessionUser, accessToken string) error
	Logout(ctx context.Context) error
	User() *storage.SessionUser
	IsAuthenticated() bool
	RefreshExpiresAt() (time.Time, bool)
}

// Cli выполняет команды пользователя
type Cli struct {
	io      iocli.IO
	public  AuthAPI
	user    UserAPI
	session Session
}

// New создает Cli
// public ходит без bearer, user через interceptor
func New(io iocli.IO, public AuthAPI, user UserAPI, session Session) *Cli {
	return &Cli{
		io:      io,
		public:  public,
		user:    user,
		session: session,
	}
}

// Run выполняет команду args[0]
func (c *Cli) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.PrintUsage()
		return errors.New("missing command")
	}

	command, rest := args[0], args[1:]
	switch command {
	case "register":
		return c.runRegister(ctx)
	case "login":
		return c.runLogin(ctx)
	case "verify":
		return c.runVerify(ctx, rest)
	case "resend":
		return c.runResend(ctx, rest)
	case "google":
		return c.runGoogle(ctx, rest)
	case "logout":
		return c.runLogout(ctx)
	case "me":
		return c.runMe(ctx)
	case "status":
		return c.runStatus()
	case "products":
		return c.runProducts(ctx, rest)
	case "help":
		c.PrintUsage()
		return nil
	default:
		c.PrintUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

// PrintUsage печатает справку
func (c *Cli) PrintUsage() {
	c.io.Println("Inventory Client")
	c.io.Println()
	c.io.Println("Usage:")
	c.io.Println("  inventory [OPTIONS] COMMAND")
	c.io.Println()
	c.io.Println("Options:")
	c.io.Println("  -version       Show version information")
	c.io.Println("  -server URL    Server URL (default: $INVENTORY_SERVER or http://localhost:8080)")
	c.io.Println("  -db PATH       Path to local session database (default: inventory-client.db)")
	c.io.Println()
	c.io.Println("Commands:")
	c.io.Println("  register                              Create an account")
	c.io.Println("  login                                 Sign in with email and password")
	c.io.Println("  verify -email EMAIL -token TOKEN      Confirm email from the verification link")
	c.io.Println("  resend -email EMAIL                   Send the verification email again")
	c.io.Println("  google -id-token TOKEN                Sign in with a Google ID token")
	c.io.Println("  logout                                Sign out")
	c.io.Println("  me                                    Show the signed-in user")
	c.io.Println("  status                                Show local session status")
	c.io.Println("  products list [-search S] [-page N] [-limit N]")
	c.io.Println("  products add [-name N] [-description D] [-price P] [-quantity Q]")
	c.io.Println("  products update ID [-name N] [-description D] [-price P] [-quantity Q]")
	c.io.Println("  products delete ID")
}

func (c *Cli) requireLogin() error {
	if !c.session.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return nil
}

// printFieldErrors печатает ошибки валидации полей из ответа сервера
func (c *Cli) printFieldErrors(err error) {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return
	}
	for _, f := range apiErr.Fields {
		c.io.Printf("  %s: %s\n", f.Field, f.Message)
	}
}
