package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/iudanet/inventory/pkg/api"
)

// Doer выполняет HTTP запрос (*http.Client или interceptor.Client)
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Error ответ сервера с неуспешным статусом
type Error struct {
	Message    string
	Fields     []api.FieldError
	StatusCode int
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return e.Message
}

// StatusCode возвращает HTTP статус из *Error в цепочке, 0 если его нет
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	http    Doer
	baseURL string
}

// NewClient создает новый API клиент
// Для публичных маршрутов doer это *http.Client с cookie jar сессии,
// для защищенных это interceptor
func NewClient(baseURL string, doer Doer) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
	}
}

// SignUp регистрирует нового пользователя
func (c *Client) SignUp(ctx context.Context, req api.SignUpRequest) (*api.MessageResponse, error) {
	var resp api.MessageResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/signUp", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SignIn выполняет вход по email и паролю
// Refresh cookie сохраняется в jar клиента
func (c *Client) SignIn(ctx context.Context, req api.SignInRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/signIn", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyEmail подтверждает email и выполняет вход
func (c *Client) VerifyEmail(ctx context.Context, email, token string) (*api.AuthResponse, error) {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", token)

	var resp api.AuthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/auth/verify-email?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResendVerification повторно отправляет письмо подтверждения
func (c *Client) ResendVerification(ctx context.Context, email string) (*api.MessageResponse, error) {
	var resp api.MessageResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/auth/resend-verification", api.ResendVerificationRequest{Email: email}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GoogleSignIn выполняет вход по Google ID токену
func (c *Client) GoogleSignIn(ctx context.Context, idToken string) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/google-signIn", api.GoogleSignInRequest{Token: idToken}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RefreshToken получает новый access token по refresh cookie
func (c *Client) RefreshToken(ctx context.Context) (string, error) {
	var resp api.RefreshResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/auth/refresh-token", nil, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", errors.New("refresh response has no access token")
	}
	return resp.AccessToken, nil
}

// Logout просит сервер удалить refresh cookie
func (c *Client) Logout(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Me возвращает текущего пользователя
func (c *Client) Me(ctx context.Context) (*api.User, error) {
	var resp api.MeResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// ProductQuery параметры списка товаров, нулевые значения не передаются
type ProductQuery struct {
	Search string
	Page   int
	Limit  int
}

func (q ProductQuery) encode() string {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// ListProducts возвращает страницу товаров пользователя
func (c *Client) ListProducts(ctx context.Context, q ProductQuery) (*api.ProductListResponse, error) {
	var resp api.ProductListResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/products"+q.encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateProduct создает товар
func (c *Client) CreateProduct(ctx context.Context, req api.CreateProductRequest) (*api.Product, error) {
	var resp api.ProductResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/products", req, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// UpdateProduct частично обновляет товар
func (c *Client) UpdateProduct(ctx context.Context, id string, req api.UpdateProductRequest) (*api.Product, error) {
	var resp api.ProductResponse
	if err := c.doRequest(ctx, http.MethodPut, "/api/products/"+url.PathEscape(id), req, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// DeleteProduct удаляет товар
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.doRequest(ctx, http.MethodDelete, "/api/products/"+url.PathEscape(id), nil, nil)
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) (*api.MessageResponse, error) {
	var resp api.MessageResponse
	if err := c.doRequest(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос
// Неуспешный статус превращается в *Error с сообщением сервера
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// query может содержать токен
		route, _, _ := strings.Cut(path, "?")
		return fmt.Errorf("%s %s: %w", method, route, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			apiErr.Message = errResp.Message
			apiErr.Fields = errResp.Errors
		}
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
