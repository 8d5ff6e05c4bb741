package handlers

import (
	"net/http"
	"time"
)

// RefreshCookieName имя cookie с refresh token
const RefreshCookieName = "refresh_token"

// CookieConfig атрибуты refresh cookie
type CookieConfig struct {
	MaxAge     time.Duration
	Production bool
}

func (c CookieConfig) base() *http.Cookie {
	cookie := &http.Cookie{
		Name:     RefreshCookieName,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Production,
		SameSite: http.SameSiteLaxMode,
	}
	// Cross-site фронтенд в production требует SameSite=None (и Secure)
	if c.Production {
		cookie.SameSite = http.SameSiteNoneMode
	}
	return cookie
}

// SetRefreshCookie устанавливает HttpOnly cookie с refresh token
func SetRefreshCookie(w http.ResponseWriter, cfg CookieConfig, token string) {
	cookie := cfg.base()
	cookie.Value = token
	cookie.MaxAge = int(cfg.MaxAge.Seconds())
	cookie.Expires = time.Now().Add(cfg.MaxAge)
	http.SetCookie(w, cookie)
}

// ClearRefreshCookie устанавливает просроченную пустую cookie с теми же атрибутами
func ClearRefreshCookie(w http.ResponseWriter, cfg CookieConfig) {
	cookie := cfg.base()
	cookie.Value = ""
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, cookie)
}

// RefreshTokenFromRequest возвращает значение refresh cookie или пустую строку
func RefreshTokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
