package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes предел длины пароля bcrypt
const MaxPasswordBytes = 72

var (
	// ErrPasswordMismatch возвращается когда пароль не совпадает с хешем
	ErrPasswordMismatch = errors.New("password mismatch")
	// ErrPasswordTooLong пароль длиннее MaxPasswordBytes
	ErrPasswordTooLong = bcrypt.ErrPasswordTooLong
)

// PasswordHasher хеширует и проверяет пароли через bcrypt
type PasswordHasher struct {
	// dummyHash используется для сравнения, когда пользователь не найден,
	// чтобы время ответа не зависело от существования аккаунта
	dummyHash []byte
	cost      int
}

// NewPasswordHasher создает hasher с заданной стоимостью bcrypt
// cost вне диапазона bcrypt заменяется на bcrypt.DefaultCost
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	// Ошибка игнорируется: при nil хеше CompareDummy просто вернется сразу
	dummy, _ := bcrypt.GenerateFromPassword([]byte("inventory-dummy-password"), cost)

	return &PasswordHasher{cost: cost, dummyHash: dummy}
}

// Hash возвращает bcrypt хеш пароля
func (h *PasswordHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// Compare проверяет пароль против хеша
// Возвращает ErrPasswordMismatch если пароль не подходит
func (h *PasswordHasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return fmt.Errorf("failed to compare password: %w", err)
}

// CompareDummy выполняет сравнение с фиксированным хешем
// Вызывается для отсутствующего пользователя, результат всегда игнорируется
func (h *PasswordHasher) CompareDummy(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))
}

// RandomUnusable генерирует хеш случайного пароля, который никто не знает
// Используется для аккаунтов, созданных через Google
func (h *PasswordHasher) RandomUnusable() (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("failed to generate random password: %w", err)
	}

	return h.Hash(hex.EncodeToString(secret))
}
