// Package notify показывает пользователю короткие уведомления клиента
package notify

import (
	"fmt"
	"io"
	"sync"
)

// Level уровень уведомления
type Level int

const (
	// LevelInfo информационное сообщение
	LevelInfo Level = iota
	// LevelSuccess операция выполнена
	LevelSuccess
	// LevelError ошибка
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "ok"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notifier выводит уведомления
type Notifier interface {
	Notify(level Level, message string)
}

// WriterNotifier пишет уведомления в io.Writer (обычно stderr)
type WriterNotifier struct {
	w  io.Writer
	mu sync.Mutex
}

// NewWriter creates WriterNotifier
func NewWriter(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Notify writes "[level] message"
func (n *WriterNotifier) Notify(level Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.w, "[%s] %s\n", level, message)
}

// Discard игнорирует уведомления
type Discard struct{}

// Notify does nothing
func (Discard) Notify(Level, string) {}
