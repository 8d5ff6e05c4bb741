// Package iocli ввод/вывод интерактивных команд CLI.
package iocli

// IO ввод и вывод команды
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
	Write(p []byte) (n int, err error)
}
