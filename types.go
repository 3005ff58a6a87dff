package auth

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Logger is the logging contract shared by every package in the module.
// Args are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds token options
type Config interface {
	GetSigningKey() string
	GetTokenTTL() time.Duration
}

// PrincipalStore persists principals keyed by their normalized email.
type PrincipalStore interface {
	// FindPrincipalByEmail returns ErrPrincipalNotFound when no row matches.
	FindPrincipalByEmail(ctx context.Context, email string) (*Principal, error)
	// SavePrincipal returns ErrPrincipalExists when the email is taken.
	SavePrincipal(ctx context.Context, p *Principal) (*Principal, error)
	UpdatePrincipalRole(ctx context.Context, email string, role Role) (*Principal, error)
}

// PrincipalTransactor runs f against a PrincipalStore bound to a single
// transaction. An error returned by f rolls every write back.
type PrincipalTransactor interface {
	RunPrincipalTx(ctx context.Context, f func(ctx context.Context, store PrincipalStore) error) error
}

// PrincipalTransactorFunc adapts a function to PrincipalTransactor.
type PrincipalTransactorFunc func(ctx context.Context, f func(ctx context.Context, store PrincipalStore) error) error

func (fn PrincipalTransactorFunc) RunPrincipalTx(ctx context.Context, f func(ctx context.Context, store PrincipalStore) error) error {
	return fn(ctx, f)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// defLogger writes one line per call. Trailing args are rendered as
// key=value pairs.
type defLogger struct {
	out io.Writer
}

func (d defLogger) Error(msg string, args ...any) { d.write("ERR", msg, args) }
func (d defLogger) Warn(msg string, args ...any)  { d.write("WRN", msg, args) }
func (d defLogger) Info(msg string, args ...any)  { d.write("INF", msg, args) }
func (d defLogger) Debug(msg string, args ...any) { d.write("DBG", msg, args) }

func (d defLogger) write(level, msg string, args []any) {
	out := d.out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintln(out, formatLogLine(level, msg, args))
}

// DefaultLogger returns the stdout logger used when none is configured.
func DefaultLogger() Logger {
	return defLogger{}
}

func formatLogLine(level, msg string, args []any) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(level)
	b.WriteString("] AUTH ")
	b.WriteString(strings.TrimRight(msg, "\n"))
	for i := 0; i < len(args); i += 2 {
		key := "!BADKEY"
		val := args[i]
		if i+1 < len(args) {
			key = fmt.Sprint(args[i])
			val = args[i+1]
		}
		b.WriteString(" ")
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(formatLogValue(val))
	}
	return b.String()
}

func formatLogValue(v any) string {
	s := fmt.Sprint(v)
	if s == "" || strings.ContainsAny(s, " =\"") {
		return strconv.Quote(s)
	}
	return s
}
