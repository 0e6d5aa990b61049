package users

import (
	"fmt"
	"time"
)

// DefaultMinAge is the minimum account age applied when the config
// does not set one.
const DefaultMinAge = 18

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds the account-backend options. Values are read once at
// construction time; there is no runtime mutation.
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetTimezone() string
	GetMinAge() int
}

// LoadLocation resolves the configured time zone, falling back to the
// process local zone when unset or unparseable.
func LoadLocation(cfg Config) *time.Location {
	tz := cfg.GetTimezone()
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Local
	}
	return loc
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] USERS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] USERS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] USERS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] USERS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
