// Safe logging: masks emails and bearer/invite tokens in production so that
// access-token material and guest identities never land in plain logs.
package utils

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
)

var (
	// IsProduction enables masking of sensitive values.
	IsProduction = os.Getenv("GIN_MODE") == "release" ||
		os.Getenv("ENVIRONMENT") == "production" ||
		os.Getenv("ENV") == "production"

	LogLevel = getLogLevel()
)

const (
	LogLevelDebug = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func getLogLevel() int {
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		return LogLevelDebug
	case "WARN", "WARNING":
		return LogLevelWarn
	case "ERROR":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

var (
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	bearerPattern = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._-]+`)
	tokenPattern  = regexp.MustCompile(`token=[A-Za-z0-9._-]+`)
)

// MaskEmail keeps the first character of the local part: j***@example.com.
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

// MaskToken keeps a short prefix for correlation.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "..."
}

func sanitize(msg string) string {
	if !IsProduction {
		return msg
	}
	msg = emailPattern.ReplaceAllStringFunc(msg, MaskEmail)
	msg = bearerPattern.ReplaceAllString(msg, "Bearer ***")
	msg = tokenPattern.ReplaceAllString(msg, "token=***")
	return msg
}

func Debugf(format string, args ...any) {
	if LogLevel <= LogLevelDebug {
		log.Print("[DEBUG] " + sanitize(fmt.Sprintf(format, args...)))
	}
}

func Infof(format string, args ...any) {
	if LogLevel <= LogLevelInfo {
		log.Print("[INFO] " + sanitize(fmt.Sprintf(format, args...)))
	}
}

func Warnf(format string, args ...any) {
	if LogLevel <= LogLevelWarn {
		log.Print("[WARN] " + sanitize(fmt.Sprintf(format, args...)))
	}
}

func Errorf(format string, args ...any) {
	if LogLevel <= LogLevelError {
		log.Print("[ERROR] " + sanitize(fmt.Sprintf(format, args...)))
	}
}
