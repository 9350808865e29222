package policy

import (
	"strings"
	"time"
)

// Mode is the deployment-mode tag a policy is selected by.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeStaging     Mode = "staging"
	ModeProduction  Mode = "production"
	ModeTest        Mode = "test"
)

// Policy is the immutable bundle of session rules for one deployment.
type Policy struct {
	Mode              Mode
	AllowDualSessions bool
	SessionTimeout    time.Duration
	StrictValidation  bool
	EnableAuditLog    bool
}

var policies = map[Mode]Policy{
	ModeDevelopment: {
		Mode:              ModeDevelopment,
		AllowDualSessions: true,
		SessionTimeout:    24 * time.Hour,
		StrictValidation:  false,
		EnableAuditLog:    false,
	},
	ModeStaging: {
		Mode:              ModeStaging,
		AllowDualSessions: true,
		SessionTimeout:    8 * time.Hour,
		StrictValidation:  true,
		EnableAuditLog:    true,
	},
	ModeProduction: {
		Mode:              ModeProduction,
		AllowDualSessions: false,
		SessionTimeout:    2 * time.Hour,
		StrictValidation:  true,
		EnableAuditLog:    true,
	},
	ModeTest: {
		Mode:              ModeTest,
		AllowDualSessions: true,
		SessionTimeout:    time.Hour,
		StrictValidation:  false,
		EnableAuditLog:    false,
	},
}

var aliases = map[string]Mode{
	"dev":         ModeDevelopment,
	"development": ModeDevelopment,
	"local":       ModeDevelopment,
	"stage":       ModeStaging,
	"staging":     ModeStaging,
	"prod":        ModeProduction,
	"production":  ModeProduction,
	"test":        ModeTest,
	"testing":     ModeTest,
}

// Conservative returns the fallback policy used for unrecognized modes.
func Conservative() Policy {
	return policies[ModeProduction]
}

// Resolve maps a deployment-mode tag to its policy. Tags are matched
// case-insensitively; anything unrecognized resolves to [Conservative].
func Resolve(tag string) Policy {
	mode, ok := ParseMode(tag)
	if !ok {
		return Conservative()
	}
	return policies[mode]
}

// ParseMode normalizes a tag into a known Mode.
func ParseMode(tag string) (Mode, bool) {
	mode, ok := aliases[strings.ToLower(strings.TrimSpace(tag))]
	return mode, ok
}

// SessionTimeoutMs reports the timeout in milliseconds, the unit the web
// frontend stores alongside sessionStart.
func (p Policy) SessionTimeoutMs() int64 {
	return p.SessionTimeout.Milliseconds()
}
