package security

import (
	"net/http"
	"time"
)

type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type Report struct {
	ProductionMode         bool
	SigningAlgorithm       string
	AccessTTL              time.Duration
	RefreshTTL             time.Duration
	SeparateRefreshSecret  bool
	Argon2                 PasswordReport
	PasswordUpgradeOnLogin bool
	LockoutActive          bool
	MaxLoginAttempts       int
	LockDuration           time.Duration
	CookieSecure           bool
	CookieSameSite         string
	AuditEnabled           bool
	RegisteredOperations   int
	OpenOperations         []string
}

type ReportInput struct {
	ProductionMode         bool
	SigningAlgorithm       string
	AccessTTL              time.Duration
	RefreshTTL             time.Duration
	AccessSecret           []byte
	RefreshSecret          []byte
	Password               PasswordReport
	PasswordUpgradeOnLogin bool
	MaxLoginAttempts       int
	LockDuration           time.Duration
	CookieSecure           bool
	CookieSameSite         http.SameSite
	AuditEnabled           bool
	Operations             []string
	IsOpen                 func(operation string) bool
}

// BuildReport never copies secret material into the report.
func BuildReport(input ReportInput) Report {
	var open []string
	if input.IsOpen != nil {
		for _, op := range input.Operations {
			if input.IsOpen(op) {
				open = append(open, op)
			}
		}
	}

	return Report{
		ProductionMode:         input.ProductionMode,
		SigningAlgorithm:       input.SigningAlgorithm,
		AccessTTL:              input.AccessTTL,
		RefreshTTL:             input.RefreshTTL,
		SeparateRefreshSecret:  len(input.RefreshSecret) > 0 && string(input.AccessSecret) != string(input.RefreshSecret),
		Argon2:                 input.Password,
		PasswordUpgradeOnLogin: input.PasswordUpgradeOnLogin,
		LockoutActive:          input.MaxLoginAttempts > 0 && input.LockDuration > 0,
		MaxLoginAttempts:       input.MaxLoginAttempts,
		LockDuration:           input.LockDuration,
		CookieSecure:           input.CookieSecure,
		CookieSameSite:         sameSiteName(input.CookieSameSite),
		AuditEnabled:           input.AuditEnabled,
		RegisteredOperations:   len(input.Operations),
		OpenOperations:         open,
	}
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteStrictMode:
		return "strict"
	case http.SameSiteLaxMode:
		return "lax"
	case http.SameSiteNoneMode:
		return "none"
	default:
		return "default"
	}
}
