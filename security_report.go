package goGate

import (
	"github.com/MrEthical07/goGate/internal/security"
	"github.com/MrEthical07/goGate/jwt"
)

// SecurityReport is a read-only snapshot of the engine's security posture,
// returned by [Engine.SecurityReport]. It never contains secrets.
type SecurityReport = security.Report

// PasswordConfigReport is the argon2id part of a SecurityReport.
type PasswordConfigReport = security.PasswordReport

// SecurityReport summarizes the effective configuration for startup logs and
// health endpoints.
func (e *Engine) SecurityReport() SecurityReport {
	if !e.ready() {
		return SecurityReport{}
	}

	registry := e.evaluator.Registry()
	return security.BuildReport(security.ReportInput{
		ProductionMode:   e.config.Security.ProductionMode,
		SigningAlgorithm: jwt.SigningAlgorithm,
		AccessTTL:        e.config.JWT.AccessTTL,
		RefreshTTL:       e.config.JWT.RefreshTTL,
		AccessSecret:     e.config.JWT.AccessSecret,
		RefreshSecret:    e.config.JWT.RefreshSecret,
		Password: security.PasswordReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		PasswordUpgradeOnLogin: e.config.Password.UpgradeOnLogin,
		MaxLoginAttempts:       e.config.Lockout.MaxLoginAttempts,
		LockDuration:           e.config.Lockout.LockDuration,
		CookieSecure:           e.config.Cookie.Secure,
		CookieSameSite:         e.config.Cookie.SameSite,
		AuditEnabled:           e.config.Audit.Enabled,
		Operations:             registry.Operations(),
		IsOpen: func(op string) bool {
			req, ok := registry.Lookup(op)
			return ok && req.Open()
		},
	})
}
