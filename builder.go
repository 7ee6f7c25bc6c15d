package goGate

import (
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/goGate/internal/audit"
	"github.com/MrEthical07/goGate/internal/limiters"
	"github.com/MrEthical07/goGate/jwt"
	"github.com/MrEthical07/goGate/password"
	"github.com/MrEthical07/goGate/permission"
	"github.com/MrEthical07/goGate/store"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder is single-use and not safe for
// concurrent use.
type Builder struct {
	config Config
	state  store.Store

	registry    *permission.Registry
	registerErr error

	credentials CredentialStore
	permissions PermissionStore
	auditSink   AuditSink
	logger      *slog.Logger
	now         func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config:   DefaultConfig(),
		registry: permission.NewRegistry(),
	}
}

// WithConfig replaces the configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the shared state store holding lockout records.
func (b *Builder) WithStore(st store.Store) *Builder {
	b.state = st
	return b
}

// WithRedis uses client as the shared state store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	if client == nil {
		b.state = nil
		return b
	}
	b.state = store.NewRedis(client)
	return b
}

// WithCredentialStore sets the account lookup used by Login.
func (b *Builder) WithCredentialStore(cs CredentialStore) *Builder {
	b.credentials = cs
	return b
}

// WithPermissionStore sets the grant source used by Authorize.
func (b *Builder) WithPermissionStore(ps PermissionStore) *Builder {
	b.permissions = ps
	return b
}

// WithOperation registers op as invocable by holders of any of anyOf.
// Registration errors are reported by Build.
func (b *Builder) WithOperation(op string, anyOf ...permission.Permission) *Builder {
	if err := b.registry.Register(op, anyOf...); err != nil && b.registerErr == nil {
		b.registerErr = err
	}
	return b
}

// WithOpenOperation registers op as requiring authentication only.
func (b *Builder) WithOpenOperation(op string) *Builder {
	if err := b.registry.RegisterOpen(op); err != nil && b.registerErr == nil {
		b.registerErr = err
	}
	return b
}

// WithAuditSink sets the audit destination. Audit must also be enabled in
// Config.Audit.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. The default discards.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for token issuance and lockout deadlines.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the login latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, freezes the operation table and
// returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.state == nil {
		return nil, errors.New("state store required")
	}
	if b.credentials == nil {
		return nil, errors.New("credential store required")
	}
	if b.permissions == nil {
		return nil, errors.New("permission store required")
	}
	if b.registerErr != nil {
		return nil, b.registerErr
	}
	if b.registry.Count() == 0 {
		return nil, errors.New("at least one operation must be registered")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// -------- OPERATION TABLE --------
	b.registry.Freeze()
	evaluator, err := permission.NewEvaluator(b.registry, b.permissions)
	if err != nil {
		return nil, err
	}

	// -------- TOKENS --------
	tokens, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cfg.JWT.AccessSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshSecret: cfg.JWT.RefreshSecret,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	// -------- PASSWORDS --------
	argon, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	passwords, err := password.NewVerifier(argon)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:      cfg,
		tokens:      tokens,
		passwords:   passwords,
		evaluator:   evaluator,
		credentials: b.credentials,
		logger:      logger,
		now:         now,
		metrics:     NewMetrics(cfg.Metrics),
		lockout: limiters.NewLockoutLimiter(b.state, limiters.LockoutConfig{
			Threshold: cfg.Lockout.MaxLoginAttempts,
			Duration:  cfg.Lockout.LockDuration,
			KeyPrefix: cfg.Lockout.KeyPrefix,
			Now:       now,
		}),
	}
	if updater, ok := b.credentials.(PasswordHashUpdater); ok {
		engine.hashUpdater = updater
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Logger:     logger,
	}, b.auditSink)

	b.built = true

	return engine, nil
}
