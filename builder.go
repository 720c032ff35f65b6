package credVault

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/credVault/mail"
	"github.com/MrEthical07/credVault/password"
	"github.com/MrEthical07/credVault/store"
	"github.com/MrEthical07/credVault/token"
)

// Builder defines a public type used by credVault APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	accounts  AccountStore
	mailer    mail.Mailer
	limiter   RateLimiter
	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New returns a Builder seeded with the default configuration. Nothing
// touches the network until [Builder.Build].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig replaces the entire configuration. Secrets are copied, so the
// caller may zero its own slices afterward.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis supplies the Redis client backing the default [store.Store].
// Ignored when [Builder.WithAccountStore] is also called.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountStore describes the withaccountstore operation and its observable behavior.
//
// WithAccountStore substitutes a custom persistence backend for the default
// Redis store.
func (b *Builder) WithAccountStore(s AccountStore) *Builder {
	b.accounts = s
	return b
}

// WithMailer describes the withmailer operation and its observable behavior.
//
// WithMailer supplies the outbound email implementation. Defaults to
// [mail.Discard].
func (b *Builder) WithMailer(m mail.Mailer) *Builder {
	b.mailer = m
	return b
}

// WithRateLimiter describes the withratelimiter operation and its observable behavior.
//
// WithRateLimiter installs the optional pre-attempt limiter hook. A nil
// limiter allows every attempt.
func (b *Builder) WithRateLimiter(rl RateLimiter) *Builder {
	b.limiter = rl
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink installs the audit event consumer. Events are dispatched
// asynchronously; see [AuditConfig].
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled toggles counter collection without replacing the whole
// configuration.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms toggles the Authenticate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the configuration, wires the token codec, password hasher,
// store, mailer, audit dispatcher, and metrics, and returns a ready Engine.
// A Builder can build at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	accounts := b.accounts
	if accounts == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or account store required")
		}
		accounts = store.New(b.redis, cfg.Store.KeyPrefix)
	}

	codec, err := token.NewCodec(token.Config{
		AccessSecret:  cloneBytes(cfg.Token.AccessSecret),
		RefreshSecret: cloneBytes(cfg.Token.RefreshSecret),
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshTTL:    cfg.Token.RefreshTTL,
		Issuer:        cfg.Token.Issuer,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Profile{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	mailer := b.mailer
	if mailer == nil {
		mailer = mail.Discard{}
	}

	engine := &Engine{
		config:   cfg,
		accounts: accounts,
		codec:    codec,
		hasher:   hasher,
		mailer:   mailer,
		limiter:  b.limiter,
		audit:    newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:  NewMetrics(cfg.Metrics),
		now:      time.Now,
	}

	b.built = true

	return engine, nil
}
