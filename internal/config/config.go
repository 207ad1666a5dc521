// Package config defines the actprep process configuration and how it is
// layered from defaults, an optional YAML file and the environment.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/abhisek/actprep/internal/cooldown"
	"github.com/abhisek/actprep/internal/pinata"
	"github.com/abhisek/actprep/internal/proficiency"
	"github.com/abhisek/actprep/internal/progression"
	"github.com/abhisek/actprep/internal/subject"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendPinata = "pinata"
)

// Config contains process configuration.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the local SQLite database. Empty means store.DefaultDBPath().
	DBPath string `koanf:"db_path"`

	// LogMode selects the zap preset: dev or prod.
	LogMode string `koanf:"log_mode"`

	Store    StoreConfig    `koanf:"store"`
	Pinata   PinataConfig   `koanf:"pinata"`
	Scoring  ScoringConfig  `koanf:"scoring"`
	Baseline map[string]int `koanf:"baseline"`

	// Cooldown is the minimum interval between generation requests.
	Cooldown time.Duration `koanf:"cooldown"`

	OTel OTelConfig `koanf:"otel"`
}

// StoreConfig selects where response events are read from and appended to.
type StoreConfig struct {
	Backend      string        `koanf:"backend"`
	FetchLimit   int           `koanf:"fetch_limit"`
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
}

// PinataConfig configures the remote store. JWT has no default.
type PinataConfig struct {
	JWT        string `koanf:"jwt"`
	APIURL     string `koanf:"api_url"`
	GatewayURL string `koanf:"gateway_url"`

	// RedisAddr enables the CID content cache when set.
	RedisAddr string `koanf:"redis_addr"`
}

// ScoringConfig overrides the proficiency scoring law.
type ScoringConfig struct {
	Anchor float64 `koanf:"anchor"`
	Scale  float64 `koanf:"scale"`
	Seed   float64 `koanf:"seed"`

	// Multipliers is keyed by difficulty name (easy, medium, hard).
	Multipliers map[string]float64 `koanf:"multipliers"`

	// Seeds sets per-subject starting scores, keyed by subject name or alias.
	Seeds map[string]float64 `koanf:"seeds"`
}

// OTelConfig controls tracing.
type OTelConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Stdout      bool   `koanf:"stdout"`
	ServiceName string `koanf:"service_name"`
}

// New returns a Config holding the defaults.
func New() *Config {
	p := proficiency.DefaultParams()
	multipliers := make(map[string]float64, len(p.Multipliers))
	for d, m := range p.Multipliers {
		multipliers[strings.ToLower(string(d))] = m
	}

	baseline := make(map[string]int, len(subject.All()))
	for _, s := range subject.All() {
		baseline[string(s)] = 21
	}

	return &Config{
		Addr:    ":8080",
		LogMode: "prod",
		Store: StoreConfig{
			Backend:      BackendSQLite,
			FetchLimit:   pinata.DefaultFetchLimit,
			FetchTimeout: 15 * time.Second,
		},
		Pinata: PinataConfig{
			APIURL:     pinata.DefaultAPIURL,
			GatewayURL: pinata.DefaultGatewayURL,
		},
		Scoring: ScoringConfig{
			Anchor:      p.Anchor,
			Scale:       p.Scale,
			Seed:        p.Seed,
			Multipliers: multipliers,
		},
		Baseline: baseline,
		Cooldown: cooldown.DefaultInterval,
		OTel: OTelConfig{
			ServiceName: "actprep",
		},
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.Store.Backend {
	case BackendSQLite:
	case BackendPinata:
		if strings.TrimSpace(c.Pinata.JWT) == "" {
			return fmt.Errorf("%w: pinata.jwt is required for the pinata backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}
	if c.Store.FetchLimit < 0 {
		return fmt.Errorf("%w: store.fetch_limit must not be negative", ErrInvalidConfig)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("%w: cooldown must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Params(); err != nil {
		return err
	}
	if _, err := c.Seeds(); err != nil {
		return err
	}
	if _, err := c.BaselineScores(); err != nil {
		return err
	}
	return nil
}

// Params builds the scoring parameters.
func (c *Config) Params() (proficiency.Params, error) {
	p := proficiency.Params{
		Anchor:      c.Scoring.Anchor,
		Scale:       c.Scoring.Scale,
		Seed:        c.Scoring.Seed,
		Multipliers: make(map[subject.Difficulty]float64, len(c.Scoring.Multipliers)),
	}
	for _, name := range overlayOrder(c.Scoring.Multipliers, func(k string) bool { return k == strings.ToLower(k) }) {
		d, ok := subject.ParseDifficulty(name)
		if !ok {
			return proficiency.Params{}, fmt.Errorf("%w: unknown difficulty %q in scoring.multipliers", ErrInvalidConfig, name)
		}
		p.Multipliers[d] = c.Scoring.Multipliers[name]
	}
	if err := p.Validate(); err != nil {
		return proficiency.Params{}, fmt.Errorf("%w: scoring: %v", ErrInvalidConfig, err)
	}
	return p, nil
}

// Seeds resolves per-subject starting scores. Subjects without an entry
// use scoring.seed.
func (c *Config) Seeds() (progression.Seeds, error) {
	seeds := make(progression.Seeds, len(subject.All()))
	for _, s := range subject.All() {
		seeds[s] = c.Scoring.Seed
	}
	for _, name := range overlayOrder(c.Scoring.Seeds, isCanonicalSubject) {
		v := c.Scoring.Seeds[name]
		s, err := subject.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("%w: scoring.seeds: %v", ErrInvalidConfig, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: scoring.seeds.%s must not be negative", ErrInvalidConfig, name)
		}
		seeds[s] = v
	}
	return seeds, nil
}

// BaselineScores resolves the comparison baseline used in generation prompts.
func (c *Config) BaselineScores() (map[subject.Subject]int, error) {
	out := make(map[subject.Subject]int, len(c.Baseline))
	for _, name := range overlayOrder(c.Baseline, isCanonicalSubject) {
		v := c.Baseline[name]
		s, err := subject.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("%w: baseline: %v", ErrInvalidConfig, err)
		}
		if v < 1 || v > 36 {
			return nil, fmt.Errorf("%w: baseline.%s must be between 1 and 36", ErrInvalidConfig, name)
		}
		out[s] = v
	}
	return out, nil
}

// overlayOrder returns the keys of m with default-form keys first, so that a
// differently spelled key loaded from a file or the environment overrides the
// default entry it aliases.
func overlayOrder[V any](m map[string]V, isDefault func(string) bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		di, dj := isDefault(keys[i]), isDefault(keys[j])
		if di != dj {
			return di
		}
		return keys[i] < keys[j]
	})
	return keys
}

func isCanonicalSubject(k string) bool {
	return subject.Subject(k).Valid()
}
