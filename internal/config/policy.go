package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// StatementPolicy carries the tunable business parameters of the statement
// engine: the interest-accrual policy applied to overdue aging buckets and
// the generation tuning knobs. The accrual formula itself (simple interest,
// per-bucket annual rates) is fixed; every number feeding it comes from here.
type StatementPolicy struct {
	Interest   InterestPolicy   `mapstructure:"interest"`
	Generation GenerationPolicy `mapstructure:"generation"`
}

// InterestPolicy defines simple-interest accrual on overdue buckets.
// A bucket accrues amount * annualRateBps/10000 * accrualDays/dayCountBasis.
type InterestPolicy struct {
	DayCountBasis int          `mapstructure:"dayCountBasis"`
	Buckets       []BucketRate `mapstructure:"buckets"`
}

// BucketRate is the accrual parameterization of one overdue bucket.
type BucketRate struct {
	Bucket        string `mapstructure:"bucket"`
	AnnualRateBps int64  `mapstructure:"annualRateBps"`
	AccrualDays   int    `mapstructure:"accrualDays"`
}

// GenerationPolicy bounds the background generation machinery.
type GenerationPolicy struct {
	Workers             int `mapstructure:"workers"`
	MaxLedgerRetries    int `mapstructure:"maxLedgerRetries"`
	RetryBackoffMillis  int `mapstructure:"retryBackoffMillis"`
	HeartbeatSeconds    int `mapstructure:"heartbeatSeconds"`
	RecoveryAfterSecond int `mapstructure:"recoveryAfterSeconds"`
}

func DefaultStatementPolicy() StatementPolicy {
	return StatementPolicy{
		Interest: InterestPolicy{
			DayCountBasis: 365,
			Buckets: []BucketRate{
				{Bucket: "days31to60", AnnualRateBps: 1200, AccrualDays: 45},
				{Bucket: "days61to90", AnnualRateBps: 1200, AccrualDays: 75},
				{Bucket: "days91to120", AnnualRateBps: 1800, AccrualDays: 105},
				{Bucket: "over120", AnnualRateBps: 1800, AccrualDays: 150},
			},
		},
		Generation: GenerationPolicy{
			Workers:             4,
			MaxLedgerRetries:    3,
			RetryBackoffMillis:  200,
			HeartbeatSeconds:    5,
			RecoveryAfterSecond: 900,
		},
	}
}

// StatementPolicyHolder exposes the current policy and swaps it atomically
// when the config file changes on disk.
type StatementPolicyHolder struct {
	current atomic.Value // holds StatementPolicy
}

func NewStatementPolicyHolder() (*StatementPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("statement_policy")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/backoffice/config")
	v.AddConfigPath("/etc/backoffice")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BACKOFFICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultStatementPolicy()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		v.SetDefault("statement.interest", defaults.Interest)
		v.SetDefault("statement.generation", defaults.Generation)
	}

	cfg := defaults
	if err := v.UnmarshalKey("statement", &cfg); err != nil {
		return nil, err
	}
	cfg = withPolicyDefaults(cfg)
	if err := validateStatementPolicy(cfg); err != nil {
		return nil, err
	}

	holder := &StatementPolicyHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := DefaultStatementPolicy()
		if err := v.UnmarshalKey("statement", &updated); err != nil {
			log.Printf("[statement-policy] reload failed: %v", err)
			return
		}
		updated = withPolicyDefaults(updated)
		if err := validateStatementPolicy(updated); err != nil {
			log.Printf("[statement-policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[statement-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *StatementPolicyHolder) Get() StatementPolicy {
	return h.current.Load().(StatementPolicy)
}

// NewStaticPolicyHolder wraps a fixed policy, for tests.
func NewStaticPolicyHolder(policy StatementPolicy) *StatementPolicyHolder {
	holder := &StatementPolicyHolder{}
	holder.current.Store(withPolicyDefaults(policy))
	return holder
}

func withPolicyDefaults(cfg StatementPolicy) StatementPolicy {
	defaults := DefaultStatementPolicy()
	if cfg.Interest.DayCountBasis <= 0 {
		cfg.Interest.DayCountBasis = defaults.Interest.DayCountBasis
	}
	if len(cfg.Interest.Buckets) == 0 {
		cfg.Interest.Buckets = defaults.Interest.Buckets
	}
	if cfg.Generation.Workers <= 0 {
		cfg.Generation.Workers = defaults.Generation.Workers
	}
	if cfg.Generation.MaxLedgerRetries <= 0 {
		cfg.Generation.MaxLedgerRetries = defaults.Generation.MaxLedgerRetries
	}
	if cfg.Generation.RetryBackoffMillis <= 0 {
		cfg.Generation.RetryBackoffMillis = defaults.Generation.RetryBackoffMillis
	}
	if cfg.Generation.HeartbeatSeconds <= 0 {
		cfg.Generation.HeartbeatSeconds = defaults.Generation.HeartbeatSeconds
	}
	if cfg.Generation.RecoveryAfterSecond <= 0 {
		cfg.Generation.RecoveryAfterSecond = defaults.Generation.RecoveryAfterSecond
	}
	return cfg
}

func validateStatementPolicy(cfg StatementPolicy) error {
	for _, bucket := range cfg.Interest.Buckets {
		if bucket.AnnualRateBps < 0 {
			return errors.New("statement.interest: annualRateBps cannot be negative")
		}
		if bucket.AccrualDays < 0 {
			return errors.New("statement.interest: accrualDays cannot be negative")
		}
	}
	return nil
}
