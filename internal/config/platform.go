package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// PlatformPolicy carries the money policy applied by the ledger and cart:
// transaction fees, payout gating and tax. Values are decimal strings in the
// config file to avoid binary float drift.
type PlatformPolicy struct {
	FeePercentage decimal.Decimal `mapstructure:"-"`
	FlatFee       decimal.Decimal `mapstructure:"-"`
	MinimumPayout decimal.Decimal `mapstructure:"-"`
	TaxRate       decimal.Decimal `mapstructure:"-"`

	FeePercentageRaw string `mapstructure:"feePercentage"`
	FlatFeeRaw       string `mapstructure:"flatFee"`
	MinimumPayoutRaw string `mapstructure:"minimumPayout"`
	TaxRateRaw       string `mapstructure:"taxRate"`

	OrderNumberPrefix string `mapstructure:"orderNumberPrefix"`
}

// DefaultPlatformPolicy returns the policy used when platform.yml is absent.
func DefaultPlatformPolicy() PlatformPolicy {
	return PlatformPolicy{
		FeePercentage:     decimal.RequireFromString("0.025"),
		FlatFee:           decimal.RequireFromString("0.30"),
		MinimumPayout:     decimal.RequireFromString("25.00"),
		TaxRate:           decimal.RequireFromString("0.00"),
		OrderNumberPrefix: "ORD",
	}
}

// PlatformPolicyHolder exposes the current policy with hot reload.
type PlatformPolicyHolder struct {
	current atomic.Value // holds PlatformPolicy
}

// NewStaticPolicyHolder wraps a fixed policy. Used by tests.
func NewStaticPolicyHolder(policy PlatformPolicy) *PlatformPolicyHolder {
	holder := &PlatformPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewPlatformPolicyHolder() (*PlatformPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("platform")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/vendora/config")
	v.AddConfigPath("/etc/vendora")
	v.AddConfigPath(".")

	v.SetEnvPrefix("VENDORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	policy := DefaultPlatformPolicy()
	if fileFound {
		parsed, err := unmarshalPolicy(v)
		if err != nil {
			return nil, err
		}
		policy = parsed
	}

	holder := &PlatformPolicyHolder{}
	holder.current.Store(policy)

	if fileFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := unmarshalPolicy(v)
			if err != nil {
				log.Printf("[platform-config] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[platform-config] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

func (h *PlatformPolicyHolder) Get() PlatformPolicy {
	return h.current.Load().(PlatformPolicy)
}

func unmarshalPolicy(v *viper.Viper) (PlatformPolicy, error) {
	var cfg PlatformPolicy
	if err := v.UnmarshalKey("platform", &cfg); err != nil {
		return PlatformPolicy{}, err
	}

	defaults := DefaultPlatformPolicy()
	var err error
	if cfg.FeePercentage, err = parseAmount(cfg.FeePercentageRaw, defaults.FeePercentage); err != nil {
		return PlatformPolicy{}, err
	}
	if cfg.FlatFee, err = parseAmount(cfg.FlatFeeRaw, defaults.FlatFee); err != nil {
		return PlatformPolicy{}, err
	}
	if cfg.MinimumPayout, err = parseAmount(cfg.MinimumPayoutRaw, defaults.MinimumPayout); err != nil {
		return PlatformPolicy{}, err
	}
	if cfg.TaxRate, err = parseAmount(cfg.TaxRateRaw, defaults.TaxRate); err != nil {
		return PlatformPolicy{}, err
	}
	if strings.TrimSpace(cfg.OrderNumberPrefix) == "" {
		cfg.OrderNumberPrefix = defaults.OrderNumberPrefix
	}

	return cfg, validatePolicy(cfg)
}

func parseAmount(raw string, fallback decimal.Decimal) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return decimal.NewFromString(raw)
}

func validatePolicy(cfg PlatformPolicy) error {
	if cfg.FeePercentage.IsNegative() || cfg.FeePercentage.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("platform.feePercentage must be within [0, 1]")
	}
	if cfg.FlatFee.IsNegative() {
		return errors.New("platform.flatFee cannot be negative")
	}
	if cfg.MinimumPayout.IsNegative() {
		return errors.New("platform.minimumPayout cannot be negative")
	}
	if cfg.TaxRate.IsNegative() || cfg.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("platform.taxRate must be within [0, 1]")
	}
	return nil
}
