package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

type Config struct {
	DBDriver   string `env:"DB_DRIVER" envDefault:"mysql"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"3306"`
	DBUser     string `env:"DB_USER" envDefault:"marketuser"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"marketpassword"`
	DBName     string `env:"DB_NAME" envDefault:"markettask"`

	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     string `env:"REDIS_PORT" envDefault:"6379"`
	SessionSecret string `env:"SESSION_SECRET" envDefault:"default-secret-key-change-me"`
	GinMode       string `env:"GIN_MODE" envDefault:"debug"`
	ListenAddr    string `env:"LISTEN_ADDR" envDefault:":8080"`

	// ServiceFeeRate is the platform fee as a fraction of the offer amount.
	ServiceFeeRate float64 `env:"SERVICE_FEE_RATE" envDefault:"0.10"`

	// ReceiptPrefix leads every receipt number (<prefix><yyyymmdd>-<seq>).
	ReceiptPrefix string `env:"RECEIPT_PREFIX" envDefault:"MT"`
}

// TaxJurisdiction maps a currency to its tax treatment. The table is injected
// configuration so new jurisdictions are data changes.
type TaxJurisdiction struct {
	Currency string
	TaxType  string
	Rate     decimal.Decimal
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// DefaultTaxTable returns the configured jurisdictions. Currencies not listed
// here settle with no tax.
func DefaultTaxTable() []TaxJurisdiction {
	return []TaxJurisdiction{
		{Currency: "AUD", TaxType: "GST", Rate: decimal.NewFromFloat(0.10)},
		{Currency: "CAD", TaxType: "HST", Rate: decimal.NewFromFloat(0.15)},
		{Currency: "INR", TaxType: "GST", Rate: decimal.NewFromFloat(0.18)},
	}
}
