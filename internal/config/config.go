// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
)

type Storefront struct {
	Port          string   `env:"PORT" envDefault:"8080"`
	CatalogURL    string   `env:"CATALOG_URL,required"`
	KVDriver      string   `env:"KV_DRIVER" envDefault:"sqlite"`
	KVDSN         string   `env:"KV_DSN" envDefault:"file:storefront.db"`
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envSeparator:","`
	DiscountCodes []string `env:"DISCOUNT_CODES" envSeparator:"," envDefault:"BLUE25:25"`
}

// ParseDiscountCodes decodes CODE:PERCENT pairs, dropping malformed
// entries and percentages outside 1..100.
func (c Storefront) ParseDiscountCodes() map[string]int {
	codes := make(map[string]int, len(c.DiscountCodes))
	for _, entry := range c.DiscountCodes {
		code, pct, ok := strings.Cut(entry, ":")
		if !ok || code == "" {
			continue
		}
		percent, err := strconv.Atoi(pct)
		if err != nil || percent < 1 || percent > 100 {
			continue
		}
		codes[code] = percent
	}
	return codes
}

type Worker struct {
	KafkaBrokers  []string `env:"KAFKA_BROKERS,required" envSeparator:","`
	StorefrontURL string   `env:"STOREFRONT_URL,required"`
	EmailURL      string   `env:"EMAIL_SERVICE_URL,required"`
	CustomerEmail string   `env:"CUSTOMER_EMAIL" envDefault:"customer@example.com"`
}

type Email struct {
	Port string `env:"PORT" envDefault:"8082"`
}

// Parse fills target from the environment.
func Parse(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
