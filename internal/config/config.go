// Package config содержит логику чтения конфигурации сервиса оформления заказов.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса.
//
// Порог бесплатной доставки и фиксированный тариф — конфигурация,
// а не код: значения по умолчанию соответствуют витрине (Q149 и Q35).
type Config struct {
	RunAddress            string        `env:"RUN_ADDRESS"`
	DatabaseURI           string        `env:"DATABASE_URI"`
	CheckoutAPIAddress    string        `env:"CHECKOUT_API_ADDRESS"`
	PixelAddress          string        `env:"PIXEL_ADDRESS"`
	SessionSecret         string        `env:"SESSION_SECRET"`
	FreeShippingThreshold int64         `env:"FREE_SHIPPING_THRESHOLD"`
	FlatShippingRate      int64         `env:"FLAT_SHIPPING_RATE"`
	Coupons               string        `env:"COUPONS"`
	SessionTTL            time.Duration `env:"SESSION_TTL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных
// окружения. Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI for receipt storage (optional)")
	flag.StringVar(&cfg.CheckoutAPIAddress, "r", "", "checkout API address")
	flag.StringVar(&cfg.PixelAddress, "p", "", "analytics pixel address (optional)")
	flag.StringVar(&cfg.SessionSecret, "secret", "ventus-checkout-secret", "session cookie signing secret")
	flag.Int64Var(&cfg.FreeShippingThreshold, "free-shipping", 149, "free shipping threshold, GTQ")
	flag.Int64Var(&cfg.FlatShippingRate, "shipping-rate", 35, "flat shipping rate, GTQ")
	flag.StringVar(&cfg.Coupons, "coupons", "VENTUS10=percent:10,ENVIOGRATIS=shipping", "coupon table, CODE=percent:N or CODE=shipping")
	flag.DurationVar(&cfg.SessionTTL, "session-ttl", 30*time.Minute, "idle checkout session lifetime")

	flag.Parse()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.FreeShippingThreshold < 0 {
		return nil, fmt.Errorf("free shipping threshold must be non-negative")
	}
	if cfg.FlatShippingRate < 0 {
		return nil, fmt.Errorf("flat shipping rate must be non-negative")
	}

	return cfg, nil
}
