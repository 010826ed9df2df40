package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	DB       DBConfig       `mapstructure:"db"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Mpesa    MpesaConfig    `mapstructure:"mpesa"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	SMS      SMSConfig      `mapstructure:"sms"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"maxOpenConns"`
}

type CheckoutConfig struct {
	DeliveryFee  float64 `mapstructure:"delivery_fee"`
	DeliveryCity string  `mapstructure:"delivery_city"`
	Currency     string  `mapstructure:"currency"`
}

type AuthConfig struct {
	JWTSecret        string        `mapstructure:"jwt_secret"`
	JWTRefreshSecret string        `mapstructure:"jwt_refresh_secret"`
	AccessTTL        time.Duration `mapstructure:"access_ttl"`
	RefreshTTL       time.Duration `mapstructure:"refresh_ttl"`
}

// RefreshSecret falls back to a derivation of the access secret when no
// dedicated refresh secret is configured.
func (a *AuthConfig) RefreshSecret() string {
	if a.JWTRefreshSecret != "" {
		return a.JWTRefreshSecret
	}
	return a.JWTSecret + "-refresh"
}

type MpesaConfig struct {
	ConsumerKey    string `mapstructure:"consumer_key"`
	ConsumerSecret string `mapstructure:"consumer_secret"`
	ShortCode      string `mapstructure:"short_code"`
	Passkey        string `mapstructure:"passkey"`
	CallbackURL    string `mapstructure:"callback_url"`
	Env            string `mapstructure:"env"` // "sandbox" or "production"
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	Currency      string `mapstructure:"currency"`
}

type SMSConfig struct {
	Provider   string `mapstructure:"provider"` // "twilio" or "noop"
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"`
}

// LoadConfig loads configuration from config.yaml and environment variables
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Set config file locations
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./deploy/")
	v.AddConfigPath("./")
	v.AddConfigPath("$HOME/.blackpearl/")
	v.AddConfigPath("/etc/blackpearl/")

	// Enable environment variable override with BLACKPEARL_ prefix
	v.SetEnvPrefix("BLACKPEARL")
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("db.maxOpenConns", 25)
	v.SetDefault("checkout.delivery_fee", 300)
	v.SetDefault("checkout.delivery_city", "Nairobi")
	v.SetDefault("checkout.currency", "KES")
	v.SetDefault("auth.access_ttl", 45*time.Minute)
	v.SetDefault("auth.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("stripe.currency", "usd")
	v.SetDefault("sms.provider", "noop")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
