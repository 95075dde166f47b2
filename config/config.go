package config

import (
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Stripe     StripeConfig
	Razorpay   RazorpayConfig
	Esewa      EsewaConfig
	Khalti     KhaltiConfig
	Bank       BankTransferConfig
	Payout     PayoutConfig
	Commission CommissionConfig

	// PublicBaseURL is where providers redirect and POST webhooks back to.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8088"`
}

type ServerConfig struct {
	Port         string        `env:"SERVER_PORT" envDefault:"8088"`
	Env          string        `env:"APP_ENV" envDefault:"development"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"10s"`
}

type DatabaseConfig struct {
	DSN             string        `env:"DB_DSN" envDefault:"creatorpay:creatorpay@tcp(localhost:3306)/creatorpay?charset=utf8mb4&parseTime=True&loc=Local"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"100"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
}

type JWTConfig struct {
	AccessSecret string `env:"JWT_ACCESS_SECRET" envDefault:"change-me-in-production"`
	Issuer       string `env:"JWT_ISSUER" envDefault:"creatorpay"`
}

type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	BaseURL       string `env:"STRIPE_BASE_URL" envDefault:"https://api.stripe.com"`
}

type RazorpayConfig struct {
	KeyID         string `env:"RAZORPAY_KEY_ID"`
	KeySecret     string `env:"RAZORPAY_KEY_SECRET"`
	WebhookSecret string `env:"RAZORPAY_WEBHOOK_SECRET"`
	BaseURL       string `env:"RAZORPAY_BASE_URL" envDefault:"https://api.razorpay.com"`
}

type EsewaConfig struct {
	ProductCode string `env:"ESEWA_PRODUCT_CODE" envDefault:"EPAYTEST"`
	SecretKey   string `env:"ESEWA_SECRET_KEY"`
	BaseURL     string `env:"ESEWA_BASE_URL" envDefault:"https://epay.esewa.com.np"`
}

type KhaltiConfig struct {
	SecretKey string `env:"KHALTI_SECRET_KEY"`
	BaseURL   string `env:"KHALTI_BASE_URL" envDefault:"https://a.khalti.com/api/v2"`
}

// BankTransferConfig holds the static account details shown to payers who
// choose manual bank transfer.
type BankTransferConfig struct {
	BankName      string `env:"BANK_NAME" envDefault:"Nabil Bank"`
	Branch        string `env:"BANK_BRANCH" envDefault:"Kathmandu"`
	AccountName   string `env:"BANK_ACCOUNT_NAME" envDefault:"CreatorPay Pvt. Ltd."`
	AccountNumber string `env:"BANK_ACCOUNT_NUMBER" envDefault:"0000000000000000"`
}

// PayoutConfig carries per-currency minimums and single-payout maximums in
// minor units (paise / cents).
type PayoutConfig struct {
	MinINR int64 `env:"PAYOUT_MIN_INR" envDefault:"50000"`
	MinNPR int64 `env:"PAYOUT_MIN_NPR" envDefault:"100000"`
	MinUSD int64 `env:"PAYOUT_MIN_USD" envDefault:"1000"`
	MaxINR int64 `env:"PAYOUT_MAX_INR" envDefault:"10000000"`
	MaxNPR int64 `env:"PAYOUT_MAX_NPR" envDefault:"20000000"`
	MaxUSD int64 `env:"PAYOUT_MAX_USD" envDefault:"500000"`
}

// CommissionConfig carries platform commission rates in basis points.
type CommissionConfig struct {
	StandardBps    int64 `env:"COMMISSION_STANDARD_BPS" envDefault:"1000"`
	PremiumBps     int64 `env:"COMMISSION_PREMIUM_BPS" envDefault:"500"`
	PromotionalBps int64 `env:"COMMISSION_PROMO_BPS" envDefault:"300"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file found, reading configuration from environment")
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
