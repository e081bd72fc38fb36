package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	defaultAppName         = "TPCPortal"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultRatesRefresh    = 5 * time.Minute
	defaultProofBucket     = "invoice-proofs"
	defaultSponsorCode     = "TPCGLOBAL"
	defaultFiatRatesURL    = "https://open.er-api.com/v6/latest/USD"
	defaultSolRatesURL     = "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd"
	defaultUSDCMint        = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	// Managed backend.
	SupabaseURL       string
	SupabaseAnonKey   string
	JWTSecret         string
	ProofBucket       string
	EmailFunctionsURL string

	// Pricing and FX.
	IDRPerUSDFallback    decimal.Decimal
	SOLUSDFallback       decimal.Decimal
	RatesRefreshInterval time.Duration
	FiatRatesURL         string
	SolRatesURL          string
	MinOrderUSD          decimal.Decimal
	MinOrderTPC          decimal.Decimal
	PresaleStart         time.Time

	FallbackSponsorCode string
	TreasuryWallet      string
	USDCMint            string

	NotifyWorkers    int
	NotifyQueueSize  int
	SubmitRatePerMin int
}

// Load reads configuration values from the environment and populates a Config instance.
// A .env file in the working directory is honoured when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,

		SupabaseURL:       strings.TrimSuffix(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseAnonKey:   os.Getenv("SUPABASE_ANON_KEY"),
		JWTSecret:         os.Getenv("SUPABASE_JWT_SECRET"),
		ProofBucket:       getEnv("PROOF_BUCKET", defaultProofBucket),
		EmailFunctionsURL: strings.TrimSuffix(os.Getenv("EMAIL_FUNCTIONS_URL"), "/"),

		FiatRatesURL: getEnv("RATES_FIAT_URL", defaultFiatRatesURL),
		SolRatesURL:  getEnv("RATES_SOL_URL", defaultSolRatesURL),

		FallbackSponsorCode: strings.ToUpper(getEnv("FALLBACK_SPONSOR_CODE", defaultSponsorCode)),
		TreasuryWallet:      os.Getenv("TREASURY_WALLET"),
		USDCMint:            getEnv("USDC_MINT", defaultUSDCMint),
	}

	var err error
	if cfg.ShutdownPeriod, err = getDuration(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = getDuration(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.RatesRefreshInterval, err = getDuration("RATES_REFRESH_SECONDS", "RATES_REFRESH_INTERVAL", defaultRatesRefresh); err != nil {
		return Config{}, err
	}
	if cfg.IDRPerUSDFallback, err = getDecimal("FX_IDR_PER_USD_FALLBACK", "17000"); err != nil {
		return Config{}, err
	}
	if cfg.SOLUSDFallback, err = getDecimal("SOL_USD_FALLBACK", "150"); err != nil {
		return Config{}, err
	}
	if cfg.MinOrderUSD, err = getDecimal("MIN_ORDER_USD", "5"); err != nil {
		return Config{}, err
	}
	if cfg.MinOrderTPC, err = getDecimal("MIN_ORDER_TPC", "1000"); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("PRESALE_START"); v != "" {
		if cfg.PresaleStart, err = time.Parse(time.RFC3339, v); err != nil {
			return Config{}, fmt.Errorf("invalid PRESALE_START: %w", err)
		}
	}
	if cfg.NotifyWorkers, err = getInt("NOTIFY_WORKERS", 2); err != nil {
		return Config{}, err
	}
	if cfg.NotifyQueueSize, err = getInt("NOTIFY_QUEUE_SIZE", 128); err != nil {
		return Config{}, err
	}
	if cfg.SubmitRatePerMin, err = getInt("SUBMIT_RATE_PER_MIN", 10); err != nil {
		return Config{}, err
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
		if cfg.JWTSecret == "" {
			return Config{}, fmt.Errorf("SUPABASE_JWT_SECRET must be set")
		}
		if cfg.PresaleStart.IsZero() {
			return Config{}, fmt.Errorf("PRESALE_START must be set")
		}
	}

	return cfg, nil
}

// IsDev reports whether the service runs in a local/development environment.
func (c Config) IsDev() bool {
	switch c.AppEnv {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getDuration accepts either a whole number of seconds or a Go duration string.
func getDuration(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return i, nil
}

func getDecimal(key, fallback string) (decimal.Decimal, error) {
	v := getEnv(key, fallback)
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
