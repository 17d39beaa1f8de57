package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/dvbernardes/pastelbot/internal/domain/models"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Telegram  TelegramConfig
	Drive     DriveConfig
	Business  BusinessConfig
	Reporting ReportingConfig
	MongoDB   MongoDBConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// TelegramConfig contains credentials and options for the Telegram Bot API.
type TelegramConfig struct {
	Token         string
	WebhookSecret string
	BaseURL       string
	// ReportChatID receives the scheduled daily report. Empty disables it.
	ReportChatID string
}

// DriveConfig contains the Google Drive transport settings and the names of
// the four backing CSV files.
type DriveConfig struct {
	CredentialsPath string
	FolderID        string
	SalesFile       string
	StockFile       string
	ConsumptionFile string
	ClosuresFile    string
}

// BusinessConfig is the immutable business configuration injected into every
// core component: the flavor catalog, fixed unit economics and the civil
// timezone all date arithmetic happens in.
type BusinessConfig struct {
	Flavors   []models.Flavor
	UnitPrice decimal.Decimal
	UnitCost  decimal.Decimal
	Timezone  string
	Location  *time.Location
}

// IsValidFlavor reports whether the flavor belongs to the configured catalog.
func (b BusinessConfig) IsValidFlavor(f models.Flavor) bool {
	for _, known := range b.Flavors {
		if known == f {
			return true
		}
	}
	return false
}

// FlavorList returns the catalog as a comma-separated string for messages.
func (b BusinessConfig) FlavorList() string {
	names := make([]string, len(b.Flavors))
	for i, f := range b.Flavors {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
}

// MongoDBConfig holds the optional closure-archive settings. An empty URI
// disables the archive.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are acceptable when configuration comes from the
		// environment directly.
		_ = godotenv.Load()
	}

	unitPrice, err := decimal.NewFromString(getenvWithDefault("PASTEL_UNIT_PRICE", "10.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid PASTEL_UNIT_PRICE: %w", err)
	}
	unitCost, err := decimal.NewFromString(getenvWithDefault("PASTEL_UNIT_COST", "4.50"))
	if err != nil {
		return nil, fmt.Errorf("invalid PASTEL_UNIT_COST: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Telegram: TelegramConfig{
			Token:         os.Getenv("TELEGRAM_TOKEN"),
			WebhookSecret: os.Getenv("TELEGRAM_WEBHOOK_SECRET"),
			BaseURL:       getenvWithDefault("TELEGRAM_BASE_URL", "https://api.telegram.org"),
			ReportChatID:  os.Getenv("TELEGRAM_CHAT_ID"),
		},
		Drive: DriveConfig{
			CredentialsPath: os.Getenv("GOOGLE_DRIVE_CREDENTIALS_PATH"),
			FolderID:        os.Getenv("DRIVE_FOLDER_ID"),
			SalesFile:       getenvWithDefault("DRIVE_SALES_FILE", "vendas_pasteis.csv"),
			StockFile:       getenvWithDefault("DRIVE_STOCK_FILE", "estoque_diario.csv"),
			ConsumptionFile: getenvWithDefault("DRIVE_CONSUMPTION_FILE", "consumo_pessoal.csv"),
			ClosuresFile:    getenvWithDefault("DRIVE_CLOSURES_FILE", "historico_fechamentos.csv"),
		},
		Business: BusinessConfig{
			Flavors:   parseFlavors(getenvWithDefault("PASTEL_FLAVORS", "carne,frango")),
			UnitPrice: unitPrice,
			UnitCost:  unitCost,
			Timezone:  getenvWithDefault("TIMEZONE", "America/Sao_Paulo"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "30 19 * * *"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "pastelbot"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated and
// resolves the business timezone.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch {
	case c.Telegram.Token == "":
		return errors.New("TELEGRAM_TOKEN must be provided")
	case c.Telegram.WebhookSecret == "":
		return errors.New("TELEGRAM_WEBHOOK_SECRET must be provided")
	case c.Telegram.BaseURL == "":
		return errors.New("TELEGRAM_BASE_URL must not be empty")
	}

	if c.Drive.CredentialsPath == "" {
		return errors.New("GOOGLE_DRIVE_CREDENTIALS_PATH must be provided")
	}

	if len(c.Business.Flavors) == 0 {
		return errors.New("PASTEL_FLAVORS must list at least one flavor")
	}
	if c.Business.UnitPrice.IsNegative() || c.Business.UnitCost.IsNegative() {
		return errors.New("unit price and cost must not be negative")
	}

	loc, err := time.LoadLocation(c.Business.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Business.Timezone, err)
	}
	c.Business.Location = loc

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}

	return nil
}

func parseFlavors(raw string) []models.Flavor {
	parts := strings.Split(raw, ",")
	flavors := make([]models.Flavor, 0, len(parts))
	for _, p := range parts {
		name := strings.ToLower(strings.TrimSpace(p))
		if name == "" {
			continue
		}
		flavors = append(flavors, models.Flavor(name))
	}
	return flavors
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
