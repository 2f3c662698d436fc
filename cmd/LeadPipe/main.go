package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/VigiaLabs/LeadPipe/internal/api"
	"github.com/VigiaLabs/LeadPipe/internal/nlu"
	"github.com/VigiaLabs/LeadPipe/internal/store"
	"github.com/VigiaLabs/LeadPipe/internal/util"
	"github.com/VigiaLabs/LeadPipe/internal/whatsapp"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for LeadPipe state data
	DefaultStateDir = "/var/lib/leadpipe"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "leadpipe.db"
	// DefaultSessionDBFileName is the default whatsmeow session database filename
	DefaultSessionDBFileName = "whatsmeow.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	waOpts := buildWhatsAppOptions(flags)
	storeOpts := buildStoreOptions(flags)
	nluOpts := buildNLUOptions(flags)
	apiOpts := buildAPIOptions(flags)

	slog.Info("Bootstrapping LeadPipe with configured modules")
	slog.Debug("Module options counts", "whatsapp", len(waOpts), "store", len(storeOpts), "nlu", len(nluOpts), "api", len(apiOpts))
	if err := api.Run(waOpts, storeOpts, nluOpts, apiOpts); err != nil {
		slog.Error("LeadPipe failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("LeadPipe exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir    string
	DatabaseURL string
	SessionDSN  string
	OpenAIKey   string
	OpenAIModel string
	WebhookURL  string
	VendorName  string
	VendorEmail string
	APIAddr     string
	Timezone    string
	SweepCron   string
	UseTwilio   bool
	HumanDelay  bool
}

// Flags holds command line flag values
type Flags struct {
	qrOutput    *string
	numeric     *bool
	stateDir    *string
	dbDSN       *string
	sessionDSN  *string
	openaiKey   *string
	openaiModel *string
	webhookURL  *string
	vendorName  *string
	vendorEmail *string
	apiAddr     *string
	timezone    *string
	sweepCron   *string
	useTwilio   *bool
	humanDelay  *bool
}

// initializeLogger sets up structured logging
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("LEADPIPE_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:    os.Getenv("LEADPIPE_STATE_DIR"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SessionDSN:  os.Getenv("WHATSAPP_DB_DSN"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel: os.Getenv("OPENAI_MODEL"),
		WebhookURL:  os.Getenv("MAKE_WEBHOOK_URL"),
		VendorName:  os.Getenv("VENDOR_NAME"),
		VendorEmail: os.Getenv("VENDOR_EMAIL"),
		APIAddr:     os.Getenv("API_ADDR"),
		Timezone:    os.Getenv("LEADPIPE_TIMEZONE"),
		SweepCron:   os.Getenv("SWEEP_SCHEDULE"),
		UseTwilio:   util.ParseBoolEnv("LEADPIPE_USE_TWILIO", false),
		HumanDelay:  util.ParseBoolEnv("LEADPIPE_HUMAN_DELAY", true),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No LEADPIPE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// Prospect store and whatsmeow session default to SQLite files in the
	// state directory when no network DSN is configured.
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No DATABASE_URL provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}
	if config.SessionDSN == "" {
		config.SessionDSN = filepath.Join(config.StateDir, DefaultSessionDBFileName)
		slog.Debug("No WHATSAPP_DB_DSN provided, defaulting to SQLite", "sqlite_path", config.SessionDSN)
	}

	slog.Debug("environment variables loaded",
		"LEADPIPE_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"WHATSAPP_DB_DSN_SET", config.SessionDSN != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"MAKE_WEBHOOK_URL_SET", config.WebhookURL != "",
		"API_ADDR", config.APIAddr,
		"LEADPIPE_TIMEZONE", config.Timezone,
		"SWEEP_SCHEDULE", config.SweepCron,
		"LEADPIPE_USE_TWILIO", config.UseTwilio)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		qrOutput:    flag.String("qr-output", "", "path to write login QR code"),
		numeric:     flag.Bool("numeric-code", false, "use numeric login code instead of QR code"),
		stateDir:    flag.String("state-dir", config.StateDir, "state directory for LeadPipe data (overrides $LEADPIPE_STATE_DIR)"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "prospect store DSN: Postgres, Redis or SQLite path (overrides $DATABASE_URL)"),
		sessionDSN:  flag.String("session-dsn", config.SessionDSN, "whatsmeow session database DSN (overrides $WHATSAPP_DB_DSN)"),
		openaiKey:   flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel: flag.String("openai-model", config.OpenAIModel, "OpenAI model for NLU classification (overrides $OPENAI_MODEL)"),
		webhookURL:  flag.String("webhook-url", config.WebhookURL, "Make.com appointment webhook URL (overrides $MAKE_WEBHOOK_URL)"),
		vendorName:  flag.String("vendor-name", config.VendorName, "sales contact name attached to appointments (overrides $VENDOR_NAME)"),
		vendorEmail: flag.String("vendor-email", config.VendorEmail, "sales contact email attached to appointments (overrides $VENDOR_EMAIL)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		timezone:    flag.String("timezone", config.Timezone, "business timezone, IANA name (overrides $LEADPIPE_TIMEZONE)"),
		sweepCron:   flag.String("sweep-cron", config.SweepCron, "nurture sweep cron schedule (overrides $SWEEP_SCHEDULE)"),
		useTwilio:   flag.Bool("use-twilio", config.UseTwilio, "use the Twilio transport instead of whatsmeow (overrides $LEADPIPE_USE_TWILIO)"),
		humanDelay:  flag.Bool("human-delay", config.HumanDelay, "pause before replies like a human typist (overrides $LEADPIPE_HUMAN_DELAY)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"qrOutput", *flags.qrOutput,
		"numeric", *flags.numeric,
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"sessionDSN_set", *flags.sessionDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"webhookURLSet", *flags.webhookURL != "",
		"apiAddr", *flags.apiAddr,
		"timezone", *flags.timezone,
		"sweepCron", *flags.sweepCron,
		"useTwilio", *flags.useTwilio,
		"humanDelay", *flags.humanDelay)

	// Follow a moved state directory when the DSNs were left at their defaults.
	if *flags.stateDir != config.StateDir {
		if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) {
			*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
			slog.Debug("Updated db DSN based on state directory", "new_state_dir", *flags.stateDir)
		}
		if *flags.sessionDSN == filepath.Join(config.StateDir, DefaultSessionDBFileName) {
			*flags.sessionDSN = filepath.Join(*flags.stateDir, DefaultSessionDBFileName)
			slog.Debug("Updated session DSN based on state directory", "new_state_dir", *flags.stateDir)
		}
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	for _, dsn := range []string{*flags.dbDSN, *flags.sessionDSN} {
		if store.DetectDSNType(dsn) != "sqlite3" {
			continue
		}
		dir := filepath.Dir(dsn)
		if dir == "." || strings.HasPrefix(dsn, "file:") {
			continue
		}
		slog.Debug("Creating state directory for file-based database", "state_dir", dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", dir)
			return err
		}
	}
	return nil
}

// buildWhatsAppOptions constructs whatsmeow client configuration options
func buildWhatsAppOptions(flags Flags) []whatsapp.Option {
	var waOpts []whatsapp.Option
	if *flags.qrOutput != "" {
		waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
	}
	if *flags.numeric {
		waOpts = append(waOpts, whatsapp.WithNumericCode())
	}
	if *flags.sessionDSN != "" {
		waOpts = append(waOpts, whatsapp.WithDBDSN(*flags.sessionDSN))
	}
	return waOpts
}

// buildStoreOptions constructs prospect store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		slog.Debug("Configuring prospect store", "dsn_type", store.DetectDSNType(*flags.dbDSN))
		storeOpts = append(storeOpts, store.WithDSN(*flags.dbDSN))
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildNLUOptions constructs NLU oracle configuration options
func buildNLUOptions(flags Flags) []nlu.Option {
	var nluOpts []nlu.Option
	if *flags.openaiKey != "" {
		nluOpts = append(nluOpts, nlu.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		nluOpts = append(nluOpts, nlu.WithModel(*flags.openaiModel))
	}
	return nluOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.webhookURL != "" {
		apiOpts = append(apiOpts, api.WithWebhookURL(*flags.webhookURL))
	}
	if *flags.vendorName != "" || *flags.vendorEmail != "" {
		apiOpts = append(apiOpts, api.WithVendorContact(*flags.vendorName, *flags.vendorEmail))
	}
	if *flags.timezone != "" {
		apiOpts = append(apiOpts, api.WithTimezone(*flags.timezone))
	}
	if *flags.sweepCron != "" {
		apiOpts = append(apiOpts, api.WithSweepCron(*flags.sweepCron))
	}
	if *flags.useTwilio {
		apiOpts = append(apiOpts, api.WithTwilioTransport())
	}
	if !*flags.humanDelay {
		apiOpts = append(apiOpts, api.WithoutHumanDelay())
	}
	return apiOpts
}
