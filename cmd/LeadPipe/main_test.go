package main

import (
	"os"
	"path/filepath"
	"testing"
)

func stringPtr(s string) *string { return &s }
func boolPtr(b bool) *bool       { return &b }

func clearLeadPipeEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LEADPIPE_STATE_DIR", "DATABASE_URL", "WHATSAPP_DB_DSN",
		"OPENAI_API_KEY", "OPENAI_MODEL", "MAKE_WEBHOOK_URL",
		"VENDOR_NAME", "VENDOR_EMAIL", "API_ADDR",
		"LEADPIPE_TIMEZONE", "SWEEP_SCHEDULE",
		"LEADPIPE_USE_TWILIO", "LEADPIPE_HUMAN_DELAY",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadEnvironmentConfigDefaults(t *testing.T) {
	clearLeadPipeEnv(t)

	config := loadEnvironmentConfig()

	if config.StateDir != DefaultStateDir {
		t.Errorf("StateDir = %q, want %q", config.StateDir, DefaultStateDir)
	}
	if want := filepath.Join(DefaultStateDir, DefaultDBFileName); config.DatabaseURL != want {
		t.Errorf("DatabaseURL = %q, want %q", config.DatabaseURL, want)
	}
	if want := filepath.Join(DefaultStateDir, DefaultSessionDBFileName); config.SessionDSN != want {
		t.Errorf("SessionDSN = %q, want %q", config.SessionDSN, want)
	}
	if config.UseTwilio {
		t.Error("UseTwilio should default to false")
	}
	if !config.HumanDelay {
		t.Error("HumanDelay should default to true")
	}
}

func TestLoadEnvironmentConfigFromEnv(t *testing.T) {
	clearLeadPipeEnv(t)
	t.Setenv("LEADPIPE_STATE_DIR", "/tmp/leadpipe-test")
	t.Setenv("DATABASE_URL", "postgres://leadpipe@localhost/leadpipe")
	t.Setenv("MAKE_WEBHOOK_URL", "https://hook.us1.make.com/abc123")
	t.Setenv("LEADPIPE_USE_TWILIO", "yes")
	t.Setenv("LEADPIPE_HUMAN_DELAY", "off")

	config := loadEnvironmentConfig()

	if config.StateDir != "/tmp/leadpipe-test" {
		t.Errorf("StateDir = %q", config.StateDir)
	}
	if config.DatabaseURL != "postgres://leadpipe@localhost/leadpipe" {
		t.Errorf("DatabaseURL = %q", config.DatabaseURL)
	}
	if config.WebhookURL != "https://hook.us1.make.com/abc123" {
		t.Errorf("WebhookURL = %q", config.WebhookURL)
	}
	if !config.UseTwilio {
		t.Error("UseTwilio should be true")
	}
	if config.HumanDelay {
		t.Error("HumanDelay should be false")
	}
	// Session DSN still defaults into the configured state directory.
	if want := filepath.Join("/tmp/leadpipe-test", DefaultSessionDBFileName); config.SessionDSN != want {
		t.Errorf("SessionDSN = %q, want %q", config.SessionDSN, want)
	}
}

func TestEnsureDirectoriesExist(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "nested", "leadpipe.db")
	sessionPath := filepath.Join(tmp, "nested", "whatsmeow.db")

	flags := Flags{
		dbDSN:      stringPtr(dbPath),
		sessionDSN: stringPtr(sessionPath),
	}
	if err := ensureDirectoriesExist(flags); err != nil {
		t.Fatalf("ensureDirectoriesExist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, "nested")); err != nil {
		t.Errorf("state directory not created: %v", err)
	}

	// Network DSNs need no directories.
	flags = Flags{
		dbDSN:      stringPtr("postgres://leadpipe@localhost/leadpipe"),
		sessionDSN: stringPtr("redis://localhost:6379/0"),
	}
	if err := ensureDirectoriesExist(flags); err != nil {
		t.Errorf("ensureDirectoriesExist with network DSNs: %v", err)
	}
}

func TestBuildOptionCounts(t *testing.T) {
	flags := Flags{
		qrOutput:    stringPtr("/tmp/qr.png"),
		numeric:     boolPtr(true),
		stateDir:    stringPtr(DefaultStateDir),
		dbDSN:       stringPtr("/tmp/leadpipe.db"),
		sessionDSN:  stringPtr("/tmp/whatsmeow.db"),
		openaiKey:   stringPtr("sk-test"),
		openaiModel: stringPtr("gpt-4o-mini"),
		webhookURL:  stringPtr("https://hook.us1.make.com/abc123"),
		vendorName:  stringPtr("Equipo VigiaLabs"),
		vendorEmail: stringPtr("ventas@vigialabs.pe"),
		apiAddr:     stringPtr(":9000"),
		timezone:    stringPtr("America/Lima"),
		sweepCron:   stringPtr("0 10 * * 1-5"),
		useTwilio:   boolPtr(false),
		humanDelay:  boolPtr(false),
	}

	if got := len(buildWhatsAppOptions(flags)); got != 3 {
		t.Errorf("whatsapp options = %d, want 3", got)
	}
	if got := len(buildStoreOptions(flags)); got != 1 {
		t.Errorf("store options = %d, want 1", got)
	}
	if got := len(buildNLUOptions(flags)); got != 2 {
		t.Errorf("nlu options = %d, want 2", got)
	}
	// addr, webhook, vendor, timezone, sweep cron, no-delay
	if got := len(buildAPIOptions(flags)); got != 6 {
		t.Errorf("api options = %d, want 6", got)
	}
}
