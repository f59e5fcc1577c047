/*
Package config loads server settings from the environment.

PURPOSE:
  Everything that differs between a laptop and production lives in
  environment variables, optionally seeded from a .env file. Command-line
  flags in cmd/server override the few settings operators change by hand
  (port, database path).

VARIABLES:
  HTTP_PORT                 API port (8080)
  DB_PATH                   SQLite file for run log and tokens (bizops.db)
  CORS_ALLOWED_ORIGINS      Comma-separated origins (*)
  CONFIG_WORKBOOK           Configuration workbook path (config.xlsx)
  AGGREGATE_OTHER_CATEGORIES  Keep resource rules outside referral/delivery (false)

  TIME_FEED_KIND            workbook | http (workbook)
  TIME_FEED_DIR / _PREFIX   Workbook feed location (./feeds, time)
  TIME_FEED_URL             HTTP feed endpoint
  TIME_FEED_TOKEN           Bearer token for the HTTP time feed

  ACCOUNTING_FEED_KIND      workbook | http (workbook)
  ACCOUNTING_FEED_DIR / _PREFIX / _URL
  ACCOUNTING_TOKEN_URL      OAuth token endpoint for the HTTP accounting feed
  ACCOUNTING_CLIENT_ID / ACCOUNTING_CLIENT_SECRET
  ACCOUNTING_REFRESH_TOKEN  Seed refresh token, used until the first rotation
  TOKEN_STORE               sqlite | file (sqlite)
  TOKEN_FILE                File store path (tokens.json)

  SMTP_HOST / SMTP_PORT / SMTP_USER / SMTP_PASS / SMTP_FROM

  SCHEDULE_ENABLED          Mail reports periodically (false)
  SCHEDULE_INTERVAL         Go duration between mailings (24h)
  SCHEDULE_REPORTS          Comma-separated kinds (commission)
  REPORT_RECIPIENTS         Comma-separated addresses

SECURITY:
  Secrets are read here and handed to their consumers. They are never
  logged; Summary() prints only whether they are set.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/warp/bizops-engine/export"
)

// Feed kinds.
const (
	FeedWorkbook = "workbook"
	FeedHTTP     = "http"
)

// FeedConfig locates one upstream feed.
type FeedConfig struct {
	Name   string `validate:"required"`
	Kind   string `validate:"oneof=workbook http"`
	Dir    string `validate:"required_if=Kind workbook"`
	Prefix string `validate:"required_if=Kind workbook"`
	URL    string `validate:"required_if=Kind http"`
	Token  string // SENSITIVE: Never log
}

// OAuthConfig holds the accounting feed's token endpoint and secrets.
type OAuthConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string // SENSITIVE: Never log
	RefreshToken string // SENSITIVE: Never log
	Store        string `validate:"oneof=sqlite file"`
	File         string `validate:"required_if=Store file"`
}

// Config is the full server configuration.
type Config struct {
	Port        int    `validate:"min=1,max=65535"`
	DBPath      string `validate:"required"`
	CORSOrigins []string

	ConfigWorkbook           string `validate:"required"`
	AggregateOtherCategories bool

	TimeFeed       FeedConfig
	AccountingFeed FeedConfig
	OAuth          OAuthConfig
	SMTP           export.SMTPConfig
	Schedule       ScheduleConfig
}

// ScheduleConfig drives the periodic report mailer.
type ScheduleConfig struct {
	Enabled    bool
	Interval   time.Duration `validate:"min=1m"`
	Reports    []string      `validate:"dive,oneof=commission bonus benefits"`
	Recipients []string      `validate:"required_if=Enabled true,dive,email"`
}

// Load reads .env files (default ".env"; a missing file is not an error),
// then the environment, and validates the result. Variables already set in
// the environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
		log.Println("[Config] No .env file found, using environment only")
	}

	cfg := &Config{
		Port:        getEnvInt("HTTP_PORT", 8080),
		DBPath:      getEnv("DB_PATH", "bizops.db"),
		CORSOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		ConfigWorkbook:           getEnv("CONFIG_WORKBOOK", "config.xlsx"),
		AggregateOtherCategories: getEnvBool("AGGREGATE_OTHER_CATEGORIES", false),

		TimeFeed: FeedConfig{
			Name:   getEnv("TIME_FEED_NAME", "Time tracking"),
			Kind:   strings.ToLower(getEnv("TIME_FEED_KIND", FeedWorkbook)),
			Dir:    getEnv("TIME_FEED_DIR", "./feeds"),
			Prefix: getEnv("TIME_FEED_PREFIX", "time"),
			URL:    getEnv("TIME_FEED_URL", ""),
			Token:  getEnv("TIME_FEED_TOKEN", ""),
		},
		AccountingFeed: FeedConfig{
			Name:   getEnv("ACCOUNTING_FEED_NAME", "Accounting"),
			Kind:   strings.ToLower(getEnv("ACCOUNTING_FEED_KIND", FeedWorkbook)),
			Dir:    getEnv("ACCOUNTING_FEED_DIR", "./feeds"),
			Prefix: getEnv("ACCOUNTING_FEED_PREFIX", "invoices"),
			URL:    getEnv("ACCOUNTING_FEED_URL", ""),
		},
		OAuth: OAuthConfig{
			TokenURL:     getEnv("ACCOUNTING_TOKEN_URL", ""),
			ClientID:     getEnv("ACCOUNTING_CLIENT_ID", ""),
			ClientSecret: getEnv("ACCOUNTING_CLIENT_SECRET", ""),
			RefreshToken: getEnv("ACCOUNTING_REFRESH_TOKEN", ""),
			Store:        strings.ToLower(getEnv("TOKEN_STORE", "sqlite")),
			File:         getEnv("TOKEN_FILE", "tokens.json"),
		},
		SMTP: export.SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASS", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
		Schedule: ScheduleConfig{
			Enabled:    getEnvBool("SCHEDULE_ENABLED", false),
			Interval:   getEnvDuration("SCHEDULE_INTERVAL", 24*time.Hour),
			Reports:    splitList(getEnv("SCHEDULE_REPORTS", "commission")),
			Recipients: splitList(getEnv("REPORT_RECIPIENTS", "")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags and returns every failure in one error.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// Summary lists settings for the startup log, secrets masked.
func (c *Config) Summary() []string {
	return []string{
		fmt.Sprintf("port=%d db=%s workbook=%s", c.Port, c.DBPath, c.ConfigWorkbook),
		fmt.Sprintf("time feed: %s (%s) token set=%t", c.TimeFeed.Name, c.TimeFeed.Kind, c.TimeFeed.Token != ""),
		fmt.Sprintf("accounting feed: %s (%s)", c.AccountingFeed.Name, c.AccountingFeed.Kind),
		fmt.Sprintf("oauth: token store=%s client secret set=%t refresh token set=%t",
			c.OAuth.Store, c.OAuth.ClientSecret != "", c.OAuth.RefreshToken != ""),
		fmt.Sprintf("smtp: host=%q set=%t", c.SMTP.Host, c.SMTP.Password != ""),
		fmt.Sprintf("schedule: enabled=%t every %s reports=%v recipients=%d",
			c.Schedule.Enabled, c.Schedule.Interval, c.Schedule.Reports, len(c.Schedule.Recipients)),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[Config] %s=%q is not a number, using %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[Config] %s=%q is not a boolean, using %t", key, v, def)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[Config] %s=%q is not a duration, using %s", key, v, def)
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
