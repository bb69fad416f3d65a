package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"fundboard/internal/service"

	"github.com/sirupsen/logrus"
)

type config struct {
	PostgresURL      string
	DBMaxOpenConns   int
	DBMaxIdleConns   int
	DBConnectTimeout time.Duration
	Port             string
	LogLevel         logrus.Level
	QuoteBaseURL     string
	QuoteTimeout     time.Duration
	QuotePause       time.Duration
	RefreshHours     []int
	Holidays         []string
}

func loadConfig() config {
	cfg := config{
		PostgresURL:      os.Getenv("POSTGRES_URL"),
		DBMaxOpenConns:   getEnvInt("DB_MAX_OPEN_CONNS", 4),
		DBMaxIdleConns:   getEnvInt("DB_MAX_IDLE_CONNS", 2),
		DBConnectTimeout: time.Duration(getEnvInt("DB_CONNECT_TIMEOUT_SECONDS", 5)) * time.Second,
		Port:             getEnv("PORT", "3001"),
		LogLevel:         logrus.InfoLevel,
		QuoteBaseURL:     getEnv("QUOTE_BASE_URL", service.DefaultQuoteBaseURL),
		QuoteTimeout:     time.Duration(getEnvInt("QUOTE_TIMEOUT_SECONDS", 10)) * time.Second,
		QuotePause:       time.Duration(getEnvInt("QUOTE_PAUSE_MS", 300)) * time.Millisecond,
		RefreshHours:     parseHours(getEnv("REFRESH_HOURS", "15,21")),
		Holidays:         service.DefaultHolidays,
	}
	if lvl, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		cfg.LogLevel = lvl
	}
	if v := os.Getenv("MARKET_HOLIDAYS"); v != "" {
		cfg.Holidays = strings.Split(v, ",")
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if iv, err := strconv.Atoi(v); err == nil && iv >= 0 {
			return iv
		}
	}
	return fallback
}

// parseHours keeps the valid hours of a comma separated list.
func parseHours(s string) []int {
	hours := []int{}
	for _, part := range strings.Split(s, ",") {
		h, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || h < 0 || h > 23 {
			continue
		}
		hours = append(hours, h)
	}
	return hours
}
