package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL      = "http://127.0.0.1:8000"
	DefaultAppName     = "taskify"
	DefaultDisplayName = "Taskify - Making Tasks Simpler"
)

type Config struct {
	Environment string
	APIURL      string
	AppName     string
	DisplayName string
	// Zero means no client-side timeout; the transport defaults apply.
	HTTPTimeoutSec int

	DataDir     string
	PrefsDBPath string
	LogPath     string
	LogLevel    string

	AlertAudio bool
	AlertBell  bool

	DesktopWidth  int
	DesktopHeight int
}

// fileConfig mirrors the optional YAML config file. Environment variables win.
type fileConfig struct {
	Environment    string `yaml:"environment"`
	APIURL         string `yaml:"api_url"`
	AppName        string `yaml:"app_name"`
	DisplayName    string `yaml:"display_name"`
	HTTPTimeoutSec int    `yaml:"http_timeout_seconds"`
	DataDir        string `yaml:"data_dir"`
	LogLevel       string `yaml:"log_level"`
	AlertAudio     *bool  `yaml:"alert_audio"`
	AlertBell      *bool  `yaml:"alert_bell"`
}

func FromEnv() Config {
	file, _ := loadFile(strings.TrimSpace(os.Getenv("TASKIFY_CONFIG_FILE")))
	return fromEnvAndFile(file)
}

// Load is FromEnv that reports a broken config file instead of ignoring it.
func Load() (Config, error) {
	file, err := loadFile(strings.TrimSpace(os.Getenv("TASKIFY_CONFIG_FILE")))
	if err != nil {
		return Config{}, err
	}
	return fromEnvAndFile(file), nil
}

func fromEnvAndFile(file fileConfig) Config {
	appName := stringOrDefault("TASKIFY_APP_NAME", firstNonEmpty(file.AppName, DefaultAppName))
	dataDir := stringOrDefault("TASKIFY_DATA_DIR", firstNonEmpty(file.DataDir, defaultDataDir(appName)))

	return Config{
		Environment:    stringOrDefault("TASKIFY_ENV", firstNonEmpty(file.Environment, "production")),
		APIURL:         strings.TrimRight(stringOrDefault("TASKIFY_API_URL", firstNonEmpty(file.APIURL, DefaultAPIURL)), "/"),
		AppName:        appName,
		DisplayName:    stringOrDefault("TASKIFY_DISPLAY_NAME", firstNonEmpty(file.DisplayName, DefaultDisplayName)),
		HTTPTimeoutSec: nonNegativeIntOrDefault("TASKIFY_HTTP_TIMEOUT_SECONDS", maxInt(0, file.HTTPTimeoutSec)),
		DataDir:        dataDir,
		PrefsDBPath:    stringOrDefault("TASKIFY_PREFS_DB_PATH", filepath.Join(dataDir, "prefs.sqlite")),
		LogPath:        stringOrDefault("TASKIFY_LOG_PATH", filepath.Join(dataDir, "taskify.log")),
		LogLevel:       stringOrDefault("TASKIFY_LOG_LEVEL", firstNonEmpty(file.LogLevel, "info")),
		AlertAudio:     boolOrDefault("TASKIFY_ALERT_AUDIO", boolPtrOrDefault(file.AlertAudio, true)),
		AlertBell:      boolOrDefault("TASKIFY_ALERT_BELL", boolPtrOrDefault(file.AlertBell, true)),
		DesktopWidth:   intOrDefault("TASKIFY_DESKTOP_WIDTH", 1024),
		DesktopHeight:  intOrDefault("TASKIFY_DESKTOP_HEIGHT", 768),
	}
}

func loadFile(path string) (fileConfig, error) {
	if path == "" {
		return fileConfig{}, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config file: %w", err)
	}
	var parsed fileConfig
	if err := yaml.Unmarshal(content, &parsed); err != nil {
		return fileConfig{}, fmt.Errorf("parse config file: %w", err)
	}
	return parsed, nil
}

func defaultDataDir(appName string) string {
	dirName := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(appName)), " ", "-")
	if dirName == "" {
		dirName = DefaultAppName
	}
	if base := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); base != "" {
		return filepath.Join(base, dirName)
	}
	if base, err := os.UserConfigDir(); err == nil && base != "" {
		return filepath.Join(base, dirName)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), dirName)
	}
	return filepath.Join(home, ".local", "share", dirName)
}

func stringOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func intOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}

func nonNegativeIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func boolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func boolPtrOrDefault(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
