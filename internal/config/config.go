package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the satellite process.
type Config struct {
	DeviceName       string
	APIPort          int
	APIBindAddress   string
	AdminBindAddr    string
	MetricsNamespace string

	PreferencesPath string
	WakeWordDir     string

	WakeupSoundURI        string
	TimerFinishedSoundURI string

	MaxActiveWakeWords int
	RefractorySeconds  float64

	ProjectName    string
	ProjectVersion string
	Platform       string
	Board          string

	ShutdownTimeout time.Duration
}

// Load reads environment variables and applies safe defaults, per
// spec.md §6's enumerated configuration surface.
func Load() (Config, error) {
	cfg := Config{
		DeviceName:            envOrDefault("SATELLITE_DEVICE_NAME", "workstation-satellite"),
		APIBindAddress:        envOrDefault("SATELLITE_API_BIND_ADDRESS", "0.0.0.0"),
		AdminBindAddr:         envOrDefault("SATELLITE_ADMIN_BIND_ADDR", ":8081"),
		MetricsNamespace:      envOrDefault("SATELLITE_METRICS_NAMESPACE", "satellite"),
		PreferencesPath:       envOrDefault("SATELLITE_PREFERENCES_PATH", ".satellite/preferences.json"),
		WakeWordDir:           envOrDefault("SATELLITE_WAKE_WORD_DIR", ".satellite/wake_words"),
		WakeupSoundURI:        envOrDefault("SATELLITE_WAKEUP_SOUND_URI", ""),
		TimerFinishedSoundURI: envOrDefault("SATELLITE_TIMER_FINISHED_SOUND_URI", ""),
		ProjectName:           envOrDefault("SATELLITE_PROJECT_NAME", "workstation-satellite"),
		ProjectVersion:        envOrDefault("SATELLITE_PROJECT_VERSION", "0.1.0"),
		Platform:              envOrDefault("SATELLITE_PLATFORM", "linux"),
		Board:                 envOrDefault("SATELLITE_BOARD", "generic-desktop"),
		APIPort:               6053,
		MaxActiveWakeWords:    2,
		RefractorySeconds:     2.0,
		ShutdownTimeout:       15 * time.Second,
	}

	var err error
	cfg.APIPort, err = intFromEnv("SATELLITE_API_PORT", cfg.APIPort)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxActiveWakeWords, err = intFromEnv("SATELLITE_MAX_ACTIVE_WAKE_WORDS", cfg.MaxActiveWakeWords)
	if err != nil {
		return Config{}, err
	}
	cfg.RefractorySeconds, err = floatFromEnv("SATELLITE_REFRACTORY_SECONDS", cfg.RefractorySeconds)
	if err != nil {
		return Config{}, err
	}
	cfg.ShutdownTimeout, err = durationFromEnv("SATELLITE_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}

	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return Config{}, fmt.Errorf("SATELLITE_API_PORT must be a valid port number")
	}
	if cfg.MaxActiveWakeWords <= 0 {
		return Config{}, fmt.Errorf("SATELLITE_MAX_ACTIVE_WAKE_WORDS must be positive")
	}
	if cfg.RefractorySeconds < 0 {
		return Config{}, fmt.Errorf("SATELLITE_REFRACTORY_SECONDS must be >= 0")
	}
	if strings.TrimSpace(cfg.DeviceName) == "" {
		return Config{}, fmt.Errorf("SATELLITE_DEVICE_NAME must not be empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}
