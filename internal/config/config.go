// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/embyclean/embyclean/internal/domain"
)

var envPrefix = "EMBYCLEAN__"

const (
	defaultRequestTimeout = 30 * time.Second
	maxRequestTimeout     = 5 * time.Minute
)

type AppConfig struct {
	Config  *domain.Config
	viper   *viper.Viper
	version string

	mu          sync.RWMutex
	listenersMu sync.RWMutex
	listeners   []func(*domain.Config)
}

func New(configDirOrPath string, versions ...string) (*AppConfig, error) {
	version := "dev"
	if len(versions) > 0 && strings.TrimSpace(versions[0]) != "" {
		version = versions[0]
	}

	c := &AppConfig{
		viper:   viper.New(),
		Config:  &domain.Config{},
		version: version,
	}

	c.defaults()

	if err := c.load(configDirOrPath); err != nil {
		return nil, err
	}

	c.loadFromEnv()

	if err := c.viper.Unmarshal(c.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	c.Config.Version = c.version

	c.watchConfig()

	return c, nil
}

func (c *AppConfig) defaults() {
	host := "localhost"
	if detectContainer() {
		host = "0.0.0.0"
	}

	c.viper.SetDefault("host", host)
	c.viper.SetDefault("port", 7480)
	c.viper.SetDefault("baseUrl", "/")
	c.viper.SetDefault("logLevel", "INFO")
	c.viper.SetDefault("logPath", "")
	c.viper.SetDefault("logMaxSize", 50)
	c.viper.SetDefault("logMaxBackups", 3)
	c.viper.SetDefault("metricsEnabled", false)
	c.viper.SetDefault("metricsHost", "127.0.0.1")
	c.viper.SetDefault("metricsPort", 9075)
	c.viper.SetDefault("metricsBasicAuthUsers", "")
	c.viper.SetDefault("webhookToken", "")
	c.viper.SetDefault("requestTimeout", int(defaultRequestTimeout/time.Second))

	c.viper.SetDefault("enabled", false)
	c.viper.SetDefault("targetLibrary", "")
	c.viper.SetDefault("allLibraries", false)
	c.viper.SetDefault("deleteFiles", true)
	c.viper.SetDefault("sendNotification", true)

	c.viper.SetDefault("embyHost", "http://localhost:8096")
	c.viper.SetDefault("embyApiKey", "")
	c.viper.SetDefault("embyUsername", "")
	c.viper.SetDefault("embyPassword", "")

	c.viper.SetDefault("qbHost", "http://localhost:8080")
	c.viper.SetDefault("qbUsername", "admin")
	c.viper.SetDefault("qbPassword", "adminadmin")
	c.viper.SetDefault("qbBasicUsername", "")
	c.viper.SetDefault("qbBasicPassword", "")
	c.viper.SetDefault("qbTlsSkipVerify", false)

	c.viper.SetDefault("telegramToken", "")
	c.viper.SetDefault("telegramChatId", "")
	c.viper.SetDefault("notifyWebhookUrl", "")
}

func (c *AppConfig) load(configDirOrPath string) error {
	c.viper.SetConfigType("toml")

	if configDirOrPath != "" {
		configPath := c.resolveConfigPath(configDirOrPath)
		c.viper.SetConfigFile(configPath)

		if err := c.viper.ReadInConfig(); err != nil {
			// viper reports a missing explicit file as a plain fs error, not ConfigFileNotFoundError
			if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
				if err := c.writeDefaultConfig(configPath); err != nil {
					return err
				}
				if err := c.viper.ReadInConfig(); err != nil {
					return fmt.Errorf("failed to read newly created config: %w", err)
				}
				return nil
			}
			return fmt.Errorf("failed to read config: %w", err)
		}
		return nil
	}

	c.viper.SetConfigName("config")
	c.viper.AddConfigPath(".")
	c.viper.AddConfigPath(GetDefaultConfigDir())

	if err := c.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultConfigPath := filepath.Join(GetDefaultConfigDir(), "config.toml")
			if err := c.writeDefaultConfig(defaultConfigPath); err != nil {
				return err
			}
			c.viper.SetConfigFile(defaultConfigPath)
			if err := c.viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read newly created config: %w", err)
			}
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	return nil
}

func (c *AppConfig) loadFromEnv() {
	// Bind explicitly instead of AutomaticEnv so unrelated env vars never leak in.
	c.viper.BindEnv("host", envPrefix+"HOST")
	c.viper.BindEnv("port", envPrefix+"PORT")
	c.viper.BindEnv("baseUrl", envPrefix+"BASE_URL")
	c.viper.BindEnv("logLevel", envPrefix+"LOG_LEVEL")
	c.viper.BindEnv("logPath", envPrefix+"LOG_PATH")
	c.viper.BindEnv("logMaxSize", envPrefix+"LOG_MAX_SIZE")
	c.viper.BindEnv("logMaxBackups", envPrefix+"LOG_MAX_BACKUPS")
	c.viper.BindEnv("metricsEnabled", envPrefix+"METRICS_ENABLED")
	c.viper.BindEnv("metricsHost", envPrefix+"METRICS_HOST")
	c.viper.BindEnv("metricsPort", envPrefix+"METRICS_PORT")
	c.viper.BindEnv("metricsBasicAuthUsers", envPrefix+"METRICS_BASIC_AUTH_USERS")
	c.bindOrReadFromFile("webhookToken", envPrefix+"WEBHOOK_TOKEN")
	c.viper.BindEnv("requestTimeout", envPrefix+"REQUEST_TIMEOUT")

	c.viper.BindEnv("enabled", envPrefix+"ENABLED")
	c.viper.BindEnv("targetLibrary", envPrefix+"TARGET_LIBRARY")
	c.viper.BindEnv("allLibraries", envPrefix+"ALL_LIBRARIES")
	c.viper.BindEnv("deleteFiles", envPrefix+"DELETE_FILES")
	c.viper.BindEnv("sendNotification", envPrefix+"SEND_NOTIFICATION")

	c.viper.BindEnv("embyHost", envPrefix+"EMBY_HOST")
	c.bindOrReadFromFile("embyApiKey", envPrefix+"EMBY_API_KEY")
	c.viper.BindEnv("embyUsername", envPrefix+"EMBY_USERNAME")
	c.bindOrReadFromFile("embyPassword", envPrefix+"EMBY_PASSWORD")

	c.viper.BindEnv("qbHost", envPrefix+"QB_HOST")
	c.viper.BindEnv("qbUsername", envPrefix+"QB_USERNAME")
	c.bindOrReadFromFile("qbPassword", envPrefix+"QB_PASSWORD")
	c.viper.BindEnv("qbBasicUsername", envPrefix+"QB_BASIC_USERNAME")
	c.bindOrReadFromFile("qbBasicPassword", envPrefix+"QB_BASIC_PASSWORD")
	c.viper.BindEnv("qbTlsSkipVerify", envPrefix+"QB_TLS_SKIP_VERIFY")

	c.bindOrReadFromFile("telegramToken", envPrefix+"TELEGRAM_TOKEN")
	c.viper.BindEnv("telegramChatId", envPrefix+"TELEGRAM_CHAT_ID")
	c.viper.BindEnv("notifyWebhookUrl", envPrefix+"NOTIFY_WEBHOOK_URL")
}

func (c *AppConfig) watchConfig() {
	if c.viper.ConfigFileUsed() == "" {
		return
	}

	c.viper.OnConfigChange(func(e fsnotify.Event) {
		log.Info().Msgf("Config file changed: %s", e.Name)

		next := &domain.Config{}
		if err := c.viper.Unmarshal(next); err != nil {
			log.Error().Err(err).Msg("Failed to reload configuration")
			return
		}

		c.applyDynamicChanges(next)
	})
	c.viper.WatchConfig()
}

func (c *AppConfig) applyDynamicChanges(next *domain.Config) {
	next.Version = c.version

	c.mu.Lock()
	c.Config = next
	c.mu.Unlock()

	c.ApplyLogConfig()
	c.notifyListeners()
}

// Current returns a copy of the active configuration.
func (c *AppConfig) Current() domain.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return *c.Config
}

// RegisterReloadListener registers a callback that's invoked when the configuration file is reloaded.
func (c *AppConfig) RegisterReloadListener(fn func(*domain.Config)) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *AppConfig) notifyListeners() {
	c.listenersMu.RLock()
	listeners := append([]func(*domain.Config){}, c.listeners...)
	c.listenersMu.RUnlock()

	if len(listeners) == 0 {
		return
	}

	copied := c.Current()
	for _, listener := range listeners {
		listener(&copied)
	}
}

func (c *AppConfig) writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		log.Debug().Msgf("Config file already exists at: %s", path)
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	log.Debug().Msgf("Created config directory: %s", dir)

	configTemplate := `# config.toml - Auto-generated on first run

# Hostname / IP
# Default: "localhost" (or "0.0.0.0" in containers)
host = "{{ .host }}"

# Port
# Default: 7480
port = {{ .port }}

# Base URL
# Set custom baseUrl eg /embyclean/ to serve in subdirectory.
#baseUrl = "/embyclean/"

# Log file path
# If not defined, logs to stdout
#logPath = "log/embyclean.log"

# Log rotation
# Default: {{ .logMaxSize }}
#logMaxSize = {{ .logMaxSize }}
# Default: {{ .logMaxBackups }}
#logMaxBackups = {{ .logMaxBackups }}

# Log level
# Default: "INFO"
# Options: "ERROR", "DEBUG", "INFO", "WARN", "TRACE"
logLevel = "{{ .logLevel }}"

# Shared secret for the webhook endpoints.
# Send it as the X-API-Key header or the apikey query parameter.
# Leave empty to accept unauthenticated webhooks.
#webhookToken = ""

# Timeout in seconds applied to every call to Emby, qBittorrent and notifiers
# Default: {{ .requestTimeout }}
#requestTimeout = {{ .requestTimeout }}

# Prometheus Metrics
#metricsEnabled = false
#metricsHost = "127.0.0.1"
#metricsPort = 9075
# Format: "username:bcrypt_hash" or "user1:hash1,user2:hash2"
#metricsBasicAuthUsers = ""

# Cleanup
# Nothing is deleted until enabled is set to true.
enabled = false

# Substring of the Emby library name (or media path) to watch, case-insensitive.
targetLibrary = ""

# Treat every library as in scope. An empty targetLibrary alone matches nothing.
#allLibraries = false

# Remove downloaded data together with the torrent
deleteFiles = true

# Send a notification after each cleanup attempt
sendNotification = true

# Emby
embyHost = "{{ .embyHost }}"
# Either an API key or a username/password pair
#embyApiKey = ""
#embyUsername = ""
#embyPassword = ""

# qBittorrent
qbHost = "{{ .qbHost }}"
qbUsername = "{{ .qbUsername }}"
qbPassword = "{{ .qbPassword }}"
#qbBasicUsername = ""
#qbBasicPassword = ""
#qbTlsSkipVerify = false

# Telegram notifications
#telegramToken = ""
#telegramChatId = ""

# Generic JSON webhook notifications (plain text body)
#notifyWebhookUrl = ""
`

	data := map[string]any{
		"host":           c.viper.GetString("host"),
		"port":           c.viper.GetInt("port"),
		"logLevel":       c.viper.GetString("logLevel"),
		"logMaxSize":     c.viper.GetInt("logMaxSize"),
		"logMaxBackups":  c.viper.GetInt("logMaxBackups"),
		"requestTimeout": c.viper.GetInt("requestTimeout"),
		"embyHost":       c.viper.GetString("embyHost"),
		"qbHost":         c.viper.GetString("qbHost"),
		"qbUsername":     c.viper.GetString("qbUsername"),
		"qbPassword":     c.viper.GetString("qbPassword"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse config template: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Info().Msgf("Created default config file: %s", path)
	return nil
}

// GetDefaultConfigDir returns the OS-specific config directory
func GetDefaultConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		// Docker images set XDG_CONFIG_HOME=/config
		if xdgConfig == "/config" {
			return xdgConfig
		}
		return filepath.Join(xdgConfig, "embyclean")
	}

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "embyclean")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "AppData", "Roaming", "embyclean")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "embyclean")
	}
}

func detectContainer() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	if _, err := os.Stat("/dev/.lxc-boot-id"); err == nil {
		return true
	}
	return os.Getpid() == 1
}

// RequestTimeout returns the per-call timeout for outbound requests.
func (c *AppConfig) RequestTimeout() time.Duration {
	return requestTimeout(c.Current().RequestTimeout)
}

func requestTimeout(seconds int) time.Duration {
	if seconds <= 0 {
		return defaultRequestTimeout
	}
	timeout := time.Duration(seconds) * time.Second
	if timeout > maxRequestTimeout {
		return maxRequestTimeout
	}
	return timeout
}

func (c *AppConfig) ApplyLogConfig() {
	zerolog.TimeFieldFormat = time.RFC3339

	cfg := c.Current()
	setLogLevel(cfg.LogLevel)

	writer := c.baseLogWriter()

	if cfg.LogPath != "" {
		multiWriter, err := setupLogFile(cfg.LogPath, writer, cfg.LogMaxSize, cfg.LogMaxBackups)
		if err != nil {
			log.Error().Err(err).Msg("Failed to setup log file")
		} else {
			writer = multiWriter
		}
	}

	log.Logger = log.Logger.Output(writer)
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Logger.Level(lvl)
}

func setupLogFile(path string, base io.Writer, maxSize, maxBackups int) (io.Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	if maxSize <= 0 {
		maxSize = 50
	}

	if maxBackups < 0 {
		maxBackups = 0
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	}

	return io.MultiWriter(base, rotator), nil
}

func baseLogWriter(version string) io.Writer {
	if isDevBuild(version) {
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		writer.PartsOrder = []string{zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName}
		return writer
	}
	return os.Stderr
}

func (c *AppConfig) baseLogWriter() io.Writer {
	return baseLogWriter(c.version)
}

// InitDefaultLogger configures zerolog with the default writer for this version.
// This is used by CLI entry points before a configuration file is loaded.
func InitDefaultLogger(version string) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Logger.Output(baseLogWriter(version))
}

func isDevBuild(version string) bool {
	v := strings.ToLower(strings.TrimSpace(version))
	return v == "" || v == "dev" || strings.HasSuffix(v, "-dev")
}

// resolveConfigPath determines the actual config file path from the provided directory or file path
func (c *AppConfig) resolveConfigPath(configDirOrPath string) string {
	if strings.HasSuffix(strings.ToLower(configDirOrPath), ".toml") {
		return configDirOrPath
	}

	if info, err := os.Stat(configDirOrPath); err == nil && !info.IsDir() {
		return configDirOrPath
	}

	return filepath.Join(configDirOrPath, "config.toml")
}

// GetConfigDir returns the directory containing the config file
func (c *AppConfig) GetConfigDir() string {
	if c.viper.ConfigFileUsed() != "" {
		return filepath.Dir(c.viper.ConfigFileUsed())
	}
	return GetDefaultConfigDir()
}

func WriteDefaultConfig(path string) error {
	c := &AppConfig{
		viper: viper.New(),
	}

	c.defaults()

	return c.writeDefaultConfig(path)
}

// Sets viper variable if environment variable with _FILE suffix is present
func (c *AppConfig) bindOrReadFromFile(viperVar string, envVar string) {
	envVarFile := envVar + "_FILE"
	if filePath := os.Getenv(envVarFile); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", filePath).Msg("Could not read " + envVarFile)
		}
		c.viper.Set(viperVar, strings.TrimSpace(string(content)))
		return
	}
	c.viper.BindEnv(viperVar, envVar)
}
