// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

type Config struct {
	Version string `toml:"-" mapstructure:"-"`

	Host          string `toml:"host" mapstructure:"host"`
	Port          int    `toml:"port" mapstructure:"port"`
	BaseURL       string `toml:"baseUrl" mapstructure:"baseUrl"`
	LogLevel      string `toml:"logLevel" mapstructure:"logLevel"`
	LogPath       string `toml:"logPath" mapstructure:"logPath"`
	LogMaxSize    int    `toml:"logMaxSize" mapstructure:"logMaxSize"`
	LogMaxBackups int    `toml:"logMaxBackups" mapstructure:"logMaxBackups"`

	MetricsEnabled        bool   `toml:"metricsEnabled" mapstructure:"metricsEnabled"`
	MetricsHost           string `toml:"metricsHost" mapstructure:"metricsHost"`
	MetricsPort           int    `toml:"metricsPort" mapstructure:"metricsPort"`
	MetricsBasicAuthUsers string `toml:"metricsBasicAuthUsers" mapstructure:"metricsBasicAuthUsers"`

	// WebhookToken guards the inbound endpoints when set.
	WebhookToken string `toml:"webhookToken" mapstructure:"webhookToken"`
	// RequestTimeout bounds every outbound call, in seconds.
	RequestTimeout int `toml:"requestTimeout" mapstructure:"requestTimeout"`

	Enabled          bool   `toml:"enabled" mapstructure:"enabled"`
	TargetLibrary    string `toml:"targetLibrary" mapstructure:"targetLibrary"`
	AllLibraries     bool   `toml:"allLibraries" mapstructure:"allLibraries"`
	DeleteFiles      bool   `toml:"deleteFiles" mapstructure:"deleteFiles"`
	SendNotification bool   `toml:"sendNotification" mapstructure:"sendNotification"`

	EmbyHost     string `toml:"embyHost" mapstructure:"embyHost"`
	EmbyAPIKey   string `toml:"embyApiKey" mapstructure:"embyApiKey"`
	EmbyUsername string `toml:"embyUsername" mapstructure:"embyUsername"`
	EmbyPassword string `toml:"embyPassword" mapstructure:"embyPassword"`

	QBHost          string `toml:"qbHost" mapstructure:"qbHost"`
	QBUsername      string `toml:"qbUsername" mapstructure:"qbUsername"`
	QBPassword      string `toml:"qbPassword" mapstructure:"qbPassword"`
	QBBasicUsername string `toml:"qbBasicUsername" mapstructure:"qbBasicUsername"`
	QBBasicPassword string `toml:"qbBasicPassword" mapstructure:"qbBasicPassword"`
	QBTLSSkipVerify bool   `toml:"qbTlsSkipVerify" mapstructure:"qbTlsSkipVerify"`

	TelegramToken    string `toml:"telegramToken" mapstructure:"telegramToken"`
	TelegramChatID   string `toml:"telegramChatId" mapstructure:"telegramChatId"`
	NotifyWebhookURL string `toml:"notifyWebhookUrl" mapstructure:"notifyWebhookUrl"`
}
