package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Email   EmailConfig   `yaml:"email"`
	Chat    ChatConfig    `yaml:"chat"`
	Session SessionConfig `yaml:"session"`
	Redis   RedisConfig   `yaml:"redis"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Places  PlacesConfig  `yaml:"places"`
	Log     LogConfig     `yaml:"log"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
	GinMode string `yaml:"gin_mode"`
}

type EmailConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Subject        string `yaml:"subject"`
	Format         string `yaml:"format"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (e EmailConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

type ChatConfig struct {
	BaseURL        string `yaml:"base_url"`
	LinkBase       string `yaml:"link_base"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (c ChatConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type SessionConfig struct {
	Store      string `yaml:"store"`
	TTLMinutes int    `yaml:"ttl_minutes"`
	CookieName string `yaml:"cookie_name"`
	Secure     bool   `yaml:"secure_cookie"`
}

func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers          []string `yaml:"brokers"`
	SubmissionsTopic string   `yaml:"submissions_topic"`
	GroupID          string   `yaml:"group_id"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.SubmissionsTopic != ""
}

type PlacesConfig struct {
	Destinations    []string `yaml:"destinations"`
	PickupLocations []string `yaml:"pickup_locations"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"

	EmailFormatHTML = "html"
	EmailFormatText = "text"
)

func Default() Config {
	return Config{
		HTTP: HTTPConfig{Address: ":8080"},
		Email: EmailConfig{
			Host:           "smtp.gmail.com",
			Port:           587,
			Subject:        "New Booking Confirmation",
			Format:         EmailFormatHTML,
			TimeoutSeconds: 15,
		},
		Chat: ChatConfig{
			BaseURL:        "https://api.callmebot.com/whatsapp.php",
			LinkBase:       "https://wa.me/",
			TimeoutSeconds: 15,
		},
		Session: SessionConfig{
			Store:      SessionStoreMemory,
			TTLMinutes: 60,
			CookieName: "kt_session",
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Kafka: KafkaConfig{
			SubmissionsTopic: "booking-submissions",
			GroupID:          "ktransport-worker",
		},
		Places: PlacesConfig{
			Destinations:    []string{"Kuala Lumpur", "Singapore", "Penang", "Malacca", "Johor Bahru", "Langkawi"},
			PickupLocations: []string{"KLIA", "Changi Airport", "Kuala Lumpur City Center", "Chinatown", "Penang Airport"},
			CacheTTLSeconds: 300,
		},
		Log: LogConfig{Level: "info"},
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.fillDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// fillDefaults restores defaults for keys that were present in the file but left empty.
func (c *Config) fillDefaults() {
	d := Default()
	if c.HTTP.Address == "" {
		c.HTTP.Address = d.HTTP.Address
	}
	if c.Email.Host == "" {
		c.Email.Host = d.Email.Host
	}
	if c.Email.Port == 0 {
		c.Email.Port = d.Email.Port
	}
	if c.Email.Subject == "" {
		c.Email.Subject = d.Email.Subject
	}
	if c.Email.Format == "" {
		c.Email.Format = d.Email.Format
	}
	if c.Email.TimeoutSeconds == 0 {
		c.Email.TimeoutSeconds = d.Email.TimeoutSeconds
	}
	if c.Chat.BaseURL == "" {
		c.Chat.BaseURL = d.Chat.BaseURL
	}
	if c.Chat.LinkBase == "" {
		c.Chat.LinkBase = d.Chat.LinkBase
	}
	if c.Chat.TimeoutSeconds == 0 {
		c.Chat.TimeoutSeconds = d.Chat.TimeoutSeconds
	}
	if c.Session.Store == "" {
		c.Session.Store = d.Session.Store
	}
	if c.Session.TTLMinutes == 0 {
		c.Session.TTLMinutes = d.Session.TTLMinutes
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = d.Session.CookieName
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = d.Kafka.GroupID
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

func (c *Config) validate() error {
	switch c.Email.Format {
	case EmailFormatHTML, EmailFormatText:
	default:
		return fmt.Errorf("unknown email format %q", c.Email.Format)
	}
	switch c.Session.Store {
	case SessionStoreMemory, SessionStoreRedis:
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}
	if c.Email.Port <= 0 || c.Email.Port > 65535 {
		return fmt.Errorf("invalid email port %d", c.Email.Port)
	}
	return nil
}
