package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Fingerprint FingerprintConfig `mapstructure:"fingerprint"`
	Anomaly     AnomalyConfig     `mapstructure:"anomaly"`
	ThreatIntel ThreatIntelConfig `mapstructure:"threat_intel"`
	Events      EventsConfig      `mapstructure:"events"`
	Alerts      AlertsConfig      `mapstructure:"alerts"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TLS      bool   `mapstructure:"tls"`
}

type FingerprintConfig struct {
	SimilarityThreshold int `mapstructure:"similarity_threshold"`
	RetentionSeconds    int `mapstructure:"retention_seconds"`
}

type AnomalyConfig struct {
	WindowHours      int     `mapstructure:"window_hours"`
	Threshold        float64 `mapstructure:"threshold"`
	BurstThreshold   int     `mapstructure:"burst_threshold"`
	MaxHistory       int     `mapstructure:"max_history"`
	TrainingBuffer   int     `mapstructure:"training_buffer"`
	RetrainEveryN    int     `mapstructure:"retrain_every_n"`
	OffHoursStart    int     `mapstructure:"off_hours_start"`
	OffHoursEnd      int     `mapstructure:"off_hours_end"`
	FrequencyCeiling int     `mapstructure:"frequency_ceiling"`
}

// ProviderConfig holds one external reputation source. Settings are decoded
// per provider with mapstructure, mirroring how plugin settings are handled.
type ProviderConfig struct {
	Name           string                 `mapstructure:"name"`
	Enabled        bool                   `mapstructure:"enabled"`
	Weight         float64                `mapstructure:"weight"`
	TimeoutSeconds int                    `mapstructure:"timeout_seconds"`
	CacheTTLMin    int                    `mapstructure:"cache_ttl_minutes"`
	Settings       map[string]interface{} `mapstructure:"settings"`
}

type ThreatIntelConfig struct {
	Providers       []ProviderConfig `mapstructure:"providers"`
	TorExitBonus    int              `mapstructure:"tor_exit_bonus"`
	VPNProxyBonus   int              `mapstructure:"vpn_proxy_bonus"`
	TorExitListURL  string           `mapstructure:"tor_exit_list_url"`
	SweepMinutes    int              `mapstructure:"sweep_minutes"`
	RefreshMinutes  int              `mapstructure:"refresh_minutes"`
	MetricsCapacity int              `mapstructure:"metrics_capacity"`
}

type KafkaSinkConfig struct {
	Enabled  bool                   `mapstructure:"enabled"`
	Settings map[string]interface{} `mapstructure:"settings"`
}

type EventsConfig struct {
	BufferSize           int             `mapstructure:"buffer_size"`
	FlushIntervalSeconds int             `mapstructure:"flush_interval_seconds"`
	RetentionDays        int             `mapstructure:"retention_days"`
	Kafka                KafkaSinkConfig `mapstructure:"kafka"`
}

type ChannelConfig struct {
	Type     string                 `mapstructure:"type"`
	Enabled  bool                   `mapstructure:"enabled"`
	Settings map[string]interface{} `mapstructure:"settings"`
}

type AlertsConfig struct {
	CooldownMinutes     int             `mapstructure:"cooldown_minutes"`
	SweepSeconds        int             `mapstructure:"sweep_seconds"`
	HistorySize         int             `mapstructure:"history_size"`
	MemoryThresholdMB   int             `mapstructure:"memory_threshold_mb"`
	StorageThresholdPct float64         `mapstructure:"storage_threshold_pct"`
	RateLimitThreshold  int             `mapstructure:"rate_limit_threshold"`
	AbuseThreshold      int             `mapstructure:"abuse_threshold"`
	Channels            []ChannelConfig `mapstructure:"channels"`
}

var globalConfig Config

func Load(configPath string) error {
	if err := loadConfigFile(configPath, "config", &globalConfig); err != nil {
		return fmt.Errorf("could not load main config file: %w", err)
	}
	setDefaultValues()
	return nil
}

func loadConfigFile(configPath, fileName string, out interface{}) error {
	viper.SetConfigName(fileName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("config file %s.yaml not found, using only environment variables", fileName)
		}
		return fmt.Errorf("error reading config file %s.yaml: %w", fileName, err)
	}

	if err := viper.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal %s config: %w", fileName, err)
	}

	return nil
}

func setDefaultValues() {
	if globalConfig.Database.SSLMode == "" {
		globalConfig.Database.SSLMode = "disable"
	}
	if globalConfig.Fingerprint.SimilarityThreshold == 0 {
		globalConfig.Fingerprint.SimilarityThreshold = 2
	}
	if globalConfig.Fingerprint.RetentionSeconds == 0 {
		globalConfig.Fingerprint.RetentionSeconds = int((24 * time.Hour).Seconds())
	}
	if globalConfig.Anomaly.WindowHours == 0 {
		globalConfig.Anomaly.WindowHours = 24
	}
	if globalConfig.Anomaly.Threshold == 0 {
		globalConfig.Anomaly.Threshold = 0.7
	}
	if globalConfig.Anomaly.BurstThreshold == 0 {
		globalConfig.Anomaly.BurstThreshold = 10
	}
	if globalConfig.Anomaly.MaxHistory == 0 {
		globalConfig.Anomaly.MaxHistory = 500
	}
	if globalConfig.Anomaly.TrainingBuffer == 0 {
		globalConfig.Anomaly.TrainingBuffer = 1000
	}
	if globalConfig.Anomaly.RetrainEveryN == 0 {
		globalConfig.Anomaly.RetrainEveryN = 100
	}
	if globalConfig.Anomaly.FrequencyCeiling == 0 {
		globalConfig.Anomaly.FrequencyCeiling = 20
	}
	if globalConfig.Anomaly.OffHoursStart == 0 {
		globalConfig.Anomaly.OffHoursStart = 22
	}
	if globalConfig.Anomaly.OffHoursEnd == 0 {
		globalConfig.Anomaly.OffHoursEnd = 6
	}
	if globalConfig.ThreatIntel.TorExitBonus == 0 {
		globalConfig.ThreatIntel.TorExitBonus = 15
	}
	if globalConfig.ThreatIntel.VPNProxyBonus == 0 {
		globalConfig.ThreatIntel.VPNProxyBonus = 10
	}
	if globalConfig.ThreatIntel.TorExitListURL == "" {
		globalConfig.ThreatIntel.TorExitListURL = "https://check.torproject.org/torbulkexitlist"
	}
	if globalConfig.ThreatIntel.SweepMinutes == 0 {
		globalConfig.ThreatIntel.SweepMinutes = 10
	}
	if globalConfig.ThreatIntel.RefreshMinutes == 0 {
		globalConfig.ThreatIntel.RefreshMinutes = 30
	}
	if globalConfig.ThreatIntel.MetricsCapacity == 0 {
		globalConfig.ThreatIntel.MetricsCapacity = 1000
	}
	if globalConfig.Events.BufferSize == 0 {
		globalConfig.Events.BufferSize = 100
	}
	if globalConfig.Events.FlushIntervalSeconds == 0 {
		globalConfig.Events.FlushIntervalSeconds = 30
	}
	if globalConfig.Events.RetentionDays == 0 {
		globalConfig.Events.RetentionDays = 30
	}
	if globalConfig.Alerts.CooldownMinutes == 0 {
		globalConfig.Alerts.CooldownMinutes = 15
	}
	if globalConfig.Alerts.SweepSeconds == 0 {
		globalConfig.Alerts.SweepSeconds = 60
	}
	if globalConfig.Alerts.HistorySize == 0 {
		globalConfig.Alerts.HistorySize = 100
	}
	if globalConfig.Alerts.MemoryThresholdMB == 0 {
		globalConfig.Alerts.MemoryThresholdMB = 1024
	}
	if globalConfig.Alerts.StorageThresholdPct == 0 {
		globalConfig.Alerts.StorageThresholdPct = 90
	}
	if globalConfig.Alerts.RateLimitThreshold == 0 {
		globalConfig.Alerts.RateLimitThreshold = 50
	}
	if globalConfig.Alerts.AbuseThreshold == 0 {
		globalConfig.Alerts.AbuseThreshold = 20
	}
}

func GetConfig() *Config {
	return &globalConfig
}
