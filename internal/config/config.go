package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Ops      OpsConfig      `mapstructure:"ops"`
	Business BusinessConfig `mapstructure:"business"`
}

type TelegramConfig struct {
	Token          string `mapstructure:"token"`
	AdminID        int64  `mapstructure:"admin_id"`
	PollTimeoutSec int    `mapstructure:"poll_timeout_sec"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	Password          string `mapstructure:"password"`
	DB                int    `mapstructure:"db"`
	SessionTTLMinutes int    `mapstructure:"session_ttl_minutes"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	LedgerEvents string `mapstructure:"ledger_events"`
}

// Enabled brokers 为空时事件流整体关闭
func (c *KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type OpsConfig struct {
	Port int `mapstructure:"port"`
}

type BusinessConfig struct {
	MaxRetryCount        int `mapstructure:"max_retry_count"`
	ReminderIntervalMins int `mapstructure:"reminder_interval_mins"`
	ReminderAgeHours     int `mapstructure:"reminder_age_hours"`
	LeaderboardSize      int `mapstructure:"leaderboard_size"`
	UsersPageSize        int `mapstructure:"users_page_size"`
}

// LoadConfig 加载配置文件
//
// 配置不走包级全局变量，加载后由调用方显式传递
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if config.Telegram.Token == "" {
		return nil, fmt.Errorf("telegram.token 不能为空")
	}
	if config.Telegram.AdminID == 0 {
		return nil, fmt.Errorf("telegram.admin_id 不能为空")
	}
	applyDefaults(config)

	return config, nil
}

func applyDefaults(c *Config) {
	if c.Telegram.PollTimeoutSec <= 0 {
		c.Telegram.PollTimeoutSec = 60
	}
	if c.Redis.SessionTTLMinutes <= 0 {
		c.Redis.SessionTTLMinutes = 30
	}
	if c.Business.MaxRetryCount <= 0 {
		c.Business.MaxRetryCount = 3
	}
	if c.Business.ReminderIntervalMins <= 0 {
		c.Business.ReminderIntervalMins = 360
	}
	if c.Business.ReminderAgeHours <= 0 {
		c.Business.ReminderAgeHours = 24
	}
	if c.Business.LeaderboardSize <= 0 {
		c.Business.LeaderboardSize = 10
	}
	if c.Business.UsersPageSize <= 0 {
		c.Business.UsersPageSize = 50
	}
}
