// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Chat   ChatConfig   `mapstructure:"chat"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Kafka  KafkaConfig  `mapstructure:"kafka"`
	MinIO  MinIOConfig  `mapstructure:"minio"`
	Speech SpeechConfig `mapstructure:"speech"`
	LLM    LLMConfig    `mapstructure:"llm"`
	TTS    TTSConfig    `mapstructure:"tts"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// ChatConfig 存储对话会话相关的配置。
type ChatConfig struct {
	// MaxTurns 单个会话允许的最大轮次（一问一答为一轮）。
	MaxTurns int `mapstructure:"max_turns"`
	// MaxDurationSeconds 单个会话的最大时长（秒）。
	MaxDurationSeconds int `mapstructure:"max_duration_seconds"`
	// Store 会话存储类型: memory 或 redis。
	Store string `mapstructure:"store"`
	// ReapIntervalSeconds 后台清理器扫描间隔（秒），0 表示关闭。
	ReapIntervalSeconds int `mapstructure:"reap_interval_seconds"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// SpeechConfig 存储语音评测服务相关的配置。
type SpeechConfig struct {
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	Language string `mapstructure:"language"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// TTSConfig 存储语音合成服务相关的配置。
type TTSConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Voice   string `mapstructure:"voice"`
	Format  string `mapstructure:"format"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}

	applyDefaults()
}

// applyDefaults 为未设置的关键项填充默认值。
func applyDefaults() {
	if Conf.Chat.MaxTurns == 0 {
		Conf.Chat.MaxTurns = 10
	}
	if Conf.Chat.MaxDurationSeconds == 0 {
		Conf.Chat.MaxDurationSeconds = 120
	}
	if Conf.Chat.Store == "" {
		Conf.Chat.Store = "memory"
	}
	if Conf.Speech.Language == "" {
		Conf.Speech.Language = "en-US"
	}
}
