package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"Supervisor-Integration-Agent/pkg/logger"
)

// Config 描述了 supervisord 在启动阶段需要加载的核心配置。
type Config struct {
	Server       ServerConfig       `json:"server"`
	Metrics      MetricsConfig      `json:"metrics"`
	Logging      LoggingConfig      `json:"logging"`
	Registry     RegistryConfig     `json:"registry"`
	LLM          LLMConfig          `json:"llm"`
	Conversation ConversationConfig `json:"conversation"`
	AuditQueue   AuditQueueConfig   `json:"audit_queue"`
	Alerting     AlertingConfig     `json:"alerting"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address string `json:"address"`
}

// MetricsConfig 控制独立指标端点的监听地址，留空表示不启动。
type MetricsConfig struct {
	Address string `json:"address"`
}

// LoggingConfig 控制结构化日志与审计日志的输出方式。
type LoggingConfig struct {
	Level   string         `json:"level"`
	Format  string         `json:"format"`
	Outputs []string       `json:"outputs"`
	Audit   AuditLogConfig `json:"audit"`
}

// AuditLogConfig 控制审计日志文件与滚动策略。
type AuditLogConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// RegistryConfig 指定智能体注册表文件的位置。
type RegistryConfig struct {
	Path string `json:"path"`
}

// LLMConfig 用于配置规划与回复合成所用的大模型。
type LLMConfig struct {
	Provider       string `json:"provider"`
	APIKey         string `json:"api_key"`
	APIKeyEnv      string `json:"api_key_env"`
	BaseURL        string `json:"base_url"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// ConversationConfig 指定会话历史存储后端。
type ConversationConfig struct {
	Driver       string `json:"driver"`
	DSN          string `json:"dsn"`
	HistoryLimit int    `json:"history_limit"`
}

// AuditQueueConfig 指定使用日志的队列后端。
type AuditQueueConfig struct {
	Driver   string         `json:"driver"`
	Workers  int            `json:"workers"`
	Redis    RedisConfig    `json:"redis"`
	RabbitMQ RabbitMQConfig `json:"rabbitmq"`
}

// RedisConfig 描述 Redis 队列的连接信息。
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Queue    string `json:"queue"`
}

// RabbitMQConfig 描述 RabbitMQ 队列的连接信息。
type RabbitMQConfig struct {
	URL   string `json:"url"`
	Queue string `json:"queue"`
}

// AlertingConfig 列出错误调用告警的 webhook 地址。
type AlertingConfig struct {
	Webhooks []string `json:"webhooks"`
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))

	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}

	if c.Registry.Path == "" {
		c.Registry.Path = filepath.Join(baseDir, "agents.yaml")
	} else if !filepath.IsAbs(c.Registry.Path) {
		c.Registry.Path = filepath.Join(baseDir, c.Registry.Path)
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = "SUPERVISOR_LLM_API_KEY"
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv(c.LLM.APIKeyEnv)
	}

	if c.Conversation.Driver == "" {
		c.Conversation.Driver = "memory"
	}
	if c.Conversation.HistoryLimit <= 0 {
		c.Conversation.HistoryLimit = 20
	}

	if c.AuditQueue.Driver == "" {
		c.AuditQueue.Driver = "memory"
	}
	if c.AuditQueue.Workers <= 0 {
		c.AuditQueue.Workers = 1
	}

	if c.Logging.Audit.Enabled && c.Logging.Audit.Path != "" && !filepath.IsAbs(c.Logging.Audit.Path) {
		c.Logging.Audit.Path = filepath.Join(baseDir, c.Logging.Audit.Path)
	}
}

// LoggerConfig 将日志配置转换为 pkg/logger 的配置结构。
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:   c.Logging.Level,
		Format:  c.Logging.Format,
		Outputs: c.Logging.Outputs,
		Audit: logger.AuditConfig{
			Enabled:    c.Logging.Audit.Enabled,
			Path:       c.Logging.Audit.Path,
			MaxSizeMB:  c.Logging.Audit.MaxSizeMB,
			MaxBackups: c.Logging.Audit.MaxBackups,
			MaxAgeDays: c.Logging.Audit.MaxAgeDays,
		},
	}
}
