package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"mailtriage/pkg/config"
)

type Config struct {
	Server config.ServerConfig `yaml:"server"`
	MQ     config.MQConfig     `yaml:"mq"`
	Redis  config.RedisConfig  `yaml:"redis"`
	OpenAI config.OpenAIConfig `yaml:"openai"`
	Worker WorkerConfig        `yaml:"worker"`
}

// WorkerConfig 控制 worker 进程的行为
type WorkerConfig struct {
	// Concurrency 每个队列的 worker pool 大小
	Concurrency int `yaml:"concurrency"`
	// MaxRetries 单个任务最多重投次数，超过后进 DLQ
	MaxRetries int `yaml:"max_retries"`
	// ReplyMode 回复生成模式: "templated" 或 "generated"，进程级配置
	ReplyMode string `yaml:"reply_mode"`
}

func Load() *Config {
	// 使用统一配置中心
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 转换为 Config 结构
	var cfg Config
	cfgData, err := yaml.Marshal(cfgMap)
	if err != nil {
		log.Fatalf("failed to marshal config: %v", err)
	}
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	// 默认值
	if cfg.Worker.Concurrency <= 0 {
		cfg.Worker.Concurrency = 4
	}
	if cfg.Worker.MaxRetries <= 0 {
		cfg.Worker.MaxRetries = 5
	}
	if cfg.Worker.ReplyMode == "" {
		cfg.Worker.ReplyMode = "templated"
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-3.5-turbo-0125"
	}
	if cfg.OpenAI.Temperature == 0 {
		cfg.OpenAI.Temperature = 0.7
	}

	// 环境变量覆盖（优先级最高）
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideOpenAIFromEnv(&cfg.OpenAI)
	if mode := os.Getenv("REPLY_MODE"); mode != "" {
		cfg.Worker.ReplyMode = mode
	}

	return &cfg
}
