package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	DBPath        string           `json:"db_path"`
	Port          int              `json:"port"`
	LogConfig     logger.LogConfig `json:"log_config"`
	CORSAllowlist []string         `json:"cors_allowlist"`
	AI            AIConfig         `json:"ai"`
	Index         IndexConfig      `json:"index"`
	FileStore     FileStoreConfig  `json:"file_store"`
	Chunk         ChunkConfig      `json:"chunk"`
	History       HistoryConfig    `json:"history"`
	TopK          int              `json:"top_k"`
}

type AIConfig struct {
	Provider      string      `json:"provider"`
	Model         string      `json:"model"`
	Data          interface{} `json:"data"`
	EmbedProvider string      `json:"embed_provider"`
	EmbedModel    string      `json:"embed_model"`
	EmbedData     interface{} `json:"embed_data"`
	Timeout       int         `json:"timeout"`
}

type IndexConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// FileStoreConfig is optional; an empty type disables raw upload
// retention.
type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ChunkConfig struct {
	Size    int `json:"size"`
	Overlap int `json:"overlap"`
}

type HistoryConfig struct {
	Limit         int    `json:"limit"`
	RetentionDays int    `json:"retention_days"`
	CleanupCron   string `json:"cleanup_cron"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db_path is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.Model == "" {
		return nil, fmt.Errorf("ai.model is required")
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "memory"
	}
	if cfg.Index.Type != "memory" {
		if cfg.AI.EmbedProvider == "" {
			cfg.AI.EmbedProvider = cfg.AI.Provider
		}
		if cfg.AI.EmbedData == nil {
			cfg.AI.EmbedData = cfg.AI.Data
		}
		if cfg.AI.EmbedModel == "" {
			return nil, fmt.Errorf("ai.embed_model is required for index type %s", cfg.Index.Type)
		}
	}
	if cfg.Chunk.Size == 0 {
		cfg.Chunk.Size = 1000
	}
	if cfg.Chunk.Overlap == 0 {
		cfg.Chunk.Overlap = 200
	}
	if cfg.Chunk.Overlap >= cfg.Chunk.Size {
		return nil, fmt.Errorf("chunk.overlap must be smaller than chunk.size")
	}
	if cfg.TopK == 0 {
		cfg.TopK = 3
	}
	if cfg.History.Limit == 0 {
		cfg.History.Limit = 20
	}
	if cfg.History.CleanupCron == "" {
		cfg.History.CleanupCron = "0 3 * * *"
	}
	return &cfg, nil
}
