package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App       AppConfig       `toml:"app"`
	Log       LogConfig       `toml:"log"`
	Backend   BackendConfig   `toml:"backend"`
	Capture   CaptureConfig   `toml:"capture"`
	Presenter PresenterConfig `toml:"presenter"`
	DevServer DevServerConfig `toml:"devserver"`
	Redis     RedisConfig     `toml:"redis"`
	MySQL     MySQLConfig     `toml:"mysql"`
	RabbitMQ  RabbitMQConfig  `toml:"rabbitmq"`
	Embedding EmbeddingConfig `toml:"embedding"`
	LLM       LLMConfig       `toml:"llm"`
	Vision    VisionConfig    `toml:"vision"`
}

type AppConfig struct {
	Name string `toml:"name"`
	Env  string `toml:"env"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Console    bool   `toml:"console"`
}

type BackendConfig struct {
	BaseURL               string `toml:"base_url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

type CaptureConfig struct {
	Command    string `toml:"command"`
	ChunkBytes int    `toml:"chunk_bytes"`
}

type PresenterConfig struct {
	OpenCommand       string `toml:"open_command"`
	AudioCommand      string `toml:"audio_command"`
	AudioReadyDelayMS int    `toml:"audio_ready_delay_ms"`
}

type DevServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	GinMode        string   `toml:"gin_mode"`
	TempDir        string   `toml:"temp_dir"`
	StreamDelayMS  int      `toml:"stream_delay_ms"`
	FragmentSize   int      `toml:"fragment_size"`
	Transcription  string   `toml:"transcription"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

type RedisConfig struct {
	Enabled         bool   `toml:"enabled"`
	Addr            string `toml:"addr"`
	Password        string `toml:"password"`
	DB              int    `toml:"db"`
	ChunkTTLSeconds int    `toml:"chunk_ttl_seconds"`
}

// MySQLConfig enables the durable corpus store when DSN is set.
type MySQLConfig struct {
	DSN          string `toml:"dsn"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RabbitMQConfig moves corpus store writes onto a queue when URL is set.
// It needs the MySQL store.
type RabbitMQConfig struct {
	URL   string `toml:"url"`
	Queue string `toml:"queue"`
}

// EmbeddingConfig switches retrieval to an OpenAI-compatible embeddings
// API when BaseURL and Model are set.
type EmbeddingConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LLMConfig lets an OpenAI-compatible chat model write the answers over
// the retrieved chunks. Empty BaseURL or Model keeps the extractive answer.
type LLMConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// VisionConfig enables ONNX labels in image descriptions when ModelPath
// is set.
type VisionConfig struct {
	ModelPath         string `toml:"model_path"`
	LabelsPath        string `toml:"labels_path"`
	TopK              int    `toml:"top_k"`
	ONNXSharedLibPath string `toml:"onnx_shared_lib_path"`
}

func Load() (*Config, error) {
	return LoadFile(getEnv("CONFIG_FILE", "configs/config.toml"))
}

// LoadFile decodes path over the defaults. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	cfg := defaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	return cfg, nil
}

func (c *Config) DevServerAddr() string {
	return fmt.Sprintf("%s:%d", c.DevServer.Host, c.DevServer.Port)
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeoutSeconds) * time.Second
}

func (c *Config) AudioReadyDelay() time.Duration {
	return time.Duration(c.Presenter.AudioReadyDelayMS) * time.Millisecond
}

func (c *Config) StreamDelay() time.Duration {
	return time.Duration(c.DevServer.StreamDelayMS) * time.Millisecond
}

func (c *Config) ChunkTTL() time.Duration {
	return time.Duration(c.Redis.ChunkTTLSeconds) * time.Second
}

func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Embedding.TimeoutSeconds) * time.Second
}

func (c *Config) EmbeddingEnabled() bool {
	return c.Embedding.BaseURL != "" && c.Embedding.Model != ""
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func (c *Config) LLMEnabled() bool {
	return c.LLM.BaseURL != "" && c.LLM.Model != ""
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name: "vaultai",
			Env:  "dev",
		},
		Log: LogConfig{
			Level:      "info",
			File:       "logs/vaultai.log",
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Console:    false,
		},
		Backend: BackendConfig{
			BaseURL:               "http://localhost:5000",
			RequestTimeoutSeconds: 120,
		},
		Capture: CaptureConfig{
			Command:    "arecord -q -f S16_LE -r 16000 -c 1 -t wav -",
			ChunkBytes: 4096,
		},
		Presenter: PresenterConfig{
			OpenCommand:       "xdg-open",
			AudioCommand:      "mpv --no-video --really-quiet --start={start}",
			AudioReadyDelayMS: 100,
		},
		DevServer: DevServerConfig{
			Host:          "127.0.0.1",
			Port:          5000,
			GinMode:       "debug",
			TempDir:       "temp",
			StreamDelayMS: 30,
			FragmentSize:  24,
			Transcription: "What are the key points in the uploaded documents?",
			AllowedOrigins: []string{
				"http://localhost:5173",
				"http://127.0.0.1:5173",
			},
		},
		Redis: RedisConfig{
			Enabled:         false,
			Addr:            "127.0.0.1:6379",
			Password:        "",
			DB:              0,
			ChunkTTLSeconds: 3600,
		},
		MySQL: MySQLConfig{
			MaxOpenConns: 20,
			MaxIdleConns: 5,
		},
		RabbitMQ: RabbitMQConfig{
			Queue: "vaultai.corpus",
		},
		Embedding: EmbeddingConfig{
			TimeoutSeconds: 60,
		},
		LLM: LLMConfig{
			TimeoutSeconds: 90,
		},
		Vision: VisionConfig{
			ModelPath:  "",
			LabelsPath: "assets/labels.txt",
			TopK:       3,
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.MaxSizeMB = getEnvAsInt("LOG_MAX_SIZE_MB", cfg.Log.MaxSizeMB)
	cfg.Log.MaxBackups = getEnvAsInt("LOG_MAX_BACKUPS", cfg.Log.MaxBackups)
	cfg.Log.MaxAgeDays = getEnvAsInt("LOG_MAX_AGE_DAYS", cfg.Log.MaxAgeDays)
	cfg.Log.Console = getEnvAsBool("LOG_CONSOLE", cfg.Log.Console)

	cfg.Backend.BaseURL = getEnv("BACKEND_BASE_URL", cfg.Backend.BaseURL)
	cfg.Backend.RequestTimeoutSeconds = getEnvAsInt("BACKEND_REQUEST_TIMEOUT_SECONDS", cfg.Backend.RequestTimeoutSeconds)

	cfg.Capture.Command = getEnv("CAPTURE_COMMAND", cfg.Capture.Command)
	cfg.Capture.ChunkBytes = getEnvAsInt("CAPTURE_CHUNK_BYTES", cfg.Capture.ChunkBytes)

	cfg.Presenter.OpenCommand = getEnv("PRESENTER_OPEN_COMMAND", cfg.Presenter.OpenCommand)
	cfg.Presenter.AudioCommand = getEnv("PRESENTER_AUDIO_COMMAND", cfg.Presenter.AudioCommand)
	cfg.Presenter.AudioReadyDelayMS = getEnvAsInt("PRESENTER_AUDIO_READY_DELAY_MS", cfg.Presenter.AudioReadyDelayMS)

	cfg.DevServer.Host = getEnv("DEVSERVER_HOST", cfg.DevServer.Host)
	cfg.DevServer.Port = getEnvAsInt("DEVSERVER_PORT", cfg.DevServer.Port)
	cfg.DevServer.GinMode = getEnv("GIN_MODE", cfg.DevServer.GinMode)
	cfg.DevServer.TempDir = getEnv("DEVSERVER_TEMP_DIR", cfg.DevServer.TempDir)
	cfg.DevServer.StreamDelayMS = getEnvAsInt("DEVSERVER_STREAM_DELAY_MS", cfg.DevServer.StreamDelayMS)
	cfg.DevServer.FragmentSize = getEnvAsInt("DEVSERVER_FRAGMENT_SIZE", cfg.DevServer.FragmentSize)
	cfg.DevServer.Transcription = getEnv("DEVSERVER_TRANSCRIPTION", cfg.DevServer.Transcription)
	cfg.DevServer.AllowedOrigins = getEnvAsList("DEVSERVER_ALLOWED_ORIGINS", cfg.DevServer.AllowedOrigins)

	cfg.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", cfg.Redis.Enabled)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.ChunkTTLSeconds = getEnvAsInt("REDIS_CHUNK_TTL_SECONDS", cfg.Redis.ChunkTTLSeconds)

	cfg.MySQL.DSN = getEnv("MYSQL_DSN", cfg.MySQL.DSN)
	cfg.MySQL.MaxOpenConns = getEnvAsInt("MYSQL_MAX_OPEN_CONNS", cfg.MySQL.MaxOpenConns)
	cfg.MySQL.MaxIdleConns = getEnvAsInt("MYSQL_MAX_IDLE_CONNS", cfg.MySQL.MaxIdleConns)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.Queue = getEnv("RABBITMQ_QUEUE", cfg.RabbitMQ.Queue)

	cfg.Embedding.BaseURL = getEnv("EMBEDDING_BASE_URL", cfg.Embedding.BaseURL)
	cfg.Embedding.APIKey = getEnv("EMBEDDING_API_KEY", cfg.Embedding.APIKey)
	cfg.Embedding.Model = getEnv("EMBEDDING_MODEL", cfg.Embedding.Model)
	cfg.Embedding.TimeoutSeconds = getEnvAsInt("EMBEDDING_TIMEOUT_SECONDS", cfg.Embedding.TimeoutSeconds)

	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.TimeoutSeconds = getEnvAsInt("LLM_TIMEOUT_SECONDS", cfg.LLM.TimeoutSeconds)

	cfg.Vision.ModelPath = getEnv("VISION_MODEL_PATH", cfg.Vision.ModelPath)
	cfg.Vision.LabelsPath = getEnv("VISION_LABELS_PATH", cfg.Vision.LabelsPath)
	cfg.Vision.TopK = getEnvAsInt("VISION_TOP_K", cfg.Vision.TopK)
	cfg.Vision.ONNXSharedLibPath = getEnv("VISION_ONNX_LIB", cfg.Vision.ONNXSharedLibPath)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
