package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Database    DatabaseConfig `toml:"database"`
	JWT         JWTConfig      `toml:"jwt"`
	ML          MLConfig       `toml:"ml"`
	RemoveBG    RemoveBGConfig `toml:"removebg"`
	Upload      UploadConfig   `toml:"upload"`
	Storage     StorageConfig  `toml:"storage"`
	AWS         AWSConfig      `toml:"aws"`
	Redis       RedisConfig    `toml:"redis"`
	RabbitMQ    RabbitMQConfig `toml:"rabbitmq"`
	CORS        CORSConfig     `toml:"cors"`
	Log         LogConfig      `toml:"log"`
}

type ServerConfig struct {
	Port         string `toml:"port"`
	Host         string `toml:"host"`
	ReadTimeout  int    `toml:"read_timeout"`
	WriteTimeout int    `toml:"write_timeout"`
	IdleTimeout  int    `toml:"idle_timeout"`
}

type DatabaseConfig struct {
	Driver        string `toml:"driver"` // postgres, mysql, sqlite or mongo
	Host          string `toml:"host"`
	Port          string `toml:"port"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	Database      string `toml:"database"`
	SSLMode       string `toml:"ssl_mode"`
	SQLitePath    string `toml:"sqlite_path"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
	MaxOpenConns  int    `toml:"max_open_conns"`
	MaxIdleConns  int    `toml:"max_idle_conns"`
	MaxLifetime   int    `toml:"max_lifetime"`
	LogLevel      string `toml:"log_level"`
}

type JWTConfig struct {
	SecretKey       string `toml:"secret_key"`
	AccessTokenTTL  int    `toml:"access_token_ttl"`  // in hours
	RefreshTokenTTL int    `toml:"refresh_token_ttl"` // in hours
}

type MLConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type RemoveBGConfig struct {
	APIKey         string `toml:"api_key"`
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Concurrency    int    `toml:"concurrency"`
}

type UploadConfig struct {
	Dir           string `toml:"dir"`
	MaxFileSizeMB int    `toml:"max_file_size_mb"`
	MaxFiles      int    `toml:"max_files"`
	PublicBaseURL string `toml:"public_base_url"`
}

type StorageConfig struct {
	Driver string `toml:"driver"` // local or s3
}

type AWSConfig struct {
	Region          string `toml:"region"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	S3Bucket        string `toml:"s3_bucket"`
	CloudFrontURL   string `toml:"cloudfront_url"`
}

type RedisConfig struct {
	Addr                  string `toml:"addr"`
	Password              string `toml:"password"`
	DB                    int    `toml:"db"`
	ClosetCacheTTLSeconds int    `toml:"closet_cache_ttl_seconds"`
}

type RabbitMQConfig struct {
	URL      string `toml:"url"`
	Exchange string `toml:"exchange"`
}

type CORSConfig struct {
	AllowOrigins []string `toml:"allow_origins"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text or json
}

func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	// Load .env file if it exists
	godotenv.Load()

	overrideByEnv(cfg)
	return cfg, cfg.Validate()
}

func defaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:         "5000",
			Host:         "0.0.0.0",
			ReadTimeout:  30,
			WriteTimeout: 180,
			IdleTimeout:  60,
		},
		Database: DatabaseConfig{
			Driver:        "postgres",
			Host:          "localhost",
			Port:          "5432",
			User:          "postgres",
			Database:      "smartfit_db",
			SSLMode:       "disable",
			SQLitePath:    "smartfit.db",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "smartfit_db",
			MaxOpenConns:  25,
			MaxIdleConns:  25,
			MaxLifetime:   300,
			LogLevel:      "warn",
		},
		JWT: JWTConfig{
			SecretKey:       defaultJWTSecret,
			AccessTokenTTL:  1,
			RefreshTokenTTL: 168,
		},
		ML: MLConfig{
			BaseURL:        "http://127.0.0.1:5001",
			TimeoutSeconds: 120,
		},
		RemoveBG: RemoveBGConfig{
			URL:            "https://api.remove.bg/v1.0/removebg",
			TimeoutSeconds: 60,
			Concurrency:    4,
		},
		Upload: UploadConfig{
			Dir:           "./uploads",
			MaxFileSizeMB: 10,
			MaxFiles:      10,
			PublicBaseURL: "http://localhost:5000",
		},
		Storage: StorageConfig{
			Driver: "local",
		},
		AWS: AWSConfig{
			Region:   "us-east-1",
			S3Bucket: "smartfit-wardrobe",
		},
		Redis: RedisConfig{
			ClosetCacheTTLSeconds: 60,
		},
		RabbitMQ: RabbitMQConfig{
			Exchange: "smartfit.closet",
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)

	cfg.Server.Port = getEnv("SERVER_PORT", cfg.Server.Port)
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.ReadTimeout = getEnvAsInt("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvAsInt("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvAsInt("SERVER_IDLE_TIMEOUT", cfg.Server.IdleTimeout)

	cfg.Database.Driver = strings.ToLower(getEnv("DB_DRIVER", cfg.Database.Driver))
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnv("DB_NAME", cfg.Database.Database)
	cfg.Database.SSLMode = getEnv("DB_SSL_MODE", cfg.Database.SSLMode)
	cfg.Database.SQLitePath = getEnv("SQLITE_PATH", cfg.Database.SQLitePath)
	cfg.Database.MongoURI = getEnv("MONGO_URI", cfg.Database.MongoURI)
	cfg.Database.MongoDatabase = getEnv("MONGO_DATABASE", cfg.Database.MongoDatabase)
	cfg.Database.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Database.MaxLifetime = getEnvAsInt("DB_MAX_LIFETIME", cfg.Database.MaxLifetime)
	cfg.Database.LogLevel = getEnv("DB_LOG_LEVEL", cfg.Database.LogLevel)

	cfg.JWT.SecretKey = getEnv("JWT_SECRET", cfg.JWT.SecretKey)
	cfg.JWT.AccessTokenTTL = getEnvAsInt("JWT_ACCESS_TTL", cfg.JWT.AccessTokenTTL)
	cfg.JWT.RefreshTokenTTL = getEnvAsInt("JWT_REFRESH_TTL", cfg.JWT.RefreshTokenTTL)

	cfg.ML.BaseURL = strings.TrimRight(getEnv("ML_SERVICE_URL", cfg.ML.BaseURL), "/")
	cfg.ML.TimeoutSeconds = getEnvAsInt("ML_TIMEOUT_SECONDS", cfg.ML.TimeoutSeconds)

	cfg.RemoveBG.APIKey = getEnv("REMOVEBG_API_KEY", cfg.RemoveBG.APIKey)
	cfg.RemoveBG.URL = getEnv("REMOVEBG_URL", cfg.RemoveBG.URL)
	cfg.RemoveBG.TimeoutSeconds = getEnvAsInt("REMOVEBG_TIMEOUT_SECONDS", cfg.RemoveBG.TimeoutSeconds)
	cfg.RemoveBG.Concurrency = getEnvAsInt("BG_REMOVAL_CONCURRENCY", cfg.RemoveBG.Concurrency)

	cfg.Upload.Dir = getEnv("UPLOAD_DIR", cfg.Upload.Dir)
	cfg.Upload.MaxFileSizeMB = getEnvAsInt("UPLOAD_MAX_FILE_SIZE_MB", cfg.Upload.MaxFileSizeMB)
	cfg.Upload.MaxFiles = getEnvAsInt("UPLOAD_MAX_FILES", cfg.Upload.MaxFiles)
	cfg.Upload.PublicBaseURL = strings.TrimRight(getEnv("PUBLIC_BASE_URL", cfg.Upload.PublicBaseURL), "/")

	cfg.Storage.Driver = strings.ToLower(getEnv("STORAGE_DRIVER", cfg.Storage.Driver))

	cfg.AWS.Region = getEnv("AWS_REGION", cfg.AWS.Region)
	cfg.AWS.AccessKeyID = getEnv("AWS_ACCESS_KEY_ID", cfg.AWS.AccessKeyID)
	cfg.AWS.SecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", cfg.AWS.SecretAccessKey)
	cfg.AWS.S3Bucket = getEnv("AWS_S3_BUCKET", cfg.AWS.S3Bucket)
	cfg.AWS.CloudFrontURL = getEnv("AWS_CLOUDFRONT_URL", cfg.AWS.CloudFrontURL)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.ClosetCacheTTLSeconds = getEnvAsInt("CLOSET_CACHE_TTL_SECONDS", cfg.Redis.ClosetCacheTTLSeconds)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.Exchange = getEnv("RABBITMQ_EXCHANGE", cfg.RabbitMQ.Exchange)

	cfg.CORS.AllowOrigins = getEnvAsList("CORS_ALLOW_ORIGINS", cfg.CORS.AllowOrigins)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == defaultJWTSecret && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite", "mongo":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.AWS.S3Bucket == "" {
			return fmt.Errorf("AWS_S3_BUCKET is required for s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}

	if c.Upload.MaxFiles < 1 {
		return fmt.Errorf("upload max files must be at least 1")
	}
	if c.Upload.MaxFileSizeMB < 1 {
		return fmt.Errorf("upload max file size must be at least 1MB")
	}
	if c.ML.BaseURL == "" {
		return fmt.Errorf("ML service URL is required")
	}

	return nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
