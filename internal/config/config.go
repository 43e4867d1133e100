package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/wb-go/wbf/retry"
)

type Config struct {
	Env       string          `yaml:"env" env:"APP_ENV" env-default:"development"`
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Minio     MinioConfig     `yaml:"minio"`
	Worker    WorkerConfig    `yaml:"worker"`
	Preview   PreviewConfig   `yaml:"preview"`
	Templates TemplatesConfig `yaml:"templates"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"SERVER_ADDR" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	MaxUploadSize   int64         `yaml:"max_upload_size" env:"SERVER_MAX_UPLOAD_SIZE" env-default:"33554432"`
}

type DBConfig struct {
	Host            string        `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            int           `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User            string        `yaml:"user" env:"DB_USER" env-default:"batchmark"`
	Password        string        `yaml:"password" env:"DB_PASSWORD" env-default:"batchmark"`
	Name            string        `yaml:"name" env:"DB_NAME" env-default:"batchmark"`
	SSLMode         string        `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"30m"`
}

type KafkaConfig struct {
	Brokers      []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	TasksTopic   string   `yaml:"tasks_topic" env:"KAFKA_TASKS_TOPIC" env-default:"watermark-tasks"`
	ResultsTopic string   `yaml:"results_topic" env:"KAFKA_RESULTS_TOPIC" env-default:"watermark-results"`
	GroupID      string   `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"batchmark-worker-group"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY" env-default:"minioadmin"`
	SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY" env-default:"minioadmin"`
	UseSSL    bool   `yaml:"use_ssl" env:"MINIO_USE_SSL" env-default:"false"`
	Bucket    string `yaml:"bucket" env:"MINIO_BUCKET" env-default:"batchmark"`
}

type WorkerConfig struct {
	// Concurrency is how many batch tasks one worker handles at a time;
	// JobConcurrency bounds parallel jobs inside a single batch.
	Concurrency    int `yaml:"concurrency" env:"WORKER_CONCURRENCY" env-default:"2"`
	JobConcurrency int `yaml:"job_concurrency" env:"WORKER_JOB_CONCURRENCY" env-default:"1"`
}

type PreviewConfig struct {
	MaxSize int `yaml:"max_size" env:"PREVIEW_MAX_SIZE" env-default:"800"`
}

type TemplatesConfig struct {
	Dir string `yaml:"dir" env:"TEMPLATES_DIR" env-default:"templates"`
}

func MustLoad() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}

	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}
	return &cfg, nil
}

func (c *Config) DBDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

func (c *Config) DefaultRetryStrategy() retry.Strategy {
	return retry.Strategy{
		Attempts: 3,
		Delay:    500 * time.Millisecond,
		Backoff:  2,
	}
}
