package config

import (
	"runtime"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/andresuchdata/perishable-vss/internal/storage"
)

type Config struct {
	Log     LogConfig
	Dataset DatasetConfig
	Solver  SolverConfig
	Output  OutputConfig
	Storage storage.S3Config

	// LocalStorageDir serves dataset objects from a directory instead of a bucket.
	LocalStorageDir string
}

type LogConfig struct {
	Level  string
	Format string
}

type DatasetConfig struct {
	Path   string
	Object string
}

type SolverConfig struct {
	Tolerance float64
	Workers   int
	VerifyEEV bool
}

type OutputConfig struct {
	Format string
}

// StorageConfigured reports whether enough settings exist to reach object storage.
func (c *Config) StorageConfigured() bool {
	return c.Storage.Endpoint != "" && c.Storage.Bucket != ""
}

var (
	once     sync.Once
	instance *Config
)

// Load reads configuration once per process.
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()
		instance = New()
	})
	return instance
}

// New reads defaults and the environment into a fresh Config.
func New() *Config {
	v := viper.New()

	// Set default values
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("DATASET_PATH", "")
	v.SetDefault("DATASET_OBJECT", "")
	v.SetDefault("SOLVER_TOLERANCE", 1e-9)
	v.SetDefault("SOLVER_WORKERS", runtime.NumCPU())
	v.SetDefault("VERIFY_EEV", true)
	v.SetDefault("OUTPUT_FORMAT", "text")
	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("STORAGE_LOCAL_DIR", "")

	// Read from environment variables
	v.AutomaticEnv()

	return &Config{
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Dataset: DatasetConfig{
			Path:   v.GetString("DATASET_PATH"),
			Object: v.GetString("DATASET_OBJECT"),
		},
		Solver: SolverConfig{
			Tolerance: v.GetFloat64("SOLVER_TOLERANCE"),
			Workers:   v.GetInt("SOLVER_WORKERS"),
			VerifyEEV: v.GetBool("VERIFY_EEV"),
		},
		Output: OutputConfig{
			Format: v.GetString("OUTPUT_FORMAT"),
		},
		Storage: storage.S3Config{
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
		},
		LocalStorageDir: v.GetString("STORAGE_LOCAL_DIR"),
	}
}
