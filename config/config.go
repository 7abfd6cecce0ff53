package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	InputPath          string
	OutputDir          string
	CleanedPath        string
	MetadataPath       string
	EDAReportPath      string
	FeaturesPath       string
	ModelPath          string
	EvaluationPath     string
	ModelingReportPath string
	ScoresPath         string
	MetricsPath        string

	TestFraction    float64
	RandomSeed      int64
	MaxIter         int
	Regularization  float64
	SMOTENeighbors  int
	TopNLocalities  int
	LogLevel        string
	LogFormat       string
	MaxRetries      int
	PostgresEnabled bool

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	out := getEnv("OUTPUT_DIR", "./output")
	outPath := func(name string) string { return filepath.Join(out, name) }

	return &Config{
		InputPath:          getEnv("INPUT_PATH", "./data/siniestros_viales_consolidados_bogota_dc.xlsx"),
		OutputDir:          out,
		CleanedPath:        getEnv("CLEANED_PATH", outPath("accidents_clean.csv")),
		MetadataPath:       getEnv("METADATA_PATH", outPath("data_metadata.txt")),
		EDAReportPath:      getEnv("EDA_REPORT_PATH", outPath("eda_report.md")),
		FeaturesPath:       getEnv("FEATURES_PATH", outPath("accidents_features.csv")),
		ModelPath:          getEnv("MODEL_PATH", outPath("model.json")),
		EvaluationPath:     getEnv("EVALUATION_PATH", outPath("evaluation.json")),
		ModelingReportPath: getEnv("MODELING_REPORT_PATH", outPath("modeling_report.md")),
		ScoresPath:         getEnv("SCORES_PATH", outPath("scores.csv")),
		MetricsPath:        getEnv("METRICS_PATH", ""),

		TestFraction:    getEnvFloat("TEST_FRACTION", 0.30),
		RandomSeed:      int64(getEnvInt("RANDOM_SEED", 42)),
		MaxIter:         getEnvInt("MAX_ITER", 1000),
		Regularization:  getEnvFloat("REGULARIZATION_C", 1.0),
		SMOTENeighbors:  getEnvInt("SMOTE_NEIGHBORS", 5),
		TopNLocalities:  getEnvInt("TOP_N_LOCALITIES", 10),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "console"),
		MaxRetries:      getEnvInt("MAX_RETRIES", 5),
		PostgresEnabled: getEnvBool("POSTGRES_ENABLED", false),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "analytics"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "analytics123"),
		PostgresDB:       getEnv("POSTGRES_DB", "accidents_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		errs = append(errs, fmt.Errorf("TEST_FRACTION must be in (0,1), got %v", c.TestFraction))
	}
	if c.MaxIter <= 0 {
		errs = append(errs, fmt.Errorf("MAX_ITER must be positive, got %d", c.MaxIter))
	}
	if c.Regularization <= 0 {
		errs = append(errs, fmt.Errorf("REGULARIZATION_C must be positive, got %v", c.Regularization))
	}
	if c.SMOTENeighbors <= 0 {
		errs = append(errs, fmt.Errorf("SMOTE_NEIGHBORS must be positive, got %d", c.SMOTENeighbors))
	}
	if c.TopNLocalities <= 0 {
		errs = append(errs, fmt.Errorf("TOP_N_LOCALITIES must be positive, got %d", c.TopNLocalities))
	}
	return errors.Join(errs...)
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
		log.Printf("[config] invalid %s=%q, using default %d", key, val, fallback)
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
		log.Printf("[config] invalid %s=%q, using default %v", key, val, fallback)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err == nil {
			return b
		}
		log.Printf("[config] invalid %s=%q, using default %t", key, val, fallback)
	}
	return fallback
}
