package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/farellandr/ticketgate/internal/models"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisURL   string
	BatchStore string

	JWTSecret         string
	PaymentSecret     string
	MaxTicketsPerType int
	QRSize            int
	CatalogFile       string

	LogLevel  string
	LogPretty bool
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DBHost:        os.Getenv("DB_HOST"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        os.Getenv("DB_NAME"),
		RedisURL:      os.Getenv("REDIS_URL"),
		BatchStore:    strings.ToLower(getEnv("BATCH_STORE", StoreMemory)),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		PaymentSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		CatalogFile:   os.Getenv("CATALOG_FILE"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.MaxTicketsPerType, err = getEnvInt("MAX_TICKETS_PER_TYPE", 10); err != nil {
		return nil, err
	}
	if cfg.QRSize, err = getEnvInt("QR_SIZE", 256); err != nil {
		return nil, err
	}
	if cfg.LogPretty, err = getEnvBool("LOG_PRETTY", false); err != nil {
		return nil, err
	}

	switch cfg.BatchStore {
	case StoreMemory:
	case StorePostgres:
		if !cfg.HasDatabase() {
			return nil, fmt.Errorf("%w: BATCH_STORE=postgres needs DB_HOST and DB_NAME", ErrInvalidConfig)
		}
	case StoreRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("%w: BATCH_STORE=redis needs REDIS_URL", ErrInvalidConfig)
		}
	default:
		return nil, fmt.Errorf("%w: unknown BATCH_STORE %q", ErrInvalidConfig, cfg.BatchStore)
	}

	return cfg, nil
}

func (c *Config) HasDatabase() bool {
	return c.DBHost != "" && c.DBName != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", ErrInvalidConfig, key, v)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean, got %q", ErrInvalidConfig, key, v)
	}
	return b, nil
}

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&models.Role{}, &models.User{}, &models.IssuedTicket{})
	if err != nil {
		return nil, err
	}

	if err := seedRoles(db); err != nil {
		return nil, err
	}

	return db, nil
}

func seedRoles(db *gorm.DB) error {
	for _, name := range []string{models.RoleOrganizer, models.RoleAttendee} {
		role := models.Role{Name: name}
		if err := db.Where("name = ?", name).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("failed to seed role %s: %w", name, err)
		}
	}
	return nil
}

func InitRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{
			Addr: url,
		}
	}
	opts.MaxRetries = 3

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
