package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Bot      BotConfig
	Server   ServerConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type ServerConfig struct {
	Addr string
}

// BotConfig holds the command grammar and scheduling knobs. Loaded once and
// passed into each component at construction.
type BotConfig struct {
	Trigger          string        `yaml:"trigger"`
	DeleteCommand    string        `yaml:"delete_command"`
	CeremonyURL      string        `yaml:"ceremony_url"`
	NotifyInterval   time.Duration `yaml:"notify_interval"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	CalendarCacheTTL time.Duration `yaml:"calendar_cache_ttl"`
	InboxBatchSize   int           `yaml:"inbox_batch_size"`
	Subreddit        string        `yaml:"subreddit"`
}

var AppConfig *Config

func LoadConfig() *Config {
	AppConfig = &Config{
		Database: GetDatabaseConfig(),
		Redis:    GetRedisConfig(),
		Bot:      GetBotConfig(),
		Server:   ServerConfig{Addr: getEnv("SERVER_ADDR", ":8080")},
	}

	return AppConfig
}

func LoadTestConfig() *Config {
	testConfig := DatabaseConfig{
		Host:     "localhost",
		Port:     "5433", // 測試 DB 用 5433 port
		User:     "postgres",
		Password: "postgres",
		DBName:   "test_db",
		SSLMode:  "disable",
	}

	testRedisConfig := RedisConfig{
		Host:     "localhost",
		Port:     "6380", // 測試 Redis 用 6380 port
		Password: "",
		DB:       1,
	}

	bot := defaultBotConfig()
	bot.PollInterval = 100 * time.Millisecond

	return &Config{
		Database: testConfig,
		Redis:    testRedisConfig,
		Bot:      bot,
		Server:   ServerConfig{Addr: ":8081"},
	}
}

func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "postgres"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}
}

func GetRedisConfig() RedisConfig {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		panic(err)
	}

	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

func GetBotConfig() BotConfig {
	cfg := defaultBotConfig()

	if v := os.Getenv("BOT_TRIGGER"); v != "" {
		cfg.Trigger = v
		cfg.DeleteCommand = v + " delete me"
	}
	if v := os.Getenv("BOT_CEREMONY_URL"); v != "" {
		cfg.CeremonyURL = v
	}
	if v := os.Getenv("BOT_NOTIFY_INTERVAL_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		cfg.NotifyInterval = time.Duration(hours) * time.Hour
	}
	if v := os.Getenv("BOT_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		cfg.PollInterval = d
	}

	// Optional YAML overlay for the bot block.
	if path := os.Getenv("BOT_CONFIG_FILE"); path != "" {
		if err := overlayBotConfig(path, &cfg); err != nil {
			panic(err)
		}
	}

	return cfg
}

func defaultBotConfig() BotConfig {
	return BotConfig{
		Trigger:          "!FAUbot",
		DeleteCommand:    "!FAUbot delete me",
		CeremonyURL:      "https://www.fau.edu/registrar/graduation/ceremony.php",
		NotifyInterval:   24 * time.Hour,
		PollInterval:     2 * time.Minute,
		CalendarCacheTTL: 30 * time.Minute,
		InboxBatchSize:   32,
		Subreddit:        "FAU",
	}
}

func overlayBotConfig(path string, cfg *BotConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
