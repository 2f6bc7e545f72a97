package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type CORS struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type Storage struct {
	// Driver is "memory" or "postgres".
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type Notifier struct {
	// Mode "local" hands notifications to the in-process relay, "http"
	// posts them to URL.
	Mode    string        `mapstructure:"mode"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Chat struct {
	Enabled       bool          `mapstructure:"enabled"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	Cooldown      time.Duration `mapstructure:"cooldown"`
	JoinKeywords  []string      `mapstructure:"join_keywords"`
	ClaimKeywords []string      `mapstructure:"claim_keywords"`
}

type Config struct {
	Mode         string        `mapstructure:"mode"`
	Port         int           `mapstructure:"port"`
	StaticPath   string        `mapstructure:"static_path"`
	ReadLimit    int64         `mapstructure:"read_limit"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	SendBuffer   int           `mapstructure:"send_buffer"`
	Secret       string        `mapstructure:"secret"`
	NotifySecret string        `mapstructure:"notify_secret"`
	BaseURL      string        `mapstructure:"base_url"`
	LogLevel     string        `mapstructure:"log_level"`
	CORS         CORS          `mapstructure:"cors"`
	Storage      Storage       `mapstructure:"storage"`
	Notifier     Notifier      `mapstructure:"notifier"`
	Chat         Chat          `mapstructure:"chat"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("secret", "")
	v.SetDefault("notify_secret", "")
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("cors.allow_origins", []string{})
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("notifier.mode", "local")
	v.SetDefault("notifier.url", "http://localhost:8080/notify")
	v.SetDefault("notifier.timeout", "5s")
	v.SetDefault("chat.enabled", false)
	v.SetDefault("chat.username", "")
	v.SetDefault("chat.password", "")
	v.SetDefault("chat.cooldown", "10s")
	v.SetDefault("chat.join_keywords", []string{"!play"})
	v.SetDefault("chat.claim_keywords", []string{"bingo", "!bingo"})
}

// Load reads .env, then config/config.<CONFIG_ENV>.yaml, then BINGO_*
// environment variables, later sources winning.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("BINGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Storage: %s | Notifier: %s\n", cfg.Mode, cfg.Port, cfg.Storage.Driver, cfg.Notifier.Mode)
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Notifier.Mode {
	case "local":
	case "http":
		if c.Notifier.URL == "" {
			return fmt.Errorf("notifier.url is required for http mode")
		}
	default:
		return fmt.Errorf("unknown notifier.mode %q", c.Notifier.Mode)
	}
	if c.Chat.Enabled && (c.Chat.Username == "" || c.Chat.Password == "") {
		return fmt.Errorf("chat.username and chat.password are required when chat is enabled")
	}
	if c.SendBuffer < 1 {
		return fmt.Errorf("send_buffer must be positive")
	}
	return nil
}
