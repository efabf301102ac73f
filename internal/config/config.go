package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port string

	DBDriver string // sqlite | postgres | mysql
	DBDSN    string

	SessionStore string // memory | sql | redis
	SessionTTL   time.Duration
	CookieSecure bool
	RedisURL     string

	LogLevel string
	LogFile  string

	BcryptCost int
	RateMax    int
	RateWindow time.Duration

	AuthPath  string
	HomePath  string
	AdminPath string

	AdminName     string
	AdminEmail    string
	AdminPassword string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "wayfarer.db") // sqlite file in project root
	v.SetDefault("session.store", "sql")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.cookie_secure", false)
	v.SetDefault("redis.url", "redis://127.0.0.1:6379/0")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.rate_max", 10)
	v.SetDefault("auth.rate_window", "10m")
	v.SetDefault("routes.auth", "/login")
	v.SetDefault("routes.home", "/")
	v.SetDefault("routes.admin", "/admin")
	v.SetDefault("admin.name", "Admin")
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")
}

// Load reads defaults, then configs/config.yml if present, then the
// environment (DB_DSN, SESSION_STORE, ...). A .env file in the working
// directory is loaded into the environment first.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Config{
		Port:          v.GetString("port"),
		DBDriver:      v.GetString("db.driver"),
		DBDSN:         v.GetString("db.dsn"),
		SessionStore:  v.GetString("session.store"),
		SessionTTL:    v.GetDuration("session.ttl"),
		CookieSecure:  v.GetBool("session.cookie_secure"),
		RedisURL:      v.GetString("redis.url"),
		LogLevel:      v.GetString("log.level"),
		LogFile:       v.GetString("log.file"),
		BcryptCost:    v.GetInt("auth.bcrypt_cost"),
		RateMax:       v.GetInt("auth.rate_max"),
		RateWindow:    v.GetDuration("auth.rate_window"),
		AuthPath:      v.GetString("routes.auth"),
		HomePath:      v.GetString("routes.home"),
		AdminPath:     v.GetString("routes.admin"),
		AdminName:     v.GetString("admin.name"),
		AdminEmail:    v.GetString("admin.email"),
		AdminPassword: v.GetString("admin.password"),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.SessionTTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	if c.RateMax <= 0 || c.RateWindow <= 0 {
		return errors.New("auth.rate_max and auth.rate_window must be positive")
	}
	for _, p := range []string{c.AuthPath, c.HomePath, c.AdminPath} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("route %q must start with /", p)
		}
	}
	if c.AuthPath == c.HomePath || c.AuthPath == c.AdminPath {
		return errors.New("routes.auth must differ from the landing routes")
	}
	if c.HomePath == c.AdminPath {
		return errors.New("routes.home and routes.admin must differ")
	}
	return nil
}
