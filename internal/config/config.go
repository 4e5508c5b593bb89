// Package config loads server settings. Precedence, lowest first:
// built-in defaults (which read the process environment), an optional
// YAML file, then command-line flags that were explicitly set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/small-engineer/go-web-serv/account/internal/usecase/auth"
)

const (
	UsersMemory    = "memory"
	UsersMySQL     = "mysql"
	UsersPostgres  = "postgres"
	SessionsMemory = "memory"
	SessionsRedis  = "redis"
)

type Config struct {
	HTTP     HTTP              `koanf:"http"`
	Store    Store             `koanf:"store"`
	MySQL    DSN               `koanf:"mysql"`
	Postgres DSN               `koanf:"postgres"`
	Redis    Redis             `koanf:"redis"`
	Session  Session           `koanf:"session"`
	Auth     Auth              `koanf:"auth"`
	Argon2   auth.Argon2Params `koanf:"argon2"`
	Log      Log               `koanf:"log"`
}

type HTTP struct {
	Addr string `koanf:"addr"`
}

type Store struct {
	Users    string `koanf:"users"`
	Sessions string `koanf:"sessions"`
}

type DSN struct {
	DSN string `koanf:"dsn"`
}

type Redis struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type Session struct {
	Secret     string        `koanf:"secret"`
	CookieName string        `koanf:"cookie_name"`
	TTL        time.Duration `koanf:"ttl"`
	Secure     bool          `koanf:"secure"`
}

type Auth struct {
	RequireCallerID bool `koanf:"require_caller_id"`
}

type Log struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

func getenv(k, fallback string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return fallback
}

// mysqlDSN assembles a DSN from DB_* variables when all are present.
func mysqlDSN() string {
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		return v
	}
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	pass := os.Getenv("DB_PASSWORD")
	name := os.Getenv("DB_NAME")
	if host == "" || port == "" || user == "" || name == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci", user, pass, host, port, name)
}

func Default() *Config {
	db, _ := strconv.Atoi(getenv("REDIS_DB", "0"))
	return &Config{
		HTTP: HTTP{Addr: getenv("HTTP_ADDR", ":8080")},
		Store: Store{
			Users:    getenv("USER_STORE", UsersMemory),
			Sessions: getenv("SESSION_STORE", SessionsMemory),
		},
		MySQL:    DSN{DSN: mysqlDSN()},
		Postgres: DSN{DSN: os.Getenv("POSTGRES_DSN")},
		Redis: Redis{
			Addr:     getenv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       db,
		},
		Session: Session{
			Secret:     os.Getenv("SESSION_SECRET"),
			CookieName: getenv("SESSION_COOKIE", "qid"),
			TTL:        10 * 365 * 24 * time.Hour,
		},
		Argon2: auth.DefaultArgon2Params(),
		Log: Log{
			Format: getenv("LOG_FORMAT", "json"),
			Level:  getenv("LOG_LEVEL", "info"),
		},
	}
}

// RegisterFlags declares one flag per tunable key, named after the key.
func RegisterFlags(fs *pflag.FlagSet, d *Config) {
	fs.String("http.addr", d.HTTP.Addr, "listen address")
	fs.String("store.users", d.Store.Users, "user store: memory, mysql or postgres")
	fs.String("store.sessions", d.Store.Sessions, "session store: memory or redis")
	fs.String("mysql.dsn", d.MySQL.DSN, "MySQL DSN")
	fs.String("postgres.dsn", d.Postgres.DSN, "PostgreSQL DSN")
	fs.String("redis.addr", d.Redis.Addr, "Redis address")
	fs.Int("redis.db", d.Redis.DB, "Redis database number")
	fs.String("session.cookie_name", d.Session.CookieName, "session cookie name")
	fs.Duration("session.ttl", d.Session.TTL, "session lifetime")
	fs.Bool("session.secure", d.Session.Secure, "mark the session cookie Secure")
	fs.Bool("auth.require_caller_id", d.Auth.RequireCallerID, "reject register calls without an id")
	fs.String("log.format", d.Log.Format, "log format: json or text")
	fs.String("log.level", d.Log.Level, "log level")
}

// Load layers path (if non-empty) and fs (if non-nil) over Default().
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE").With("path", path).Wrap(err)
		}
	}
	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	invalid := oops.Code("CONFIG_INVALID")

	if c.Session.Secret == "" {
		return invalid.Errorf("session.secret is not set")
	}
	if c.Session.TTL <= 0 {
		return invalid.Errorf("session.ttl must be positive")
	}
	if err := c.Argon2.Validate(); err != nil {
		return invalid.Wrap(err)
	}
	switch c.Store.Users {
	case UsersMemory:
	case UsersMySQL:
		if c.MySQL.DSN == "" {
			return invalid.Errorf("mysql.dsn is not set")
		}
	case UsersPostgres:
		if c.Postgres.DSN == "" {
			return invalid.Errorf("postgres.dsn is not set")
		}
	default:
		return invalid.Errorf("unknown user store %q", c.Store.Users)
	}
	switch c.Store.Sessions {
	case SessionsMemory, SessionsRedis:
	default:
		return invalid.Errorf("unknown session store %q", c.Store.Sessions)
	}
	return nil
}
