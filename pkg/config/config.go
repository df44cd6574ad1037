package config

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const EnvFile = "./configs/.env"

var (
	once     sync.Once
	instance *Config
)

type Config struct {
	APIAddress string `env:"API_ADDRESS" envDefault:":8080"`

	PostgresAddress  string `env:"POSTGRES_DB_ADDRESS" envDefault:"localhost:5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"habitsync"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	MigrationsDir    string `env:"MIGRATIONS_DIR" envDefault:"./migrations"`

	// Empty means the in-process change feed
	RedisURL string `env:"REDIS_URL"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"1h"`

	AppID      string `env:"APP_ID" envDefault:"habitsync"`
	Timezone   string `env:"DATEKEY_TIMEZONE" envDefault:"UTC"`
	WriteQueue bool   `env:"WRITE_QUEUE" envDefault:"true"`
	// Zero keeps sessions until sign out
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogFile   string `env:"LOG_FILE"`
}

// New loads EnvFile once and parses the process environment. A missing file
// only produces a warning.
func New() *Config {
	once.Do(func() {
		if err := godotenv.Load(EnvFile); err != nil {
			log.Printf("WARN: cannot load %s: %v, using environment variables", EnvFile, err)
		}
		cfg, err := Parse(nil)
		if err != nil {
			log.Fatal("parsing envs error: ", err)
		}
		instance = cfg
	})
	return instance
}

// Parse fills a Config from environment, or from the process environment
// when environment is nil.
func Parse(environment map[string]string) (*Config, error) {
	cfg := &Config{}
	opts := env.Options{}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.Parse(cfg, opts); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) GetString(key string) string {
	return os.Getenv(key)
}
