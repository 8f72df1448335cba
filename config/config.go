package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Database DatabaseConfig `mapstructure:"database"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	LogLevel       string `mapstructure:"log_level"`
}

// GameConfig holds the tunables of a lobby. GravityAlpha is the smoothing
// weight of the fused board angle: higher values tilt the board faster but
// make it jitterier.
type GameConfig struct {
	BoardSize       int           `mapstructure:"board_size"`
	FloorHeight     int           `mapstructure:"floor_height"`
	GravityAlpha    float64       `mapstructure:"gravity_alpha"`
	PowerUpCount    int           `mapstructure:"powerup_count"`
	PowerUpLifetime time.Duration `mapstructure:"powerup_lifetime"`
	LobbyTTL        time.Duration `mapstructure:"lobby_ttl"`
	ReapInterval    time.Duration `mapstructure:"reap_interval"`
}

type DatabaseConfig struct {
	// Driver is one of "memory", "gorm" or "postgres".
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":3030")
	v.SetDefault("server.rpc_address", ":3031")
	v.SetDefault("server.metrics_enabled", true)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("game.board_size", 16)
	v.SetDefault("game.floor_height", 1)
	v.SetDefault("game.gravity_alpha", 0.2)
	v.SetDefault("game.powerup_count", 3)
	v.SetDefault("game.powerup_lifetime", 15*time.Second)
	v.SetDefault("game.lobby_ttl", 30*time.Minute)
	v.SetDefault("game.reap_interval", time.Minute)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "tiltmaze")
}

// LoadConfig reads config.yaml from path. A missing file is not an error;
// defaults and MAZE_* environment variables still apply. A .env file next
// to it is loaded first but never overrides variables already set.
func LoadConfig(path string) (config *Config, err error) {
	if err = godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("maze")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	config = &Config{}
	if err = v.Unmarshal(config); err != nil {
		return nil, err
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects settings the game cannot run with.
func (c *Config) Validate() error {
	if c.Game.BoardSize < 1 {
		return errors.New("game.board_size must be positive")
	}
	if c.Game.FloorHeight < 1 {
		return errors.New("game.floor_height must be positive")
	}
	if c.Game.GravityAlpha <= 0 || c.Game.GravityAlpha > 1 {
		return errors.New("game.gravity_alpha must be in (0, 1]")
	}
	if c.Game.PowerUpCount < 0 {
		return errors.New("game.powerup_count must not be negative")
	}
	switch c.Database.Driver {
	case "memory", "gorm", "postgres":
	default:
		return errors.New("database.driver must be memory, gorm or postgres")
	}
	return nil
}
