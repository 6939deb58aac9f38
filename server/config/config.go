package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config はサーバー全体の設定です。
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Room    RoomConfig    `mapstructure:"room"`
	AI      AIConfig      `mapstructure:"ai"`
	Tank    TankConfig    `mapstructure:"tank"`
	Map     MapConfig     `mapstructure:"map"`
	Session SessionConfig `mapstructure:"session"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Log     LogConfig     `mapstructure:"log"`
	Otel    OtelConfig    `mapstructure:"otel"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Port string `mapstructure:"port"`
}

// ListenAddr は host:port 形式のアドレスを返します。
func (c ServerConfig) ListenAddr() string {
	return net.JoinHostPort(c.Addr, c.Port)
}

type RoomConfig struct {
	TickRate     int           `mapstructure:"tickRate"`
	MaxDt        float64       `mapstructure:"maxDt"`
	MaxPlayers   int           `mapstructure:"maxPlayers"`
	AITanks      int           `mapstructure:"aiTanks"`
	RestartDelay time.Duration `mapstructure:"restartDelay"`
	IntentQueue  int           `mapstructure:"intentQueue"`
	// Seed が0のときはルームごとに時刻から決めます。
	Seed uint64 `mapstructure:"seed"`
}

type AIConfig struct {
	BehaviorChance float64 `mapstructure:"behaviorChance"`
	FireChance     float64 `mapstructure:"fireChance"`
}

type TankConfig struct {
	Player TankStatsConfig `mapstructure:"player"`
	AI     TankStatsConfig `mapstructure:"ai"`
}

type TankStatsConfig struct {
	Speed         float64 `mapstructure:"speed"`
	RotationSpeed float64 `mapstructure:"rotationSpeed"`
	FireRate      float64 `mapstructure:"fireRate"`
	MaxHealth     float64 `mapstructure:"maxHealth"`
	BulletSpeed   float64 `mapstructure:"bulletSpeed"`
	BulletDamage  float64 `mapstructure:"bulletDamage"`
	Width         float64 `mapstructure:"width"`
	Height        float64 `mapstructure:"height"`
}

// MapConfig はマップの設定です。File が空なら Width×Height のマップに RandomWalls 個の壁を置きます。
type MapConfig struct {
	File        string `mapstructure:"file"`
	Width       int    `mapstructure:"width"`
	Height      int    `mapstructure:"height"`
	TileSize    int    `mapstructure:"tileSize"`
	RandomWalls int    `mapstructure:"randomWalls"`
}

type SessionConfig struct {
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`
	PingInterval time.Duration `mapstructure:"pingInterval"`
}

// AuthConfig は参加チケットの設定です。Secret が空なら検証しません。
type AuthConfig struct {
	Secret string `mapstructure:"secret"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type OtelConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	Insecure    bool   `mapstructure:"insecure"`
	ServiceName string `mapstructure:"serviceName"`
}

const (
	configName = "tankarena"
	envPrefix  = "TANKARENA"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "localhost")
	v.SetDefault("server.port", "9090")

	v.SetDefault("room.tickRate", 30)
	v.SetDefault("room.maxDt", 0.1)
	v.SetDefault("room.maxPlayers", 4)
	v.SetDefault("room.aiTanks", 3)
	v.SetDefault("room.restartDelay", 3*time.Second)
	v.SetDefault("room.intentQueue", 256)
	v.SetDefault("room.seed", 0)

	v.SetDefault("ai.behaviorChance", 0.01)
	v.SetDefault("ai.fireChance", 0.02)

	setTankDefaults(v, "tank.player", 100, 180, 1, 100, 300, 25)
	setTankDefaults(v, "tank.ai", 70, 120, 0.5, 80, 250, 20)

	v.SetDefault("map.file", "")
	v.SetDefault("map.width", 20)
	v.SetDefault("map.height", 15)
	v.SetDefault("map.tileSize", 40)
	v.SetDefault("map.randomWalls", 30)

	v.SetDefault("session.idleTimeout", 30*time.Second)
	v.SetDefault("session.pingInterval", 10*time.Second)

	v.SetDefault("auth.secret", "")
	v.SetDefault("log.level", "info")

	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.insecure", true)
	v.SetDefault("otel.serviceName", "tankarena")
}

func setTankDefaults(v *viper.Viper, prefix string, speed, rotation, fireRate, health, bulletSpeed, damage float64) {
	v.SetDefault(prefix+".speed", speed)
	v.SetDefault(prefix+".rotationSpeed", rotation)
	v.SetDefault(prefix+".fireRate", fireRate)
	v.SetDefault(prefix+".maxHealth", health)
	v.SetDefault(prefix+".bulletSpeed", bulletSpeed)
	v.SetDefault(prefix+".bulletDamage", damage)
	v.SetDefault(prefix+".width", 30)
	v.SetDefault(prefix+".height", 40)
}

// Load はデフォルト値、configDir の tankarena.yaml|json、環境変数の順に設定を読み込みます。
// 設定ファイルが無いのはエラーにしません。configDir が空ならカレントディレクトリを探します。
func Load(configDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(configName)
	if configDir == "" {
		configDir = "."
	}
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 既存のデプロイと同じ ADDR / PORT も受け付ける
	if err := v.BindEnv("server.addr", envPrefix+"_SERVER_ADDR", "ADDR"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("server.port", envPrefix+"_SERVER_PORT", "PORT"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate は起動できない値だけを弾きます。それ以外の値はそのまま使います。
func (c *Config) Validate() error {
	switch {
	case c.Room.TickRate <= 0:
		return fmt.Errorf("%w: room.tickRate must be positive, got %d", ErrInvalidConfig, c.Room.TickRate)
	case c.Room.MaxPlayers <= 0:
		return fmt.Errorf("%w: room.maxPlayers must be positive, got %d", ErrInvalidConfig, c.Room.MaxPlayers)
	case c.Map.File == "" && (c.Map.Width <= 0 || c.Map.Height <= 0 || c.Map.TileSize <= 0):
		return fmt.Errorf("%w: map dimensions must be positive, got %dx%d tile %d", ErrInvalidConfig, c.Map.Width, c.Map.Height, c.Map.TileSize)
	}
	return nil
}
