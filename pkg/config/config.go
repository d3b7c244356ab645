package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Accounts AccountsConfig `mapstructure:"accounts"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name      string `mapstructure:"name"`
	Version   string `mapstructure:"version"`
	JWTSecret string `mapstructure:"jwt_secret"`
	LogLevel  string `mapstructure:"log_level"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
}

// HTTPConfig HTTP服务配置
type HTTPConfig struct {
	Network string `mapstructure:"network"`
	Addr    string `mapstructure:"addr"`
	Timeout string `mapstructure:"timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	MongoDB    MongoDBConfig    `mapstructure:"mongodb"`
	PostgreSQL PostgreSQLConfig `mapstructure:"postgresql"`
}

// MongoDBConfig MongoDB配置
type MongoDBConfig struct {
	URI    string `mapstructure:"uri"`
	DBName string `mapstructure:"db_name"`
}

// PostgreSQLConfig PostgreSQL配置
type PostgreSQLConfig struct {
	DSN    string `mapstructure:"dsn"`
	DBName string `mapstructure:"db_name"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig Kafka配置
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
}

// StorageConfig 本地媒体资产存储配置
type StorageConfig struct {
	RootDir string `mapstructure:"root_dir"` // 资产落盘目录
	BaseURL string `mapstructure:"base_url"` // 对外可访问的URL前缀
}

// AccountsConfig 账号服务（外部协作方）配置
type AccountsConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	Timeout         string `mapstructure:"timeout"`
	CapabilitiesTTL string `mapstructure:"capabilities_ttl"` // 能力缓存有效期
}

// DispatchConfig 平台投递配置
type DispatchConfig struct {
	// Endpoints 每个平台连接器的发布地址，key为平台标识
	Endpoints map[string]string `mapstructure:"endpoints"`
	Timeout   string            `mapstructure:"timeout"`
	Retries   int               `mapstructure:"retries"`
}

// LoadConfig 加载配置：配置文件 + 环境变量 + 默认值
func LoadConfig(serviceName string) *Config {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("../..")

	// 环境变量覆盖，CROSSPOST_SERVER_HTTP_ADDR 这种形式
	v.SetEnvPrefix("CROSSPOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, serviceName)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// 配置文件未找到，使用默认值
			log.Println("Config file not found, using default values")
		} else {
			panic(fmt.Sprintf("failed to read config file: %v", err))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal config: %v", err))
	}

	return &cfg
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper, serviceName string) {
	v.SetDefault("app.name", serviceName)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.jwt_secret", "crosspost")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":21021")
	v.SetDefault("server.http.timeout", "30s")

	v.SetDefault("database.mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("database.mongodb.db_name", serviceName+"DB")
	v.SetDefault("database.postgresql.dsn",
		"host=localhost user=postgres password=postgres dbname="+serviceName+"DB port=5432 sslmode=disable TimeZone=UTC")
	v.SetDefault("database.postgresql.db_name", serviceName+"DB")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.group_id", serviceName+"-group")

	v.SetDefault("storage.root_dir", "/var/lib/crosspost/media")
	v.SetDefault("storage.base_url", "http://localhost:21021/assets")

	v.SetDefault("accounts.base_url", "http://localhost:21031")
	v.SetDefault("accounts.timeout", "10s")
	v.SetDefault("accounts.capabilities_ttl", "5m")

	v.SetDefault("dispatch.timeout", "60s")
	v.SetDefault("dispatch.retries", 1)
	v.SetDefault("dispatch.endpoints", map[string]string{
		"tiktok":    "http://localhost:21041/tiktok",
		"instagram": "http://localhost:21041/instagram",
		"youtube":   "http://localhost:21041/youtube",
		"x":         "http://localhost:21041/x",
		"facebook":  "http://localhost:21041/facebook",
		"linkedin":  "http://localhost:21041/linkedin",
	})
}
