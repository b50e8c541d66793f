// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Template      TemplateConfig      `mapstructure:"template"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	// Driver 取值 mysql（默认）或 postgres。
	Driver   string         `mapstructure:"driver"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// PostgresConfig 存储 PostgreSQL 数据库的配置。
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers       string `mapstructure:"brokers"`
	CatalogTopic  string `mapstructure:"catalog_topic"`
	ActivityTopic string `mapstructure:"activity_topic"`
	GroupID       string `mapstructure:"group_id"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
	CatalogPrefix   string `mapstructure:"catalog_prefix"`
}

// TemplateConfig 存储模板聚合与自定义模板相关的配置。
type TemplateConfig struct {
	// MaxCustomTemplatesPerScope 是每个 (组织, 银行, 房产类型) 下允许同时存在的有效自定义模板数量上限。
	MaxCustomTemplatesPerScope int    `mapstructure:"max_custom_templates_per_scope"`
	CatalogCacheTTLSeconds     int    `mapstructure:"catalog_cache_ttl_seconds"`
	CatalogLRUSize             int    `mapstructure:"catalog_lru_size"`
	SeedDir                    string `mapstructure:"seed_dir"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
// 环境变量（前缀 VALUATION_）优先于配置文件；开发环境下会先尝试加载 .env。
func Init(configPath string) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("VALUATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := v.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8081")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.catalog_topic", "catalog-events")
	v.SetDefault("kafka.activity_topic", "activity-events")
	v.SetDefault("kafka.group_id", "valuation-form-go-consumer")
	v.SetDefault("elasticsearch.index_name", "custom_templates")
	v.SetDefault("minio.catalog_prefix", "catalogs/")
	v.SetDefault("template.max_custom_templates_per_scope", 2)
	v.SetDefault("template.catalog_cache_ttl_seconds", 600)
	v.SetDefault("template.catalog_lru_size", 256)
}
