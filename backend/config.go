// backend/config.go
package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"photoaffix/storage"
)

type RateLimitConfig struct {
	Enabled         bool `mapstructure:"Enabled"`
	Requests        int  `mapstructure:"Requests"`
	DurationMinutes int  `mapstructure:"DurationMinutes"`
}
type DBConfig struct {
	Type string `mapstructure:"Type" json:"type"`
	DSN  string `mapstructure:"DSN" json:"dsn"`
}

// SourcesConfig 描述可选的远程内容来源，未配置的来源不会注册对应方案
type SourcesConfig struct {
	S3                 storage.S3Config     `mapstructure:"S3" json:"s3"`
	WebDAV             storage.WebDAVConfig `mapstructure:"WebDAV" json:"webdav"`
	HTTPTimeoutSeconds int                  `mapstructure:"HTTPTimeoutSeconds" json:"httpTimeoutSeconds"`
	// AllowPrivateHTTP 允许 http(s) 定位符访问回环、内网与链路本地地址
	AllowPrivateHTTP bool `mapstructure:"AllowPrivateHTTP" json:"allowPrivateHTTP"`
}
type ThumbnailConfig struct {
	Size        int    `mapstructure:"Size"`
	BorderWidth int    `mapstructure:"BorderWidth"`
	AccentColor string `mapstructure:"AccentColor"`
}
type Config struct {
	ServerPort         string          `mapstructure:"ServerPort"`
	SetupAddress       string          `mapstructure:"SetupAddress"`
	DataDir            string          `mapstructure:"DataDir"`
	AppName            string          `mapstructure:"AppName"`
	StorageRoot        string          `mapstructure:"StorageRoot"`
	ContentRoot        string          `mapstructure:"ContentRoot"`
	UniqueNames        bool            `mapstructure:"UniqueNames"`
	AllowFileScheme    bool            `mapstructure:"AllowFileScheme"`
	ImportTTLMinutes   int             `mapstructure:"ImportTTLMinutes"`
	Thumbnail          ThumbnailConfig `mapstructure:"Thumbnail"`
	RateLimit          RateLimitConfig `mapstructure:"RateLimit"`
	Database           DBConfig        `mapstructure:"Database"`
	Sources            SourcesConfig   `mapstructure:"Sources"`
	ClamdSocket        string          `mapstructure:"ClamdSocket"`
	CORSAllowedOrigins string          `mapstructure:"CORSAllowedOrigins"`
	Initialized        bool            `mapstructure:"Initialized"`
}

// LoadConfig 读取 JSON 配置文件（可缺失），再用 PHOTOAFFIX_ 前缀的环境变量覆盖
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	// 设置默认值，同时让环境变量能覆盖每一个键
	v.SetDefault("ServerPort", "8080")
	v.SetDefault("SetupAddress", "127.0.0.1:8080")
	v.SetDefault("DataDir", "data")
	v.SetDefault("AppName", "PhotoAffix")
	v.SetDefault("StorageRoot", "data/shared")
	v.SetDefault("ContentRoot", "data/content")
	v.SetDefault("UniqueNames", true)
	v.SetDefault("AllowFileScheme", false)
	v.SetDefault("ImportTTLMinutes", 60)
	v.SetDefault("Thumbnail.Size", 256)
	v.SetDefault("Thumbnail.BorderWidth", 4)
	v.SetDefault("Thumbnail.AccentColor", "#FF4081")
	v.SetDefault("RateLimit.Enabled", true)
	v.SetDefault("RateLimit.Requests", 30)
	v.SetDefault("RateLimit.DurationMinutes", 10)
	v.SetDefault("Database.Type", "sqlite")
	v.SetDefault("Database.DSN", "data/photoaffix.db")
	v.SetDefault("Sources.S3.Endpoint", "")
	v.SetDefault("Sources.S3.Region", "us-east-1")
	v.SetDefault("Sources.S3.Bucket", "")
	v.SetDefault("Sources.S3.AccessKeyID", "")
	v.SetDefault("Sources.S3.SecretAccessKey", "")
	v.SetDefault("Sources.S3.UsePathStyle", true)
	v.SetDefault("Sources.WebDAV.URL", "")
	v.SetDefault("Sources.WebDAV.Username", "")
	v.SetDefault("Sources.WebDAV.Password", "")
	v.SetDefault("Sources.HTTPTimeoutSeconds", 30)
	v.SetDefault("Sources.AllowPrivateHTTP", false)
	v.SetDefault("ClamdSocket", "")
	v.SetDefault("CORSAllowedOrigins", "")
	v.SetDefault("Initialized", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			// 文件未找到是容器环境下的预期行为，继续使用环境变量和默认值
			slog.Info("配置文件未找到，将完全依赖环境变量和默认值。", "path", path)
		} else {
			return nil, err
		}
	}

	v.SetEnvPrefix("PHOTOAFFIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	slog.Info("配置加载完成",
		slog.String("serverPort", cfg.ServerPort),
		slog.String("appName", cfg.AppName),
		slog.String("storageRoot", cfg.StorageRoot),
		slog.String("dbType", cfg.Database.Type),
		slog.Bool("uniqueNames", cfg.UniqueNames),
		slog.Bool("initialized", cfg.Initialized),
	)
	return cfg, nil
}

func (c *Config) GetRateLimitDuration() time.Duration {
	return time.Duration(c.RateLimit.DurationMinutes) * time.Minute
}

func (c *Config) GetImportTTL() time.Duration {
	return time.Duration(c.ImportTTLMinutes) * time.Minute
}
