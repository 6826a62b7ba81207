package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds runtime settings for the optimizer API.
type Config struct {
	HTTPAddr         string
	OptimizerURL     string
	OptimizerToken   string
	OptimizerTimeout time.Duration
	ApplyPermissions bool
	PermissionServer string
	UserHeader       string
	RequireUser      bool
	PostgresDSN      string
	StatsDSN         string
	SkipMigrate      bool
	GrantsDir        string
	JournalBackend   string
	JournalFile      string
	RedisURL         string
	RedisKey         string
	KafkaBrokers     string
	KafkaTopic       string
	ArchiveEndpoint  string
	ArchiveBucket    string
	ArchiveAccessKey string
	ArchiveSecretKey string
	ArchiveUseSSL    bool
	SettingsPath     string
	CORSOrigins      []string
	CORSMethods      []string
	CORSHeaders      []string
	CORSCredentials  bool
	CORSMaxAge       int
	LogLevel         string
	LogFormat        string
}

const defaultTimeout = 30 * time.Second

var defaults = map[string]any{
	"http_addr":          ":8080",
	"optimizer_url":      "",
	"optimizer_token":    "",
	"optimizer_timeout":  "30s",
	"apply_permissions":  false,
	"permission_server":  "server1",
	"user_header":        "X-Remote-User",
	"require_user":       false,
	"postgres_dsn":       "",
	"stats_dsn":          "",
	"skip_migrate":       false,
	"grants_dir":         "",
	"journal_backend":    "file",
	"journal_file":       "/tmp/optimizer/uploads.json",
	"redis_url":          "",
	"redis_key":          "optimizer:uploads",
	"kafka_brokers":      "",
	"kafka_topic":        "optimizer.uploads",
	"archive_endpoint":   "",
	"archive_bucket":     "",
	"archive_access_key": "",
	"archive_secret_key": "",
	"archive_use_ssl":    false,
	"settings_path":      "",
	"cors_origins":       "",
	"cors_methods":       "",
	"cors_headers":       "",
	"cors_credentials":   false,
	"cors_max_age":       0,
	"log_level":          "info",
	"log_format":         "text",
}

// RegisterFlags adds one flag per key, named with dashes (http-addr, ...),
// plus --config for an optional config file.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "optional config file (yaml, json or toml)")
	for key, def := range defaults {
		name := strings.ReplaceAll(key, "_", "-")
		usage := "overrides $" + strings.ToUpper(key)
		switch v := def.(type) {
		case bool:
			fs.Bool(name, v, usage)
		case int:
			fs.Int(name, v, usage)
		default:
			fs.String(name, fmt.Sprint(v), usage)
		}
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, def := range defaults {
		v.SetDefault(key, def)
	}
	v.AutomaticEnv()
	return v
}

// Load resolves configuration. Precedence, highest first: flags set on the
// command line, the environment, the optional --config file, defaults.
// List values (cors_*) are comma-separated strings.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := newViper()
	if fs != nil {
		var bindErr error
		fs.Visit(func(f *pflag.Flag) {
			if f.Name == "config" {
				return
			}
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return Config{}, bindErr
		}
		if path, _ := fs.GetString("config"); path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}
	return fromViper(v)
}

// FromEnv loads configuration from the environment with sensible defaults.
func FromEnv() Config {
	cfg, _ := fromViper(newViper())
	return cfg
}

// fromViper always returns a usable Config; a malformed timeout falls back
// to the default and is reported through the error.
func fromViper(v *viper.Viper) (Config, error) {
	var timeoutErr error
	timeout, err := time.ParseDuration(v.GetString("optimizer_timeout"))
	if err != nil {
		timeout = defaultTimeout
		timeoutErr = fmt.Errorf("optimizer_timeout: %w", err)
	}
	cfg := Config{
		HTTPAddr:         v.GetString("http_addr"),
		OptimizerURL:     v.GetString("optimizer_url"),
		OptimizerToken:   v.GetString("optimizer_token"),
		OptimizerTimeout: timeout,
		ApplyPermissions: v.GetBool("apply_permissions"),
		PermissionServer: v.GetString("permission_server"),
		UserHeader:       v.GetString("user_header"),
		RequireUser:      v.GetBool("require_user"),
		PostgresDSN:      v.GetString("postgres_dsn"),
		StatsDSN:         v.GetString("stats_dsn"),
		SkipMigrate:      v.GetBool("skip_migrate"),
		GrantsDir:        v.GetString("grants_dir"),
		JournalBackend:   strings.ToLower(v.GetString("journal_backend")),
		JournalFile:      v.GetString("journal_file"),
		RedisURL:         v.GetString("redis_url"),
		RedisKey:         v.GetString("redis_key"),
		KafkaBrokers:     v.GetString("kafka_brokers"),
		KafkaTopic:       v.GetString("kafka_topic"),
		ArchiveEndpoint:  v.GetString("archive_endpoint"),
		ArchiveBucket:    v.GetString("archive_bucket"),
		ArchiveAccessKey: v.GetString("archive_access_key"),
		ArchiveSecretKey: v.GetString("archive_secret_key"),
		ArchiveUseSSL:    v.GetBool("archive_use_ssl"),
		SettingsPath:     v.GetString("settings_path"),
		CORSOrigins:      splitList(v.GetString("cors_origins")),
		CORSMethods:      splitList(v.GetString("cors_methods")),
		CORSHeaders:      splitList(v.GetString("cors_headers")),
		CORSCredentials:  v.GetBool("cors_credentials"),
		CORSMaxAge:       v.GetInt("cors_max_age"),
		LogLevel:         v.GetString("log_level"),
		LogFormat:        v.GetString("log_format"),
	}
	return cfg, timeoutErr
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
