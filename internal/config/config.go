package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at configPath, applies defaults and validates the result.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("config file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML content into an AppConfig. Unknown keys are rejected.
func Parse(content []byte) (*AppConfig, error) {
	cfg := defaultAppConfig()
	raw := rawAppConfig{}
	if len(bytes.TrimSpace(content)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
	}

	applyRawAppConfig(&cfg, raw)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	cfg := AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseRuntimeConfig{
			Driver:    defaultDBDriver,
			Host:      defaultDBHost,
			Port:      defaultDBPort,
			User:      defaultDBUser,
			Name:      defaultDBName,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,
		},
		Comments: CommentsConfig{
			PerPage:            defaultPerPage,
			Order:              defaultCommentOrder,
			BBCode:             true,
			MaxPaginationLinks: defaultMaxPaginationLinks,
		},
		Metrics: MetricsConfig{Path: defaultMetricsPath},
	}
	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.DSN = cfg.Database.DSNValue()
	return cfg
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.NodeEnv); v != "" {
		cfg.Env = v
	}
	cfg.Env = normalizeEnv(cfg.Env)
	if v := strings.TrimSpace(raw.Timezone); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(raw.TZ); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(raw.JWTSecret); v != "" {
		cfg.JWTSecret = v
	}
	if len(raw.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = normalizeList(raw.AllowedOrigins)
	}

	cfg.Paths.Logs = strings.TrimSpace(raw.Paths.Logs)
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}

	cfg.Database = applyRawDatabaseConfig(cfg.Database, raw)
	cfg.DSN = cfg.Database.DSNValue()

	cfg.Redis = normalizeRedisConfig(raw.Redis)
	if v := strings.TrimSpace(raw.RedisURL); v != "" {
		cfg.Redis.URL = normalizeRedisRawURL(v)
	}
	cfg.RedisURL = cfg.Redis.URLValue()

	cfg.Site = normalizeSiteConfig(raw.Site)
	cfg.Mail = normalizeMailConfig(raw.Mail, cfg.Site)
	cfg.Comments = applyRawCommentsConfig(cfg.Comments, raw.Comments)

	if raw.Metrics.Enable != nil {
		cfg.Metrics.Enable = *raw.Metrics.Enable
	}
	if v := strings.TrimSpace(raw.Metrics.Path); v != "" {
		cfg.Metrics.Path = "/" + strings.TrimLeft(v, "/")
	}
}

func applyRawDatabaseConfig(current DatabaseRuntimeConfig, raw rawAppConfig) DatabaseRuntimeConfig {
	db := raw.Database
	if v := strings.TrimSpace(db.Driver); v != "" {
		current.Driver = v
	}
	if v := strings.TrimSpace(raw.DSN); v != "" {
		current.DSN = v
	}
	if v := strings.TrimSpace(db.DSN); v != "" {
		current.DSN = v
	}
	if v := strings.TrimSpace(db.URL); v != "" {
		current.DSN = v
	}
	if v := strings.TrimSpace(db.Path); v != "" {
		current.Path = v
	}
	if v := strings.TrimSpace(db.Host); v != "" {
		current.Host = v
	}
	if db.Port != 0 {
		current.Port = db.Port
	}
	if v := strings.TrimSpace(db.User); v != "" {
		current.User = v
	} else if v := strings.TrimSpace(db.Username); v != "" {
		current.User = v
	}
	if v := strings.TrimSpace(db.Password); v != "" {
		current.Password = v
	}
	if v := strings.TrimSpace(db.Name); v != "" {
		current.Name = v
	} else if v := strings.TrimSpace(db.DBName); v != "" {
		current.Name = v
	}
	if v := strings.TrimSpace(db.Charset); v != "" {
		current.Charset = v
	}
	if db.ParseTime != nil {
		current.ParseTime = *db.ParseTime
	}
	if v := strings.TrimSpace(db.Loc); v != "" {
		current.Loc = v
	}
	if len(db.Params) > 0 {
		current.Params = db.Params
	}
	return normalizeDatabaseConfig(current)
}

func applyRawCommentsConfig(current CommentsConfig, raw rawCommentsConfig) CommentsConfig {
	if raw.PerPage != nil {
		current.PerPage = *raw.PerPage
	}
	if v := strings.TrimSpace(raw.Order); v != "" {
		current.Order = v
	}
	if raw.Moderate != nil {
		current.Moderate = *raw.Moderate
	}
	if raw.BBCode != nil {
		current.BBCode = *raw.BBCode
	}
	if raw.RequireLogin != nil {
		current.RequireLogin = *raw.RequireLogin
	}
	if raw.DisableCaptcha != nil {
		current.DisableCaptcha = *raw.DisableCaptcha
	}
	if raw.StrictSanitize != nil {
		current.StrictSanitize = *raw.StrictSanitize
	}
	if raw.MaxPaginationLinks != nil {
		current.MaxPaginationLinks = *raw.MaxPaginationLinks
	}
	if raw.AntiSpam != nil {
		current.AntiSpam = *raw.AntiSpam
	}
	current.Notify = normalizeList(raw.Notify)
	current.BlockIPs = normalizeList(raw.BlockIPs)
	current.SpamKeywords = normalizeList(raw.SpamKeywords)
	return normalizeCommentsConfig(current)
}

func validate(cfg *AppConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", cfg.Port)
	}
	switch cfg.Database.Driver {
	case DriverMySQL:
		if cfg.Database.Port < 1 || cfg.Database.Port > 65535 {
			return fmt.Errorf("invalid database.port %d, expected 1-65535", cfg.Database.Port)
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("unsupported database.driver %q, expected mysql or sqlite", cfg.Database.Driver)
	}
	if cfg.Redis.Port < 0 || cfg.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis.port %d, expected 1-65535", cfg.Redis.Port)
	}
	if cfg.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", cfg.Redis.DB)
	}
	if cfg.Comments.PerPage < 0 {
		return fmt.Errorf("invalid comments.per_page %d, expected >= 0", cfg.Comments.PerPage)
	}
	switch cfg.Comments.Order {
	case OrderAscending, OrderDescending:
	default:
		return fmt.Errorf("invalid comments.order %q, expected ascending or descending", cfg.Comments.Order)
	}
	if cfg.Mail.Enable && cfg.Mail.From == "" {
		return fmt.Errorf("mail.from is required when mail is enabled")
	}
	if cfg.Site.BaseURL == "" {
		if cfg.Mail.Enable || !cfg.IsDev() {
			return fmt.Errorf("site.base_url is required outside development and when mail is enabled")
		}
	} else if !isAbsoluteWebURL(cfg.Site.BaseURL) {
		return fmt.Errorf("invalid site.base_url %q, expected an absolute http(s) URL", cfg.Site.BaseURL)
	}
	return nil
}

func isAbsoluteWebURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (c *AppConfig) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// LogDir returns the directory the native log writer appends to.
func (c *AppConfig) LogDir() string {
	return ResolveRuntimePath(c.Paths.Logs, "logs")
}

// UsesRedis reports whether a Redis server is configured.
func (c *AppConfig) UsesRedis() bool {
	return c.RedisURL != ""
}
