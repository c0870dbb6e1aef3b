package config

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int      `yaml:"port"`
	Env            string   `yaml:"env"` // "development" | "production"
	Timezone       string   `yaml:"timezone"`
	JWTSecret      string   `yaml:"jwt_secret"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	// DSN and RedisURL are resolved from Database and Redis during Load.
	// An empty RedisURL selects the in-process session store.
	DSN      string `yaml:"-"`
	RedisURL string `yaml:"-"`

	Database DatabaseRuntimeConfig `yaml:"database"`
	Redis    RedisRuntimeConfig    `yaml:"redis"`
	Paths    RuntimePathsConfig    `yaml:"paths"`
	Site     SiteConfig            `yaml:"site"`
	Mail     MailConfig            `yaml:"mail"`
	Comments CommentsConfig        `yaml:"comments"`
	Metrics  MetricsConfig         `yaml:"metrics"`
}

type DatabaseRuntimeConfig struct {
	Driver    string            `yaml:"driver"`
	DSN       string            `yaml:"dsn"`
	Path      string            `yaml:"path"` // sqlite file
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	Charset   string            `yaml:"charset"`
	ParseTime bool              `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type RedisRuntimeConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TLS      bool   `yaml:"tls"`
}

type RuntimePathsConfig struct {
	Logs string `yaml:"logs"`
}

// SiteConfig describes the public site the comment threads are embedded in.
type SiteConfig struct {
	Name       string `yaml:"name"`
	BaseURL    string `yaml:"base_url"`
	AdminURL   string `yaml:"admin_url"`
	AdminEmail string `yaml:"admin_email"`
	AdminName  string `yaml:"admin_name"`
}

type MailConfig struct {
	Enable       bool   `yaml:"enable"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Pass         string `yaml:"pass"`
	From         string `yaml:"from"`
	FromName     string `yaml:"from_name"`
	ReplyTo      string `yaml:"reply_to"`
	ResendAPIKey string `yaml:"resend_api_key"`
}

// CommentsConfig holds the per-site comment thread behaviour.
type CommentsConfig struct {
	PerPage            int      `yaml:"per_page"`
	Order              string   `yaml:"order"`
	Moderate           bool     `yaml:"moderate"`
	BBCode             bool     `yaml:"bbcode"`
	RequireLogin       bool     `yaml:"require_login"`
	DisableCaptcha     bool     `yaml:"disable_captcha"`
	StrictSanitize     bool     `yaml:"strict_sanitize"`
	MaxPaginationLinks int      `yaml:"max_pagination_links"`
	Notify             []string `yaml:"notify"`
	AntiSpam           bool     `yaml:"anti_spam"`
	BlockIPs           []string `yaml:"block_ips"`
	SpamKeywords       []string `yaml:"spam_keywords"`
}

type MetricsConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type rawAppConfig struct {
	Port           int                `yaml:"port"`
	Env            string             `yaml:"env"`
	NodeEnv        string             `yaml:"node_env"`
	Timezone       string             `yaml:"timezone"`
	TZ             string             `yaml:"tz"`
	JWTSecret      string             `yaml:"jwt_secret"`
	AllowedOrigins []string           `yaml:"allowed_origins"`
	DSN            string             `yaml:"dsn"`
	RedisURL       string             `yaml:"redis_url"`
	LogDir         string             `yaml:"log_dir"`
	Database       rawDatabaseConfig  `yaml:"database"`
	Redis          RedisRuntimeConfig `yaml:"redis"`
	Paths          RuntimePathsConfig `yaml:"paths"`
	Site           SiteConfig         `yaml:"site"`
	Mail           MailConfig         `yaml:"mail"`
	Comments       rawCommentsConfig  `yaml:"comments"`
	Metrics        rawMetricsConfig   `yaml:"metrics"`
}

type rawDatabaseConfig struct {
	Driver    string            `yaml:"driver"`
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Path      string            `yaml:"path"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	DBName    string            `yaml:"db_name"`
	Charset   string            `yaml:"charset"`
	ParseTime *bool             `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

// rawCommentsConfig uses pointers where the default is true or non-zero so
// an explicit false/0 in the file can be told apart from "not set".
type rawCommentsConfig struct {
	PerPage            *int     `yaml:"per_page"`
	Order              string   `yaml:"order"`
	Moderate           *bool    `yaml:"moderate"`
	BBCode             *bool    `yaml:"bbcode"`
	RequireLogin       *bool    `yaml:"require_login"`
	DisableCaptcha     *bool    `yaml:"disable_captcha"`
	StrictSanitize     *bool    `yaml:"strict_sanitize"`
	MaxPaginationLinks *int     `yaml:"max_pagination_links"`
	Notify             []string `yaml:"notify"`
	AntiSpam           *bool    `yaml:"anti_spam"`
	BlockIPs           []string `yaml:"block_ips"`
	SpamKeywords       []string `yaml:"spam_keywords"`
}

type rawMetricsConfig struct {
	Enable *bool  `yaml:"enable"`
	Path   string `yaml:"path"`
}
