package config

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort      = 2333
	defaultEnv       = "development"
	defaultDBDriver  = "mysql"
	defaultDBHost    = "127.0.0.1"
	defaultDBPort    = 3306
	defaultDBUser    = "root"
	defaultDBName    = "mx_comments"
	defaultDBCharset = "utf8mb4"
	defaultDBLoc     = "Local"
	defaultSQLiteDB  = "comments.db"
	defaultRedisPort = 6379

	defaultPerPage            = 10
	defaultMaxPaginationLinks = 7
	defaultCommentOrder       = OrderAscending
	defaultMetricsPath        = "/metrics"
)

// Comment ordering values accepted by comments.order.
const (
	OrderAscending  = "ascending"
	OrderDescending = "descending"
)

// Supported database drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)
