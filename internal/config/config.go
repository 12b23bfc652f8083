package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/authz"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/model"
)

// Config is loaded once at process start and passed by reference; the
// rest of the code never reads ambient environment.
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	ServerPort string

	JWTSecret      string
	JWTExpiryHours int

	// TaskStatuses is the ordered status list; the first entry is the
	// default for new tasks.
	TaskStatuses   []model.TaskStatus
	AllowedGroupBy []string
	AllowedSortBy  []string

	// RatingGraceHours is the window after a task's due date within
	// which a rating is not flagged as delayed.
	RatingGraceHours int

	Roles authz.RoleTable
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "teapro_user"),
		DBPassword: getEnv("DB_PASSWORD", "teapro_pass"),
		DBName:     getEnv("DB_NAME", "teapro_db"),
		ServerPort: getEnv("SERVER_PORT", "8080"),

		JWTSecret:      getEnv("JWT_SECRET", "supersecretkey"),
		JWTExpiryHours: getEnvInt("JWT_EXPIRY_HOURS", 24),

		TaskStatuses:   statusList(getEnv("TASK_STATUS", "NOT_STARTED,ONGOING,ONHOLD,COMPLETED")),
		AllowedGroupBy: splitList(getEnv("ALLOWED_GROUP_BY", "default,projectId,createdBy,assignedTo,status,section")),
		AllowedSortBy:  splitList(getEnv("ALLOWED_SORT_BY", "default,due-date,due-date-desc")),

		RatingGraceHours: getEnvInt("RATING_GRACE_HOURS", 18),

		Roles: roleTable(getEnv("ROLE_PRIORITIES", "")),
	}
}

// DefaultStatus is the status assigned to newly created tasks.
func (c *Config) DefaultStatus() model.TaskStatus {
	if len(c.TaskStatuses) == 0 {
		return model.StatusNotStarted
	}
	return c.TaskStatuses[0]
}

// IsValidStatus reports whether s is one of the configured statuses.
func (c *Config) IsValidStatus(s model.TaskStatus) bool {
	for _, st := range c.TaskStatuses {
		if st == s {
			return true
		}
	}
	return false
}

func (c *Config) IsAllowedGroupBy(key string) bool {
	for _, k := range c.AllowedGroupBy {
		if k == key {
			return true
		}
	}
	return false
}

func (c *Config) IsAllowedSortBy(key string) bool {
	for _, k := range c.AllowedSortBy {
		if k == key {
			return true
		}
	}
	return false
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, value, defaultVal)
		return defaultVal
	}
	return n
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func statusList(raw string) []model.TaskStatus {
	parts := splitList(raw)
	out := make([]model.TaskStatus, 0, len(parts))
	for _, p := range parts {
		out = append(out, model.TaskStatus(p))
	}
	return out
}

// roleTable parses "ROLE:rank" pairs, e.g. "SUPER_ADMIN:6,ADMIN:5".
// Falls back to the built-in table when unset or malformed.
func roleTable(raw string) authz.RoleTable {
	if raw == "" {
		return authz.DefaultRoleTable()
	}
	table := authz.RoleTable{}
	for _, pair := range splitList(raw) {
		name, rank, ok := strings.Cut(pair, ":")
		if !ok {
			log.Printf("invalid ROLE_PRIORITIES entry %q, using defaults", pair)
			return authz.DefaultRoleTable()
		}
		n, err := strconv.Atoi(rank)
		if err != nil {
			log.Printf("invalid ROLE_PRIORITIES rank %q, using defaults", pair)
			return authz.DefaultRoleTable()
		}
		table[model.Role(name)] = n
	}
	return table
}
