package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cppla/captcha/captcha"
)

// AppConfig holds file and environment driven configuration values.
type AppConfig struct {
	AppPort            string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// HS256 secret for admin tokens; empty disables the admin API
	AdminSecret string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Captcha rendering
	CaptchaWidth        int
	CaptchaHeight       int
	CaptchaCharNumber   int
	CaptchaAlphabet     string
	CaptchaFamilies     []string
	CaptchaFontDir      string
	CaptchaFormat       string
	CaptchaQuality      int
	CaptchaDoubleOffset bool
	// Lifetimes of stored answers and idle sessions, in seconds
	CaptchaAnswerTTLSec  int
	CaptchaSessionTTLSec int
	// bcrypt cost for answers at rest
	CaptchaHashCost int
	// Redis for answer storage; memory is used when disabled
	RedisEnabled  bool
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// MySQL for issuance statistics; skipped when disabled
	DBEnabled   bool
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration once during boot.
// Precedence: config/config.json -> defaults -> environment variable overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}
	c, err := LoadFile(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("invalid config/config.json: %v", err)
	}
	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Intended for tests and embedding.
func Set(c AppConfig) {
	cfg = c
	loaded = true
}

// LoadFile builds a configuration from the JSON file at path (missing is fine),
// defaults and environment overrides.
func LoadFile(path string) (AppConfig, error) {
	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		return c, err
	}
	applyDefaults(&c)
	applyEnvOverrides(&c)
	return c, nil
}

// CaptchaOptions converts the captcha section into engine options. The font
// directory, when set, is registered on top of the bundled families.
func (c AppConfig) CaptchaOptions() (captcha.Options, error) {
	opts := captcha.DefaultOptions()
	opts.Width = c.CaptchaWidth
	opts.Height = c.CaptchaHeight
	opts.CharNumber = c.CaptchaCharNumber
	opts.Alphabet = c.CaptchaAlphabet
	opts.Families = c.CaptchaFamilies
	opts.Format = c.CaptchaFormat
	opts.Quality = c.CaptchaQuality
	opts.DoubleOffset = c.CaptchaDoubleOffset

	if c.CaptchaFontDir != "" {
		reg, err := captcha.DefaultFontRegistry()
		if err != nil {
			return opts, err
		}
		if _, err := reg.LoadDir(c.CaptchaFontDir); err != nil {
			return opts, err
		}
		opts.Fonts = reg
	}
	return opts, nil
}

// AnswerTTL is how long a stored answer stays verifiable.
func (c AppConfig) AnswerTTL() time.Duration {
	return time.Duration(c.CaptchaAnswerTTLSec) * time.Second
}

// SessionTTL is how long an idle session is kept.
func (c AppConfig) SessionTTL() time.Duration {
	return time.Duration(c.CaptchaSessionTTLSec) * time.Second
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	dec := json.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			case json.Number:
				i, _ := t.Int64()
				return int(i)
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		out.AllowedOrigins = getStringSlice(app, "AllowedOrigins")
		out.AdminSecret = getString(app, "AdminSecret")
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		out.GinMode = getString(g, "Mode")
		out.GinPath = getString(g, "LogPath")
	}

	if cp, ok := raw["captcha"].(map[string]any); ok {
		out.CaptchaWidth = getInt(cp, "Width")
		out.CaptchaHeight = getInt(cp, "Height")
		out.CaptchaCharNumber = getInt(cp, "CharNumber")
		out.CaptchaAlphabet = getString(cp, "Alphabet")
		out.CaptchaFamilies = getStringSlice(cp, "Families")
		out.CaptchaFontDir = getString(cp, "FontDir")
		out.CaptchaFormat = getString(cp, "Format")
		out.CaptchaQuality = getInt(cp, "Quality")
		out.CaptchaDoubleOffset = getBool(cp, "DoubleOffset")
		out.CaptchaAnswerTTLSec = getInt(cp, "AnswerTTLSec")
		out.CaptchaSessionTTLSec = getInt(cp, "SessionTTLSec")
		out.CaptchaHashCost = getInt(cp, "HashCost")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisEnabled = getBool(rds, "Enabled")
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DBEnabled = getBool(dbs, "Enabled")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.CaptchaWidth == 0 {
		c.CaptchaWidth = captcha.DefaultWidth
	}
	if c.CaptchaHeight == 0 {
		c.CaptchaHeight = captcha.DefaultHeight
	}
	if c.CaptchaCharNumber == 0 {
		c.CaptchaCharNumber = captcha.DefaultCharNumber
	}
	if c.CaptchaFormat == "" {
		c.CaptchaFormat = captcha.FormatJPEG
	}
	if c.CaptchaQuality == 0 {
		c.CaptchaQuality = captcha.DefaultQuality
	}
	if c.CaptchaAnswerTTLSec == 0 {
		c.CaptchaAnswerTTLSec = 600
	}
	if c.CaptchaSessionTTLSec == 0 {
		c.CaptchaSessionTTLSec = 600
	}
	if c.CaptchaHashCost == 0 {
		c.CaptchaHashCost = 4
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "captcha"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	if v := getEnv("ADMIN_JWT_SECRET", ""); v != "" {
		c.AdminSecret = v
	}
	if v := getEnv("CAPTCHA_WIDTH", ""); v != "" {
		c.CaptchaWidth = mustParseInt(v)
	}
	if v := getEnv("CAPTCHA_HEIGHT", ""); v != "" {
		c.CaptchaHeight = mustParseInt(v)
	}
	if v := getEnv("CAPTCHA_CHAR_NUMBER", ""); v != "" {
		c.CaptchaCharNumber = mustParseInt(v)
	}
	if v := getEnv("CAPTCHA_ALPHABET", ""); v != "" {
		c.CaptchaAlphabet = v
	}
	if v := getEnv("CAPTCHA_FAMILIES", ""); v != "" {
		c.CaptchaFamilies = readListEnv("CAPTCHA_FAMILIES", c.CaptchaFamilies)
	}
	if v := getEnv("CAPTCHA_FONT_DIR", ""); v != "" {
		c.CaptchaFontDir = v
	}
	if v := getEnv("CAPTCHA_FORMAT", ""); v != "" {
		c.CaptchaFormat = v
	}
	if v := getEnv("CAPTCHA_QUALITY", ""); v != "" {
		c.CaptchaQuality = mustParseInt(v)
	}
	if v := getEnv("CAPTCHA_DOUBLE_OFFSET", ""); v != "" {
		c.CaptchaDoubleOffset = v == "true"
	}
	if v := getEnv("CAPTCHA_ANSWER_TTL_SEC", ""); v != "" {
		c.CaptchaAnswerTTLSec = mustParseInt(v)
	}
	if v := getEnv("CAPTCHA_SESSION_TTL_SEC", ""); v != "" {
		c.CaptchaSessionTTLSec = mustParseInt(v)
	}
	if v := getEnv("CAPTCHA_HASH_COST", ""); v != "" {
		c.CaptchaHashCost = mustParseInt(v)
	}
	if v := getEnv("REDIS_ENABLED", ""); v != "" {
		c.RedisEnabled = v == "true"
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("DB_ENABLED", ""); v != "" {
		c.DBEnabled = v == "true"
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
