package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings aggregates every environment-driven option of the API and CLI.
// Nested sections are parsed with their envPrefix, e.g. SMTP_HOST fills SMTP.Host.
type Settings struct {
	Environment       string `env:"ENVIRONMENT" envDefault:"development"`
	DebugSQL          bool   `env:"DEBUG_SQL" envDefault:"false"`
	GinMode           string `env:"GIN_MODE"`
	ServerPort        string `env:"SERVER_PORT" envDefault:"8080"`
	JWTSecret         string `env:"JWT_SECRET"`
	JWTExpireHours    int    `env:"JWT_EXPIRE_HOURS" envDefault:"24"`
	AllowedOrigins    string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`
	DefaultCredential string `env:"DEFAULT_CREDENTIAL" envDefault:"EMAIL_DEFAULT"`

	DB        DBSettings        `envPrefix:"DB_"`
	SMTP      SMTPSettings      `envPrefix:"SMTP_"`
	Redis     RedisSettings     `envPrefix:"REDIS_"`
	Upload    UploadSettings    `envPrefix:"UPLOAD_"`
	Protected ProtectedSettings `envPrefix:"PROTECTED_"`
	Email     EmailSettings     `envPrefix:"EMAIL_"`
}

type DBSettings struct {
	Host     string `env:"HOST" envDefault:"127.0.0.1"`
	Port     string `env:"PORT" envDefault:"3306"`
	Database string `env:"DATABASE"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
}

type SMTPSettings struct {
	Host          string `env:"HOST"`
	Port          int    `env:"PORT" envDefault:"587"`
	User          string `env:"USER"`
	Pass          string `env:"PASS"`
	From          string `env:"FROM"` // e.g. "Campaigns <no-reply@your.org>"
	SkipTLSVerify bool   `env:"SKIP_TLS_VERIFY" envDefault:"false"`
}

type RedisSettings struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// UploadSettings controls CSV ingestion. LockBackend is one of local, mysql or redis.
type UploadSettings struct {
	ChunkSize     int           `env:"CHUNK_SIZE" envDefault:"500"`
	BatchSize     int           `env:"BATCH_SIZE" envDefault:"500"`
	MaxFileSizeMB int64         `env:"MAX_FILE_SIZE_MB" envDefault:"10"`
	LockBackend   string        `env:"LOCK_BACKEND" envDefault:"local"`
	LockTTL       time.Duration `env:"LOCK_TTL" envDefault:"10m"`
}

type ProtectedSettings struct {
	BaseURL  string `env:"BASE_URL" envDefault:"http://localhost:3000"`
	HashCost int    `env:"HASH_COST" envDefault:"6"`
}

// EmailSettings drives the HTML shell wrapped around rendered email bodies.
// LogoURLs may be separated by commas, semicolons or newlines.
type EmailSettings struct {
	LayoutEnabled bool   `env:"LAYOUT_ENABLED" envDefault:"true"`
	LogoURLs      string `env:"LOGO_URLS"`
	FooterHTML    string `env:"FOOTER_HTML"`
}

// Load parses the process environment. Call godotenv.Load first to pick up .env files.
func Load() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return s, err
	}
	s.Upload.LockBackend = strings.ToLower(strings.TrimSpace(s.Upload.LockBackend))
	return s, nil
}

func (s Settings) IsProduction() bool {
	return strings.EqualFold(s.Environment, "production")
}
