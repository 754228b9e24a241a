package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"anihub/internal/anilist"
	"anihub/internal/auth"
	"anihub/internal/logging"
	"anihub/pkg/database"
)

const (
	EnvPrefix     = "ANIHUB_"
	ConfigPathEnv = "ANIHUB_CONFIG"
)

// DefaultConfigPaths are tried in order when ANIHUB_CONFIG is unset.
var DefaultConfigPaths = []string{"anihub.yaml", "anihub.yml"}

type Config struct {
	AniList  AniListConfig  `koanf:"anilist"`
	Export   ExportConfig   `koanf:"export"`
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Auth     AuthConfig     `koanf:"auth"`
	Log      LogConfig      `koanf:"log"`
}

type AniListConfig struct {
	Endpoint    string        `koanf:"endpoint" validate:"required,url"`
	Sort        string        `koanf:"sort" validate:"required,oneof=score popularity favorites episodes"`
	Page        int           `koanf:"page" validate:"min=1"`
	PerPage     string        `koanf:"per_page" validate:"required,oneof=small medium large 10 25 50"`
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`
	SkipInvalid bool          `koanf:"skip_invalid"`
}

type ExportConfig struct {
	Out string `koanf:"out" validate:"required"`
}

type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type ServerConfig struct {
	HTTPAddr       string   `koanf:"http_addr" validate:"required"`
	TCPAddr        string   `koanf:"tcp_addr"`
	TrustedProxies []string `koanf:"trusted_proxies"`
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	JWTIssuer string        `koanf:"jwt_issuer" validate:"required"`
	JWTTTL    time.Duration `koanf:"jwt_ttl" validate:"gt=0"`
}

type LogConfig struct {
	Level      string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format     string `koanf:"format" validate:"oneof=json console"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"min=0"`
	MaxBackups int    `koanf:"max_backups" validate:"min=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"min=0"`
}

// Logging converts the log section for logging.Init.
func (c LogConfig) Logging() logging.Config {
	return logging.Config{
		Level:      c.Level,
		Format:     c.Format,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}

// Params resolves the configured sort and page size.
func (c AniListConfig) Params() (anilist.SortKey, anilist.PageSize, error) {
	sort, err := anilist.ParseSortKey(c.Sort)
	if err != nil {
		return 0, 0, err
	}
	size, err := anilist.ParsePageSize(c.PerPage)
	if err != nil {
		return 0, 0, err
	}
	return sort, size, nil
}

func (c AniListConfig) NewClient() *anilist.Client {
	client := anilist.NewClient(c.Endpoint, c.Timeout)
	client.Normalizer.SkipInvalid = c.SkipInvalid
	return client
}

func (c AuthConfig) Tokens() auth.TokenService {
	return auth.TokenService{
		Secret:   []byte(c.JWTSecret),
		Issuer:   c.JWTIssuer,
		Duration: c.JWTTTL,
	}
}

// DefaultConfig reproduces the reference run: popularity sort, page 3,
// large pages, written to anime.csv.
func DefaultConfig() Config {
	logDefaults := logging.DefaultConfig()
	return Config{
		AniList: AniListConfig{
			Endpoint: anilist.DefaultEndpoint,
			Sort:     "popularity",
			Page:     3,
			PerPage:  "large",
			Timeout:  12 * time.Second,
		},
		Export: ExportConfig{
			Out: "anime.csv",
		},
		Database: DatabaseConfig{
			Path: database.DefaultConfig().Path,
		},
		Server: ServerConfig{
			HTTPAddr:       ":8080",
			TCPAddr:        ":7070",
			TrustedProxies: []string{"127.0.0.1"},
		},
		Auth: AuthConfig{
			// dev default (change for deployments)
			JWTSecret: "dev-secret-change-me",
			JWTIssuer: "anihub",
			JWTTTL:    24 * time.Hour,
		},
		Log: LogConfig{
			Level:      logDefaults.Level,
			Format:     logDefaults.Format,
			MaxSizeMB:  logDefaults.MaxSizeMB,
			MaxBackups: logDefaults.MaxBackups,
			MaxAgeDays: logDefaults.MaxAgeDays,
		},
	}
}

// Load layers defaults, an optional YAML file and ANIHUB_* environment
// variables, then validates the result.
func Load() (Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit YAML path ("" skips the file layer).
func LoadFile(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envTransform), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.AniList.Sort = strings.ToLower(strings.TrimSpace(cfg.AniList.Sort))
	cfg.AniList.PerPage = strings.ToLower(strings.TrimSpace(cfg.AniList.PerPage))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func findConfigFile() string {
	if p := strings.TrimSpace(os.Getenv(ConfigPathEnv)); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransform maps ANIHUB_ANILIST_SKIP_INVALID to anilist.skip_invalid:
// the first segment is the section, the rest is the key.
// ANIHUB_DB_PATH is kept as a shorthand for database.path.
func envTransform(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	switch key {
	case "config":
		return "", nil
	case "db_path":
		return "database.path", value
	}

	parts := strings.SplitN(key, "_", 2)
	if len(parts) != 2 {
		return "", nil
	}
	path := parts[0] + "." + parts[1]

	if path == "server.trusted_proxies" {
		var out []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return path, out
	}
	return path, value
}
