// Package config provides application configuration management backed by viper.
//
// Values are resolved with the following precedence:
//  1. Command-line flags (highest priority).
//  2. Environment variables (RACINGNOTES_ prefix, dots become underscores).
//  3. YAML config file.
//  4. Default values (lowest priority).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "RACINGNOTES"

// Storage backends.
const (
	BackendLocal = "local"
	BackendHTTP  = "http"
	BackendSFTP  = "sftp"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Media    MediaConfig
	Cache    CacheConfig
	Search   SearchConfig
	Share    ShareConfig
	Metrics  MetricsConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	DataDir     string // Root for the database, local bucket and search index
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host             string
	Port             int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration // Uploads transcode inline, so this is generous
	IdleTimeout      time.Duration
	AllowedOrigins   []string
	UploadsPerMinute int // per client IP; 0 disables limiting
	UploadBurst      int
}

// DatabaseConfig holds SQLite configuration.
type DatabaseConfig struct {
	Path string
}

// StorageConfig holds blob storage configuration.
type StorageConfig struct {
	Backend       string
	Bucket        string
	PublicBaseURL string
	Timeout       time.Duration
	SweepInterval time.Duration // 0 disables the background reconciliation sweep
	Local         LocalStorageConfig
	HTTP          HTTPStorageConfig
	SFTP          SFTPStorageConfig
}

// LocalStorageConfig configures the on-disk bucket.
type LocalStorageConfig struct {
	Path      string
	MinFreeMB int64
}

// HTTPStorageConfig configures an object-storage REST endpoint.
type HTTPStorageConfig struct {
	Endpoint string // e.g. https://project.supabase.co/storage/v1
	APIKey   string
}

// SFTPStorageConfig configures a remote directory reachable over SSH.
type SFTPStorageConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	KeyFile    string
	KnownHosts string // known_hosts file; empty skips host key verification
	Path       string
}

// MediaConfig holds validation and compression settings.
type MediaConfig struct {
	MaxUploadMB      int64
	FFmpegPath       string // empty means look up on PATH
	FFprobePath      string
	TranscodeTimeout time.Duration
	ImageQuality     int
	MaxWidth         int
	MaxHeight        int
	VideoMaxHeight   int
	VideoBitrateKbps int
}

// MaxUploadBytes returns the upload ceiling in bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	return m.MaxUploadMB * 1024 * 1024
}

// CacheConfig holds read cache TTLs.
type CacheConfig struct {
	FeedTTL      time.Duration
	ReferenceTTL time.Duration
}

// SearchConfig holds fuzzy search index configuration.
type SearchConfig struct {
	Path string
}

// ShareConfig holds share link configuration.
type ShareConfig struct {
	KeyHex string // 64 hex chars; generated into the data dir when empty
	TTL    time.Duration
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// flagBindings maps CLI flags to config keys.
var flagBindings = []struct {
	flag, key, usage string
}{
	{"env", "app.environment", "Environment (development, staging, production)"},
	{"data-dir", "app.data_dir", "Directory for database, media and search index"},
	{"log-level", "logger.level", "Log level (debug, info, warn, error)"},
	{"host", "server.host", "Listen host"},
	{"port", "server.port", "Listen port (default: 8080)"},
	{"db", "database.path", "SQLite database path"},
	{"storage-backend", "storage.backend", "Blob storage backend (local, http, sftp)"},
	{"public-base-url", "storage.public_base_url", "Base URL for public media links"},
	{"max-upload-mb", "media.max_upload_mb", "Maximum accepted upload size in MB (default: 100)"},
	{"ffmpeg-path", "media.ffmpeg_path", "Path to ffmpeg binary (default: auto-detect)"},
	{"ffprobe-path", "media.ffprobe_path", "Path to ffprobe binary (default: auto-detect)"},
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a YAML config file")
	for _, b := range flagBindings {
		fs.String(b.flag, "", b.usage)
	}
}

// Loader resolves configuration and keeps the viper instance for change notifications.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader with defaults, environment and flag bindings applied.
// fs may be nil when no flags are available (tests, seed tooling).
func NewLoader(fs *pflag.FlagSet) (*Loader, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for _, b := range flagBindings {
			f := fs.Lookup(b.flag)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(b.key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", b.flag, err)
			}
		}
	}

	configFile := ""
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
	}
	if configFile == "" {
		configFile = os.Getenv(EnvPrefix + "_CONFIG")
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("racingnotes")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".racingnotes"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return &Loader{v: v}, nil
}

// ConfigFile returns the config file in use, or "" when none was found.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Load builds and validates a Config from the current viper state.
func (l *Loader) Load() (*Config, error) {
	v := l.v
	cfg := &Config{
		App: AppConfig{
			Environment: v.GetString("app.environment"),
			DataDir:     v.GetString("app.data_dir"),
		},
		Logger: LoggerConfig{
			Level: v.GetString("logger.level"),
		},
		Server: ServerConfig{
			Host:             v.GetString("server.host"),
			Port:             v.GetInt("server.port"),
			ReadTimeout:      v.GetDuration("server.read_timeout"),
			WriteTimeout:     v.GetDuration("server.write_timeout"),
			IdleTimeout:      v.GetDuration("server.idle_timeout"),
			AllowedOrigins:   v.GetStringSlice("server.allowed_origins"),
			UploadsPerMinute: v.GetInt("server.uploads_per_minute"),
			UploadBurst:      v.GetInt("server.upload_burst"),
		},
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		Storage: StorageConfig{
			Backend:       strings.ToLower(v.GetString("storage.backend")),
			Bucket:        v.GetString("storage.bucket"),
			PublicBaseURL: strings.TrimRight(v.GetString("storage.public_base_url"), "/"),
			Timeout:       v.GetDuration("storage.timeout"),
			SweepInterval: v.GetDuration("storage.sweep_interval"),
			Local: LocalStorageConfig{
				Path:      v.GetString("storage.local.path"),
				MinFreeMB: v.GetInt64("storage.local.min_free_mb"),
			},
			HTTP: HTTPStorageConfig{
				Endpoint: strings.TrimRight(v.GetString("storage.http.endpoint"), "/"),
				APIKey:   v.GetString("storage.http.api_key"),
			},
			SFTP: SFTPStorageConfig{
				Host:       v.GetString("storage.sftp.host"),
				Port:       v.GetInt("storage.sftp.port"),
				Username:   v.GetString("storage.sftp.username"),
				Password:   v.GetString("storage.sftp.password"),
				KeyFile:    v.GetString("storage.sftp.key_file"),
				KnownHosts: v.GetString("storage.sftp.known_hosts"),
				Path:       v.GetString("storage.sftp.path"),
			},
		},
		Media: MediaConfig{
			MaxUploadMB:      v.GetInt64("media.max_upload_mb"),
			FFmpegPath:       v.GetString("media.ffmpeg_path"),
			FFprobePath:      v.GetString("media.ffprobe_path"),
			TranscodeTimeout: v.GetDuration("media.transcode_timeout"),
			ImageQuality:     v.GetInt("media.image_quality"),
			MaxWidth:         v.GetInt("media.max_width"),
			MaxHeight:        v.GetInt("media.max_height"),
			VideoMaxHeight:   v.GetInt("media.video_max_height"),
			VideoBitrateKbps: v.GetInt("media.video_bitrate_kbps"),
		},
		Cache: CacheConfig{
			FeedTTL:      v.GetDuration("cache.feed_ttl"),
			ReferenceTTL: v.GetDuration("cache.reference_ttl"),
		},
		Search: SearchConfig{
			Path: v.GetString("search.path"),
		},
		Share: ShareConfig{
			KeyHex: v.GetString("share.key"),
			TTL:    v.GetDuration("share.ttl"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
		},
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Watch reloads the configuration when the config file changes and hands the
// result to onChange. Invalid edits are reported through onError and ignored.
func (l *Loader) Watch(onChange func(*Config), onError func(error)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.Load()
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.data_dir", "")
	v.SetDefault("logger.level", "info")

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "15m")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.uploads_per_minute", 30)
	v.SetDefault("server.upload_burst", 5)

	v.SetDefault("database.path", "")

	v.SetDefault("storage.backend", BackendLocal)
	v.SetDefault("storage.bucket", "racing-notes-media")
	v.SetDefault("storage.public_base_url", "http://localhost:8080/media")
	v.SetDefault("storage.timeout", "2m")
	v.SetDefault("storage.sweep_interval", "0s")
	v.SetDefault("storage.local.path", "")
	v.SetDefault("storage.local.min_free_mb", 512)
	v.SetDefault("storage.sftp.port", 22)
	v.SetDefault("storage.sftp.path", "racing-notes")

	v.SetDefault("media.max_upload_mb", 100)
	v.SetDefault("media.transcode_timeout", "10m")
	v.SetDefault("media.image_quality", 85)
	v.SetDefault("media.max_width", 1920)
	v.SetDefault("media.max_height", 1080)
	v.SetDefault("media.video_max_height", 720)
	v.SetDefault("media.video_bitrate_kbps", 1000)

	v.SetDefault("cache.feed_ttl", "5m")
	v.SetDefault("cache.reference_ttl", "1h")

	v.SetDefault("search.path", "")

	v.SetDefault("share.key", "")
	v.SetDefault("share.ttl", "168h")

	v.SetDefault("metrics.enabled", true)
}

// Validate checks that all required config values are present and valid.
//
//nolint:gocyclo // Flat list of independent checks.
func (c *Config) Validate() error {
	validEnvs := []string{"development", "staging", "production"}
	if !slices.Contains(validEnvs, c.App.Environment) {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.Logger.Level)) {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Path == "" {
		return errors.New("database path cannot be empty after expansion")
	}

	switch c.Storage.Backend {
	case BackendLocal:
		if c.Storage.Local.Path == "" {
			return errors.New("storage.local.path cannot be empty after expansion")
		}
		if c.Storage.PublicBaseURL == "" {
			return errors.New("storage.public_base_url is required for the local backend")
		}
	case BackendHTTP:
		if c.Storage.HTTP.Endpoint == "" || c.Storage.HTTP.APIKey == "" {
			return errors.New("storage.http.endpoint and storage.http.api_key are required for the http backend")
		}
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the http backend")
		}
	case BackendSFTP:
		if c.Storage.SFTP.Host == "" || c.Storage.SFTP.Username == "" {
			return errors.New("storage.sftp.host and storage.sftp.username are required for the sftp backend")
		}
		if c.Storage.SFTP.Password == "" && c.Storage.SFTP.KeyFile == "" {
			return errors.New("storage.sftp needs a password or key_file")
		}
		if c.Storage.PublicBaseURL == "" {
			return errors.New("storage.public_base_url is required for the sftp backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %q (must be local, http, or sftp)", c.Storage.Backend)
	}

	if c.Media.MaxUploadMB <= 0 {
		return fmt.Errorf("media.max_upload_mb must be positive, got %d", c.Media.MaxUploadMB)
	}
	if c.Media.ImageQuality < 1 || c.Media.ImageQuality > 100 {
		return fmt.Errorf("media.image_quality must be between 1 and 100, got %d", c.Media.ImageQuality)
	}
	if c.Media.MaxWidth <= 0 || c.Media.MaxHeight <= 0 || c.Media.VideoMaxHeight <= 0 {
		return errors.New("media dimension ceilings must be positive")
	}
	if c.Media.VideoBitrateKbps <= 0 {
		return errors.New("media.video_bitrate_kbps must be positive")
	}
	if c.Media.TranscodeTimeout <= 0 {
		return errors.New("media.transcode_timeout must be positive")
	}

	if c.Cache.FeedTTL <= 0 || c.Cache.ReferenceTTL <= 0 {
		return errors.New("cache TTLs must be positive")
	}

	if c.Share.KeyHex != "" && len(c.Share.KeyHex) != 64 {
		return fmt.Errorf("share.key must be 64 hex characters, got %d", len(c.Share.KeyHex))
	}

	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is used as is.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandPaths resolves the data dir and every path derived from it.
func (c *Config) expandPaths() error {
	defaultDataDir := ".racingnotes"
	if homeDir, err := os.UserHomeDir(); err == nil {
		defaultDataDir = filepath.Join(homeDir, ".racingnotes")
	}

	var err error
	if c.App.DataDir, err = expandPath(c.App.DataDir, defaultDataDir); err != nil {
		return fmt.Errorf("invalid data dir: %w", err)
	}
	if c.Database.Path, err = expandPath(c.Database.Path, filepath.Join(c.App.DataDir, "racingnotes.db")); err != nil {
		return fmt.Errorf("invalid database path: %w", err)
	}
	if c.Storage.Local.Path, err = expandPath(c.Storage.Local.Path, filepath.Join(c.App.DataDir, "media")); err != nil {
		return fmt.Errorf("invalid local storage path: %w", err)
	}
	if c.Search.Path, err = expandPath(c.Search.Path, filepath.Join(c.App.DataDir, "search")); err != nil {
		return fmt.Errorf("invalid search path: %w", err)
	}
	if c.Storage.SFTP.KeyFile != "" {
		if c.Storage.SFTP.KeyFile, err = expandPath(c.Storage.SFTP.KeyFile, ""); err != nil {
			return fmt.Errorf("invalid sftp key file: %w", err)
		}
	}
	if c.Storage.SFTP.KnownHosts != "" {
		if c.Storage.SFTP.KnownHosts, err = expandPath(c.Storage.SFTP.KnownHosts, ""); err != nil {
			return fmt.Errorf("invalid sftp known_hosts file: %w", err)
		}
	}
	return nil
}
