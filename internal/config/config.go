package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultLibraryDirName = ".shoebox"
	DefaultLogLevel       = "info"

	DefaultWriterQueueCapacity   = 1024
	DefaultArtifactWorkers       = 4
	DefaultArtifactQueueCapacity = 256
	DefaultThumbnailMaxEdge      = 256
	DefaultTextMaxBytes          = 64 * 1024
	DefaultMaxImagePixels        = 40_000_000
	DefaultWatchDebounceMS       = 500

	configFileName  = ".shoebox.toml"
	configDirEnvKey = "SHOEBOX_CONFIG_DIR"

	libraryEnvKey      = "SHOEBOX_LIBRARY"
	logLevelEnvKey     = "SHOEBOX_LOG_LEVEL"
	allowedRootsEnvKey = "SHOEBOX_ALLOWED_ROOTS"
	workersEnvKey      = "SHOEBOX_WORKERS"
)

// WriterConfig tunes the write coordinator.
type WriterConfig struct {
	QueueCapacity int `toml:"queue_capacity"`
}

// ArtifactConfig tunes thumbnail and text generation.
type ArtifactConfig struct {
	Workers          int `toml:"workers"`
	QueueCapacity    int `toml:"queue_capacity"`
	ThumbnailMaxEdge int `toml:"thumbnail_max_edge"`
	TextMaxBytes     int `toml:"text_max_bytes"`
	MaxImagePixels   int `toml:"max_image_pixels"`
}

// WatchConfig lists drop folders imported by `shoebox watch`.
type WatchConfig struct {
	Folders    []string `toml:"folders"`
	Group      string   `toml:"group"`
	DebounceMS int      `toml:"debounce_ms"`
}

// SearchConfig controls the full-text index.
type SearchConfig struct {
	Enabled bool `toml:"enabled"`
}

// Config defines runtime configuration for shoebox.
type Config struct {
	LibraryPath  string         `toml:"library_path"`
	LogLevel     string         `toml:"log_level"`
	AllowedRoots []string       `toml:"allowed_roots"`
	Writer       WriterConfig   `toml:"writer"`
	Artifacts    ArtifactConfig `toml:"artifacts"`
	Watch        WatchConfig    `toml:"watch"`
	Search       SearchConfig   `toml:"search"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		LibraryPath: "",
		LogLevel:    DefaultLogLevel,
		Writer: WriterConfig{
			QueueCapacity: DefaultWriterQueueCapacity,
		},
		Artifacts: ArtifactConfig{
			Workers:          DefaultArtifactWorkers,
			QueueCapacity:    DefaultArtifactQueueCapacity,
			ThumbnailMaxEdge: DefaultThumbnailMaxEdge,
			TextMaxBytes:     DefaultTextMaxBytes,
			MaxImagePixels:   DefaultMaxImagePixels,
		},
		Watch: WatchConfig{
			DebounceMS: DefaultWatchDebounceMS,
		},
		Search: SearchConfig{
			Enabled: true,
		},
	}
}

// DBPath is the SQLite catalog inside the library directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.LibraryPath, "library.db")
}

// ArtifactsPath is the content-addressed artifact store root.
func (c *Config) ArtifactsPath() string {
	return filepath.Join(c.LibraryPath, "artifacts")
}

// IndexPath is the bleve index directory.
func (c *Config) IndexPath() string {
	return filepath.Join(c.LibraryPath, "search.bleve")
}

func loadFile(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

var allowedKeys = []string{
	"library_path",
	"log_level",
	"allowed_roots",
	"writer.queue_capacity",
	"artifacts.workers",
	"artifacts.queue_capacity",
	"artifacts.thumbnail_max_edge",
	"artifacts.text_max_bytes",
	"artifacts.max_image_pixels",
	"watch.folders",
	"watch.group",
	"watch.debounce_ms",
	"search.enabled",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "library_path":
		return c.LibraryPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "allowed_roots":
		return strings.Join(c.AllowedRoots, ","), nil
	case "writer.queue_capacity":
		return strconv.Itoa(c.Writer.QueueCapacity), nil
	case "artifacts.workers":
		return strconv.Itoa(c.Artifacts.Workers), nil
	case "artifacts.queue_capacity":
		return strconv.Itoa(c.Artifacts.QueueCapacity), nil
	case "artifacts.thumbnail_max_edge":
		return strconv.Itoa(c.Artifacts.ThumbnailMaxEdge), nil
	case "artifacts.text_max_bytes":
		return strconv.Itoa(c.Artifacts.TextMaxBytes), nil
	case "artifacts.max_image_pixels":
		return strconv.Itoa(c.Artifacts.MaxImagePixels), nil
	case "watch.folders":
		return strings.Join(c.Watch.Folders, ","), nil
	case "watch.group":
		return c.Watch.Group, nil
	case "watch.debounce_ms":
		return strconv.Itoa(c.Watch.DebounceMS), nil
	case "search.enabled":
		return strconv.FormatBool(c.Search.Enabled), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// Path returns the path of the config file.
func Path() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(configDirEnvKey)); dir != "" {
		return filepath.Join(dir, configFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads the config file and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	path, err := Path()
	if err == nil {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if raw := strings.TrimSpace(os.Getenv(libraryEnvKey)); raw != "" {
		cfg.LibraryPath = raw
	}
	if raw := strings.TrimSpace(os.Getenv(logLevelEnvKey)); raw != "" {
		cfg.LogLevel = raw
	}
	if raw := strings.TrimSpace(os.Getenv(allowedRootsEnvKey)); raw != "" {
		cfg.AllowedRoots = splitList(raw)
	}
	if raw := strings.TrimSpace(os.Getenv(workersEnvKey)); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			cfg.Artifacts.Workers = parsed
		}
	}

	if cfg.LibraryPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.LibraryPath = filepath.Join(home, DefaultLibraryDirName)
		} else if cwd, err := os.Getwd(); err == nil {
			cfg.LibraryPath = filepath.Join(cwd, DefaultLibraryDirName)
		}
	}

	cfg.normalizeDefaults()

	return &cfg, nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "writer.queue_capacity", "artifacts.workers", "artifacts.queue_capacity",
		"artifacts.thumbnail_max_edge", "artifacts.text_max_bytes", "artifacts.max_image_pixels",
		"watch.debounce_ms":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return int64(parsed), nil
	case "search.enabled":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	case "allowed_roots", "watch.folders":
		return splitList(value), nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

// splitList accepts comma or path-list separated values.
func splitList(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == os.PathListSeparator
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (c *Config) normalizeDefaults() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Writer.QueueCapacity <= 0 {
		c.Writer.QueueCapacity = DefaultWriterQueueCapacity
	}
	if c.Artifacts.Workers <= 0 {
		c.Artifacts.Workers = DefaultArtifactWorkers
	}
	if c.Artifacts.QueueCapacity <= 0 {
		c.Artifacts.QueueCapacity = DefaultArtifactQueueCapacity
	}
	if c.Artifacts.ThumbnailMaxEdge <= 0 {
		c.Artifacts.ThumbnailMaxEdge = DefaultThumbnailMaxEdge
	}
	if c.Artifacts.TextMaxBytes <= 0 {
		c.Artifacts.TextMaxBytes = DefaultTextMaxBytes
	}
	if c.Artifacts.MaxImagePixels <= 0 {
		c.Artifacts.MaxImagePixels = DefaultMaxImagePixels
	}
	if c.Watch.DebounceMS <= 0 {
		c.Watch.DebounceMS = DefaultWatchDebounceMS
	}
}
