package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration.
type Config struct {
	Interface         string        `toml:"interface"`
	Addr              string        `toml:"addr"`
	GRPCAddr          string        `toml:"grpc_addr"`
	PortalHost        string        `toml:"portal_host"`
	DBPath            string        `toml:"db"`
	HandshakeDir      string        `toml:"handshake_dir"`
	DictionaryPath    string        `toml:"dictionary"`
	ImportDictionary  string        `toml:"import_dictionary"`
	ScanChannels      []int         `toml:"scan_channels"`
	BroadcastChannels []int         `toml:"broadcast_channels"`
	Operator          string        `toml:"operator"`
	PasswordHash      string        `toml:"password_hash"`
	TickInterval      time.Duration `toml:"tick_interval"`
	PushInterval      time.Duration `toml:"push_interval"`
	Seed              int64         `toml:"seed"`
	MockMode          bool          `toml:"mock"`
	Debug             bool          `toml:"debug"`

	// ConfigFile is the TOML file that was applied, if any.
	ConfigFile string `toml:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	dataDir := getDataDir()
	return &Config{
		Interface:    "wlan0",
		Addr:         "127.0.0.1:8080",
		GRPCAddr:     "127.0.0.1:9000",
		PortalHost:   "0.0.0.0",
		DBPath:       filepath.Join(dataDir, "wkarma.db"),
		HandshakeDir: filepath.Join(dataDir, "handshakes"),
		Operator:     "operator",
		TickInterval: 20 * time.Millisecond,
		PushInterval: time.Second,
	}
}

// Load builds the configuration from, in increasing precedence: defaults,
// the TOML file named by -config or WKARMA_CONFIG, WKARMA_* environment
// variables, and command line flags.
func Load(args []string) (*Config, error) {
	cfg := Default()

	path := configPath(args)
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	scan := joinInts(cfg.ScanChannels)
	bcast := joinInts(cfg.BroadcastChannels)

	fs := flag.NewFlagSet("wkarma", flag.ContinueOnError)
	fs.String("config", path, "TOML configuration file")
	fs.StringVar(&cfg.Interface, "i", cfg.Interface, "Network interface in monitor mode")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "Operator API address")
	fs.StringVar(&cfg.GRPCAddr, "grpc", cfg.GRPCAddr, "gRPC health address (empty to disable)")
	fs.StringVar(&cfg.PortalHost, "portal-host", cfg.PortalHost, "Host the captive portals bind to (empty to disable listeners)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite credential database")
	fs.StringVar(&cfg.HandshakeDir, "handshakes", cfg.HandshakeDir, "Directory for handshake pcap files (empty to disable)")
	fs.StringVar(&cfg.DictionaryPath, "dict", cfg.DictionaryPath, "SSID dictionary, one per line, or a .db SSID table")
	fs.StringVar(&cfg.ImportDictionary, "import-dict", cfg.ImportDictionary, "Text SSID list to load into a .db dictionary before starting")
	fs.StringVar(&scan, "scan-channels", scan, "Comma separated passive scan channels")
	fs.StringVar(&bcast, "broadcast-channels", bcast, "Comma separated broadcast rotation channels")
	fs.StringVar(&cfg.Operator, "operator", cfg.Operator, "Operator user name for the API")
	fs.StringVar(&cfg.PasswordHash, "password-hash", cfg.PasswordHash, "bcrypt hash of the operator password")
	fs.DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "Engine tick interval")
	fs.DurationVar(&cfg.PushInterval, "push", cfg.PushInterval, "WebSocket stats push interval")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed (0 uses the clock)")
	fs.BoolVar(&cfg.MockMode, "mock", cfg.MockMode, "Run against a simulated radio")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable verbose debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var err error
	if cfg.ScanChannels, err = parseChannels(scan); err != nil {
		return nil, fmt.Errorf("scan channels: %w", err)
	}
	if cfg.BroadcastChannels, err = parseChannels(bcast); err != nil {
		return nil, fmt.Errorf("broadcast channels: %w", err)
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if !c.MockMode && c.Interface == "" {
		return fmt.Errorf("no network interface configured")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path is required")
	}
	if c.ImportDictionary != "" && !IsSQLDictionary(c.DictionaryPath) {
		return fmt.Errorf("-import-dict needs a .db dictionary, got %q", c.DictionaryPath)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Interface = getEnv("WKARMA_INTERFACE", c.Interface)
	c.Addr = getEnv("WKARMA_ADDR", c.Addr)
	c.GRPCAddr = getEnv("WKARMA_GRPC", c.GRPCAddr)
	c.PortalHost = getEnv("WKARMA_PORTAL_HOST", c.PortalHost)
	c.DBPath = getEnv("WKARMA_DB", c.DBPath)
	c.HandshakeDir = getEnv("WKARMA_HANDSHAKES", c.HandshakeDir)
	c.DictionaryPath = getEnv("WKARMA_DICT", c.DictionaryPath)
	c.Operator = getEnv("WKARMA_OPERATOR", c.Operator)
	c.PasswordHash = getEnv("WKARMA_PASSWORD_HASH", c.PasswordHash)
	c.MockMode = getEnvBool("WKARMA_MOCK", c.MockMode)
	c.Debug = getEnvBool("WKARMA_DEBUG", c.Debug)

	if v, ok := os.LookupEnv("WKARMA_SCAN_CHANNELS"); ok {
		chans, err := parseChannels(v)
		if err != nil {
			return fmt.Errorf("WKARMA_SCAN_CHANNELS: %w", err)
		}
		c.ScanChannels = chans
	}
	if v, ok := os.LookupEnv("WKARMA_TICK"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("WKARMA_TICK: %w", err)
		}
		c.TickInterval = d
	}
	return nil
}

// IsSQLDictionary reports whether path names an SQLite SSID table rather
// than a text list.
func IsSQLDictionary(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// configPath finds -config in args before the full flag set is built, so
// the file can seed the flag defaults.
func configPath(args []string) string {
	for i, a := range args {
		switch {
		case a == "-config" || a == "--config":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(a, "-config="):
			return strings.TrimPrefix(a, "-config=")
		case strings.HasPrefix(a, "--config="):
			return strings.TrimPrefix(a, "--config=")
		}
	}
	return os.Getenv("WKARMA_CONFIG")
}

func parseChannels(s string) ([]int, error) {
	var chans []int
	for _, p := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		ch, err := strconv.Atoi(trimmed)
		if err != nil || ch <= 0 || ch > 196 {
			return nil, fmt.Errorf("invalid channel %q", trimmed)
		}
		chans = append(chans, ch)
	}
	return chans, nil
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getDataDir returns ~/.wkarma, creating it if needed, or the working
// directory when the home directory is unusable.
func getDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: Could not get user home directory, using current dir: %v", err)
		return "."
	}

	dir := filepath.Join(home, ".wkarma")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("Warning: Could not create %s, using current dir: %v", dir, err)
		return "."
	}
	return dir
}
