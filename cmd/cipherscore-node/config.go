package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cipherscore/cipherscore-node/internal"
)

const (
	defaultAPIHost         = "0.0.0.0"
	defaultAPIPort         = 9090
	defaultCooldownSeconds = 60
	defaultMaxTotal        = 2 << 24
	defaultLogLevel        = "info"
	defaultLogOutput       = "stdout"
	defaultDatadir         = ".cipherscore" // Will be prefixed with user's home directory
)

// Version is the build version, set at build time with -ldflags
var Version = internal.Version

// Config holds the application configuration
type Config struct {
	Node    NodeConfig
	API     APIConfig
	Log     LogConfig
	Datadir string
}

// NodeConfig holds the aggregation node configuration
type NodeConfig struct {
	Identity        string `mapstructure:"identity"`
	Administrator   string `mapstructure:"admin"`
	CooldownSeconds uint64 `mapstructure:"cooldown"`
	MaxTotal        uint64 `mapstructure:"maxtotal"`
}

// APIConfig holds the API-specific configuration
type APIConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Output string `mapstructure:"output"`
}

// loadConfig loads configuration from flags, environment variables, and defaults
func loadConfig() (*Config, error) {
	v := viper.New()

	// Get user's home directory for default datadir
	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		userHomeDir = "."
	}
	defaultDatadirPath := filepath.Join(userHomeDir, defaultDatadir)

	v.SetDefault("node.cooldown", defaultCooldownSeconds)
	v.SetDefault("node.maxtotal", defaultMaxTotal)
	v.SetDefault("api.host", defaultAPIHost)
	v.SetDefault("api.port", defaultAPIPort)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.output", defaultLogOutput)
	v.SetDefault("datadir", defaultDatadirPath)

	// Configure flags
	flag.StringP("node.identity", "i", "", "address identifying this node (required)")
	flag.StringP("node.admin", "m", "", "address of the initial administrator (required)")
	flag.Uint64P("node.cooldown", "c", defaultCooldownSeconds, "rate limiter cooldown in seconds")
	flag.Uint64("node.maxtotal", defaultMaxTotal, "inclusive upper bound for decrypted batch totals")
	flag.StringP("api.host", "a", defaultAPIHost, "API host")
	flag.IntP("api.port", "p", defaultAPIPort, "API port")
	flag.StringP("log.level", "l", defaultLogLevel, "log level (debug, info, warn, error)")
	flag.StringP("log.output", "o", defaultLogOutput, "log output (stdout, stderr or filepath)")
	flag.StringP("datadir", "d", defaultDatadirPath, "data directory for database files")

	// Configure usage information
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "cipherscore-node v%s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: cipherscore-node [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables are also available with the same name as flags,\n")
		fmt.Fprintf(os.Stderr, "  except for dashes (-) and dots (.) which are replaced by underscores (_).\n")
		fmt.Fprintf(os.Stderr, "  For example, CIPHERSCORE_NODE_ADMIN or CIPHERSCORE_API_HOST\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Start with default settings\n")
		fmt.Fprintf(os.Stderr, "  cipherscore-node --node.identity=0x123... --node.admin=0x456...\n\n")
		fmt.Fprintf(os.Stderr, "  # Start with a 5 minute cooldown on a custom port\n")
		fmt.Fprintf(os.Stderr, "  cipherscore-node --node.identity=0x123... --node.admin=0x456... --node.cooldown=300 --api.port=8080\n")
	}

	// Parse flags
	flag.CommandLine.SortFlags = false
	flag.Parse()

	// Configure Viper to use environment variables
	v.SetEnvPrefix("CIPHERSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind flags to Viper
	if err := v.BindPFlags(flag.CommandLine); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return cfg, nil
}

// validateConfig validates the loaded configuration
func validateConfig(cfg *Config) error {
	if cfg.Node.Identity == "" {
		return fmt.Errorf("node identity is required (use --node.identity flag or CIPHERSCORE_NODE_IDENTITY environment variable)")
	}
	if !common.IsHexAddress(cfg.Node.Identity) {
		return fmt.Errorf("invalid node identity address: %s", cfg.Node.Identity)
	}
	if cfg.Node.Administrator == "" {
		return fmt.Errorf("administrator is required (use --node.admin flag or CIPHERSCORE_NODE_ADMIN environment variable)")
	}
	if !common.IsHexAddress(cfg.Node.Administrator) {
		return fmt.Errorf("invalid administrator address: %s", cfg.Node.Administrator)
	}
	return nil
}
