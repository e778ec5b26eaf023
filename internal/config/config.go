// Package config loads catset settings. Sources are layered, later ones
// winning: defaults, the config file, the environment (CATSET_*, with .env
// loaded first) and finally the command line flags.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/aretw0/catset/pkg/core"
)

// EnvPrefix prefixes every environment variable read by catset.
const EnvPrefix = "CATSET"

// FileName is the config file name looked up in the working directory,
// without extension.
const FileName = "catset"

// Config represents the structure of the configuration file.
type Config struct {
	Dataset    string        `mapstructure:"dataset"`
	AppendMode string        `mapstructure:"append_mode"`
	MaxRetries int           `mapstructure:"max_retries"`
	Lexer      string        `mapstructure:"lexer"`
	Store      StoreConfig   `mapstructure:"store"`
	Tagger     TaggerConfig  `mapstructure:"tagger"`
	Timeouts   TimeoutConfig `mapstructure:"timeouts"`
	Server     ServerConfig  `mapstructure:"server"`
}

type StoreConfig struct {
	Backend  string   `mapstructure:"backend"` // fs, memory, sqlite, postgres, s3
	Path     string   `mapstructure:"path"`
	Format   string   `mapstructure:"format"`
	Gitless  bool     `mapstructure:"gitless"`
	AutoInit bool     `mapstructure:"auto_init"`
	ReadOnly bool     `mapstructure:"read_only"`
	DSN      string   `mapstructure:"dsn"`
	S3       S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type TaggerConfig struct {
	Kind      string   `mapstructure:"kind"` // lexical, http, command, gemini
	URL       string   `mapstructure:"url"`
	Command   []string `mapstructure:"command"`
	Model     string   `mapstructure:"model"`
	APIKey    string   `mapstructure:"api_key"`
	CacheSize int      `mapstructure:"cache_size"`
}

type TimeoutConfig struct {
	Tagger time.Duration `mapstructure:"tagger"`
	Store  time.Duration `mapstructure:"store"`
	Lock   time.Duration `mapstructure:"lock"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Dataset:    core.DefaultDataset.String(),
	AppendMode: string(core.AppendAtomic),
	MaxRetries: core.DefaultMaxRetries,
	Lexer:      "java",
	Store: StoreConfig{
		Backend:  "fs",
		Path:     ".",
		Format:   "json",
		AutoInit: true,
		S3: S3Config{
			Region: "us-east-1",
			Bucket: "catset",
		},
	},
	Tagger: TaggerConfig{
		Kind:  "lexical",
		Model: "gemini-2.0-flash",
	},
	Timeouts: TimeoutConfig{
		Tagger: 30 * time.Second,
		Store:  10 * time.Second,
		Lock:   5 * time.Second,
	},
	Server: ServerConfig{
		Addr: ":8080",
	},
}

// Load builds the configuration. cfgFile may be empty, in which case
// catset.yaml or catset.json is looked up in cwd and its absence is not an
// error. cmd may be nil; otherwise its flags override every other source.
func Load(cmd *cobra.Command, cfgFile, cwd string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// A missing .env is the common case.
	_ = godotenv.Load(filepath.Join(cwd, ".env"))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(cwd)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	if cmd != nil {
		if err := bindFlags(v, cmd.Flags()); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that have a closed set of choices.
func (c *Config) Validate() error {
	if _, err := c.DatasetID(); err != nil {
		return err
	}
	if _, err := core.ParseAppendMode(c.AppendMode); err != nil {
		return err
	}
	switch c.Store.Backend {
	case "fs", "memory", "sqlite", "postgres", "s3":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Tagger.Kind {
	case "lexical", "http", "command", "gemini":
	default:
		return fmt.Errorf("unknown tagger %q", c.Tagger.Kind)
	}
	switch c.Lexer {
	case "java", "treesitter":
	default:
		return fmt.Errorf("unknown lexer %q", c.Lexer)
	}
	return nil
}

// DatasetID returns the configured dataset document.
func (c *Config) DatasetID() (core.DocumentID, error) {
	return core.ParseDocumentID(c.Dataset)
}

// setDefaults sets all default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig
	v.SetDefault("dataset", d.Dataset)
	v.SetDefault("append_mode", d.AppendMode)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("lexer", d.Lexer)

	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.format", d.Store.Format)
	v.SetDefault("store.gitless", d.Store.Gitless)
	v.SetDefault("store.auto_init", d.Store.AutoInit)
	v.SetDefault("store.read_only", d.Store.ReadOnly)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("store.s3.endpoint", d.Store.S3.Endpoint)
	v.SetDefault("store.s3.region", d.Store.S3.Region)
	v.SetDefault("store.s3.access_key", d.Store.S3.AccessKey)
	v.SetDefault("store.s3.secret_key", d.Store.S3.SecretKey)
	v.SetDefault("store.s3.bucket", d.Store.S3.Bucket)
	v.SetDefault("store.s3.prefix", d.Store.S3.Prefix)
	v.SetDefault("store.s3.use_ssl", d.Store.S3.UseSSL)

	v.SetDefault("tagger.kind", d.Tagger.Kind)
	v.SetDefault("tagger.url", d.Tagger.URL)
	v.SetDefault("tagger.command", d.Tagger.Command)
	v.SetDefault("tagger.model", d.Tagger.Model)
	v.SetDefault("tagger.api_key", d.Tagger.APIKey)
	v.SetDefault("tagger.cache_size", d.Tagger.CacheSize)

	v.SetDefault("timeouts.tagger", d.Timeouts.Tagger)
	v.SetDefault("timeouts.store", d.Timeouts.Store)
	v.SetDefault("timeouts.lock", d.Timeouts.Lock)

	v.SetDefault("server.addr", d.Server.Addr)
}

// bindEnv binds the well-known variables that do not follow the CATSET_ scheme.
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("tagger.api_key", EnvPrefix+"_TAGGER_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	_ = v.BindEnv("store.dsn", EnvPrefix+"_STORE_DSN", "DATABASE_URL")
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"dataset":        "dataset",
	"append-mode":    "append_mode",
	"max-retries":    "max_retries",
	"lexer":          "lexer",
	"store":          "store.backend",
	"path":           "store.path",
	"format":         "store.format",
	"gitless":        "store.gitless",
	"auto-init":      "store.auto_init",
	"read-only":      "store.read_only",
	"dsn":            "store.dsn",
	"tagger":         "tagger.kind",
	"tagger-url":     "tagger.url",
	"tagger-command": "tagger.command",
	"model":          "tagger.model",
	"cache-size":     "tagger.cache_size",
	"tagger-timeout": "timeouts.tagger",
	"store-timeout":  "timeouts.store",
	"addr":           "server.addr",
}

// bindFlags binds the CLI flags to configuration values. Flags that the
// command does not define are skipped.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// InitFlags registers the persistent flags of the root command. The returned
// pointer receives the --config value.
func InitFlags(rootCmd *cobra.Command) *string {
	d := DefaultConfig
	pf := rootCmd.PersistentFlags()

	cfgFile := pf.StringP("config", "c", "", "Path to a configuration file (JSON or YAML)")
	pf.String("dataset", d.Dataset, "Dataset document as collection/name")
	pf.String("append-mode", d.AppendMode, "Append strategy: atomic or legacy")
	pf.Int("max-retries", d.MaxRetries, "Conflict retries of an atomic append")
	pf.String("lexer", d.Lexer, "Lexer backend: java or treesitter")

	pf.String("store", d.Store.Backend, "Store backend: fs, memory, sqlite, postgres or s3")
	pf.String("path", d.Store.Path, "Root directory of the fs store")
	pf.String("format", d.Store.Format, "Document format of the fs store: json or yaml")
	pf.Bool("gitless", d.Store.Gitless, "Do not version the fs store with git")
	pf.Bool("auto-init", d.Store.AutoInit, "Create the store directory and git repository when missing")
	pf.Bool("read-only", d.Store.ReadOnly, "Reject every write")
	pf.String("dsn", d.Store.DSN, "Data source name of the sqlite or postgres store")

	pf.String("tagger", d.Tagger.Kind, "Tagger: lexical, http, command or gemini")
	pf.String("tagger-url", d.Tagger.URL, "Endpoint of the http tagger")
	pf.StringSlice("tagger-command", d.Tagger.Command, "Program and arguments of the command tagger")
	pf.String("model", d.Tagger.Model, "Model of the gemini tagger")
	pf.Int("cache-size", d.Tagger.CacheSize, "Entries of the tag cache (0 disables it)")
	pf.Duration("tagger-timeout", d.Timeouts.Tagger, "Bound on a single tagger call (0 disables it)")
	pf.Duration("store-timeout", d.Timeouts.Store, "Bound on a single store call (0 disables it)")

	pf.String("addr", d.Server.Addr, "Listen address of the intake server")
	return cfgFile
}
