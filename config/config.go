// Package config loads ViewDB settings from flags, VIEWDB_* environment
// variables, a viewdb.yaml file and built-in defaults, in that order of
// precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/nickyhof/ViewDB/core"
)

const (
	EnvPrefix = "VIEWDB"

	maxWalkDepth = 25
)

var configFileNames = []string{"viewdb.yaml", "viewdb.yml"}

// Config is the effective ViewDB configuration.
type Config struct {
	// BaseDir selects file persistence; empty keeps the catalog in memory.
	BaseDir       string       `mapstructure:"base_dir" yaml:"base_dir"`
	GitURL        string       `mapstructure:"git_url" yaml:"git_url"`
	DefaultSchema string       `mapstructure:"default_schema" yaml:"default_schema"`
	Author        AuthorConfig `mapstructure:"author" yaml:"author"`
	Log           LogConfig    `mapstructure:"log" yaml:"log"`
	S3            S3Config     `mapstructure:"s3" yaml:"s3"`
}

// AuthorConfig is the identity recorded on catalog commits.
type AuthorConfig struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Email string `mapstructure:"email" yaml:"email"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// S3Config holds credentials for s3:// export and import. Empty fields fall
// back to the default AWS configuration chain.
type S3Config struct {
	Region    string `mapstructure:"region" yaml:"region"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"dir":           "base_dir",
	"git-url":       "git_url",
	"schema":        "default_schema",
	"name":          "author.name",
	"email":         "author.email",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"s3-region":     "s3.region",
	"s3-endpoint":   "s3.endpoint",
	"s3-access-key": "s3.access_key",
	"s3-secret-key": "s3.secret_key",
}

// RegisterFlags adds the persistent flags that override configuration keys.
func RegisterFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file (default: viewdb.yaml in the current directory or a parent)")
	flags.String("dir", "", "base directory for file persistence; in-memory when empty")
	flags.String("git-url", "", "git URL to clone the catalog from")
	flags.String("schema", core.DefaultSchema, "default schema for new sessions")
	flags.String("name", "ViewDB", "author name for catalog commits")
	flags.String("email", "cli@viewdb.local", "author email for catalog commits")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text, json")
	flags.String("s3-region", "", "S3 region")
	flags.String("s3-endpoint", "", "custom S3-compatible endpoint")
	flags.String("s3-access-key", "", "S3 access key")
	flags.String("s3-secret-key", "", "S3 secret key")
}

// LoadConfig resolves the configuration with precedence
// flags > env > config file > defaults. cmd may be nil; only flags the user
// changed override lower layers. It returns the config file used, if any.
func LoadConfig(explicitPath string, cmd *cobra.Command) (*Config, string, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		for flagName, key := range flagKeys {
			flag := cmd.Flags().Lookup(flagName)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, "", fmt.Errorf("binding flag %s: %w", flagName, err)
			}
		}
	}

	configPath, err := findConfigFile(explicitPath)
	if err != nil {
		return nil, "", err
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.DefaultSchema == "" {
		cfg.DefaultSchema = core.DefaultSchema
	}

	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_dir", "")
	v.SetDefault("git_url", "")
	v.SetDefault("default_schema", core.DefaultSchema)

	v.SetDefault("author.name", "ViewDB")
	v.SetDefault("author.email", "cli@viewdb.local")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("s3.region", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
}

// findConfigFile returns explicitPath if it exists. Otherwise it walks up from
// the working directory looking for viewdb.yaml, stopping at a repository
// root. An empty result means defaults only.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range configFileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil
}

// Identity is the commit author for catalog sessions.
func (c *Config) Identity() core.Identity {
	return core.Identity{Name: c.Author.Name, Email: c.Author.Email}
}

// HasS3Credentials reports whether any S3 setting overrides the AWS defaults.
func (c *Config) HasS3Credentials() bool {
	return c.S3 != S3Config{}
}

// YAML renders the configuration with secrets masked.
func (c *Config) YAML() ([]byte, error) {
	masked := *c
	if masked.S3.SecretKey != "" {
		masked.S3.SecretKey = "****"
	}
	return yaml.Marshal(masked)
}
