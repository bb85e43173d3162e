// Package config loads connection settings for fluent tools from
// .fluent.yaml, FLUENT_* environment variables and .env files.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem config files are read from.
var AppFs = afero.NewOsFs()

// Config holds the connection settings.
type Config struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	LogSQL       bool
}

// Load loads the configuration, searching the current directory first.
func Load() (*Config, error) {
	return LoadDir(AppFs, ".")
}

// LoadDir loads the configuration from fs. FLUENT_* environment variables
// win over .fluent.yaml, which is searched in dir, $HOME and
// $HOME/.config/fluent. Variables in dir/.env.local override the
// environment; those in dir/.env only fill in unset ones. DATABASE_URL is
// used when no dsn is configured.
func LoadDir(fs afero.Fs, dir string) (*Config, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	if err := loadEnv(fs, filepath.Join(dir, ".env.local"), true); err != nil {
		return nil, err
	}
	if err := loadEnv(fs, filepath.Join(dir, ".env"), false); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigName(".fluent")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.AddConfigPath(home)
	v.AddConfigPath(filepath.Join(home, ".config", "fluent"))

	v.SetEnvPrefix("FLUENT")
	v.AutomaticEnv()

	v.SetDefault("driver", "postgres")
	v.SetDefault("max_open_conns", 0)
	v.SetDefault("log_sql", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{
		Driver:       v.GetString("driver"),
		DSN:          v.GetString("dsn"),
		MaxOpenConns: v.GetInt("max_open_conns"),
		LogSQL:       v.GetBool("log_sql"),
	}
	if cfg.DSN == "" {
		cfg.DSN = os.Getenv("DATABASE_URL")
	}
	return cfg, nil
}

// loadEnv sets the variables of a dotenv file. Variables already present
// in the environment are kept unless overload is true.
func loadEnv(fs afero.Fs, path string, overload bool) error {
	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	vars, err := godotenv.Parse(f)
	if err != nil {
		return err
	}
	for key, value := range vars {
		if _, ok := os.LookupEnv(key); ok && !overload {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}
