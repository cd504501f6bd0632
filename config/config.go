// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// config loads the blockrepo-cli configuration from a YAML file and
// environment variables, in that increasing order of precedence
// (spec §2, ADDED Ambient stack).
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/bitmark-inc/logger"
)

// basic defaults; Database.Directory is relative to the current
// working directory unless overridden.
const (
	defaultDatabaseDirectory = "data"
	defaultDatabaseName      = "blockrepo.leveldb"

	defaultLogDirectory = "log"
	defaultLogFile      = "blockrepo.log"
	defaultLogCount     = 10
	defaultLogSize      = 1024 * 1024
)

// DatabaseConfiguration names the LevelDB directory the repository
// opens.
type DatabaseConfiguration struct {
	Directory string `mapstructure:"directory"`
	Name      string `mapstructure:"name"`
}

// Path returns the combined directory/name LevelDB path.
func (d DatabaseConfiguration) Path() string {
	return filepath.Join(d.Directory, d.Name)
}

// Configuration is the decoded blockrepo-cli configuration.
type Configuration struct {
	TxIndex  bool                  `mapstructure:"tx_index"`
	Database DatabaseConfiguration `mapstructure:"database"`
	Logging  logger.Configuration  `mapstructure:"logging"`
}

var defaultLogLevels = map[string]string{
	logger.DefaultTag: "info",
}

// Load reads configurationFile (if it exists) plus BLOCKREPO_*
// environment variables, overlaying them onto the package defaults.
// A missing configuration file is not an error; the defaults alone
// are a usable configuration.
func Load(configurationFile string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configurationFile)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BLOCKREPO")
	v.AutomaticEnv()

	v.SetDefault("tx_index", false)
	v.SetDefault("database.directory", defaultDatabaseDirectory)
	v.SetDefault("database.name", defaultDatabaseName)
	v.SetDefault("logging.directory", defaultLogDirectory)
	v.SetDefault("logging.file", defaultLogFile)
	v.SetDefault("logging.size", defaultLogSize)
	v.SetDefault("logging.count", defaultLogCount)
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.levels", defaultLogLevels)

	if _, err := os.Stat(configurationFile); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	c := &Configuration{}
	if err := v.Unmarshal(c); err != nil {
		return nil, err
	}
	return c, nil
}
