package main

import (
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/vorteil/flashtree/pkg/elog"
)

const configFileName = "flashtreectl.yaml"

// initConfig reads in a config file if one can be found, falling back to
// built-in defaults otherwise -- the partition bounds a fresh device is
// created with. The device's capacity follows from those bounds; the
// "capacity" default is not read by openOrCreateDevice.
func initConfig(cfgFile string, log elog.Logger) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := homedir.Dir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigName(strings.TrimSuffix(configFileName, ".yaml"))
	}

	if err := viper.ReadInConfig(); err == nil {
		log.Debugf("using config file: %s", viper.ConfigFileUsed())
	} else {
		log.Debugf("no config file found, using defaults: %v", err)
		viper.SetDefault("capacity", 256)
		viper.SetDefault("partition.start", 0)
		viper.SetDefault("partition.end", 255)
	}

	logrus.SetLevel(logrus.TraceLevel)
}
