package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application. Values are read by
// viper from a config file or environment variables; every field has a
// usable default, so a missing or broken config file is never fatal.
type Config struct {
	BadgerDBPath string `mapstructure:"BADGERDB_PATH"`
	LogLevel     string `mapstructure:"LOG_LEVEL"`

	// Gallery-dl invocation.
	GalleryDLCommand    string   `mapstructure:"GALLERY_DL_COMMAND"`
	GalleryDLArgs       []string `mapstructure:"GALLERY_DL_ARGS"`
	GalleryDLConfigFile string   `mapstructure:"GALLERY_DL_CONFIG_FILE"`
	DownloadDir         string   `mapstructure:"DOWNLOAD_DIR"`

	// Per-link resource ceilings. Zero disables a check.
	MaxImagesPerLink      int     `mapstructure:"MAX_IMAGES_PER_LINK"`
	MaxTimePerLinkSeconds int     `mapstructure:"MAX_TIME_PER_LINK_SECONDS"`
	MaxFileSizeMB         float64 `mapstructure:"MAX_FILE_SIZE_MB"`

	// LimitPolicy decides limit breaches when no interactive resolver is
	// wired: "continue" keeps going, anything else skips.
	LimitPolicy string `mapstructure:"LIMIT_POLICY"`

	// Optional Telegram completion notifications.
	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `mapstructure:"TELEGRAM_CHAT_ID"`
}

// LoadConfig reads configuration from file or environment variables. A
// missing or unparseable config file is logged and the defaults carry the
// run; each call works on its own viper instance.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("BADGERDB_PATH", "./badger_data")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("GALLERY_DL_COMMAND", "gallery-dl")
	v.SetDefault("GALLERY_DL_ARGS", []string{"--write-metadata"})
	v.SetDefault("GALLERY_DL_CONFIG_FILE", "")
	v.SetDefault("DOWNLOAD_DIR", "downloads")
	v.SetDefault("MAX_IMAGES_PER_LINK", 1000)
	v.SetDefault("MAX_TIME_PER_LINK_SECONDS", 3600)
	v.SetDefault("MAX_FILE_SIZE_MB", 500)
	v.SetDefault("LIMIT_POLICY", "skip")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logrus.WithError(err).Warn("Unreadable config file, continuing with defaults")
		}
	}

	err = v.Unmarshal(&config)
	if err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if config.GalleryDLCommand == "" {
		config.GalleryDLCommand = "gallery-dl"
	}
	if config.BadgerDBPath == "" {
		config.BadgerDBPath = "./badger_data"
	}

	return config, nil
}
