package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode        string        `mapstructure:"mode"`
	ConsolePort int           `mapstructure:"console_port"`
	APIBase     string        `mapstructure:"api_base"`
	MediaWS     string        `mapstructure:"media_ws"`
	ShareBase   string        `mapstructure:"share_base"`
	StoragePath string        `mapstructure:"storage_path"`
	Secret      string        `mapstructure:"secret"`
	AudioFile   string        `mapstructure:"audio_file"`
	VideoFile   string        `mapstructure:"video_file"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("console_port", 8080)
	v.SetDefault("api_base", "http://localhost:3000/api")
	v.SetDefault("media_ws", "ws://localhost:7880")
	v.SetDefault("share_base", "http://localhost:8080/")
	v.SetDefault("storage_path", "./data")
	v.SetDefault("http_timeout", "15s")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Console: %d | API: %s\n", cfg.Mode, cfg.ConsolePort, cfg.APIBase)
	return &cfg, nil
}
