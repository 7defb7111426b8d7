package config

import (
	"log"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

type Config struct {
	DataDir string `mapstructure:"data_dir"`

	Engine    EngineConfig    `mapstructure:"engine"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Slack     SlackConfig     `mapstructure:"slack"`

	LogLevel string `mapstructure:"log_level"`
}

type EngineConfig struct {
	SignerKeyFile      string `mapstructure:"signer_key_file"`
	SignerKeyHex       string `mapstructure:"signer_key_hex"`
	MinOutBps          int64  `mapstructure:"min_out_bps"`
	RequireCommitments bool   `mapstructure:"require_commitments"`
}

type PublisherConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type SlackConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	AppToken  string `mapstructure:"app_token"`
	ChannelID string `mapstructure:"channel_id"`
}

var CfgFile string

const (
	defaultLogLevel = "info"

	// DefaultMinOutBps is the slippage floor applied to every emitted
	// minAmountOut: floor(nominal * bps / 10000).
	DefaultMinOutBps = 9950

	defaultPublisherTopic = "round-results"
)

func InitConfig() {
	// Find home directory.
	home, err := homedir.Dir()
	if err != nil {
		log.Fatalf("failed to get home directory: %v", err)
	}
	defaultHomeDir := home + "/.match-engine"
	if CfgFile == "" {
		CfgFile = defaultHomeDir + "/config.yaml"
	}

	viper.SetDefault("log_level", defaultLogLevel)
	viper.SetDefault("data_dir", defaultHomeDir+"/rounds")

	viper.SetDefault("engine.min_out_bps", DefaultMinOutBps)
	viper.SetDefault("engine.require_commitments", false)
	viper.SetDefault("engine.signer_key_file", defaultHomeDir+"/signer.key")

	viper.SetDefault("publisher.enabled", false)
	viper.SetDefault("publisher.brokers", []string{"localhost:9092"})
	viper.SetDefault("publisher.topic", defaultPublisherTopic)

	viper.SetDefault("slack.enabled", false)
	viper.SetDefault("slack.app_token", "<your-slack-app-token>")
	viper.SetDefault("slack.channel_id", "round-alerts")

	viper.SetConfigFile(CfgFile)
}
