package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/veildex/match-engine/config"
	"github.com/veildex/match-engine/engine"
	"github.com/veildex/match-engine/publish"
	"github.com/veildex/match-engine/store"
	utils "github.com/veildex/match-engine/utils/viper"
	"github.com/veildex/match-engine/version"
)

var RootCmd = &cobra.Command{
	Use:   "match-engine",
	Short: "Confidential batch matching engine",
	Long:  `Batch order-matching and commitment engine: matches one round of decrypted limit orders, commits the trades under a Merkle root and signs each leaf for on-chain settlement.`,
	Run: func(cmd *cobra.Command, args []string) {
		// If no arguments are provided, print usage information
		if len(args) == 0 {
			if err := cmd.Usage(); err != nil {
				log.Fatalf("Error printing usage: %v", err)
			}
		}
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the engine",
	Long:  `Initialize the engine by generating a config file with default values.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Config{}
		if err := viper.Unmarshal(&cfg); err != nil {
			log.Fatalf("failed to unmarshal config: %v", err)
		}

		if _, err := os.Stat(cfg.DataDir); os.IsNotExist(err) {
			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				log.Fatalf("failed to create data directory: %v", err)
			}
		}

		if err := viper.WriteConfigAs(config.CfgFile); err != nil {
			log.Fatalf("failed to write config file: %v", err)
		}

		fmt.Printf("Config file created: %s\n", config.CfgFile)
		fmt.Println()
		fmt.Println("Edit the config file to set the correct values for your environment.")
	},
}

var runCmd = &cobra.Command{
	Use:   "run [payload-file]",
	Short: "Run one matching round",
	Long:  `Run one matching round over the decrypted intent payload, write the round artifact and print its path.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		viper.AutomaticEnv()

		if err := viper.ReadInConfig(); err == nil {
			fmt.Println("Using config file:", viper.ConfigFileUsed())
		}

		cfg := config.Config{}
		if err := viper.Unmarshal(&cfg); err != nil {
			log.Fatalf("failed to unmarshal config: %v", err)
		}

		logger, err := buildLogger(cfg.LogLevel)
		if err != nil {
			log.Fatalf("failed to build logger: %v", err)
		}

		// Ensure all logs are written
		defer logger.Sync() // nolint: errcheck

		if err := runRound(cmd.Context(), cfg, args[0], logger); err != nil {
			logger.Error("round failed", zap.Error(err))
			os.Exit(1)
		}
	},
}

func runRound(ctx context.Context, cfg config.Config, payloadFile string, logger *zap.Logger) error {
	st, err := store.New(cfg.DataDir, logger)
	if err != nil {
		return fmt.Errorf("failed to open artifact store: %w", err)
	}

	slacker := engine.NewSlacker(cfg.Slack, logger)

	failed := func(roundID string, runErr error) error {
		art := engine.NewErrorArtifact(roundID, runErr)
		if path, serr := st.SaveError(art); serr != nil {
			logger.Error("failed to write error artifact", zap.Error(serr))
		} else {
			fmt.Println(path)
		}
		slacker.AlertRoundFailed(ctx, roundID, runErr)
		return runErr
	}

	data, err := os.ReadFile(payloadFile)
	if err != nil {
		return failed("", fmt.Errorf("failed to read payload: %w", err))
	}

	payload, err := engine.ParseRoundPayload(data)
	if err != nil {
		return failed("", err)
	}

	key, err := engine.LoadSignerKey(cfg.Engine.SignerKeyHex, cfg.Engine.SignerKeyFile)
	if err != nil {
		logger.Warn("running unsigned: batch will be diagnostic-only", zap.Error(err))
	}

	eng := engine.New(cfg.Engine, key, logger)
	if addr, ok := eng.SignerAddress(); ok {
		logger.Info("signing enabled", zap.String("signer", addr.Hex()))
	}

	now := time.Now().Unix()
	if payload.Now != nil {
		now = *payload.Now
	}

	res, err := eng.Run(payload.Args(cfg.Engine.RequireCommitments, now), payload.Intents)
	if err != nil {
		return failed(payload.RoundID, err)
	}

	path, err := st.SaveResult(res)
	if err != nil {
		return failed(payload.RoundID, fmt.Errorf("failed to store result: %w", err))
	}
	fmt.Println(path)

	if cfg.Publisher.Enabled {
		pub := publish.New(cfg.Publisher, logger)
		defer pub.Close() // nolint: errcheck

		raw, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("failed to marshal result for publishing: %w", err)
		}
		if err := pub.PublishResult(ctx, res.RoundID, raw); err != nil {
			// The artifact is already on disk; the relayer can still pull it.
			logger.Warn("failed to publish result", zap.Error(err))
		}
	}

	return nil
}

func buildLogger(logLevel string) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.Set(logLevel); err != nil {
		return nil, fmt.Errorf("failed to set log level: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger := zap.New(zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.Lock(os.Stdout),
		level,
	))

	return logger, nil
}

var slippageCmd = &cobra.Command{
	Use:   "slippage [bps]",
	Short: "set the minimum-out slippage floor",
	Long:  `Set the basis points applied to every emitted minAmountOut (floor, out of 10000).`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		bps, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || bps <= 0 || bps > 10000 {
			log.Fatalf("invalid bps value: %s", args[0])
		}

		home, err := homedir.Dir()
		if err != nil {
			log.Fatalf("failed to get home directory: %v", err)
		}

		config.CfgFile = home + "/.match-engine/config.yaml"

		viper.SetConfigFile(config.CfgFile)
		if err := viper.ReadInConfig(); err != nil {
			log.Fatalf("failed to read config file: %v", err)
		}

		if err := utils.UpdateViperConfig("engine.min_out_bps", bps, viper.ConfigFileUsed()); err != nil {
			log.Fatalf("failed to update config: %v", err)
		}

		fmt.Printf("min_out_bps set to %d\n", bps)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of match-engine",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.BuildVersion)
	},
}

func init() {
	RootCmd.CompletionOptions.DisableDefaultCmd = true
	cobra.OnInitialize(config.InitConfig)

	RootCmd.PersistentFlags().StringVar(&config.CfgFile, "config", "", "config file")

	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(slippageCmd)
	RootCmd.AddCommand(versionCmd)
}
