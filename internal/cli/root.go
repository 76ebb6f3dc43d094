package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lecture-rag/internal/config"
	"lecture-rag/internal/helper"
)

const (
	defaultConfigPath = "./configs/config.yaml"
	envPrefix         = "LECTURERAG"
)

var (
	cfgFile string
	debug   bool

	// cfg is the resolved configuration, populated before any subcommand runs
	cfg *config.Config

	// logCloser releases the log file opened by the chat command
	logCloser io.Closer
)

// envKeys are the config keys that may come from the environment without
// being present in the YAML file.
var envKeys = []string{
	"llm.provider",
	"llm.base_url",
	"llm.key",
	"llm.model",
	"embed_llm.provider",
	"embed_llm.base_url",
	"embed_llm.key",
	"embed_llm.model",
	"rag.encryption_key",
	"vector_store.backend",
	"vector_store.dsn",
	"metadata_store.backend",
	"metadata_store.dsn",
	"metadata_store.password",
	"logging.level",
	"logging.file",
}

var rootCmd = &cobra.Command{
	Use:   "lecturerag",
	Short: "Ask questions about lecture slides, answered from their text and images",
	Long: `lecturerag indexes lecture PDFs and their extracted images, then answers
questions with a language model grounded on the retrieved passages and figures.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		if cmd.Name() == chatCmd.Name() {
			// the TUI owns the terminal; logs go to a file
			return nil
		}
		return setupLogging(cfg.Logging.Level, "")
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigPath, "config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	// API keys usually live in .env
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range envKeys {
		_ = viper.BindEnv(key)
	}
}

// loadConfig reads the YAML file, then overlays environment variables and
// flags bound through viper.
func loadConfig() error {
	c, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := overlay(viper.GetViper(), c); err != nil {
		return err
	}
	if viper.GetBool("debug") {
		c.Logging.Level = "debug"
		c.MetadataStore.Debug = true
	}
	cfg = c
	return nil
}

// overlay decodes every key viper holds a value for onto c and re-validates.
func overlay(v *viper.Viper, c *config.Config) error {
	if err := v.Unmarshal(c); err != nil {
		return fmt.Errorf("applying environment overrides: %w", err)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func setupLogging(level, file string) error {
	closer, err := helper.SetupLogger(level, file)
	if err != nil {
		return fmt.Errorf("setting up logger: %w", err)
	}
	logCloser = closer
	log.Debug().Str("config", cfgFile).Msg("Configuration loaded")
	return nil
}
