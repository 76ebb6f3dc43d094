package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"lecture-rag/internal/config"
	"lecture-rag/internal/helper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the resolved configuration",
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration after defaults and environment overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", cfgFile)
		return helper.PrettyPrintTo(cmd.OutOrStdout(), redacted(cfg))
	},
}

func init() {
	configCmd.AddCommand(showConfigCmd)
	rootCmd.AddCommand(configCmd)
}

// redacted returns a copy of c with secrets masked.
func redacted(c *config.Config) config.Config {
	out := *c
	out.LLM.Key = mask(out.LLM.Key)
	out.EmbedLLM.Key = mask(out.EmbedLLM.Key)
	out.RAG.EncryptionKey = mask(out.RAG.EncryptionKey)
	out.MetadataStore.Password = mask(out.MetadataStore.Password)
	return out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
