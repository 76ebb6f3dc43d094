package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"lecture-rag/internal/chromemdb"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Export or import the vector collections as an encrypted file",
	Long: `Snapshots hold the text and image collections of the chromem store,
encrypted with rag.encryption_key (LECTURERAG_RAG_ENCRYPTION_KEY).`,
}

var snapshotExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the collections to an encrypted snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openVectors()
		if err != nil {
			return err
		}
		if err := m.Export(args[0], snapshotCollections()...); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), savedText("exported"), args[0])
		return nil
	},
}

var snapshotImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load the collections from an encrypted snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openVectors()
		if err != nil {
			return err
		}
		if err := m.Import(args[0], snapshotCollections()...); err != nil {
			return err
		}
		for _, name := range snapshotCollections() {
			n, err := m.Count(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d documents\n", savedText("imported"), name, n)
		}
		return nil
	},
}

func init() {
	snapshotCmd.AddCommand(snapshotExportCmd, snapshotImportCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func openVectors() (*chromemdb.VectorDBManager, error) {
	return chromemdb.NewVectorDBManager(cfg.VectorStore.Path, cfg.VectorStore.InMemory, cfg.VectorStore.Compress, cfg.RAG.EncryptionKey)
}

func snapshotCollections() []string {
	return []string{cfg.VectorStore.TextCollection, cfg.VectorStore.ImageCollection}
}
