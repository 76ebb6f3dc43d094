package cli

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"lecture-rag/internal/session"
	"lecture-rag/internal/tui"
)

const defaultChatLog = "./lecturerag.log"

var historyFile string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		logFile := cfg.Logging.File
		if logFile == "" {
			logFile = defaultChatLog
		}
		if err := setupLogging(cfg.Logging.Level, logFile); err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		comps, err := newComponents(ctx, cfg)
		if err != nil {
			return err
		}
		defer comps.Close()

		pipeline, err := comps.newPipeline(ctx)
		if err != nil {
			return err
		}

		s, err := openSession(pipeline, historyFile)
		if err != nil {
			return err
		}
		log.Info().Str("session", s.ID()).Msg("Chat session started")

		p := tea.NewProgram(tui.New(ctx, s), tea.WithAltScreen(), tea.WithContext(ctx))
		_, runErr := p.Run()
		// stop a turn still in flight
		cancel()

		if historyFile != "" {
			if err := s.SaveFile(historyFile); err != nil {
				log.Error().Err(err).Str("file", historyFile).Msg("Failed to save chat history")
			}
		}
		return runErr
	},
}

func init() {
	chatCmd.Flags().StringVar(&historyFile, "history", "", "load the conversation from this file and save it on exit")
	rootCmd.AddCommand(chatCmd)
}

// openSession resumes the conversation stored at path, or starts a new one
// when there is none.
func openSession(pipeline session.Pipeline, path string) (*session.Session, error) {
	if path == "" {
		return session.New(pipeline), nil
	}
	s, err := session.LoadFile(path, pipeline)
	if errors.Is(err, os.ErrNotExist) {
		return session.New(pipeline), nil
	}
	return s, err
}
