package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lecture-rag/internal/rag"
	"lecture-rag/internal/render"
	"lecture-rag/internal/session"
)

var (
	showSources   bool
	noImages      bool
	saveImagesDir string
)

var (
	headingText = color.New(color.FgCyan, color.Bold).SprintFunc()
	noticeText  = color.New(color.FgYellow).SprintFunc()
	savedText   = color.New(color.FgGreen).SprintFunc()
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question from the indexed lectures",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		comps, err := newComponents(ctx, cfg)
		if err != nil {
			return err
		}
		defer comps.Close()

		pipeline, err := comps.newPipeline(ctx)
		if err != nil {
			return err
		}

		s := session.New(pipeline)
		s.SetShowSources(showSources)
		s.SetIncludeImages(!noImages)
		return ask(ctx, cmd.OutOrStdout(), s, strings.Join(args, " "), saveImagesDir)
	},
}

func init() {
	askCmd.Flags().BoolVar(&showSources, "show-sources", false, "list the text passages the answer was grounded on")
	askCmd.Flags().BoolVar(&noImages, "no-images", false, "omit retrieved images from the output")
	askCmd.Flags().StringVar(&saveImagesDir, "save-images", "", "write retrieved images to this folder")
	rootCmd.AddCommand(askCmd)
}

// ask runs one turn on s and prints the rendered answer.
func ask(ctx context.Context, w io.Writer, s *session.Session, question, imageDir string) error {
	s.Focus()
	ans, err := s.Submit(ctx, question)
	if err != nil {
		return err
	}
	defer s.RenderComplete()

	fmt.Fprintln(w, headingText("Question:"), ans.OriginalQuery)
	fmt.Fprintln(w)
	fmt.Fprintln(w, headingText("Answer:"))
	fmt.Fprintln(w, render.Answer(ans, s.Settings()))
	if ans.Tier == rag.TierApology {
		fmt.Fprintln(w, noticeText("generation failed on every tier"))
	}

	if imageDir == "" || !s.Settings().IncludeImages || len(ans.ImageResults) == 0 {
		return nil
	}
	paths, err := render.SaveImages(imageDir, ans.ImageResults)
	for _, p := range paths {
		fmt.Fprintln(w, savedText("saved"), p)
	}
	return err
}
