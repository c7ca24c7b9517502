package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-embed/embedding"
)

func newCompareCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <a> <b>",
		Short: "Print the cosine similarity of two audio files",
		Long: `Print the cosine similarity and cosine distance of the embeddings of two
audio files. Identical timbre gives similarity 1 and distance 0.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupCLILogging(cmd)
			ctx := contextOrBackground(cmd)

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			extractor, err := newExtractor(cfg)
			if err != nil {
				return err
			}

			vectors := make([]embedding.Vector, len(args))
			for i, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				vectors[i], err = extractor.Extract(ctx, data, contentTypeFor(path))
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}

			similarity, err := embedding.Similarity(vectors[0], vectors[1])
			if err != nil {
				return err
			}
			distance, err := embedding.Distance(vectors[0], vectors[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "similarity: %.6f\n", similarity)
			fmt.Fprintf(out, "distance:   %.6f\n", distance)
			return nil
		},
	}
}
