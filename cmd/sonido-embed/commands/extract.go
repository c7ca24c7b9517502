package commands

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-embed/client"
	"github.com/RyanBlaney/sonido-embed/embedding"
)

func newExtractCmd(opts *rootOptions) *cobra.Command {
	var (
		asJSON  bool
		verbose bool
		remote  string
	)

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the embedding of an audio file",
		Long: `Print the embedding of an audio file.

By default the vector is printed on one line, space separated. With --json
the output is {"embedding": [...]}, or the full analysis with --verbose.
With --remote the file is sent to a running service instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupCLILogging(cmd)
			ctx := contextOrBackground(cmd)
			path := args[0]

			if remote != "" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()

				vector, err := client.New(remote, nil).Embed(ctx, filepath.Base(path), f)
				if err != nil {
					return err
				}
				return printVector(cmd, vector, asJSON)
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			extractor, err := newExtractor(cfg)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			analysis, err := extractor.Analyze(ctx, data, contentTypeFor(path))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			if verbose {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					File    string           `json:"file"`
					Version string           `json:"version"`
					Layout  embedding.Layout `json:"layout"`
					*embedding.Analysis
				}{path, extractor.Version(), extractor.Config().Layout(), analysis})
			}
			return printVector(cmd, analysis.Embedding, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "print frame count, statistics and layout as JSON")
	cmd.Flags().StringVar(&remote, "remote", "", "base URL of a running service, e.g. http://localhost:8000")

	return cmd
}

func printVector(cmd *cobra.Command, vector embedding.Vector, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		return json.NewEncoder(out).Encode(map[string]embedding.Vector{"embedding": vector})
	}

	parts := make([]string, len(vector))
	for i, v := range vector {
		parts[i] = strconv.FormatFloat(v, 'f', 6, 64)
	}
	_, err := fmt.Fprintln(out, strings.Join(parts, " "))
	return err
}

// contentTypeFor guesses a MIME type from the file extension; decoders only
// use it for logging
func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
