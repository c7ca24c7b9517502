package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-embed/transcode"
)

func newInfoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the embedding layout and decoder status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupCLILogging(cmd)

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			extractor, err := newExtractor(cfg)
			if err != nil {
				return err
			}

			effective := extractor.Config()
			layout := effective.Layout()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version:     %s\n", layout.Version)
			fmt.Fprintf(out, "dimension:   %d\n", layout.Dimension)
			fmt.Fprintf(out, "frame:       %d samples, hop %d, %s window @ %d Hz\n",
				effective.FrameSize, effective.HopSize, effective.Window, effective.SampleRate)
			fmt.Fprintf(out, "mfcc:        %d coefficients, %d mel filters, %.0f-%.0f Hz\n",
				effective.MFCC.NumCoefficients, effective.MFCC.NumMelFilters, effective.MFCC.LowFreq, effective.MFCC.HighFreq)
			fmt.Fprintf(out, "contrast:    %d bands, %.0f-%.0f Hz, neighbour ratio %.2f\n",
				effective.Contrast.NumBands, effective.Contrast.LowFreq, effective.Contrast.HighFreq, effective.Contrast.NeighbourRatio)
			fmt.Fprintf(out, "layout:      mfcc mean [%d:%d] mfcc std [%d:%d] contrast mean [%d:%d] contrast std [%d:%d]\n",
				layout.MFCCMean.Offset, layout.MFCCMean.Offset+layout.MFCCMean.Length,
				layout.MFCCStd.Offset, layout.MFCCStd.Offset+layout.MFCCStd.Length,
				layout.ContrastMean.Offset, layout.ContrastMean.Offset+layout.ContrastMean.Length,
				layout.ContrastStd.Offset, layout.ContrastStd.Offset+layout.ContrastStd.Length)

			decoder := cfg.Decoder
			if err := checkFFmpeg(&decoder); err != nil {
				fmt.Fprintf(out, "ffmpeg:      unavailable (%v)\n", err)
			} else {
				fmt.Fprintf(out, "ffmpeg:      %s\n", decoder.FFmpegPath)
			}
			return nil
		},
	}
}

func checkFFmpeg(cfg *transcode.DecoderConfig) error {
	return transcode.NewFFmpegDecoder(cfg).Available()
}
