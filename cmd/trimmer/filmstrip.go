package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fireshare/trim-agent/internal/export"
	"github.com/fireshare/trim-agent/internal/thumbnail"
	"github.com/fireshare/trim-agent/internal/timeline"
)

var (
	videoIDFlag string
	outDirFlag  string
	heightFlag  int
)

var filmstripCmd = &cobra.Command{
	Use:   "filmstrip",
	Short: "Extract the filmstrip of a video to JPEG files",
	RunE:  runFilmstrip,
}

func init() {
	filmstripCmd.Flags().StringVar(&videoIDFlag, "video-id", "", "Gallery video ID")
	filmstripCmd.Flags().StringVarP(&outDirFlag, "out", "o", "", "Output directory")
	filmstripCmd.Flags().IntVar(&heightFlag, "height", thumbnail.DefaultHeight, "Thumbnail height in pixels")
	filmstripCmd.MarkFlagRequired("video-id")
	filmstripCmd.MarkFlagRequired("out")
}

func runFilmstrip(cmd *cobra.Command, args []string) error {
	outDir := filepath.Clean(outDirFlag)
	if err := export.PrepareOutputDir(outDir); err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ex, err := a.extractor()
	if err != nil {
		return fmt.Errorf("filmstrip needs ffmpeg: %w", err)
	}

	ctx := cmd.Context()
	d, err := a.catalog.Descriptor(ctx, videoIDFlag)
	if err != nil {
		return err
	}

	samples, err := ex.Extract(ctx, d, heightFlag)
	if err != nil {
		return fmt.Errorf("extract filmstrip: %w", err)
	}

	for i, s := range samples {
		path := filepath.Join(outDir, fmt.Sprintf("thumb_%02d.jpg", i))
		if err := os.WriteFile(path, s.Image, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", timeline.FormatClock(s.Time), path)
	}
	a.logger.Info("filmstrip written", "video_id", d.ID, "count", len(samples), "dir", outDir)
	return nil
}
