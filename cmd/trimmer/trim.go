package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fireshare/trim-agent/internal/timeline"
	"github.com/fireshare/trim-agent/internal/trim"
)

var (
	trimVideoIDFlag string
	startFlag       float64
	endFlag         float64
	saveAsNewFlag   bool
)

var trimCmd = &cobra.Command{
	Use:   "trim",
	Short: "Trim a gallery video to a time range",
	Long: `Trim sends one trim request to the gallery backend, with the same minimum
length and range checks the browser client gets. By default the video is
trimmed in place; --save-as-new keeps it and creates a new clip.`,
	RunE: runTrim,
}

func init() {
	trimCmd.Flags().StringVar(&trimVideoIDFlag, "video-id", "", "Gallery video ID")
	trimCmd.Flags().Float64Var(&startFlag, "start", 0, "Range start in seconds")
	trimCmd.Flags().Float64Var(&endFlag, "end", 0, "Range end in seconds (default: video end)")
	trimCmd.Flags().BoolVar(&saveAsNewFlag, "save-as-new", false, "Create a new clip instead of replacing the video")
	trimCmd.MarkFlagRequired("video-id")
}

func runTrim(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	d, err := a.catalog.Descriptor(ctx, trimVideoIDFlag)
	if err != nil {
		return err
	}

	r, err := cliRange(startFlag, endFlag, d.Duration)
	if err != nil {
		return err
	}

	var outcome trim.Outcome
	sub := trim.NewSubmitter(trim.SubmitterConfig{
		Trimmer:  a.gallery,
		Notifier: trim.LogNotifier{Logger: a.logger},
		Recorder: trim.RecorderFunc(func(ctx context.Context, o trim.Outcome) {
			a.catalog.Record(ctx, o)
			if o.Finished {
				outcome = o
			}
		}),
		Logger: a.logger,
	})
	if err := sub.Submit(ctx, d.ID, r, saveAsNewFlag); err != nil {
		return err
	}
	<-sub.Wait()

	if outcome.Err != nil {
		return fmt.Errorf("trim %s: %w", d.ID, outcome.Err)
	}
	result := d.ID
	if outcome.Result != nil && outcome.Result.VideoID != "" {
		result = outcome.Result.VideoID
	}
	fmt.Fprintf(cmd.OutOrStdout(), "trimmed %s %s-%s -> %s\n",
		d.ID, timeline.FormatClock(r.Start), timeline.FormatClock(r.End), result)
	return nil
}

// cliRange validates a range given on the command line against the video
// duration. A zero end means the end of the video.
func cliRange(start, end, duration float64) (timeline.Range, error) {
	if duration <= 0 {
		return timeline.Range{}, timeline.ErrNoDuration
	}
	if end == 0 {
		end = duration
	}
	if start < 0 || end > duration || start >= end {
		return timeline.Range{}, fmt.Errorf("range %.3f-%.3f outside video of %.3fs", start, end, duration)
	}
	return timeline.Range{Start: start, End: end}, nil
}
