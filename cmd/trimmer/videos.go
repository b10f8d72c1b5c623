package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fireshare/trim-agent/internal/catalog"
	"github.com/fireshare/trim-agent/internal/media"
	"github.com/fireshare/trim-agent/internal/timeline"
)

var (
	sortFlag    string
	refreshFlag bool
)

var videosCmd = &cobra.Command{
	Use:   "videos",
	Short: "List the cached gallery videos",
	RunE:  runVideos,
}

func init() {
	videosCmd.Flags().StringVarP(&sortFlag, "sort", "s", catalog.SortNewest.String(), "Sort order (newest, oldest, az, za, most_views, least_views)")
	videosCmd.Flags().BoolVar(&refreshFlag, "refresh", false, "Refresh from the gallery before listing")
}

func runVideos(cmd *cobra.Command, args []string) error {
	mode, err := catalog.ParseSortMode(sortFlag)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if refreshFlag {
		if _, err := a.catalog.Refresh(ctx); err != nil {
			return err
		}
	}

	videos, err := a.catalog.Videos(ctx, mode)
	if err != nil {
		return fmt.Errorf("list videos: %w", err)
	}
	if len(videos) == 0 && !refreshFlag {
		fmt.Fprintln(os.Stderr, "no cached videos; run with --refresh to fetch the gallery listing")
		return nil
	}
	return printVideos(cmd.OutOrStdout(), videos, mode)
}

func printVideos(w io.Writer, videos []*media.Video, mode catalog.SortMode) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "# %s\n", mode.Label())
	fmt.Fprintln(tw, "ID\tTITLE\tDURATION\tVIEWS\tUPDATED")
	for _, v := range videos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			v.VideoID, v.Info.Title, timeline.FormatClock(v.Info.Duration), v.ViewCount,
			v.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
