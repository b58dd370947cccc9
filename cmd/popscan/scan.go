package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kdimtricp/popscan/internal/app"
	"github.com/kdimtricp/popscan/internal/capture"
	"github.com/kdimtricp/popscan/internal/models"
	"github.com/kdimtricp/popscan/internal/scan"
)

type scanOptions struct {
	image    string
	video    string
	at       time.Duration
	jsonOut  bool
	progress bool
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	opts := scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a frame and list the titles found on it",
		Long: "Scan a still image or a frame grabbed from a video and resolve the titles shown on it.\n" +
			"Without --image or --video the demo frame is scanned.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.image != "" && opts.video != "" {
				return errors.New("--image and --video are mutually exclusive")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("progress") {
				opts.progress = !opts.jsonOut && isTerminal(os.Stderr)
			}

			frame, err := frameSource(opts, cfg.Capture.FFmpegPath)
			if err != nil {
				return err
			}

			components, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer components.Close()

			stderr := cmd.ErrOrStderr()
			controller, err := scan.NewController(scan.Options{
				Scanner:  components.Scanner,
				Provider: components.Provider,
				Capture:  frame,
				Timeline: components.Timeline,
				Notify: func(ev scan.Event) {
					if opts.progress {
						printProgress(stderr, ev)
					}
				},
			})
			if err != nil {
				return err
			}
			defer controller.Close()

			results, err := controller.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			fmt.Fprintln(out, renderResults(results))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.image, "image", "", "Image file to scan")
	cmd.Flags().StringVar(&opts.video, "video", "", "Video file to grab a frame from (requires ffmpeg)")
	cmd.Flags().DurationVar(&opts.at, "at", 0, "Offset of the frame to grab from --video")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "Print phase progress to stderr (default: when stderr is a terminal)")

	return cmd
}

func frameSource(opts scanOptions, ffmpegPath string) (capture.Func, error) {
	switch {
	case opts.image != "":
		if _, err := os.Stat(opts.image); err != nil {
			return nil, fmt.Errorf("image: %w", err)
		}
		return capture.FromFile(opts.image), nil
	case opts.video != "":
		if _, err := os.Stat(opts.video); err != nil {
			return nil, fmt.Errorf("video: %w", err)
		}
		grabber, err := capture.NewFrameGrabber(ffmpegPath)
		if err != nil {
			return nil, err
		}
		return capture.FromVideo(grabber, opts.video, opts.at), nil
	default:
		return nil, nil
	}
}

func printProgress(w io.Writer, ev scan.Event) {
	switch ev.Type {
	case scan.EventInfo:
		fmt.Fprintf(w, "[%3d%%] %s\n", ev.Progress, ev.Message)
	case scan.EventSuccess:
		fmt.Fprintf(w, "[100%%] %s\n", ev.Message)
	case scan.EventError:
		fmt.Fprintf(w, "error: %s\n", ev.Message)
	}
}

func renderResults(results []models.MediaTitle) string {
	caser := cases.Title(language.Und)

	rows := make([][]string, 0, len(results))
	for _, title := range results {
		community := "-"
		if avg, ok := models.AverageCommunityScore(title.Ratings); ok {
			community = formatScore(&avg, 1)
		}
		friends := "-"
		if title.FriendsSummary != nil {
			friends = fmt.Sprintf("%.1f (%d)", title.FriendsSummary.Average, title.FriendsSummary.TotalReviews)
		}
		rows = append(rows, []string{
			title.Title,
			title.ReleaseYear,
			caser.String(string(title.Kind)),
			formatScore(title.Ratings.IMDb, 1),
			formatScore(title.Ratings.RottenTomatoes, 0),
			formatScore(title.Ratings.ScreenCritic, 0),
			community,
			friends,
			strings.Join(title.Genres, ", "),
			title.SourceAttribution,
		})
	}

	return renderTable(
		[]string{"Title", "Year", "Kind", "IMDb", "RT", "Critic", "Community", "Friends", "Genres", "Source"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}
