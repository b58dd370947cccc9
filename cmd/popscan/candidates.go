package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/popscan/internal/candidates"
)

func newCandidatesCommand() *cobra.Command {
	var (
		confidence float64
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "candidates <text>...",
		Short: "Show the title candidates extracted from on-screen text",
		Long:  "Each argument, and each line within an argument, is treated as one line of recognized text.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if confidence < 0 || confidence > 1 {
				return fmt.Errorf("--confidence must be between 0 and 1, got %v", confidence)
			}

			var lines []candidates.Line
			for _, arg := range args {
				for _, text := range strings.Split(arg, "\n") {
					lines = append(lines, candidates.Line{Text: text, Confidence: confidence * 100})
				}
			}
			segments := candidates.SegmentsFromLines(lines)
			contexts := candidates.BuildLookupContexts(segments)

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"segments": segments, "contexts": contexts})
			}

			var rows [][]string
			for _, segment := range segments {
				for i, c := range segment.Candidates {
					raw := ""
					if i == 0 {
						raw = segment.RawText
					}
					rows = append(rows, []string{raw, c.Title, c.ReleaseYear, strconv.FormatFloat(c.Confidence, 'f', 2, 64)})
				}
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Line", "Candidate", "Year", "Confidence"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			))

			if len(contexts) > 0 {
				var queries []string
				for _, c := range contexts[0].Candidates {
					queries = append(queries, c.Title)
				}
				fmt.Fprintf(out, "First lookup context: %s\n", strings.Join(queries, " | "))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&confidence, "confidence", 0.9, "OCR confidence of the text, between 0 and 1")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print segments and lookup contexts as JSON")

	return cmd
}
