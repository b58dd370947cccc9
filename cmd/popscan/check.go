package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/popscan/internal/app"
	"github.com/kdimtricp/popscan/internal/capture"
	"github.com/kdimtricp/popscan/internal/config"
	"github.com/kdimtricp/popscan/internal/metadata"
	"github.com/kdimtricp/popscan/internal/ocr"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report which OCR and metadata capabilities are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			components, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer components.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Capability", "Configured", "Active", "Notes"},
				capabilityRows(cfg, components.Scanner.Name(), components.Provider),
				nil,
			))
			return nil
		},
	}
}

func capabilityRows(cfg config.Config, scannerName string, provider metadata.Provider) [][]string {
	rows := [][]string{
		{"OCR", cfg.OCR.Provider, scannerName, ocrNote(cfg, scannerName)},
	}

	providerNote := "demo catalog"
	if resolver, ok := provider.(*metadata.Resolver); ok {
		providerNote = fmt.Sprintf("sub-providers: %v", resolver.SubProviders())
	}
	rows = append(rows, []string{"Metadata", cfg.Metadata.Provider, provider.Name(), providerNote})

	rows = append(rows,
		[]string{"OMDb key", keyState(cfg.Metadata.OMDbKey), "", "public demo key used when unset"},
		[]string{"TMDb key", keyState(cfg.Metadata.TMDbKey), "", "TMDb search enabled when set"},
		[]string{"Google Vision key", keyState(cfg.OCR.GoogleVisionKey), "", ""},
	)

	tesseract := "found"
	if err := ocr.NewEngineHandle(ocr.EngineConfig{Path: cfg.OCR.TesseractPath}).Available(); err != nil {
		tesseract = "missing"
	}
	rows = append(rows, []string{"tesseract", cfg.OCR.TesseractPath, tesseract, ""})

	ffmpeg := "found"
	if _, err := capture.NewFrameGrabber(cfg.Capture.FFmpegPath); err != nil {
		ffmpeg = "missing"
	}
	rows = append(rows, []string{"ffmpeg", cfg.Capture.FFmpegPath, ffmpeg, "needed for scan --video"})

	cacheNote := ""
	if cfg.Cache.Backend == "redis" {
		cacheNote = cfg.Cache.RedisAddr
	}
	rows = append(rows, []string{"Lookup cache", cfg.Cache.Backend, cfg.Cache.TTL.String(), cacheNote})

	return rows
}

func ocrNote(cfg config.Config, scannerName string) string {
	if cfg.OCR.Provider != ocr.KindMock && scannerName == ocr.KindMock {
		return "fell back to mock (missing key or binary)"
	}
	return ""
}

func keyState(key string) string {
	if key == "" {
		return "Disabled"
	}
	return "Enabled"
}
