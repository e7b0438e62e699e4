/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/tieubaoca/docrag-be/config"
	"github.com/tieubaoca/docrag-be/ocr"
	"github.com/tieubaoca/docrag-be/pdf"
	"github.com/tieubaoca/docrag-be/service"
	"github.com/tieubaoca/docrag-be/types"
)

type processOutput struct {
	Pages    []types.Page              `json:"pages"`
	Stats    types.ProcessingStats     `json:"stats"`
	Failures []types.ProcessingFailure `json:"failures,omitempty"`
}

// processCmd runs the extraction pipeline without touching the index.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Extract text, OCR and images from PDFs into JSON",
	Long: `Runs the extraction pipeline over a single PDF or a folder of PDFs
and writes the page records plus summary stats as JSON. Nothing is
indexed; use ingest for that.`,
	Run: func(cmd *cobra.Command, args []string) {
		filePath, _ := cmd.Flags().GetString("file")
		folderPath, _ := cmd.Flags().GetString("folder")
		outPath, _ := cmd.Flags().GetString("output")
		if (filePath == "") == (folderPath == "") {
			log.Fatal("exactly one of --file or --folder is required")
		}

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		processor, err := service.NewDocumentProcessor(cfg.Processing, pdf.PopplerOpener{}, ocr.NewTesseractEngine())
		if err != nil {
			log.Fatalf("Failed to create document processor: %v", err)
		}

		ctx := context.Background()
		var out processOutput
		if filePath != "" {
			pages, err := processor.ProcessPDFFile(ctx, filePath)
			if err != nil {
				log.Fatalf("Failed to process %s: %v", filePath, err)
			}
			out.Pages = pages
		} else {
			pages, failures, err := processor.ProcessPDFFolder(ctx, folderPath)
			if err != nil {
				log.Fatalf("Failed to process folder %s: %v", folderPath, err)
			}
			out.Pages = pages
			out.Failures = failures
		}
		out.Stats = service.GetProcessingStats(out.Pages)

		w := os.Stdout
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				log.Fatalf("Failed to create output file: %v", err)
			}
			defer f.Close()
			w = f
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		log.Printf("Processed %d pages, %d chunks, %d images",
			out.Stats.TotalPages, out.Stats.TotalChunks, out.Stats.TotalImages)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringP("file", "f", "", "Path to a single PDF")
	processCmd.Flags().StringP("folder", "d", "", "Path to a folder of PDFs")
	processCmd.Flags().StringP("output", "o", "", "Write JSON here instead of stdout")
}
