/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/tieubaoca/docrag-be/config"
	"github.com/tieubaoca/docrag-be/database"
	"github.com/tieubaoca/docrag-be/ocr"
	"github.com/tieubaoca/docrag-be/pdf"
	"github.com/tieubaoca/docrag-be/service"
	"github.com/tieubaoca/docrag-be/types"
	"github.com/tieubaoca/docrag-be/utils"
)

// ingestCmd runs the pipeline and pushes the chunks into the vector index.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Process PDFs and index their chunks",
	Run: func(cmd *cobra.Command, args []string) {
		filePath, _ := cmd.Flags().GetString("file")
		folderPath, _ := cmd.Flags().GetString("folder")
		tags, _ := cmd.Flags().GetStringArray("tags")
		reinit, _ := cmd.Flags().GetBool("reinit")
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

		weaviateDb, err := database.NewWeaviateStore(cfg.WeaviateStoreConfig)
		if err != nil {
			log.Fatalf("Failed to connect to Weaviate database: %v", err)
		}
		if reinit {
			if err := weaviateDb.ReInit(); err != nil {
				log.Fatalf("Failed to reinitialize Weaviate database: %v", err)
			}
		}

		ctx := context.Background()
		var pages []types.Page
		if filePath != "" {
			pages, err = processor.ProcessPDFFile(ctx, filePath)
			if err != nil {
				log.Fatalf("Failed to process %s: %v", filePath, err)
			}
		} else {
			var failures []types.ProcessingFailure
			pages, failures, err = processor.ProcessPDFFolder(ctx, folderPath)
			if err != nil {
				log.Fatalf("Failed to process folder %s: %v", folderPath, err)
			}
			for _, failure := range failures {
				log.Printf("Skipped %s: %s", failure.Path, failure.Reason)
			}
		}

		chunks := make([]types.TextChunk, 0)
		for _, page := range pages {
			chunks = append(chunks, page.TextChunks...)
		}
		if len(chunks) == 0 {
			log.Println("No chunks to index")
			return
		}
		if err := weaviateDb.BatchInsertChunks(ctx, chunks, tags); err != nil {
			log.Fatalf("Failed to index chunks: %v", err)
		}

		// Keep the upload directory in sync with the index so the server
		// serves the same corpus.
		if filePath != "" && cfg.UploadDir != "" {
			if dest, err := utils.CopyFileWithTimestamp(filePath, cfg.UploadDir); err != nil {
				log.Printf("Warning: failed to archive %s: %v", filePath, err)
			} else {
				log.Printf("Archived %s", dest)
			}
		}

		stats := service.GetProcessingStats(pages)
		log.Printf("Indexed %d chunks from %d documents (%d pages)",
			stats.TotalChunks, stats.DocumentsProcessed, stats.TotalPages)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringP("file", "f", "", "Path to a single PDF")
	ingestCmd.Flags().StringP("folder", "d", "", "Path to a folder of PDFs")
	ingestCmd.Flags().StringArrayP("tags", "g", []string{}, "Tags for the indexed chunks")
	ingestCmd.Flags().BoolP("reinit", "r", false, "Drop and recreate the chunk class first")
}
