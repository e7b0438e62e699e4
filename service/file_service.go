package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tieubaoca/docrag-be/database"
	"github.com/tieubaoca/docrag-be/types"
)

type FileService struct {
	uploadDir string
	store     database.VectorStore
	processor *DocumentProcessor

	mu       sync.Mutex
	stats    types.ProcessingStats
	failures []types.ProcessingFailure
}

func NewFileService(
	uploadDir string,
	store database.VectorStore,
	processor *DocumentProcessor,
) *FileService {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		panic(err)
	}
	return &FileService{
		uploadDir: uploadDir,
		store:     store,
		processor: processor,
	}
}

// UploadFile saves the uploaded PDF, runs it through the extraction
// pipeline and indexes the resulting chunks. Progress is reported on c;
// the caller owns the channel.
func (s *FileService) UploadFile(ctx context.Context, req types.UploadRequest, file *multipart.FileHeader, c chan<- types.ProcessingDocumentStatus) (*types.UploadResponse, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" {
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	title := req.Title
	if title == "" {
		title = file.Filename
	}
	originalName := strings.TrimSuffix(title, ext)
	timestamp := time.Now().Unix()
	filename := fmt.Sprintf("%s_%d%s", originalName, timestamp, ext)

	// Keep names filesystem-safe.
	filename = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			return r
		}
		return '_'
	}, filename)

	dstPath := filepath.Join(s.uploadDir, filename)
	dst, err := os.Create(dstPath)
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	if _, err = io.Copy(dst, src); err != nil {
		return nil, err
	}

	// Status sends must never outlive the request: a client that went away
	// stops receiving, and a blocked send would pin this goroutine and the
	// open document handle forever.
	send := func(status types.ProcessingDocumentStatus) {
		if c == nil {
			return
		}
		select {
		case c <- status:
		case <-ctx.Done():
		}
	}

	pages, err := s.processor.ProcessPDFFileWithProgress(ctx, dstPath, func(processed, total int) {
		send(types.ProcessingDocumentStatus{
			Status:         "processing",
			Message:        "Processing document",
			Progress:       float64(processed) / float64(total),
			TotalPages:     total,
			ProcessedPages: processed,
		})
	})
	if err != nil {
		return nil, err
	}

	chunks := make([]types.TextChunk, 0)
	for _, page := range pages {
		chunks = append(chunks, page.TextChunks...)
	}
	if len(chunks) > 0 {
		if err := s.store.BatchInsertChunks(ctx, chunks, req.Tags); err != nil {
			return nil, fmt.Errorf("failed to index document: %v", err)
		}
	}

	send(types.ProcessingDocumentStatus{
		Status:  "completed",
		Message: "Done processing PDF",
	})

	stats := GetProcessingStats(pages)
	s.recordRun(stats, nil)

	return &types.UploadResponse{
		OriginalName: file.Filename,
		Stats:        stats,
	}, nil
}

func (s *FileService) recordRun(stats types.ProcessingStats, failures []types.ProcessingFailure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = MergeStats(s.stats, stats)
	s.failures = append(s.failures, failures...)
}

// Stats reports the totals accumulated across every upload served by this
// instance.
func (s *FileService) Stats() (types.ProcessingStats, []types.ProcessingFailure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	failures := make([]types.ProcessingFailure, len(s.failures))
	copy(failures, s.failures)
	return s.stats, failures
}

// DeleteDocument removes a document's chunks from the index and its file
// from the upload directory if one matches.
func (s *FileService) DeleteDocument(ctx context.Context, docName string) error {
	if err := s.store.DeleteDocument(ctx, docName); err != nil {
		return err
	}
	matches, err := filepath.Glob(filepath.Join(s.uploadDir, docName+"*.pdf"))
	if err != nil {
		return nil
	}
	for _, match := range matches {
		os.Remove(match)
	}
	return nil
}
