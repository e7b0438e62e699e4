package types

type DataResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type UploadResponse struct {
	OriginalName string          `json:"original_name,omitempty"`
	Stats        ProcessingStats `json:"stats"`
}

// ProcessingDocumentStatus is streamed back to upload clients while a
// document moves through the pipeline.
type ProcessingDocumentStatus struct {
	Status         string  `json:"status"`
	Message        string  `json:"message"`
	Progress       float64 `json:"progress"`
	TotalPages     int     `json:"total_pages"`
	ProcessedPages int     `json:"processed_pages"`
}

// ChunkHit is one retrieved chunk with its similarity distance.
type ChunkHit struct {
	Chunk    TextChunk `json:"chunk"`
	Distance float32   `json:"distance,omitempty"`
}

type SearchResponse struct {
	Hits []ChunkHit `json:"hits"`
}

// QueryResponse is a generated answer plus the chunks it was grounded on.
type QueryResponse struct {
	Answer  string     `json:"answer"`
	Sources []ChunkHit `json:"sources"`
}

type StatsResponse struct {
	Stats    ProcessingStats     `json:"stats"`
	Failures []ProcessingFailure `json:"failures,omitempty"`
}
