package types

// UploadRequest carries metadata sent alongside an uploaded PDF.
type UploadRequest struct {
	Title  string   `json:"title"`
	Source string   `json:"source"`
	Tags   []string `json:"tags"`
}

// SearchRequest is a retrieval query over indexed chunks.
type SearchRequest struct {
	Queries []string `json:"queries"`
	DocName string   `json:"doc_name,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// QueryRequest asks the RAG service a question over the indexed corpus.
type QueryRequest struct {
	Question string   `json:"question"`
	TopK     int      `json:"top_k,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}
