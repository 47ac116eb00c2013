package mcp

// SearchDocumentsInput defines the input schema for the search_documents tool.
type SearchDocumentsInput struct {
	Query string `json:"query" jsonschema:"the search query to execute"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 5"`
}

// SearchDocumentsOutput defines the output schema for the search_documents tool.
type SearchDocumentsOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"ranked search results, best first"`
}

// SearchResultOutput is a single ranked match.
type SearchResultOutput struct {
	ID      string   `json:"id" jsonschema:"document path relative to the root"`
	Title   string   `json:"title" jsonschema:"document title"`
	Score   float64  `json:"score" jsonschema:"relevance score, lower is better"`
	Excerpt string   `json:"excerpt" jsonschema:"matched content snippet"`
	Tags    []string `json:"tags,omitempty" jsonschema:"front-matter tags"`
}

// GetDocumentInput defines the input schema for the get_document tool.
type GetDocumentInput struct {
	ID string `json:"id" jsonschema:"document path relative to the root"`
}

// GetDocumentOutput defines the output schema for the get_document tool.
type GetDocumentOutput struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Metadata     map[string]any `json:"metadata,omitempty" jsonschema:"parsed front-matter fields"`
	Content      string         `json:"content" jsonschema:"normalized plain text"`
	LastModified string         `json:"last_modified" jsonschema:"RFC 3339 modification time"`
}

// ListDocumentsInput defines the input schema for the list_documents tool.
type ListDocumentsInput struct {
	Tag string `json:"tag,omitempty" jsonschema:"return only documents carrying this exact tag"`
}

// ListDocumentsOutput defines the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentSummaryOutput `json:"documents" jsonschema:"documents sorted by id"`
}

// DocumentSummaryOutput is one listing entry.
type DocumentSummaryOutput struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Tags         []string `json:"tags,omitempty"`
	LastModified string   `json:"last_modified"`
	Excerpt      string   `json:"excerpt,omitempty"`
}

// FindSimilarInput defines the input schema for the find_similar tool.
type FindSimilarInput struct {
	ID    string `json:"id" jsonschema:"document to find related documents for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 3"`
}

// FindSimilarOutput defines the output schema for the find_similar tool.
type FindSimilarOutput struct {
	Results []SimilarResultOutput `json:"results" jsonschema:"related documents, most similar first"`
}

// SimilarResultOutput is one related document.
type SimilarResultOutput struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score" jsonschema:"token overlap between 0 and 1"`
}

// SearchByDateInput defines the input schema for the search_by_date tool.
type SearchByDateInput struct {
	After  string `json:"after,omitempty" jsonschema:"only documents modified strictly after this date (YYYY-MM-DD or RFC 3339)"`
	Before string `json:"before,omitempty" jsonschema:"only documents modified strictly before this date (YYYY-MM-DD or RFC 3339)"`
}

// SearchByDateOutput defines the output schema for the search_by_date tool.
type SearchByDateOutput struct {
	Documents []DocumentSummaryOutput `json:"documents" jsonschema:"documents newest first"`
}

// IndexStatusInput defines the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	Root          string        `json:"root" jsonschema:"absolute document root"`
	DocumentCount int           `json:"document_count"`
	Ready         bool          `json:"ready" jsonschema:"whether at least one rebuild completed"`
	LastRebuild   string        `json:"last_rebuild,omitempty" jsonschema:"RFC 3339 time of the newest index"`
	Watcher       string        `json:"watcher" jsonschema:"fsnotify, polling or none"`
	Sync          *SyncProgress `json:"sync,omitempty" jsonschema:"present while the initial scan runs"`
}

// SyncProgress describes an in-flight initial sync.
type SyncProgress struct {
	Status         string `json:"status"` // "syncing", "ready" or "error"
	Stage          string `json:"stage,omitempty"`
	FilesProcessed int    `json:"files_processed"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
	ErrorMessage   string `json:"error_message,omitempty"`
}
