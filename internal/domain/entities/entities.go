// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import "time"

// KnowledgeDocument is the metadata of one user-uploaded knowledge document.
// The raw content lives in blob storage under StorageKey.
type KnowledgeDocument struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	ContentHash    string    `json:"content_hash"`
	UploadTime     time.Time `json:"upload_time"`
	FileSizeBytes  int64     `json:"file_size"`
	FileType       string    `json:"file_type"`
	ContentPreview string    `json:"content_preview"`
	StorageKey     string    `json:"storage_key"`
}

// Chunk represents a piece of a document for embedding.
type Chunk struct {
	ID         string
	DocumentID string
	Source     string // Filename or corpus guide name, for citation
	Content    string
	Index      int       // Position in document
	Embedding  []float32 // Vector representation (populated by adapter)
}

// QueryResult represents a search result with relevance.
type QueryResult struct {
	Chunk     Chunk
	Score     float64
	SourceDoc string
}

// KnowledgeQueryResult is produced fresh for every knowledge query and never cached.
type KnowledgeQueryResult struct {
	Success     bool     `json:"success"`
	Suggestions []string `json:"suggestions"`
	Questions   []string `json:"questions"`
	RawResponse string   `json:"raw_response,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// FailedQuery builds the failure shape: collections are empty, never nil.
func FailedQuery(err error) KnowledgeQueryResult {
	res := KnowledgeQueryResult{Suggestions: []string{}, Questions: []string{}}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// DocumentsSummary aggregates the uploaded document metadata.
type DocumentsSummary struct {
	TotalDocuments int            `json:"total_documents"`
	TotalSizeBytes int64          `json:"total_size"`
	FileTypes      map[string]int `json:"file_types"`
	LatestUpload   *time.Time     `json:"latest_upload,omitempty"`
	LatestFilename string         `json:"latest_filename,omitempty"`
	IndexStale     bool           `json:"index_stale"`
	Initialized    bool           `json:"initialized"`
}

// AddResult reports the outcome of adding a knowledge document.
type AddResult struct {
	Success   bool               `json:"success"`
	Duplicate bool               `json:"duplicate"`
	Document  *KnowledgeDocument `json:"document,omitempty"`
	Error     string             `json:"error,omitempty"`
	Err       error              `json:"-"`
}

// RemoveResult reports the outcome of removing a knowledge document.
type RemoveResult struct {
	Success  bool               `json:"success"`
	Document *KnowledgeDocument `json:"document,omitempty"`
	Error    string             `json:"error,omitempty"`
	Err      error              `json:"-"`
}

// EnhancementResult is returned by the knowledge-augmented enhancement.
type EnhancementResult struct {
	Success                bool      `json:"success"`
	OriginalRequirement    string    `json:"original_requirement"`
	EnhancedRequirement    string    `json:"enhanced_requirement"`
	KBSuggestions          []string  `json:"kb_suggestions"`
	ClarificationQuestions []string  `json:"clarification_questions"`
	KnowledgeBaseUsed      bool      `json:"knowledge_base_used"`
	Timestamp              time.Time `json:"timestamp"`
	Error                  string    `json:"error,omitempty"`
	Err                    error     `json:"-"`
}

// ClarificationResult is returned by one clarification turn.
type ClarificationResult struct {
	Success               bool      `json:"success"`
	ClarifiedRequirement  string    `json:"clarified_requirement"`
	AdditionalSuggestions []string  `json:"additional_suggestions"`
	KnowledgeBaseUsed     bool      `json:"knowledge_base_used"`
	Timestamp             time.Time `json:"timestamp"`
	Error                 string    `json:"error,omitempty"`
	Err                   error     `json:"-"`
}

// ImprovementReport is the heuristic quality report for a requirement text.
type ImprovementReport struct {
	CompletenessScore int      `json:"completeness_score"`
	MissingElements   []string `json:"missing_elements"`
	BestPractices     []string `json:"best_practices"`
	PotentialRisks    []string `json:"potential_risks"`
	Suggestions       []string `json:"suggestions"`
}
