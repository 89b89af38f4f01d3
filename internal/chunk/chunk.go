package chunk

// ContentType distinguishes prose chunks from rendered tables.
type ContentType string

const (
	TypeText  ContentType = "text"
	TypeTable ContentType = "table"
)

// Chunk is one retrievable unit of document content. Embedding is nil until
// the embedding client has run; rows with a nil embedding never participate
// in similarity search.
type Chunk struct {
	ID          int64       `json:"id"`
	FileName    string      `json:"file_name"`
	PageNo      int         `json:"page_no"`
	ContentType ContentType `json:"content_type"`
	Content     string      `json:"content"`
	Embedding   []float32   `json:"-"`
}

// Match is one ranked result from a nearest-neighbor search. The raw vector
// is never exposed, only the cosine distance to the query.
type Match struct {
	ChunkID     int64       `json:"chunk_id"`
	FileName    string      `json:"file_name"`
	PageNo      int         `json:"page_no"`
	ContentType ContentType `json:"content_type"`
	Content     string      `json:"content"`
	Distance    float64     `json:"distance"`
}
