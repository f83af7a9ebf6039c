package domain

// Document is the unit of ingestion supplied by a document source.
// The core never persists it directly; only its derived chunks are stored.
type Document struct {
	ID      string
	Name    string
	Content string
}

// DocumentRef identifies a document known to the vector store or a source.
type DocumentRef struct {
	ID   string
	Name string
}
