package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

// VectorDBManager encapsulates the chromem-go database operations.
// chromem collections are safe for concurrent reads and writes.
type VectorDBManager struct {
	db            *chromem.DB
	dbPath        string
	compress      bool
	encryptionKey string
}

var errNoEmbeddingFunc = errors.New("documents and queries must carry precomputed embeddings")

// refuse to embed implicitly; every write and query supplies its own vector
func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

// NewVectorDBManager initializes a new vector database manager
func NewVectorDBManager(dbPath string, inMemory, compress bool, encryptionKey string) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	return &VectorDBManager{
		db:            db,
		dbPath:        dbPath,
		compress:      compress,
		encryptionKey: encryptionKey,
	}, nil
}

// create or read collection
func (m *VectorDBManager) GetOrCreateCollection(collectionName string) (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(collectionName, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	return c, nil
}

// add multiple documents
func (m *VectorDBManager) CreateDocs(ctx context.Context, collectionName string, documents []chromem.Document) error {
	if len(documents) == 0 {
		return nil
	}
	c, err := m.GetOrCreateCollection(collectionName)
	if err != nil {
		return err
	}
	if err := c.AddDocuments(ctx, documents, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// SearchWithQueryOptions performs a similarity search. NResults is clamped to
// the collection size; an empty collection yields no results.
func (m *VectorDBManager) SearchWithQueryOptions(ctx context.Context, collectionName string, opts chromem.QueryOptions) ([]chromem.Result, error) {
	// exit if query or embedding is not provided
	if opts.QueryText == "" && opts.QueryEmbedding == nil {
		return nil, fmt.Errorf("either query or embedding must be provided")
	}

	c, err := m.GetOrCreateCollection(collectionName)
	if err != nil {
		return nil, err
	}
	count := c.Count()
	if count == 0 || opts.NResults <= 0 {
		return nil, nil
	}
	if opts.NResults > count {
		opts.NResults = count
	}

	results, err := c.QueryWithOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	return results, nil
}

// Count returns the number of documents in a collection
func (m *VectorDBManager) Count(collectionName string) (int, error) {
	c, err := m.GetOrCreateCollection(collectionName)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

// delete collection
func (m *VectorDBManager) DeleteCollection(collectionName string) error {
	if err := m.db.DeleteCollection(collectionName); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

// export collections to an encrypted file
func (m *VectorDBManager) Export(filePath string, collections ...string) error {
	if m.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	if filePath == "" {
		return fmt.Errorf("file path is required")
	}

	log.Debug().Str("file", filePath).Bool("compress", m.compress).Strs("collections", collections).Msg("Exporting vector database")
	if err := m.db.ExportToFile(filePath, m.compress, m.encryptionKey, collections...); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// import collections from an encrypted file
func (m *VectorDBManager) Import(filePath string, collections ...string) error {
	if m.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	log.Debug().Str("file", filePath).Strs("collections", collections).Msg("Importing vector database")
	if err := m.db.ImportFromFile(filePath, m.encryptionKey, collections...); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	return nil
}
