package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"vaultai/internal/model"
)

// DocumentRepository persists ingested documents and their chunks.
type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Migrate() error {
	if err := r.db.AutoMigrate(&model.StoredDocument{}, &model.StoredChunk{}); err != nil {
		return fmt.Errorf("auto migrate documents failed: %w", err)
	}
	return nil
}

// SaveDocument replaces any stored document with the same filename.
func (r *DocumentRepository) SaveDocument(ctx context.Context, doc model.CorpusDocument) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteByFilename(tx, doc.Filename); err != nil {
			return err
		}

		row := model.StoredDocument{Filename: doc.Filename, Hash: doc.Hash}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("create document failed: %w", err)
		}
		if len(doc.Chunks) == 0 {
			return nil
		}
		chunks := make([]model.StoredChunk, len(doc.Chunks))
		for i, c := range doc.Chunks {
			chunks[i] = model.NewStoredChunk(row.ID, i, c)
		}
		if err := tx.Create(&chunks).Error; err != nil {
			return fmt.Errorf("create chunks batch failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save document %s failed: %w", doc.Filename, err)
	}
	return nil
}

func (r *DocumentRepository) DeleteDocument(ctx context.Context, filename string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteByFilename(tx, filename)
	})
}

func (r *DocumentRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.StoredChunk{}).Error; err != nil {
			return fmt.Errorf("delete all chunks failed: %w", err)
		}
		if err := tx.Where("1 = 1").Delete(&model.StoredDocument{}).Error; err != nil {
			return fmt.Errorf("delete all documents failed: %w", err)
		}
		return nil
	})
}

// LoadAll returns every stored document in upload order.
func (r *DocumentRepository) LoadAll(ctx context.Context) ([]model.CorpusDocument, error) {
	db := r.db.WithContext(ctx)

	var docs []model.StoredDocument
	if err := db.Order("id ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	ids := make([]uint, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	var chunks []model.StoredChunk
	if err := db.Where("document_id IN ?", ids).Order("document_id ASC, seq ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks by document ids failed: %w", err)
	}

	byDoc := make(map[uint][]model.StoredChunk, len(docs))
	for _, c := range chunks {
		byDoc[c.DocumentID] = append(byDoc[c.DocumentID], c)
	}

	out := make([]model.CorpusDocument, 0, len(docs))
	for _, d := range docs {
		cd := model.CorpusDocument{Filename: d.Filename, Hash: d.Hash}
		for _, c := range byDoc[d.ID] {
			cd.Chunks = append(cd.Chunks, c.Chunk(d.Filename))
		}
		out = append(out, cd)
	}
	return out, nil
}

func deleteByFilename(tx *gorm.DB, filename string) error {
	var doc model.StoredDocument
	err := tx.Where("filename = ?", filename).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get document failed: %w", err)
	}
	if err := tx.Where("document_id = ?", doc.ID).Delete(&model.StoredChunk{}).Error; err != nil {
		return fmt.Errorf("delete chunks by document failed: %w", err)
	}
	if err := tx.Delete(&doc).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}
