package search

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medpipe_backend/models"
	"medpipe_backend/pkg/logging"
)

// SearchIndex stores per-patient retrieval entries.
type SearchIndex interface {
	// DeleteIndex reports false when the index did not exist.
	DeleteIndex(ctx context.Context, name string) (bool, error)
	DeleteDocuments(ctx context.Context, indexName string, ids []string) error
	FindDocumentEntryIDs(ctx context.Context, indexName, docID string) ([]string, error)
	UpsertEntries(ctx context.Context, indexName string, entries []*models.IndexEntry) error
}

const deleteBatchSize = 500

// PostgresIndex keeps indexes in Postgres with pgvector embeddings.
type PostgresIndex struct {
	db *gorm.DB
}

func NewPostgresIndex(db *gorm.DB) *PostgresIndex {
	return &PostgresIndex{db: db}
}

func (p *PostgresIndex) DeleteIndex(ctx context.Context, name string) (bool, error) {
	existed := false
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("index_name = ?", name).Delete(&models.IndexEntry{}).Error; err != nil {
			return err
		}
		res := tx.Where("name = ?", name).Delete(&models.SearchIndex{})
		if res.Error != nil {
			return res.Error
		}
		existed = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		logging.Logger.Error("fail DeleteIndex", "error", err, "index", name)
		return false, err
	}
	return existed, nil
}

func (p *PostgresIndex) DeleteDocuments(ctx context.Context, indexName string, ids []string) error {
	for start := 0; start < len(ids); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(ids))
		err := p.db.WithContext(ctx).
			Where("index_name = ? AND id IN ?", indexName, ids[start:end]).
			Delete(&models.IndexEntry{}).Error
		if err != nil {
			logging.Logger.Error("fail DeleteDocuments", "error", err, "index", indexName)
			return err
		}
	}
	return nil
}

func (p *PostgresIndex) FindDocumentEntryIDs(ctx context.Context, indexName, docID string) ([]string, error) {
	var ids []string
	err := p.db.WithContext(ctx).Model(&models.IndexEntry{}).
		Where("index_name = ? AND doc_id = ?", indexName, docID).
		Pluck("id", &ids).Error
	return ids, err
}

func (p *PostgresIndex) UpsertEntries(ctx context.Context, indexName string, entries []*models.IndexEntry) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.SearchIndex{Name: indexName}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		for _, e := range entries {
			e.IndexName = indexName
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "embedding", "tags", "position"}),
		}).CreateInBatches(entries, 100).Error
	})
}
