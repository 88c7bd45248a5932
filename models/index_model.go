package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type SearchIndex struct {
	Name      string    `gorm:"column:name;type:varchar(255);primaryKey" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:now()" json:"created_at"`
}

func (SearchIndex) TableName() string {
	return "search_indexes"
}

type IndexEntry struct {
	ID        string `gorm:"column:id;type:varchar(255);primaryKey" json:"id"`
	IndexName string `gorm:"column:index_name;type:varchar(255);not null;index:idx_entry_index" json:"index_name"`
	DocID     string `gorm:"column:doc_id;type:varchar(255);not null;index:idx_entry_doc" json:"doc_id"`
	Position  int32  `gorm:"column:position;type:int" json:"position"`
	Content   string `gorm:"column:content;type:text;not null" json:"content"`

	Embedding pgvector.Vector `gorm:"column:embedding;type:vector(1536)" json:"-"`
	Tags      pq.StringArray  `gorm:"column:tags;type:text[]" json:"tags"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:now()" json:"created_at"`
}

func (IndexEntry) TableName() string {
	return "index_entries"
}

func (e *IndexEntry) BeforeCreate(tx *gorm.DB) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	return nil
}
