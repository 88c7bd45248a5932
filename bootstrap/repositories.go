package bootstrap

import (
	"medpipe_backend/platform/database"
	"medpipe_backend/repository"
)

type Repositories struct {
	PatientRepository  repository.PatientRepository
	DocumentRepository repository.DocumentRepository
	EventRepository    repository.EventRepository
}

func NewRepositories(db *database.DB) *Repositories {
	sqlDB := db.GetDatabase()
	return &Repositories{
		PatientRepository:  repository.NewPatientRepository(sqlDB),
		DocumentRepository: repository.NewDocumentRepository(sqlDB),
		EventRepository:    repository.NewEventRepository(sqlDB),
	}
}
