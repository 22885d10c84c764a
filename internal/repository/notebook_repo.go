package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/edulabs-io/gradebook-api/internal/models"
)

// NotebookRepository defines persistence operations for notebook templates.
type NotebookRepository interface {
	ListForAssignment(ctx context.Context, assignmentID uint) ([]models.Notebook, error)
	GetByName(ctx context.Context, assignmentID uint, name string) (models.Notebook, error)
	GetByNameWithCells(ctx context.Context, assignmentID uint, name string) (models.Notebook, error)
	Create(ctx context.Context, notebook *models.Notebook) error
	Delete(ctx context.Context, id uint) error
}

type notebookRepository struct {
	db *gorm.DB
}

// NewNotebookRepository instantiates a GORM-backed repository.
func NewNotebookRepository(db *gorm.DB) NotebookRepository {
	return &notebookRepository{db: db}
}

func (r *notebookRepository) ListForAssignment(ctx context.Context, assignmentID uint) ([]models.Notebook, error) {
	var notebooks []models.Notebook
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Preload("GradeCells").
		Preload("SolutionCells").
		Order("name ASC").
		Find(&notebooks).Error; err != nil {
		return nil, err
	}

	return notebooks, nil
}

func (r *notebookRepository) GetByName(ctx context.Context, assignmentID uint, name string) (models.Notebook, error) {
	var notebook models.Notebook
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND name = ?", assignmentID, name).
		First(&notebook).Error; err != nil {
		return models.Notebook{}, err
	}

	return notebook, nil
}

func (r *notebookRepository) GetByNameWithCells(ctx context.Context, assignmentID uint, name string) (models.Notebook, error) {
	var notebook models.Notebook
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND name = ?", assignmentID, name).
		Preload("GradeCells", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("SolutionCells").
		Preload("SourceCells").
		First(&notebook).Error; err != nil {
		return models.Notebook{}, err
	}

	return notebook, nil
}

func (r *notebookRepository) Create(ctx context.Context, notebook *models.Notebook) error {
	return r.db.WithContext(ctx).Create(notebook).Error
}

func (r *notebookRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Notebook{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
