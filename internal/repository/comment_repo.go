package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/edulabs-io/gradebook-api/internal/models"
)

// CommentRepository defines persistence operations for comment rows.
type CommentRepository interface {
	GetBySolutionCell(ctx context.Context, solutionCellID, submittedNotebookID uint) (models.Comment, error)
	GetBySourceCell(ctx context.Context, sourceCellID, submittedNotebookID uint) (models.Comment, error)
	ListForSubmittedNotebook(ctx context.Context, submittedNotebookID uint) ([]models.Comment, error)
	Create(ctx context.Context, comment *models.Comment) error
	Update(ctx context.Context, comment *models.Comment) error
	DeleteForSolutionCell(ctx context.Context, solutionCellID uint) error
	DeleteForSourceCell(ctx context.Context, sourceCellID uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository instantiates a GORM-backed repository.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) GetBySolutionCell(ctx context.Context, solutionCellID, submittedNotebookID uint) (models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).
		Where("solution_cell_id = ? AND submitted_notebook_id = ?", solutionCellID, submittedNotebookID).
		First(&comment).Error; err != nil {
		return models.Comment{}, err
	}

	return comment, nil
}

func (r *commentRepository) GetBySourceCell(ctx context.Context, sourceCellID, submittedNotebookID uint) (models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).
		Where("source_cell_id = ? AND submitted_notebook_id = ?", sourceCellID, submittedNotebookID).
		First(&comment).Error; err != nil {
		return models.Comment{}, err
	}

	return comment, nil
}

func (r *commentRepository) ListForSubmittedNotebook(ctx context.Context, submittedNotebookID uint) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.WithContext(ctx).
		Preload("SolutionCell").
		Preload("SourceCell").
		Where("submitted_notebook_id = ?", submittedNotebookID).
		Find(&comments).Error; err != nil {
		return nil, err
	}

	return comments, nil
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Save(comment).Error
}

func (r *commentRepository) DeleteForSolutionCell(ctx context.Context, solutionCellID uint) error {
	return r.db.WithContext(ctx).
		Where("solution_cell_id = ?", solutionCellID).
		Delete(&models.Comment{}).Error
}

func (r *commentRepository) DeleteForSourceCell(ctx context.Context, sourceCellID uint) error {
	return r.db.WithContext(ctx).
		Where("source_cell_id = ?", sourceCellID).
		Delete(&models.Comment{}).Error
}
