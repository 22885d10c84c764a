package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/edulabs-io/gradebook-api/internal/models"
)

// CellRepository defines persistence operations for the three kinds of
// template cell rows.
type CellRepository interface {
	GradeCells(ctx context.Context, notebookID uint) ([]models.GradeCell, error)
	SolutionCells(ctx context.Context, notebookID uint) ([]models.SolutionCell, error)
	SourceCells(ctx context.Context, notebookID uint) ([]models.SourceCell, error)

	GetGradeCell(ctx context.Context, notebookID uint, name string) (models.GradeCell, error)
	GetSolutionCell(ctx context.Context, notebookID uint, name string) (models.SolutionCell, error)
	GetSourceCell(ctx context.Context, notebookID uint, name string) (models.SourceCell, error)

	SaveGradeCell(ctx context.Context, cell *models.GradeCell) error
	SaveSolutionCell(ctx context.Context, cell *models.SolutionCell) error
	SaveSourceCell(ctx context.Context, cell *models.SourceCell) error

	DeleteGradeCell(ctx context.Context, id uint) error
	DeleteSolutionCell(ctx context.Context, id uint) error
	DeleteSourceCell(ctx context.Context, id uint) error
}

type cellRepository struct {
	db *gorm.DB
}

// NewCellRepository instantiates a GORM-backed repository.
func NewCellRepository(db *gorm.DB) CellRepository {
	return &cellRepository{db: db}
}

func (r *cellRepository) GradeCells(ctx context.Context, notebookID uint) ([]models.GradeCell, error) {
	var cells []models.GradeCell
	if err := r.db.WithContext(ctx).
		Where("notebook_id = ?", notebookID).
		Order("position ASC").
		Find(&cells).Error; err != nil {
		return nil, err
	}

	return cells, nil
}

func (r *cellRepository) SolutionCells(ctx context.Context, notebookID uint) ([]models.SolutionCell, error) {
	var cells []models.SolutionCell
	if err := r.db.WithContext(ctx).
		Where("notebook_id = ?", notebookID).
		Order("name ASC").
		Find(&cells).Error; err != nil {
		return nil, err
	}

	return cells, nil
}

func (r *cellRepository) SourceCells(ctx context.Context, notebookID uint) ([]models.SourceCell, error) {
	var cells []models.SourceCell
	if err := r.db.WithContext(ctx).
		Where("notebook_id = ?", notebookID).
		Order("name ASC").
		Find(&cells).Error; err != nil {
		return nil, err
	}

	return cells, nil
}

func (r *cellRepository) GetGradeCell(ctx context.Context, notebookID uint, name string) (models.GradeCell, error) {
	var cell models.GradeCell
	if err := r.db.WithContext(ctx).
		Where("notebook_id = ? AND name = ?", notebookID, name).
		First(&cell).Error; err != nil {
		return models.GradeCell{}, err
	}

	return cell, nil
}

func (r *cellRepository) GetSolutionCell(ctx context.Context, notebookID uint, name string) (models.SolutionCell, error) {
	var cell models.SolutionCell
	if err := r.db.WithContext(ctx).
		Where("notebook_id = ? AND name = ?", notebookID, name).
		First(&cell).Error; err != nil {
		return models.SolutionCell{}, err
	}

	return cell, nil
}

func (r *cellRepository) GetSourceCell(ctx context.Context, notebookID uint, name string) (models.SourceCell, error) {
	var cell models.SourceCell
	if err := r.db.WithContext(ctx).
		Where("notebook_id = ? AND name = ?", notebookID, name).
		First(&cell).Error; err != nil {
		return models.SourceCell{}, err
	}

	return cell, nil
}

func (r *cellRepository) SaveGradeCell(ctx context.Context, cell *models.GradeCell) error {
	return r.db.WithContext(ctx).Save(cell).Error
}

func (r *cellRepository) SaveSolutionCell(ctx context.Context, cell *models.SolutionCell) error {
	return r.db.WithContext(ctx).Save(cell).Error
}

func (r *cellRepository) SaveSourceCell(ctx context.Context, cell *models.SourceCell) error {
	return r.db.WithContext(ctx).Save(cell).Error
}

func (r *cellRepository) DeleteGradeCell(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.GradeCell{}, id).Error
}

func (r *cellRepository) DeleteSolutionCell(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.SolutionCell{}, id).Error
}

func (r *cellRepository) DeleteSourceCell(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.SourceCell{}, id).Error
}
