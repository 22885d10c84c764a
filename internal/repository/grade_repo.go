package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/edulabs-io/gradebook-api/internal/models"
)

// GradeRepository defines persistence operations for grade rows.
type GradeRepository interface {
	GetByCell(ctx context.Context, gradeCellID, submittedNotebookID uint) (models.Grade, error)
	ListForSubmittedNotebook(ctx context.Context, submittedNotebookID uint) ([]models.Grade, error)
	Create(ctx context.Context, grade *models.Grade) error
	Update(ctx context.Context, grade *models.Grade) error
	CountForGradeCell(ctx context.Context, gradeCellID uint) (int64, error)
	CountForNotebook(ctx context.Context, notebookID uint) (int64, error)
	CountForAssignment(ctx context.Context, assignmentID uint) (int64, error)
	CountForStudent(ctx context.Context, studentID uint) (int64, error)
	DeleteForGradeCell(ctx context.Context, gradeCellID uint) error
}

type gradeRepository struct {
	db *gorm.DB
}

// NewGradeRepository instantiates a GORM-backed repository.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

func (r *gradeRepository) GetByCell(ctx context.Context, gradeCellID, submittedNotebookID uint) (models.Grade, error) {
	var grade models.Grade
	if err := r.db.WithContext(ctx).
		Preload("GradeCell").
		Where("grade_cell_id = ? AND submitted_notebook_id = ?", gradeCellID, submittedNotebookID).
		First(&grade).Error; err != nil {
		return models.Grade{}, err
	}

	return grade, nil
}

func (r *gradeRepository) ListForSubmittedNotebook(ctx context.Context, submittedNotebookID uint) ([]models.Grade, error) {
	var grades []models.Grade
	if err := r.db.WithContext(ctx).
		Preload("GradeCell").
		Where("submitted_notebook_id = ?", submittedNotebookID).
		Find(&grades).Error; err != nil {
		return nil, err
	}

	return grades, nil
}

func (r *gradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	return r.db.WithContext(ctx).Create(grade).Error
}

func (r *gradeRepository) Update(ctx context.Context, grade *models.Grade) error {
	return r.db.WithContext(ctx).Save(grade).Error
}

func (r *gradeRepository) CountForGradeCell(ctx context.Context, gradeCellID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Grade{}).
		Where("grade_cell_id = ?", gradeCellID).
		Count(&count).Error
	return count, err
}

func (r *gradeRepository) CountForNotebook(ctx context.Context, notebookID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Grade{}).
		Joins("JOIN grade_cells ON grade_cells.id = grades.grade_cell_id").
		Where("grade_cells.notebook_id = ?", notebookID).
		Count(&count).Error
	return count, err
}

func (r *gradeRepository) CountForAssignment(ctx context.Context, assignmentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Grade{}).
		Joins("JOIN submitted_notebooks ON submitted_notebooks.id = grades.submitted_notebook_id").
		Joins("JOIN submissions ON submissions.id = submitted_notebooks.submission_id").
		Where("submissions.assignment_id = ?", assignmentID).
		Count(&count).Error
	return count, err
}

func (r *gradeRepository) CountForStudent(ctx context.Context, studentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Grade{}).
		Joins("JOIN submitted_notebooks ON submitted_notebooks.id = grades.submitted_notebook_id").
		Joins("JOIN submissions ON submissions.id = submitted_notebooks.submission_id").
		Where("submissions.student_id = ?", studentID).
		Count(&count).Error
	return count, err
}

func (r *gradeRepository) DeleteForGradeCell(ctx context.Context, gradeCellID uint) error {
	return r.db.WithContext(ctx).
		Where("grade_cell_id = ?", gradeCellID).
		Delete(&models.Grade{}).Error
}
