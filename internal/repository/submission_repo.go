package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/edulabs-io/gradebook-api/internal/models"
)

// SubmissionRepository defines persistence operations for submissions and
// their submitted notebooks.
type SubmissionRepository interface {
	GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error)
	ListForAssignment(ctx context.Context, assignmentID uint) ([]models.Submission, error)
	ListForStudent(ctx context.Context, studentID uint) ([]models.Submission, error)
	CountForAssignment(ctx context.Context, assignmentID uint) (int64, error)
	CountForStudent(ctx context.Context, studentID uint) (int64, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error

	GetSubmittedNotebook(ctx context.Context, submissionID, notebookID uint) (models.SubmittedNotebook, error)
	CountSubmittedNotebooksForNotebook(ctx context.Context, notebookID uint) (int64, error)
	CreateSubmittedNotebook(ctx context.Context, notebook *models.SubmittedNotebook) error
	UpdateSubmittedNotebook(ctx context.Context, notebook *models.SubmittedNotebook) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates a GORM-backed repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Assignment").
		Preload("Student")
}

func (r *submissionRepository) GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) ListForAssignment(ctx context.Context, assignmentID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) ListForStudent(ctx context.Context, studentID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Where("student_id = ?", studentID).
		Order("created_at ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) CountForAssignment(ctx context.Context, assignmentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("assignment_id = ?", assignmentID).
		Count(&count).Error
	return count, err
}

func (r *submissionRepository) CountForStudent(ctx context.Context, studentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("student_id = ?", studentID).
		Count(&count).Error
	return count, err
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

func (r *submissionRepository) GetSubmittedNotebook(ctx context.Context, submissionID, notebookID uint) (models.SubmittedNotebook, error) {
	var notebook models.SubmittedNotebook
	if err := r.db.WithContext(ctx).
		Where("submission_id = ? AND notebook_id = ?", submissionID, notebookID).
		First(&notebook).Error; err != nil {
		return models.SubmittedNotebook{}, err
	}

	return notebook, nil
}

func (r *submissionRepository) CountSubmittedNotebooksForNotebook(ctx context.Context, notebookID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SubmittedNotebook{}).
		Where("notebook_id = ?", notebookID).
		Count(&count).Error
	return count, err
}

func (r *submissionRepository) CreateSubmittedNotebook(ctx context.Context, notebook *models.SubmittedNotebook) error {
	return r.db.WithContext(ctx).Create(notebook).Error
}

func (r *submissionRepository) UpdateSubmittedNotebook(ctx context.Context, notebook *models.SubmittedNotebook) error {
	return r.db.WithContext(ctx).Save(notebook).Error
}
