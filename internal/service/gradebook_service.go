package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/edulabs-io/gradebook-api/internal/cellmeta"
	"github.com/edulabs-io/gradebook-api/internal/dto"
	"github.com/edulabs-io/gradebook-api/internal/models"
	"github.com/edulabs-io/gradebook-api/internal/repository"
)

// GradebookConfig carries the course-level knobs a gradebook needs. It is
// passed explicitly; there is no process-wide state.
type GradebookConfig struct {
	CourseID    string
	LatePenalty LatePenaltyPolicy
}

// GradebookService owns every entity in the store. All multi-row operations
// run inside one transaction: they are either fully applied or fully
// rejected, and queries always read committed state.
type GradebookService interface {
	UpsertStudent(ctx context.Context, payload dto.StudentUpsertRequest) (dto.StudentResponse, error)
	FindStudent(ctx context.Context, studentID string) (dto.StudentResponse, error)
	ListStudents(ctx context.Context) ([]dto.StudentResponse, error)
	RemoveStudent(ctx context.Context, studentID string, force bool) error

	UpsertAssignment(ctx context.Context, payload dto.AssignmentUpsertRequest) (dto.AssignmentResponse, error)
	FindAssignment(ctx context.Context, name string) (dto.AssignmentResponse, error)
	ListAssignments(ctx context.Context) ([]dto.AssignmentResponse, error)
	RemoveAssignment(ctx context.Context, name string, force bool) error

	SyncNotebookCells(ctx context.Context, assignment, notebook string, cells []ScannedCell, force bool) error
	RemoveNotebook(ctx context.Context, assignment, notebook string, force bool) error
	VerifySourceCells(ctx context.Context, assignment, notebook string) error

	AddSubmission(ctx context.Context, assignment, studentID string, timestamp *time.Time) (models.Submission, error)

	SetManualScore(ctx context.Context, ref GradeRef, score float64) (dto.GradeResponse, error)
	SetExtraCredit(ctx context.Context, ref GradeRef, credit float64) (dto.GradeResponse, error)
	SetComment(ctx context.Context, ref GradeRef, text string) (dto.CommentResponse, error)

	FindGrade(ctx context.Context, ref GradeRef) (dto.GradeResponse, error)
	NotebookScore(ctx context.Context, assignment, notebook, studentID string) (dto.NotebookScoreResponse, error)
	AssignmentScore(ctx context.Context, assignment, studentID string) (dto.AssignmentScoreResponse, error)
	StudentReport(ctx context.Context, studentID string) (dto.StudentReportResponse, error)
}

// GradeRef addresses one cell of one student's submitted notebook by
// natural keys, the way external graders refer to it.
type GradeRef struct {
	Assignment string `validate:"required"`
	Notebook   string `validate:"required"`
	StudentID  string `validate:"required"`
	CellName   string `validate:"required"`
}

type gradebookService struct {
	db        *gorm.DB
	validator *validator.Validate
	penalty   LatePenaltyPolicy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewGradebookService constructs the store service.
func NewGradebookService(db *gorm.DB, validate *validator.Validate, cfg GradebookConfig, logger zerolog.Logger) GradebookService {
	penalty := cfg.LatePenalty
	if penalty == nil {
		penalty = NoLatePenalty{}
	}
	return &gradebookService{
		db:        db,
		validator: validate,
		penalty:   penalty,
		logger:    logger.With().Str("component", "gradebook_service").Str("course", cfg.CourseID).Logger(),
		now:       time.Now,
	}
}

func (s *gradebookService) UpsertStudent(ctx context.Context, payload dto.StudentUpsertRequest) (dto.StudentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.StudentResponse{}, err
	}

	repo := repository.NewStudentRepository(s.db)
	student, err := repo.GetByStudentID(ctx, payload.StudentID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentResponse{}, err
		}
		student = models.Student{
			StudentID: payload.StudentID,
			FirstName: payload.FirstName,
			LastName:  payload.LastName,
			Email:     payload.Email,
		}
		if err := repo.Create(ctx, &student); err != nil {
			return dto.StudentResponse{}, err
		}
		return dto.NewStudentResponse(student), nil
	}

	student.FirstName = payload.FirstName
	student.LastName = payload.LastName
	student.Email = payload.Email
	if err := repo.Update(ctx, &student); err != nil {
		return dto.StudentResponse{}, err
	}

	return dto.NewStudentResponse(student), nil
}

func (s *gradebookService) FindStudent(ctx context.Context, studentID string) (dto.StudentResponse, error) {
	student, err := repository.NewStudentRepository(s.db).GetByStudentID(ctx, studentID)
	if err != nil {
		return dto.StudentResponse{}, mapNotFound(err, ErrStudentNotFound)
	}

	return dto.NewStudentResponse(student), nil
}

func (s *gradebookService) ListStudents(ctx context.Context) ([]dto.StudentResponse, error) {
	students, err := repository.NewStudentRepository(s.db).List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.StudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, dto.NewStudentResponse(student))
	}
	return responses, nil
}

func (s *gradebookService) RemoveStudent(ctx context.Context, studentID string, force bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		student, err := repository.NewStudentRepository(tx).GetByStudentID(ctx, studentID)
		if err != nil {
			return mapNotFound(err, ErrStudentNotFound)
		}

		subRepo := repository.NewSubmissionRepository(tx)
		count, err := subRepo.CountForStudent(ctx, student.ID)
		if err != nil {
			return err
		}
		if count > 0 && !force {
			grades, err := repository.NewGradeRepository(tx).CountForStudent(ctx, student.ID)
			if err != nil {
				return err
			}
			return &ConflictError{Entity: "student", Name: studentID, DependentGrades: grades}
		}

		if count > 0 {
			submissions, err := subRepo.ListForStudent(ctx, student.ID)
			if err != nil {
				return err
			}
			for _, submission := range submissions {
				if err := deleteSubmissionCascade(ctx, tx, submission.ID); err != nil {
					return err
				}
			}
			s.logger.Info().Str("student", studentID).Int("submissions", len(submissions)).Msg("force-removed student with dependents")
		}

		return repository.NewStudentRepository(tx).Delete(ctx, student.ID)
	})
}

func (s *gradebookService) UpsertAssignment(ctx context.Context, payload dto.AssignmentUpsertRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	repo := repository.NewAssignmentRepository(s.db)
	assignment, err := repo.GetByName(ctx, payload.Name)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, err
		}
		assignment = models.Assignment{Name: payload.Name, DueDate: payload.DueDate}
		if err := repo.Create(ctx, &assignment); err != nil {
			return dto.AssignmentResponse{}, err
		}
		return dto.NewAssignmentResponse(assignment), nil
	}

	assignment.DueDate = payload.DueDate
	if err := repo.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *gradebookService) FindAssignment(ctx context.Context, name string) (dto.AssignmentResponse, error) {
	assignment, err := repository.NewAssignmentRepository(s.db).GetByName(ctx, name)
	if err != nil {
		return dto.AssignmentResponse{}, mapNotFound(err, ErrAssignmentNotFound)
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *gradebookService) ListAssignments(ctx context.Context) ([]dto.AssignmentResponse, error) {
	assignments, err := repository.NewAssignmentRepository(s.db).List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, dto.NewAssignmentResponse(assignment))
	}
	return responses, nil
}

func (s *gradebookService) RemoveAssignment(ctx context.Context, name string, force bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignment, err := repository.NewAssignmentRepository(tx).GetByName(ctx, name)
		if err != nil {
			return mapNotFound(err, ErrAssignmentNotFound)
		}

		subRepo := repository.NewSubmissionRepository(tx)
		count, err := subRepo.CountForAssignment(ctx, assignment.ID)
		if err != nil {
			return err
		}
		if count > 0 && !force {
			grades, err := repository.NewGradeRepository(tx).CountForAssignment(ctx, assignment.ID)
			if err != nil {
				return err
			}
			return &ConflictError{Entity: "assignment", Name: name, DependentGrades: grades}
		}

		if count > 0 {
			submissions, err := subRepo.ListForAssignment(ctx, assignment.ID)
			if err != nil {
				return err
			}
			for _, submission := range submissions {
				if err := deleteSubmissionCascade(ctx, tx, submission.ID); err != nil {
					return err
				}
			}
		}

		notebooks, err := repository.NewNotebookRepository(tx).ListForAssignment(ctx, assignment.ID)
		if err != nil {
			return err
		}
		for _, notebook := range notebooks {
			if err := deleteNotebookCascade(ctx, tx, notebook.ID); err != nil {
				return err
			}
		}

		return repository.NewAssignmentRepository(tx).Delete(ctx, assignment.ID)
	})
}

func (s *gradebookService) AddSubmission(ctx context.Context, assignment, studentID string, timestamp *time.Time) (models.Submission, error) {
	var result models.Submission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		asn, err := repository.NewAssignmentRepository(tx).GetByName(ctx, assignment)
		if err != nil {
			return mapNotFound(err, ErrAssignmentNotFound)
		}
		student, err := repository.NewStudentRepository(tx).GetByStudentID(ctx, studentID)
		if err != nil {
			return mapNotFound(err, ErrStudentNotFound)
		}

		subRepo := repository.NewSubmissionRepository(tx)
		submission, err := subRepo.GetByAssignmentAndStudent(ctx, asn.ID, student.ID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			submission = models.Submission{
				StudentID:        student.ID,
				AssignmentID:     asn.ID,
				Timestamp:        timestamp,
				TotalSecondsLate: asn.SecondsLate(timestamp),
			}
			if err := subRepo.Create(ctx, &submission); err != nil {
				return err
			}
		} else {
			submission.Timestamp = timestamp
			submission.TotalSecondsLate = asn.SecondsLate(timestamp)
			if err := subRepo.Update(ctx, &submission); err != nil {
				return err
			}
		}

		notebooks, err := repository.NewNotebookRepository(tx).ListForAssignment(ctx, asn.ID)
		if err != nil {
			return err
		}
		for _, notebook := range notebooks {
			if err := s.ensureSkeleton(ctx, tx, &submission, notebook); err != nil {
				return err
			}
		}

		result = submission
		return nil
	})
	if err != nil {
		return models.Submission{}, err
	}

	return result, nil
}

// ensureSkeleton creates the submitted notebook plus one grade row per
// grade cell and one comment row per answer cell, or leaves existing rows
// untouched so re-grading never duplicates anything.
func (s *gradebookService) ensureSkeleton(ctx context.Context, tx *gorm.DB, submission *models.Submission, notebook models.Notebook) error {
	subRepo := repository.NewSubmissionRepository(tx)
	gradeRepo := repository.NewGradeRepository(tx)
	commentRepo := repository.NewCommentRepository(tx)
	cellRepo := repository.NewCellRepository(tx)

	submitted, err := subRepo.GetSubmittedNotebook(ctx, submission.ID, notebook.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		submitted = models.SubmittedNotebook{SubmissionID: submission.ID, NotebookID: notebook.ID}
		if err := subRepo.CreateSubmittedNotebook(ctx, &submitted); err != nil {
			return err
		}
	}

	needsManual := false
	for _, cell := range notebook.GradeCells {
		if _, err := gradeRepo.GetByCell(ctx, cell.ID, submitted.ID); err == nil {
			if !cell.AutoScored() {
				needsManual = true
			}
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		grade := models.Grade{
			GradeCellID:         cell.ID,
			SubmittedNotebookID: submitted.ID,
			MaxScore:            cell.MaxScore,
			NeedsManualGrade:    !cell.AutoScored(),
		}
		if err := gradeRepo.Create(ctx, &grade); err != nil {
			return err
		}
		if grade.NeedsManualGrade {
			needsManual = true
		}

		// Task cell feedback hangs off the source cell since tasks are
		// never solution cells.
		if cell.Kind() == cellmeta.KindTask {
			source, err := cellRepo.GetSourceCell(ctx, notebook.ID, cell.Name)
			if err != nil {
				return err
			}
			if _, err := commentRepo.GetBySourceCell(ctx, source.ID, submitted.ID); err == nil {
				continue
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			sourceID := source.ID
			if err := commentRepo.Create(ctx, &models.Comment{SourceCellID: &sourceID, SubmittedNotebookID: submitted.ID}); err != nil {
				return err
			}
		}
	}

	for _, cell := range notebook.SolutionCells {
		if _, err := commentRepo.GetBySolutionCell(ctx, cell.ID, submitted.ID); err == nil {
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		cellID := cell.ID
		if err := commentRepo.Create(ctx, &models.Comment{SolutionCellID: &cellID, SubmittedNotebookID: submitted.ID}); err != nil {
			return err
		}
	}

	if submitted.NeedsManualGrade != needsManual {
		submitted.NeedsManualGrade = needsManual
		if err := subRepo.UpdateSubmittedNotebook(ctx, &submitted); err != nil {
			return err
		}
	}
	return nil
}

func (s *gradebookService) RemoveNotebook(ctx context.Context, assignment, notebook string, force bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		asn, err := repository.NewAssignmentRepository(tx).GetByName(ctx, assignment)
		if err != nil {
			return mapNotFound(err, ErrAssignmentNotFound)
		}
		nb, err := repository.NewNotebookRepository(tx).GetByName(ctx, asn.ID, notebook)
		if err != nil {
			return mapNotFound(err, ErrNotebookNotFound)
		}

		count, err := repository.NewSubmissionRepository(tx).CountSubmittedNotebooksForNotebook(ctx, nb.ID)
		if err != nil {
			return err
		}
		if count > 0 && !force {
			grades, err := repository.NewGradeRepository(tx).CountForNotebook(ctx, nb.ID)
			if err != nil {
				return err
			}
			return &ConflictError{Entity: "notebook", Name: notebook, DependentGrades: grades}
		}

		return deleteNotebookCascade(ctx, tx, nb.ID)
	})
}

// deleteSubmissionCascade removes one submission and everything under it.
func deleteSubmissionCascade(ctx context.Context, tx *gorm.DB, submissionID uint) error {
	var notebooks []models.SubmittedNotebook
	if err := tx.WithContext(ctx).Where("submission_id = ?", submissionID).Find(&notebooks).Error; err != nil {
		return err
	}
	for _, submitted := range notebooks {
		if err := tx.WithContext(ctx).Where("submitted_notebook_id = ?", submitted.ID).Delete(&models.Grade{}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Where("submitted_notebook_id = ?", submitted.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
	}
	if err := tx.WithContext(ctx).Where("submission_id = ?", submissionID).Delete(&models.SubmittedNotebook{}).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Delete(&models.Submission{}, submissionID).Error
}

// deleteNotebookCascade removes a template notebook, its cells, and any
// dependent submitted rows. Callers decide whether dependents make this a
// conflict; by the time this runs the decision is final.
func deleteNotebookCascade(ctx context.Context, tx *gorm.DB, notebookID uint) error {
	var submitted []models.SubmittedNotebook
	if err := tx.WithContext(ctx).Where("notebook_id = ?", notebookID).Find(&submitted).Error; err != nil {
		return err
	}
	for _, sn := range submitted {
		if err := tx.WithContext(ctx).Where("submitted_notebook_id = ?", sn.ID).Delete(&models.Grade{}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Where("submitted_notebook_id = ?", sn.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
	}
	if err := tx.WithContext(ctx).Where("notebook_id = ?", notebookID).Delete(&models.SubmittedNotebook{}).Error; err != nil {
		return err
	}
	for _, model := range []any{&models.GradeCell{}, &models.SolutionCell{}, &models.SourceCell{}} {
		if err := tx.WithContext(ctx).Where("notebook_id = ?", notebookID).Delete(model).Error; err != nil {
			return err
		}
	}
	return tx.WithContext(ctx).Delete(&models.Notebook{}, notebookID).Error
}

func mapNotFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
