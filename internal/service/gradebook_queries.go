package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/edulabs-io/gradebook-api/internal/dto"
	"github.com/edulabs-io/gradebook-api/internal/models"
	"github.com/edulabs-io/gradebook-api/internal/repository"
)

// resolved bundles the rows addressed by a GradeRef's natural keys.
type resolved struct {
	assignment models.Assignment
	notebook   models.Notebook
	submission models.Submission
	submitted  models.SubmittedNotebook
}

func (s *gradebookService) resolve(ctx context.Context, db *gorm.DB, assignment, notebook, studentID string) (resolved, error) {
	var out resolved
	var err error

	out.assignment, err = repository.NewAssignmentRepository(db).GetByName(ctx, assignment)
	if err != nil {
		return out, mapNotFound(err, ErrAssignmentNotFound)
	}
	out.notebook, err = repository.NewNotebookRepository(db).GetByName(ctx, out.assignment.ID, notebook)
	if err != nil {
		return out, mapNotFound(err, ErrNotebookNotFound)
	}
	student, err := repository.NewStudentRepository(db).GetByStudentID(ctx, studentID)
	if err != nil {
		return out, mapNotFound(err, ErrStudentNotFound)
	}
	subRepo := repository.NewSubmissionRepository(db)
	out.submission, err = subRepo.GetByAssignmentAndStudent(ctx, out.assignment.ID, student.ID)
	if err != nil {
		return out, mapNotFound(err, ErrSubmissionNotFound)
	}
	out.submitted, err = subRepo.GetSubmittedNotebook(ctx, out.submission.ID, out.notebook.ID)
	if err != nil {
		return out, mapNotFound(err, ErrSubmissionNotFound)
	}
	return out, nil
}

// SetManualScore records a human override for one grade cell. The override
// wins over any automatic score and clears the needs-manual flag; the
// notebook-level flag is re-derived from what is left.
func (s *gradebookService) SetManualScore(ctx context.Context, ref GradeRef, score float64) (dto.GradeResponse, error) {
	tracer := otel.Tracer("github.com/edulabs-io/gradebook-api/internal/service/gradebook")
	ctx, span := tracer.Start(ctx, "gradebook.manual_score")
	span.SetAttributes(
		attribute.String("gradebook.assignment", ref.Assignment),
		attribute.String("gradebook.cell", ref.CellName),
		attribute.Float64("gradebook.score", score),
	)
	defer span.End()

	if err := s.validator.Struct(ref); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.GradeResponse{}, err
	}

	var response dto.GradeResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		grade, submitted, err := s.lookupGrade(ctx, tx, ref)
		if err != nil {
			return err
		}

		grade.ManualScore = &score
		grade.NeedsManualGrade = false
		gradeRepo := repository.NewGradeRepository(tx)
		if err := gradeRepo.Update(ctx, &grade); err != nil {
			return err
		}

		if err := s.refreshNotebookFlags(ctx, tx, submitted); err != nil {
			return err
		}

		response = dto.NewGradeResponse(grade)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "manual_score_failed")
		return dto.GradeResponse{}, err
	}

	s.logger.Info().
		Str("assignment", ref.Assignment).
		Str("student", ref.StudentID).
		Str("cell", ref.CellName).
		Float64("score", score).
		Msg("manual score recorded")
	return response, nil
}

// SetExtraCredit records bonus points on top of a cell's capped score.
func (s *gradebookService) SetExtraCredit(ctx context.Context, ref GradeRef, credit float64) (dto.GradeResponse, error) {
	if err := s.validator.Struct(ref); err != nil {
		return dto.GradeResponse{}, err
	}

	var response dto.GradeResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		grade, _, err := s.lookupGrade(ctx, tx, ref)
		if err != nil {
			return err
		}
		grade.ExtraCredit = &credit
		if err := repository.NewGradeRepository(tx).Update(ctx, &grade); err != nil {
			return err
		}
		response = dto.NewGradeResponse(grade)
		return nil
	})
	if err != nil {
		return dto.GradeResponse{}, err
	}
	return response, nil
}

// SetComment records grader feedback for one answer cell.
func (s *gradebookService) SetComment(ctx context.Context, ref GradeRef, text string) (dto.CommentResponse, error) {
	if err := s.validator.Struct(ref); err != nil {
		return dto.CommentResponse{}, err
	}

	var response dto.CommentResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, err := s.resolve(ctx, tx, ref.Assignment, ref.Notebook, ref.StudentID)
		if err != nil {
			return err
		}
		comment, err := s.lookupComment(ctx, tx, res, ref.CellName)
		if err != nil {
			return err
		}
		comment.Text = &text
		if err := repository.NewCommentRepository(tx).Update(ctx, &comment); err != nil {
			return err
		}
		response = dto.NewCommentResponse(comment)
		return nil
	})
	if err != nil {
		return dto.CommentResponse{}, err
	}
	return response, nil
}

func (s *gradebookService) lookupGrade(ctx context.Context, db *gorm.DB, ref GradeRef) (models.Grade, models.SubmittedNotebook, error) {
	res, err := s.resolve(ctx, db, ref.Assignment, ref.Notebook, ref.StudentID)
	if err != nil {
		return models.Grade{}, models.SubmittedNotebook{}, err
	}
	cell, err := repository.NewCellRepository(db).GetGradeCell(ctx, res.notebook.ID, ref.CellName)
	if err != nil {
		return models.Grade{}, models.SubmittedNotebook{}, mapNotFound(err, ErrCellNotFound)
	}
	grade, err := repository.NewGradeRepository(db).GetByCell(ctx, cell.ID, res.submitted.ID)
	if err != nil {
		return models.Grade{}, models.SubmittedNotebook{}, mapNotFound(err, ErrCellNotFound)
	}
	return grade, res.submitted, nil
}

func (s *gradebookService) lookupComment(ctx context.Context, db *gorm.DB, res resolved, cellName string) (models.Comment, error) {
	cellRepo := repository.NewCellRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	if cell, err := cellRepo.GetSolutionCell(ctx, res.notebook.ID, cellName); err == nil {
		comment, err := commentRepo.GetBySolutionCell(ctx, cell.ID, res.submitted.ID)
		if err != nil {
			return models.Comment{}, mapNotFound(err, ErrCellNotFound)
		}
		comment.SolutionCell = &cell
		return comment, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Comment{}, err
	}

	cell, err := cellRepo.GetSourceCell(ctx, res.notebook.ID, cellName)
	if err != nil {
		return models.Comment{}, mapNotFound(err, ErrCellNotFound)
	}
	comment, err := commentRepo.GetBySourceCell(ctx, cell.ID, res.submitted.ID)
	if err != nil {
		return models.Comment{}, mapNotFound(err, ErrCellNotFound)
	}
	comment.SourceCell = &cell
	return comment, nil
}

// refreshNotebookFlags re-derives the needs-manual flag from the grades
// still waiting for a human.
func (s *gradebookService) refreshNotebookFlags(ctx context.Context, db *gorm.DB, submitted models.SubmittedNotebook) error {
	grades, err := repository.NewGradeRepository(db).ListForSubmittedNotebook(ctx, submitted.ID)
	if err != nil {
		return err
	}
	needsManual := false
	for _, grade := range grades {
		if grade.NeedsManualGrade {
			needsManual = true
			break
		}
	}
	if submitted.NeedsManualGrade == needsManual {
		return nil
	}
	submitted.NeedsManualGrade = needsManual
	return repository.NewSubmissionRepository(db).UpdateSubmittedNotebook(ctx, &submitted)
}

// FindGrade returns the current state of one grade row.
func (s *gradebookService) FindGrade(ctx context.Context, ref GradeRef) (dto.GradeResponse, error) {
	if err := s.validator.Struct(ref); err != nil {
		return dto.GradeResponse{}, err
	}
	grade, _, err := s.lookupGrade(ctx, s.db, ref)
	if err != nil {
		return dto.GradeResponse{}, err
	}
	return dto.NewGradeResponse(grade), nil
}

// NotebookScore aggregates one submitted notebook.
func (s *gradebookService) NotebookScore(ctx context.Context, assignment, notebook, studentID string) (dto.NotebookScoreResponse, error) {
	res, err := s.resolve(ctx, s.db, assignment, notebook, studentID)
	if err != nil {
		return dto.NotebookScoreResponse{}, err
	}
	return s.notebookScore(ctx, s.db, res.notebook, res.submitted)
}

func (s *gradebookService) notebookScore(ctx context.Context, db *gorm.DB, notebook models.Notebook, submitted models.SubmittedNotebook) (dto.NotebookScoreResponse, error) {
	grades, err := repository.NewGradeRepository(db).ListForSubmittedNotebook(ctx, submitted.ID)
	if err != nil {
		return dto.NotebookScoreResponse{}, err
	}
	comments, err := repository.NewCommentRepository(db).ListForSubmittedNotebook(ctx, submitted.ID)
	if err != nil {
		return dto.NotebookScoreResponse{}, err
	}

	response := dto.NotebookScoreResponse{
		Notebook:         notebook.Name,
		NeedsManualGrade: submitted.NeedsManualGrade,
		FailedTests:      submitted.FailedTests,
		Grades:           dto.NewGradeResponseSlice(grades),
		Comments:         dto.NewCommentResponseSlice(comments),
	}
	for _, grade := range grades {
		response.Score += grade.ScoreWithExtraCredit()
		response.MaxScore += grade.MaxScore
	}
	return response, nil
}

// AssignmentScore aggregates a student's whole submission and applies the
// configured late penalty at this level only.
func (s *gradebookService) AssignmentScore(ctx context.Context, assignment, studentID string) (dto.AssignmentScoreResponse, error) {
	asn, err := repository.NewAssignmentRepository(s.db).GetByName(ctx, assignment)
	if err != nil {
		return dto.AssignmentScoreResponse{}, mapNotFound(err, ErrAssignmentNotFound)
	}
	student, err := repository.NewStudentRepository(s.db).GetByStudentID(ctx, studentID)
	if err != nil {
		return dto.AssignmentScoreResponse{}, mapNotFound(err, ErrStudentNotFound)
	}
	subRepo := repository.NewSubmissionRepository(s.db)
	submission, err := subRepo.GetByAssignmentAndStudent(ctx, asn.ID, student.ID)
	if err != nil {
		return dto.AssignmentScoreResponse{}, mapNotFound(err, ErrSubmissionNotFound)
	}

	return s.assignmentScore(ctx, asn, student, submission)
}

func (s *gradebookService) assignmentScore(ctx context.Context, asn models.Assignment, student models.Student, submission models.Submission) (dto.AssignmentScoreResponse, error) {
	notebooks, err := repository.NewNotebookRepository(s.db).ListForAssignment(ctx, asn.ID)
	if err != nil {
		return dto.AssignmentScoreResponse{}, err
	}

	response := dto.AssignmentScoreResponse{
		Assignment:       asn.Name,
		StudentID:        student.StudentID,
		Timestamp:        submission.Timestamp,
		TotalSecondsLate: submission.TotalSecondsLate,
	}

	subRepo := repository.NewSubmissionRepository(s.db)
	for _, notebook := range notebooks {
		submitted, err := subRepo.GetSubmittedNotebook(ctx, submission.ID, notebook.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return dto.AssignmentScoreResponse{}, err
		}
		nbScore, err := s.notebookScore(ctx, s.db, notebook, submitted)
		if err != nil {
			return dto.AssignmentScoreResponse{}, err
		}
		response.Notebooks = append(response.Notebooks, nbScore)
		response.RawScore += nbScore.Score
		response.MaxScore += nbScore.MaxScore
		if nbScore.NeedsManualGrade {
			response.NeedsManualGrade = true
		}
	}

	deduction, final := applyLatePenalty(s.penalty, submission.TotalSecondsLate, response.RawScore, response.MaxScore)
	response.LatePenalty = deduction
	response.FinalScore = final
	return response, nil
}

// StudentReport summarises every submission one student has made.
func (s *gradebookService) StudentReport(ctx context.Context, studentID string) (dto.StudentReportResponse, error) {
	student, err := repository.NewStudentRepository(s.db).GetByStudentID(ctx, studentID)
	if err != nil {
		return dto.StudentReportResponse{}, mapNotFound(err, ErrStudentNotFound)
	}

	submissions, err := repository.NewSubmissionRepository(s.db).ListForStudent(ctx, student.ID)
	if err != nil {
		return dto.StudentReportResponse{}, err
	}

	report := dto.StudentReportResponse{Student: dto.NewStudentResponse(student)}
	for _, submission := range submissions {
		score, err := s.assignmentScore(ctx, submission.Assignment, student, submission)
		if err != nil {
			return dto.StudentReportResponse{}, err
		}
		report.Assignments = append(report.Assignments, score)
	}
	return report, nil
}
