package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/edulabs-io/gradebook-api/internal/cellmeta"
	"github.com/edulabs-io/gradebook-api/internal/checksum"
	"github.com/edulabs-io/gradebook-api/internal/models"
	"github.com/edulabs-io/gradebook-api/internal/observability"
	"github.com/edulabs-io/gradebook-api/internal/repository"
)

// GradeOptions tunes one grading pass.
type GradeOptions struct {
	// ForceReinit clears previously recorded manual scores before
	// re-scoring. Without it, re-running the autograder never touches a
	// human's override.
	ForceReinit bool
}

// Handin is one student's submitted notebook document awaiting execution
// and grading.
type Handin struct {
	StudentID string
	Notebook  string
	Timestamp *time.Time
	Document  io.Reader
}

// NotebookOutcome is the result of grading one submitted notebook.
type NotebookOutcome struct {
	StudentID        string
	Notebook         string
	Score            float64
	MaxScore         float64
	NeedsManualGrade bool
	FailedTests      bool
	// TamperedCells lists protected cells whose content no longer matches
	// the master checksum. They score zero and are flagged for review.
	TamperedCells []string
	// MissingNotebook is set when the student's hand-in did not contain
	// the notebook at all; every cell then scores as zero/needs-manual.
	MissingNotebook bool
}

// BatchOutcome pairs a student with either their grading result or the
// error that kept this one submission from being graded.
type BatchOutcome struct {
	StudentID string
	Outcome   NotebookOutcome
	Err       error
}

// AutogradeConfig carries execution knobs for the autograder.
type AutogradeConfig struct {
	ExecutionTimeout time.Duration
}

// AutogradeService turns executed submissions into grade and comment rows.
type AutogradeService interface {
	GradeSubmission(ctx context.Context, assignment, studentID string, notebook ExecutedNotebook, timestamp *time.Time, opts GradeOptions) (NotebookOutcome, error)
	GradeDocument(ctx context.Context, assignment string, handin Handin, opts GradeOptions) (NotebookOutcome, error)
	GradeBatch(ctx context.Context, assignment string, handins []Handin, opts GradeOptions) []BatchOutcome
}

type autogradeService struct {
	db        *gorm.DB
	gradebook GradebookService
	executor  Executor
	strategy  PartialCreditStrategy
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewAutogradeService constructs the grading engine. strategy and executor
// may be nil: scoring then defaults to full credit and GradeDocument
// becomes unavailable.
func NewAutogradeService(db *gorm.DB, gradebook GradebookService, executor Executor, strategy PartialCreditStrategy, cfg AutogradeConfig, logger zerolog.Logger) AutogradeService {
	if strategy == nil {
		strategy = FullCreditStrategy{}
	}
	timeout := cfg.ExecutionTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &autogradeService{
		db:        db,
		gradebook: gradebook,
		executor:  executor,
		strategy:  strategy,
		timeout:   timeout,
		logger:    logger.With().Str("component", "autograde_service").Logger(),
	}
}

// ErrNoExecutor indicates GradeDocument was called without an execution
// collaborator configured.
var ErrNoExecutor = errors.New("no executor configured")

func (s *autogradeService) GradeDocument(ctx context.Context, assignment string, handin Handin, opts GradeOptions) (NotebookOutcome, error) {
	if s.executor == nil {
		return NotebookOutcome{}, ErrNoExecutor
	}

	executed, err := s.executor.Execute(ctx, handin.Document, s.timeout)
	if err != nil {
		if !errors.Is(err, ErrExecutionTimeout) {
			return NotebookOutcome{}, err
		}
		// Nothing survived the interrupt; grade the notebook as missing
		// so the student still gets a row instead of stalling the batch.
		s.logger.Warn().Str("assignment", assignment).Str("student", handin.StudentID).Msg("execution timed out, scoring as failed")
		executed = ExecutedNotebook{Name: handin.Notebook}
	}
	if executed.Name == "" {
		executed.Name = handin.Notebook
	}

	return s.GradeSubmission(ctx, assignment, handin.StudentID, executed, handin.Timestamp, opts)
}

// GradeBatch grades many hand-ins, isolating failures: one student's broken
// submission is reported in their BatchOutcome and the rest of the class is
// still graded.
func (s *autogradeService) GradeBatch(ctx context.Context, assignment string, handins []Handin, opts GradeOptions) []BatchOutcome {
	outcomes := make([]BatchOutcome, 0, len(handins))
	for _, handin := range handins {
		outcome, err := s.GradeDocument(ctx, assignment, handin, opts)
		if err != nil {
			s.logger.Error().Err(err).Str("assignment", assignment).Str("student", handin.StudentID).Msg("submission could not be graded")
		}
		outcomes = append(outcomes, BatchOutcome{StudentID: handin.StudentID, Outcome: outcome, Err: err})
	}
	return outcomes
}

func (s *autogradeService) GradeSubmission(ctx context.Context, assignment, studentID string, notebook ExecutedNotebook, timestamp *time.Time, opts GradeOptions) (NotebookOutcome, error) {
	tracer := otel.Tracer("github.com/edulabs-io/gradebook-api/internal/service/autograde")
	ctx, span := tracer.Start(ctx, "autograde.submission")
	span.SetAttributes(
		attribute.String("autograde.assignment", assignment),
		attribute.String("autograde.student", studentID),
		attribute.String("autograde.notebook", notebook.Name),
	)
	defer span.End()

	started := time.Now()
	outcome, err := s.gradeSubmission(ctx, assignment, studentID, notebook, timestamp, opts)
	observability.AutogradeLatency().Observe(time.Since(started).Seconds())
	if err != nil {
		observability.AutogradeRuns().WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "autograde_failed")
		return NotebookOutcome{}, err
	}

	observability.AutogradeRuns().WithLabelValues("ok").Inc()
	span.SetAttributes(
		attribute.Float64("autograde.score", outcome.Score),
		attribute.Bool("autograde.needs_manual", outcome.NeedsManualGrade),
	)
	return outcome, nil
}

func (s *autogradeService) gradeSubmission(ctx context.Context, assignment, studentID string, notebook ExecutedNotebook, timestamp *time.Time, opts GradeOptions) (NotebookOutcome, error) {
	// The skeleton is ensured first so a first-time autograde and a
	// re-run walk exactly the same path.
	if _, err := s.gradebook.AddSubmission(ctx, assignment, studentID, timestamp); err != nil {
		return NotebookOutcome{}, err
	}

	outcome := NotebookOutcome{StudentID: studentID, Notebook: notebook.Name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		asn, err := repository.NewAssignmentRepository(tx).GetByName(ctx, assignment)
		if err != nil {
			return mapNotFound(err, ErrAssignmentNotFound)
		}
		nb, err := repository.NewNotebookRepository(tx).GetByName(ctx, asn.ID, notebook.Name)
		if err != nil {
			return mapNotFound(err, ErrNotebookNotFound)
		}
		student, err := repository.NewStudentRepository(tx).GetByStudentID(ctx, studentID)
		if err != nil {
			return mapNotFound(err, ErrStudentNotFound)
		}
		subRepo := repository.NewSubmissionRepository(tx)
		submission, err := subRepo.GetByAssignmentAndStudent(ctx, asn.ID, student.ID)
		if err != nil {
			return mapNotFound(err, ErrSubmissionNotFound)
		}
		submitted, err := subRepo.GetSubmittedNotebook(ctx, submission.ID, nb.ID)
		if err != nil {
			return mapNotFound(err, ErrSubmissionNotFound)
		}

		sources, err := repository.NewCellRepository(tx).SourceCells(ctx, nb.ID)
		if err != nil {
			return err
		}
		sourceByName := make(map[string]models.SourceCell, len(sources))
		for _, source := range sources {
			sourceByName[source.Name] = source
		}

		outcome.MissingNotebook = len(notebook.Cells) == 0
		if err := s.gradeCells(ctx, tx, notebook, submitted, sourceByName, opts, &outcome); err != nil {
			return err
		}
		if err := s.deriveComments(ctx, tx, notebook, submitted, sourceByName, &outcome); err != nil {
			return err
		}

		submitted.NeedsManualGrade = outcome.NeedsManualGrade
		submitted.FailedTests = outcome.FailedTests
		return subRepo.UpdateSubmittedNotebook(ctx, &submitted)
	})
	if err != nil {
		return NotebookOutcome{}, err
	}

	return outcome, nil
}

// gradeCells walks the grade skeleton and writes auto scores in place.
func (s *autogradeService) gradeCells(ctx context.Context, tx *gorm.DB, notebook ExecutedNotebook, submitted models.SubmittedNotebook, sources map[string]models.SourceCell, opts GradeOptions, outcome *NotebookOutcome) error {
	gradeRepo := repository.NewGradeRepository(tx)
	grades, err := gradeRepo.ListForSubmittedNotebook(ctx, submitted.ID)
	if err != nil {
		return err
	}

	for _, grade := range grades {
		cell := grade.GradeCell
		if opts.ForceReinit {
			grade.ManualScore = nil
			grade.ExtraCredit = nil
		}

		if cell.AutoScored() {
			s.autoScore(notebook, cell, &grade, sources, outcome)
		} else {
			// Graded-solution and task cells only ever get manual scores.
			grade.NeedsManualGrade = grade.ManualScore == nil
		}

		if err := gradeRepo.Update(ctx, &grade); err != nil {
			return err
		}
		observability.CellsScored().Inc()

		outcome.Score += grade.ScoreWithExtraCredit()
		outcome.MaxScore += grade.MaxScore
		if grade.NeedsManualGrade {
			outcome.NeedsManualGrade = true
		}
	}
	return nil
}

// autoScore scores one pure test cell from its execution result.
func (s *autogradeService) autoScore(notebook ExecutedNotebook, cell models.GradeCell, grade *models.Grade, sources map[string]models.SourceCell, outcome *NotebookOutcome) {
	zero := 0.0

	executed, ok := notebook.CellByName(cell.Name)
	if !ok {
		// A missing test cell is an anomaly, not a crash: score zero and
		// ask a human to look.
		grade.AutoScore = &zero
		grade.NeedsManualGrade = true
		s.logger.Warn().Str("notebook", notebook.Name).Str("cell", cell.Name).Msg("expected cell missing from submission")
		return
	}

	if source, found := sources[cell.Name]; found && source.Protected() {
		if !checksum.Matches(source.Checksum, executed.Content, source.Kind(), cellmeta.CellType(source.CellType), source.Locked) {
			grade.AutoScore = &zero
			grade.NeedsManualGrade = true
			outcome.TamperedCells = append(outcome.TamperedCells, cell.Name)
			observability.ChecksumMismatches().Inc()
			s.logger.Warn().Str("notebook", notebook.Name).Str("cell", cell.Name).Msg("protected cell was modified")
			return
		}
	}

	if executed.HasError() {
		grade.AutoScore = &zero
		grade.NeedsManualGrade = false
		outcome.FailedTests = true
		return
	}

	score := s.strategy.Score(cell, executed)
	if score < 0 {
		score = 0
	}
	if score > cell.MaxScore {
		score = cell.MaxScore
	}
	grade.AutoScore = &score
	grade.NeedsManualGrade = false
}

// deriveComments refreshes the answer-cell comments: unchanged stubs mean
// "no response", tampered protected content is flagged rather than treated
// as an empty answer.
func (s *autogradeService) deriveComments(ctx context.Context, tx *gorm.DB, notebook ExecutedNotebook, submitted models.SubmittedNotebook, sources map[string]models.SourceCell, outcome *NotebookOutcome) error {
	commentRepo := repository.NewCommentRepository(tx)
	comments, err := commentRepo.ListForSubmittedNotebook(ctx, submitted.ID)
	if err != nil {
		return err
	}

	for _, comment := range comments {
		var name string
		switch {
		case comment.SolutionCell != nil:
			name = comment.SolutionCell.Name
		case comment.SourceCell != nil:
			name = comment.SourceCell.Name
		default:
			continue
		}

		source, haveSource := sources[name]
		executed, haveCell := notebook.CellByName(name)
		if !haveCell || !haveSource {
			comment.NoResponse = true
			comment.ContentChanged = false
			if err := commentRepo.Update(ctx, &comment); err != nil {
				return err
			}
			continue
		}

		unchanged := checksum.Matches(source.Checksum, executed.Content, source.Kind(), cellmeta.CellType(source.CellType), source.Locked)
		if source.Protected() && comment.SourceCell != nil {
			// Task cells are protected; an edit is tampering, not an
			// answer.
			comment.NoResponse = false
			comment.ContentChanged = !unchanged
			if !unchanged {
				comment.Text = nil
				outcome.TamperedCells = append(outcome.TamperedCells, name)
				observability.ChecksumMismatches().Inc()
			}
		} else {
			// Unchanged from the released stub means no response given.
			comment.NoResponse = unchanged
			comment.ContentChanged = false
			if unchanged {
				comment.Text = nil
			}
		}

		if err := commentRepo.Update(ctx, &comment); err != nil {
			return err
		}
	}
	return nil
}
