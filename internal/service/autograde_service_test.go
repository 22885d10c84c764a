package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/edulabs-io/gradebook-api/internal/dto"
	"github.com/edulabs-io/gradebook-api/internal/models"
)

// executedTemplate mirrors templateCells after a student run: answers are
// filled in, protected cells are untouched.
func executedTemplate() ExecutedNotebook {
	return ExecutedNotebook{
		Name: "problem1",
		Cells: []ExecutedCell{
			{Name: "ex1", Content: "assert add(1, 2) == 3", Outputs: []CellOutput{{Kind: OutputResult, Text: "True"}}},
			{Name: "answer1", Content: "def add(a, b):\n    return a + b"},
			{Name: "essay1", Content: "Addition carries digits leftward."},
			{Name: "setup", Content: "import math"},
			{Name: "task1", Content: "Complete all parts above."},
			{Name: "intro", Content: "Welcome"},
		},
	}
}

func withCell(notebook ExecutedNotebook, name string, mutate func(*ExecutedCell)) ExecutedNotebook {
	for i := range notebook.Cells {
		if notebook.Cells[i].Name == name {
			mutate(&notebook.Cells[i])
		}
	}
	return notebook
}

func setupAutogradeTest(t *testing.T) (GradebookService, AutogradeService) {
	t.Helper()
	db := setupTestDB(t)
	gradebook := newTestGradebook(t, db, nil)
	seedTemplate(t, gradebook, nil)

	_, err := gradebook.UpsertStudent(context.Background(), dto.StudentUpsertRequest{StudentID: "s100"})
	require.NoError(t, err)

	autograde := NewAutogradeService(db, gradebook, nil, nil, AutogradeConfig{}, zerolog.Nop())
	return gradebook, autograde
}

func TestGradeSubmissionCleanRunAwardsFullCredit(t *testing.T) {
	gradebook, autograde := setupAutogradeTest(t)
	ctx := context.Background()

	outcome, err := autograde.GradeSubmission(ctx, "ps1", "s100", executedTemplate(), nil, GradeOptions{})
	require.NoError(t, err)
	require.False(t, outcome.MissingNotebook)
	require.False(t, outcome.FailedTests)
	require.Equal(t, 2.0, outcome.Score, "only the pure test cell is auto-scored")
	require.Equal(t, 9.0, outcome.MaxScore)
	require.True(t, outcome.NeedsManualGrade, "answer and task cells wait for a human")
	require.Empty(t, outcome.TamperedCells)

	grade, err := gradebook.FindGrade(ctx, GradeRef{Assignment: "ps1", Notebook: "problem1", StudentID: "s100", CellName: "ex1"})
	require.NoError(t, err)
	require.Equal(t, 2.0, *grade.AutoScore)
	require.False(t, grade.NeedsManualGrade)
}

func TestGradeSubmissionFailedTestScoresZeroThenManualOverrideWins(t *testing.T) {
	gradebook, autograde := setupAutogradeTest(t)
	ctx := context.Background()
	ref := GradeRef{Assignment: "ps1", Notebook: "problem1", StudentID: "s100", CellName: "ex1"}

	failed := withCell(executedTemplate(), "ex1", func(cell *ExecutedCell) {
		cell.Outputs = []CellOutput{{Kind: OutputError, Text: "AssertionError"}}
	})

	outcome, err := autograde.GradeSubmission(ctx, "ps1", "s100", failed, nil, GradeOptions{})
	require.NoError(t, err)
	require.True(t, outcome.FailedTests)
	require.Zero(t, outcome.Score)

	grade, err := gradebook.FindGrade(ctx, ref)
	require.NoError(t, err)
	require.Equal(t, 0.0, *grade.AutoScore)
	require.False(t, grade.NeedsManualGrade, "a failed test is a scored result, not a review request")

	// An instructor disagrees with the autograder.
	_, err = gradebook.SetManualScore(ctx, ref, 1.5)
	require.NoError(t, err)

	// Re-running the autograder must not clobber the override.
	outcome, err = autograde.GradeSubmission(ctx, "ps1", "s100", executedTemplate(), nil, GradeOptions{})
	require.NoError(t, err)
	require.Equal(t, 1.5, outcome.Score)

	grade, err = gradebook.FindGrade(ctx, ref)
	require.NoError(t, err)
	require.Equal(t, 2.0, *grade.AutoScore, "the fresh automatic score is still recorded")
	require.Equal(t, 1.5, grade.Score)

	// Unless the caller explicitly asks for a clean slate.
	outcome, err = autograde.GradeSubmission(ctx, "ps1", "s100", executedTemplate(), nil, GradeOptions{ForceReinit: true})
	require.NoError(t, err)
	require.Equal(t, 2.0, outcome.Score)

	grade, err = gradebook.FindGrade(ctx, ref)
	require.NoError(t, err)
	require.Nil(t, grade.ManualScore)
}

func TestGradeSubmissionFlagsTamperedProtectedCells(t *testing.T) {
	gradebook, autograde := setupAutogradeTest(t)
	ctx := context.Background()

	tampered := withCell(executedTemplate(), "ex1", func(cell *ExecutedCell) {
		cell.Content = "assert True"
	})
	tampered = withCell(tampered, "task1", func(cell *ExecutedCell) {
		cell.Content = "Complete some parts above."
	})

	outcome, err := autograde.GradeSubmission(ctx, "ps1", "s100", tampered, nil, GradeOptions{})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"ex1", "task1"}, outcome.TamperedCells)
	require.True(t, outcome.NeedsManualGrade)

	grade, err := gradebook.FindGrade(ctx, GradeRef{Assignment: "ps1", Notebook: "problem1", StudentID: "s100", CellName: "ex1"})
	require.NoError(t, err)
	require.Equal(t, 0.0, *grade.AutoScore)
	require.True(t, grade.NeedsManualGrade, "a tampered test cell goes to a human")

	score, err := gradebook.NotebookScore(ctx, "ps1", "problem1", "s100")
	require.NoError(t, err)
	for _, comment := range score.Comments {
		if comment.CellName == "task1" {
			require.True(t, comment.ContentChanged)
		}
	}
}

func TestGradeSubmissionMissingNotebookScoresAsZero(t *testing.T) {
	gradebook, autograde := setupAutogradeTest(t)
	ctx := context.Background()

	outcome, err := autograde.GradeSubmission(ctx, "ps1", "s100", ExecutedNotebook{Name: "problem1"}, nil, GradeOptions{})
	require.NoError(t, err)
	require.True(t, outcome.MissingNotebook)
	require.Zero(t, outcome.Score)
	require.Equal(t, 9.0, outcome.MaxScore)
	require.True(t, outcome.NeedsManualGrade)

	grade, err := gradebook.FindGrade(ctx, GradeRef{Assignment: "ps1", Notebook: "problem1", StudentID: "s100", CellName: "ex1"})
	require.NoError(t, err)
	require.Equal(t, 0.0, *grade.AutoScore)
	require.True(t, grade.NeedsManualGrade)
}

func TestGradeSubmissionDetectsNoResponse(t *testing.T) {
	gradebook, autograde := setupAutogradeTest(t)
	ctx := context.Background()

	// answer1 is left exactly as released; essay1 was answered.
	partial := withCell(executedTemplate(), "answer1", func(cell *ExecutedCell) {
		cell.Content = "# YOUR CODE HERE"
	})

	_, err := autograde.GradeSubmission(ctx, "ps1", "s100", partial, nil, GradeOptions{})
	require.NoError(t, err)

	score, err := gradebook.NotebookScore(ctx, "ps1", "problem1", "s100")
	require.NoError(t, err)

	byName := make(map[string]dto.CommentResponse, len(score.Comments))
	for _, comment := range score.Comments {
		byName[comment.CellName] = comment
	}
	require.True(t, byName["answer1"].NoResponse, "an untouched stub is no response")
	require.False(t, byName["essay1"].NoResponse)
}

func TestGradeSubmissionUnknownNotebookFails(t *testing.T) {
	_, autograde := setupAutogradeTest(t)

	_, err := autograde.GradeSubmission(context.Background(), "ps1", "s100", ExecutedNotebook{Name: "ghost"}, nil, GradeOptions{})
	require.ErrorIs(t, err, ErrNotebookNotFound)
}

type stubExecutor struct {
	results map[string]ExecutedNotebook
	errs    map[string]error
}

func (s stubExecutor) Execute(_ context.Context, document io.Reader, _ time.Duration) (ExecutedNotebook, error) {
	data, err := io.ReadAll(document)
	if err != nil {
		return ExecutedNotebook{}, err
	}
	key := string(data)
	if err := s.errs[key]; err != nil {
		return ExecutedNotebook{}, err
	}
	return s.results[key], nil
}

func TestGradeDocumentRequiresExecutor(t *testing.T) {
	_, autograde := setupAutogradeTest(t)

	_, err := autograde.GradeDocument(context.Background(), "ps1", Handin{StudentID: "s100", Notebook: "problem1"}, GradeOptions{})
	require.ErrorIs(t, err, ErrNoExecutor)
}

func TestGradeDocumentTreatsTimeoutAsMissingNotebook(t *testing.T) {
	db := setupTestDB(t)
	gradebook := newTestGradebook(t, db, nil)
	seedTemplate(t, gradebook, nil)
	ctx := context.Background()
	_, err := gradebook.UpsertStudent(ctx, dto.StudentUpsertRequest{StudentID: "s100"})
	require.NoError(t, err)

	executor := stubExecutor{errs: map[string]error{"doc": ErrExecutionTimeout}}
	autograde := NewAutogradeService(db, gradebook, executor, nil, AutogradeConfig{}, zerolog.Nop())

	outcome, err := autograde.GradeDocument(ctx, "ps1", Handin{StudentID: "s100", Notebook: "problem1", Document: strings.NewReader("doc")}, GradeOptions{})
	require.NoError(t, err)
	require.True(t, outcome.MissingNotebook)
	require.Zero(t, outcome.Score)
}

func TestGradeBatchIsolatesFailures(t *testing.T) {
	db := setupTestDB(t)
	gradebook := newTestGradebook(t, db, nil)
	seedTemplate(t, gradebook, nil)
	ctx := context.Background()
	for _, id := range []string{"s100", "s200"} {
		_, err := gradebook.UpsertStudent(ctx, dto.StudentUpsertRequest{StudentID: id})
		require.NoError(t, err)
	}

	executor := stubExecutor{
		results: map[string]ExecutedNotebook{"s200": executedTemplate()},
		errs:    map[string]error{"s100": errors.New("kernel died")},
	}
	autograde := NewAutogradeService(db, gradebook, executor, nil, AutogradeConfig{}, zerolog.Nop())

	outcomes := autograde.GradeBatch(ctx, "ps1", []Handin{
		{StudentID: "s100", Notebook: "problem1", Document: strings.NewReader("s100")},
		{StudentID: "s200", Notebook: "problem1", Document: strings.NewReader("s200")},
	}, GradeOptions{})

	require.Len(t, outcomes, 2)
	require.Error(t, outcomes[0].Err)
	require.NoError(t, outcomes[1].Err)
	require.Equal(t, 2.0, outcomes[1].Outcome.Score, "one broken submission must not stop the rest of the class")

	var submissions int64
	require.NoError(t, db.Model(&models.Submission{}).Count(&submissions).Error)
	require.Equal(t, int64(1), submissions, "the failed hand-in never produced rows")
}

func TestAssertionRatioStrategyAwardsPartialCredit(t *testing.T) {
	db := setupTestDB(t)
	gradebook := newTestGradebook(t, db, nil)
	seedTemplate(t, gradebook, nil)
	ctx := context.Background()
	_, err := gradebook.UpsertStudent(ctx, dto.StudentUpsertRequest{StudentID: "s100"})
	require.NoError(t, err)

	autograde := NewAutogradeService(db, gradebook, nil, AssertionRatioStrategy{}, AutogradeConfig{}, zerolog.Nop())

	partial := withCell(executedTemplate(), "ex1", func(cell *ExecutedCell) {
		cell.PassedChecks = 3
		cell.TotalChecks = 4
	})

	outcome, err := autograde.GradeSubmission(ctx, "ps1", "s100", partial, nil, GradeOptions{})
	require.NoError(t, err)
	require.Equal(t, 1.5, outcome.Score, "three of four checks on a two point cell")
}
