package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/edulabs-io/gradebook-api/internal/cellmeta"
	"github.com/edulabs-io/gradebook-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func seedNotebook(t *testing.T, db *gorm.DB) (models.Assignment, models.Notebook) {
	t.Helper()
	due := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	assignment := models.Assignment{Name: "ps1", DueDate: &due}
	require.NoError(t, db.Create(&assignment).Error)

	notebook := models.Notebook{Name: "problem1", AssignmentID: assignment.ID}
	require.NoError(t, db.Create(&notebook).Error)
	return assignment, notebook
}

func TestNotebookRepositoryGetByNameWithCellsOrdersByPosition(t *testing.T) {
	db := setupTestDB(t)
	assignment, notebook := seedNotebook(t, db)

	second := models.GradeCell{Name: "ex2", NotebookID: notebook.ID, CellKind: string(cellmeta.KindGraded), CellType: string(cellmeta.CellTypeCode), MaxScore: 3, Position: 1}
	first := models.GradeCell{Name: "ex1", NotebookID: notebook.ID, CellKind: string(cellmeta.KindGraded), CellType: string(cellmeta.CellTypeCode), MaxScore: 2, Position: 0}
	require.NoError(t, db.Create(&second).Error)
	require.NoError(t, db.Create(&first).Error)

	repo := NewNotebookRepository(db)
	loaded, err := repo.GetByNameWithCells(context.Background(), assignment.ID, "problem1")
	require.NoError(t, err)
	require.Len(t, loaded.GradeCells, 2)
	require.Equal(t, "ex1", loaded.GradeCells[0].Name)
	require.Equal(t, "ex2", loaded.GradeCells[1].Name)
	require.Equal(t, 5.0, loaded.MaxScore())
}

func TestNotebookRepositoryGetByNameScopesToAssignment(t *testing.T) {
	db := setupTestDB(t)
	assignment, _ := seedNotebook(t, db)

	other := models.Assignment{Name: "ps2"}
	require.NoError(t, db.Create(&other).Error)
	require.NoError(t, db.Create(&models.Notebook{Name: "problem1", AssignmentID: other.ID}).Error)

	repo := NewNotebookRepository(db)
	loaded, err := repo.GetByName(context.Background(), assignment.ID, "problem1")
	require.NoError(t, err)
	require.Equal(t, assignment.ID, loaded.AssignmentID)

	_, err = repo.GetByName(context.Background(), assignment.ID, "missing")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGradeRepositoryCountsAcrossJoins(t *testing.T) {
	db := setupTestDB(t)
	assignment, notebook := seedNotebook(t, db)

	cell := models.GradeCell{Name: "ex1", NotebookID: notebook.ID, CellKind: string(cellmeta.KindGraded), CellType: string(cellmeta.CellTypeCode), MaxScore: 2}
	require.NoError(t, db.Create(&cell).Error)

	student := models.Student{StudentID: "s100"}
	require.NoError(t, db.Create(&student).Error)
	submission := models.Submission{StudentID: student.ID, AssignmentID: assignment.ID}
	require.NoError(t, db.Create(&submission).Error)
	submitted := models.SubmittedNotebook{SubmissionID: submission.ID, NotebookID: notebook.ID}
	require.NoError(t, db.Create(&submitted).Error)
	require.NoError(t, db.Create(&models.Grade{GradeCellID: cell.ID, SubmittedNotebookID: submitted.ID, MaxScore: 2}).Error)

	repo := NewGradeRepository(db)
	ctx := context.Background()

	byCell, err := repo.CountForGradeCell(ctx, cell.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), byCell)

	byNotebook, err := repo.CountForNotebook(ctx, notebook.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), byNotebook)

	byAssignment, err := repo.CountForAssignment(ctx, assignment.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), byAssignment)

	byStudent, err := repo.CountForStudent(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), byStudent)

	byOther, err := repo.CountForStudent(ctx, student.ID+1)
	require.NoError(t, err)
	require.Zero(t, byOther)
}

func TestGradeRepositoryGetByCellPreloadsGradeCell(t *testing.T) {
	db := setupTestDB(t)
	assignment, notebook := seedNotebook(t, db)

	cell := models.GradeCell{Name: "ex1", NotebookID: notebook.ID, CellKind: string(cellmeta.KindGraded), CellType: string(cellmeta.CellTypeCode), MaxScore: 2}
	require.NoError(t, db.Create(&cell).Error)

	student := models.Student{StudentID: "s100"}
	require.NoError(t, db.Create(&student).Error)
	submission := models.Submission{StudentID: student.ID, AssignmentID: assignment.ID}
	require.NoError(t, db.Create(&submission).Error)
	submitted := models.SubmittedNotebook{SubmissionID: submission.ID, NotebookID: notebook.ID}
	require.NoError(t, db.Create(&submitted).Error)
	require.NoError(t, db.Create(&models.Grade{GradeCellID: cell.ID, SubmittedNotebookID: submitted.ID, MaxScore: 2}).Error)

	repo := NewGradeRepository(db)
	grade, err := repo.GetByCell(context.Background(), cell.ID, submitted.ID)
	require.NoError(t, err)
	require.Equal(t, "ex1", grade.GradeCell.Name)
	require.True(t, grade.GradeCell.AutoScored())
}

func TestSubmissionRepositoryUniquePerStudentAndAssignment(t *testing.T) {
	db := setupTestDB(t)
	assignment, _ := seedNotebook(t, db)

	student := models.Student{StudentID: "s100"}
	require.NoError(t, db.Create(&student).Error)

	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	first := models.Submission{StudentID: student.ID, AssignmentID: assignment.ID}
	require.NoError(t, repo.Create(ctx, &first))

	duplicate := models.Submission{StudentID: student.ID, AssignmentID: assignment.ID}
	require.Error(t, repo.Create(ctx, &duplicate))

	loaded, err := repo.GetByAssignmentAndStudent(ctx, assignment.ID, student.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, loaded.ID)
	require.False(t, loaded.IsLate())
}
