package service

import (
	"context"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/edulabs-io/gradebook-api/internal/cellmeta"
	"github.com/edulabs-io/gradebook-api/internal/checksum"
	"github.com/edulabs-io/gradebook-api/internal/models"
	"github.com/edulabs-io/gradebook-api/internal/repository"
)

// SyncNotebookCells reconciles the stored cell rows of one notebook against
// a freshly scanned template. Existing rows are updated in place so grade
// history survives regeneration; cells that disappeared from the template
// are deleted only when nothing references them, unless force cascades the
// cleanup. The whole reconcile is one transaction.
func (s *gradebookService) SyncNotebookCells(ctx context.Context, assignment, notebook string, cells []ScannedCell, force bool) error {
	if err := validateScan(cells); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		asn, err := repository.NewAssignmentRepository(tx).GetByName(ctx, assignment)
		if err != nil {
			return mapNotFound(err, ErrAssignmentNotFound)
		}

		nbRepo := repository.NewNotebookRepository(tx)
		nb, err := nbRepo.GetByName(ctx, asn.ID, notebook)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			nb = models.Notebook{Name: notebook, AssignmentID: asn.ID}
			if err := nbRepo.Create(ctx, &nb); err != nil {
				return err
			}
		}

		cellRepo := repository.NewCellRepository(tx)
		existing, err := loadCellRows(ctx, cellRepo, nb.ID)
		if err != nil {
			return err
		}

		seen := cellSet{
			grade:    make(map[string]bool),
			solution: make(map[string]bool),
			source:   make(map[string]bool),
		}
		for position, cell := range cells {
			kind := cell.Meta.Kind()
			if kind == cellmeta.KindPlain {
				continue
			}
			if err := upsertScannedCell(ctx, cellRepo, nb.ID, position, cell, existing, seen); err != nil {
				return err
			}
		}

		return s.removeStaleCells(ctx, tx, nb, existing, seen, force)
	})
}

// validateScan runs schema and semantic validation over the whole scan,
// collecting every problem (including duplicate ids and names) before rejecting.
func validateScan(cells []ScannedCell) error {
	scan := cellmeta.NewScanValidator()
	var schemaProblems []string
	for _, cell := range cells {
		if cell.Raw != nil {
			if err := cellmeta.ValidateRaw(cell.Raw); err != nil {
				var verr *cellmeta.ValidationError
				if errors.As(err, &verr) {
					schemaProblems = append(schemaProblems, verr.Problems...)
				} else {
					return err
				}
			}
		}
		scan.Check(cell.Name, cell.Meta, cell.CellType)
	}
	err := scan.Finish()
	if len(schemaProblems) > 0 {
		var verr *cellmeta.ValidationError
		if errors.As(err, &verr) {
			verr.Problems = append(schemaProblems, verr.Problems...)
			return verr
		}
		return &cellmeta.ValidationError{Problems: schemaProblems}
	}
	return err
}

type cellRows struct {
	grade    map[string]models.GradeCell
	solution map[string]models.SolutionCell
	source   map[string]models.SourceCell
}

type cellSet struct {
	grade    map[string]bool
	solution map[string]bool
	source   map[string]bool
}

func loadCellRows(ctx context.Context, repo repository.CellRepository, notebookID uint) (cellRows, error) {
	rows := cellRows{
		grade:    make(map[string]models.GradeCell),
		solution: make(map[string]models.SolutionCell),
		source:   make(map[string]models.SourceCell),
	}

	gradeCells, err := repo.GradeCells(ctx, notebookID)
	if err != nil {
		return rows, err
	}
	for _, cell := range gradeCells {
		rows.grade[cell.Name] = cell
	}

	solutionCells, err := repo.SolutionCells(ctx, notebookID)
	if err != nil {
		return rows, err
	}
	for _, cell := range solutionCells {
		rows.solution[cell.Name] = cell
	}

	sourceCells, err := repo.SourceCells(ctx, notebookID)
	if err != nil {
		return rows, err
	}
	for _, cell := range sourceCells {
		rows.source[cell.Name] = cell
	}

	return rows, nil
}

func upsertScannedCell(ctx context.Context, repo repository.CellRepository, notebookID uint, position int, cell ScannedCell, existing cellRows, seen cellSet) error {
	kind := cell.Meta.Kind()
	name := cell.Name

	if cell.Meta.IsGradable() {
		row, ok := existing.grade[name]
		if !ok {
			row = models.GradeCell{Name: name, NotebookID: notebookID}
		}
		row.CellKind = string(kind)
		row.CellType = string(cell.CellType)
		row.MaxScore = cell.Meta.Points
		row.Position = position
		if err := repo.SaveGradeCell(ctx, &row); err != nil {
			return err
		}
		seen.grade[name] = true
	}

	if cell.Meta.IsSolution() {
		row, ok := existing.solution[name]
		if !ok {
			row = models.SolutionCell{Name: name, NotebookID: notebookID}
		}
		row.CellKind = string(kind)
		row.CellType = string(cell.CellType)
		if err := repo.SaveSolutionCell(ctx, &row); err != nil {
			return err
		}
		seen.solution[name] = true
	}

	row, ok := existing.source[name]
	if !ok {
		row = models.SourceCell{Name: name, NotebookID: notebookID}
	}
	row.CellKind = string(kind)
	row.CellType = string(cell.CellType)
	row.Content = cell.Content
	row.Locked = cell.Meta.IsProtected()
	row.Checksum = checksum.Compute(cell.Content, kind, cell.CellType, row.Locked)
	if cell.Raw != nil {
		row.Meta = datatypes.JSONMap(cell.Raw)
	}
	if err := repo.SaveSourceCell(ctx, &row); err != nil {
		return err
	}
	seen.source[name] = true

	return nil
}

// removeStaleCells deletes rows for cells missing from the new scan. Any
// stale cell while submissions exist makes the whole sync a conflict unless
// force is set.
func (s *gradebookService) removeStaleCells(ctx context.Context, tx *gorm.DB, nb models.Notebook, existing cellRows, seen cellSet, force bool) error {
	var stale bool
	for name := range existing.grade {
		if !seen.grade[name] {
			stale = true
		}
	}
	for name := range existing.solution {
		if !seen.solution[name] {
			stale = true
		}
	}
	for name := range existing.source {
		if !seen.source[name] {
			stale = true
		}
	}
	if !stale {
		return nil
	}

	references, err := repository.NewSubmissionRepository(tx).CountSubmittedNotebooksForNotebook(ctx, nb.ID)
	if err != nil {
		return err
	}
	if references > 0 && !force {
		grades, err := repository.NewGradeRepository(tx).CountForNotebook(ctx, nb.ID)
		if err != nil {
			return err
		}
		return &ConflictError{Entity: "notebook cells of", Name: nb.Name, DependentGrades: grades}
	}

	cellRepo := repository.NewCellRepository(tx)
	gradeRepo := repository.NewGradeRepository(tx)
	commentRepo := repository.NewCommentRepository(tx)

	for name, cell := range existing.grade {
		if seen.grade[name] {
			continue
		}
		if err := gradeRepo.DeleteForGradeCell(ctx, cell.ID); err != nil {
			return err
		}
		if err := cellRepo.DeleteGradeCell(ctx, cell.ID); err != nil {
			return err
		}
		s.logger.Info().Str("notebook", nb.Name).Str("cell", name).Msg("removed stale grade cell")
	}
	for name, cell := range existing.solution {
		if seen.solution[name] {
			continue
		}
		if err := commentRepo.DeleteForSolutionCell(ctx, cell.ID); err != nil {
			return err
		}
		if err := cellRepo.DeleteSolutionCell(ctx, cell.ID); err != nil {
			return err
		}
	}
	for name, cell := range existing.source {
		if seen.source[name] {
			continue
		}
		if err := commentRepo.DeleteForSourceCell(ctx, cell.ID); err != nil {
			return err
		}
		if err := cellRepo.DeleteSourceCell(ctx, cell.ID); err != nil {
			return err
		}
	}
	return nil
}

// VerifySourceCells recomputes every stored checksum and reports cells
// whose protected content no longer matches. The engine never repairs the
// content; it only refuses to trust it.
func (s *gradebookService) VerifySourceCells(ctx context.Context, assignment, notebook string) error {
	asn, err := repository.NewAssignmentRepository(s.db).GetByName(ctx, assignment)
	if err != nil {
		return mapNotFound(err, ErrAssignmentNotFound)
	}
	nb, err := repository.NewNotebookRepository(s.db).GetByName(ctx, asn.ID, notebook)
	if err != nil {
		return mapNotFound(err, ErrNotebookNotFound)
	}

	cells, err := repository.NewCellRepository(s.db).SourceCells(ctx, nb.ID)
	if err != nil {
		return err
	}

	var mismatched []string
	for _, cell := range cells {
		if !checksum.Matches(cell.Checksum, cell.Content, cell.Kind(), cellmeta.CellType(cell.CellType), cell.Locked) {
			mismatched = append(mismatched, cell.Name)
		}
	}
	if len(mismatched) > 0 {
		return &ChecksumMismatchError{Notebook: notebook, Cells: mismatched}
	}
	return nil
}
