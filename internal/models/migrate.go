package models

// All lists every entity in migration-safe order (parents before children)
// for gorm.AutoMigrate.
func All() []any {
	return []any{
		&Student{},
		&Assignment{},
		&Notebook{},
		&GradeCell{},
		&SolutionCell{},
		&SourceCell{},
		&Submission{},
		&SubmittedNotebook{},
		&Grade{},
		&Comment{},
	}
}
