package cellmeta

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	compileOnce sync.Once
	compiled    map[int]*jsonschema.Schema
	compileErr  error
)

func compileSchemas() {
	compiled = make(map[int]*jsonschema.Schema, CurrentVersion)
	for v := 1; v <= CurrentVersion; v++ {
		name := fmt.Sprintf("schemas/v%d.json", v)
		data, err := schemaFS.ReadFile(name)
		if err != nil {
			compileErr = fmt.Errorf("read embedded schema %s: %w", name, err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
			compileErr = fmt.Errorf("load schema %s: %w", name, err)
			return
		}
		sch, err := compiler.Compile(name)
		if err != nil {
			compileErr = fmt.Errorf("compile schema %s: %w", name, err)
			return
		}
		compiled[v] = sch
	}
}

// ValidateRaw checks a raw metadata map against the JSON schema for its
// declared version. Version 0 predates the schemas and always passes; it is
// caught later by the version gate in Decode.
func ValidateRaw(raw map[string]any) error {
	compileOnce.Do(compileSchemas)
	if compileErr != nil {
		return compileErr
	}

	found, err := declaredVersion(raw)
	if err != nil {
		return err
	}
	sch, ok := compiled[found]
	if !ok {
		if found > CurrentVersion {
			return &VersionError{Found: found, Current: CurrentVersion}
		}
		return nil
	}
	if err := sch.Validate(normalize(raw)); err != nil {
		return &ValidationError{Problems: []string{err.Error()}}
	}
	return nil
}

// normalize rewrites the map into the shapes encoding/json produces, which
// is what the schema validator expects.
func normalize(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		switch n := value.(type) {
		case int:
			out[key] = float64(n)
		case int64:
			out[key] = float64(n)
		default:
			out[key] = value
		}
	}
	return out
}

// Validate applies the semantic rules that the JSON schema cannot express.
// It returns every problem found rather than stopping at the first.
func Validate(meta Metadata, cellType CellType) []string {
	var problems []string
	kind := meta.Kind()

	if kind != KindPlain && strings.TrimSpace(meta.ID) == "" {
		problems = append(problems, fmt.Sprintf("%s cell has an empty id", kind))
	}
	if meta.Points < 0 {
		problems = append(problems, fmt.Sprintf("cell %q has negative points", meta.ID))
	}
	if meta.Task {
		if meta.Grade || meta.Solution {
			problems = append(problems, fmt.Sprintf("task cell %q cannot also be marked graded or solution", meta.ID))
		}
		if cellType != CellTypeMarkdown {
			problems = append(problems, fmt.Sprintf("task cell %q must be a markdown cell", meta.ID))
		}
		if !meta.Locked {
			problems = append(problems, fmt.Sprintf("task cell %q must be locked", meta.ID))
		}
	}
	if cellType == CellTypeMarkdown && !meta.Task && meta.Grade != meta.Solution {
		problems = append(problems, fmt.Sprintf("markdown cell %q must be graded and solution together", meta.ID))
	}
	if meta.Solution && meta.Locked {
		problems = append(problems, fmt.Sprintf("solution cell %q cannot be locked", meta.ID))
	}

	return problems
}

// ScanValidator accumulates validation problems across one full notebook
// scan. Duplicate ids can only be seen at this level, and instructors want
// the complete list of problems in one pass, so nothing is raised until
// Finish.
type ScanValidator struct {
	problems []string
	seen     map[string]string
	names    map[string]bool
}

// NewScanValidator starts a fresh scan.
func NewScanValidator() *ScanValidator {
	return &ScanValidator{seen: make(map[string]string), names: make(map[string]bool)}
}

// Check validates one cell and records its name and id for duplicate
// detection. Names must be unique per notebook because every flagged cell
// becomes a row keyed by (name, notebook).
func (v *ScanValidator) Check(name string, meta Metadata, cellType CellType) {
	for _, problem := range Validate(meta, cellType) {
		v.problems = append(v.problems, fmt.Sprintf("cell %s: %s", name, problem))
	}

	if meta.Kind() == KindPlain {
		return
	}
	if v.names[name] {
		v.problems = append(v.problems, fmt.Sprintf("cell name %q appears more than once", name))
	}
	v.names[name] = true

	id := strings.TrimSpace(meta.ID)
	if id == "" {
		return
	}
	if prev, ok := v.seen[id]; ok {
		v.problems = append(v.problems, fmt.Sprintf("cell %s: id %q already used by cell %s", name, id, prev))
		return
	}
	v.seen[id] = name
}

// Finish returns a ValidationError covering the whole scan, or nil when
// every cell was clean.
func (v *ScanValidator) Finish() error {
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}
