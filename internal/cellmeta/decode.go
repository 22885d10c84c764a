package cellmeta

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Field names as they appear inside the notebook document.
const (
	fieldSchemaVersion = "schema_version"
	fieldID            = "grade_id"
	fieldGrade         = "grade"
	fieldSolution      = "solution"
	fieldLocked        = "locked"
	fieldTask          = "task"
	fieldPoints        = "points"
	fieldChecksum      = "checksum"
)

var knownFields = map[string]bool{
	fieldSchemaVersion: true,
	fieldID:            true,
	fieldGrade:         true,
	fieldSolution:      true,
	fieldLocked:        true,
	fieldTask:          true,
	fieldPoints:        true,
	fieldChecksum:      true,
}

// DeclaredVersion reads the schema version out of a raw metadata map.
// Documents written before versioning was introduced carry no marker and
// count as version 0. Malformed markers also read as 0; Decode, Upgrade
// and ValidateRaw reject them explicitly instead of guessing.
func DeclaredVersion(raw map[string]any) int {
	n, err := declaredVersion(raw)
	if err != nil {
		return 0
	}
	return n
}

// declaredVersion rejects markers that are not whole non-negative numbers.
func declaredVersion(raw map[string]any) (int, error) {
	v, ok := raw[fieldSchemaVersion]
	if !ok {
		return 0, nil
	}
	n, ok := toInt(v)
	if !ok {
		return 0, &ValidationError{Problems: []string{fmt.Sprintf("schema_version %v is not a whole number", v)}}
	}
	if n < 0 {
		return 0, &ValidationError{Problems: []string{fmt.Sprintf("schema_version %d is negative", n)}}
	}
	return n, nil
}

// Decode turns a raw metadata map at CurrentVersion into a Metadata value.
// A declared version other than CurrentVersion fails with a VersionError;
// the caller decides whether to upgrade the document or its tooling.
// Unknown fields are stripped, not rejected: their names are returned so the
// caller can log a warning.
func Decode(raw map[string]any) (Metadata, []string, error) {
	found, err := declaredVersion(raw)
	if err != nil {
		return Metadata{}, nil, err
	}
	if found != CurrentVersion {
		return Metadata{}, nil, &VersionError{Found: found, Current: CurrentVersion}
	}

	meta := Metadata{SchemaVersion: found}
	var stripped []string
	for key, value := range raw {
		switch key {
		case fieldSchemaVersion:
		case fieldID:
			meta.ID, _ = value.(string)
		case fieldGrade:
			meta.Grade = toBool(value)
		case fieldSolution:
			meta.Solution = toBool(value)
		case fieldLocked:
			meta.Locked = toBool(value)
		case fieldTask:
			meta.Task = toBool(value)
		case fieldPoints:
			meta.Points, _ = toFloat(value)
		case fieldChecksum:
			meta.Checksum, _ = value.(string)
		default:
			stripped = append(stripped, key)
		}
	}
	sort.Strings(stripped)

	return meta, stripped, nil
}

// Encode renders a Metadata value back into the on-disk map shape.
func Encode(meta Metadata) map[string]any {
	raw := map[string]any{
		fieldSchemaVersion: CurrentVersion,
		fieldGrade:         meta.Grade,
		fieldSolution:      meta.Solution,
		fieldLocked:        meta.Locked,
		fieldTask:          meta.Task,
	}
	if meta.ID != "" {
		raw[fieldID] = meta.ID
	}
	if meta.Grade || meta.Task {
		raw[fieldPoints] = meta.Points
	}
	if meta.Checksum != "" {
		raw[fieldChecksum] = meta.Checksum
	}
	return raw
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
