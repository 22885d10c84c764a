package cellmeta

import (
	"strings"

	"github.com/google/uuid"
)

// upgrades is the linear migration pipeline. upgrades[n] lifts a raw
// metadata map from version n to version n+1. Each step is pure apart from
// id generation and must tolerate any document its version could have
// produced in the wild.
var upgrades = []func(map[string]any) map[string]any{
	upgradeV0toV1,
	upgradeV1toV2,
	upgradeV2toV3,
}

// Upgrade walks a raw metadata map forward one version at a time until it
// reaches CurrentVersion. Already-current metadata passes through untouched,
// so applying Upgrade twice is the same as applying it once. Metadata from a
// future version fails with a VersionError; a negative or fractional
// version marker fails with a ValidationError.
func Upgrade(raw map[string]any) (map[string]any, error) {
	found, err := declaredVersion(raw)
	if err != nil {
		return nil, err
	}
	if found > CurrentVersion {
		return nil, &VersionError{Found: found, Current: CurrentVersion}
	}

	out := make(map[string]any, len(raw))
	for key, value := range raw {
		out[key] = value
	}
	for v := found; v < CurrentVersion; v++ {
		out = upgrades[v](out)
		out[fieldSchemaVersion] = v + 1
	}
	return out, nil
}

// upgradeV0toV1 introduces the version marker. Version 0 documents often
// carry blank or negative points and, on cells marked up by hand, no id at
// all; both get usable defaults here.
func upgradeV0toV1(raw map[string]any) map[string]any {
	points, ok := toFloat(raw[fieldPoints])
	if !ok || points < 0 {
		points = 0
	}
	raw[fieldPoints] = points

	flagged := toBool(raw[fieldGrade]) || toBool(raw[fieldSolution]) || toBool(raw[fieldLocked])
	id, _ := raw[fieldID].(string)
	if flagged && strings.TrimSpace(id) == "" {
		raw[fieldID] = "cell-" + uuid.NewString()[:8]
	}
	return raw
}

// upgradeV1toV2 introduces the explicit locked flag. Graded cells that hold
// no student answer were always implicitly protected; everything else
// defaults to unlocked.
func upgradeV1toV2(raw map[string]any) map[string]any {
	if _, ok := raw[fieldLocked]; !ok {
		raw[fieldLocked] = toBool(raw[fieldGrade]) && !toBool(raw[fieldSolution])
	}
	return raw
}

// upgradeV2toV3 introduces task cells; pre-existing documents simply are not
// tasks.
func upgradeV2toV3(raw map[string]any) map[string]any {
	if _, ok := raw[fieldTask]; !ok {
		raw[fieldTask] = false
	}
	return raw
}
