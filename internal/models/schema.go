package models

import (
	"sort"

	"github.com/invopop/jsonschema"
)

// schemaTypes maps the published payload names onto their Go types
var schemaTypes = map[string]func() any{
	"entry":         func() any { return JournalEntry{} },
	"daily":         func() any { return DailyMetric{} },
	"weekly":        func() any { return WeeklyMetric{} },
	"insights":      func() any { return Insights{} },
	"trigger":       func() any { return Trigger{} },
	"trigger-stat":  func() any { return TriggerStat{} },
	"weekly-report": func() any { return WeeklyReportPayload{} },
	"summary":       func() any { return SummaryResponse{} },
}

// SchemaFor reflects the JSON schema of a named payload
func SchemaFor(name string) (*jsonschema.Schema, bool) {
	build, ok := schemaTypes[name]
	if !ok {
		return nil, false
	}
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(build()), true
}

// SchemaNames lists the names SchemaFor accepts, sorted
func SchemaNames() []string {
	names := make([]string, 0, len(schemaTypes))
	for name := range schemaTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
