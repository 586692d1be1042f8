package llm

import "MICDataset/internal/validator"

// ResponseSchemaName is the schema name sent with structured-output requests.
const ResponseSchemaName = "mic_classification"

// ResponseSchema wraps the event objects in {"events": [...]}, since structured output
// requires an object at the top level.
func ResponseSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			validator.EventsKey: map[string]any{
				"type":  "array",
				"items": eventSchema(),
			},
		},
		"required":             []string{validator.EventsKey},
		"additionalProperties": false,
	}
}

func eventSchema() map[string]any {
	nullableInt := map[string]any{"type": []string{"integer", "null"}}
	countries := map[string]any{
		"type":  []string{"array", "null"},
		"items": map[string]any{"type": "string"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"article_id":                 map[string]any{"type": "integer"},
			"is_relevant":                map[string]any{"type": "boolean"},
			"start_year":                 nullableInt,
			"start_month":                nullableInt,
			"start_day":                  nullableInt,
			"end_year":                   nullableInt,
			"end_month":                  nullableInt,
			"end_day":                    nullableInt,
			"fatalities_min":             nullableInt,
			"fatalities_max":             nullableInt,
			"countries_suffering_losses": countries,
			"countries_causing_losses":   countries,
			"explanation":                map[string]any{"type": "string"},
		},
		"required":             validator.RequiredKeys,
		"additionalProperties": false,
	}
}
