package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSchema = `{
  "elements": [
    {"id": "title", "type": "text", "label": "Title", "required": true, "attributes": {"max_length": 20}},
    {"id": "count", "type": "number", "label": "Count", "required": true, "attributes": {"min": 0, "max": 100}},
    {"id": "level", "type": "select", "label": "Level", "attributes": {"options": ["UG", "PG"]}},
    {"id": "tags", "type": "checkbox", "label": "Tags", "attributes": {"options": ["a", "b"]}},
    {"id": "agree", "type": "checkbox", "label": "Agree"},
    {"id": "held_on", "type": "date", "label": "Held on", "attributes": {"min": "2024-06-01", "max": "2025-05-31"}},
    {"id": "contact", "type": "email", "label": "Contact", "attributes": {"domain": "uni.edu"}},
    {"id": "proof", "type": "file", "label": "Proof", "attributes": {"accept": [".pdf"]}}
  ]
}`

func decodeSchema(t *testing.T, raw string) FormSchema {
	t.Helper()
	var schema FormSchema
	require.NoError(t, json.Unmarshal([]byte(raw), &schema))
	return schema
}

func TestFormSchemaDecodesVariants(t *testing.T) {
	schema := decodeSchema(t, sampleSchema)
	require.Len(t, schema.Elements, 8)

	assert.IsType(t, &TextAttributes{}, schema.Elements[0].Attributes)
	assert.IsType(t, &NumberAttributes{}, schema.Elements[1].Attributes)
	assert.IsType(t, &ChoiceAttributes{}, schema.Elements[2].Attributes)
	assert.True(t, schema.Elements[3].Attributes.(*ChoiceAttributes).Multiple)
	assert.IsType(t, &DateAttributes{}, schema.Elements[5].Attributes)
	assert.IsType(t, &EmailAttributes{}, schema.Elements[6].Attributes)
	assert.IsType(t, &FileAttributes{}, schema.Elements[7].Attributes)
	assert.NoError(t, schema.Validate())
}

func TestFormSchemaRejectsUnknownType(t *testing.T) {
	var schema FormSchema
	err := json.Unmarshal([]byte(`{"elements":[{"id":"x","type":"slider","label":"X"}]}`), &schema)
	assert.ErrorIs(t, err, ErrUnknownElementType)
}

func TestFormSchemaValidate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantKey string
	}{
		{
			name:    "duplicate id",
			raw:     `{"elements":[{"id":"a","type":"text","label":"A"},{"id":"a","type":"text","label":"B"}]}`,
			wantKey: "elements[1].id",
		},
		{
			name:    "missing id",
			raw:     `{"elements":[{"type":"text","label":"A"}]}`,
			wantKey: "elements[0].id",
		},
		{
			name:    "select without options",
			raw:     `{"elements":[{"id":"a","type":"select","label":"A"}]}`,
			wantKey: "elements[0].attributes",
		},
		{
			name:    "number min above max",
			raw:     `{"elements":[{"id":"a","type":"number","label":"A","attributes":{"min":5,"max":1}}]}`,
			wantKey: "elements[0].attributes",
		},
		{
			name:    "bad date bound",
			raw:     `{"elements":[{"id":"a","type":"date","label":"A","attributes":{"min":"01/02/2024"}}]}`,
			wantKey: "elements[0].attributes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := decodeSchema(t, tt.raw).Validate()
			var fields FieldErrors
			require.ErrorAs(t, err, &fields)
			assert.Contains(t, fields, tt.wantKey)
		})
	}
}

func TestValidateSubmission(t *testing.T) {
	schema := decodeSchema(t, sampleSchema)

	valid := map[string]interface{}{
		"title":   "Workshop",
		"count":   float64(42),
		"level":   "PG",
		"tags":    []interface{}{"a"},
		"agree":   true,
		"held_on": "2024-09-10",
		"contact": "hod@uni.edu",
		"proof":   "https://cdn.example.com/kpi/1/report.pdf",
	}
	assert.NoError(t, schema.ValidateSubmission(valid))

	invalid := map[string]interface{}{
		"count":   float64(101),
		"level":   "PhD",
		"tags":    []interface{}{"c"},
		"agree":   "yes",
		"held_on": "2023-01-01",
		"contact": "hod@other.edu",
		"proof":   "https://cdn.example.com/kpi/1/report.docx",
		"extra":   1,
	}
	err := schema.ValidateSubmission(invalid)
	var fields FieldErrors
	require.ErrorAs(t, err, &fields)

	for _, key := range []string{"title", "count", "level", "tags", "agree", "held_on", "contact", "proof", "extra"} {
		assert.Contains(t, fields, key)
	}
}

func TestNumberStep(t *testing.T) {
	schema := decodeSchema(t, `{"elements": [
    {"id": "seats", "type": "number", "label": "Seats", "attributes": {"step": 5}},
    {"id": "score", "type": "number", "label": "Score", "attributes": {"min": 1, "step": 0.5}}
  ]}`)

	cases := []struct {
		name  string
		data  map[string]interface{}
		field string
	}{
		{name: "on grid", data: map[string]interface{}{"seats": float64(15), "score": 2.5}},
		{name: "fractional step", data: map[string]interface{}{"score": 1.1 + 0.4}},
		{name: "off grid", data: map[string]interface{}{"seats": float64(3)}, field: "seats"},
		{name: "off grid from min", data: map[string]interface{}{"score": 1.25}, field: "score"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := schema.ValidateSubmission(tc.data)
			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			var fields FieldErrors
			require.ErrorAs(t, err, &fields)
			assert.Contains(t, fields[tc.field], "steps of")
		})
	}
}

func TestCalculatedMetricsValidate(t *testing.T) {
	lo, hi := 80.0, 20.0
	metrics := CalculatedMetrics{
		Formulas:   []Formula{{Name: "ratio", Expression: "a / b"}},
		Thresholds: []Threshold{{Metric: "ratio", Min: &lo, Max: &hi}},
		Weights:    []MetricWeight{{Metric: "ratio", Weight: 0.5}, {Metric: "ratio", Weight: 0.2}},
	}

	err := metrics.Validate()
	var fields FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "thresholds[0]")
	assert.Contains(t, fields, "weights[1].metric")
	assert.Equal(t, []float64{0.5, 0.2}, metrics.WeightValues())

	metrics.Thresholds[0].Min, metrics.Thresholds[0].Max = &hi, &lo
	metrics.Weights = metrics.Weights[:1]
	assert.NoError(t, metrics.Validate())
}

func TestCalculatedMetricsRequiresFormulaFields(t *testing.T) {
	err := CalculatedMetrics{Formulas: []Formula{{Name: "x"}}}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expression")
}
