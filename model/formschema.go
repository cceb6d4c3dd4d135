package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var ErrUnknownElementType = errors.New("unknown form element type")

// FieldErrors maps a field path to a human readable message.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return strings.Join(parts, "; ")
}

func (f FieldErrors) orNil() error {
	if len(f) == 0 {
		return nil
	}
	return f
}

type ElementType string

const (
	ElementText     ElementType = "text"
	ElementNumber   ElementType = "number"
	ElementSelect   ElementType = "select"
	ElementCheckbox ElementType = "checkbox"
	ElementRadio    ElementType = "radio"
	ElementDate     ElementType = "date"
	ElementEmail    ElementType = "email"
	ElementFile     ElementType = "file"
)

const dateLayout = "2006-01-02"

// ElementAttributes is the per-type attribute block of a form element.
type ElementAttributes interface {
	// check validates the attribute block itself.
	check() error
	// accept validates a submitted value for an element carrying these attributes.
	accept(value interface{}) error
}

func newAttributes(t ElementType) (ElementAttributes, error) {
	switch t {
	case ElementText:
		return &TextAttributes{}, nil
	case ElementNumber:
		return &NumberAttributes{}, nil
	case ElementSelect, ElementRadio:
		return &ChoiceAttributes{}, nil
	case ElementCheckbox:
		return &ChoiceAttributes{Multiple: true}, nil
	case ElementDate:
		return &DateAttributes{}, nil
	case ElementEmail:
		return &EmailAttributes{}, nil
	case ElementFile:
		return &FileAttributes{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownElementType, t)
}

// FormElement is one input of a KPI data-collection form.
type FormElement struct {
	ID         string            `json:"id"`
	Type       ElementType       `json:"type"`
	Label      string            `json:"label"`
	Required   bool              `json:"required"`
	Attributes ElementAttributes `json:"attributes,omitempty"`
}

func (e *FormElement) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         string          `json:"id"`
		Type       ElementType     `json:"type"`
		Label      string          `json:"label"`
		Required   bool            `json:"required"`
		Attributes json.RawMessage `json:"attributes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	attrs, err := newAttributes(raw.Type)
	if err != nil {
		return err
	}
	if len(raw.Attributes) > 0 && string(raw.Attributes) != "null" {
		if err := json.Unmarshal(raw.Attributes, attrs); err != nil {
			return fmt.Errorf("element %q attributes: %w", raw.ID, err)
		}
	}

	*e = FormElement{
		ID:         raw.ID,
		Type:       raw.Type,
		Label:      raw.Label,
		Required:   raw.Required,
		Attributes: attrs,
	}
	return nil
}

// FormSchema is the dynamic form a department fills in to report a KPI.
type FormSchema struct {
	Elements []FormElement `json:"elements"`
}

// Validate checks the schema itself: ids, labels and attribute blocks.
func (s FormSchema) Validate() error {
	errs := FieldErrors{}
	seen := make(map[string]bool, len(s.Elements))

	for i, el := range s.Elements {
		path := fmt.Sprintf("elements[%d]", i)
		if strings.TrimSpace(el.ID) == "" {
			errs[path+".id"] = "id is required"
		} else if seen[el.ID] {
			errs[path+".id"] = fmt.Sprintf("duplicate id %q", el.ID)
		}
		seen[el.ID] = true

		if strings.TrimSpace(el.Label) == "" {
			errs[path+".label"] = "label is required"
		}
		if el.Attributes == nil {
			errs[path+".type"] = fmt.Sprintf("unsupported type %q", el.Type)
			continue
		}
		if err := el.Attributes.check(); err != nil {
			errs[path+".attributes"] = err.Error()
		}
	}
	return errs.orNil()
}

// ValidateSubmission checks submitted form data against the schema. Keys must
// match element ids; required elements must be present and non-empty.
func (s FormSchema) ValidateSubmission(values map[string]interface{}) error {
	errs := FieldErrors{}
	known := make(map[string]bool, len(s.Elements))

	for _, el := range s.Elements {
		known[el.ID] = true
		value, ok := values[el.ID]
		if !ok || isEmptyValue(value) {
			if el.Required {
				errs[el.ID] = fmt.Sprintf("%s is required", el.Label)
			}
			continue
		}
		if el.Attributes == nil {
			errs[el.ID] = fmt.Sprintf("unsupported type %q", el.Type)
			continue
		}
		if err := el.Attributes.accept(value); err != nil {
			errs[el.ID] = err.Error()
		}
	}

	for key := range values {
		if !known[key] {
			errs[key] = "not part of this form"
		}
	}
	return errs.orNil()
}

func isEmptyValue(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []interface{}:
		return len(t) == 0
	}
	return false
}

type TextAttributes struct {
	MinLength   *int   `json:"min_length,omitempty"`
	MaxLength   *int   `json:"max_length,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

func (a *TextAttributes) check() error {
	if a.MinLength != nil && *a.MinLength < 0 {
		return errors.New("min_length must not be negative")
	}
	if a.MinLength != nil && a.MaxLength != nil && *a.MinLength > *a.MaxLength {
		return errors.New("min_length must not exceed max_length")
	}
	return nil
}

func (a *TextAttributes) accept(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return errors.New("must be text")
	}
	n := len([]rune(s))
	if a.MinLength != nil && n < *a.MinLength {
		return fmt.Errorf("must be at least %d characters", *a.MinLength)
	}
	if a.MaxLength != nil && n > *a.MaxLength {
		return fmt.Errorf("must be at most %d characters", *a.MaxLength)
	}
	return nil
}

type NumberAttributes struct {
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Step *float64 `json:"step,omitempty"`
}

func (a *NumberAttributes) check() error {
	if a.Min != nil && a.Max != nil && *a.Min > *a.Max {
		return errors.New("min must not exceed max")
	}
	if a.Step != nil && *a.Step <= 0 {
		return errors.New("step must be positive")
	}
	return nil
}

func (a *NumberAttributes) accept(value interface{}) error {
	n, ok := value.(float64)
	if !ok {
		return errors.New("must be a number")
	}
	if a.Min != nil && n < *a.Min {
		return fmt.Errorf("must be at least %g", *a.Min)
	}
	if a.Max != nil && n > *a.Max {
		return fmt.Errorf("must be at most %g", *a.Max)
	}
	if a.Step != nil && !onStep(n, a.Min, *a.Step) {
		return fmt.Errorf("must be in steps of %g", *a.Step)
	}
	return nil
}

// onStep reports whether n lies on the grid min + k*step, with min defaulting
// to zero.
func onStep(n float64, min *float64, step float64) bool {
	base := 0.0
	if min != nil {
		base = *min
	}
	q := (n - base) / step
	return math.Abs(q-math.Round(q)) <= 1e-9*math.Max(1, math.Abs(q))
}

// ChoiceAttributes serves select, radio and checkbox elements. A checkbox
// without options is a single yes/no box; with options it is a multi-select.
type ChoiceAttributes struct {
	Options  []string `json:"options"`
	Multiple bool     `json:"-"`
}

func (a *ChoiceAttributes) check() error {
	if !a.Multiple && len(a.Options) == 0 {
		return errors.New("at least one option is required")
	}
	seen := make(map[string]bool, len(a.Options))
	for _, o := range a.Options {
		if strings.TrimSpace(o) == "" {
			return errors.New("options must not be blank")
		}
		if seen[o] {
			return fmt.Errorf("duplicate option %q", o)
		}
		seen[o] = true
	}
	return nil
}

func (a *ChoiceAttributes) has(option string) bool {
	for _, o := range a.Options {
		if o == option {
			return true
		}
	}
	return false
}

func (a *ChoiceAttributes) accept(value interface{}) error {
	if a.Multiple {
		if len(a.Options) == 0 {
			if _, ok := value.(bool); !ok {
				return errors.New("must be true or false")
			}
			return nil
		}
		picked, ok := value.([]interface{})
		if !ok {
			return errors.New("must be a list of options")
		}
		for _, p := range picked {
			s, ok := p.(string)
			if !ok || !a.has(s) {
				return fmt.Errorf("%v is not an allowed option", p)
			}
		}
		return nil
	}

	s, ok := value.(string)
	if !ok || !a.has(s) {
		return fmt.Errorf("%v is not an allowed option", value)
	}
	return nil
}

type DateAttributes struct {
	Min string `json:"min,omitempty"`
	Max string `json:"max,omitempty"`
}

func (a *DateAttributes) check() error {
	var minDate, maxDate time.Time
	var err error
	if a.Min != "" {
		if minDate, err = time.Parse(dateLayout, a.Min); err != nil {
			return errors.New("min must be a YYYY-MM-DD date")
		}
	}
	if a.Max != "" {
		if maxDate, err = time.Parse(dateLayout, a.Max); err != nil {
			return errors.New("max must be a YYYY-MM-DD date")
		}
	}
	if a.Min != "" && a.Max != "" && minDate.After(maxDate) {
		return errors.New("min must not be after max")
	}
	return nil
}

func (a *DateAttributes) accept(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return errors.New("must be a YYYY-MM-DD date")
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return errors.New("must be a YYYY-MM-DD date")
	}
	// check() guarantees the bounds parse
	if a.Min != "" {
		if minDate, _ := time.Parse(dateLayout, a.Min); d.Before(minDate) {
			return fmt.Errorf("must not be before %s", a.Min)
		}
	}
	if a.Max != "" {
		if maxDate, _ := time.Parse(dateLayout, a.Max); d.After(maxDate) {
			return fmt.Errorf("must not be after %s", a.Max)
		}
	}
	return nil
}

type EmailAttributes struct {
	// Domain restricts addresses to one domain, e.g. "uni.edu".
	Domain string `json:"domain,omitempty"`
}

func (a *EmailAttributes) check() error {
	if strings.Contains(a.Domain, "@") {
		return errors.New("domain must not contain @")
	}
	return nil
}

func (a *EmailAttributes) accept(value interface{}) error {
	s, ok := value.(string)
	if !ok || validate.Var(s, "required,email") != nil {
		return errors.New("must be a valid email address")
	}
	if a.Domain != "" && !strings.HasSuffix(strings.ToLower(s), "@"+strings.ToLower(a.Domain)) {
		return fmt.Errorf("must be an @%s address", a.Domain)
	}
	return nil
}

// FileAttributes describes an upload. The submitted value is the URL returned by
// the upload endpoint.
type FileAttributes struct {
	Accept    []string `json:"accept,omitempty"` // extensions such as ".pdf"
	MaxSizeMB int      `json:"max_size_mb,omitempty"`
}

func (a *FileAttributes) check() error {
	if a.MaxSizeMB < 0 {
		return errors.New("max_size_mb must not be negative")
	}
	for _, ext := range a.Accept {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("accept entry %q must start with a dot", ext)
		}
	}
	return nil
}

func (a *FileAttributes) accept(value interface{}) error {
	s, ok := value.(string)
	if !ok || validate.Var(s, "required,url") != nil {
		return errors.New("must be the URL of an uploaded file")
	}
	if len(a.Accept) == 0 {
		return nil
	}
	lower := strings.ToLower(s)
	for _, ext := range a.Accept {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return nil
		}
	}
	return fmt.Errorf("file type must be one of %s", strings.Join(a.Accept, ", "))
}

// AllowsExtension is used by the upload endpoint before storing a file.
func (a *FileAttributes) AllowsExtension(filename string) bool {
	if len(a.Accept) == 0 {
		return true
	}
	lower := strings.ToLower(filename)
	for _, ext := range a.Accept {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// Formula is stored verbatim; expressions are not evaluated server side.
type Formula struct {
	Name       string `json:"name" validate:"required,max=100"`
	Expression string `json:"expression" validate:"required,max=1000"`
}

type Threshold struct {
	Metric string   `json:"metric" validate:"required,max=100"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Label  string   `json:"label,omitempty" validate:"max=100"`
}

type MetricWeight struct {
	Metric string  `json:"metric" validate:"required,max=100"`
	Weight float64 `json:"weight" validate:"gte=0,lte=1"`
}

// CalculatedMetrics is the scoring configuration of a KPI.
type CalculatedMetrics struct {
	Formulas   []Formula      `json:"formulas" validate:"dive"`
	Thresholds []Threshold    `json:"thresholds" validate:"dive"`
	Weights    []MetricWeight `json:"weights" validate:"dive"`
}

// Validate checks shape only. The weight sum is checked by the caller with the
// same rule used for pillars and KPIs.
func (m CalculatedMetrics) Validate() error {
	errs := FieldErrors{}

	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs[strings.ToLower(fe.Namespace())] = fmt.Sprintf("failed %s", fe.Tag())
			}
		} else {
			return err
		}
	}

	for i, th := range m.Thresholds {
		if th.Min != nil && th.Max != nil && *th.Min > *th.Max {
			errs[fmt.Sprintf("thresholds[%d]", i)] = "min must not exceed max"
		}
	}

	seen := make(map[string]bool, len(m.Weights))
	for i, w := range m.Weights {
		if seen[w.Metric] {
			errs[fmt.Sprintf("weights[%d].metric", i)] = fmt.Sprintf("duplicate metric %q", w.Metric)
		}
		seen[w.Metric] = true
	}
	return errs.orNil()
}

// WeightValues returns the metric weights in declaration order.
func (m CalculatedMetrics) WeightValues() []float64 {
	out := make([]float64, 0, len(m.Weights))
	for _, w := range m.Weights {
		out = append(out, w.Weight)
	}
	return out
}
