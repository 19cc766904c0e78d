package notify

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Template is the subject and body used for a notification type
type Template struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// Vars are the values substituted into a template
type Vars struct {
	PatientName      string
	ProfessionalName string
	TreatmentName    string
	StartsAt         time.Time
	ClinicName       string
	Message          string
}

// DefaultTemplates returns the built-in template per notification type
func DefaultTemplates() map[Type]Template {
	return map[Type]Template{
		TypeConfirmation: {
			Subject: "Appointment confirmed - {{clinic_name}}",
			Body: "Hello {{patient_name}}, your appointment for {{treatment_name}} with " +
				"{{professional_name}} is confirmed for {{date}} at {{time}}.\n{{clinic_name}}",
		},
		TypeReminder: {
			Subject: "Appointment reminder - {{clinic_name}}",
			Body: "Hello {{patient_name}}, this is a reminder of your {{treatment_name}} appointment " +
				"with {{professional_name}} on {{date}} at {{time}}.\n{{clinic_name}}",
		},
		TypeCancellation: {
			Subject: "Appointment cancelled - {{clinic_name}}",
			Body: "Hello {{patient_name}}, your appointment for {{treatment_name}} on {{date}} at {{time}} " +
				"has been cancelled. Please contact us to reschedule.\n{{clinic_name}}",
		},
		TypeCustom: {
			Subject: "Message from {{clinic_name}}",
			Body:    "Hello {{patient_name}}, {{message}}\n{{clinic_name}}",
		},
	}
}

// Templates renders notification text. Safe for concurrent use.
type Templates struct {
	mu       sync.RWMutex
	byType   map[Type]Template
	location *time.Location
}

// NewTemplates creates the default template set rendering dates in loc (UTC when nil)
func NewTemplates(loc *time.Location) *Templates {
	if loc == nil {
		loc = time.UTC
	}
	return &Templates{byType: DefaultTemplates(), location: loc}
}

// Set overrides the template for a type
func (t *Templates) Set(typ Type, tmpl Template) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byType[typ] = tmpl
}

// Render returns subject and body for the given type
func (t *Templates) Render(typ Type, v Vars) (subject, body string) {
	t.mu.RLock()
	tmpl, ok := t.byType[typ]
	t.mu.RUnlock()
	if !ok {
		tmpl = Template{Body: "{{message}}"}
	}

	starts := v.StartsAt.In(t.location)
	r := strings.NewReplacer(
		"{{patient_name}}", v.PatientName,
		"{{professional_name}}", v.ProfessionalName,
		"{{treatment_name}}", v.TreatmentName,
		"{{date}}", starts.Format("02/01/2006"),
		"{{time}}", starts.Format("15:04"),
		"{{clinic_name}}", v.ClinicName,
		"{{message}}", v.Message,
	)
	return r.Replace(tmpl.Subject), r.Replace(tmpl.Body)
}

// LoadYAML overrides templates from a document keyed by notification type:
//
//	REMINDER:
//	  subject: "Reminder from {{clinic_name}}"
//	  body: "Hi {{patient_name}}, see you on {{date}} at {{time}}."
//
// Types missing from the document keep their current template.
func (t *Templates) LoadYAML(r io.Reader) error {
	var doc map[Type]Template
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.Join(ErrInvalidTemplates, err)
	}

	for typ, tmpl := range doc {
		if !typ.Valid() {
			return fmt.Errorf("%w: unknown notification type %q", ErrInvalidTemplates, typ)
		}
		if strings.TrimSpace(tmpl.Body) == "" {
			return fmt.Errorf("%w: empty body for %s", ErrInvalidTemplates, typ)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for typ, tmpl := range doc {
		t.byType[typ] = tmpl
	}
	return nil
}

// LoadTemplatesFile builds the default set and applies overrides from path.
// An empty path returns the defaults.
func LoadTemplatesFile(path string, loc *time.Location) (*Templates, error) {
	t := NewTemplates(loc)
	if path == "" {
		return t, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrInvalidTemplates, err)
	}
	defer f.Close()

	if err := t.LoadYAML(f); err != nil {
		return nil, err
	}
	return t, nil
}
