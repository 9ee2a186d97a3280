package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFiles embed.FS

type kindSpec struct {
	file    string
	subject string
	title   string
	accent  string
}

var kinds = map[Kind]kindSpec{
	KindConfirmation: {file: "templates/confirmation.html", subject: "Appointment confirmed", title: "Appointment confirmed", accent: "#8b5cf6"},
	KindReminder:     {file: "templates/reminder.html", subject: "Reminder: your appointment is tomorrow", title: "See you tomorrow", accent: "#f59e0b"},
	KindCancellation: {file: "templates/cancellation.html", subject: "Appointment cancelled", title: "Appointment cancelled", accent: "#6b7280"},
}

// Renderer turns a Message into an HTML email and a short text body.
type Renderer struct {
	business  string
	templates map[Kind]*template.Template
}

func NewRenderer(business string) (*Renderer, error) {
	r := &Renderer{business: business, templates: make(map[Kind]*template.Template, len(kinds))}
	for kind, spec := range kinds {
		tmpl, err := template.ParseFS(templateFiles, "templates/layout.html", spec.file)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", kind, err)
		}
		r.templates[kind] = tmpl
	}
	return r, nil
}

type templateData struct {
	Title       string
	Accent      template.CSS
	Business    string
	ServiceName string
	Date        string
	StartTime   string
	EndTime     string
	Location    string
	Price       string
}

// Subject prefixes the kind's subject with the business name.
func (r *Renderer) Subject(msg Message) (string, error) {
	spec, ok := kinds[msg.Kind]
	if !ok {
		return "", ErrUnknownKind
	}
	return fmt.Sprintf("%s - %s", spec.subject, r.business), nil
}

func (r *Renderer) HTML(msg Message) (string, error) {
	spec, ok := kinds[msg.Kind]
	if !ok {
		return "", ErrUnknownKind
	}

	data := templateData{
		Title:       spec.title,
		Accent:      template.CSS(spec.accent),
		Business:    r.business,
		ServiceName: msg.ServiceName,
		Date:        msg.Date.Format("Monday, January 2, 2006"),
		StartTime:   msg.StartTime,
		EndTime:     msg.EndTime,
		Location:    msg.Location,
	}
	if msg.Kind == KindConfirmation && msg.Price > 0 {
		data.Price = fmt.Sprintf("%.2f", msg.Price)
	}

	var buf bytes.Buffer
	if err := r.templates[msg.Kind].ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render %s: %w", msg.Kind, err)
	}
	return buf.String(), nil
}

// Text is the plain body used for SMS and as the email alternative part.
func (r *Renderer) Text(msg Message) (string, error) {
	date := msg.Date.Format("Mon Jan 2")
	switch msg.Kind {
	case KindConfirmation:
		return fmt.Sprintf("%s: your %s appointment on %s at %s is confirmed.", r.business, msg.ServiceName, date, msg.StartTime), nil
	case KindReminder:
		return fmt.Sprintf("%s: reminder, your %s appointment is tomorrow (%s) at %s.", r.business, msg.ServiceName, date, msg.StartTime), nil
	case KindCancellation:
		return fmt.Sprintf("%s: your %s appointment on %s at %s has been cancelled.", r.business, msg.ServiceName, date, msg.StartTime), nil
	}
	return "", ErrUnknownKind
}
