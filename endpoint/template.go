package endpoint

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
)

// HTMLTemplateRenderer executes Template with Values (or the template Name,
// when set) and writes the result as text/html.
//
// Execution is buffered, so a template error becomes a 500 instead of a
// truncated page.
type HTMLTemplateRenderer struct {
	Status   int
	Template *template.Template
	Name     string
	Values   any
}

func (hr *HTMLTemplateRenderer) Render(w http.ResponseWriter, r *http.Request) error {
	if hr.Template == nil {
		return errors.New("endpoint: nil html/template")
	}

	var buf bytes.Buffer
	var err error
	if hr.Name != "" {
		err = hr.Template.ExecuteTemplate(&buf, hr.Name, hr.Values)
	} else {
		err = hr.Template.Execute(&buf, hr.Values)
	}
	if err != nil {
		return err
	}

	return (&HTMLRenderer{StringRenderer{Status: hr.Status, Body: buf.String()}}).Render(w, r)
}
