package handler

import (
	"html/template"
	"net/url"

	"github.com/haniscreator/patient-portal/internal/patient"
	"github.com/haniscreator/patient-portal/internal/service"
)

// pageView feeds the page shell. Container fields hold markup already
// escaped by the renderer.
type pageView struct {
	Title       string
	Notice      *service.Notification
	Form        formView
	PatientInfo template.HTML
	TableRows   template.HTML
	ShowAdd     bool
	ShowUpdate  bool
	ShowPreview bool
	ShowTable   bool
}

type formView struct {
	PatientID      string
	Name           string
	Age            string
	MedicalHistory string
}

func formFromValues(v url.Values) formView {
	return formView{
		Name:           v.Get(patient.FieldName),
		Age:            v.Get(patient.FieldAge),
		MedicalHistory: v.Get(patient.FieldMedicalHistory),
	}
}

var pageTmpl = template.Must(template.New("page").Funcs(template.FuncMap{
	"isError": func(n *service.Notification) bool { return n != nil && n.Level == service.LevelError },
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<nav><a href="/">Dashboard</a> <a href="/patients">Patients</a></nav>
{{with .Notice}}<div id="notice" role="alert" class="{{if isError $.Notice}}error{{else}}success{{end}}">{{.Message}}</div>{{end}}
{{if .ShowAdd}}
<form id="add-patient-form" method="post" action="/patients">
  <input id="name" name="name" value="{{.Form.Name}}" required>
  <input id="age" name="age" type="number" min="0" value="{{.Form.Age}}">
  <textarea id="medical_history" name="medical_history">{{.Form.MedicalHistory}}</textarea>
  <button type="submit">Add patient</button>
</form>
{{end}}
{{if .ShowUpdate}}
<form id="update-patient-form" method="post" action="/patients/{{.Form.PatientID}}" data-patient-id="{{.Form.PatientID}}">
  <input id="name" name="name" value="{{.Form.Name}}">
  <input id="age" name="age" type="number" min="0" value="{{.Form.Age}}">
  <textarea id="medical_history" name="medical_history">{{.Form.MedicalHistory}}</textarea>
  <button type="submit">Update patient</button>
</form>
{{end}}
{{if .ShowPreview}}<div id="patient-info">{{.PatientInfo}}</div>{{end}}
{{if .ShowTable}}
<table id="patients-table">
  <thead><tr><th>ID</th><th>Name</th><th>Age</th><th>Medical history</th></tr></thead>
  <tbody>{{.TableRows}}</tbody>
</table>
{{end}}
</body>
</html>
`))
