package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"
	"strconv"
	"time"

	"github.com/Fellisss/Weather1/internal/modules/observations/service"
	"github.com/Fellisss/Weather1/internal/modules/observations/types"
)

// DisplayTimeLayout is how timestamps appear in tables and cards.
const DisplayTimeLayout = "02.01.2006 15:04"

var pagesTmpl *template.Template

var funcs = template.FuncMap{
	"displayTime": func(t time.Time) string { return t.Format(DisplayTimeLayout) },
	"number":      func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) },
}

// loadTemplatesFromFS loads page templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.New("views").Funcs(funcs).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	pagesTmpl = tmpl
	return nil
}

// LoadTemplates loads the embedded templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// Flash returns the banner text for the ?status= value set after a write, or
// "" when there is nothing to show.
func Flash(status string) string {
	switch status {
	case types.ActionCreated:
		return "Observation saved."
	case types.ActionUpdated:
		return "Observation updated."
	case types.ActionDeleted:
		return "Observation deleted."
	default:
		return ""
	}
}

type IndexData struct {
	Flash  string
	Cities []string
	Latest *types.Observation
	Today  []types.Observation
	// Card is the city card as rendered on first load; the page script
	// swaps it via TodayByCity when the selection changes.
	Card TodayData
}

type TodayData struct {
	City        string
	Observation *types.Observation
}

type ArchiveData struct {
	Cities       []string
	City         string
	StartDate    string
	EndDate      string
	Observations []types.Observation
}

// FormData drives both the create and the edit page.
type FormData struct {
	Cities []string
	Draft  service.Draft
	Errors service.FieldErrors
}

type DeleteData struct {
	Observation types.Observation
}

func render(w io.Writer, name string, data any) error {
	if pagesTmpl == nil {
		return errors.New("templates not loaded: call views.LoadTemplates during startup")
	}
	return pagesTmpl.ExecuteTemplate(w, name, data)
}

func RenderIndex(w io.Writer, data *IndexData) error {
	return render(w, "index.html", data)
}

// RenderTodayPartial executes only the city card fragment into w.
func RenderTodayPartial(w io.Writer, data *TodayData) error {
	return render(w, "partials/today.html", data)
}

func RenderArchive(w io.Writer, data *ArchiveData) error {
	return render(w, "archive.html", data)
}

func RenderCreate(w io.Writer, data *FormData) error {
	return render(w, "create.html", data)
}

func RenderEdit(w io.Writer, data *FormData) error {
	return render(w, "edit.html", data)
}

func RenderDelete(w io.Writer, data *DeleteData) error {
	return render(w, "delete.html", data)
}
