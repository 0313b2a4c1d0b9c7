package service

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/haniscreator/patient-portal/internal/logger"
	"github.com/haniscreator/patient-portal/internal/patient"
)

// DefaultPreviewLimit is how many patients the preview shows.
const DefaultPreviewLimit = 5

// Placeholders written when the patient list cannot be fetched.
const (
	PreviewLoadFailed = "Failed to load"
	TableLoadFailed   = `<tr><td colspan="4">Failed to load</td></tr>`
)

// PatientLister fetches the full patient collection.
type PatientLister interface {
	List(ctx context.Context) ([]patient.Record, error)
}

// Container receives rendered markup. Every write replaces what was there.
type Container interface {
	SetHTML(html string)
}

// ListRenderer renders patients into the preview and table containers.
type ListRenderer struct {
	lister       PatientLister
	previewLimit int
	log          *zap.Logger
}

func NewListRenderer(lister PatientLister, previewLimit int, log *zap.Logger) *ListRenderer {
	if previewLimit <= 0 {
		previewLimit = DefaultPreviewLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ListRenderer{lister: lister, previewLimit: previewLimit, log: log}
}

// RenderPreview writes the first patients (server order) as name/age lines.
// On fetch failure the container gets PreviewLoadFailed and the error is returned.
func (r *ListRenderer) RenderPreview(ctx context.Context, c Container) error {
	recs, err := r.lister.List(ctx)
	if err != nil {
		r.log.Warn("ListRenderer.RenderPreview load failed", zap.String(logger.RequestIDKey, logger.RequestID(ctx)), zap.Error(err))
		c.SetHTML(PreviewLoadFailed)
		return err
	}
	if len(recs) > r.previewLimit {
		recs = recs[:r.previewLimit]
	}

	var b strings.Builder
	for _, p := range recs {
		b.WriteString("<div><strong>")
		b.WriteString(escapeHTML(p.Name))
		b.WriteString("</strong> — ")
		b.WriteString(ageText(p.Age))
		b.WriteString("</div>")
	}
	c.SetHTML(b.String())
	return nil
}

// RenderTable writes one row per patient: id, name, age, medical history.
// On fetch failure the container gets TableLoadFailed and the error is returned.
func (r *ListRenderer) RenderTable(ctx context.Context, c Container) error {
	recs, err := r.lister.List(ctx)
	if err != nil {
		r.log.Warn("ListRenderer.RenderTable load failed", zap.String(logger.RequestIDKey, logger.RequestID(ctx)), zap.Error(err))
		c.SetHTML(TableLoadFailed)
		return err
	}

	var b strings.Builder
	for _, p := range recs {
		history := ""
		if p.MedicalHistory != nil {
			history = *p.MedicalHistory
		}
		// id and age come from the server and are not escaped
		b.WriteString("<tr><td>")
		b.WriteString(string(p.ID))
		b.WriteString("</td><td>")
		b.WriteString(escapeHTML(p.Name))
		b.WriteString("</td><td>")
		b.WriteString(ageText(p.Age))
		b.WriteString("</td><td>")
		b.WriteString(escapeHTML(history))
		b.WriteString("</td></tr>")
	}
	c.SetHTML(b.String())
	return nil
}

func ageText(age *int) string {
	if age == nil {
		return ""
	}
	return strconv.Itoa(*age)
}

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

func escapeHTML(s string) string { return htmlReplacer.Replace(s) }
