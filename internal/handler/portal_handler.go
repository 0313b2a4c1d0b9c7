package handler

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haniscreator/patient-portal/internal/adapter"
	"github.com/haniscreator/patient-portal/internal/logger"
	"github.com/haniscreator/patient-portal/internal/patient"
	"github.com/haniscreator/patient-portal/internal/service"
)

// requestForm is a service.Form over the posted values.
type requestForm struct {
	values url.Values
	attrs  map[string]string
}

func (f *requestForm) Values() url.Values      { return f.values }
func (f *requestForm) Attr(name string) string { return f.attrs[name] }
func (f *requestForm) Reset()                  { f.values = url.Values{} }

// htmlContainer collects renderer output for one page.
type htmlContainer struct {
	html string
	set  bool
}

func (c *htmlContainer) SetHTML(html string) {
	c.html = html
	c.set = true
}

// RegisterPortalRoutes attaches the HTML pages and fragments.
func RegisterPortalRoutes(r gin.IRouter, api adapter.PatientAPI, renderer *service.ListRenderer, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}

	r.GET("/", func(c *gin.Context) {
		view := pageView{Title: "Dashboard", ShowAdd: true, ShowPreview: true}
		var info htmlContainer
		_ = renderer.RenderPreview(c.Request.Context(), &info)
		view.PatientInfo = template.HTML(info.html)
		renderPage(c, log, http.StatusOK, view)
	})

	r.POST("/patients", func(c *gin.Context) {
		if err := c.Request.ParseForm(); err != nil {
			c.String(http.StatusBadRequest, "invalid form")
			return
		}
		ctx := c.Request.Context()
		form := &requestForm{values: c.Request.PostForm}

		var info htmlContainer
		view := pageView{Title: "Dashboard", ShowAdd: true, ShowPreview: true}
		submitter := service.NewFormSubmitter(
			service.AddPatientConfig(),
			api,
			noticeTo(&view),
			func(ctx context.Context) { _ = renderer.RenderPreview(ctx, &info) },
			log,
		)
		res := submitter.Submit(ctx, form)
		if !info.set {
			_ = renderer.RenderPreview(ctx, &info)
		}

		view.Form = formFromValues(form.Values())
		view.PatientInfo = template.HTML(info.html)
		renderPage(c, log, submitStatus(res), view)
	})

	r.GET("/patients", func(c *gin.Context) {
		view := pageView{Title: "Patients", ShowTable: true}
		var rows htmlContainer
		_ = renderer.RenderTable(c.Request.Context(), &rows)
		view.TableRows = template.HTML(rows.html)
		renderPage(c, log, http.StatusOK, view)
	})

	r.GET("/patients/:id/edit", func(c *gin.Context) {
		id := c.Param("id")
		p, err := api.Get(c.Request.Context(), patient.ID(id))
		if err != nil {
			log.Error("portal load patient", zap.String(logger.RequestIDKey, logger.RequestID(c.Request.Context())), zap.Error(err))
			c.String(http.StatusBadGateway, "Failed to load")
			return
		}
		if p == nil {
			c.String(http.StatusNotFound, "patient not found")
			return
		}

		view := pageView{Title: "Update patient", ShowUpdate: true, Form: formFromRecord(p)}
		renderPage(c, log, http.StatusOK, view)
	})

	r.POST("/patients/:id", func(c *gin.Context) {
		if err := c.Request.ParseForm(); err != nil {
			c.String(http.StatusBadRequest, "invalid form")
			return
		}
		ctx := c.Request.Context()
		id := c.Param("id")
		form := &requestForm{
			values: c.Request.PostForm,
			attrs:  map[string]string{service.PatientIDAttr: id},
		}

		var info htmlContainer
		view := pageView{Title: "Update patient", ShowUpdate: true, ShowPreview: true}
		submitter := service.NewFormSubmitter(
			service.UpdatePatientConfig(),
			api,
			noticeTo(&view),
			func(ctx context.Context) { _ = renderer.RenderPreview(ctx, &info) },
			log,
		)
		res := submitter.Submit(ctx, form)
		if !info.set {
			_ = renderer.RenderPreview(ctx, &info)
		}

		view.Form = formFromValues(form.Values())
		view.Form.PatientID = id
		view.PatientInfo = template.HTML(info.html)
		renderPage(c, log, submitStatus(res), view)
	})

	r.GET("/fragments/patient-info", func(c *gin.Context) {
		var info htmlContainer
		_ = renderer.RenderPreview(c.Request.Context(), &info)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(info.html))
	})

	r.GET("/fragments/patients-table", func(c *gin.Context) {
		var rows htmlContainer
		_ = renderer.RenderTable(c.Request.Context(), &rows)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(rows.html))
	})
}

func noticeTo(view *pageView) service.Notifier {
	return service.NotifierFunc(func(_ context.Context, n service.Notification) {
		view.Notice = &n
	})
}

func formFromRecord(p *patient.Record) formView {
	fv := formView{PatientID: string(p.ID), Name: p.Name}
	if p.Age != nil {
		fv.Age = strconv.Itoa(*p.Age)
	}
	if p.MedicalHistory != nil {
		fv.MedicalHistory = *p.MedicalHistory
	}
	return fv
}

func submitStatus(res service.Result) int {
	switch {
	case res.Success:
		return http.StatusOK
	case errors.Is(res.Err, service.ErrValidation), errors.Is(res.Err, service.ErrMissingPatientID):
		return http.StatusUnprocessableEntity
	}
	var se *adapter.StatusError
	if errors.As(res.Err, &se) && se.StatusCode == http.StatusNotFound {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func renderPage(c *gin.Context, log *zap.Logger, status int, view pageView) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, view); err != nil {
		log.Error("portal render page", zap.String(logger.RequestIDKey, logger.RequestID(c.Request.Context())), zap.Error(err))
		c.String(http.StatusInternalServerError, "internal")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
