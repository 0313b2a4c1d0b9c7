package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"github.com/haniscreator/patient-portal/internal/logger"
	"github.com/haniscreator/patient-portal/internal/patient"
	"github.com/haniscreator/patient-portal/internal/repository"
)

var inputFields = []string{patient.FieldName, patient.FieldAge, patient.FieldMedicalHistory}

// RegisterAPIRoutes attaches the patients JSON API backed by store.
func RegisterAPIRoutes(r gin.IRouter, store repository.PatientStore, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}

	r.GET("/api/patients", func(c *gin.Context) {
		recs, err := store.List(c.Request.Context())
		if err != nil {
			log.Error("api list patients", zap.String(logger.RequestIDKey, logger.RequestID(c.Request.Context())), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal"})
			return
		}
		c.JSON(http.StatusOK, recs)
	})

	r.POST("/api/patients", func(c *gin.Context) {
		in, err := bindInput(c)
		if err == nil {
			err = in.Validate(patient.FieldName)
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": validationText(err)})
			return
		}

		p, err := store.Create(c.Request.Context(), in)
		if err != nil {
			log.Error("api create patient", zap.String(logger.RequestIDKey, logger.RequestID(c.Request.Context())), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "id": p.ID})
	})

	r.GET("/api/patients/:id", func(c *gin.Context) {
		p, err := store.GetByID(c.Request.Context(), patient.ID(c.Param("id")))
		if err != nil {
			writeStoreError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, p)
	})

	r.PUT("/api/patients/:id", func(c *gin.Context) {
		in, err := bindInput(c)
		if err == nil {
			err = in.Validate()
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": validationText(err)})
			return
		}

		p, err := store.Update(c.Request.Context(), patient.ID(c.Param("id")), in)
		if err != nil {
			writeStoreError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "updated", "id": p.ID})
	})

	r.DELETE("/api/patients/:id", func(c *gin.Context) {
		if err := store.Delete(c.Request.Context(), patient.ID(c.Param("id"))); err != nil {
			writeStoreError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "deleted"})
	})
}

// bindInput accepts a JSON body or a url-encoded/multipart form.
func bindInput(c *gin.Context) (patient.Input, error) {
	switch c.ContentType() {
	case binding.MIMEPOSTForm, binding.MIMEMultipartPOSTForm:
		if c.ContentType() == binding.MIMEMultipartPOSTForm {
			if err := c.Request.ParseMultipartForm(1 << 20); err != nil {
				return patient.Input{}, err
			}
		} else if err := c.Request.ParseForm(); err != nil {
			return patient.Input{}, err
		}
		return patient.InputFromValues(c.Request.PostForm, inputFields)
	}

	body, err := c.GetRawData()
	if err != nil {
		return patient.Input{}, err
	}
	return patient.DecodeInput(body)
}

func validationText(err error) string {
	if errors.Is(err, patient.ErrInvalidInput) {
		return patient.ValidationMessage(err)
	}
	return "invalid request"
}

func writeStoreError(c *gin.Context, log *zap.Logger, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "patient not found"})
		return
	}
	log.Error("api store error", zap.String(logger.RequestIDKey, logger.RequestID(c.Request.Context())), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal"})
}
