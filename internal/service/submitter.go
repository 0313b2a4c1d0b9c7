package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/haniscreator/patient-portal/internal/adapter"
	"github.com/haniscreator/patient-portal/internal/logger"
	"github.com/haniscreator/patient-portal/internal/patient"
)

// PatientIDAttr is the form attribute carrying the record being updated.
const PatientIDAttr = "patient-id"

var (
	// ErrMissingPatientID means an update form was submitted without its target id.
	ErrMissingPatientID = errors.New("update form has no patient id")
	// ErrValidation wraps input problems caught before any request is sent.
	ErrValidation = errors.New("validation failed")
)

// Form is the submitting form: its field values, an attribute lookup
// (data-* equivalent) and a reset hook.
type Form interface {
	Values() url.Values
	Attr(name string) string
	Reset()
}

// Level tells a Notifier how to present a message.
type Level int

const (
	LevelSuccess Level = iota
	LevelError
)

// Notification is what the user is told about a submission.
type Notification struct {
	Level   Level
	Message string
}

// Notifier shows a notification to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// SubmitConfig parameterizes a FormSubmitter.
type SubmitConfig struct {
	Method   string
	Endpoint string
	// ItemScoped sends to Endpoint/{id}, with id read from the form's
	// PatientIDAttr attribute.
	ItemScoped bool
	// Fields are the form fields copied into the request body.
	Fields []string
	// Required fields must be present and non-empty.
	Required       []string
	SuccessMessage string
	FailurePrefix  string
	ResetOnSuccess bool
}

var allFields = []string{patient.FieldName, patient.FieldAge, patient.FieldMedicalHistory}

// AddPatientConfig creates a patient and clears the form on success.
func AddPatientConfig() SubmitConfig {
	return SubmitConfig{
		Method:         http.MethodPost,
		Endpoint:       adapter.PatientsPath,
		Fields:         allFields,
		Required:       []string{patient.FieldName},
		SuccessMessage: "Patient added successfully!",
		FailurePrefix:  "Error adding patient: ",
		ResetOnSuccess: true,
	}
}

// UpdatePatientConfig updates the patient named by the form's id attribute.
// The form keeps its values on success.
func UpdatePatientConfig() SubmitConfig {
	return SubmitConfig{
		Method:         http.MethodPut,
		Endpoint:       adapter.PatientsPath,
		ItemScoped:     true,
		Fields:         allFields,
		SuccessMessage: "Patient updated successfully!",
		FailurePrefix:  "Error updating patient: ",
	}
}

// Result is returned from Submit alongside the notification.
type Result struct {
	Success bool
	Message string
	// Reset reports whether the form was cleared.
	Reset bool
	ID    patient.ID
	Err   error
}

// FormSubmitter sends one form submission to the patients API.
type FormSubmitter struct {
	cfg      SubmitConfig
	api      adapter.PatientAPI
	notifier Notifier
	refresh  func(ctx context.Context)
	log      *zap.Logger
}

// NewFormSubmitter wires a submitter. refresh runs after every successful
// submission and may be nil.
func NewFormSubmitter(cfg SubmitConfig, api adapter.PatientAPI, notifier Notifier, refresh func(ctx context.Context), log *zap.Logger) *FormSubmitter {
	if notifier == nil {
		notifier = NotifierFunc(func(context.Context, Notification) {})
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FormSubmitter{cfg: cfg, api: api, notifier: notifier, refresh: refresh, log: log}
}

// Submit collects the form, issues exactly one request and reports the
// outcome. Failures never reset the form. Nothing is retried.
func (s *FormSubmitter) Submit(ctx context.Context, form Form) Result {
	rid := logger.RequestID(ctx)

	var id patient.ID
	if s.cfg.ItemScoped {
		id = patient.ID(form.Attr(PatientIDAttr))
		if id == "" {
			s.log.Error("FormSubmitter.Submit missing patient id", zap.String(logger.RequestIDKey, rid))
			return s.fail(ctx, ErrMissingPatientID, ErrMissingPatientID.Error())
		}
	}

	in, err := patient.InputFromValues(form.Values(), s.cfg.Fields)
	if err == nil {
		err = in.Validate(s.cfg.Required...)
	}
	if err != nil {
		return s.fail(ctx, fmt.Errorf("%w: %w", ErrValidation, err), patient.ValidationMessage(err))
	}

	out, err := s.api.Send(ctx, s.cfg.Method, s.cfg.Endpoint, id, in)
	if err != nil {
		s.log.Warn("FormSubmitter.Submit failed",
			zap.String(logger.RequestIDKey, rid),
			zap.String(logger.OperationKey, s.cfg.Method),
			zap.String(logger.PatientIDKey, string(id)),
			zap.Error(err),
		)
		return s.fail(ctx, err, failureMessage(err))
	}

	res := Result{Success: true, Message: s.cfg.SuccessMessage, ID: out.ID}
	if res.ID == "" {
		res.ID = id
	}
	s.notifier.Notify(ctx, Notification{Level: LevelSuccess, Message: res.Message})
	if s.cfg.ResetOnSuccess {
		form.Reset()
		res.Reset = true
	}
	if s.refresh != nil {
		s.refresh(ctx)
	}

	s.log.Info("FormSubmitter.Submit succeeded",
		zap.String(logger.RequestIDKey, rid),
		zap.String(logger.OperationKey, s.cfg.Method),
		zap.String(logger.PatientIDKey, string(res.ID)),
	)
	return res
}

func (s *FormSubmitter) fail(ctx context.Context, err error, reason string) Result {
	msg := s.cfg.FailurePrefix + reason
	s.notifier.Notify(ctx, Notification{Level: LevelError, Message: msg})
	return Result{Message: msg, Err: err}
}

// failureMessage turns an API error into the text shown to the user.
func failureMessage(err error) string {
	var se *adapter.StatusError
	if errors.As(err, &se) {
		return se.Message
	}
	var re *adapter.RejectedError
	if errors.As(err, &re) {
		return re.Message
	}
	return "server error"
}
