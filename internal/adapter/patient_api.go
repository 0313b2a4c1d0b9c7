package adapter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/haniscreator/patient-portal/internal/logger"
	"github.com/haniscreator/patient-portal/internal/patient"
)

// PatientsPath is the collection endpoint of the patients API.
const PatientsPath = "/api/patients"

// fallback text when an error response carries no usable JSON body
const genericFailure = "server error"

const maxBodyBytes = 1 << 20

// PatientAPI is the interface the rest of the app depends on.
type PatientAPI interface {
	// List returns every patient in the order the API returned them.
	List(ctx context.Context) ([]patient.Record, error)
	// Get returns (nil, nil) if the API answers 404.
	Get(ctx context.Context, id patient.ID) (*patient.Record, error)
	// Send issues one create/update request. An empty id targets the
	// collection endpoint, otherwise endpoint/{id}.
	Send(ctx context.Context, method, endpoint string, id patient.ID, in patient.Input) (*Outcome, error)
}

// Outcome describes a successful create/update call.
type Outcome struct {
	StatusCode int
	ID         patient.ID
	Message    string
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	// Message is the JSON error/message field, the status code, or a
	// generic text when the body was not JSON.
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("patients api status %d: %s", e.StatusCode, e.Message)
}

// RejectedError is returned when a 2xx response carries success:false.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return "patients api rejected request: " + e.Message
}

// PatientAPIAdapter calls the patients HTTP API.
type PatientAPIAdapter struct {
	baseURL    *url.URL
	httpClient *http.Client
	log        *zap.Logger
}

var _ PatientAPI = (*PatientAPIAdapter)(nil)

// NewPatientAPIAdapter constructs a PatientAPIAdapter.
// base := "http://localhost:5000" (no trailing slash required).
// timeout bounds every request; a nil logger disables logging.
func NewPatientAPIAdapter(base string, timeout time.Duration, log *zap.Logger) (*PatientAPIAdapter, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", base)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PatientAPIAdapter{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}, nil
}

// response envelope shared by create/update and error answers
type apiResponse struct {
	Success *bool      `json:"success"`
	Message string     `json:"message"`
	Error   string     `json:"error"`
	ID      patient.ID `json:"id"`
	Status  string     `json:"status"`
}

func (h *PatientAPIAdapter) resolve(endpoint string, id patient.ID) string {
	elems := []string{strings.TrimPrefix(endpoint, "/")}
	if id != "" {
		elems = append(elems, url.PathEscape(string(id)))
	}
	return h.baseURL.JoinPath(elems...).String()
}

func (h *PatientAPIAdapter) do(ctx context.Context, method, target string, body []byte) (int, []byte, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if rid := logger.RequestID(ctx); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, b, nil
}

// List implements PatientAPI.
func (h *PatientAPIAdapter) List(ctx context.Context) ([]patient.Record, error) {
	rid := logger.RequestID(ctx)
	h.log.Debug("PatientAPIAdapter.List called", zap.String(logger.RequestIDKey, rid))

	status, body, err := h.do(ctx, http.MethodGet, h.resolve(PatientsPath, ""), nil)
	if err != nil {
		h.log.Error("PatientAPIAdapter.List failed", zap.String(logger.RequestIDKey, rid), zap.Error(err))
		return nil, err
	}
	if !isSuccess(status) {
		err := statusError(status, body)
		h.log.Warn("PatientAPIAdapter.List bad status", zap.String(logger.RequestIDKey, rid), zap.Int(logger.StatusKey, status), zap.Error(err))
		return nil, err
	}

	var recs []patient.Record
	if err := json.Unmarshal(body, &recs); err != nil {
		h.log.Error("PatientAPIAdapter.List decode failed", zap.String(logger.RequestIDKey, rid), zap.Error(err))
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if recs == nil {
		recs = []patient.Record{}
	}
	for _, r := range recs {
		if r.RawAge != "" {
			h.log.Debug("PatientAPIAdapter.List unreadable age",
				zap.String(logger.RequestIDKey, rid),
				zap.String(logger.PatientIDKey, string(r.ID)),
				zap.String("age", r.RawAge),
			)
		}
	}

	h.log.Debug("PatientAPIAdapter.List succeeded", zap.String(logger.RequestIDKey, rid), zap.Int("count", len(recs)))
	return recs, nil
}

// Get implements PatientAPI.
func (h *PatientAPIAdapter) Get(ctx context.Context, id patient.ID) (*patient.Record, error) {
	if id == "" {
		return nil, fmt.Errorf("get patient: empty id")
	}
	fields := []zap.Field{
		zap.String(logger.RequestIDKey, logger.RequestID(ctx)),
		zap.String(logger.PatientIDKey, string(id)),
	}
	h.log.Debug("PatientAPIAdapter.Get called", fields...)

	status, body, err := h.do(ctx, http.MethodGet, h.resolve(PatientsPath, id), nil)
	if err != nil {
		h.log.Error("PatientAPIAdapter.Get failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	if status == http.StatusNotFound {
		h.log.Debug("PatientAPIAdapter.Get not found", fields...)
		return nil, nil
	}
	if !isSuccess(status) {
		err := statusError(status, body)
		h.log.Warn("PatientAPIAdapter.Get bad status", append(fields, zap.Int(logger.StatusKey, status), zap.Error(err))...)
		return nil, err
	}

	var rec patient.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		h.log.Error("PatientAPIAdapter.Get decode failed", append(fields, zap.Error(err))...)
		return nil, fmt.Errorf("decode response: %w", err)
	}

	h.log.Debug("PatientAPIAdapter.Get succeeded", fields...)
	return &rec, nil
}

// Send implements PatientAPI.
func (h *PatientAPIAdapter) Send(ctx context.Context, method, endpoint string, id patient.ID, in patient.Input) (*Outcome, error) {
	rid := logger.RequestID(ctx)
	fields := []zap.Field{
		zap.String(logger.RequestIDKey, rid),
		zap.String("method", method),
		zap.String(logger.PatientIDKey, string(id)),
	}
	h.log.Info("PatientAPIAdapter.Send called", fields...)

	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	status, body, err := h.do(ctx, method, h.resolve(endpoint, id), payload)
	if err != nil {
		h.log.Error("PatientAPIAdapter.Send failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	fields = append(fields, zap.Int(logger.StatusKey, status))

	if !isSuccess(status) {
		err := statusError(status, body)
		h.log.Warn("PatientAPIAdapter.Send bad status", append(fields, zap.Error(err))...)
		return nil, err
	}

	var ar apiResponse
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &ar); err != nil {
			// a 2xx without a JSON envelope still counts as success
			h.log.Debug("PatientAPIAdapter.Send non-JSON success body", fields...)
			ar = apiResponse{}
		}
	}
	if ar.Success != nil && !*ar.Success {
		err := &RejectedError{Message: firstNonEmpty(ar.Error, ar.Message, "request rejected")}
		h.log.Warn("PatientAPIAdapter.Send rejected", append(fields, zap.Error(err))...)
		return nil, err
	}

	h.log.Info("PatientAPIAdapter.Send succeeded", fields...)
	return &Outcome{
		StatusCode: status,
		ID:         ar.ID,
		Message:    firstNonEmpty(ar.Message, ar.Status),
	}, nil
}

func isSuccess(status int) bool { return status >= 200 && status < 300 }

// statusError extracts a message from an error body: the error field, then
// message, then the status code. Bodies that are not JSON objects fall back
// to a generic text so the caller always has something to show.
func statusError(status int, body []byte) *StatusError {
	var ar apiResponse
	if len(bytes.TrimSpace(body)) == 0 || json.Unmarshal(body, &ar) != nil {
		return &StatusError{StatusCode: status, Message: genericFailure}
	}
	return &StatusError{
		StatusCode: status,
		Message:    firstNonEmpty(ar.Error, ar.Message, strconv.Itoa(status)),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
