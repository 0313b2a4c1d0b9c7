package service

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haniscreator/patient-portal/internal/adapter"
	"github.com/haniscreator/patient-portal/internal/patient"
)

// mockAPI implements adapter.PatientAPI for tests.
type mockAPI struct {
	listFunc func(ctx context.Context) ([]patient.Record, error)
	sendFunc func(ctx context.Context, method, endpoint string, id patient.ID, in patient.Input) (*adapter.Outcome, error)

	sends int
	calls []string
}

func (m *mockAPI) List(ctx context.Context) ([]patient.Record, error) {
	m.calls = append(m.calls, "list")
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockAPI) Get(_ context.Context, _ patient.ID) (*patient.Record, error) {
	return nil, nil
}

func (m *mockAPI) Send(ctx context.Context, method, endpoint string, id patient.ID, in patient.Input) (*adapter.Outcome, error) {
	m.sends++
	m.calls = append(m.calls, "send")
	if m.sendFunc != nil {
		return m.sendFunc(ctx, method, endpoint, id, in)
	}
	return &adapter.Outcome{StatusCode: http.StatusOK}, nil
}

// fakeForm is an in-memory Form.
type fakeForm struct {
	values url.Values
	attrs  map[string]string
	resets int
}

func (f *fakeForm) Values() url.Values      { return f.values }
func (f *fakeForm) Attr(name string) string { return f.attrs[name] }
func (f *fakeForm) Reset() {
	f.resets++
	f.values = url.Values{}
}

type recordingNotifier struct {
	got []Notification
}

func (n *recordingNotifier) Notify(_ context.Context, note Notification) {
	n.got = append(n.got, note)
}

func newAddForm() *fakeForm {
	return &fakeForm{values: url.Values{
		"name":            {"Jane Doe"},
		"age":             {"30"},
		"medical_history": {"None"},
	}}
}

func TestSubmit_AddSuccess(t *testing.T) {
	api := &mockAPI{
		sendFunc: func(_ context.Context, method, endpoint string, id patient.ID, in patient.Input) (*adapter.Outcome, error) {
			assert.Equal(t, http.MethodPost, method)
			assert.Equal(t, "/api/patients", endpoint)
			assert.Equal(t, patient.ID(""), id)
			require.NotNil(t, in.Name)
			assert.Equal(t, "Jane Doe", *in.Name)
			require.NotNil(t, in.Age)
			assert.Equal(t, 30, *in.Age)
			return &adapter.Outcome{StatusCode: http.StatusCreated, ID: "11"}, nil
		},
	}
	notes := &recordingNotifier{}
	refreshed := 0
	refresh := func(context.Context) {
		refreshed++
		api.calls = append(api.calls, "refresh")
	}

	s := NewFormSubmitter(AddPatientConfig(), api, notes, refresh, nil)
	form := newAddForm()
	res := s.Submit(context.Background(), form)

	assert.True(t, res.Success)
	assert.True(t, res.Reset)
	assert.NoError(t, res.Err)
	assert.Equal(t, patient.ID("11"), res.ID)
	assert.Equal(t, 1, form.resets)
	assert.Empty(t, form.values)
	assert.Equal(t, 1, refreshed)
	// refresh only after the request completed
	assert.Equal(t, []string{"send", "refresh"}, api.calls)
	if assert.Len(t, notes.got, 1) {
		assert.Equal(t, LevelSuccess, notes.got[0].Level)
		assert.Equal(t, "Patient added successfully!", notes.got[0].Message)
	}
}

func TestSubmit_AddServerErrorKeepsForm(t *testing.T) {
	api := &mockAPI{
		sendFunc: func(context.Context, string, string, patient.ID, patient.Input) (*adapter.Outcome, error) {
			return nil, &adapter.StatusError{StatusCode: http.StatusInternalServerError, Message: "server error"}
		},
	}
	notes := &recordingNotifier{}
	refreshed := false

	s := NewFormSubmitter(AddPatientConfig(), api, notes, func(context.Context) { refreshed = true }, nil)
	form := newAddForm()
	res := s.Submit(context.Background(), form)

	assert.False(t, res.Success)
	assert.False(t, res.Reset)
	assert.Error(t, res.Err)
	assert.Equal(t, 0, form.resets)
	assert.Equal(t, "Jane Doe", form.values.Get("name"))
	assert.False(t, refreshed)
	if assert.Len(t, notes.got, 1) {
		assert.Equal(t, LevelError, notes.got[0].Level)
		assert.Equal(t, "Error adding patient: server error", notes.got[0].Message)
	}
}

func TestSubmit_AddErrorMessageFromBody(t *testing.T) {
	api := &mockAPI{
		sendFunc: func(context.Context, string, string, patient.ID, patient.Input) (*adapter.Outcome, error) {
			return nil, &adapter.StatusError{StatusCode: http.StatusBadRequest, Message: "name is required"}
		},
	}
	s := NewFormSubmitter(AddPatientConfig(), api, nil, nil, nil)
	res := s.Submit(context.Background(), newAddForm())

	assert.Equal(t, "Error adding patient: name is required", res.Message)
}

func TestSubmit_TransportFailureUsesGenericMessage(t *testing.T) {
	api := &mockAPI{
		sendFunc: func(context.Context, string, string, patient.ID, patient.Input) (*adapter.Outcome, error) {
			return nil, errors.New("http request: connection refused")
		},
	}
	s := NewFormSubmitter(AddPatientConfig(), api, nil, nil, nil)
	res := s.Submit(context.Background(), newAddForm())

	assert.False(t, res.Success)
	assert.Equal(t, "Error adding patient: server error", res.Message)
}

func TestSubmit_AddValidationSendsNothing(t *testing.T) {
	api := &mockAPI{}
	notes := &recordingNotifier{}
	s := NewFormSubmitter(AddPatientConfig(), api, notes, nil, nil)

	form := &fakeForm{values: url.Values{"name": {"  "}, "age": {"12"}}}
	res := s.Submit(context.Background(), form)

	assert.False(t, res.Success)
	assert.True(t, errors.Is(res.Err, ErrValidation))
	assert.True(t, errors.Is(res.Err, patient.ErrInvalidInput))
	assert.Equal(t, "Error adding patient: name is required", res.Message)
	assert.Equal(t, 0, api.sends)
	assert.Equal(t, 0, form.resets)
	assert.Len(t, notes.got, 1)
}

func TestSubmit_BadAgeSendsNothing(t *testing.T) {
	api := &mockAPI{}
	s := NewFormSubmitter(AddPatientConfig(), api, nil, nil, nil)

	res := s.Submit(context.Background(), &fakeForm{values: url.Values{"name": {"x"}, "age": {"ten"}}})
	assert.True(t, errors.Is(res.Err, ErrValidation))
	assert.Equal(t, "Error adding patient: age must be a whole number", res.Message)
	assert.Equal(t, 0, api.sends)
}

func TestSubmit_UpdateSuccessDoesNotReset(t *testing.T) {
	api := &mockAPI{
		sendFunc: func(_ context.Context, method, _ string, id patient.ID, in patient.Input) (*adapter.Outcome, error) {
			assert.Equal(t, http.MethodPut, method)
			assert.Equal(t, patient.ID("5"), id)
			assert.Nil(t, in.Age)
			return &adapter.Outcome{StatusCode: http.StatusOK, Message: "updated"}, nil
		},
	}
	notes := &recordingNotifier{}
	refreshed := 0

	s := NewFormSubmitter(UpdatePatientConfig(), api, notes, func(context.Context) { refreshed++ }, nil)
	form := &fakeForm{
		values: url.Values{"name": {"Jane"}},
		attrs:  map[string]string{PatientIDAttr: "5"},
	}
	res := s.Submit(context.Background(), form)

	assert.True(t, res.Success)
	assert.False(t, res.Reset)
	assert.Equal(t, patient.ID("5"), res.ID)
	assert.Equal(t, 0, form.resets)
	assert.Equal(t, 1, refreshed)
	if assert.Len(t, notes.got, 1) {
		assert.Equal(t, "Patient updated successfully!", notes.got[0].Message)
	}
}

func TestSubmit_UpdateRejected(t *testing.T) {
	api := &mockAPI{
		sendFunc: func(context.Context, string, string, patient.ID, patient.Input) (*adapter.Outcome, error) {
			return nil, &adapter.RejectedError{Message: "record locked"}
		},
	}
	s := NewFormSubmitter(UpdatePatientConfig(), api, nil, nil, nil)
	res := s.Submit(context.Background(), &fakeForm{
		values: url.Values{"name": {"Jane"}},
		attrs:  map[string]string{PatientIDAttr: "5"},
	})

	assert.False(t, res.Success)
	assert.Equal(t, "Error updating patient: record locked", res.Message)
}

func TestSubmit_UpdateWithoutIDIsUsageError(t *testing.T) {
	api := &mockAPI{}
	s := NewFormSubmitter(UpdatePatientConfig(), api, nil, nil, nil)

	res := s.Submit(context.Background(), &fakeForm{values: url.Values{"name": {"Jane"}}})
	assert.True(t, errors.Is(res.Err, ErrMissingPatientID))
	assert.Equal(t, 0, api.sends)
}

func TestSubmit_DuplicateSubmissionsAreIndependent(t *testing.T) {
	api := &mockAPI{}
	s := NewFormSubmitter(UpdatePatientConfig(), api, nil, nil, nil)
	form := &fakeForm{values: url.Values{"name": {"Jane"}}, attrs: map[string]string{PatientIDAttr: "1"}}

	s.Submit(context.Background(), form)
	s.Submit(context.Background(), form)
	assert.Equal(t, 2, api.sends)
}
