package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haniscreator/patient-portal/internal/patient"
	"github.com/haniscreator/patient-portal/internal/repository"
)

func setupAPIRouter(store repository.PatientStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterAPIRoutes(r, store, nil)
	return r
}

func doJSON(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAPI_CreateAndList(t *testing.T) {
	store := repository.NewMemoryPatientRepo()
	r := setupAPIRouter(store)

	w := doJSON(r, http.MethodPost, "/api/patients", `{"name":"John Doe","age":30,"medical_history":"None"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"success":true,"id":1}`, w.Body.String())

	w = doJSON(r, http.MethodGet, "/api/patients", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"John Doe"`)
	assert.Contains(t, w.Body.String(), `"id":1`)
}

func TestAPI_ListEmpty(t *testing.T) {
	r := setupAPIRouter(repository.NewMemoryPatientRepo())

	w := doJSON(r, http.MethodGet, "/api/patients", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestAPI_CreateRequiresName(t *testing.T) {
	r := setupAPIRouter(repository.NewMemoryPatientRepo())

	w := doJSON(r, http.MethodPost, "/api/patients", `{"age":3}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"name is required"}`, w.Body.String())
}

func TestAPI_CreateMalformedJSON(t *testing.T) {
	r := setupAPIRouter(repository.NewMemoryPatientRepo())

	w := doJSON(r, http.MethodPost, "/api/patients", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request")
}

func TestAPI_CreateAgeAsString(t *testing.T) {
	store := repository.NewMemoryPatientRepo()
	r := setupAPIRouter(store)

	w := doJSON(r, http.MethodPost, "/api/patients", `{"name":"Jane","age":"30","medical_history":"x"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	p, err := store.GetByID(context.Background(), "1")
	require.NoError(t, err)
	if assert.NotNil(t, p.Age) {
		assert.Equal(t, 30, *p.Age)
	}
}

func TestAPI_CreateEmptyAgeIsAbsent(t *testing.T) {
	store := repository.NewMemoryPatientRepo()
	r := setupAPIRouter(store)

	w := doJSON(r, http.MethodPost, "/api/patients", `{"name":"Jane","age":"","medical_history":"x"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	p, err := store.GetByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Nil(t, p.Age)
}

func TestAPI_CreateNonWholeAge(t *testing.T) {
	r := setupAPIRouter(repository.NewMemoryPatientRepo())

	for _, body := range []string{`{"name":"Jane","age":"old"}`, `{"name":"Jane","age":25.5}`} {
		w := doJSON(r, http.MethodPost, "/api/patients", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.JSONEq(t, `{"success":false,"error":"age must be a whole number"}`, w.Body.String(), body)
	}
}

func TestAPI_CreateFormEncoded(t *testing.T) {
	store := repository.NewMemoryPatientRepo()
	r := setupAPIRouter(store)

	form := url.Values{"name": {"Form Person"}, "age": {"44"}}
	req := httptest.NewRequest(http.MethodPost, "/api/patients", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	p, err := store.GetByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Form Person", p.Name)
	assert.Equal(t, 44, *p.Age)
}

func TestAPI_GetUpdateDelete(t *testing.T) {
	store := repository.NewMemoryPatientRepo()
	name := "John Doe"
	_, err := store.Create(context.Background(), patient.Input{Name: &name})
	require.NoError(t, err)
	r := setupAPIRouter(store)

	w := doJSON(r, http.MethodGet, "/api/patients/1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "John Doe")

	w = doJSON(r, http.MethodPut, "/api/patients/1", `{"name":"Jane Doe"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"status":"updated","id":1}`, w.Body.String())

	p, err := store.GetByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", p.Name)

	w = doJSON(r, http.MethodDelete, "/api/patients/1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/patients/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"patient not found"}`, w.Body.String())
}

func TestAPI_UpdateInvalidAge(t *testing.T) {
	store := repository.NewMemoryPatientRepo()
	name := "x"
	_, err := store.Create(context.Background(), patient.Input{Name: &name})
	require.NoError(t, err)
	r := setupAPIRouter(store)

	w := doJSON(r, http.MethodPut, "/api/patients/1", `{"age":-4}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "age must be at least 0")
}

func TestAPI_UpdateUnknown(t *testing.T) {
	r := setupAPIRouter(repository.NewMemoryPatientRepo())

	w := doJSON(r, http.MethodPut, "/api/patients/9", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
