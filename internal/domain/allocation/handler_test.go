package allocation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/domain/bed"
	"github.com/hms/hms/internal/domain/nurse"
	"github.com/hms/hms/internal/domain/ward"
	"github.com/hms/hms/internal/platform/auth"
)

func newTestServer(f *fixture) *echo.Echo {
	e := echo.New()
	api := e.Group("/api", auth.DevAuthMiddleware())
	NewHandler(f.coord).RegisterRoutes(api)
	return e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandlerAssignBed(t *testing.T) {
	f := newFixture()
	e := newTestServer(f)
	b := f.newBed(t, ward.ICU)

	rec := doJSON(e, http.MethodPost, "/api/beds/"+b.ID.String()+"/assign",
		`{"patient_id":"`+uuid.NewString()+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got bed.Bed
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != bed.StatusOccupied {
		t.Errorf("expected Occupied, got %s", got.Status)
	}

	// Already occupied.
	rec = doJSON(e, http.MethodPost, "/api/beds/"+b.ID.String()+"/assign",
		`{"patient_id":"`+uuid.NewString()+`"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}

	rec = doJSON(e, http.MethodPost, "/api/beds/"+uuid.NewString()+"/assign",
		`{"patient_id":"`+uuid.NewString()+`"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	rec = doJSON(e, http.MethodPost, "/api/beds/not-a-uuid/assign",
		`{"patient_id":"`+uuid.NewString()+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	rec = doJSON(e, http.MethodPost, "/api/beds/"+b.ID.String()+"/assign", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing patient id, got %d", rec.Code)
	}
}

func TestHandlerDischarge(t *testing.T) {
	f := newFixture()
	e := newTestServer(f)
	b := f.newBed(t, ward.ICU)
	p := uuid.New()
	if _, err := f.coord.AssignPatientToBed(context.Background(), b.ID, p, uuid.Nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	rec := doJSON(e, http.MethodPost, "/api/beds/"+b.ID.String()+"/discharge", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp dischargeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.PatientID != p {
		t.Errorf("expected outgoing %s, got %s", p, resp.PatientID)
	}
	if resp.Bed == nil || resp.Bed.Status != bed.StatusAvailable {
		t.Error("expected freed bed in response")
	}

	rec = doJSON(e, http.MethodPost, "/api/beds/"+b.ID.String()+"/discharge", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for unoccupied bed, got %d", rec.Code)
	}
}

func TestHandlerBestNurse(t *testing.T) {
	f := newFixture()
	e := newTestServer(f)
	n := f.newNurse(t, ward.ICU, 5)

	rec := doJSON(e, http.MethodGet, "/api/wards/ICU/best-nurse", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp bestNurseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Nurse == nil || resp.Nurse.ID != n.ID {
		t.Error("expected the ICU nurse in the proposal")
	}

	// A ward with no candidates returns a null proposal, not an error.
	rec = doJSON(e, http.MethodGet, "/api/wards/Emergency/best-nurse", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp = bestNurseResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Nurse != nil {
		t.Error("expected null nurse")
	}

	rec = doJSON(e, http.MethodGet, "/api/wards/Surgical/best-nurse", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown ward, got %d", rec.Code)
	}
}

func TestHandlerSetRoster(t *testing.T) {
	f := newFixture()
	e := newTestServer(f)
	n := f.newNurse(t, ward.ICU, 1)
	p := f.bedded(t, ward.ICU)

	rec := doJSON(e, http.MethodPut, "/api/nurses/"+n.ID.String()+"/roster",
		`{"patient_ids":["`+p.String()+`"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Over capacity.
	p2 := f.bedded(t, ward.ICU)
	rec = doJSON(e, http.MethodPut, "/api/nurses/"+n.ID.String()+"/roster",
		`{"patient_ids":["`+p.String()+`","`+p2.String()+`"]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for over capacity, got %d", rec.Code)
	}

	// Patient without a bed.
	rec = doJSON(e, http.MethodPut, "/api/nurses/"+n.ID.String()+"/roster",
		`{"patient_ids":["`+uuid.NewString()+`"]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for bedless patient, got %d", rec.Code)
	}

	rec = doJSON(e, http.MethodPut, "/api/nurses/"+uuid.NewString()+"/roster", `{"patient_ids":[]}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown nurse, got %d", rec.Code)
	}
}

func TestHTTPErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bed not found", bed.ErrNotFound, http.StatusNotFound},
		{"nurse not found", nurse.ErrNotFound, http.StatusNotFound},
		{"bed conflict", bed.ErrConflict, http.StatusConflict},
		{"no bed assigned", ErrNoBedAssigned, http.StatusUnprocessableEntity},
		{"ward mismatch", ErrWardMismatch, http.StatusUnprocessableEntity},
		{"capacity", nurse.ErrCapacityExceeded, http.StatusUnprocessableEntity},
		{"validation", ErrValidation, http.StatusBadRequest},
		{"bed validation", bed.ErrValidation, http.StatusBadRequest},
		{"nurse validation", nurse.ErrValidation, http.StatusBadRequest},
		{"infrastructure", errors.New("dial tcp 127.0.0.1:5432: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he, ok := httpError(tt.err).(*echo.HTTPError)
			if !ok {
				t.Fatal("expected an echo.HTTPError")
			}
			if he.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, he.Code)
			}
		})
	}
}
