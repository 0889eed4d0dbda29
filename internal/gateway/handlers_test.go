package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/FleetLink/FleetLink/internal/common/config"
	"github.com/FleetLink/FleetLink/internal/inspection"
	"github.com/FleetLink/FleetLink/internal/template"
	"github.com/FleetLink/FleetLink/internal/vehicle"
)

type memStore struct {
	inspections map[string]*inspection.Inspection
	items       []inspection.ItemRecord
	photos      []inspection.PhotoRecord
}

func newMemStore() *memStore {
	return &memStore{inspections: map[string]*inspection.Inspection{}}
}

func (m *memStore) CreateInspection(ctx context.Context, insp *inspection.Inspection) error {
	cp := *insp
	m.inspections[insp.ID] = &cp
	return nil
}

func (m *memStore) UpdateInspection(ctx context.Context, insp *inspection.Inspection) error {
	cp := *insp
	m.inspections[insp.ID] = &cp
	return nil
}

func (m *memStore) DeleteInspection(ctx context.Context, id string) error {
	delete(m.inspections, id)
	return nil
}

func (m *memStore) GetInspection(ctx context.Context, id string) (*inspection.Inspection, error) {
	insp, ok := m.inspections[id]
	if !ok {
		return nil, fmt.Errorf("not found: %s", id)
	}
	cp := *insp
	return &cp, nil
}

func (m *memStore) ListItems(ctx context.Context, inspectionID string) ([]inspection.ItemRecord, error) {
	var out []inspection.ItemRecord
	for _, it := range m.items {
		if it.InspectionID == inspectionID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memStore) ListPhotosByItemIDs(ctx context.Context, itemIDs []string) ([]inspection.PhotoRecord, error) {
	return nil, nil
}

func (m *memStore) DeletePhotosByItemIDs(ctx context.Context, itemIDs []string) error { return nil }

func (m *memStore) DeleteItemsByInspection(ctx context.Context, inspectionID string) error {
	kept := m.items[:0]
	for _, it := range m.items {
		if it.InspectionID != inspectionID {
			kept = append(kept, it)
		}
	}
	m.items = kept
	return nil
}

func (m *memStore) BulkInsertItems(ctx context.Context, items []inspection.ItemRecord) error {
	m.items = append(m.items, items...)
	return nil
}

func (m *memStore) BulkInsertPhotos(ctx context.Context, photos []inspection.PhotoRecord) error {
	m.photos = append(m.photos, photos...)
	return nil
}

type memVehicles struct{ vehicles []vehicle.Vehicle }

func (m *memVehicles) List(ctx context.Context) ([]vehicle.Vehicle, error) {
	return m.vehicles, nil
}

func (m *memVehicles) FindByID(ctx context.Context, id string) (*vehicle.Vehicle, error) {
	for i := range m.vehicles {
		if m.vehicles[i].ID == id {
			return &m.vehicles[i], nil
		}
	}
	return nil, fmt.Errorf("not found: %s", id)
}

type memTemplates struct{ types []string }

func (m *memTemplates) ResolveAssignableTypes(ctx context.Context, vehicleID, groupID string) ([]string, error) {
	return m.types, nil
}

func (m *memTemplates) LoadTemplate(ctx context.Context, inspectionType, locale string) ([]template.WorkingSection, error) {
	return []template.WorkingSection{
		{CategoryID: "c1", Title: "Brakes", Items: []template.WorkingItem{
			{TemplateID: "t1", Title: "Pads", Photos: []string{}},
			{TemplateID: "t2", Title: "Discs", Photos: []string{}},
		}},
	}, nil
}

type memStager struct{ count int }

func (m *memStager) Stage(data []byte) (string, error) {
	m.count++
	return fmt.Sprintf("staged://p%d", m.count), nil
}

func (m *memStager) DiscardStaged(ref string) {}

type memPersister struct{}

func (memPersister) Persist(ctx context.Context, actor, itemID string, photos []string) ([]string, error) {
	out := make([]string, 0, len(photos))
	for i := range photos {
		out = append(out, fmt.Sprintf("https://cdn.example.com/%s/%d.jpg", itemID, i))
	}
	return out, nil
}

func (memPersister) RemoveDurable(ctx context.Context, refs []string) {}

func newTestRouter(t *testing.T, types []string) (http.Handler, *memStore) {
	t.Helper()
	store := newMemStore()
	vehicles := &memVehicles{vehicles: []vehicle.Vehicle{
		{ID: "v1", Name: "Van 1", PlateNumber: "ABC-123", Brand: "Ford", GroupID: "g1"},
		{ID: "v2", Name: "Truck 2", PlateNumber: "XYZ-789", Brand: "Iveco"},
	}}
	coordinator := inspection.NewCoordinator(store, memPersister{}, nil, nil, nil)
	service := inspection.NewService(vehicles, &memTemplates{types: types}, store, coordinator, &memStager{})
	h := NewHandlers(vehicles, service, NewSessionManager())

	cfg := config.GetConfig()
	return NewRouter(cfg, h, ""), store
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Actor", "actor1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) sessionView {
	t.Helper()
	var v sessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode view: %v (%s)", err, rec.Body.String())
	}
	return v
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t, []string{"routine"})
	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestListVehiclesFiltered(t *testing.T) {
	router, _ := newTestRouter(t, []string{"routine"})
	rec := doJSON(t, router, http.MethodGet, "/api/vehicles?query=van", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res vehicle.FilterResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Total != 1 || res.Vehicles[0].ID != "v1" {
		t.Fatalf("unexpected filter result: %+v", res)
	}
}

func TestSessionNotFound(t *testing.T) {
	router, _ := newTestRouter(t, []string{"routine"})
	rec := doJSON(t, router, http.MethodGet, "/api/sessions/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestFullInspectionFlowOverHTTP(t *testing.T) {
	router, store := newTestRouter(t, []string{"routine", "safety"})

	rec := doJSON(t, router, http.MethodPost, "/api/sessions", map[string]string{"locale": "en"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", rec.Code, rec.Body.String())
	}
	view := decodeView(t, rec)
	base := "/api/sessions/" + view.ID

	rec = doJSON(t, router, http.MethodPost, base+"/vehicle", map[string]string{"vehicle_id": "v1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("select vehicle: %d %s", rec.Code, rec.Body.String())
	}
	view = decodeView(t, rec)
	if view.Step != inspection.StepVehicleSelection || len(view.AssignableTypes) != 2 {
		t.Fatalf("unexpected state after vehicle: %+v", view)
	}

	rec = doJSON(t, router, http.MethodPost, base+"/advance", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("advance: %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPost, base+"/type", map[string]string{"type": "routine"})
	if rec.Code != http.StatusOK {
		t.Fatalf("select type: %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPost, base+"/start", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}
	view = decodeView(t, rec)
	if view.Step != inspection.StepSectionReview || len(view.Sections) != 1 {
		t.Fatalf("unexpected state after start: %+v", view)
	}
	if view.InspectionID == "" {
		t.Fatalf("header must exist after start")
	}

	rec = doJSON(t, router, http.MethodPut, base+"/sections/0/items/0/status", map[string]string{"status": "pass"})
	if rec.Code != http.StatusOK {
		t.Fatalf("set status: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, router, http.MethodPut, base+"/sections/0/items/1/status", map[string]string{"status": "fail"})
	if rec.Code != http.StatusOK {
		t.Fatalf("set status: %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPut, base+"/sections/0/items/1/notes", map[string]string{"notes": "worn discs"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("set notes: %d", rec.Code)
	}

	// 拍照：请求体为图片字节
	req := httptest.NewRequest(http.MethodPost, base+"/sections/0/items/1/photos", strings.NewReader("jpegbytes"))
	req.Header.Set("X-Actor", "actor1")
	photoRec := httptest.NewRecorder()
	router.ServeHTTP(photoRec, req)
	if photoRec.Code != http.StatusCreated {
		t.Fatalf("capture: %d %s", photoRec.Code, photoRec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, base+"/submit", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}
	var res inspection.SubmitResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Status != inspection.StatusFailed {
		t.Fatalf("one failed item must fail the inspection, got %s", res.Status)
	}
	if res.ItemCount != 2 || res.PhotoCount != 1 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if store.inspections[res.InspectionID].Status != inspection.StatusFailed {
		t.Fatalf("header status not persisted")
	}
}

func TestSubmitWithoutResultsRejected(t *testing.T) {
	router, _ := newTestRouter(t, []string{"routine"})

	rec := doJSON(t, router, http.MethodPost, "/api/sessions", nil)
	view := decodeView(t, rec)
	base := "/api/sessions/" + view.ID

	// 单类型自动开始
	rec = doJSON(t, router, http.MethodPost, base+"/vehicle", map[string]string{"vehicle_id": "v1"})
	view = decodeView(t, rec)
	if view.Step != inspection.StepSectionReview {
		t.Fatalf("single type must auto-start, got %s", view.Step)
	}

	// 无任何结论直接提交 → 校验拒绝
	rec = doJSON(t, router, http.MethodPost, base+"/submit", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %s", rec.Code, rec.Body.String())
	}
}
