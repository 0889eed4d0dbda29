package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/FleetLink/FleetLink/internal/inspection"
	"github.com/FleetLink/FleetLink/internal/template"
	"github.com/FleetLink/FleetLink/internal/vehicle"
)

// maxPhotoBytes 单张照片上限
const maxPhotoBytes = 10 << 20

// VehicleLister 车辆列表来源
type VehicleLister interface {
	List(ctx context.Context) ([]vehicle.Vehicle, error)
}

// Handlers 巡检会话 API
type Handlers struct {
	vehicles VehicleLister
	service  *inspection.Service
	sessions *SessionManager
}

// NewHandlers 创建 API 处理器
func NewHandlers(vehicles VehicleLister, service *inspection.Service, sessions *SessionManager) *Handlers {
	return &Handlers{vehicles: vehicles, service: service, sessions: sessions}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFromError 把领域错误翻译成 HTTP 状态码
func statusFromError(err error) int {
	switch {
	case errors.Is(err, inspection.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, inspection.ErrInvalidStep), errors.Is(err, inspection.ErrCapturePending):
		return http.StatusConflict
	case errors.Is(err, inspection.ErrBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, inspection.ErrOutOfRange), errors.Is(err, template.ErrTemplateNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// sessionView 会话快照
type sessionView struct {
	ID              string                    `json:"id"`
	Step            string                    `json:"step"`
	SectionIndex    int                       `json:"section_index"`
	Progress        int                       `json:"progress"`
	InspectionID    string                    `json:"inspection_id,omitempty"`
	Type            string                    `json:"type,omitempty"`
	DefaultType     string                    `json:"default_type,omitempty"`
	AssignableTypes []string                  `json:"assignable_types,omitempty"`
	Vehicle         *vehicle.Vehicle          `json:"vehicle,omitempty"`
	Notes           string                    `json:"notes,omitempty"`
	Sections        []template.WorkingSection `json:"sections,omitempty"`
}

func viewOf(sess *inspection.Session) sessionView {
	return sessionView{
		ID:              sess.ID,
		Step:            sess.Step(),
		SectionIndex:    sess.SectionIndex(),
		Progress:        sess.Progress(),
		InspectionID:    sess.InspectionID(),
		Type:            sess.Type(),
		DefaultType:     sess.DefaultType(),
		AssignableTypes: sess.AssignableTypes(),
		Vehicle:         sess.Vehicle(),
		Notes:           sess.Notes(),
		Sections:        sess.Sections(),
	}
}

func (h *Handlers) session(w http.ResponseWriter, r *http.Request) *inspection.Session {
	sess, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return nil
	}
	return sess
}

func itemCoords(r *http.Request) (int, int, error) {
	vars := mux.Vars(r)
	section, err := strconv.Atoi(vars["section"])
	if err != nil {
		return 0, 0, err
	}
	item, err := strconv.Atoi(vars["item"])
	if err != nil {
		return 0, 0, err
	}
	return section, item, nil
}

// ListVehicles GET /api/vehicles
func (h *Handlers) ListVehicles(w http.ResponseWriter, r *http.Request) {
	all, err := h.vehicles.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list vehicles")
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	res := vehicle.ApplyFilter(all, vehicle.Filter{
		Query:   q.Get("query"),
		Brand:   q.Get("brand"),
		Model:   q.Get("model"),
		GroupID: q.Get("group"),
		Page:    page,
		PerPage: perPage,
	})
	writeJSON(w, http.StatusOK, res)
}

// CreateSession POST /api/sessions
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Locale       string `json:"locale"`
		InspectionID string `json:"inspection_id"` // 编辑已有巡检单时传入
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	sess := h.sessions.Create(ActorFromContext(r.Context()), body.Locale, body.InspectionID)
	writeJSON(w, http.StatusCreated, viewOf(sess))
}

// GetSession GET /api/sessions/{id}
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

// DeleteSession DELETE /api/sessions/{id}
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.Delete(mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

// SelectVehicle POST /api/sessions/{id}/vehicle
func (h *Handlers) SelectVehicle(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	var body struct {
		VehicleID string `json:"vehicle_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.service.SelectVehicle(r.Context(), sess, body.VehicleID); err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

// AdvanceToTypeSelection POST /api/sessions/{id}/advance
func (h *Handlers) AdvanceToTypeSelection(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	if err := h.service.AdvanceToTypeSelection(sess); err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

// SelectType POST /api/sessions/{id}/type
func (h *Handlers) SelectType(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	var body struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.service.SelectType(sess, body.Type); err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

// StartInspection POST /api/sessions/{id}/start
func (h *Handlers) StartInspection(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	if err := h.service.StartInspection(r.Context(), sess); err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

// NextSection POST /api/sessions/{id}/next
func (h *Handlers) NextSection(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	if err := sess.NextSection(); err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

// PreviousSection POST /api/sessions/{id}/previous
func (h *Handlers) PreviousSection(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	if err := sess.PreviousSection(); err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

// SetItemStatus PUT /api/sessions/{id}/sections/{section}/items/{item}/status
func (h *Handlers) SetItemStatus(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	section, item, err := itemCoords(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item coordinates")
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := sess.SetItemStatus(section, item, body.Status); err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"progress": sess.Progress()})
}

// SetItemNotes PUT /api/sessions/{id}/sections/{section}/items/{item}/notes
func (h *Handlers) SetItemNotes(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	section, item, err := itemCoords(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item coordinates")
		return
	}
	var body struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := sess.SetItemNotes(section, item, body.Notes); err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CapturePhoto POST /api/sessions/{id}/sections/{section}/items/{item}/photos
// 请求体为图片字节。
func (h *Handlers) CapturePhoto(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	section, item, err := itemCoords(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item coordinates")
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxPhotoBytes))
	if err != nil || len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty photo body")
		return
	}
	ref, err := h.service.CapturePhoto(sess, section, item, data)
	if err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"ref": ref})
}

// DeletePhoto DELETE /api/sessions/{id}/sections/{section}/items/{item}/photos/{idx}
func (h *Handlers) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	section, item, err := itemCoords(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item coordinates")
		return
	}
	idx, err := strconv.Atoi(mux.Vars(r)["idx"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid photo index")
		return
	}
	if err := h.service.DeletePhoto(sess, section, item, idx); err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetNotes PUT /api/sessions/{id}/notes 整单备注
func (h *Handlers) SetNotes(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	var body struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	sess.SetNotes(body.Notes)
	w.WriteHeader(http.StatusNoContent)
}

// Submit POST /api/sessions/{id}/submit
func (h *Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	res, err := h.service.Submit(r.Context(), sess)
	if err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Healthz GET /healthz
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
