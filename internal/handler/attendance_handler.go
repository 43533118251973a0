package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/eventman/internal/middleware"
	"github.com/hitoshi/eventman/internal/model"
)

// AttendanceServiceInterface は出欠ハンドラーが必要とするサービスインターフェース。
type AttendanceServiceInterface interface {
	// Set はアクターの出欠回答を登録または上書きする。
	Set(ctx context.Context, eventID string, actor *model.Actor, status model.AttendanceStatus) (*model.Attendance, error)
	// GetStatus はアクター自身の出欠回答ステータスを返す。回答なしはNONE。
	GetStatus(ctx context.Context, eventID string, actor *model.Actor) (model.AttendanceStatus, error)
	// Withdraw はアクター自身の出欠回答を取り下げる。
	Withdraw(ctx context.Context, eventID string, actor *model.Actor) error
}

// AttendanceHandler は出欠回答のHTTPハンドラー。
type AttendanceHandler struct {
	service AttendanceServiceInterface
}

// NewAttendanceHandler はAttendanceHandlerを生成する。
func NewAttendanceHandler(service AttendanceServiceInterface) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// setAttendanceRequest は出欠回答リクエストのボディ。
type setAttendanceRequest struct {
	Status string `json:"status"`
}

// attendanceResponse は出欠回答のAPIレスポンス。
type attendanceResponse struct {
	EventID     string    `json:"event_id"`
	UserID      string    `json:"user_id"`
	Status      string    `json:"status"`
	RespondedAt time.Time `json:"responded_at"`
}

// attendanceStatusResponse は出欠ステータス照会のAPIレスポンス。
type attendanceStatusResponse struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}

// Set は出欠回答の登録・上書きを処理する。
// 同一ステータスの再回答でもresponded_atは更新される。
// POST /api/events/{id}/attendance
func (h *AttendanceHandler) Set(w http.ResponseWriter, r *http.Request) {
	actor := middleware.OptionalActorFromContext(r.Context())
	eventID := chi.URLParam(r, "id")

	var req setAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	record, err := h.service.Set(r.Context(), eventID, actor, model.AttendanceStatus(req.Status))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, attendanceResponse{
		EventID:     record.EventID,
		UserID:      record.UserID,
		Status:      string(record.Status),
		RespondedAt: record.RespondedAt,
	})
}

// GetStatus はアクター自身の出欠ステータスを照会する。
// GET /api/events/{id}/attendance-status
func (h *AttendanceHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	actor := middleware.OptionalActorFromContext(r.Context())
	eventID := chi.URLParam(r, "id")

	status, err := h.service.GetStatus(r.Context(), eventID, actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, attendanceStatusResponse{
		EventID: eventID,
		Status:  string(status),
	})
}

// Withdraw は出欠回答の取り下げを処理する。
// DELETE /api/events/{id}/attendance
func (h *AttendanceHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	actor := middleware.OptionalActorFromContext(r.Context())
	eventID := chi.URLParam(r, "id")

	if err := h.service.Withdraw(r.Context(), eventID, actor); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
