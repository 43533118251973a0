package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/eventman/internal/event"
	"github.com/hitoshi/eventman/internal/middleware"
	"github.com/hitoshi/eventman/internal/model"
	"github.com/hitoshi/eventman/internal/repository"
)

// EventServiceInterface はイベントハンドラーが必要とするサービスインターフェース。
type EventServiceInterface interface {
	Create(ctx context.Context, input event.CreateInput, hostID string) (*model.Event, error)
	Update(ctx context.Context, eventID string, input event.UpdateInput, actor *model.Actor) (*model.Event, error)
	Delete(ctx context.Context, eventID string, actor *model.Actor) error
	GetDetails(ctx context.Context, eventID string, actor *model.Actor) (*event.Details, error)
	List(ctx context.Context, filter repository.EventFilter, includeDeleted bool, actor *model.Actor, page repository.PageRequest) (*repository.EventPage, error)
	ListUpcoming(ctx context.Context, page repository.PageRequest) (*repository.EventPage, error)
	ListByHost(ctx context.Context, hostID string, page repository.PageRequest) (*repository.EventPage, error)
	ListAttending(ctx context.Context, userID string, page repository.PageRequest) (*repository.EventPage, error)
}

// EventHandler はイベント管理のHTTPハンドラー。
type EventHandler struct {
	service EventServiceInterface
}

// NewEventHandler はEventHandlerを生成する。
func NewEventHandler(service EventServiceInterface) *EventHandler {
	return &EventHandler{service: service}
}

// createEventRequest はイベント作成リクエストのボディ。
type createEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Location    string    `json:"location"`
	Visibility  string    `json:"visibility"`
}

// updateEventRequest はイベント部分更新リクエストのボディ。
// 省略されたフィールドは変更しない。
type updateEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Location    *string    `json:"location"`
	Visibility  *string    `json:"visibility"`
}

// Create はイベント作成を処理する。
// POST /api/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	created, err := h.service.Create(r.Context(), event.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
		Visibility:  model.Visibility(req.Visibility),
	}, actor.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// Update はイベント部分更新を処理する。
// PUT /api/events/{id}
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := middleware.OptionalActorFromContext(r.Context())
	eventID := chi.URLParam(r, "id")

	var req updateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	input := event.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
	}
	if req.Visibility != nil {
		v := model.Visibility(*req.Visibility)
		input.Visibility = &v
	}

	updated, err := h.service.Update(r.Context(), eventID, input, actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Delete はイベント論理削除を処理する。
// DELETE /api/events/{id}
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.OptionalActorFromContext(r.Context())
	eventID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), eventID, actor); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetDetails はイベント詳細（出欠集計・参加者一覧付き）を取得する。
// 匿名アクセスはPUBLICイベントのみ許可される。
// GET /api/events/{id}
func (h *EventHandler) GetDetails(w http.ResponseWriter, r *http.Request) {
	actor := middleware.OptionalActorFromContext(r.Context())
	eventID := chi.URLParam(r, "id")

	details, err := h.service.GetDetails(r.Context(), eventID, actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, details)
}

// List はフィルタ付きイベント一覧を取得する。
// include_deleted=true は管理者のみ指定可能。
// GET /api/events
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.OptionalActorFromContext(r.Context())
	q := r.URL.Query()

	startDate, err := parseTimeParam(r, "start_date")
	if err != nil {
		handleServiceError(w, err)
		return
	}
	endDate, err := parseTimeParam(r, "end_date")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	filter := repository.EventFilter{
		Title:     q.Get("title"),
		Location:  q.Get("location"),
		StartDate: startDate,
		EndDate:   endDate,
		HostID:    q.Get("host_id"),
	}
	if v := q.Get("visibility"); v != "" {
		visibility := model.Visibility(v)
		if !model.IsValidVisibility(visibility) {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidVisibilityError(v))
			return
		}
		filter.Visibility = &visibility
	}

	includeDeleted := q.Get("include_deleted") == "true"

	page, err := h.service.List(r.Context(), filter, includeDeleted, actor, parsePageRequest(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEventPageResponse(page))
}

// ListUpcoming は開催予定のPUBLICイベント一覧を取得する。
// GET /api/events/upcoming
func (h *EventHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListUpcoming(r.Context(), parsePageRequest(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEventPageResponse(page))
}

// ListMyEvents はアクターがホストするイベント一覧を取得する。
// GET /api/events/my-events
func (h *EventHandler) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	page, err := h.service.ListByHost(r.Context(), actor.ID, parsePageRequest(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEventPageResponse(page))
}

// ListAttending はアクターが出欠回答済みのイベント一覧を取得する。
// GET /api/events/attending
func (h *EventHandler) ListAttending(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	page, err := h.service.ListAttending(r.Context(), actor.ID, parsePageRequest(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEventPageResponse(page))
}
