package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/eventman/internal/auth"
	"github.com/hitoshi/eventman/internal/event"
	"github.com/hitoshi/eventman/internal/middleware"
	"github.com/hitoshi/eventman/internal/model"
	"github.com/hitoshi/eventman/internal/repository"
)

// mockAuthService はテスト用のAuthServiceInterface実装。
type mockAuthService struct {
	registerFunc func(ctx context.Context, name, email, password string) (*auth.Result, error)
	loginFunc    func(ctx context.Context, email, password string) (*auth.Result, error)
	logoutFunc   func(ctx context.Context, tokenString string) error
}

func (m *mockAuthService) Register(ctx context.Context, name, email, password string) (*auth.Result, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, name, email, password)
	}
	return &auth.Result{Token: "token", User: &model.User{ID: "user-1", Name: name, Email: email}}, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.Result, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, email, password)
	}
	return &auth.Result{Token: "token", User: &model.User{ID: "user-1", Email: email}}, nil
}

func (m *mockAuthService) Logout(ctx context.Context, tokenString string) error {
	if m.logoutFunc != nil {
		return m.logoutFunc(ctx, tokenString)
	}
	return nil
}

// mockEventService はテスト用のEventServiceInterface実装。
type mockEventService struct {
	createFunc        func(ctx context.Context, input event.CreateInput, hostID string) (*model.Event, error)
	updateFunc        func(ctx context.Context, eventID string, input event.UpdateInput, actor *model.Actor) (*model.Event, error)
	deleteFunc        func(ctx context.Context, eventID string, actor *model.Actor) error
	getDetailsFunc    func(ctx context.Context, eventID string, actor *model.Actor) (*event.Details, error)
	listFunc          func(ctx context.Context, filter repository.EventFilter, includeDeleted bool, actor *model.Actor, page repository.PageRequest) (*repository.EventPage, error)
	listUpcomingFunc  func(ctx context.Context, page repository.PageRequest) (*repository.EventPage, error)
	listByHostFunc    func(ctx context.Context, hostID string, page repository.PageRequest) (*repository.EventPage, error)
	listAttendingFunc func(ctx context.Context, userID string, page repository.PageRequest) (*repository.EventPage, error)
}

func emptyPage() *repository.EventPage {
	return &repository.EventPage{Events: []*model.Event{}}
}

func (m *mockEventService) Create(ctx context.Context, input event.CreateInput, hostID string) (*model.Event, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, input, hostID)
	}
	return &model.Event{ID: "ev-1", Title: input.Title, HostID: hostID}, nil
}

func (m *mockEventService) Update(ctx context.Context, eventID string, input event.UpdateInput, actor *model.Actor) (*model.Event, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, eventID, input, actor)
	}
	return &model.Event{ID: eventID}, nil
}

func (m *mockEventService) Delete(ctx context.Context, eventID string, actor *model.Actor) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, eventID, actor)
	}
	return nil
}

func (m *mockEventService) GetDetails(ctx context.Context, eventID string, actor *model.Actor) (*event.Details, error) {
	if m.getDetailsFunc != nil {
		return m.getDetailsFunc(ctx, eventID, actor)
	}
	return &event.Details{Event: model.Event{ID: eventID}}, nil
}

func (m *mockEventService) List(ctx context.Context, filter repository.EventFilter, includeDeleted bool, actor *model.Actor, page repository.PageRequest) (*repository.EventPage, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter, includeDeleted, actor, page)
	}
	return emptyPage(), nil
}

func (m *mockEventService) ListUpcoming(ctx context.Context, page repository.PageRequest) (*repository.EventPage, error) {
	if m.listUpcomingFunc != nil {
		return m.listUpcomingFunc(ctx, page)
	}
	return emptyPage(), nil
}

func (m *mockEventService) ListByHost(ctx context.Context, hostID string, page repository.PageRequest) (*repository.EventPage, error) {
	if m.listByHostFunc != nil {
		return m.listByHostFunc(ctx, hostID, page)
	}
	return emptyPage(), nil
}

func (m *mockEventService) ListAttending(ctx context.Context, userID string, page repository.PageRequest) (*repository.EventPage, error) {
	if m.listAttendingFunc != nil {
		return m.listAttendingFunc(ctx, userID, page)
	}
	return emptyPage(), nil
}

// mockAttendanceService はテスト用のAttendanceServiceInterface実装。
type mockAttendanceService struct {
	setFunc       func(ctx context.Context, eventID string, actor *model.Actor, status model.AttendanceStatus) (*model.Attendance, error)
	getStatusFunc func(ctx context.Context, eventID string, actor *model.Actor) (model.AttendanceStatus, error)
	withdrawFunc  func(ctx context.Context, eventID string, actor *model.Actor) error
}

func (m *mockAttendanceService) Set(ctx context.Context, eventID string, actor *model.Actor, status model.AttendanceStatus) (*model.Attendance, error) {
	if m.setFunc != nil {
		return m.setFunc(ctx, eventID, actor, status)
	}
	return &model.Attendance{EventID: eventID, UserID: actor.ID, Status: status}, nil
}

func (m *mockAttendanceService) GetStatus(ctx context.Context, eventID string, actor *model.Actor) (model.AttendanceStatus, error) {
	if m.getStatusFunc != nil {
		return m.getStatusFunc(ctx, eventID, actor)
	}
	return model.AttendanceNone, nil
}

func (m *mockAttendanceService) Withdraw(ctx context.Context, eventID string, actor *model.Actor) error {
	if m.withdrawFunc != nil {
		return m.withdrawFunc(ctx, eventID, actor)
	}
	return nil
}

// mockUserService はテスト用のUserServiceInterface実装。
type mockUserService struct {
	getByIDFunc    func(ctx context.Context, userID string, actor *model.Actor) (*model.User, error)
	listFunc       func(ctx context.Context, actor *model.Actor, includeDeleted bool) ([]*model.User, error)
	deactivateFunc func(ctx context.Context, userID string, actor *model.Actor) error
}

func (m *mockUserService) GetByID(ctx context.Context, userID string, actor *model.Actor) (*model.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, userID, actor)
	}
	return &model.User{ID: userID, Role: model.RoleUser}, nil
}

func (m *mockUserService) List(ctx context.Context, actor *model.Actor, includeDeleted bool) ([]*model.User, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, actor, includeDeleted)
	}
	return nil, nil
}

func (m *mockUserService) Deactivate(ctx context.Context, userID string, actor *model.Actor) error {
	if m.deactivateFunc != nil {
		return m.deactivateFunc(ctx, userID, actor)
	}
	return nil
}

// newAuthenticatedRequest は一般ユーザー（user-1）として認証済みのリクエストを生成する。
func newAuthenticatedRequest(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	return newRequestAs(t, method, path, body, &model.Actor{ID: "user-1", Role: model.RoleUser})
}

// newRequestAs は指定アクターとして認証済みのリクエストを生成する。actorがnilの場合は匿名。
func newRequestAs(t *testing.T, method, path, body string, actor *model.Actor) *http.Request {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if actor != nil {
		ctx := middleware.ContextWithActor(req.Context(), actor)
		ctx = middleware.ContextWithToken(ctx, "test-token")
		req = req.WithContext(ctx)
	}
	return req
}

// withURLParam はchiのURLパラメータをリクエストコンテキストに注入する。
// ハンドラーをルーター経由ではなく直接呼び出すテストで使用する。
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// decodeErrorResponse はレスポンスボディを統一エラーフォーマットとして解析する。
func decodeErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) apiErrorResponse {
	t.Helper()
	var body apiErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("エラーレスポンスの解析に失敗: %v", err)
	}
	return body
}

// assertStatus はレスポンスのステータスコードを検証する。
func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Errorf("status = %d, want %d (body: %s)", rec.Code, want, rec.Body.String())
	}
}
