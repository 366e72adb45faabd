package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-journal-backend/internal/domain"
	"github.com/tbourn/go-journal-backend/internal/pubsub"
	"github.com/tbourn/go-journal-backend/internal/repo"
	"github.com/tbourn/go-journal-backend/internal/services"
)

// ---------- flexible stubs ----------

type stubJournalSvc struct {
	create   func(context.Context, string, string, string, time.Time, bool) (*domain.Journal, error)
	get      func(context.Context, string, string) (*domain.Journal, error)
	listPage func(context.Context, string, int, int) ([]domain.Journal, int64, error)
	update   func(context.Context, string, string, *string, *string, *time.Time) (*domain.Journal, error)
	publish  func(context.Context, string, string) (*domain.Journal, error)
	star     func(context.Context, string, string, bool) error
	del      func(context.Context, string, string) error
	stats    func(context.Context, string) (int64, *time.Time, error)
}

func (s stubJournalSvc) Create(ctx context.Context, u, title, content string, d time.Time, p bool) (*domain.Journal, error) {
	if s.create != nil {
		return s.create(ctx, u, title, content, d, p)
	}
	return &domain.Journal{ID: uuid.NewString(), UserID: u, Title: title, Content: content, Status: domain.JournalStatusDraft}, nil
}

func (s stubJournalSvc) Get(ctx context.Context, u, id string) (*domain.Journal, error) {
	if s.get != nil {
		return s.get(ctx, u, id)
	}
	return &domain.Journal{ID: id, UserID: u, Status: domain.JournalStatusDraft}, nil
}

func (s stubJournalSvc) ListPage(ctx context.Context, u string, p, ps int) ([]domain.Journal, int64, error) {
	if s.listPage != nil {
		return s.listPage(ctx, u, p, ps)
	}
	return nil, 0, nil
}

func (s stubJournalSvc) Update(ctx context.Context, u, id string, title, content *string, d *time.Time) (*domain.Journal, error) {
	if s.update != nil {
		return s.update(ctx, u, id, title, content, d)
	}
	return &domain.Journal{ID: id, UserID: u, Status: domain.JournalStatusDraft}, nil
}

func (s stubJournalSvc) Publish(ctx context.Context, u, id string) (*domain.Journal, error) {
	if s.publish != nil {
		return s.publish(ctx, u, id)
	}
	return &domain.Journal{ID: id, UserID: u, Status: domain.JournalStatusPublished}, nil
}

func (s stubJournalSvc) ToggleStar(ctx context.Context, u, id string, st bool) error {
	if s.star != nil {
		return s.star(ctx, u, id, st)
	}
	return nil
}

func (s stubJournalSvc) Delete(ctx context.Context, u, id string) error {
	if s.del != nil {
		return s.del(ctx, u, id)
	}
	return nil
}

func (s stubJournalSvc) Stats(ctx context.Context, u string) (int64, *time.Time, error) {
	if s.stats != nil {
		return s.stats(ctx, u)
	}
	return 0, nil, nil
}

type stubUserSvc struct {
	register    func(context.Context, string, string) (*domain.User, error)
	get         func(context.Context, string) (*domain.User, error)
	deviceToken func(context.Context, string, string) error
}

func (s stubUserSvc) Register(ctx context.Context, email, name string) (*domain.User, error) {
	if s.register != nil {
		return s.register(ctx, email, name)
	}
	return &domain.User{ID: uuid.NewString(), Email: email, DisplayName: name}, nil
}

func (s stubUserSvc) Get(ctx context.Context, id string) (*domain.User, error) {
	if s.get != nil {
		return s.get(ctx, id)
	}
	return &domain.User{ID: id}, nil
}

func (s stubUserSvc) UpdateDeviceToken(ctx context.Context, id, token string) error {
	if s.deviceToken != nil {
		return s.deviceToken(ctx, id, token)
	}
	return nil
}

type stubGameSvc struct {
	points       func(context.Context, string) (int, error)
	level        func(context.Context, string) (*services.LevelProgress, error)
	transactions func(context.Context, string, int) ([]domain.PointTransaction, error)
}

func (s stubGameSvc) CurrentPoints(ctx context.Context, u string) (int, error) {
	if s.points != nil {
		return s.points(ctx, u)
	}
	return 0, nil
}

func (s stubGameSvc) CurrentLevel(ctx context.Context, u string) (*services.LevelProgress, error) {
	if s.level != nil {
		return s.level(ctx, u)
	}
	return &services.LevelProgress{CurrentLevel: 1}, nil
}

func (s stubGameSvc) Transactions(ctx context.Context, u string, limit int) ([]domain.PointTransaction, error) {
	if s.transactions != nil {
		return s.transactions(ctx, u, limit)
	}
	return nil, nil
}

type stubStreakSvc struct {
	current func(context.Context, string, string) (*services.StreakStatus, error)
}

func (s stubStreakSvc) Current(ctx context.Context, u, cat string) (*services.StreakStatus, error) {
	if s.current != nil {
		return s.current(ctx, u, cat)
	}
	return &services.StreakStatus{Category: cat}, nil
}

type stubAchSvc struct {
	all   func(context.Context, string) ([]repo.AchievementWithStatus, error)
	get   func(context.Context, string, string) (*repo.AchievementWithStatus, error)
	count func(context.Context, string) (int64, error)
}

func (s stubAchSvc) All(ctx context.Context, u string) ([]repo.AchievementWithStatus, error) {
	if s.all != nil {
		return s.all(ctx, u)
	}
	return nil, nil
}

func (s stubAchSvc) Get(ctx context.Context, u, id string) (*repo.AchievementWithStatus, error) {
	if s.get != nil {
		return s.get(ctx, u, id)
	}
	return &repo.AchievementWithStatus{}, nil
}

func (s stubAchSvc) CountForUser(ctx context.Context, u string) (int64, error) {
	if s.count != nil {
		return s.count(ctx, u)
	}
	return 0, nil
}

type stubEmotionSvc struct {
	counts  func(context.Context, string) (*services.EmotionCounts, error)
	grouped func(context.Context, string) ([]services.JournalEmotions, error)
	rises   func(context.Context, string) (int, error)
}

func (s stubEmotionSvc) Counts(ctx context.Context, u string) (*services.EmotionCounts, error) {
	if s.counts != nil {
		return s.counts(ctx, u)
	}
	return &services.EmotionCounts{}, nil
}

func (s stubEmotionSvc) Grouped(ctx context.Context, u string) ([]services.JournalEmotions, error) {
	if s.grouped != nil {
		return s.grouped(ctx, u)
	}
	return nil, nil
}

func (s stubEmotionSvc) RiseCount(ctx context.Context, u string) (int, error) {
	if s.rises != nil {
		return s.rises(ctx, u)
	}
	return 0, nil
}

type stubAnalysisSvc struct {
	process func(context.Context, *pubsub.AnalysisEvent) error
}

func (s stubAnalysisSvc) Process(ctx context.Context, ev *pubsub.AnalysisEvent) error {
	if s.process != nil {
		return s.process(ctx, ev)
	}
	return nil
}

// newHandlers wires default stubs, with overrides applied by the caller.
func newHandlers(j JournalService, u UserService, g GameService, st StreakReader, a AchievementReader, e EmotionReader, an AnalysisProcessor) *Handlers {
	if j == nil {
		j = stubJournalSvc{}
	}
	if u == nil {
		u = stubUserSvc{}
	}
	if g == nil {
		g = stubGameSvc{}
	}
	if st == nil {
		st = stubStreakSvc{}
	}
	if a == nil {
		a = stubAchSvc{}
	}
	if e == nil {
		e = stubEmotionSvc{}
	}
	if an == nil {
		an = stubAnalysisSvc{}
	}
	return New(u, j, g, st, a, e, an)
}

// ---------- helpers-only tests ----------

func Test_userID_and_clampPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rc := gin.CreateTestContextOnly(httptest.NewRecorder(), gin.New())
	if got := userID(rc); got != "demo-user" {
		t.Fatalf("fallback userID = %q", got)
	}
	rc.Set("userID", "u1")
	if got := userID(rc); got != "u1" {
		t.Fatalf("ctx userID = %q", got)
	}
	rc.Set("userID", 123) // wrong type -> fallback
	if got := userID(rc); got != "demo-user" {
		t.Fatalf("wrong-type fallback userID = %q", got)
	}

	cH, _ := gin.CreateTestContext(httptest.NewRecorder())
	reqH := httptest.NewRequest("GET", "/", nil)
	reqH.Header.Set("X-User-ID", "u-123")
	cH.Request = reqH
	if got := userID(cH); got != "u-123" {
		t.Fatalf("header fallback userID = %q", got)
	}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=-5&page_size=9999", nil)
	p, ps := clampPagination(c)
	if p != 1 || ps != 100 {
		t.Fatalf("clamp bounds got p=%d ps=%d", p, ps)
	}
}

// ---------- CreateJournal ----------

func TestCreateJournal_BadJSON_Success_Errors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Bad JSON -> 400
	{
		h := newHandlers(nil, nil, nil, nil, nil, nil, nil)
		r := gin.New()
		r.POST("/journals", h.CreateJournal)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/journals", bytes.NewBufferString("{bad"))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("bad json -> %d", w.Code)
		}
	}

	// Success -> 201, title trimmed, publish flag forwarded
	{
		var gotTitle string
		var gotPublish bool
		svc := stubJournalSvc{
			create: func(_ context.Context, u, title, content string, _ time.Time, publish bool) (*domain.Journal, error) {
				gotTitle, gotPublish = title, publish
				return &domain.Journal{ID: uuid.NewString(), UserID: u, Title: title, Content: content, Status: domain.JournalStatusPublished}, nil
			},
		}
		h := newHandlers(svc, nil, nil, nil, nil, nil, nil)
		r := gin.New()
		r.POST("/journals", h.CreateJournal)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/journals", bytes.NewBufferString(`{"title":"  Sunny  ","content":"walked","publish":true}`))
		req.Header.Set("X-User-ID", "u1")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("create -> %d body=%s", w.Code, w.Body.String())
		}
		if gotTitle != "Sunny" || !gotPublish {
			t.Fatalf("forwarded title=%q publish=%v", gotTitle, gotPublish)
		}
	}

	// Empty content -> 400 validation_error
	{
		svc := stubJournalSvc{
			create: func(context.Context, string, string, string, time.Time, bool) (*domain.Journal, error) {
				return nil, services.ErrEmptyContent
			},
		}
		h := newHandlers(svc, nil, nil, nil, nil, nil, nil)
		r := gin.New()
		r.POST("/journals", h.CreateJournal)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/journals", bytes.NewBufferString(`{"content":"  "}`))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("empty content -> %d", w.Code)
		}
		var e ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
			t.Fatalf("json: %v", err)
		}
		if e.Code != ErrCodeValidation {
			t.Fatalf("code = %q", e.Code)
		}
	}

	// Unknown user -> 404
	{
		svc := stubJournalSvc{
			create: func(context.Context, string, string, string, time.Time, bool) (*domain.Journal, error) {
				return nil, services.ErrUserNotFound
			},
		}
		h := newHandlers(svc, nil, nil, nil, nil, nil, nil)
		r := gin.New()
		r.POST("/journals", h.CreateJournal)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/journals", bytes.NewBufferString(`{"content":"x"}`))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Fatalf("unknown user -> %d", w.Code)
		}
	}
}

// ---------- ListJournals ----------

func TestListJournals_ETag304_and_Page(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ts := time.Unix(1700000000, 0).UTC()
	svc := stubJournalSvc{
		stats: func(context.Context, string) (int64, *time.Time, error) {
			return 2, &ts, nil
		},
		listPage: func(_ context.Context, u string, p, ps int) ([]domain.Journal, int64, error) {
			return []domain.Journal{{ID: "a", UserID: u}, {ID: "b", UserID: u}}, 2, nil
		},
	}
	h := newHandlers(svc, nil, nil, nil, nil, nil, nil)
	r := gin.New()
	r.GET("/journals", h.ListJournals)

	// First fetch: 200 with ETag and pagination.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/journals?page=1&page_size=20", nil)
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d body=%s", w.Code, w.Body.String())
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag header")
	}
	var out ListJournalsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(out.Journals) != 2 || out.Pagination.Total != 2 || out.Pagination.HasNext {
		t.Fatalf("unexpected page: %+v", out.Pagination)
	}

	// Conditional refetch: 304.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/journals", nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("conditional -> %d", w.Code)
	}
}

// ---------- GetJournal / DeleteJournal ----------

func TestGetJournal_UUIDGuard_and_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := newHandlers(stubJournalSvc{
		get: func(context.Context, string, string) (*domain.Journal, error) {
			return nil, services.ErrJournalNotFound
		},
	}, nil, nil, nil, nil, nil, nil)
	r := gin.New()
	r.GET("/journals/:id", h.GetJournal)
	r.DELETE("/journals/:id", h.DeleteJournal)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/journals/not-a-uuid", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad uuid -> %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/journals/"+uuid.NewString(), nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing journal -> %d", w.Code)
	}
	var e ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("json: %v", err)
	}
	if e.Code != ErrCodeNotFound {
		t.Fatalf("code = %q", e.Code)
	}
}

// ---------- UpdateJournal ----------

func TestUpdateJournal_StatusRules(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := uuid.NewString()

	// Status other than PUBLISHED -> 400
	{
		h := newHandlers(nil, nil, nil, nil, nil, nil, nil)
		r := gin.New()
		r.PUT("/journals/:id", h.UpdateJournal)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/journals/"+id, bytes.NewBufferString(`{"status":"DRAFT"}`))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("backward status -> %d", w.Code)
		}
	}

	// Bare publish: no field edits, Publish called once.
	{
		published := 0
		svc := stubJournalSvc{
			update: func(context.Context, string, string, *string, *string, *time.Time) (*domain.Journal, error) {
				t.Fatalf("update called without edits")
				return nil, nil
			},
			publish: func(_ context.Context, u, jid string) (*domain.Journal, error) {
				published++
				return &domain.Journal{ID: jid, UserID: u, Status: domain.JournalStatusPublished}, nil
			},
		}
		h := newHandlers(svc, nil, nil, nil, nil, nil, nil)
		r := gin.New()
		r.PUT("/journals/:id", h.UpdateJournal)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/journals/"+id, bytes.NewBufferString(`{"status":"PUBLISHED"}`))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("publish -> %d body=%s", w.Code, w.Body.String())
		}
		if published != 1 {
			t.Fatalf("publish called %d times", published)
		}
	}

	// Editing a published journal -> 409 invalid_state
	{
		svc := stubJournalSvc{
			update: func(context.Context, string, string, *string, *string, *time.Time) (*domain.Journal, error) {
				return nil, services.ErrInvalidState
			},
		}
		h := newHandlers(svc, nil, nil, nil, nil, nil, nil)
		r := gin.New()
		r.PUT("/journals/:id", h.UpdateJournal)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/journals/"+id, bytes.NewBufferString(`{"title":"late edit"}`))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusConflict {
			t.Fatalf("immutable edit -> %d", w.Code)
		}
		var e ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
			t.Fatalf("json: %v", err)
		}
		if e.Code != ErrCodeInvalidState {
			t.Fatalf("code = %q", e.Code)
		}
	}
}

// ---------- StarJournal ----------

func TestStarJournal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := uuid.NewString()

	var gotStar bool
	svc := stubJournalSvc{
		star: func(_ context.Context, _, _ string, st bool) error {
			gotStar = st
			return nil
		},
	}
	h := newHandlers(svc, nil, nil, nil, nil, nil, nil)
	r := gin.New()
	r.POST("/journals/:id/star", h.StarJournal)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/journals/"+id+"/star", bytes.NewBufferString(`{"starred":true}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("star -> %d", w.Code)
	}
	if !gotStar {
		t.Fatalf("starred flag not forwarded")
	}
}

func Test_middlewareGetIdempotencyKey(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	if k, ok := middlewareGetIdempotencyKey(c); ok || k != "" {
		t.Fatalf("expected no idempotency key, got ok=%v key=%q", ok, k)
	}

	c.Request.Header.Set("Idempotency-Key", "  k-1  ")
	k, ok := middlewareGetIdempotencyKey(c)
	if !ok || k != "k-1" {
		t.Fatalf("idem key: %v %q", ok, k)
	}
}
