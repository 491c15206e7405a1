package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/adrian-glinqvist/ideasvault/internal/model"
	"github.com/adrian-glinqvist/ideasvault/internal/repository"
	"github.com/adrian-glinqvist/ideasvault/internal/service"
)

func TestMain(m *testing.M) {
	InitMetrics(nil)
	os.Exit(m.Run())
}

// newTestApp wires the engine on the in-memory store behind the real routes.
func newTestApp() (*fiber.App, *service.VoteService) {
	store := repository.NewMemoryStore()
	trend := service.NewTrendService(time.Hour, 1.8)
	tally := service.NewTallyService()
	persist := service.NewPersistWorker(store, store, time.Second, nil)
	ledger := service.NewLedgerService(2*time.Second, persist)
	hub := service.NewHubService(service.NewTallySnapshots(tally, 30), 64, nil)
	svc := service.NewVoteService(ledger, tally, trend, hub, persist, store, store, nil)
	cache := service.NewCacheService("")

	voteH := NewVoteHandler(svc)
	ideaH := NewIdeaHandler(svc, cache, 30, "test-salt")

	app := fiber.New()
	app.Post("/api/votes", voteH.Submit)
	app.Delete("/api/votes", voteH.Retract)
	app.Post("/api/ideas", ideaH.Create)
	app.Get("/api/ideas/trending", ideaH.Trending)
	app.Get("/api/ideas/:ideaId", ideaH.Get)
	app.Post("/api/ideas/:ideaId/view", ideaH.RecordView)
	return app, svc
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestSubmitVote_OK(t *testing.T) {
	app, _ := newTestApp()

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/ideas", `{"ideaId":"idea-1","title":"First"}`))
	if err != nil {
		t.Fatalf("register request: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}

	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/votes", `{"ideaId":"idea-1","userId":"u1","voteType":1}`))
	if err != nil {
		t.Fatalf("vote request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("vote status = %d, want 200", resp.StatusCode)
	}

	var result model.VoteResult
	decodeBody(t, resp, &result)
	if result.VoteCount != 1 || result.UserVote != 1 {
		t.Errorf("vote result = %+v, want voteCount 1, userVote 1", result)
	}
}

func TestSubmitVote_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "malformed body",
			body:       `{"ideaId": `,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_BODY",
		},
		{
			name:       "bad idea id",
			body:       `{"ideaId":"has space","userId":"u1","voteType":1}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_FIELD",
		},
		{
			name:       "bad user id",
			body:       `{"ideaId":"idea-1","userId":"u 1","voteType":1}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_FIELD",
		},
		{
			name:       "zero vote type",
			body:       `{"ideaId":"idea-1","userId":"u1","voteType":0}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_VOTE",
		},
		{
			name:       "vote type out of range",
			body:       `{"ideaId":"idea-1","userId":"u1","voteType":2}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_VOTE",
		},
		{
			name:       "unknown idea",
			body:       `{"ideaId":"ghost","userId":"u1","voteType":1}`,
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
	}

	app, _ := newTestApp()
	if _, err := app.Test(jsonRequest(http.MethodPost, "/api/ideas", `{"ideaId":"idea-1","title":"First"}`)); err != nil {
		t.Fatalf("register request: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(jsonRequest(http.MethodPost, "/api/votes", tt.body))
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			var envelope errorEnvelope
			decodeBody(t, resp, &envelope)
			if envelope.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", envelope.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestVoteErrorMapping_Contention(t *testing.T) {
	app := fiber.New()
	app.Get("/boom", func(c fiber.Ctx) error {
		return voteError(c, model.ErrConflictRetry, "fallback")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	if got := resp.Header.Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want \"1\"", got)
	}
	var envelope errorEnvelope
	decodeBody(t, resp, &envelope)
	if envelope.Error.Code != "VOTE_CONTENDED" {
		t.Errorf("code = %q, want VOTE_CONTENDED", envelope.Error.Code)
	}
}

func TestRetractVote_WithoutPriorVote(t *testing.T) {
	app, _ := newTestApp()
	if _, err := app.Test(jsonRequest(http.MethodPost, "/api/ideas", `{"ideaId":"idea-1","title":"First"}`)); err != nil {
		t.Fatalf("register request: %v", err)
	}

	resp, err := app.Test(jsonRequest(http.MethodDelete, "/api/votes", `{"ideaId":"idea-1","userId":"u1"}`))
	if err != nil {
		t.Fatalf("retract request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("retract status = %d, want 200", resp.StatusCode)
	}
	var result model.VoteResult
	decodeBody(t, resp, &result)
	if result.VoteCount != 0 || result.UserVote != 0 {
		t.Errorf("retract result = %+v, want zero counts", result)
	}
}

func TestCreateIdea_CreatedThenOK(t *testing.T) {
	app, _ := newTestApp()

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/ideas", `{"ideaId":"idea-1","title":"First"}`))
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("first create status = %d, want 201", resp.StatusCode)
	}

	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/ideas", `{"ideaId":"idea-1","title":"Renamed"}`))
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("second create status = %d, want 200", resp.StatusCode)
	}
	var snap model.IdeaSnapshot
	decodeBody(t, resp, &snap)
	if snap.Title != "First" {
		t.Errorf("title = %q, want original kept", snap.Title)
	}
}

func TestGetIdea_IncludesUserVoteWhenAsked(t *testing.T) {
	app, _ := newTestApp()
	if _, err := app.Test(jsonRequest(http.MethodPost, "/api/ideas", `{"ideaId":"idea-1","title":"First"}`)); err != nil {
		t.Fatalf("register request: %v", err)
	}
	if _, err := app.Test(jsonRequest(http.MethodPost, "/api/votes", `{"ideaId":"idea-1","userId":"u1","voteType":-1}`)); err != nil {
		t.Fatalf("vote request: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/ideas/idea-1?userId=u1", nil))
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		VoteCount int64 `json:"voteCount"`
		UserVote  *int  `json:"userVote"`
	}
	decodeBody(t, resp, &body)
	if body.VoteCount != -1 {
		t.Errorf("voteCount = %d, want -1", body.VoteCount)
	}
	if body.UserVote == nil || *body.UserVote != -1 {
		t.Errorf("userVote = %v, want -1", body.UserVote)
	}
}

func TestGetIdea_NotFound(t *testing.T) {
	app, _ := newTestApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/ideas/ghost", nil))
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestTrending_RanksVotedIdeasFirst(t *testing.T) {
	app, _ := newTestApp()
	for _, body := range []string{
		`{"ideaId":"quiet","title":"Quiet"}`,
		`{"ideaId":"hot","title":"Hot"}`,
	} {
		if _, err := app.Test(jsonRequest(http.MethodPost, "/api/ideas", body)); err != nil {
			t.Fatalf("register request: %v", err)
		}
	}
	for _, user := range []string{"u1", "u2", "u3"} {
		body := `{"ideaId":"hot","userId":"` + user + `","voteType":1}`
		if _, err := app.Test(jsonRequest(http.MethodPost, "/api/votes", body)); err != nil {
			t.Fatalf("vote request: %v", err)
		}
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/ideas/trending", nil))
	if err != nil {
		t.Fatalf("trending request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("trending status = %d, want 200", resp.StatusCode)
	}
	var trending model.TrendingResponse
	decodeBody(t, resp, &trending)
	if len(trending.Ideas) != 2 {
		t.Fatalf("trending len = %d, want 2", len(trending.Ideas))
	}
	if trending.Ideas[0].IdeaID != "hot" {
		t.Errorf("top idea = %q, want hot", trending.Ideas[0].IdeaID)
	}
}

func TestRecordView_CountsUp(t *testing.T) {
	app, _ := newTestApp()
	if _, err := app.Test(jsonRequest(http.MethodPost, "/api/ideas", `{"ideaId":"idea-1","title":"First"}`)); err != nil {
		t.Fatalf("register request: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/ideas/idea-1/view", nil))
	if err != nil {
		t.Fatalf("view request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("view status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		ViewCount int64 `json:"viewCount"`
	}
	decodeBody(t, resp, &body)
	if body.ViewCount != 1 {
		t.Errorf("viewCount = %d, want 1", body.ViewCount)
	}
}
