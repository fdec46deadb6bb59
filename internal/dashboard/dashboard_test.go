package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/automatix-sh/automatix/internal/db"
	"github.com/automatix-sh/automatix/internal/models"
)

func testRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	router := gin.New()
	registerRoutes(router, gormDB)
	return router, gormDB
}

func seedRun(t *testing.T, gormDB *gorm.DB, id, status string) {
	t.Helper()
	started := time.Now().Add(-time.Minute)
	run := models.Run{ID: id, Script: "deploy", Status: status, Trigger: "manual", StartedAt: started}
	if status != models.RunStatusRunning {
		finished := time.Now()
		run.FinishedAt = &finished
	}
	if err := gormDB.Create(&run).Error; err != nil {
		t.Fatal(err)
	}
}

func TestRunsEndpoint(t *testing.T) {
	router, gormDB := testRouter(t)
	seedRun(t, gormDB, "run-00000001", models.RunStatusSuccess)
	seedRun(t, gormDB, "run-00000002", models.RunStatusFailed)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var runs []models.Run
	if err := json.Unmarshal(w.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("len(runs) = %d, want 2", len(runs))
	}

	// Status filter.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/runs?status=failed", nil)
	router.ServeHTTP(w, req)
	if err := json.Unmarshal(w.Body.Bytes(), &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != "run-00000002" {
		t.Errorf("filtered runs = %+v", runs)
	}
}

func TestRunDetailEndpoint(t *testing.T) {
	router, gormDB := testRouter(t)
	seedRun(t, gormDB, "run-deadbeef", models.RunStatusSuccess)
	step := models.StepResult{RunID: "run-deadbeef", Phase: "pipeline", StepIndex: 1, Command: "local: echo hi", Outcome: models.StepOutcomeOK, Attempts: 1}
	if err := gormDB.Create(&step).Error; err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/runs/run-deadbeef", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var run models.Run
	if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
		t.Fatal(err)
	}
	if len(run.Steps) != 1 {
		t.Errorf("len(Steps) = %d, want 1", len(run.Steps))
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/runs/run-missing0", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestRunLogsEndpoint(t *testing.T) {
	router, gormDB := testRouter(t)
	entry := models.CommandLog{RunID: "run-cafecafe", Phase: "pipeline", StepIndex: 1, Direction: "out", Content: "hello\n"}
	if err := gormDB.Create(&entry).Error; err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/runs/run-cafecafe/logs", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var logs []models.CommandLog
	if err := json.Unmarshal(w.Body.Bytes(), &logs); err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].Content != "hello\n" {
		t.Errorf("logs = %+v", logs)
	}
}

func TestRunningEndpoint(t *testing.T) {
	router, gormDB := testRouter(t)
	seedRun(t, gormDB, "run-00000003", models.RunStatusRunning)
	seedRun(t, gormDB, "run-00000004", models.RunStatusSuccess)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/running", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var runs []models.Run
	if err := json.Unmarshal(w.Body.Bytes(), &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != "run-00000003" {
		t.Errorf("running = %+v", runs)
	}
}

func TestSSEConnectedEvent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	// A nil DB makes the handler emit the connected event and return.
	router.GET("/api/events", handleSSE(nil))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	router.ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "event: connected") {
		t.Errorf("body missing connected event:\n%s", body)
	}
}

func TestWriteSSE(t *testing.T) {
	var b strings.Builder
	writeSSE(&b, "run-finished", runEvent{RunID: "run-00000001", Script: "deploy", Status: "success"})

	got := b.String()
	if !strings.HasPrefix(got, "event: run-finished\ndata: ") {
		t.Errorf("malformed event:\n%s", got)
	}
	if !strings.HasSuffix(got, "\n\n") {
		t.Error("SSE events must end with a blank line")
	}
	if !strings.Contains(got, `"run_id":"run-00000001"`) {
		t.Errorf("payload missing run_id:\n%s", got)
	}
}
