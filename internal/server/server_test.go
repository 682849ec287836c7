package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/formbase/formbase/internal/auth"
	"github.com/formbase/formbase/internal/catalog"
	"github.com/formbase/formbase/internal/config"
	"github.com/formbase/formbase/internal/crud"
	"github.com/formbase/formbase/internal/database"
	"github.com/formbase/formbase/internal/database/drivertest"
	"github.com/formbase/formbase/internal/schema"
)

func newTestServer(t *testing.T, fake *drivertest.Fake) *Server {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	cat := catalog.New(fake, log)
	engine := schema.NewEngine(fake, cat, log)
	crudSvc := crud.NewService(fake, log)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	authSvc := auth.NewService(auth.Config{
		Username:     "admin",
		PasswordHash: string(hash),
		Secret:       "test-signing-key",
		TokenTTL:     time.Minute,
	})

	return New(config.ServerConfig{}, fake, engine, crudSvc, cat, authSvc, log)
}

func doJSON(t *testing.T, s *Server, method, path, body string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}

	var decoded map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("%s %s: invalid JSON response %q", method, path, raw)
		}
	}
	return resp, decoded
}

func TestCreateTable(t *testing.T) {
	fake := drivertest.New()
	s := newTestServer(t, fake)

	resp, body := doJSON(t, s, "POST", "/api/tables",
		`{"entityName":"Orders","tableName":"orders","fields":{"customer":"text","amount":"numeric"}}`, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if n := len(fake.StatementsMatching("CREATE TABLE")); n != 1 {
		t.Errorf("CREATE TABLE statements = %d, want 1", n)
	}

	data, _ := body["data"].(map[string]any)
	if data["tableName"] != "orders" || data["entityName"] != "Orders" {
		t.Errorf("data = %v", data)
	}
}

func TestCreateTableRejectsBadType(t *testing.T) {
	fake := drivertest.New()
	s := newTestServer(t, fake)

	resp, body := doJSON(t, s, "POST", "/api/tables",
		`{"tableName":"orders","fields":{"customer":"blob"}}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if len(fake.Statements) != 0 {
		t.Errorf("statements issued despite invalid type: %v", fake.Statements)
	}
	errObj, _ := body["error"].(map[string]any)
	if errObj["code"] != "INVALID_TYPE" {
		t.Errorf("error = %v", errObj)
	}
}

func TestInsertRequiresTableAndData(t *testing.T) {
	fake := drivertest.New()
	s := newTestServer(t, fake)

	resp, _ := doJSON(t, s, "POST", "/api/records", `{"data":{"a":1}}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing table: status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, s, "POST", "/api/records", `{"table":"orders"}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing data: status = %d", resp.StatusCode)
	}
	if len(fake.Statements) != 0 {
		t.Errorf("statements issued: %v", fake.Statements)
	}
}

func TestInsertReturnsRow(t *testing.T) {
	fake := drivertest.New()
	fake.QueryResults["INSERT INTO \"orders\""] = []database.Row{
		{"id": int64(1), "customer": "Alice", "versionid": "7a9d8c1e-0000-0000-0000-000000000000"},
	}
	s := newTestServer(t, fake)

	resp, body := doJSON(t, s, "POST", "/api/records",
		`{"table":"orders","data":{"customer":"Alice"}}`, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	data, _ := body["data"].(map[string]any)
	if data["customer"] != "Alice" {
		t.Errorf("data = %v", data)
	}
}

func TestUpdateRequiresWhere(t *testing.T) {
	fake := drivertest.New()
	s := newTestServer(t, fake)

	resp, body := doJSON(t, s, "PUT", "/api/records",
		`{"table":"orders","data":{"amount":50}}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	errObj, _ := body["error"].(map[string]any)
	if errObj["code"] != "MISSING_FILTER" {
		t.Errorf("error = %v", errObj)
	}
	if len(fake.Statements) != 0 {
		t.Errorf("statements issued: %v", fake.Statements)
	}
}

func TestDeleteRequiresWhere(t *testing.T) {
	fake := drivertest.New()
	s := newTestServer(t, fake)

	resp, _ := doJSON(t, s, "DELETE", "/api/records", `{"table":"orders"}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(fake.Statements) != 0 {
		t.Errorf("statements issued: %v", fake.Statements)
	}
}

func TestSearchRejectsNonSelectQuery(t *testing.T) {
	fake := drivertest.New()
	s := newTestServer(t, fake)

	resp, body := doJSON(t, s, "POST", "/api/records/search",
		`{"query":"DELETE FROM orders"}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	errObj, _ := body["error"].(map[string]any)
	if errObj["code"] != "NON_SELECT" {
		t.Errorf("error = %v", errObj)
	}
}

func TestSearchByFilter(t *testing.T) {
	fake := drivertest.New()
	fake.QueryResults["SELECT * FROM \"orders\""] = []database.Row{
		{"id": int64(1), "customer": "Alice"},
	}
	s := newTestServer(t, fake)

	resp, body := doJSON(t, s, "POST", "/api/records/search",
		`{"table":"orders","filter":{"customer":"Alice"}}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	rows, _ := body["data"].([]any)
	if len(rows) != 1 {
		t.Errorf("rows = %v", rows)
	}
}

func TestReportsRequireAuth(t *testing.T) {
	fake := drivertest.New()
	s := newTestServer(t, fake)

	resp, body := doJSON(t, s, "GET", "/api/reports/sales", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, s, "GET", "/api/reports/sales", "",
		map[string]string{"Authorization": "Bearer garbage"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d", resp.StatusCode)
	}
}

func TestReportRoundTrip(t *testing.T) {
	fake := drivertest.New()
	fake.QueryResults["SELECT statement FROM _named_queries"] = []database.Row{
		{"statement": "SELECT * FROM orders"},
	}
	fake.QueryResults["SELECT * FROM orders"] = []database.Row{
		{"id": int64(1)},
	}
	s := newTestServer(t, fake)

	// Login for a token first.
	resp, body := doJSON(t, s, "POST", "/api/auth/login",
		`{"username":"admin","password":"s3cret"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, body = %v", resp.StatusCode, body)
	}
	data, _ := body["data"].(map[string]any)
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatal("no token returned")
	}
	headers := map[string]string{"Authorization": "Bearer " + token}

	resp, body = doJSON(t, s, "GET", "/api/reports/sales", "", headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("report status = %d, body = %v", resp.StatusCode, body)
	}
	result, _ := body["data"].(map[string]any)
	if result["slug"] != "sales" || result["count"] != float64(1) {
		t.Errorf("result = %v", result)
	}
}

func TestUnknownReportSlug(t *testing.T) {
	fake := drivertest.New()
	s := newTestServer(t, fake)

	resp, body := doJSON(t, s, "POST", "/api/auth/login",
		`{"username":"admin","password":"s3cret"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	data, _ := body["data"].(map[string]any)
	token, _ := data["token"].(string)

	resp, body = doJSON(t, s, "GET", "/api/reports/nope", "",
		map[string]string{"Authorization": "Bearer " + token})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
}
