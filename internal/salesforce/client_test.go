package salesforce

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sfmon_exporter/internal/logger"
)

func testClient(srv *httptest.Server) *Client {
	session := &Session{
		InstanceURL: srv.URL,
		AccessToken: "test-token",
		APIVersion:  "62.0",
	}
	return &Client{
		session:        session,
		queryClient:    srv.Client(),
		downloadClient: srv.Client(),
		log:            logger.NewLoggerWithContext("salesforce-client-test"),
	}
}

type accountRecord struct {
	Name string `json:"Name"`
}

func TestQueryFollowsPagination(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/services/data/v62.0/query", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{
			"totalSize": 3, "done": false,
			"nextRecordsUrl": "/services/data/v62.0/query/01g-2000",
			"records": [{"Name": "alpha"}, {"Name": "beta"}]
		}`)
	})
	mux.HandleFunc("/services/data/v62.0/query/01g-2000", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"totalSize": 3, "done": true,
			"records": [{"Name": "gamma"}]
		}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := testClient(srv)
	var records []accountRecord
	if err := c.Query(context.Background(), "SELECT Name FROM Account", &records); err != nil {
		t.Fatalf("Query: %v", err)
	}

	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization header = %q", gotAuth)
	}
	want := []string{"alpha", "beta", "gamma"}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d", len(records), len(want))
	}
	for i, name := range want {
		if records[i].Name != name {
			t.Errorf("records[%d].Name = %q, want %q", i, records[i].Name, name)
		}
	}
}

func TestToolingQueryUsesToolingEndpoint(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		fmt.Fprint(w, `{"totalSize": 0, "done": true, "records": []}`)
	}))
	defer srv.Close()

	c := testClient(srv)
	var records []accountRecord
	if err := c.ToolingQuery(context.Background(), "SELECT Name FROM ApexClass", &records); err != nil {
		t.Fatalf("ToolingQuery: %v", err)
	}
	if path != "/services/data/v62.0/tooling/query" {
		t.Errorf("path = %q", path)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestQueryErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `[{"errorCode": "INVALID_FIELD"}]`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(srv)
	var records []accountRecord
	err := c.Query(context.Background(), "SELECT Nope FROM Account", &records)
	if err == nil {
		t.Fatal("expected error for HTTP 400")
	}
	if !strings.Contains(err.Error(), "HTTP 400") {
		t.Errorf("error = %v, want HTTP 400 mention", err)
	}
	if !strings.Contains(err.Error(), "INVALID_FIELD") {
		t.Errorf("error = %v, want response body excerpt", err)
	}
}

func TestQueryTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := testClient(srv)
	c.queryClient = &http.Client{Timeout: 20 * time.Millisecond}

	var records []accountRecord
	if err := c.Query(context.Background(), "SELECT Name FROM Account", &records); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestLimits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/services/data/v62.0/limits" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{
			"DailyApiRequests": {"Max": 15000, "Remaining": 14850},
			"DataStorageMB": {"Max": 1024, "Remaining": 312}
		}`)
	}))
	defer srv.Close()

	c := testClient(srv)
	limits, err := c.Limits(context.Background())
	if err != nil {
		t.Fatalf("Limits: %v", err)
	}
	if got := limits["DailyApiRequests"]; got.Max != 15000 || got.Remaining != 14850 {
		t.Errorf("DailyApiRequests = %+v", got)
	}
	if got := limits["DataStorageMB"]; got.Max != 1024 || got.Remaining != 312 {
		t.Errorf("DataStorageMB = %+v", got)
	}
}

func TestLatestEventLog(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/services/data/v62.0/query", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"totalSize": 1, "done": true, "records": [{"Id": "0AT000000000001"}]}`)
	})
	mux.HandleFunc("/services/data/v62.0/sobjects/EventLogFile/0AT000000000001/LogFile", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "EVENT_TYPE,USER_ID,ROWS_PROCESSED\nAPI,005xx1,15000\nAPI,005xx2,20\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := testClient(srv)
	rows, err := c.LatestEventLog(context.Background(), "API", "Hourly")
	if err != nil {
		t.Fatalf("LatestEventLog: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if got := rows[0].Get("ROWS_PROCESSED"); got != "15000" {
		t.Errorf("rows[0] ROWS_PROCESSED = %q", got)
	}
	if got := rows[1].Get("USER_ID"); got != "005xx2" {
		t.Errorf("rows[1] USER_ID = %q", got)
	}
	if got := rows[0].Get("MISSING_COLUMN"); got != "" {
		t.Errorf("missing column = %q, want empty", got)
	}
}

func TestLatestEventLogNoDescriptor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"totalSize": 0, "done": true, "records": []}`)
	}))
	defer srv.Close()

	c := testClient(srv)
	rows, err := c.LatestEventLog(context.Background(), "ApexUnexpectedException", "Daily")
	if err != nil {
		t.Fatalf("LatestEventLog: %v", err)
	}
	if rows != nil {
		t.Errorf("rows = %v, want nil", rows)
	}
}

func TestParseCSVRows(t *testing.T) {
	t.Run("empty body", func(t *testing.T) {
		rows, err := parseCSVRows(strings.NewReader(""))
		if err != nil {
			t.Fatalf("parseCSVRows: %v", err)
		}
		if rows != nil {
			t.Errorf("rows = %v, want nil", rows)
		}
	})

	t.Run("header only", func(t *testing.T) {
		rows, err := parseCSVRows(strings.NewReader("EVENT_TYPE,USER_ID\n"))
		if err != nil {
			t.Fatalf("parseCSVRows: %v", err)
		}
		if len(rows) != 0 {
			t.Errorf("got %d rows, want 0", len(rows))
		}
	})

	t.Run("short record", func(t *testing.T) {
		rows, err := parseCSVRows(strings.NewReader("A,B,C\n1,2\n"))
		if err != nil {
			t.Fatalf("parseCSVRows: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("got %d rows, want 1", len(rows))
		}
		if rows[0].Get("C") != "" {
			t.Errorf("C = %q, want empty", rows[0].Get("C"))
		}
	})
}
