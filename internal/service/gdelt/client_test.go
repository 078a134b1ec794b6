package gdelt

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"CoinPulse/internal/domain/models"
)

func window(t *testing.T) models.QueryWindow {
	t.Helper()
	start := time.Date(2022, 12, 27, 0, 0, 0, 0, time.UTC)
	return models.QueryWindow{Date: "2023-01-03", Start: start, End: start.AddDate(0, 0, 14)}
}

func newServer(t *testing.T, articles string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("startdatetime") != "20221227000000" || q.Get("enddatetime") != "20230110000000" {
			t.Errorf("window params: %s", r.URL.RawQuery)
		}
		if q.Get("format") != "json" || q.Get("maxrecords") != "250" {
			t.Errorf("params: %s", r.URL.RawQuery)
		}
		switch q.Get("mode") {
		case "artlist":
			fmt.Fprint(w, articles)
		case "timelinevol":
			fmt.Fprint(w, `{"timeline":[{"series":"Volume Intensity","data":[{"date":"20221227T000000Z","value":0.41},{"date":"20221228T000000Z","value":0.52}]}]}`)
		default:
			t.Errorf("unexpected mode %q", q.Get("mode"))
		}
	}))
}

func TestQuery(t *testing.T) {
	srv := newServer(t, `{"articles":[{"url":"https://a.example/1","title":"Bitcoin slides","seendate":"20221228T101500Z","domain":"a.example","language":"English","sourcecountry":"United States"}]}`)
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RequestsPerSec: 1000})
	res, err := c.Query(context.Background(), models.EventQuery{Window: window(t), Keyword: "bitcoin"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(res.Articles) != 1 || res.Articles[0].Title != "Bitcoin slides" {
		t.Fatalf("articles %+v", res.Articles)
	}
	if len(res.Timeline) != 2 || res.Timeline[1].Value != 0.52 || res.Timeline[0].Date.Day() != 27 {
		t.Fatalf("timeline %+v", res.Timeline)
	}
	if res.Empty() {
		t.Fatalf("result should not be empty")
	}
}

func TestQueryNoArticles(t *testing.T) {
	srv := newServer(t, `{}`)
	defer srv.Close()

	res, err := New(Config{BaseURL: srv.URL, RequestsPerSec: 1000}).Query(context.Background(), models.EventQuery{Window: window(t), Keyword: "bitcoin"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !res.Empty() {
		t.Fatalf("expected empty result")
	}
}

func TestQueryHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL, RequestsPerSec: 1000}).Query(context.Background(), models.EventQuery{Window: window(t), Keyword: "bitcoin"})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestQueryPlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "The specified phrase is too short.")
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL, RequestsPerSec: 1000}).Query(context.Background(), models.EventQuery{Window: window(t), Keyword: "b"})
	if err == nil || !strings.Contains(err.Error(), "too short") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestQueryDropsDeadLinks(t *testing.T) {
	links := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path == "/gone" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer links.Close()

	body := fmt.Sprintf(`{"articles":[{"url":"%[1]s/ok","title":"kept"},{"url":"%[1]s/gone","title":"dropped"},{"url":"http://127.0.0.1:1/x","title":"unreachable"}]}`, links.URL)
	srv := newServer(t, body)
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RequestsPerSec: 1000, ValidateLinks: true, LinkTimeout: time.Second})
	res, err := c.Query(context.Background(), models.EventQuery{Window: window(t), Keyword: "bitcoin"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(res.Articles) != 1 || res.Articles[0].Title != "kept" || res.Dropped != 2 {
		t.Fatalf("articles=%+v dropped=%d", res.Articles, res.Dropped)
	}
}

func TestBuildQuery(t *testing.T) {
	c := New(Config{})
	cases := map[string]string{
		"bitcoin":             "bitcoin (sourcecountry:UK OR sourcecountry:US)",
		"bitcoin OR ethereum": "(bitcoin OR ethereum) (sourcecountry:UK OR sourcecountry:US)",
		"crypto crash":        `"crypto crash" (sourcecountry:UK OR sourcecountry:US)`,
	}
	for in, want := range cases {
		if got := c.BuildQuery(in); got != want {
			t.Fatalf("%q: got %q, want %q", in, got, want)
		}
	}

	single := New(Config{Countries: []string{"US"}})
	if got := single.BuildQuery("bitcoin"); got != "bitcoin sourcecountry:US" {
		t.Fatalf("single country: %q", got)
	}
}
