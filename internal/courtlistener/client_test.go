package courtlistener

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/markwbennett/brief-analyzer/internal/model"
)

func newTestClient(serverURL string) *Client {
	cfg := model.CourtListenerConfig{
		APIToken: "test-token",
		BaseURL:  serverURL,
		RPS:      1000,
	}
	return NewClient(cfg, zap.NewNop())
}

func TestLookupCitations(t *testing.T) {
	var gotAuth, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/rest/v4/citation-lookup/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		gotAuth = r.Header.Get("Authorization")
		r.ParseForm()
		gotBody = r.PostForm.Get("text")
		fmt.Fprint(w, `[{
			"citation": "845 S.W.2d 874",
			"status": 200,
			"clusters": [{"id": 12345, "sub_opinions": ["/api/rest/v4/opinions/777/"]}]
		}]`)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	results, err := c.LookupCitations(context.Background(), "845 S.W.2d 874")
	if err != nil {
		t.Fatalf("LookupCitations: %v", err)
	}
	if gotAuth != "Token test-token" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody != "845 S.W.2d 874" {
		t.Errorf("posted text = %q", gotBody)
	}
	if len(results) != 1 || results[0].ClusterID != "12345" {
		t.Errorf("results = %+v", results)
	}
}

func TestOpinionText_PrefersPlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/rest/v4/clusters/12345/":
			fmt.Fprint(w, `{"sub_opinions": ["/api/rest/v4/opinions/1/", "/api/rest/v4/opinions/2/"]}`)
		case "/api/rest/v4/opinions/1/":
			fmt.Fprint(w, `{"plain_text": "First opinion."}`)
		case "/api/rest/v4/opinions/2/":
			fmt.Fprint(w, `{"plain_text": "", "html_with_citations": "<p>Second &amp; final opinion.</p>"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	text, err := c.OpinionText(context.Background(), "12345")
	if err != nil {
		t.Fatalf("OpinionText: %v", err)
	}
	want := "First opinion.\n\nSecond & final opinion."
	if text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}

func TestOpinionText_EmptyCluster(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sub_opinions": []}`)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	if _, err := c.OpinionText(context.Background(), "9"); err == nil {
		t.Error("expected error for cluster without opinions")
	}
}

func TestDo_NotFoundIsNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.OpinionText(context.Background(), "404")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("expected StatusError 404, got %v", err)
	}
	if calls != 1 {
		t.Errorf("404 was retried %d times; it is not transient", calls)
	}
}

func TestFindDocket(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("docket_number"); got != "01-23-00456-CR" {
			t.Errorf("docket_number = %q", got)
		}
		if got := r.URL.Query().Get("court"); got != "texapp1" {
			t.Errorf("court = %q", got)
		}
		fmt.Fprint(w, `{"results": [{"id": 55, "case_name": "Doe v. State", "docket_number": "01-23-00456-CR"}]}`)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	d, err := c.FindDocket(context.Background(), "01-23-00456-CR", "texapp1")
	if err != nil {
		t.Fatalf("FindDocket: %v", err)
	}
	if d.ID != 55 || d.CaseName != "Doe v. State" {
		t.Errorf("docket = %+v", d)
	}
}

func TestStatusError_Retryable(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{429, true},
		{500, true},
		{503, true},
		{404, false},
		{401, false},
	}
	for _, tc := range cases {
		se := &StatusError{Code: tc.code}
		if got := se.Retryable(); got != tc.want {
			t.Errorf("Retryable(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestHTMLText_AttributesStayOut(t *testing.T) {
	in := `<p><span class="citation" title="871 S.W.2d 726, pin > 730">Highwarden v. State</span> was reversed.</p>`
	got, err := htmlText(in)
	if err != nil {
		t.Fatalf("htmlText: %v", err)
	}
	want := "Highwarden v. State was reversed."
	if got != want {
		t.Errorf("text = %q, want %q", got, want)
	}
}

func TestHTMLText_BlocksEntitiesAndScripts(t *testing.T) {
	in := `<div><h1>Opinion</h1><p>Theus &amp; another.</p><script>var x = 1;</script><p>Second<br>line.</p></div>`
	got, err := htmlText(in)
	if err != nil {
		t.Fatalf("htmlText: %v", err)
	}
	want := "Opinion\nTheus & another.\nSecond\nline."
	if got != want {
		t.Errorf("text = %q, want %q", got, want)
	}
}
