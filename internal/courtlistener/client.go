// Package courtlistener is a minimal client for the CourtListener REST API:
// citation lookup and opinion text retrieval for the download step, docket
// search for the fetch step.
package courtlistener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/markwbennett/brief-analyzer/internal/model"
	"github.com/markwbennett/brief-analyzer/internal/retry"
)

const (
	defaultBaseURL = "https://www.courtlistener.com"
	apiPrefix      = "/api/rest/v4"
	userAgent      = "briefcheck/1.0"

	// maxBodyBytes caps response reads; opinion texts run large but bounded
	maxBodyBytes = 20 << 20
)

// Client talks to CourtListener with token auth, request pacing, and
// bounded retries. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
	policy     retry.Policy
	log        *zap.Logger
}

// StatusError is a non-2xx response from the API
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("courtlistener returned %d for %s", e.Code, e.URL)
}

// Retryable reports whether the request is worth repeating
func (e *StatusError) Retryable() bool {
	return e.Code == 429 || e.Code >= 500
}

// NewClient builds a client from configuration. An empty token is allowed;
// CourtListener serves opinions without auth at a lower rate limit.
func NewClient(cfg model.CourtListenerConfig, log *zap.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 2
	}

	policy := retry.Default()
	policy.Retryable = func(err error) bool {
		var se *StatusError
		if errors.As(err, &se) {
			return se.Retryable()
		}
		return true
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		baseURL: strings.TrimRight(base, "/"),
		token:   cfg.APIToken,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		policy:  policy,
		log:     log,
	}
}

// do performs one rate-limited request and decodes the JSON body into out.
// form non-nil makes it a POST.
func (c *Client) do(ctx context.Context, path string, form url.Values, out any) error {
	return c.policy.Do(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		fullURL := c.baseURL + path
		var req *http.Request
		var err error
		if form != nil {
			req, err = http.NewRequestWithContext(ctx, http.MethodPost, fullURL, strings.NewReader(form.Encode()))
			if err == nil {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
		} else {
			req, err = http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		}
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Token "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("courtlistener request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			c.log.Warn("courtlistener error status",
				zap.Int("code", resp.StatusCode),
				zap.String("path", path))
			return &StatusError{Code: resp.StatusCode, URL: fullURL}
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		return nil
	})
}

// LookupResult is one entry from the citation-lookup endpoint
type LookupResult struct {
	Citation  string `json:"citation"`
	Status    int    `json:"status"`
	ClusterID string
	Clusters  []struct {
		ID          int      `json:"id"`
		SubOpinions []string `json:"sub_opinions"`
	} `json:"clusters"`
}

// LookupCitations posts citation text (one citation per line) to the
// citation-lookup endpoint and returns matches with cluster IDs.
func (c *Client) LookupCitations(ctx context.Context, text string) ([]LookupResult, error) {
	var results []LookupResult
	form := url.Values{"text": {text}}
	if err := c.do(ctx, apiPrefix+"/citation-lookup/", form, &results); err != nil {
		return nil, err
	}
	for i := range results {
		if len(results[i].Clusters) > 0 {
			results[i].ClusterID = fmt.Sprintf("%d", results[i].Clusters[0].ID)
		}
	}
	return results, nil
}

type cluster struct {
	SubOpinions []string `json:"sub_opinions"`
}

type opinion struct {
	PlainText         string `json:"plain_text"`
	HTMLWithCitations string `json:"html_with_citations"`
}

var idFromURLRE = regexp.MustCompile(`/(\d+)/?$`)

// OpinionText fetches the full text for a cluster: every sub-opinion
// concatenated, preferring plain text over citation-annotated HTML.
func (c *Client) OpinionText(ctx context.Context, clusterID string) (string, error) {
	var cl cluster
	if err := c.do(ctx, fmt.Sprintf("%s/clusters/%s/", apiPrefix, clusterID), nil, &cl); err != nil {
		return "", fmt.Errorf("fetch cluster %s: %w", clusterID, err)
	}
	if len(cl.SubOpinions) == 0 {
		return "", fmt.Errorf("cluster %s has no opinions", clusterID)
	}

	var texts []string
	for _, opURL := range cl.SubOpinions {
		m := idFromURLRE.FindStringSubmatch(strings.TrimRight(opURL, "/") + "/")
		if m == nil {
			continue
		}
		var op opinion
		if err := c.do(ctx, fmt.Sprintf("%s/opinions/%s/", apiPrefix, m[1]), nil, &op); err != nil {
			c.log.Warn("sub-opinion fetch failed",
				zap.String("opinion", m[1]),
				zap.Error(err))
			continue
		}
		text := strings.TrimSpace(op.PlainText)
		if text == "" && op.HTMLWithCitations != "" {
			var err error
			text, err = htmlText(op.HTMLWithCitations)
			if err != nil {
				c.log.Warn("opinion html unreadable",
					zap.String("opinion", m[1]),
					zap.Error(err))
				continue
			}
		}
		if text != "" {
			texts = append(texts, text)
		}
	}

	if len(texts) == 0 {
		return "", fmt.Errorf("cluster %s has no usable opinion text", clusterID)
	}
	return strings.Join(texts, "\n\n"), nil
}

// Docket is a docket search hit
type Docket struct {
	ID          int    `json:"id"`
	CaseName    string `json:"case_name"`
	DocketNum   string `json:"docket_number"`
	Court       string `json:"court_id"`
	AbsoluteURL string `json:"absolute_url"`
}

type docketPage struct {
	Results []Docket `json:"results"`
}

// FindDocket searches dockets by case number and court identifier
func (c *Client) FindDocket(ctx context.Context, caseNumber, court string) (*Docket, error) {
	q := url.Values{"docket_number": {caseNumber}}
	if court != "" {
		q.Set("court", court)
	}
	var page docketPage
	if err := c.do(ctx, apiPrefix+"/dockets/?"+q.Encode(), nil, &page); err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, fmt.Errorf("no docket found for %s", caseNumber)
	}
	return &page.Results[0], nil
}

var blankRE = regexp.MustCompile(`\n{3,}`)

// htmlText extracts readable text from an opinion served only as HTML.
// Walking the parse tree keeps tag attributes and entities out of the
// text the engine later verifies assertions against.
func htmlText(source string) (string, error) {
	doc, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style":
				return
			case "br":
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "blockquote", "h1", "h2", "h3", "li", "tr":
				b.WriteString("\n")
			}
		}
	}
	walk(doc)

	return strings.TrimSpace(blankRE.ReplaceAllString(b.String(), "\n\n")), nil
}
