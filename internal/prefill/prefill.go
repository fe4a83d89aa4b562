// Package prefill seeds a fresh configuration aggregate from a business
// website: brand name, greeting suggestions, FAQ question/answer pairs, and
// knowledge-base entries scraped from the public pages.
package prefill

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/flowline-ai/flowline/internal/workflow"
)

const (
	fetchTimeout = 15 * time.Second
	userAgent    = "Mozilla/5.0"
	maxQAPairs   = 10
	maxKnowledge = 2000 // characters kept per knowledge entry
)

// Result is everything the scraper could extract.
type Result struct {
	BrandName string                    `json:"brandName,omitempty"`
	Greetings []string                  `json:"greetings,omitempty"`
	QAPairs   []workflow.QAPair         `json:"qaPairs,omitempty"`
	Knowledge []workflow.KnowledgeEntry `json:"knowledge,omitempty"`
	Sources   []string                  `json:"sources,omitempty"`
	Warnings  []string                  `json:"warnings,omitempty"`
}

type sitemapURLSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// ScrapeBrandPrefill fetches the site's homepage, about page, and FAQ page
// and extracts aggregate seed data. Individual page failures degrade to
// warnings; only an unusable URL is an error.
func ScrapeBrandPrefill(ctx context.Context, rawURL string) (*Result, error) {
	baseURL, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: fetchTimeout}
	sitemapURLs, _ := fetchSitemapURLs(ctx, client, baseURL)
	aboutURL := pickFirstURLContaining(sitemapURLs, "about")
	if aboutURL == "" {
		aboutURL = joinURL(baseURL, "/about")
	}
	faqURL := pickFirstURLContaining(sitemapURLs, "faq")
	if faqURL == "" {
		faqURL = joinURL(baseURL, "/faq")
	}

	result := &Result{}

	baseTitle, baseText, err := fetchText(ctx, client, baseURL)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("homepage: %v", err))
	}
	_, aboutText, err := fetchText(ctx, client, aboutURL)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("about page: %v", err))
	}
	_, faqText, err := fetchText(ctx, client, faqURL)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("faq page: %v", err))
	}

	result.BrandName = firstNonEmpty(
		extractBrandName(baseTitle),
		deriveNameFromHost(baseURL),
	)

	if result.BrandName != "" {
		result.Greetings = []string{
			fmt.Sprintf("Hi! Thanks for reaching out to %s. How can we help you today?", result.BrandName),
			fmt.Sprintf("Hello from %s! What can we do for you?", result.BrandName),
		}
	}

	if aboutText != "" {
		result.Knowledge = append(result.Knowledge, workflow.KnowledgeEntry{
			Category: "about",
			Content:  truncate(aboutText, maxKnowledge),
		})
	} else if baseText != "" {
		result.Knowledge = append(result.Knowledge, workflow.KnowledgeEntry{
			Category: "about",
			Content:  truncate(baseText, maxKnowledge),
		})
	}

	result.QAPairs = extractQAPairs(faqText)
	result.Sources = uniqueStrings([]string{baseURL, aboutURL, faqURL})
	return result, nil
}

// Apply seeds the aggregate with the scraped data, filling only what the
// user has not already set. Returns the updated aggregate.
func Apply(result *Result, agg *workflow.Aggregate) *workflow.Aggregate {
	if result == nil || agg == nil {
		return agg
	}
	out := agg.Clone()

	if len(out.BrandTone.Greetings) == 0 {
		for _, g := range result.Greetings {
			out.BrandTone = out.BrandTone.AddGreeting(g)
		}
	}
	for _, entry := range result.Knowledge {
		out.Context = out.Context.AddKnowledgeEntry(entry.Category, entry.Content)
	}
	for _, pair := range result.QAPairs {
		out.AITraining = out.AITraining.AddQAPair(pair.Question, pair.Answer)
	}
	return out
}

func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("prefill: website url is required")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("prefill: invalid website url")
	}
	parsed.Fragment = ""
	parsed.RawQuery = ""
	return strings.TrimRight(parsed.String(), "/"), nil
}

func fetchSitemapURLs(ctx context.Context, client *http.Client, baseURL string) ([]string, error) {
	body, err := fetchURL(ctx, client, joinURL(baseURL, "/sitemap.xml"))
	if err != nil {
		return nil, err
	}
	var sitemap sitemapURLSet
	if err := xml.Unmarshal([]byte(body), &sitemap); err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(sitemap.URLs))
	for _, entry := range sitemap.URLs {
		if entry.Loc == "" {
			continue
		}
		urls = append(urls, strings.TrimSpace(entry.Loc))
	}
	return urls, nil
}

func fetchURL(ctx context.Context, client *http.Client, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch failed: %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 3<<20))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func fetchText(ctx context.Context, client *http.Client, target string) (string, string, error) {
	if target == "" {
		return "", "", nil
	}
	body, err := fetchURL(ctx, client, target)
	if err != nil {
		return "", "", err
	}
	return extractTitle(body), extractText(body), nil
}

var (
	titlePattern   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptsPattern = regexp.MustCompile(`(?is)<(?:script|style|noscript)[^>]*>.*?</(?:script|style|noscript)>`)
	tagsPattern    = regexp.MustCompile(`(?s)<[^>]+>`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

func extractTitle(htmlBody string) string {
	match := titlePattern.FindStringSubmatch(htmlBody)
	if len(match) < 2 {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(match[1]))
}

func extractText(htmlBody string) string {
	clean := scriptsPattern.ReplaceAllString(htmlBody, " ")
	clean = tagsPattern.ReplaceAllString(clean, " ")
	clean = html.UnescapeString(clean)
	return strings.TrimSpace(spacePattern.ReplaceAllString(clean, " "))
}

// extractBrandName picks the most name-like segment of a page title,
// skipping generic navigation words.
func extractBrandName(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	best := ""
	for _, sep := range []string{"|", "-", "—"} {
		title = strings.ReplaceAll(title, sep, "|")
	}
	for _, part := range strings.Split(title, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lower := strings.ToLower(part)
		if strings.Contains(lower, "home") || strings.Contains(lower, "welcome") ||
			strings.Contains(lower, "official site") {
			continue
		}
		if len(part) > len(best) {
			best = part
		}
	}
	return best
}

func deriveNameFromHost(baseURL string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	if host == "" {
		return ""
	}
	if i := strings.Index(host, "."); i > 0 {
		host = host[:i]
	}
	return titleize(strings.ReplaceAll(host, "-", " "))
}

var questionPattern = regexp.MustCompile(`([A-Z][^.!?]{10,120}\?)\s+([^?]{10,400}?[.!])(\s|$)`)

// extractQAPairs finds question/answer runs in flattened FAQ text: a
// question-mark sentence followed by prose up to the next question.
func extractQAPairs(text string) []workflow.QAPair {
	if text == "" {
		return nil
	}
	matches := questionPattern.FindAllStringSubmatch(text, -1)
	pairs := make([]workflow.QAPair, 0, len(matches))
	for _, m := range matches {
		pairs = append(pairs, workflow.QAPair{
			Question: strings.TrimSpace(m[1]),
			Answer:   strings.TrimSpace(m[2]),
		})
		if len(pairs) >= maxQAPairs {
			break
		}
	}
	return pairs
}

func pickFirstURLContaining(urls []string, keyword string) string {
	keyword = strings.ToLower(keyword)
	for _, candidate := range urls {
		if strings.Contains(strings.ToLower(candidate), keyword) {
			return strings.TrimRight(candidate, "/")
		}
	}
	return ""
}

func joinURL(base, suffix string) string {
	return strings.TrimRight(base, "/") + suffix
}

func titleize(raw string) string {
	words := strings.Fields(raw)
	for i, w := range words {
		lower := strings.ToLower(w)
		words[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(words, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func uniqueStrings(values []string) []string {
	seen := map[string]bool{}
	result := []string{}
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}
	return result
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
