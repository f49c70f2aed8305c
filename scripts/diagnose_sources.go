package main

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// SourceDiagnostic represents the diagnostic result for a single job board.
type SourceDiagnostic struct {
	Name          string `json:"name"`
	URL           string `json:"url"`
	Status        string `json:"status"` // "OK", "HTTP_ERROR", "PARSE_ERROR", "EMPTY", "TIMEOUT", "REDIRECT"
	HTTPCode      int    `json:"http_code"`
	ItemCount     int    `json:"item_count"`
	ErrorMessage  string `json:"error_message,omitempty"`
	Format        string `json:"format"` // "JSON", "RSS", "HTML"
	RedirectURL   string `json:"redirect_url,omitempty"`
	ResponseTime  int64  `json:"response_time_ms"`
	ContentLength int64  `json:"content_length"`
}

// board is a job source endpoint to probe.
type board struct {
	Name   string
	URL    string
	Format string // expected payload format
}

// The same endpoints the worker's source adapters hit.
var boards = []board{
	{Name: "remotive", URL: "https://remotive.com/api/remote-jobs", Format: "JSON"},
	{Name: "remoteok", URL: "https://remoteok.com/api", Format: "JSON"},
	{Name: "arbeitnow", URL: "https://www.arbeitnow.com/api/job-board-api", Format: "JSON"},
	{Name: "weworkremotely", URL: "https://weworkremotely.com/remote-jobs.rss", Format: "RSS"},
}

// RSS structure for the WeWorkRemotely feed.
type RSS struct {
	Channel struct {
		Items []struct {
			Title   string `xml:"title"`
			PubDate string `xml:"pubDate"`
			Link    string `xml:"link"`
		} `xml:"item"`
	} `xml:"channel"`
}

func main() {
	log.Printf("Diagnosing %d job board sources...\n", len(boards))

	diagnostics := make([]SourceDiagnostic, 0, len(boards))
	for i, b := range boards {
		log.Printf("[%d/%d] Diagnosing: %s", i+1, len(boards), b.Name)
		diag := diagnoseBoard(b, 30*time.Second)
		diagnostics = append(diagnostics, diag)

		// Rate limiting to be nice to servers
		time.Sleep(500 * time.Millisecond)
	}

	generateReport(diagnostics)
	generateJSONReport(diagnostics)
}

func diagnoseBoard(b board, timeout time.Duration) SourceDiagnostic {
	diag := SourceDiagnostic{
		Name:   b.Name,
		URL:    b.URL,
		Format: b.Format,
	}

	startTime := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", b.URL, nil)
	if err != nil {
		diag.Status = "REQUEST_ERROR"
		diag.ErrorMessage = err.Error()
		return diag
	}

	req.Header.Set("User-Agent", "JobDigest-Diagnostic/1.0")
	req.Header.Set("Accept", "application/json, application/rss+xml, application/xml, text/xml")

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	resp, err := client.Do(req)
	diag.ResponseTime = time.Since(startTime).Milliseconds()

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			diag.Status = "TIMEOUT"
			diag.ErrorMessage = fmt.Sprintf("Request timeout after %v", timeout)
		} else {
			diag.Status = "HTTP_ERROR"
			diag.ErrorMessage = err.Error()
		}
		return diag
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Failed to close response body: %v", err)
		}
	}()

	diag.HTTPCode = resp.StatusCode
	diag.ContentLength = resp.ContentLength

	if resp.Request.URL.String() != b.URL {
		diag.RedirectURL = resp.Request.URL.String()
		diag.Status = "REDIRECT"
	}

	if resp.StatusCode != 200 {
		diag.Status = "HTTP_ERROR"
		diag.ErrorMessage = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.Status)
		return diag
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		diag.Status = "READ_ERROR"
		diag.ErrorMessage = err.Error()
		return diag
	}

	itemCount, parseErr := countItems(body, b.Format)
	if parseErr != nil {
		diag.Status = "PARSE_ERROR"
		diag.ErrorMessage = parseErr.Error()
		return diag
	}

	diag.ItemCount = itemCount
	if itemCount == 0 {
		diag.Status = "EMPTY"
		diag.ErrorMessage = "Source returned no postings"
		return diag
	}

	diag.Status = "OK"
	return diag
}

// countItems extracts a posting count from the payload without replicating
// each adapter's full decoding.
func countItems(body []byte, format string) (int, error) {
	switch format {
	case "RSS":
		var rss RSS
		if err := xml.Unmarshal(body, &rss); err != nil {
			return 0, fmt.Errorf("failed to parse RSS: %w", err)
		}
		return len(rss.Channel.Items), nil
	case "JSON":
		// Remotive and Arbeitnow wrap postings in an object; RemoteOK
		// returns a bare array with a legal notice as element zero.
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err == nil {
			for _, key := range []string{"jobs", "data"} {
				if raw, ok := obj[key]; ok {
					var arr []json.RawMessage
					if err := json.Unmarshal(raw, &arr); err != nil {
						return 0, fmt.Errorf("failed to parse %q array: %w", key, err)
					}
					return len(arr), nil
				}
			}
			return 0, fmt.Errorf("no jobs array found in JSON object")
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(body, &arr); err != nil {
			return 0, fmt.Errorf("failed to parse JSON: %w", err)
		}
		if len(arr) > 0 {
			return len(arr) - 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("unknown format %q", format)
	}
}

// writef is a helper to write to file and handle errors
func writef(f *os.File, format string, args ...interface{}) error {
	_, err := fmt.Fprintf(f, format, args...)
	return err
}

func generateReport(diagnostics []SourceDiagnostic) {
	f, err := os.Create("source_diagnostic_report.txt")
	if err != nil {
		log.Printf("Failed to create report file: %v", err)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Failed to close report file: %v", err)
		}
	}()

	_ = writef(f, "===============================================\n")
	_ = writef(f, "Job Board Source Diagnostic Report\n")
	_ = writef(f, "Generated: %s\n", time.Now().Format(time.RFC3339))
	_ = writef(f, "Total Sources: %d\n", len(diagnostics))
	_ = writef(f, "===============================================\n\n")

	statusCount := make(map[string]int)
	var okCount, errorCount int
	for _, d := range diagnostics {
		statusCount[d.Status]++
		if d.Status == "OK" || d.Status == "REDIRECT" {
			okCount++
		} else {
			errorCount++
		}
	}

	_ = writef(f, "SUMMARY:\n")
	_ = writef(f, "  ✅ Working: %d (%.1f%%)\n", okCount, float64(okCount)/float64(len(diagnostics))*100)
	_ = writef(f, "  ❌ Broken: %d (%.1f%%)\n", errorCount, float64(errorCount)/float64(len(diagnostics))*100)
	_ = writef(f, "\nSTATUS BREAKDOWN:\n")
	for status, count := range statusCount {
		_ = writef(f, "  %s: %d\n", status, count)
	}
	_ = writef(f, "\n")

	_ = writef(f, "DETAILED RESULTS:\n")
	_ = writef(f, "===============================================\n\n")

	_ = writef(f, "✅ WORKING SOURCES (%d):\n", statusCount["OK"]+statusCount["REDIRECT"])
	_ = writef(f, "-------------------------------------------\n")
	for _, d := range diagnostics {
		if d.Status == "OK" || d.Status == "REDIRECT" {
			_ = writef(f, "Name: %s\n", d.Name)
			_ = writef(f, "  URL: %s\n", d.URL)
			_ = writef(f, "  Format: %s | Postings: %d\n", d.Format, d.ItemCount)
			_ = writef(f, "  Response: %dms | HTTP: %d\n", d.ResponseTime, d.HTTPCode)
			if d.RedirectURL != "" {
				_ = writef(f, "  ⚠️  Redirected to: %s\n", d.RedirectURL)
			}
			_ = writef(f, "\n")
		}
	}

	_ = writef(f, "\n❌ BROKEN SOURCES (%d):\n", errorCount)
	_ = writef(f, "-------------------------------------------\n")
	for _, d := range diagnostics {
		if d.Status != "OK" && d.Status != "REDIRECT" {
			_ = writef(f, "Name: %s\n", d.Name)
			_ = writef(f, "  URL: %s\n", d.URL)
			_ = writef(f, "  Status: %s | HTTP: %d\n", d.Status, d.HTTPCode)
			_ = writef(f, "  Error: %s\n", d.ErrorMessage)
			_ = writef(f, "  Response: %dms\n", d.ResponseTime)
			_ = writef(f, "\n")
		}
	}

	log.Println("✅ Text report generated: source_diagnostic_report.txt")
}

func generateJSONReport(diagnostics []SourceDiagnostic) {
	f, err := os.Create("source_diagnostic_report.json")
	if err != nil {
		log.Printf("Failed to create JSON report: %v", err)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Failed to close JSON report file: %v", err)
		}
	}()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(diagnostics); err != nil {
		log.Printf("Failed to write JSON report: %v", err)
		return
	}

	log.Println("✅ JSON report generated: source_diagnostic_report.json")
}
