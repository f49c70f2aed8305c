// Package exporter writes the aggregation result as a static JSON document
// for dashboard consumption. The same document shape is served by the HTTP
// API.
package exporter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"job-digest/internal/domain/entity"
	"job-digest/internal/repository"
)

// JobEntry is the wire representation of a stored job.
type JobEntry struct {
	ID       string   `json:"id"`
	Source   string   `json:"source"`
	Title    string   `json:"title"`
	Company  string   `json:"company"`
	Location string   `json:"location"`
	URL      string   `json:"url"`
	PostedAt *string  `json:"posted_at,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	IsNew    bool     `json:"is_new"`
}

// Stats is the wire representation of store statistics.
type Stats struct {
	TotalJobs   int64            `json:"total_jobs"`
	NewJobs     int64            `json:"new_jobs_last_24h"`
	BySource    map[string]int64 `json:"by_source"`
	LastUpdated *time.Time       `json:"last_updated,omitempty"`
}

// Document is the exported JSON root: jobs, stats, and the generation time.
type Document struct {
	Jobs        []JobEntry `json:"jobs"`
	Stats       Stats      `json:"stats"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// BuildDocument maps domain jobs and store stats onto the wire document.
func BuildDocument(jobs []*entity.Job, stats *repository.StoreStats, generatedAt time.Time) Document {
	entries := make([]JobEntry, 0, len(jobs))
	for _, job := range jobs {
		entry := JobEntry{
			ID:       job.ID,
			Source:   job.Source,
			Title:    job.Title,
			Company:  job.Company,
			Location: job.Location,
			URL:      job.URL,
			Keywords: job.Keywords,
			IsNew:    job.IsNew,
		}
		if !job.PostedAt.IsZero() {
			posted := job.PostedAt.Format(time.RFC3339)
			entry.PostedAt = &posted
		}
		entries = append(entries, entry)
	}

	doc := Document{Jobs: entries, GeneratedAt: generatedAt}
	if stats != nil {
		doc.Stats = Stats{
			TotalJobs: stats.TotalJobs,
			NewJobs:   stats.NewJobsLast24h,
			BySource:  stats.BySource,
		}
		if !stats.LastUpdated.IsZero() {
			lastUpdated := stats.LastUpdated
			doc.Stats.LastUpdated = &lastUpdated
		}
	}
	return doc
}

// FileExporter writes the document to a fixed path.
type FileExporter struct {
	path string
}

// NewFileExporter creates an exporter targeting path.
func NewFileExporter(path string) *FileExporter {
	return &FileExporter{path: path}
}

// Export writes the document atomically: a temp file in the target
// directory is renamed over the destination so readers never observe a
// partial write.
func (e *FileExporter) Export(jobs []*entity.Job, stats *repository.StoreStats, now time.Time) error {
	doc := BuildDocument(jobs, stats, now)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("Export: marshal: %w", err)
	}

	dir := filepath.Dir(e.path)
	tmp, err := os.CreateTemp(dir, ".jobs_data-*.json")
	if err != nil {
		return fmt.Errorf("Export: create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("Export: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("Export: close: %w", err)
	}

	if err := os.Rename(tmpName, e.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("Export: rename: %w", err)
	}

	slog.Info("export written",
		slog.String("path", e.path),
		slog.Int("jobs", len(jobs)),
		slog.Int("bytes", len(data)))
	return nil
}
