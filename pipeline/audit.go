// ABOUTME: Append-only audit log of orchestrator decisions, one JSON record per line.
// ABOUTME: Logging failures are reported through a callback and never abort a run.
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Audit record types.
const (
	AuditRunStarted        = "run_started"
	AuditRunCompleted      = "run_completed"
	AuditRunFailed         = "run_failed"
	AuditRunBlocked        = "run_blocked"
	AuditStageStarted      = "stage_started"
	AuditStageCompleted    = "stage_completed"
	AuditStageFailed       = "stage_failed"
	AuditCacheHit          = "cache_hit"
	AuditCacheMiss         = "cache_miss"
	AuditValidationVerdict = "validation_verdict"
	AuditDocumentFailed    = "document_failed"
	AuditRetryScheduled    = "retry_scheduled"
	AuditCostIncrement     = "cost_increment"
	AuditMaterialized      = "run_dir_materialized"
	AuditCommitSucceeded   = "commit_succeeded"
	AuditCommitFailed      = "commit_failed"
)

// AuditRecord is one structured, timestamped orchestrator decision.
type AuditRecord struct {
	ID     string         `json:"id"`
	Time   time.Time      `json:"time"`
	Type   string         `json:"type"`
	Stage  string         `json:"stage,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// AuditLogger appends records to a JSONL file. Safe for concurrent use.
// Records are also echoed to Echo when set, for live progress display.
type AuditLogger struct {
	path    string
	mu      sync.Mutex
	f       *os.File
	Echo    func(AuditRecord)
	OnError func(error)
}

// OpenAuditLogger opens (or creates) the audit log at path for appending.
func OpenAuditLogger(path string) (*AuditLogger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &AuditLogger{path: path, f: f}, nil
}

// Log appends one record. Write failures go to OnError and are otherwise
// swallowed: logging failure must never abort a research run.
func (l *AuditLogger) Log(recordType, stage string, fields map[string]any) {
	rec := AuditRecord{
		ID:     uuid.NewString(),
		Time:   time.Now().UTC(),
		Type:   recordType,
		Stage:  stage,
		Fields: fields,
	}

	if l.Echo != nil {
		l.Echo(rec)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		l.reportError(fmt.Errorf("marshal audit record: %w", err))
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.f.Write(append(data, '\n')); err != nil {
		l.reportError(fmt.Errorf("write audit record: %w", err))
	}
}

// Close flushes and closes the underlying file.
func (l *AuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

func (l *AuditLogger) reportError(err error) {
	if l.OnError != nil {
		l.OnError(err)
	}
}

// ReadAuditLog parses an audit JSONL file, returning one record per line.
func ReadAuditLog(path string) ([]AuditRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return []AuditRecord{}, nil
	}

	lines := strings.Split(content, "\n")
	records := make([]AuditRecord, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec AuditRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("parse audit record line %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// AuditFilter specifies criteria for filtering audit records.
type AuditFilter struct {
	Types []string   // filter by record type(s); empty means all types
	Stage string     // filter by stage; empty means all stages
	Since *time.Time // records at or after this time; nil means no lower bound
	Until *time.Time // records at or before this time; nil means no upper bound
	Limit int        // max results; 0 means unlimited
}

// QueryAudit returns records matching the filter, in log order.
func QueryAudit(records []AuditRecord, filter AuditFilter) []AuditRecord {
	result := make([]AuditRecord, 0, len(records))
	for _, rec := range records {
		if !matchesAuditFilter(rec, filter) {
			continue
		}
		result = append(result, rec)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result
}

func matchesAuditFilter(rec AuditRecord, filter AuditFilter) bool {
	if len(filter.Types) > 0 {
		found := false
		for _, t := range filter.Types {
			if rec.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Stage != "" && rec.Stage != filter.Stage {
		return false
	}
	if filter.Since != nil && rec.Time.Before(*filter.Since) {
		return false
	}
	if filter.Until != nil && rec.Time.After(*filter.Until) {
		return false
	}
	return true
}

// TailAudit returns the last n records. If there are fewer than n records,
// all records are returned.
func TailAudit(records []AuditRecord, n int) []AuditRecord {
	if n <= 0 {
		return []AuditRecord{}
	}
	if n >= len(records) {
		return records
	}
	return records[len(records)-n:]
}

// AuditSummary holds aggregate statistics over an audit log.
type AuditSummary struct {
	TotalRecords int
	ByType       map[string]int
	ByStage      map[string]int
	FirstRecord  *time.Time
	LastRecord   *time.Time
}

// SummarizeAudit produces aggregate statistics over a run's audit log.
func SummarizeAudit(records []AuditRecord) *AuditSummary {
	summary := &AuditSummary{
		TotalRecords: len(records),
		ByType:       make(map[string]int),
		ByStage:      make(map[string]int),
	}

	for i, rec := range records {
		summary.ByType[rec.Type]++
		if rec.Stage != "" {
			summary.ByStage[rec.Stage]++
		}

		ts := rec.Time
		if i == 0 || ts.Before(*summary.FirstRecord) {
			t := ts
			summary.FirstRecord = &t
		}
		if i == 0 || ts.After(*summary.LastRecord) {
			t := ts
			summary.LastRecord = &t
		}
	}
	return summary
}
