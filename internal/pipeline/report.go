package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"modport/internal/generator"
)

type ReportSignal struct {
	Code     string  `json:"code"`
	Stage    string  `json:"stage"`
	Severity string  `json:"severity"`
	Message  string  `json:"message"`
	Value    float64 `json:"value,omitempty"`
}

type StageMetric struct {
	Name       string             `json:"name"`
	Status     string             `json:"status"`
	StartedAt  string             `json:"started_at"`
	FinishedAt string             `json:"finished_at"`
	DurationMS int64              `json:"duration_ms"`
	Counters   map[string]float64 `json:"counters,omitempty"`
	Notes      []string           `json:"notes,omitempty"`
	Error      string             `json:"error,omitempty"`
}

type FileMetric struct {
	SourceFile     string  `json:"source_file"`
	State          string  `json:"state"`
	Accepted       bool    `json:"accepted"`
	Validated      bool    `json:"validated"`
	Confidence     float64 `json:"confidence"`
	AlignmentScore float64 `json:"alignment_score,omitempty"`
	Divergences    int     `json:"divergences,omitempty"`
	Iterations     int     `json:"iterations,omitempty"`
	GeneratedFiles int     `json:"generated_files"`
	Warnings       int     `json:"warnings,omitempty"`
	Errors         int     `json:"errors,omitempty"`
}

type ReportSummary struct {
	StageCount        int            `json:"stage_count"`
	FileCount         int            `json:"file_count"`
	FailedStages      int            `json:"failed_stages"`
	AcceptedFiles     int            `json:"accepted_files"`
	FailedFiles       int            `json:"failed_files"`
	AvgConfidence     float64        `json:"avg_confidence"`
	AvgAlignment      float64        `json:"avg_alignment"`
	SignalsBySeverity map[string]int `json:"signals_by_severity"`
}

// RunReport records what one translation run did: stage timings, per-file
// outcomes, and notable signals. It is written next to the generated
// scripts so a run can be audited after the fact.
type RunReport struct {
	Version     string         `json:"version"`
	Mode        string         `json:"mode"`
	GeneratedAt string         `json:"generated_at"`
	OutputDir   string         `json:"output_dir"`
	Stages      []StageMetric  `json:"stages"`
	Files       []FileMetric   `json:"files,omitempty"`
	Signals     []ReportSignal `json:"signals,omitempty"`
	Summary     ReportSummary  `json:"summary"`
}

type StageHandle struct {
	name    string
	started time.Time
}

func NewRunReport(mode, outputDir string) *RunReport {
	return &RunReport{
		Version:     "v1",
		Mode:        mode,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		OutputDir:   outputDir,
		Stages:      []StageMetric{},
		Files:       []FileMetric{},
		Signals:     []ReportSignal{},
	}
}

func (r *RunReport) BeginStage(name string) StageHandle {
	return StageHandle{name: strings.TrimSpace(name), started: time.Now().UTC()}
}

func (r *RunReport) EndStage(h StageHandle, status string, counters map[string]float64, notes []string, err error) {
	if r == nil || strings.TrimSpace(h.name) == "" {
		return
	}
	if strings.TrimSpace(status) == "" {
		status = "ok"
	}
	finished := time.Now().UTC()
	m := StageMetric{
		Name:       h.name,
		Status:     status,
		StartedAt:  h.started.Format(time.RFC3339Nano),
		FinishedAt: finished.Format(time.RFC3339Nano),
		DurationMS: finished.Sub(h.started).Milliseconds(),
		Counters:   cleanCounters(counters),
		Notes:      cleanNotes(notes),
	}
	if err != nil {
		m.Error = err.Error()
		if status == "ok" {
			m.Status = "error"
		}
	}
	r.Stages = append(r.Stages, m)
}

func (r *RunReport) AddSignal(code, stage, severity, message string, value float64) {
	if r == nil {
		return
	}
	s := ReportSignal{
		Code:     strings.TrimSpace(code),
		Stage:    strings.TrimSpace(stage),
		Severity: strings.ToLower(strings.TrimSpace(severity)),
		Message:  strings.TrimSpace(message),
		Value:    value,
	}
	if s.Code == "" || s.Stage == "" || s.Severity == "" || s.Message == "" {
		return
	}
	r.Signals = append(r.Signals, s)
}

func (r *RunReport) AddFileMetric(m FileMetric) {
	if r == nil || strings.TrimSpace(m.SourceFile) == "" {
		return
	}
	r.Files = append(r.Files, m)
}

// FileMetricFromResult condenses a translation outcome for the report.
func FileMetricFromResult(res FileResult) FileMetric {
	m := FileMetric{
		SourceFile:     res.SourceFile,
		State:          string(res.State),
		Accepted:       res.Accepted,
		Confidence:     res.Confidence,
		GeneratedFiles: len(res.Files),
		Iterations:     len(res.Iterations),
	}
	for _, n := range res.Notes {
		switch n.Severity {
		case generator.SeverityWarning:
			m.Warnings++
		case generator.SeverityError:
			m.Errors++
		}
	}
	if res.Validation != nil {
		m.Validated = true
		m.AlignmentScore = res.Validation.Score
		m.Divergences = len(res.Validation.Divergences)
	}
	return m
}

func (r *RunReport) Finalize() {
	if r == nil {
		return
	}
	r.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	severityCount := map[string]int{
		"critical": 0,
		"warning":  0,
		"info":     0,
	}
	sort.Slice(r.Signals, func(i, j int) bool {
		pi := signalPriority(r.Signals[i].Severity)
		pj := signalPriority(r.Signals[j].Severity)
		if pi == pj {
			if r.Signals[i].Stage == r.Signals[j].Stage {
				return r.Signals[i].Code < r.Signals[j].Code
			}
			return r.Signals[i].Stage < r.Signals[j].Stage
		}
		return pi > pj
	})
	for _, s := range r.Signals {
		if _, ok := severityCount[s.Severity]; ok {
			severityCount[s.Severity]++
		} else {
			severityCount[s.Severity] = 1
		}
	}

	failedStages := 0
	for _, st := range r.Stages {
		if st.Status != "ok" {
			failedStages++
		}
	}

	accepted := 0
	failedFiles := 0
	validated := 0
	totalConfidence := 0.0
	totalAlignment := 0.0
	for _, f := range r.Files {
		if f.Accepted {
			accepted++
		}
		if f.State == string(StateFailed) {
			failedFiles++
		}
		if f.Validated {
			validated++
			totalAlignment += f.AlignmentScore
		}
		totalConfidence += f.Confidence
	}
	avgConfidence := 0.0
	if len(r.Files) > 0 {
		avgConfidence = totalConfidence / float64(len(r.Files))
	}
	avgAlignment := 0.0
	if validated > 0 {
		avgAlignment = totalAlignment / float64(validated)
	}

	r.Summary = ReportSummary{
		StageCount:        len(r.Stages),
		FileCount:         len(r.Files),
		FailedStages:      failedStages,
		AcceptedFiles:     accepted,
		FailedFiles:       failedFiles,
		AvgConfidence:     avgConfidence,
		AvgAlignment:      avgAlignment,
		SignalsBySeverity: severityCount,
	}
}

func (r *RunReport) Save(path string) error {
	if r == nil {
		return nil
	}
	r.Finalize()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}

func cleanCounters(raw map[string]float64) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		out[key] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cleanNotes(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, n := range raw {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func signalPriority(severity string) int {
	switch severity {
	case "critical":
		return 3
	case "warning":
		return 2
	default:
		return 1
	}
}
