// Package export runs asynchronous exports of catalogued parameter sets and
// fit results to the artifact store.
package export

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"battcore/internal/blob"
	"battcore/internal/catalog"
	"battcore/internal/obs"
)

// Format identifies an artifact encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Status describes the lifecycle stage of an export request.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Artifact captures a stored export artifact.
type Artifact struct {
	Key         string    `json:"key"`
	Format      Format    `json:"format"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Checksum    string    `json:"checksum,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record tracks an export request and its resulting artifacts.
type Record struct {
	ID          string     `json:"id"`
	SetName     string     `json:"set_name"`
	Formats     []Format   `json:"formats"`
	IncludeFits bool       `json:"include_fits"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Artifacts   []Artifact `json:"artifacts,omitempty"`
	RequestedBy string     `json:"requested_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Input represents an enqueue request for the worker.
type Input struct {
	SetName     string
	Formats     []Format
	IncludeFits bool
	RequestedBy string
}

// Scheduler queues export requests and exposes status.
type Scheduler interface {
	Enqueue(ctx context.Context, input Input) (Record, error)
	Get(id string) (Record, bool)
}

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures audit trail metadata for exports.
type AuditEntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	Actor      string    `json:"actor"`
	SetName    string    `json:"set_name"`
	Status     Status    `json:"status"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Worker executes exports asynchronously against the catalog.
type Worker struct {
	catalog catalog.Store
	store   blob.Store
	audit   AuditLogger
	metrics obs.MetricsRecorder

	queue chan task
	mu    sync.RWMutex
	jobs  map[string]*Record

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type task struct {
	id    string
	input Input
}

// NewWorker constructs an export worker. The metrics recorder may be nil.
func NewWorker(cat catalog.Store, store blob.Store, audit AuditLogger, metrics obs.MetricsRecorder) *Worker {
	if metrics == nil {
		metrics = obs.NoopRecorder{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		catalog: cat,
		store:   store,
		audit:   audit,
		metrics: metrics,
		queue:   make(chan task, 32),
		jobs:    make(map[string]*Record),
		ctx:     ctx,
		cancel:  cancel,
	}
}

var _ Scheduler = (*Worker)(nil)

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case t := <-w.queue:
			w.process(t)
		}
	}
}

// Enqueue schedules an export job and returns the queued record.
func (w *Worker) Enqueue(ctx context.Context, input Input) (Record, error) {
	if w.catalog == nil {
		return Record{}, fmt.Errorf("export catalog not configured")
	}
	if strings.TrimSpace(input.SetName) == "" {
		return Record{}, fmt.Errorf("set name required")
	}

	formats := input.Formats
	if len(formats) == 0 {
		formats = []Format{FormatJSON, FormatCSV}
	}
	uniq := make([]Format, 0, len(formats))
	seen := make(map[Format]struct{})
	for _, format := range formats {
		if _, dup := seen[format]; dup {
			continue
		}
		if format != FormatJSON && format != FormatCSV {
			return Record{}, fmt.Errorf("unsupported export format %s", format)
		}
		uniq = append(uniq, format)
		seen[format] = struct{}{}
	}

	id := newID()
	now := time.Now().UTC()
	record := Record{
		ID:          id,
		SetName:     input.SetName,
		Formats:     uniq,
		IncludeFits: input.IncludeFits,
		Status:      StatusQueued,
		RequestedBy: input.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	queued := record.copy()
	w.mu.Unlock()

	w.recordAudit(ctx, input.RequestedBy, input.SetName, StatusQueued, "")

	select {
	case w.queue <- task{id: id, input: input}:
	default:
		w.mu.Lock()
		delete(w.jobs, id)
		w.mu.Unlock()
		w.recordAudit(ctx, input.RequestedBy, input.SetName, StatusFailed, "export queue full")
		return Record{}, fmt.Errorf("export queue full")
	}
	return queued, nil
}

// Get returns a snapshot of the export record.
func (w *Worker) Get(id string) (Record, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return Record{}, false
	}
	return record.copy(), true
}

func (w *Worker) process(t task) {
	start := time.Now()
	success := false
	defer func() {
		w.metrics.Observe(w.ctx, "export", success, time.Since(start))
	}()

	w.updateStatus(t.id, StatusRunning, "")

	var entry catalog.Entry
	var fits []catalog.FitResult
	err := w.catalog.View(w.ctx, func(tx catalog.Transaction) error {
		var ok bool
		entry, ok = tx.FindSet(t.input.SetName)
		if !ok {
			return fmt.Errorf("%w: parameter set %q", catalog.ErrNotFound, t.input.SetName)
		}
		if t.input.IncludeFits {
			for _, fr := range tx.ListFits() {
				if fr.SetName == t.input.SetName {
					fits = append(fits, fr)
				}
			}
		}
		return nil
	})
	if err != nil {
		w.fail(t.id, err.Error())
		return
	}

	record, ok := w.Get(t.id)
	if !ok {
		return
	}
	artifacts := make([]Artifact, 0, len(record.Formats))
	for _, format := range record.Formats {
		payload, contentType, err := render(format, entry, fits)
		if err != nil {
			w.fail(t.id, err.Error())
			return
		}
		key := fmt.Sprintf("exports/%s/%s.%s", entry.Name, t.id, format)
		info, err := w.store.Put(w.ctx, key, bytes.NewReader(payload), blob.PutOptions{
			ContentType: contentType,
			Metadata:    map[string]string{"set": entry.Name, "export_id": t.id},
		})
		if err != nil {
			w.fail(t.id, fmt.Sprintf("store artifact: %v", err))
			return
		}
		artifacts = append(artifacts, Artifact{
			Key:         info.Key,
			Format:      format,
			ContentType: contentType,
			SizeBytes:   info.Size,
			Checksum:    info.Checksum,
			CreatedAt:   info.LastModified,
		})
	}
	w.complete(t.id, artifacts)
	success = true
}

type exportDocument struct {
	Set  catalog.Entry       `json:"set"`
	Fits []catalog.FitResult `json:"fits,omitempty"`
}

func render(format Format, entry catalog.Entry, fits []catalog.FitResult) ([]byte, string, error) {
	switch format {
	case FormatJSON:
		payload, err := json.MarshalIndent(exportDocument{Set: entry, Fits: fits}, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("marshal json: %w", err)
		}
		return append(payload, '\n'), "application/json", nil
	case FormatCSV:
		names := make([]string, 0, len(entry.Values))
		for name := range entry.Values {
			names = append(names, name)
		}
		sort.Strings(names)
		var buf bytes.Buffer
		cw := csv.NewWriter(&buf)
		if err := cw.Write([]string{"parameter", "value"}); err != nil {
			return nil, "", err
		}
		for _, name := range names {
			if err := cw.Write([]string{name, strconv.FormatFloat(entry.Values[name], 'g', -1, 64)}); err != nil {
				return nil, "", err
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv", nil
	default:
		return nil, "", fmt.Errorf("unsupported export format %s", format)
	}
}

func (w *Worker) updateStatus(id string, status Status, message string) {
	now := time.Now().UTC()
	w.mu.Lock()
	var actor, set string
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = now
		actor, set = record.RequestedBy, record.SetName
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, actor, set, status, message)
}

func (w *Worker) complete(id string, artifacts []Artifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	var actor, set string
	if record, ok := w.jobs[id]; ok {
		record.Status = StatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
		actor, set = record.RequestedBy, record.SetName
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, actor, set, StatusSucceeded, "")
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	var actor, set string
	if record, ok := w.jobs[id]; ok {
		record.Status = StatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
		actor, set = record.RequestedBy, record.SetName
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, actor, set, StatusFailed, reason)
}

func (w *Worker) recordAudit(ctx context.Context, actor, set string, status Status, note string) {
	if w.audit == nil {
		return
	}
	w.audit.Record(ctx, AuditEntry{
		ID:         newID(),
		Action:     "parameter_set_export",
		Actor:      actor,
		SetName:    set,
		Status:     status,
		Note:       note,
		OccurredAt: time.Now().UTC(),
	})
}

func (r Record) copy() Record {
	dup := r
	dup.Formats = append([]Format(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]Artifact(nil), r.Artifacts...)
	}
	return dup
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b[:])
}
