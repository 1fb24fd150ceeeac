package export

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"battcore/internal/blob"
	"battcore/internal/catalog"
	"battcore/internal/catalog/stores"
)

func memoryBlobStore(t *testing.T) blob.Store {
	t.Helper()
	return blob.NewMemory()
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (a *recordingAudit) Record(_ context.Context, entry AuditEntry) {
	a.mu.Lock()
	a.entries = append(a.entries, entry)
	a.mu.Unlock()
}

func (a *recordingAudit) statuses() []Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Status, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Status)
	}
	return out
}

func seedCatalog(t *testing.T) catalog.Store {
	t.Helper()
	store := stores.NewMemory()
	err := store.RunInTransaction(context.Background(), func(tx catalog.Transaction) error {
		if _, err := tx.PutSet(catalog.Entry{
			Name:   "ECM",
			Values: map[string]float64{"R0 [Ohm]": 0.001, "R1 [Ohm]": 0.0002},
		}); err != nil {
			return err
		}
		_, err := tx.RecordFit(catalog.FitResult{
			SetName:    "ECM",
			Parameters: []string{"R0 [Ohm]"},
			Estimates:  []float64{0.0012},
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func waitForTerminal(t *testing.T, w *Worker, id string) Record {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		record, ok := w.Get(id)
		if !ok {
			t.Fatalf("record %s missing", id)
		}
		if record.Status == StatusSucceeded || record.Status == StatusFailed {
			return record
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("export %s did not finish", id)
	return Record{}
}

func TestExportProducesArtifacts(t *testing.T) {
	ctx := context.Background()
	blobStore := memoryBlobStore(t)
	audit := &recordingAudit{}
	worker := NewWorker(seedCatalog(t), blobStore, audit, nil)
	worker.Start()
	defer func() { _ = worker.Stop(context.Background()) }()

	queued, err := worker.Enqueue(ctx, Input{SetName: "ECM", IncludeFits: true, RequestedBy: "cli"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if queued.Status != StatusQueued {
		t.Fatalf("expected queued status, got %s", queued.Status)
	}

	record := waitForTerminal(t, worker, queued.ID)
	if record.Status != StatusSucceeded {
		t.Fatalf("export failed: %s", record.Error)
	}
	if len(record.Artifacts) != 2 {
		t.Fatalf("expected json and csv artifacts, got %+v", record.Artifacts)
	}

	var jsonKey, csvKey string
	for _, a := range record.Artifacts {
		switch a.Format {
		case FormatJSON:
			jsonKey = a.Key
		case FormatCSV:
			csvKey = a.Key
		}
	}
	_, rc, err := blobStore.Get(ctx, jsonKey)
	if err != nil {
		t.Fatalf("get json artifact: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if !strings.Contains(string(data), `"R0 [Ohm]"`) || !strings.Contains(string(data), `"fit-1"`) {
		t.Fatalf("json artifact incomplete: %s", data)
	}

	_, rc, err = blobStore.Get(ctx, csvKey)
	if err != nil {
		t.Fatalf("get csv artifact: %v", err)
	}
	data, _ = io.ReadAll(rc)
	_ = rc.Close()
	if !strings.HasPrefix(string(data), "parameter,value\n") {
		t.Fatalf("csv artifact missing header: %s", data)
	}

	statuses := audit.statuses()
	if len(statuses) < 3 || statuses[0] != StatusQueued || statuses[len(statuses)-1] != StatusSucceeded {
		t.Fatalf("unexpected audit trail: %v", statuses)
	}
}

func TestExportUnknownSetFails(t *testing.T) {
	worker := NewWorker(seedCatalog(t), memoryBlobStore(t), nil, nil)
	worker.Start()
	defer func() { _ = worker.Stop(context.Background()) }()

	queued, err := worker.Enqueue(context.Background(), Input{SetName: "missing"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	record := waitForTerminal(t, worker, queued.ID)
	if record.Status != StatusFailed || record.Error == "" {
		t.Fatalf("expected failure for unknown set, got %+v", record)
	}
}

func TestEnqueueValidation(t *testing.T) {
	worker := NewWorker(seedCatalog(t), memoryBlobStore(t), nil, nil)
	if _, err := worker.Enqueue(context.Background(), Input{}); err == nil {
		t.Fatalf("expected error for empty set name")
	}
	if _, err := worker.Enqueue(context.Background(), Input{SetName: "ECM", Formats: []Format{"xml"}}); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestEnqueueQueueFullDropsRecord(t *testing.T) {
	audit := &recordingAudit{}
	// Not started, so nothing drains the queue.
	worker := NewWorker(seedCatalog(t), memoryBlobStore(t), audit, nil)

	ctx := context.Background()
	capacity := cap(worker.queue)
	for i := 0; i < capacity; i++ {
		if _, err := worker.Enqueue(ctx, Input{SetName: "ECM"}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if _, err := worker.Enqueue(ctx, Input{SetName: "ECM"}); err == nil {
		t.Fatalf("expected queue full error")
	}

	// Rejected jobs leave no lingering queued record.
	worker.mu.RLock()
	pending := len(worker.jobs)
	worker.mu.RUnlock()
	if pending != capacity {
		t.Fatalf("jobs: got %d want %d", pending, capacity)
	}

	statuses := audit.statuses()
	if len(statuses) == 0 || statuses[len(statuses)-1] != StatusFailed {
		t.Fatalf("expected trailing failed audit entry, got %v", statuses)
	}
}
