package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"vaultai/internal/backend"
	"vaultai/internal/model"
)

// UploadTransport is the backend side of document management.
type UploadTransport interface {
	Upload(ctx context.Context, files []backend.UploadFile) ([]string, error)
	Delete(ctx context.Context, filename string) error
	ListFiles(ctx context.Context) ([]string, error)
}

type uploadRecord struct {
	entry model.UploadEntry
	batch uint64
}

// UploadRegistry tracks filenames submitted to the backend. A filename has
// at most one entry; resubmitting it keeps its position and the newest
// batch owns it.
type UploadRegistry struct {
	mu        sync.Mutex
	transport UploadTransport
	order     []string
	records   map[string]*uploadRecord
	batches   uint64
	onChange  func()
	logger    *zap.Logger
}

func NewUploadRegistry(transport UploadTransport, logger *zap.Logger) *UploadRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadRegistry{
		transport: transport,
		records:   make(map[string]*uploadRecord),
		logger:    logger,
	}
}

// Submit records every file as pending, sends the batch, and confirms the
// files the backend accepted. On failure the whole batch is rolled back.
// Files the backend did not echo stay pending.
func (r *UploadRegistry) Submit(ctx context.Context, files []backend.UploadFile) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}

	r.mu.Lock()
	r.batches++
	batch := r.batches
	submitted := make(map[string]struct{}, len(files))
	for _, f := range files {
		r.put(f.Name, model.UploadPending, batch)
		submitted[f.Name] = struct{}{}
	}
	r.mu.Unlock()
	r.changed()

	accepted, err := r.transport.Upload(ctx, files)
	if err != nil {
		r.mu.Lock()
		for name := range submitted {
			if rec, ok := r.records[name]; ok && rec.batch == batch {
				r.remove(name)
			}
		}
		r.mu.Unlock()
		r.changed()
		r.logger.Warn("upload batch rolled back", zap.Int("files", len(submitted)), zap.Error(err))
		return nil, err
	}

	confirmed := make([]string, 0, len(accepted))
	r.mu.Lock()
	for _, name := range accepted {
		if _, ok := submitted[name]; !ok {
			continue
		}
		rec, ok := r.records[name]
		if !ok || rec.batch != batch || rec.entry.Status == model.UploadConfirmed {
			continue
		}
		rec.entry.Status = model.UploadConfirmed
		confirmed = append(confirmed, name)
	}
	r.mu.Unlock()
	r.changed()

	r.logger.Info("upload batch finished",
		zap.Int("submitted", len(submitted)),
		zap.Int("confirmed", len(confirmed)),
	)
	return confirmed, nil
}

// Remove deletes filename on the backend and then locally.
func (r *UploadRegistry) Remove(ctx context.Context, filename string) error {
	if err := r.transport.Delete(ctx, filename); err != nil {
		return err
	}
	r.mu.Lock()
	r.remove(filename)
	r.mu.Unlock()
	r.changed()
	return nil
}

// Sync marks every file the backend reports as confirmed.
func (r *UploadRegistry) Sync(ctx context.Context) error {
	names, err := r.transport.ListFiles(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	for _, name := range names {
		if rec, ok := r.records[name]; ok {
			rec.entry.Status = model.UploadConfirmed
			continue
		}
		r.put(name, model.UploadConfirmed, 0)
	}
	r.mu.Unlock()
	r.changed()
	return nil
}

// Reset drops every entry. Batches still in flight no longer own anything.
func (r *UploadRegistry) Reset() {
	r.mu.Lock()
	r.order = nil
	r.records = make(map[string]*uploadRecord)
	r.mu.Unlock()
	r.changed()
}

func (r *UploadRegistry) Entries() []model.UploadEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.UploadEntry, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.records[name].entry)
	}
	return out
}

func (r *UploadRegistry) Lookup(filename string) (model.UploadEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[filename]
	if !ok {
		return model.UploadEntry{}, false
	}
	return rec.entry, true
}

func (r *UploadRegistry) setOnChange(fn func()) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

func (r *UploadRegistry) changed() {
	r.mu.Lock()
	fn := r.onChange
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// put must be called with mu held.
func (r *UploadRegistry) put(name string, status model.UploadStatus, batch uint64) {
	if rec, ok := r.records[name]; ok {
		rec.entry.Status = status
		rec.batch = batch
		return
	}
	r.records[name] = &uploadRecord{
		entry: model.UploadEntry{Filename: name, Status: status},
		batch: batch,
	}
	r.order = append(r.order, name)
}

// remove must be called with mu held.
func (r *UploadRegistry) remove(name string) {
	if _, ok := r.records[name]; !ok {
		return
	}
	delete(r.records, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}
