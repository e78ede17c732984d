package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"calbot/pkg/logx"
)

// fileRunsCap bounds the in-memory run history served by RecentRuns.
const fileRunsCap = 1000

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.audit.jsonl (append-only JSON Lines)
//   - <prefix>.runs.jsonl  (append-only JSON Lines)
//
// The tail of the runs file is replayed into memory on open.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	auditFile *os.File
	runsFile  *os.File
	runs      []RunRecord // oldest first, at most fileRunsCap
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	auditPath := prefix + ".audit.jsonl"
	runsPath := prefix + ".runs.jsonl"

	af, err := os.OpenFile(auditPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	runs, err := replayRuns(runsPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("run history replay failed", logx.String("path", runsPath), logx.Any("err", err))
	}

	rf, err := os.OpenFile(runsPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		_ = af.Close()
		return nil, err
	}

	return &fileStore{
		log:       log,
		auditFile: af,
		runsFile:  rf,
		runs:      runs,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err1, err2 error
	if s.auditFile != nil {
		err1 = s.auditFile.Close()
		s.auditFile = nil
	}
	if s.runsFile != nil {
		err2 = s.runsFile.Close()
		s.runsFile = nil
	}
	return errors.Join(err1, err2)
}

func (s *fileStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return errors.New("audit file closed")
	}
	return json.NewEncoder(s.auditFile).Encode(e)
}

func (s *fileStore) AppendRun(ctx context.Context, r RunRecord) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runsFile == nil {
		return errors.New("runs file closed")
	}
	if err := json.NewEncoder(s.runsFile).Encode(r); err != nil {
		return err
	}
	s.runs = appendCapped(s.runs, r)
	return nil
}

func (s *fileStore) RecentRuns(ctx context.Context, task string, limit int) ([]RunRecord, error) {
	_ = ctx
	if limit <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RunRecord, 0, min(limit, len(s.runs)))
	for i := len(s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		if task != "" && s.runs[i].Task != task {
			continue
		}
		out = append(out, s.runs[i])
	}
	return out, nil
}

func appendCapped(runs []RunRecord, r RunRecord) []RunRecord {
	runs = append(runs, r)
	if len(runs) > fileRunsCap {
		// Reslice onto a fresh array so the dropped head can be collected.
		runs = append([]RunRecord(nil), runs[len(runs)-fileRunsCap:]...)
	}
	return runs
}

func replayRuns(path string) ([]RunRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []RunRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var r RunRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue
		}
		if r.Task == "" {
			continue
		}
		out = append(out, r)
	}
	if len(out) > fileRunsCap {
		out = out[len(out)-fileRunsCap:]
	}
	return out, sc.Err()
}
