package registry

// #region imports
import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danielpatrickdp/zooid-trials/internal/lockfile"
)

// #endregion

// #region registry-struct

// RegistryLockName is the lock every registry writer must hold.
const RegistryLockName = "lifecycle-registry"

// Registry is the persisted map of worker identity to lifecycle record:
// a single JSON document, read-modify-written under the registry lock.
type Registry struct {
	path  string
	locks *lockfile.Manager
}

// NewRegistry creates a registry handle over the given document path,
// guarded by the given lock manager.
func NewRegistry(path string, locks *lockfile.Manager) *Registry {
	return &Registry{path: path, locks: locks}
}

// Path returns the backing document path.
func (r *Registry) Path() string {
	return r.path
}

// #endregion registry-struct

// #region load-save

// Load reads the full registry document. A missing file is an empty
// registry, not an error.
func (r *Registry) Load() (map[string]ZooidRecord, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]ZooidRecord{}, nil
		}
		return nil, fmt.Errorf("read registry: %w", err)
	}
	records := map[string]ZooidRecord{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("unmarshal registry: %w", err)
	}
	return records, nil
}

// Save writes the full registry document atomically (temp file + rename)
// so a crashed writer never leaves a torn document behind.
func (r *Registry) Save(records map[string]ZooidRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".registry-*")
	if err != nil {
		return fmt.Errorf("temp registry: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close registry: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("rename registry: %w", err)
	}
	return nil
}

// #endregion load-save

// #region update

// Update runs fn inside the registry critical section:
// acquire lock → load → mutate → save → release. The lock is released on
// every path, including an fn error, so a failed mutation never abandons
// the lock.
func (r *Registry) Update(fn func(map[string]ZooidRecord) error) error {
	handle, err := r.locks.Acquire(RegistryLockName)
	if err != nil {
		return fmt.Errorf("registry lock: %w", err)
	}
	defer r.locks.Release(handle)

	records, err := r.Load()
	if err != nil {
		return err
	}
	if err := fn(records); err != nil {
		return err
	}
	return r.Save(records)
}

// #endregion update

// #region register

// Register creates a PROBATION record for a new worker. Registering an
// existing worker is a no-op: lifecycle evidence is never reset.
func (r *Registry) Register(name string) error {
	return r.Update(func(records map[string]ZooidRecord) error {
		if _, ok := records[name]; ok {
			return nil
		}
		records[name] = ZooidRecord{
			Name:           name,
			LifecycleState: StateProbation,
		}
		return nil
	})
}

// #endregion register

// #region record-fitness

// RecordFitness folds one fitness sample into a worker's running mean.
// Demoted workers are frozen: further evidence is ignored.
func (r *Registry) RecordFitness(name string, fitness float64) error {
	return r.Update(func(records map[string]ZooidRecord) error {
		rec, ok := records[name]
		if !ok {
			rec = ZooidRecord{Name: name, LifecycleState: StateProbation}
		}
		if rec.LifecycleState == StateDemoted {
			return nil
		}
		total := rec.FitnessMean*float64(rec.EvidenceCount) + fitness
		rec.EvidenceCount++
		rec.FitnessMean = total / float64(rec.EvidenceCount)
		records[name] = rec
		return nil
	})
}

// #endregion record-fitness
