// Package pidfile writes and removes the service's PID file, mirroring
// the service's startup/shutdown bookkeeping. Write is atomic (temp file +
// rename) in the same idiom as internal/health's status.json write.
package pidfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Doc is the JSON body written to the PID file.
type Doc struct {
	Pid       int    `json:"pid"`
	StartedAt string `json:"startedAt"`
}

const Mode = 0o644

// Write creates the directory if needed and atomically writes the PID file.
func Write(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	doc := Doc{Pid: os.Getpid(), StartedAt: time.Now().UTC().Format(time.RFC3339)}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".warchest-*.pid.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(Mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// Remove deletes the PID file, ignoring a not-exist error so shutdown is
// idempotent.
func Remove(path string) error {
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Read loads an existing PID file, used by tooling that wants to check
// whether a prior instance is still running.
func Read(path string) (Doc, error) {
	var doc Doc
	b, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, err
	}
	return doc, nil
}
