// Package configstore reads, validates and versions the gateway's JSON
// configuration file. Routine writes rotate through a bounded backup set;
// the watchdog's disaster-recovery path preserves corrupted files under a
// separate unbounded tag so forensic evidence is never rotated away.
package configstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"
)

// MaxBackups bounds the rotated backup set. Corrupted-file copies made
// by the recovery path live outside this cap.
const MaxBackups = 10

const (
	backupPrefix    = "backup-"
	corruptedPrefix = "corrupted-"
	timestampLayout = "20060102-150405.000000000"
	tokenMask       = "********"
)

// Document is the gateway's parsed configuration.
type Document map[string]any

// ValidationResult lists every violated rule for an invalid document.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Backup identifies one rotated snapshot, newest first in listings.
type Backup struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store manages the live config file, the stable snapshot and the backup
// directory. The stable snapshot is written out-of-band by an operator
// and is read-only here.
type Store struct {
	LivePath   string
	StablePath string
	BackupDir  string

	now func() time.Time // injectable for tests
}

func New(livePath, stablePath, backupDir string) *Store {
	return &Store{
		LivePath:   livePath,
		StablePath: stablePath,
		BackupDir:  backupDir,
		now:        time.Now,
	}
}

// Read parses the live configuration file.
func (s *Store) Read() (Document, error) {
	data, err := os.ReadFile(s.LivePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: live config %s", ErrNotFound, s.LivePath)
		}
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: s.LivePath, Err: err}
	}
	return doc, nil
}

// Raw returns the unmasked live file contents, for editing flows that
// need an exact round-trip.
func (s *Store) Raw() ([]byte, error) {
	data, err := os.ReadFile(s.LivePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: live config %s", ErrNotFound, s.LivePath)
		}
		return nil, err
	}
	return data, nil
}

// Validate runs the structural checks and reports every violated rule.
func Validate(doc Document) ValidationResult {
	var rules []string

	gw, present := doc["gateway"]
	if !present {
		rules = append(rules, "missing required section: gateway")
	} else if section, ok := gw.(map[string]any); !ok {
		rules = append(rules, "gateway must be an object")
	} else {
		if !isNumeric(section["port"]) {
			rules = append(rules, "gateway.port must be a number")
		}
		if token := authToken(section); token == "" {
			rules = append(rules, "gateway.auth.token must be a non-empty string")
		}
	}

	if _, present := doc["agents"]; !present {
		rules = append(rules, "missing required section: agents")
	}

	// Guards against documents that cannot survive serialization.
	if _, err := json.Marshal(doc); err != nil {
		rules = append(rules, fmt.Sprintf("document cannot be serialized: %v", err))
	}

	return ValidationResult{Valid: len(rules) == 0, Errors: rules}
}

func isNumeric(v any) bool {
	switch v.(type) {
	case float64, float32, int, int32, int64, json.Number:
		return true
	}
	return false
}

func authToken(gateway map[string]any) string {
	auth, ok := gateway["auth"].(map[string]any)
	if !ok {
		return ""
	}
	token, _ := auth["token"].(string)
	return token
}

// Write validates the document, backs up the current live file, writes
// the new document with stable formatting, and re-reads the written file
// to confirm durability. Returns the backup identifier (empty when there
// was no previous live file to back up).
func (s *Store) Write(doc Document) (string, error) {
	if result := Validate(doc); !result.Valid {
		return "", &ValidationError{Rules: result.Errors}
	}

	backupID, err := s.backupCurrent()
	if err != nil {
		return "", fmt.Errorf("backing up current config: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(s.LivePath, data, 0o600); err != nil {
		return "", fmt.Errorf("writing live config: %w", err)
	}

	if err := s.verifyWritten(doc); err != nil {
		return "", err
	}

	return backupID, nil
}

// verifyWritten re-reads and re-parses the live file and compares it
// against what was intended, catching torn or misdirected writes.
func (s *Store) verifyWritten(doc Document) error {
	written, err := os.ReadFile(s.LivePath)
	if err != nil {
		return &VerificationError{Path: s.LivePath, Err: err}
	}

	var reread Document
	if err := json.Unmarshal(written, &reread); err != nil {
		return &VerificationError{Path: s.LivePath, Err: err}
	}

	// Normalize the input through one marshal/unmarshal cycle so both
	// sides use JSON's value types before comparing.
	canonical, err := json.Marshal(doc)
	if err != nil {
		return &VerificationError{Path: s.LivePath, Err: err}
	}
	var expected Document
	if err := json.Unmarshal(canonical, &expected); err != nil {
		return &VerificationError{Path: s.LivePath, Err: err}
	}

	if !reflect.DeepEqual(reread, expected) {
		return &VerificationError{Path: s.LivePath, Err: fmt.Errorf("round-trip mismatch")}
	}
	return nil
}

// backupCurrent copies the live file into the rotated backup set and
// evicts the oldest entries beyond MaxBackups. A missing live file is
// not an error: there is simply nothing to back up.
func (s *Store) backupCurrent() (string, error) {
	data, err := os.ReadFile(s.LivePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	if err := os.MkdirAll(s.BackupDir, 0o755); err != nil {
		return "", err
	}

	id := backupPrefix + s.now().Format(timestampLayout) + ".json"
	if err := os.WriteFile(filepath.Join(s.BackupDir, id), data, 0o600); err != nil {
		return "", err
	}

	if err := s.prune(); err != nil {
		return "", err
	}
	return id, nil
}

// prune removes the oldest rotated backups beyond MaxBackups.
func (s *Store) prune() error {
	backups, err := s.ListBackupsAll()
	if err != nil {
		return err
	}
	for _, old := range backups[min(len(backups), MaxBackups):] {
		if err := os.Remove(filepath.Join(s.BackupDir, old.ID)); err != nil {
			return err
		}
	}
	return nil
}

// ListBackups returns the rotated backup set, newest first, capped at
// MaxBackups.
func (s *Store) ListBackups() ([]Backup, error) {
	backups, err := s.ListBackupsAll()
	if err != nil {
		return nil, err
	}
	return backups[:min(len(backups), MaxBackups)], nil
}

// ListBackupsAll returns every rotated backup, newest first, without the
// cap. Used internally by pruning; corrupted-file copies are excluded.
func (s *Store) ListBackupsAll() ([]Backup, error) {
	entries, err := os.ReadDir(s.BackupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Backup{}, nil
		}
		return nil, err
	}

	var backups []Backup
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		createdAt, err := time.ParseInLocation(
			timestampLayout,
			strings.TrimSuffix(strings.TrimPrefix(name, backupPrefix), ".json"),
			time.Local,
		)
		if err != nil {
			continue
		}
		backups = append(backups, Backup{ID: name, CreatedAt: createdAt})
	}

	// Timestamped names sort newest-first in reverse lexical order.
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].ID > backups[j].ID
	})
	if backups == nil {
		backups = []Backup{}
	}
	return backups, nil
}

// RestoreFrom backs up the current live file, then overwrites it with
// the named backup's contents.
func (s *Store) RestoreFrom(id string) error {
	if strings.ContainsAny(id, "/\\") || !strings.HasPrefix(id, backupPrefix) {
		return fmt.Errorf("%w: backup %q", ErrNotFound, id)
	}

	source := filepath.Join(s.BackupDir, id)
	data, err := os.ReadFile(source)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: backup %q", ErrNotFound, id)
		}
		return err
	}

	if _, err := s.backupCurrent(); err != nil {
		return fmt.Errorf("backing up current config: %w", err)
	}

	return os.WriteFile(s.LivePath, data, 0o600)
}

// RestoreFromStable copies the stable snapshot over the live file. Used
// only by the watchdog's recovery path. When markCorrupted is set, the
// current (possibly broken) live file is first preserved under the
// corrupted tag, outside the rotated set and its cap.
func (s *Store) RestoreFromStable(markCorrupted bool) error {
	stable, err := os.ReadFile(s.StablePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNoStableSnapshot, s.StablePath)
		}
		return err
	}

	if markCorrupted {
		if err := s.preserveCorrupted(); err != nil {
			return fmt.Errorf("preserving corrupted config: %w", err)
		}
	}

	return os.WriteFile(s.LivePath, stable, 0o600)
}

// preserveCorrupted copies the live file to a corrupted-tagged file. A
// missing live file leaves nothing to preserve.
func (s *Store) preserveCorrupted() error {
	data, err := os.ReadFile(s.LivePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := os.MkdirAll(s.BackupDir, 0o755); err != nil {
		return err
	}

	name := corruptedPrefix + s.now().Format(timestampLayout) + ".json"
	return os.WriteFile(filepath.Join(s.BackupDir, name), data, 0o600)
}

// MaskToken returns a deep copy of the document with the authentication
// secret masked: up to the first 8 characters survive, the remainder is
// replaced with a fixed mask.
func MaskToken(doc Document) Document {
	data, err := json.Marshal(doc)
	if err != nil {
		return doc
	}
	var masked Document
	if err := json.Unmarshal(data, &masked); err != nil {
		return doc
	}

	gw, ok := masked["gateway"].(map[string]any)
	if !ok {
		return masked
	}
	auth, ok := gw["auth"].(map[string]any)
	if !ok {
		return masked
	}
	token, ok := auth["token"].(string)
	if !ok || token == "" {
		return masked
	}

	auth["token"] = token[:min(8, len(token))] + tokenMask
	return masked
}
