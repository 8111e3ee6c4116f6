// ABOUTME: Badger-backed store for rendered export artifacts
// ABOUTME: Keys artifacts by ULID handle so downloads can be fetched after a bulk export
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v3"
	"github.com/oklog/ulid/v2"

	"github.com/harperreed/pipeboard/models"
)

const keyPrefix = "export/"

var ErrArtifactNotFound = errors.New("export artifact not found")

// Vault persists artifacts in a local BadgerDB directory.
type Vault struct {
	db *badger.DB
}

// OpenVault opens (or creates) the artifact store at dir.
func OpenVault(dir string) (*Vault, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open export vault: %w", err)
	}
	return &Vault{db: db}, nil
}

// OpenMemoryVault is a throwaway vault for tests and ephemeral servers.
func OpenMemoryVault() (*Vault, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open export vault: %w", err)
	}
	return &Vault{db: db}, nil
}

func (v *Vault) Close() error {
	return v.db.Close()
}

// Put stores a and returns its handle.
func (v *Vault) Put(a Artifact) (string, error) {
	handle := ulid.Make().String()
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("failed to encode artifact: %w", err)
	}
	err = v.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+handle), data)
	})
	if err != nil {
		return "", fmt.Errorf("failed to store artifact: %w", err)
	}
	return handle, nil
}

func (v *Vault) Get(handle string) (Artifact, error) {
	var a Artifact
	err := v.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + handle))
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &a)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Artifact{}, fmt.Errorf("%s: %w", handle, ErrArtifactNotFound)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to read artifact: %w", err)
	}
	return a, nil
}

// List returns stored handles, oldest first (ULIDs sort by creation time).
func (v *Vault) List() ([]string, error) {
	var handles []string
	err := v.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			handles = append(handles, strings.TrimPrefix(string(it.Item().KeyCopy(nil)), keyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	sort.Strings(handles)
	return handles, nil
}

func (v *Vault) Delete(handle string) error {
	err := v.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + handle))
	})
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

// VaultExporter renders records and stores the result, returning a handle.
// It satisfies the bulk dispatcher's exporter contract.
type VaultExporter struct {
	Exporter *Exporter
	Vault    *Vault
}

func NewVaultExporter(v *Vault) *VaultExporter {
	return &VaultExporter{Exporter: &Exporter{}, Vault: v}
}

func (ve *VaultExporter) ExportRecords(ctx context.Context, records []models.Record, format string) (string, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return "", err
	}
	a, err := ve.Exporter.Export(ctx, records, f)
	if err != nil {
		return "", err
	}
	return ve.Vault.Put(a)
}
