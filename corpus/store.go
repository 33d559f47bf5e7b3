// Package corpus implements the on-disk test-case store, a bbolt
// database of compiled IR programs and the metadata attached to each,
// grounded on the teacher's node/store/db.go key-value layout.
package corpus

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"fuzzamoto.dev/fuzzamoto/ir"
	"fuzzamoto.dev/fuzzamoto/ir/compiler"
)

var (
	bucketPrograms = []byte("programs")
	bucketMetadata = []byte("metadata")
)

// Hash identifies a stored program by the SHA-256 of its compiled bytes.
type Hash [32]byte

func (h Hash) String() string {
	return fmt.Sprintf("%x", h[:])
}

// Entry is a program paired with the metadata it was generated or
// discovered under.
type Entry struct {
	Hash     Hash
	Program  ir.Program
	Network  string
	Metadata ir.PerTestcaseMetadata
}

// Store is a single bbolt database under <datadir>/corpus/corpus.db.
type Store struct {
	db *bolt.DB

	// MaxCompiledSizeBytes overrides compiler.DefaultMaxCompiledSize
	// for every Put when non-zero, so a configured size cap (see
	// internal/config.Config.MaxCompiledSizeBytes) actually reaches the
	// compiler instead of every Store silently using the built-in
	// default.
	MaxCompiledSizeBytes int
}

// Open creates or opens the corpus store rooted at datadir.
func Open(datadir string) (*Store, error) {
	if err := os.MkdirAll(datadir, 0o755); err != nil {
		return nil, fmt.Errorf("corpus: create %s: %w", datadir, err)
	}
	path := filepath.Join(datadir, "corpus.db")
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("corpus: open bbolt: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketPrograms, bucketMetadata} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("corpus: create bucket %s: %w", string(b), err)
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put compiles p, stores its compiled bytes and metadata, and returns
// the hash it is keyed under. Re-inserting a program whose compiled
// bytes already exist is a no-op (the metadata is left unmodified).
func (s *Store) Put(p ir.Program, meta ir.PerTestcaseMetadata) (Hash, error) {
	c := &compiler.Compiler{MaxCompiledSize: s.MaxCompiledSizeBytes}
	compiled, err := c.Compile(p)
	if err != nil {
		return Hash{}, err
	}
	h := Hash(sha256.Sum256(compiled))

	err = s.db.Update(func(tx *bolt.Tx) error {
		programs := tx.Bucket(bucketPrograms)
		if programs.Get(h[:]) != nil {
			return nil
		}
		if err := programs.Put(h[:], compiled); err != nil {
			return err
		}
		metaBytes, err := cbor.Marshal(meta)
		if err != nil {
			return fmt.Errorf("corpus: marshal metadata: %w", err)
		}
		return tx.Bucket(bucketMetadata).Put(h[:], metaBytes)
	})
	if err != nil {
		return Hash{}, err
	}
	return h, nil
}

// Get loads the program and metadata stored under h.
func (s *Store) Get(h Hash) (Entry, bool, error) {
	var entry Entry
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		compiled := tx.Bucket(bucketPrograms).Get(h[:])
		if compiled == nil {
			return nil
		}
		p, network, err := compiler.Decompile(compiled)
		if err != nil {
			return fmt.Errorf("corpus: decompile %s: %w", h, err)
		}
		entry = Entry{Hash: h, Program: p, Network: network}

		if metaBytes := tx.Bucket(bucketMetadata).Get(h[:]); metaBytes != nil {
			var meta ir.PerTestcaseMetadata
			if err := cbor.Unmarshal(metaBytes, &meta); err != nil {
				return fmt.Errorf("corpus: unmarshal metadata %s: %w", h, err)
			}
			entry.Metadata = meta
		}
		found = true
		return nil
	})
	if err != nil {
		return Entry{}, false, err
	}
	return entry, found, nil
}

// Delete removes a stored program and its metadata.
func (s *Store) Delete(h Hash) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketPrograms).Delete(h[:]); err != nil {
			return err
		}
		return tx.Bucket(bucketMetadata).Delete(h[:])
	})
}

// All returns every stored hash in key order, for deterministic
// minimization and listing runs.
func (s *Store) All() ([]Hash, error) {
	var out []Hash
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPrograms).ForEach(func(k, _ []byte) error {
			var h Hash
			copy(h[:], k)
			out = append(out, h)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i][:]) < string(out[j][:])
	})
	return out, nil
}
