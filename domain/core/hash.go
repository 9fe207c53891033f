package core

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 hex characters, enough for log lines
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Domain-specific hash types
type (
	ConfigHash  Hash
	DatasetHash Hash
	OutputHash  Hash
)

func (h ConfigHash) String() string  { return Hash(h).String() }
func (h DatasetHash) String() string { return Hash(h).String() }
func (h OutputHash) String() string  { return Hash(h).String() }

// ComputeConfigHash hashes key/value settings independent of map order
func ComputeConfigHash(settings map[string]string) ConfigHash {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data strings.Builder
	for _, key := range keys {
		data.WriteString(key)
		data.WriteByte('=')
		data.WriteString(settings[key])
		data.WriteByte('\n')
	}
	return ConfigHash(NewHash([]byte(data.String())))
}

// ComputeDatasetHash hashes a dataset file's content
func ComputeDatasetHash(r io.Reader) (DatasetHash, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return DatasetHash(hex.EncodeToString(h.Sum(nil))), nil
}

// ComputeOutputHash hashes rendered output rows in order
func ComputeOutputHash(rows []string) OutputHash {
	h := sha256.New()
	for _, row := range rows {
		h.Write([]byte(row))
		h.Write([]byte{'\n'})
	}
	return OutputHash(hex.EncodeToString(h.Sum(nil)))
}
