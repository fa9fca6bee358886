// Package cache keys agent results by (dataset sample, query) and stores them
// for the life of the process.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"

	"dataagent/internal/dataset"
)

// SampleRows is how many leading rows feed the fingerprint.
const SampleRows = 1000

// Fingerprint identifies a (dataset, query) pair. It hashes the column names
// and the first SampleRows rows, then the query verbatim.
func Fingerprint(ds *dataset.Dataset, query string) string {
	return FingerprintN(ds, query, SampleRows)
}

// FingerprintN is Fingerprint with an explicit sample size. Non-positive
// sizes fall back to SampleRows.
func FingerprintN(ds *dataset.Dataset, query string, sampleRows int) string {
	if sampleRows <= 0 {
		sampleRows = SampleRows
	}
	h := sha256.New()
	if ds != nil {
		writeInt(h, len(ds.Columns))
		for _, c := range ds.Columns {
			writeString(h, c)
		}
		sample := ds.Sample(sampleRows)
		writeInt(h, len(sample))
		for _, row := range sample {
			writeInt(h, len(row))
			for _, v := range row {
				writeValue(h, v)
			}
		}
	} else {
		writeInt(h, 0)
		writeInt(h, 0)
	}
	writeString(h, query)
	return hex.EncodeToString(h.Sum(nil))
}

// Each field is length-prefixed so ("ab","c") and ("a","bc") never collide.
func writeString(h hash.Hash, s string) {
	writeInt(h, len(s))
	h.Write([]byte(s))
}

func writeInt(h hash.Hash, n int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	h.Write(buf[:])
}

func writeValue(h hash.Hash, v dataset.Value) {
	if v.IsNum {
		h.Write([]byte{'n'})
	} else {
		h.Write([]byte{'s'})
	}
	writeString(h, v.String())
}
