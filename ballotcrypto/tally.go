// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ballotcrypto

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TallyEntry is the running count for one option plus its chained hash.
// The hash is advisory integrity metadata, not a signature.
type TallyEntry struct {
	Count int64  `json:"count"`
	Hash  string `json:"hash"`
}

// Tally maps option id (decimal string, as stored in JSON) to its entry.
type Tally map[string]TallyEntry

// ParseTally decodes the stored tally. Empty input is an empty tally.
func ParseTally(data []byte) (Tally, error) {
	t := Tally{}
	if len(data) == 0 {
		return t, nil
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse tally: %w", err)
	}
	if t == nil {
		t = Tally{}
	}
	return t, nil
}

// Encode returns the JSON form written to the store.
func (t Tally) Encode() (string, error) {
	if t == nil {
		return "{}", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("failed to encode tally: %w", err)
	}
	return string(b), nil
}

// Total sums the counts of all options.
func (t Tally) Total() int64 {
	var total int64
	for _, e := range t {
		total += e.Count
	}
	return total
}

// UpdateTally returns a copy of current with optionID incremented by one and
// its hash chained as sha256(prevHash:optionID:unixMillis). current is not modified.
func UpdateTally(current Tally, optionID int64, now time.Time) Tally {
	next := make(Tally, len(current)+1)
	for k, v := range current {
		next[k] = v
	}

	key := strconv.FormatInt(optionID, 10)
	entry := next[key]
	entry.Count++
	entry.Hash = chainHash(entry.Hash, key, now)
	next[key] = entry

	return next
}

func chainHash(prev, optionKey string, now time.Time) string {
	sum := sha256.Sum256([]byte(prev + ":" + optionKey + ":" + strconv.FormatInt(now.UnixMilli(), 10)))
	return hex.EncodeToString(sum[:])
}

// CountsFromTally projects the tally onto option id -> count, dropping hashes.
// Keys that are not option ids are skipped.
func CountsFromTally(t Tally) map[int64]int64 {
	counts := make(map[int64]int64, len(t))
	for k, e := range t {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		counts[id] = e.Count
	}
	return counts
}
