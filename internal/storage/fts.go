package storage

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/Benny93/reactome-sbml/internal/graph"
)

// Key prefix for the name index: tok:token:dbID -> frequency
const prefixToken = "tok:"

var (
	separatorRe = regexp.MustCompile(`[\s_\.\-\[\]\(\),:;/+]+`)
	camelRe     = regexp.MustCompile(`([a-z])([A-Z])`)
)

// tokenize splits a display name into searchable lowercase tokens.
// Handles bracketed compartments ("ATP [cytosol]"), hyphenated gene names
// and camelCase.
func tokenize(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tokens := make(map[string]bool)

	// Full text as one token so whole stable ids match exactly
	tokens[strings.ToLower(strings.TrimSpace(text))] = true

	for _, part := range separatorRe.Split(text, -1) {
		if part != "" {
			tokens[strings.ToLower(part)] = true
		}
	}

	// "PhosphoInositide" -> "phospho", "inositide"
	for _, part := range separatorRe.Split(camelRe.ReplaceAllString(text, "$1 $2"), -1) {
		if part != "" {
			tokens[strings.ToLower(part)] = true
		}
	}

	result := make([]string, 0, len(tokens))
	for token := range tokens {
		result = append(result, token)
	}
	sort.Strings(result)
	return result
}

// indexInstanceName writes the name tokens of inst into a write batch.
func indexInstanceName(wb *badger.WriteBatch, inst *graph.Instance) error {
	tokenFreq := make(map[string]int)
	for _, token := range tokenize(inst.DisplayName) {
		tokenFreq[token]++
	}
	for _, token := range tokenize(inst.StID) {
		tokenFreq[token]++
	}

	for token, freq := range tokenFreq {
		key := fmt.Sprintf("%s%s:%d", prefixToken, token, inst.DBID)
		if err := wb.Set([]byte(key), []byte(strconv.Itoa(freq))); err != nil {
			return fmt.Errorf("setting token index: %w", err)
		}
	}
	return nil
}

// searchNames scores instances by summed token frequency.
func searchNames(txn *badger.Txn, query string) (map[int64]float64, error) {
	scores := make(map[int64]float64)

	for _, token := range tokenize(query) {
		prefix := prefixToken + token + ":"
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			dbID, err := strconv.ParseInt(strings.TrimPrefix(string(item.Key()), prefix), 10, 64)
			if err != nil {
				continue
			}

			var freq int
			_ = item.Value(func(val []byte) error {
				freq, _ = strconv.Atoi(string(val))
				return nil
			})
			scores[dbID] += float64(freq)
		}
		it.Close()
	}

	return scores, nil
}

// rankResults sorts by score descending, then DB_ID, and applies limit.
func rankResults(results []SearchResult, limit int) []SearchResult {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DBID < results[j].DBID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
