package main

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
)

// catalogEntry is one vocabulary record. The first option is always the
// correct meaning; the rest are decoys.
type catalogEntry struct {
	Word       string   `json:"word"`
	Phonetic   string   `json:"phonetic,omitempty"`
	Difficulty int      `json:"difficulty"`
	Options    []string `json:"options"`
}

// catalog is the read-only word collection a match draws questions from.
type catalog struct {
	entries []catalogEntry
}

// roundDescriptor is one round's question: the word, four shuffled
// options, and which of them is correct. Discarded when the round ends.
type roundDescriptor struct {
	word    string
	options []string
	correct string
}

// loadCatalog reads a vocabulary file and keeps only entries above the
// minimum difficulty that carry enough options to build a question.
func loadCatalog(path string, minDifficulty int) (*catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}

	var all []catalogEntry
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary %s: %w", path, err)
	}

	eligible := make([]catalogEntry, 0, len(all))
	for _, entry := range all {
		if entry.Difficulty > minDifficulty && entry.Word != "" && len(entry.Options) >= 4 {
			eligible = append(eligible, entry)
		}
	}

	if len(eligible) == 0 {
		return nil, fmt.Errorf("no usable words in %s above difficulty %d", path, minDifficulty)
	}

	return &catalog{entries: eligible}, nil
}

// draw picks a random eligible word and builds its four-option question:
// three shuffled decoys plus the correct meaning, shuffled together.
func (c *catalog) draw() roundDescriptor {
	entry := c.entries[randomIndex(len(c.entries))]
	correct := entry.Options[0]

	decoys := make([]string, len(entry.Options)-1)
	copy(decoys, entry.Options[1:])
	shuffleStrings(decoys)

	options := append([]string{correct}, decoys[:3]...)
	shuffleStrings(options)

	return roundDescriptor{
		word:    entry.Word,
		options: options,
		correct: correct,
	}
}

func (c *catalog) size() int {
	return len(c.entries)
}

func randomIndex(n int) int {
	if n <= 1 {
		return 0
	}
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	return int(binary.BigEndian.Uint32(b[:]) % uint32(n))
}

// Fisher-Yates shuffle using crypto/rand
func shuffleStrings(s []string) {
	for i := len(s) - 1; i > 0; i-- {
		j := randomIndex(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
