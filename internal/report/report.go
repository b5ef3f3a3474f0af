// Package report aggregates ranked candidates into a CSV score table.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"resumerank/internal/types"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fixed columns around the per-criterion columns
const (
	ColumnCandidateName = "Candidate Name"
	ColumnTotalScore    = "Total Score"
)

// maxCriterionScore is the top of the 0-5 scale used for the "sum/max" total
const maxCriterionScore = 5

// Table is the rendered report: one row per candidate, in input order
type Table struct {
	Header []string
	Rows   [][]string
}

// Label turns a criterion key into a column label, e.g. "soft_skills" -> "Soft Skills".
// Every run of letters is title-cased on its own, so a letter after a digit
// or punctuation starts a new word: "3d_modeling" -> "3D Modeling".
func Label(key string) string {
	// a Caser is stateful, so each call gets its own
	caser := cases.Title(language.Und)
	spaced := strings.ReplaceAll(key, "_", " ")

	var sb strings.Builder
	start := -1
	for i, r := range spaced {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			sb.WriteString(caser.String(spaced[start:i]))
			start = -1
		}
		sb.WriteRune(r)
	}
	if start >= 0 {
		sb.WriteString(caser.String(spaced[start:]))
	}
	return sb.String()
}

// Build lays out candidates against the sorted union of their criterion keys.
// Missing cells are 0. The total is "sum/max" with max = 5 x the
// candidate's own number of scored criteria.
func Build(candidates []types.RankedCandidate) Table {
	keys := criteriaUnion(candidates)

	header := make([]string, 0, len(keys)+2)
	header = append(header, ColumnCandidateName)
	for _, key := range keys {
		header = append(header, Label(key))
	}
	header = append(header, ColumnTotalScore)

	rows := make([][]string, 0, len(candidates))
	for _, candidate := range candidates {
		cells := make(map[string]int, len(candidate.Scores))
		total := 0
		for _, s := range candidate.Scores {
			cells[s.Criteria] = s.Score
			total += s.Score
		}

		row := make([]string, 0, len(header))
		row = append(row, candidate.CandidateName)
		for _, key := range keys {
			row = append(row, strconv.Itoa(cells[key]))
		}
		row = append(row, fmt.Sprintf("%d/%d", total, maxCriterionScore*len(candidate.Scores)))
		rows = append(rows, row)
	}

	return Table{Header: header, Rows: rows}
}

// criteriaUnion returns every criterion key seen, sorted by raw key
func criteriaUnion(candidates []types.RankedCandidate) []string {
	seen := make(map[string]struct{})
	for _, candidate := range candidates {
		for _, s := range candidate.Scores {
			seen[s.Criteria] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// WriteCSV writes the header and rows to w
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}
