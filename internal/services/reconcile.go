package services

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/smartfit/smartfit-backend/internal/ai"
)

// matchAnalysisToFile pairs each uploaded file with the analysis describing it.
// A flat list with one entry per file is matched by position. Otherwise files are
// matched by filename, strongest matches first, and for flat lists a file left
// over takes the entry at its own position when that entry names no file.
// An analysis is used at most once and unmatched files get an empty analysis.
func matchAnalysisToFile(items ai.ClothingItems, files []UploadedFile) []ai.ItemAnalysis {
	matched := make([]ai.ItemAnalysis, len(files))
	analyses := items.Flatten()

	if items.Shape == ai.ShapeFlatList && len(analyses) == len(files) {
		copy(matched, analyses)
		return matched
	}

	type pair struct {
		file, analysis, score int
	}
	var pairs []pair
	for i, f := range files {
		for j, a := range analyses {
			if score := filenameScore(f.OriginalName, a.Filename); score > 0 {
				pairs = append(pairs, pair{file: i, analysis: j, score: score})
			}
		}
	}
	// Pairs are built file-major, so equal scores keep file then analysis order.
	sort.SliceStable(pairs, func(a, b int) bool {
		return pairs[a].score > pairs[b].score
	})

	used := make([]bool, len(analyses))
	found := make([]bool, len(files))
	for _, p := range pairs {
		if found[p.file] || used[p.analysis] {
			continue
		}
		matched[p.file] = analyses[p.analysis]
		found[p.file] = true
		used[p.analysis] = true
	}

	if items.Shape == ai.ShapeFlatList {
		for i := range files {
			if found[i] || i >= len(analyses) || used[i] || analyses[i].Filename != "" {
				continue
			}
			matched[i] = analyses[i]
			used[i] = true
		}
	}

	return matched
}

// filenameScore rates how well a reported filename refers to the original upload:
// 3 for an exact match, 2 when the name or its stem follows a separator such as a
// timestamp prefix, 1 when the full name appears anywhere else, 0 for no match.
// A bare stem never counts as a substring since short stems occur inside other names.
func filenameScore(original, reported string) int {
	reported = strings.ToLower(strings.TrimSpace(reported))
	if reported == "" {
		return 0
	}

	names, stems := nameCandidates(original)
	best := 0
	for _, candidate := range append(names, stems...) {
		if reported == candidate {
			return 3
		}
		if strings.HasSuffix(reported, "_"+candidate) || strings.HasSuffix(reported, "-"+candidate) ||
			strings.HasSuffix(reported, "/"+candidate) {
			best = max(best, 2)
		}
	}
	if best > 0 {
		return best
	}
	for _, name := range names {
		if strings.Contains(reported, name) {
			return 1
		}
	}
	return 0
}

// nameCandidates lists the spellings under which a service may echo a filename back:
// the full name with its extension, and the stem without it.
func nameCandidates(original string) (names, stems []string) {
	name := strings.ToLower(strings.TrimSpace(filepath.Base(original)))
	if name == "" || name == "." || name == "/" {
		return nil, nil
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return distinct(name, strings.ReplaceAll(name, " ", "_")),
		distinct(stem, strings.ReplaceAll(stem, " ", "_"))
}

func distinct(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" && (len(out) == 0 || out[len(out)-1] != v) {
			out = append(out, v)
		}
	}
	return out
}
