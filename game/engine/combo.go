package engine

import (
	"sort"
	"strconv"
	"strings"
)

// orderedCombos lists every authored combo key, strongest first.
var orderedCombos = []string{
	"421", "111", "116", "666", "115", "555", "114", "444", "113", "333", "112", "222",
	"654", "543", "432", "321",
	"665", "664", "663", "662", "661", "655", "653", "652", "651",
	"644", "643", "642", "641", "633", "632", "631", "622", "621",
	"554", "553", "552", "551", "544", "542", "541", "533", "532", "531", "522", "521",
	"443", "442", "441", "433", "431", "422", "332", "331", "322", "221",
}

// explicitScores holds the token value of the combos worth more than one token.
var explicitScores = map[string]int{
	"421": 8, "111": 7,
	"116": 6, "666": 6,
	"115": 5, "555": 5,
	"114": 4, "444": 4,
	"113": 3, "333": 3,
	"112": 2, "222": 2, "654": 2, "543": 2, "432": 2, "321": 2,
}

var (
	comboPower = make(map[string]int, len(orderedCombos))
	comboScore = make(map[string]int, len(orderedCombos))
	permToKey  = make(map[string]string, len(orderedCombos)*6)
)

func init() {
	for i, key := range orderedCombos {
		comboPower[key] = len(orderedCombos) - i
		score, ok := explicitScores[key]
		if !ok {
			score = 1
		}
		comboScore[key] = score
		for _, p := range permutations(key) {
			permToKey[p] = key
		}
	}
}

// ComboInfo describes one entry of the ranking table.
type ComboInfo struct {
	Key   string `json:"key"`
	Power int    `json:"power"`
	Score int    `json:"score"`
	// Ways is the number of ordered 3-die outcomes (out of 216) that classify to Key.
	Ways int `json:"ways"`
}

// Classify returns the canonical combo key of a roll.
func Classify(d Dice) string {
	literal := d.String()
	if key, ok := permToKey[literal]; ok {
		return key
	}
	sorted := []int{d[0], d[1], d[2]}
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	var b strings.Builder
	for _, v := range sorted {
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}

// Power returns the rank of a combo key. Higher is stronger; unknown keys rank 0.
func Power(key string) int {
	return comboPower[key]
}

// Score returns the token value of a combo key, 0 for unknown keys.
func Score(key string) int {
	return comboScore[key]
}

// ComboCount returns the number of authored combo keys.
func ComboCount() int {
	return len(orderedCombos)
}

// Combos returns the ranking table, strongest first.
func Combos() []ComboInfo {
	ways := make(map[string]int, len(orderedCombos))
	for a := 1; a <= 6; a++ {
		for b := 1; b <= 6; b++ {
			for c := 1; c <= 6; c++ {
				ways[Classify(Dice{a, b, c})]++
			}
		}
	}

	result := make([]ComboInfo, 0, len(orderedCombos))
	for _, key := range orderedCombos {
		result = append(result, ComboInfo{
			Key:   key,
			Power: comboPower[key],
			Score: comboScore[key],
			Ways:  ways[key],
		})
	}
	return result
}

// permutations returns every ordering of the characters of s.
func permutations(s string) []string {
	if len(s) <= 1 {
		return []string{s}
	}
	seen := make(map[string]bool)
	var out []string
	for i := 0; i < len(s); i++ {
		rest := s[:i] + s[i+1:]
		for _, p := range permutations(rest) {
			candidate := string(s[i]) + p
			if !seen[candidate] {
				seen[candidate] = true
				out = append(out, candidate)
			}
		}
	}
	return out
}
