package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/wricardo/mcp-training/dice421/game/config"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// holds the problems that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func validateDir(dir string) ([]ValidationResult, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("finding preset files: %w", err)
	}
	sort.Strings(files)

	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		results = append(results, validatePreset(file))
	}
	return results, nil
}

func validatePreset(filePath string) ValidationResult {
	result := ValidationResult{File: filepath.Base(filePath)}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var preset config.Preset
	if err := json.Unmarshal(data, &preset); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if err := preset.Validate(); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result.Valid = true
	result.Errors = append(result.Errors,
		fmt.Sprintf("✓ %s: %d seats (limit %d)", preset.Name, preset.MaxPlayers, preset.MaxPlayersLimit),
		fmt.Sprintf("✓ Stock: %d tokens (limit %d)", preset.TotalTokens, preset.MaxTokensLimit),
		fmt.Sprintf("✓ Bot pacing: %dms / %dms", preset.Bot.Phase1DelayMS, preset.Bot.Phase2DelayMS),
	)
	return result
}
