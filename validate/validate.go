// Package validate checks difficulty preset JSON files before a server
// loads them. It reports:
//   - JSON structure and unknown fields
//   - File names the preset manager will accept
//   - Board bounds and mine count
//   - Density warnings for boards that play badly
//   - Presets that shadow a built-in one
package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/wricardo/mcp-training/minesweeper/game/config"
	"github.com/wricardo/mcp-training/minesweeper/game/engine"
	"github.com/wricardo/mcp-training/minesweeper/game/service"
)

const (
	// Below this share of mines most games end after a couple of reveals
	SparseDensity = 0.08
	// Above this share flood fills rarely open more than the first cell
	DenseDensity = 0.30
)

var fileName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}\.json$`)

// ValidationResult captures the outcome of validating a single file.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Preset   *service.Preset
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// File loads and validates a single preset file
func File(filePath string) ValidationResult {
	result := ValidationResult{
		File:     filepath.Base(filePath),
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
	}

	if !fileName.MatchString(result.File) {
		result.fail("File name must be lowercase letters, digits, '-' or '_' with a .json extension")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var preset service.Preset
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&preset); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}
	result.Preset = &preset

	name := strings.TrimSuffix(result.File, ".json")
	if preset.Name != "" && !strings.EqualFold(preset.Name, name) {
		result.warn("Name %q is ignored; the preset is served as %q", preset.Name, name)
	}
	preset.Name = name

	if err := config.ValidatePreset(&preset); err != nil {
		result.fail("%v", err)
		return result
	}

	density := engine.MineDensity(preset.Rows, preset.Cols, preset.Mines)
	switch {
	case density < SparseDensity:
		result.warn("Mine density %.1f%% is very low; games are usually won in a few reveals", density*100)
	case density > DenseDensity:
		result.warn("Mine density %.1f%% is very high; most boards need guessing", density*100)
	}

	if builtin, ok := config.Builtin(name); ok {
		result.warn("Overrides built-in preset %q (%dx%d, %d mines)", name, builtin.Rows, builtin.Cols, builtin.Mines)
	}

	return result
}

// Dir validates every *.json file in dir, sorted by file name
func Dir(dir string) ([]ValidationResult, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("finding preset files: %w", err)
	}
	sort.Strings(files)

	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		results = append(results, File(file))
	}
	return results, nil
}

// Report prints a concise report and returns whether every file is valid
func Report(w io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			p := result.Preset
			fmt.Fprintf(w, "✅ VALID  %s: %dx%d, %d mines\n", p.Label, p.Rows, p.Cols, p.Mines)
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
		for _, warning := range result.Warnings {
			fmt.Fprintln(w, "  ⚠️  "+warning)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	switch {
	case len(results) == 0:
		fmt.Fprintln(w, "No preset files found")
	case allValid:
		fmt.Fprintln(w, "✅ All presets are valid!")
	default:
		fmt.Fprintln(w, "❌ Some presets have errors")
	}
	return allValid
}
