package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/mcp-training/minesweeper/game/config"
	"github.com/wricardo/mcp-training/minesweeper/game/service"
)

func TestAnalyzePreset(t *testing.T) {
	preset, ok := config.Builtin("easy")
	if !ok {
		t.Fatal("Expected built-in easy preset")
	}

	a, err := analyzePreset(&preset, 50, 7)
	if err != nil {
		t.Fatalf("Failed to analyze: %v", err)
	}

	if a.Games != 50 || a.SafeCells != 90 {
		t.Errorf("Expected 50 games on 90 safe cells, got %d on %d", a.Games, a.SafeCells)
	}
	if a.MinOpened < 1 {
		t.Errorf("The first reveal always opens at least one cell, got min %d", a.MinOpened)
	}
	if a.MaxOpened > a.SafeCells || float64(a.MinOpened) > a.AvgOpened || a.AvgOpened > float64(a.MaxOpened) {
		t.Errorf("Inconsistent opening stats: min %d avg %.2f max %d", a.MinOpened, a.AvgOpened, a.MaxOpened)
	}
	if a.Density != 0.1 {
		t.Errorf("Expected density 0.1, got %v", a.Density)
	}
}

func TestAnalyzePreset_Deterministic(t *testing.T) {
	preset, _ := config.Builtin("medium")

	first, err := analyzePreset(&preset, 20, 42)
	if err != nil {
		t.Fatalf("Failed to analyze: %v", err)
	}
	second, err := analyzePreset(&preset, 20, 42)
	if err != nil {
		t.Fatalf("Failed to analyze: %v", err)
	}
	if first != second {
		t.Errorf("Expected identical results for the same seed:\n%+v\n%+v", first, second)
	}
}

func TestAnalyzePreset_OneMine(t *testing.T) {
	// A single mine not touching the center lets the first flood open every safe cell
	preset := &service.Preset{Name: "one", Label: "One", Rows: 5, Cols: 5, Mines: 1}

	a, err := analyzePreset(preset, 30, 1)
	if err != nil {
		t.Fatalf("Failed to analyze: %v", err)
	}
	if a.Immediate == 0 {
		t.Error("Expected some first-click wins with a single mine")
	}
}

func TestAnalyzePreset_InvalidGames(t *testing.T) {
	preset, _ := config.Builtin("hard")
	if _, err := analyzePreset(&preset, 0, 1); err == nil {
		t.Error("Expected error for zero games")
	}
}

func TestAnalyzeAllAndPrint(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tiny.json"),
		[]byte(`{"label": "Tiny", "rows": 4, "cols": 4, "mines": 3}`), 0644); err != nil {
		t.Fatalf("Failed to write preset: %v", err)
	}

	manager, err := config.NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	results, err := analyzeAll(manager, 10, 3)
	if err != nil {
		t.Fatalf("Failed to analyze all: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("Expected built-ins plus tiny, got %d results", len(results))
	}
	if results[0].Preset != "tiny" {
		t.Errorf("Expected smallest board first, got %s", results[0].Preset)
	}

	var out bytes.Buffer
	printAnalyses(&out, results)
	for _, label := range []string{"Tiny (tiny)", "Easy (easy)", "Medium (medium)", "Hard (hard)"} {
		if !strings.Contains(out.String(), label) {
			t.Errorf("Expected %q in output:\n%s", label, out.String())
		}
	}
}
