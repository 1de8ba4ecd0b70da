// Package config manages the difficulty presets offered to players.
//
// Three presets are built in:
//   - easy: 10x10 board with 10 mines
//   - medium: 12x12 board with 20 mines
//   - hard: 14x14 board with 25 mines
//
// Additional presets are JSON files in a preset directory, one per file,
// named after the preset:
//
//	{"label": "Wide", "rows": 4, "cols": 30, "mines": 15}
//
// A file named like a built-in replaces it. Rows and cols must lie in
// [MinSide, MaxSide] and the mine count must leave at least one safe cell.
//
// Usage:
//
//	manager, err := config.NewManager("presets")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	preset, err := manager.LoadConfig("medium")
//	presets, err := manager.ListConfigs()
package config
