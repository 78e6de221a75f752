// Package config provides match configuration management for the naval
// battle game.
//
// The config package handles:
//   - Loading match configurations from JSON files
//   - Configuration validation through engine.ValidateMatchConfig
//   - Default configuration management
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Match configurations are stored as JSON files in the configs directory.
// Each configuration defines:
//   - The opponent's name and attack strategy (random, hunt or density)
//   - The opponent's think delay range and the scheduler poll interval
//   - Retry and placement budgets
//   - Messages shown for hits, misses, sinkings and the match result
//
// Available Configurations:
//   - classic: random opponent with a relaxed pace
//   - quick: random opponent that answers almost at once
//   - hunter: hunt-and-target opponent
//   - tactician: probability-density opponent
//
// Usage:
//
//	manager, err := config.NewManager("configs", logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	matchConfig, err := manager.LoadConfig("hunter")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// When no valid file is present the manager falls back to
// engine.DefaultMatchConfig.
package config
