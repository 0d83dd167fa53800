// Package config manages the game presets of the 421 server.
//
// A preset is a JSON file in the configs directory. It holds the room
// defaults offered to hosts (player count, stock size), the limits a host
// may not exceed, and the bot settings used while a match runs:
//
//	{
//	  "name": "Classic",
//	  "description": "Standard table",
//	  "max_players": 6,
//	  "total_tokens": 21,
//	  "max_players_limit": 8,
//	  "max_tokens_limit": 99,
//	  "bot": {
//	    "phase1_delay_ms": 1000,
//	    "phase2_delay_ms": 850,
//	    "names": ["RobotX", "DiceBot"],
//	    "avatars": ["🤖", "🦾"]
//	  }
//	}
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	preset, err := manager.LoadConfig("blitz")
//	defaultPreset := manager.GetDefault()
//	presets, err := manager.ListConfigs()
//
// Presets are cached after the first load. RefreshCache drops the cache and
// reloads the default preset from disk.
package config
