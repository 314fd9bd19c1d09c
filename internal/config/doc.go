// Package config provides loading and environment overlay for harvester
// configuration. It exposes a Default() baseline, YAML file loading with
// per-feed defaulting and validation, and FromEnv overlays.
//
// A configuration names one or more feeds, each an independent retrieval
// stream with its own credentials, endpoint, windowing parameters and output
// layout:
//
//	cfg, err := config.Load("uzmanposta.yaml")
//	if err != nil { ... }
//	config.FromEnv(&cfg)
//	paths := cfg.ResolvePaths("corp-mail", cfg.Feeds["corp-mail"])
package config
