package config

import (
	"path/filepath"
	"strings"
)

// Paths holds the fully resolved on-disk layout for one feed.
type Paths struct {
	// LogDir is base/domain/category[/type], where the output, error and
	// heartbeat files live.
	LogDir        string
	OutputPattern string
	ErrorPattern  string
	Position      string
	Lock          string
	Heartbeat     string
	Archive       string
}

// ResolvePaths computes the feed's on-disk layout. name is the feed's key in
// the feeds map; it substitutes for "{feed}" in state-file templates and
// seeds the defaults.
func (c *Config) ResolvePaths(name string, f Feed) Paths {
	base := f.LogDirectory
	if !filepath.IsAbs(base) {
		base = filepath.Join(c.BaseDir, base)
	}

	domain := f.Domain
	if domain == "" {
		domain = "global"
	}

	// Authentication feeds have no meaningful type subdirectory, and a
	// quarantine/quarantine path would be redundant.
	var logDir string
	switch {
	case f.Category == "authentication":
		logDir = filepath.Join(base, domain, f.Category)
	case f.Category == "quarantine" && f.Type == "quarantine":
		logDir = filepath.Join(base, domain, f.Category)
	default:
		logDir = filepath.Join(base, domain, f.Category, f.Type)
	}

	stateDir := c.StateDir
	if stateDir == "" {
		stateDir = filepath.Join(c.BaseDir, "state")
	}

	displayType := f.Type
	if f.Category == "authentication" {
		displayType = "auth"
	}
	output := strings.NewReplacer("{domain}", domain, "{type}", displayType).Replace(f.LogFileName)

	pos := expandStateFile(f.PositionFile, name, filepath.Join(stateDir, "positions", name+".pos"), c.BaseDir)
	lock := expandStateFile(f.LockFile, name, filepath.Join(stateDir, "locks", name+".lock"), c.BaseDir)

	hb := f.HeartbeatFile
	if hb == "" {
		hb = name + "_heartbeat.json"
	}
	hb = strings.ReplaceAll(hb, "{feed}", name)
	if !filepath.IsAbs(hb) {
		hb = filepath.Join(logDir, hb)
	}

	archive := f.ArchiveDirectory
	if archive != "" && !filepath.IsAbs(archive) {
		archive = filepath.Join(c.BaseDir, archive)
	}

	return Paths{
		LogDir:        logDir,
		OutputPattern: output,
		ErrorPattern:  f.ErrorFileName,
		Position:      pos,
		Lock:          lock,
		Heartbeat:     hb,
		Archive:       archive,
	}
}

func expandStateFile(tmpl, name, fallback, baseDir string) string {
	if tmpl == "" {
		return fallback
	}
	p := strings.ReplaceAll(tmpl, "{feed}", name)
	if !filepath.IsAbs(p) {
		p = filepath.Join(baseDir, p)
	}
	return p
}
