package log

import "fmt"

// Config declares a logger in configuration form.
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// ApplyConfig builds a Logger from a declarative Config. Format is "text" or
// "json" (default text). When File is set, entries go to the file in addition
// to the console.
func ApplyConfig(cfg *Config) (Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var formatter Formatter
	switch cfg.Format {
	case "", "text":
		formatter = &TextFormatter{}
	case "json":
		formatter = &JSONFormatter{}
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	opts := []LoggerOption{
		WithLevel(level),
		WithFormatter(formatter),
		WithOutput(NewConsoleOutput()),
	}
	if cfg.File != "" {
		opts = append(opts, WithOutput(NewFileOutput(cfg.File)))
	}
	return NewLogger(opts...), nil
}
