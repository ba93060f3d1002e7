// Package config provides configuration management for mediadl.
//
// Settings are stored as a JSON file and loaded over defaults, so a partial
// file only overrides the keys it names:
//
//	settings, err := config.Load("/etc/mediadl/config.json")
//	if err != nil {
//	    // a missing file is not an error; defaults are returned
//	}
//
// Human-friendly sizes are accepted for maxFileSize ("50MB", "1.5GB"):
//
//	limit, err := config.ParseSize(settings.MaxFileSize)
package config
