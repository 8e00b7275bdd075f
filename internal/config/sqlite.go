package config

import (
	"os"
	"strconv"
	"strings"
)

// SQLiteConfig holds the per-connection settings of the blog database. Every
// field travels in the DSN so the driver applies it to each pooled connection.
type SQLiteConfig struct {
	CacheSizeKB int    // negative = KiB, positive = pages
	WALMode     bool   // journal_mode=WAL
	SyncLevel   string // OFF, NORMAL, FULL or EXTRA
}

var syncLevels = map[string]bool{"OFF": true, "NORMAL": true, "FULL": true, "EXTRA": true}

func GetSQLiteConfig() SQLiteConfig {
	cfg := SQLiteConfig{
		CacheSizeKB: -16000,
		WALMode:     true,
		SyncLevel:   "NORMAL",
	}

	if v, ok := os.LookupEnv("SQLITE_CACHE_SIZE"); ok {
		if i, err := strconv.Atoi(v); err == nil && i != 0 {
			cfg.CacheSizeKB = i
		}
	}
	if v, ok := os.LookupEnv("SQLITE_WAL_MODE"); ok {
		cfg.WALMode = strings.EqualFold(v, "true") || v == "1"
	}
	if v, ok := os.LookupEnv("SQLITE_SYNC_LEVEL"); ok && syncLevels[strings.ToUpper(v)] {
		cfg.SyncLevel = strings.ToUpper(v)
	}

	return cfg
}

// DSN appends the connection parameters to a database path.
func (c SQLiteConfig) DSN(path string) string {
	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_synchronous=" + c.SyncLevel,
		"_cache_size=" + strconv.Itoa(c.CacheSizeKB),
	}
	if c.WALMode {
		params = append(params, "_journal_mode=WAL")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}
