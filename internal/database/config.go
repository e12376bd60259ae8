package database

import "time"

// Config tunes the SQLite connection pool.
type Config struct {
	DBPath       string
	MaxOpenConns int
	BusyTimeout  time.Duration
	// CacheSizeKB is passed to PRAGMA cache_size; negative values are KiB.
	CacheSizeKB int
}

// NewConfig returns pool settings for the pipeline database at dbPath.
func NewConfig(dbPath string) *Config {
	return &Config{
		DBPath:       dbPath,
		MaxOpenConns: 4,
		BusyTimeout:  5 * time.Second,
		CacheSizeKB:  -32000,
	}
}

func (c *Config) dsn() string {
	busy := c.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	// Foreign keys go in the DSN so every pooled connection enforces them.
	// Immediate transactions take the write lock up front, so busy_timeout
	// applies instead of a failed lock upgrade.
	return "file:" + c.DBPath + "?_journal=WAL&_synchronous=NORMAL&_fk=1&_txlock=immediate" +
		"&_busy_timeout=" + itoa(busy.Milliseconds())
}
