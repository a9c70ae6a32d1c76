// Package database provides the bridge's SQLite store.
//
// It wraps database/sql with the mattn/go-sqlite3 driver, WAL mode and a
// single-writer pool, plus embedded forward/backward migrations. The
// only schema today is rf433_transmitters, written by the transmitter
// recorder and read by the diagnostics API.
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
