package database

import (
	"context"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/library-management/internal/config"
)

// DSN renders the MySQL DSN for cfg. parseTime maps DATETIME to time.Time,
// loc=UTC keeps every stored instant in UTC and clientFoundRows makes
// RowsAffected count matched rows, so an UPDATE that changes nothing still
// reports its row.
func DSN(cfg config.DBConfig, multiStatements bool) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Pass
	mc.Net = "tcp"
	mc.Addr = cfg.Host + ":" + cfg.Port
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.MultiStatements = multiStatements
	mc.ClientFoundRows = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
func Open(cfg config.DBConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", DSN(cfg, false))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpen)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
