package gorm

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// migrationsTable records applied migrations.
const migrationsTable = "logmine_migrations"

// runMigrations creates the log table using gormigrate.
// Migration ids carry the table name so several log tables can share one database.
func runMigrations(db *gorm.DB, table string) error {
	opts := *gormigrate.DefaultOptions
	opts.TableName = migrationsTable

	m := gormigrate.New(db, &opts, []*gormigrate.Migration{
		{
			ID: "001_log_table_" + table,
			Migrate: func(tx *gorm.DB) error {
				return tx.Table(table).AutoMigrate(&LogEntry{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(table)
			},
		},
	})

	return m.Migrate()
}
