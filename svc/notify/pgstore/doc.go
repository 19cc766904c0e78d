// Package pgstore implements notify.Storage on PostgreSQL with pgx.
//
// The schema ships as embedded goose migrations; apply them with
// pg.Migrate(ctx, pool, pgstore.Migrations, cfg, log) and
// cfg.MigrationsPath set to MigrationsDir.
package pgstore
