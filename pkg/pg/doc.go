// Package pg bootstraps the PostgreSQL connection pool used by the notification
// store: pgx/v5 pooling with connect retries, goose/v3 migrations and a health
// check closure.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations, cfg, log); err != nil {
//	    return err
//	}
//
//	ping := pg.Healthcheck(pool)
//
// Migrate reads migrations from an fs.FS (typically embedded next to the
// queries) or, with a nil FS, from cfg.MigrationsPath on disk.
//
// IsNotFoundError, IsDuplicateKeyError and IsForeignKeyViolationError classify
// pgx errors.
package pg
