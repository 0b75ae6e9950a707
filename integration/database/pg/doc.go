// Package pg connects to PostgreSQL through a pgx pool and applies schema
// migrations with goose.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, migrations.FS, cfg, logger); err != nil {
//		return err
//	}
//
// Connect retries failed attempts with a linearly growing interval and pings
// the pool before returning it. Healthcheck wraps Ping for readiness probes.
//
// Repositories depend on DBTX rather than a concrete pool, so a pgx.Tx or a
// pgxmock pool can stand in. WithTx stores a transaction in a context and
// Querier picks it up, letting several repositories share one transaction.
//
// Error helpers classify common failures: IsNotFoundError, IsDuplicateKeyError,
// IsForeignKeyViolationError, and IsTxClosedError.
package pg
