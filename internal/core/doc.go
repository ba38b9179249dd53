// Package core provides the business logic for the customer events pipeline.
//
// The package holds every job of the pipeline independent of any CLI or
// HTTP layer. It can be driven by the eventpipe commands, the status
// server, or tests without modification.
//
// # Pipeline
//
// The jobs run in a fixed order against one PostgreSQL database:
//
//  1. [Service.Load] streams each monthly CSV into its own table, and the
//     product catalog into items. Existing tables are skipped.
//  2. [Service.Merge] rebuilds customers as the UNION ALL of the monthly
//     tables.
//  3. [Service.Deduplicate] drops events repeated within the dedup window.
//  4. [Service.Enrich] left-joins customers with items and keeps the prior
//     table as customers_old.
//
// # Schemas
//
// Column types are explicit. Schemas are registered at init time using
// [Register] (see package schemas) and can be overridden per column with
// [TableSchema.WithTypes]:
//
//	core.Register(core.TableSchema{
//	    Name: "items",
//	    Columns: []core.ColumnSpec{
//	        {Name: "product_id", Type: core.TypeInteger},
//	        {Name: "brand", Type: core.TypeVarchar},
//	    },
//	})
//
// # Transactions
//
// Every multi-statement job runs inside [WithTx]. A failed statement, a
// panic, or a failed check in strict mode rolls the whole job back, so a
// table is never left dropped but not yet recreated.
//
// # Validation
//
// Each job returns a [Validation] listing its checks. By default a failed
// check is fatal and surfaces as a *[ValidationError]; with advisory mode
// enabled it is logged as a warning and the job completes.
//
// # Errors
//
// Missing inputs are reported as *[MissingFileError] or *[MissingTableError]
// (matching [ErrFileNotFound] and [ErrTableNotFound]). [MapError] converts
// any error to a [UserMessage] with a support code.
package core
