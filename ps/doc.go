// Package ps provides the persistence layer for ViewDB.
//
// The catalog (schemas, tables, sequences and views) is stored as JSON records
// in a Git repository under .viewdb/. Writes build blobs and trees with the
// go-git plumbing API and commit them directly, so every DDL statement is one
// commit and the catalog has full history.
//
// # Memory Persistence
//
// For testing or ephemeral catalogs:
//
//	persistence, err := ps.NewMemoryPersistence()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # File Persistence
//
// For persistent storage, optionally cloned from a remote:
//
//	persistence, err := ps.NewFilePersistence("/path/to/catalog", nil)
//
// # Batches
//
// Related record changes are committed together:
//
//	batch, _ := persistence.BeginBatch()
//	batch.PutTable(table)
//	batch.PutView(record)
//	txn, _ := batch.Commit(identity, "Altering table PUBLIC.orders")
//
// # Sharing
//
// Catalogs are shared through Git remotes (Push, Pull with fast-forward only)
// and can be tagged and recovered with Snapshot and Recover.
package ps
