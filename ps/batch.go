package ps

import (
	"fmt"
	"strings"

	"github.com/nickyhof/ViewDB/core"
)

type OperationType int

const (
	WriteOp OperationType = iota
	DeleteOp
)

// Operation is a single pending change of a Batch.
type Operation struct {
	Type OperationType
	Path string
	Data []byte
}

// Batch collects catalog record changes and commits them as one transaction.
type Batch struct {
	persistence *Persistence
	operations  []Operation
	started     bool
}

// BeginBatch starts a batch of catalog changes.
func (persistence *Persistence) BeginBatch() (*Batch, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}

	return &Batch{
		persistence: persistence,
		started:     true,
	}, nil
}

func (batch *Batch) write(path string, data []byte) error {
	if !batch.started {
		return fmt.Errorf("batch not started")
	}
	batch.operations = append(batch.operations, Operation{Type: WriteOp, Path: path, Data: data})
	return nil
}

func (batch *Batch) delete(path string) error {
	if !batch.started {
		return fmt.Errorf("batch not started")
	}
	batch.operations = append(batch.operations, Operation{Type: DeleteOp, Path: path})
	return nil
}

// Commit applies the batched operations in a single commit. Operations on
// the same path resolve in order, so the last one wins.
func (batch *Batch) Commit(identity core.Identity, message string) (Transaction, error) {
	if !batch.started {
		return Transaction{}, fmt.Errorf("batch not started")
	}

	if len(batch.operations) == 0 {
		return Transaction{}, fmt.Errorf("no operations to commit")
	}

	writes := make(map[string][]byte)
	var deletes []string
	for _, op := range batch.operations {
		switch op.Type {
		case WriteOp:
			writes[op.Path] = op.Data
		case DeleteOp:
			for path := range writes {
				if path == op.Path || strings.HasPrefix(path, op.Path+"/") {
					delete(writes, path)
				}
			}
			deletes = append(deletes, op.Path)
		}
	}

	if message == "" {
		message = fmt.Sprintf("Catalog batch: %d operation(s)", len(batch.operations))
	}

	txn, err := batch.persistence.applyChanges(writes, deletes, identity, message)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to commit: %w", err)
	}

	batch.started = false
	batch.operations = nil

	return txn, nil
}

// Rollback discards all batched operations without committing
func (batch *Batch) Rollback() {
	batch.started = false
	batch.operations = nil
}

// OperationCount returns the number of pending operations
func (batch *Batch) OperationCount() int {
	return len(batch.operations)
}
