package ps

import (
	"fmt"

	"github.com/go-git/go-git/v6/plumbing"

	"github.com/nickyhof/ViewDB/core"
)

// Snapshot tags the catalog state of asof, or of HEAD when asof is nil.
func (persistence *Persistence) Snapshot(name string, asof *Transaction) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	var hash plumbing.Hash
	if asof != nil {
		hash = plumbing.NewHash(asof.Id)
	} else {
		headRef, err := persistence.repo.Head()
		if err != nil {
			return fmt.Errorf("nothing to snapshot: %w", err)
		}
		hash = headRef.Hash()
	}

	if _, err := persistence.repo.CreateTag(name, hash, nil); err != nil {
		return fmt.Errorf("failed to create snapshot '%s': %w", name, err)
	}
	return nil
}

// Snapshots lists the snapshot names.
func (persistence *Persistence) Snapshots() ([]string, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}

	tags, err := persistence.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	var names []string
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	return names, err
}

// Recover commits the catalog tree of a snapshot on top of HEAD, so the
// history between the snapshot and now is kept.
func (persistence *Persistence) Recover(name string, identity core.Identity) (Transaction, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	ref, err := persistence.repo.Tag(name)
	if err != nil {
		return Transaction{}, fmt.Errorf("snapshot '%s' not found: %w", name, err)
	}

	commit, err := persistence.repo.CommitObject(ref.Hash())
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to read snapshot '%s': %w", name, err)
	}

	txn, err := persistence.createCommitDirect(commit.TreeHash, identity, fmt.Sprintf("Recovering snapshot %s", name))
	if err != nil {
		return Transaction{}, err
	}

	if err := persistence.syncWorktree(); err != nil {
		return Transaction{}, fmt.Errorf("failed to sync worktree: %w", err)
	}
	return txn, nil
}
