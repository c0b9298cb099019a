package ps

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"

	"github.com/nickyhof/ViewDB/core"
)

// createBlob creates a blob object directly in the object store without filesystem I/O
func (p *Persistence) createBlob(data []byte) (plumbing.Hash, error) {
	obj := p.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	writer, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to create blob writer: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob data: %w", err)
	}
	writer.Close()

	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store blob: %w", err)
	}

	return hash, nil
}

// getCurrentTree returns the tree hash from the current HEAD commit.
// Returns ZeroHash if repository has no commits yet.
func (p *Persistence) getCurrentTree() (plumbing.Hash, error) {
	headRef, err := p.repo.Head()
	if err != nil {
		return plumbing.ZeroHash, nil
	}

	commit, err := p.repo.CommitObject(headRef.Hash())
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get head commit: %w", err)
	}

	return commit.TreeHash, nil
}

// headTree returns the tree of the HEAD commit, or nil before the first commit.
func (p *Persistence) headTree() (*object.Tree, error) {
	headRef, err := p.repo.Head()
	if err != nil {
		return nil, nil
	}

	commit, err := p.repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	return tree, nil
}

// getTreeEntries reads all entries from an existing tree, keyed by name
func (p *Persistence) getTreeEntries(treeHash plumbing.Hash) (map[string]object.TreeEntry, error) {
	entries := make(map[string]object.TreeEntry)

	if treeHash == plumbing.ZeroHash {
		return entries, nil
	}

	tree, err := object.GetTree(p.repo.Storer, treeHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	for _, entry := range tree.Entries {
		entries[entry.Name] = entry
	}

	return entries, nil
}

// buildTreeFromEntries stores a tree object built from entries. An empty
// entry set yields ZeroHash so the parent drops the directory.
func (p *Persistence) buildTreeFromEntries(entries map[string]object.TreeEntry) (plumbing.Hash, error) {
	if len(entries) == 0 {
		return plumbing.ZeroHash, nil
	}

	sorted := make([]object.TreeEntry, 0, len(entries))
	for _, entry := range entries {
		sorted = append(sorted, entry)
	}

	// Git orders directories as if their name had a trailing slash
	sort.Slice(sorted, func(i, j int) bool {
		nameI := sorted[i].Name
		nameJ := sorted[j].Name
		if sorted[i].Mode == filemode.Dir {
			nameI += "/"
		}
		if sorted[j].Mode == filemode.Dir {
			nameJ += "/"
		}
		return nameI < nameJ
	})

	tree := &object.Tree{Entries: sorted}

	obj := p.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode tree: %w", err)
	}

	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store tree: %w", err)
	}

	return hash, nil
}

// TreeChange is a single write or delete of a path in the catalog tree.
// Deleting a directory path removes everything below it.
type TreeChange struct {
	Path     string
	BlobHash plumbing.Hash
	IsDelete bool
}

// batchUpdateTree applies all changes to the tree in one pass, rebuilding
// each touched directory once.
func (p *Persistence) batchUpdateTree(rootTreeHash plumbing.Hash, changes []TreeChange) (plumbing.Hash, error) {
	if len(changes) == 0 {
		return rootTreeHash, nil
	}

	grouped := make(map[string][]TreeChange)
	var dirs []string
	var leafChanges []TreeChange

	for _, change := range changes {
		dir, rest, nested := strings.Cut(change.Path, "/")
		if !nested {
			leafChanges = append(leafChanges, change)
			continue
		}
		if _, ok := grouped[dir]; !ok {
			dirs = append(dirs, dir)
		}
		grouped[dir] = append(grouped[dir], TreeChange{
			Path:     rest,
			BlobHash: change.BlobHash,
			IsDelete: change.IsDelete,
		})
	}

	entries, err := p.getTreeEntries(rootTreeHash)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	// Leaf changes apply in order, so a later write wins over an earlier delete
	for _, change := range leafChanges {
		if change.IsDelete {
			delete(entries, change.Path)
			continue
		}
		entries[change.Path] = object.TreeEntry{
			Name: change.Path,
			Mode: filemode.Regular,
			Hash: change.BlobHash,
		}
	}

	for _, dir := range dirs {
		subTreeHash := plumbing.ZeroHash
		if existing, ok := entries[dir]; ok && existing.Mode == filemode.Dir {
			subTreeHash = existing.Hash
		}

		newSubTreeHash, err := p.batchUpdateTree(subTreeHash, grouped[dir])
		if err != nil {
			return plumbing.ZeroHash, err
		}

		if newSubTreeHash == plumbing.ZeroHash {
			delete(entries, dir)
		} else {
			entries[dir] = object.TreeEntry{
				Name: dir,
				Mode: filemode.Dir,
				Hash: newSubTreeHash,
			}
		}
	}

	return p.buildTreeFromEntries(entries)
}

// createCommitDirect creates a commit object directly without using worktree
func (p *Persistence) createCommitDirect(treeHash plumbing.Hash, identity core.Identity, message string) (Transaction, error) {
	actualTreeHash := treeHash
	if treeHash == plumbing.ZeroHash {
		emptyTree := &object.Tree{Entries: []object.TreeEntry{}}
		obj := p.repo.Storer.NewEncodedObject()
		if err := emptyTree.Encode(obj); err != nil {
			return Transaction{}, fmt.Errorf("failed to encode empty tree: %w", err)
		}
		var err error
		actualTreeHash, err = p.repo.Storer.SetEncodedObject(obj)
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to store empty tree: %w", err)
		}
	}

	var parentHashes []plumbing.Hash
	headRef, err := p.repo.Head()
	if err == nil {
		parentHashes = []plumbing.Hash{headRef.Hash()}
	}

	sig := object.Signature{
		Name:  identity.Name,
		Email: identity.Email,
		When:  time.Now(),
	}

	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     actualTreeHash,
		ParentHashes: parentHashes,
	}

	obj := p.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return Transaction{}, fmt.Errorf("failed to encode commit: %w", err)
	}

	commitHash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to store commit: %w", err)
	}

	if err := p.moveHead(headRef, commitHash); err != nil {
		return Transaction{}, err
	}

	return Transaction{
		Id:      commitHash.String(),
		When:    sig.When,
		Author:  formatAuthor(sig),
		Message: message,
	}, nil
}

// moveHead points the current branch (master before the first commit) at hash.
func (p *Persistence) moveHead(headRef *plumbing.Reference, hash plumbing.Hash) error {
	branchName := plumbing.Master
	if headRef != nil && headRef.Name().IsBranch() {
		branchName = headRef.Name()
	}

	ref := plumbing.NewHashReference(branchName, hash)
	if err := p.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("failed to update HEAD: %w", err)
	}
	return nil
}

// applyChanges writes the blobs, rebuilds the tree and commits it.
func (p *Persistence) applyChanges(writes map[string][]byte, deletes []string, identity core.Identity, message string) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	currentTree, err := p.getCurrentTree()
	if err != nil {
		return Transaction{}, err
	}

	changes := make([]TreeChange, 0, len(writes)+len(deletes))
	for _, filePath := range deletes {
		changes = append(changes, TreeChange{Path: filePath, IsDelete: true})
	}

	paths := make([]string, 0, len(writes))
	for filePath := range writes {
		paths = append(paths, filePath)
	}
	sort.Strings(paths)

	for _, filePath := range paths {
		blobHash, err := p.createBlob(writes[filePath])
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to create blob for %s: %w", filePath, err)
		}
		changes = append(changes, TreeChange{Path: filePath, BlobHash: blobHash})
	}

	newTree, err := p.batchUpdateTree(currentTree, changes)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to update tree: %w", err)
	}

	txn, err := p.createCommitDirect(newTree, identity, message)
	if err != nil {
		return Transaction{}, err
	}

	if err := p.syncWorktree(); err != nil {
		return Transaction{}, fmt.Errorf("failed to sync worktree: %w", err)
	}

	return txn, nil
}

// syncWorktree updates the worktree filesystem to match HEAD.
// Memory mode skips it since reads use the Git tree directly.
func (p *Persistence) syncWorktree() error {
	if p.isMemoryMode {
		return nil
	}

	wt, err := p.repo.Worktree()
	if err != nil {
		return err
	}

	headRef, err := p.repo.Head()
	if err != nil {
		return err
	}

	tree, err := p.headTree()
	if err != nil {
		return err
	}

	// git reset fails with "base dir cannot be removed" on an empty tree
	if tree == nil || len(tree.Entries) == 0 {
		fs := wt.Filesystem
		entries, err := fs.ReadDir("/")
		if err != nil {
			return nil
		}
		for _, entry := range entries {
			if entry.Name() != ".git" {
				fs.Remove(entry.Name())
			}
		}
		return nil
	}

	return wt.Reset(&git.ResetOptions{
		Mode:   git.HardReset,
		Commit: headRef.Hash(),
	})
}

// WriteFileDirect writes a single file to the repository using plumbing API
func (p *Persistence) WriteFileDirect(filePath string, data []byte, identity core.Identity, message string) (Transaction, error) {
	return p.applyChanges(map[string][]byte{filePath: data}, nil, identity, message)
}

// DeletePathDirect deletes one or more paths from the repository using plumbing API
func (p *Persistence) DeletePathDirect(paths []string, identity core.Identity, message string) (Transaction, error) {
	return p.applyChanges(nil, paths, identity, message)
}

// ReadFileDirect reads a file directly from the Git tree (bypasses worktree filesystem)
func (p *Persistence) ReadFileDirect(filePath string) ([]byte, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	tree, err := p.headTree()
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, fmt.Errorf("%s: %w", filePath, ErrRecordNotFound)
	}

	file, err := tree.File(filePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, ErrRecordNotFound)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read contents: %w", err)
	}

	return []byte(content), nil
}

// TreeEntry represents a directory entry from the Git tree
type TreeEntry struct {
	Name  string
	IsDir bool
}

// ListEntriesDirect lists directory entries directly from the Git tree. A
// missing directory lists as empty.
func (p *Persistence) ListEntriesDirect(dirPath string) ([]TreeEntry, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	tree, err := p.headTree()
	if err != nil || tree == nil {
		return nil, err
	}

	targetTree := tree
	if dirPath != "" && dirPath != "." {
		targetTree, err = tree.Tree(dirPath)
		if err != nil {
			return nil, nil
		}
	}

	var entries []TreeEntry
	for _, entry := range targetTree.Entries {
		entries = append(entries, TreeEntry{
			Name:  entry.Name,
			IsDir: entry.Mode == filemode.Dir,
		})
	}

	return entries, nil
}
