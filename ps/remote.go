package ps

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/transport"
	"github.com/go-git/go-git/v6/plumbing/transport/http"
	"github.com/go-git/go-git/v6/plumbing/transport/ssh"
)

var ErrDiverged = errors.New("catalog histories have diverged")

// AuthType defines the type of authentication
type AuthType string

const (
	AuthTypeNone  AuthType = "none"
	AuthTypeToken AuthType = "token"
	AuthTypeSSH   AuthType = "ssh"
	AuthTypeBasic AuthType = "basic"
)

// RemoteAuth holds authentication configuration for remote operations
type RemoteAuth struct {
	Type       AuthType
	Token      string // For token auth
	KeyPath    string // For SSH key auth
	Passphrase string // For SSH key with passphrase
	Username   string // For basic auth
	Password   string // For basic auth
}

// Remote represents a Git remote
type Remote struct {
	Name string
	URLs []string
}

// getAuthMethod converts RemoteAuth to go-git's AuthMethod
func (auth *RemoteAuth) getAuthMethod() (transport.AuthMethod, error) {
	if auth == nil {
		return nil, nil
	}

	switch auth.Type {
	case AuthTypeNone, "":
		return nil, nil

	case AuthTypeToken:
		// Token auth uses username "git" or any non-empty string
		return &http.BasicAuth{
			Username: "git",
			Password: auth.Token,
		}, nil

	case AuthTypeSSH:
		keyPath := auth.KeyPath
		if keyPath == "" {
			home, _ := os.UserHomeDir()
			keyPath = filepath.Join(home, ".ssh", "id_rsa")
		}
		return ssh.NewPublicKeysFromFile("git", keyPath, auth.Passphrase)

	case AuthTypeBasic:
		return &http.BasicAuth{
			Username: auth.Username,
			Password: auth.Password,
		}, nil

	default:
		return nil, fmt.Errorf("unknown auth type: %s", auth.Type)
	}
}

// AddRemote adds a named remote to the repository
func (p *Persistence) AddRemote(name, url string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}

	_, err := p.repo.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{url},
	})
	if err != nil {
		return fmt.Errorf("failed to add remote '%s': %w", name, err)
	}
	return nil
}

// ListRemotes returns all configured remotes
func (p *Persistence) ListRemotes() ([]Remote, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	remotes, err := p.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("failed to list remotes: %w", err)
	}

	result := make([]Remote, len(remotes))
	for i, r := range remotes {
		cfg := r.Config()
		result[i] = Remote{
			Name: cfg.Name,
			URLs: cfg.URLs,
		}
	}
	return result, nil
}

// RemoveRemote removes a remote from the repository
func (p *Persistence) RemoveRemote(name string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}

	if err := p.repo.DeleteRemote(name); err != nil {
		return fmt.Errorf("failed to remove remote '%s': %w", name, err)
	}
	return nil
}

// CurrentBranch returns the name of the branch HEAD points at
func (p *Persistence) CurrentBranch() (string, error) {
	if err := p.ensureInitialized(); err != nil {
		return "", err
	}

	headRef, err := p.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}

	if headRef.Name().IsBranch() {
		return headRef.Name().Short(), nil
	}

	return "", fmt.Errorf("HEAD is detached at %s", headRef.Hash().String()[:7])
}

// Push pushes the current catalog branch to a remote
func (p *Persistence) Push(remoteName string, auth *RemoteAuth) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}

	if remoteName == "" {
		remoteName = "origin"
	}

	branch, err := p.CurrentBranch()
	if err != nil {
		return err
	}

	authMethod, err := auth.getAuthMethod()
	if err != nil {
		return fmt.Errorf("failed to configure auth: %w", err)
	}

	refSpec := config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))

	err = p.repo.Push(&git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       authMethod,
	})
	if err == git.NoErrAlreadyUpToDate {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to push to '%s': %w", remoteName, err)
	}
	return nil
}

// Pull fetches the remote branch and fast-forwards the catalog to it. The
// returned flag reports whether HEAD moved.
func (p *Persistence) Pull(remoteName string, auth *RemoteAuth) (bool, error) {
	if err := p.ensureInitialized(); err != nil {
		return false, err
	}

	if remoteName == "" {
		remoteName = "origin"
	}

	branch, err := p.CurrentBranch()
	if err != nil {
		branch = plumbing.Master.Short()
	}

	authMethod, err := auth.getAuthMethod()
	if err != nil {
		return false, fmt.Errorf("failed to configure auth: %w", err)
	}

	err = p.repo.Fetch(&git.FetchOptions{
		RemoteName: remoteName,
		Auth:       authMethod,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return false, fmt.Errorf("failed to fetch from '%s': %w", remoteName, err)
	}

	remoteRef, err := p.repo.Reference(plumbing.NewRemoteReferenceName(remoteName, branch), true)
	if err != nil {
		return false, fmt.Errorf("remote branch '%s/%s' not found: %w", remoteName, branch, err)
	}

	return p.fastForward(remoteRef.Hash())
}

// fastForward moves HEAD to target when the current HEAD is its ancestor.
func (p *Persistence) fastForward(target plumbing.Hash) (bool, error) {
	headRef, err := p.repo.Head()
	if err != nil {
		// Empty repository: adopt the remote history as is
		if err := p.moveHead(nil, target); err != nil {
			return false, err
		}
		return true, p.syncWorktree()
	}

	if headRef.Hash() == target {
		return false, nil
	}

	headCommit, err := p.repo.CommitObject(headRef.Hash())
	if err != nil {
		return false, err
	}
	targetCommit, err := p.repo.CommitObject(target)
	if err != nil {
		return false, err
	}

	behind, err := targetCommit.IsAncestor(headCommit)
	if err != nil {
		return false, fmt.Errorf("failed to check ancestry: %w", err)
	}
	if behind {
		return false, nil
	}

	canFF, err := headCommit.IsAncestor(targetCommit)
	if err != nil {
		return false, fmt.Errorf("failed to check ancestry: %w", err)
	}
	if !canFF {
		return false, ErrDiverged
	}

	if err := p.moveHead(headRef, target); err != nil {
		return false, err
	}
	return true, p.syncWorktree()
}
