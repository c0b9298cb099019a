package ps

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// Transaction is one commit of catalog changes.
type Transaction struct {
	Id      string
	When    time.Time
	Author  string // "Name <email>" format
	Message string
}

func (transaction Transaction) String() string {
	return fmt.Sprintf("Transaction{Id: %s, When: %s, Author: %s}", transaction.Id, transaction.When, transaction.Author)
}

func formatAuthor(sig object.Signature) string {
	if sig.Name == "" && sig.Email == "" {
		return ""
	}
	return fmt.Sprintf("%s <%s>", sig.Name, sig.Email)
}

func commitTransaction(c *object.Commit) Transaction {
	return Transaction{
		Id:      c.Hash.String(),
		When:    c.Committer.When,
		Author:  formatAuthor(c.Author),
		Message: strings.TrimSpace(c.Message),
	}
}

func (persistence *Persistence) LatestTransaction() Transaction {
	if !persistence.IsInitialized() {
		return Transaction{}
	}

	headRef, err := persistence.repo.Head()
	if err != nil || headRef == nil {
		// No commits yet
		return Transaction{}
	}

	commit, err := persistence.repo.CommitObject(headRef.Hash())
	if err != nil {
		return Transaction{}
	}

	return commitTransaction(commit)
}

// TransactionsSince lists the commits made at or after asof, newest first.
func (persistence *Persistence) TransactionsSince(asof time.Time) ([]Transaction, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}
	if _, err := persistence.repo.Head(); err != nil {
		return nil, nil
	}

	cIter, err := persistence.repo.Log(&git.LogOptions{
		Since: &asof,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer cIter.Close()

	var transactions []Transaction
	err = cIter.ForEach(func(c *object.Commit) error {
		transactions = append(transactions, commitTransaction(c))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return transactions, nil
}
