package main

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/eadtoolz/core"
	"github.com/trezcool/eadtoolz/core/session"
)

// setRole writes role on the role record of the account id, creating the record when absent.
func (cli *commandLine) setRole(id string, role session.Role) error {
	ctx := context.Background()
	acc, err := cli.accounts.GetByID(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	p := session.Principal{ID: acc.ID, Email: acc.Email, DisplayName: acc.Name}
	if _, err = cli.store.CreateIfAbsent(ctx, core.CollectionUsers, acc.ID, session.NewRoleRecord(p, now)); err != nil {
		return err
	}
	doc := core.Document{session.FieldRole: string(role), session.FieldUpdatedAt: now}
	if err = cli.store.Set(ctx, core.CollectionUsers, acc.ID, doc); err != nil {
		return err
	}
	fmt.Printf("%s is now %s\n", acc.Email, role)
	return nil
}
