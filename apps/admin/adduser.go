package main

import (
	"context"
	"fmt"

	"github.com/trezcool/eadtoolz/core/session"
)

// addUser creates or reactivates an account, assigning role when not empty.
func (cli *commandLine) addUser(name, email, pwd string, role session.Role) error {
	ctx := context.Background()
	acc, created, err := cli.accounts.AddOrUpdate(ctx, name, email, pwd)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("created account %s\n", acc.ID)
	} else {
		fmt.Printf("updated account %s\n", acc.ID)
	}

	if role == "" {
		return nil
	}
	return cli.setRole(acc.ID, role)
}
