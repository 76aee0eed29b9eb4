package main

import (
	"context"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	acc, err := cli.accounts.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	_, err = cli.accounts.SetPassword(ctx, acc, pwd)
	return err
}
