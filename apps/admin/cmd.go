package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/eadtoolz/core"
	"github.com/trezcool/eadtoolz/core/account"
	"github.com/trezcool/eadtoolz/core/session"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp        = errors.New("help provided")
	errInvalidRole = errors.New("invalid role")
	errNoSQL       = errors.New("migrations require the postgres engine")
)

type commandLine struct {
	db       *sql.DB // nil unless the postgres engine is configured
	store    core.RecordStore
	accounts *account.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -email EMAIL [-name NAME] [-role admin|teacher|student] - create or reactivate an account")
	fmt.Println("  setrole -id ID -role admin|teacher|student - assign the role of an account")
	fmt.Println("  resetpassword -email EMAIL - reset an account's password")
	fmt.Println("  migrate COMMAND [ARGS] - run goose migrations (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)")
}

func promptPassword(cmd *flag.FlagSet) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		cmd.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func parseRole(r string) (session.Role, error) {
	role := session.Role(core.CleanString(r, true /* lower */))
	if !role.Valid() {
		return "", errInvalidRole
	}
	return role, nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The account's email. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The account's display name.")
	addUserRole := addUserCmd.String("role", "", "The account's role. Left untouched when empty.")

	setRoleCmd := flag.NewFlagSet("setrole", flag.ContinueOnError)
	setRoleID := setRoleCmd.String("id", "", "The account's ID.")
	setRoleRole := setRoleCmd.String("role", "", "The role to assign.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The account's email. The password will be prompted next.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		var role session.Role
		if *addUserRole != "" {
			var err error
			if role, err = parseRole(*addUserRole); err != nil {
				return err
			}
		}
		pwd, err := promptPassword(addUserCmd)
		if err != nil {
			return err
		}
		return cli.addUser(*addUserName, *addUserEmail, pwd, role)

	case "setrole":
		if err := setRoleCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setRoleID == "" || *setRoleRole == "" {
			setRoleCmd.Usage()
			return errHelp
		}
		role, err := parseRole(*setRoleRole)
		if err != nil {
			return err
		}
		return cli.setRole(*setRoleID, role)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	default:
		cli.printUsage()
		return errHelp
	}
}
