package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/term"

	"campus/internal/account"
	"campus/internal/notify"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	openFileFunc     = func(name string) (io.ReadCloser, error) { return os.Open(name) }

	errHelp = errors.New("help provided")
)

type migrator interface {
	MigrateUp() error
	MigrateDown() error
	MigrateVersion() (uint, bool, error)
	MigrateForce(version int) error
}

type accountAdmin interface {
	CreateSuperuser(ctx context.Context, username, email, password string) (*account.User, error)
	ImportAdmissions(ctx context.Context, rows []account.AdmissionInput) (created, skipped int, err error)
}

type tokenPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type commandLine struct {
	db       migrator
	accounts accountAdmin
	refresh  tokenPurger
	gateway  notify.Gateway
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate up|down|version|force VERSION - manage the database schema")
	fmt.Fprintln(cli.out, "  createsuperuser -email EMAIL [-username USERNAME] - create a staff account, the password is prompted next")
	fmt.Fprintln(cli.out, "  import-admissions -file ROSTER.csv - load admission records from CSV")
	fmt.Fprintln(cli.out, "  push -token TOKEN -title TITLE -body BODY - send a test push to one device")
	fmt.Fprintln(cli.out, "  purge-tokens - delete expired refresh tokens")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createSuperuserCmd := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
	createSuperuserEmail := createSuperuserCmd.String("email", "", "The account email. The password will be prompted next.")
	createSuperuserUname := createSuperuserCmd.String("username", "", "The username. Defaults to the email local part.")

	importCmd := flag.NewFlagSet("import-admissions", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "CSV roster with a header row.")

	pushCmd := flag.NewFlagSet("push", flag.ContinueOnError)
	pushToken := pushCmd.String("token", "", "The device registration token.")
	pushTitle := pushCmd.String("title", "Test notification", "The notification title.")
	pushBody := pushCmd.String("body", "", "The notification body.")

	for _, fs := range []*flag.FlagSet{createSuperuserCmd, importCmd, pushCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		return cli.migrate(args[2:])
	case "createsuperuser":
		if err := createSuperuserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createSuperuserEmail == "" {
			createSuperuserCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			createSuperuserCmd.Usage()
			return errHelp
		}
		u, err := cli.accounts.CreateSuperuser(ctx, *createSuperuserUname, *createSuperuserEmail, string(pwd))
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Superuser %q created.\n", u.Username)
		return nil
	case "import-admissions":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importAdmissions(ctx, *importFile)
	case "push":
		if err := pushCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *pushToken == "" {
			pushCmd.Usage()
			return errHelp
		}
		n := notify.Notification{Title: *pushTitle, Body: *pushBody}
		if err := cli.gateway.Send(ctx, *pushToken, n); err != nil {
			return fmt.Errorf("push failed: %w", err)
		}
		fmt.Fprintln(cli.out, "Push sent.")
		return nil
	case "purge-tokens":
		n, err := cli.refresh.PurgeExpired(ctx, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Purged %d expired refresh tokens.\n", n)
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) migrate(args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(cli.out, "Usage: migrate up|down|version|force VERSION")
		return errHelp
	}
	switch args[0] {
	case "up":
		return cli.db.MigrateUp()
	case "down":
		return cli.db.MigrateDown()
	case "version":
		version, dirty, err := cli.db.MigrateVersion()
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "version %d (dirty: %t)\n", version, dirty)
		return nil
	case "force":
		if len(args) < 2 {
			return fmt.Errorf("force must be of form: migrate force VERSION")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("version must be a number (got '%s')", args[1])
		}
		return cli.db.MigrateForce(version)
	default:
		return fmt.Errorf("%q: no such command", args[0])
	}
}

func (cli *commandLine) importAdmissions(ctx context.Context, path string) error {
	f, err := openFileFunc(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := account.ParseRoster(f)
	if err != nil {
		return err
	}
	created, skipped, err := cli.accounts.ImportAdmissions(ctx, rows)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Imported %d admission records, skipped %d existing.\n", created, skipped)
	return nil
}
