package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opsbridge/tokengate/internal/core/ports"
	"github.com/opsbridge/tokengate/internal/core/service"
	"github.com/opsbridge/tokengate/internal/infrastructure/db/mongo"
)

// userServiceFactory opens the user store; tests replace it.
type userServiceFactory func(ctx context.Context, a *app) (ports.UserService, func(), error)

func newUserCmd(a *app) *cobra.Command {
	return newUserCmdWith(a, openUserService)
}

func newUserCmdWith(a *app, open userServiceFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Provision users in the configured application type",
	}
	cmd.AddCommand(newUserCreateCmd(a, open))
	cmd.AddCommand(newUserActiveCmd(a, open, "activate", true))
	cmd.AddCommand(newUserActiveCmd(a, open, "deactivate", false))
	return cmd
}

func newUserCreateCmd(a *app, open userServiceFactory) *cobra.Command {
	var (
		username string
		password string
		roles    []string
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Long:  "Create a user. The password is read from the first line of stdin when --password is not given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" {
				return errors.New("--username is required")
			}
			if password == "" {
				p, err := readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = p
			}

			svc, closeFn, err := open(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer closeFn()

			user, err := svc.Create(cmd.Context(), ports.CreateUserInput{
				Username: username,
				Password: password,
				Roles:    roles,
				IsActive: !inactive,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created user %s (roles: %s, active: %t)\n",
				user.Username, strings.Join(user.Roles, ","), user.IsActive)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&password, "password", "", "Password (read from stdin when empty)")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role to grant; repeatable")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the user disabled")
	return cmd
}

func newUserActiveCmd(a *app, open userServiceFactory, use string, active bool) *cobra.Command {
	short := "Enable a user"
	if !active {
		short = "Disable a user; tokens already issued stay valid until they expire"
	}
	return &cobra.Command{
		Use:   use + " <username>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := open(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := svc.SetActive(cmd.Context(), args[0], active); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "user %s active: %t\n", args[0], active)
			return nil
		},
	}
}

func openUserService(ctx context.Context, a *app) (ports.UserService, func(), error) {
	client, db, err := mongo.Connect(ctx, mongo.Config{URI: a.cfg.Mongo.URI, Database: a.cfg.Mongo.Database})
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = client.Disconnect(context.Background()) }

	repo := mongo.NewUserRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}
	return service.NewUserService(repo, a.cfg.Token.ApplicationType, nil, a.log), closeFn, nil
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required")
	}
	return line, nil
}
