package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/flatrota/internal/database"
	"github.com/dukerupert/flatrota/internal/model"
	"github.com/dukerupert/flatrota/internal/store"
)

// openDB loads configuration and opens the migrated database.
func (g *globalFlags) openDB() (*sql.DB, *slog.Logger, error) {
	cfg, logger, err := g.load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return db, logger, nil
}

func userByEmail(ctx context.Context, users *store.UserStore, email string) (*model.User, error) {
	u, err := users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("no user with email %q", email)
	}
	return u, nil
}

// newUserCmd manages accounts. There is no sign-up flow; an operator creates
// flatmates here and hands them their session token.
func newUserCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Create users and issue session tokens",
	}

	var email, name string
	var ttl time.Duration
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a user and print a session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, logger, err := g.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			ctx := cmd.Context()

			users := store.NewUserStore(db)
			email = strings.TrimSpace(email)
			existing, err := users.GetByEmail(ctx, email)
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("user %q already exists (id %d)", email, existing.ID)
			}
			u, err := users.Create(ctx, email, strings.TrimSpace(name))
			if err != nil {
				return err
			}
			sess, err := store.NewSessionStore(db).Create(ctx, u.ID, ttl)
			if err != nil {
				return err
			}
			logger.Info("user created", "user_id", u.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "user %d %s\ntoken %s\n", u.ID, u.Email, sess.Token)
			return nil
		},
	}
	add.Flags().StringVar(&email, "email", "", "Email address")
	add.Flags().StringVar(&name, "name", "", "Display name")
	add.Flags().DurationVar(&ttl, "ttl", store.DefaultSessionTTL, "Session lifetime")
	add.MarkFlagRequired("email")
	add.MarkFlagRequired("name")

	var tokenEmail string
	var tokenTTL time.Duration
	token := &cobra.Command{
		Use:   "token",
		Short: "Issue a new session token for an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := g.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			u, err := userByEmail(cmd.Context(), store.NewUserStore(db), tokenEmail)
			if err != nil {
				return err
			}
			sess, err := store.NewSessionStore(db).Create(cmd.Context(), u.ID, tokenTTL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token %s\n", sess.Token)
			return nil
		},
	}
	token.Flags().StringVar(&tokenEmail, "email", "", "Email address")
	token.Flags().DurationVar(&tokenTTL, "ttl", store.DefaultSessionTTL, "Session lifetime")
	token.MarkFlagRequired("email")

	cmd.AddCommand(add, token)
	return cmd
}

// newFlatCmd manages flats and their membership, which rosters draw from.
func newFlatCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flat",
		Short: "Create flats and manage their members",
	}

	var name, owner string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a flat owned by an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, logger, err := g.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			u, err := userByEmail(cmd.Context(), store.NewUserStore(db), owner)
			if err != nil {
				return err
			}
			flat, err := store.NewFlatStore(db).Create(cmd.Context(), strings.TrimSpace(name), u.ID)
			if err != nil {
				return err
			}
			logger.Info("flat created", "flat_id", flat.ID, "owner_id", u.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "flat %d\n", flat.ID)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "Flat name")
	create.Flags().StringVar(&owner, "owner", "", "Owner email")
	create.MarkFlagRequired("name")
	create.MarkFlagRequired("owner")

	var flatID int64
	var email, role string
	addMember := &cobra.Command{
		Use:   "add-member",
		Short: "Add a user to a flat",
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != store.RoleMember && role != store.RoleOwner {
				return fmt.Errorf("role must be %q or %q", store.RoleMember, store.RoleOwner)
			}
			db, _, err := g.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			ctx := cmd.Context()

			flats := store.NewFlatStore(db)
			if err := requireFlat(ctx, flats, flatID); err != nil {
				return err
			}
			u, err := userByEmail(ctx, store.NewUserStore(db), email)
			if err != nil {
				return err
			}
			m, err := flats.AddMember(ctx, flatID, u.ID, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added user %d to flat %d as %s\n", u.ID, flatID, m.Role)
			return nil
		},
	}
	addMember.Flags().Int64Var(&flatID, "flat", 0, "Flat id")
	addMember.Flags().StringVar(&email, "email", "", "Member email")
	addMember.Flags().StringVar(&role, "role", store.RoleMember, "Role: member or owner")
	addMember.MarkFlagRequired("flat")
	addMember.MarkFlagRequired("email")

	var removeFlatID int64
	var removeEmail string
	removeMember := &cobra.Command{
		Use:   "remove-member",
		Short: "Remove a user from a flat",
		Long: `Remove a user from a flat. Task rosters are not edited: periods already
assigned to the user stay assigned until reassigned.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := g.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			ctx := cmd.Context()

			flats := store.NewFlatStore(db)
			flat, err := flats.GetByID(ctx, removeFlatID)
			if err != nil {
				return err
			}
			if flat == nil {
				return fmt.Errorf("no flat with id %d", removeFlatID)
			}
			u, err := userByEmail(ctx, store.NewUserStore(db), removeEmail)
			if err != nil {
				return err
			}
			if u.ID == flat.OwnerID {
				return fmt.Errorf("user %d owns flat %d and cannot be removed", u.ID, flat.ID)
			}
			if err := flats.RemoveMember(ctx, flat.ID, u.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed user %d from flat %d\n", u.ID, flat.ID)
			return nil
		},
	}
	removeMember.Flags().Int64Var(&removeFlatID, "flat", 0, "Flat id")
	removeMember.Flags().StringVar(&removeEmail, "email", "", "Member email")
	removeMember.MarkFlagRequired("flat")
	removeMember.MarkFlagRequired("email")

	var listFlatID int64
	members := &cobra.Command{
		Use:   "members",
		Short: "List the members of a flat",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := g.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			flats := store.NewFlatStore(db)
			if err := requireFlat(cmd.Context(), flats, listFlatID); err != nil {
				return err
			}
			list, err := flats.ListMembers(cmd.Context(), listFlatID)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "USER\tROLE\tJOINED")
			for _, m := range list {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", m.UserID, m.Role, m.CreatedAt.Format(dateLayout))
			}
			return tw.Flush()
		},
	}
	members.Flags().Int64Var(&listFlatID, "flat", 0, "Flat id")
	members.MarkFlagRequired("flat")

	cmd.AddCommand(create, addMember, removeMember, members)
	return cmd
}

func requireFlat(ctx context.Context, flats *store.FlatStore, id int64) error {
	flat, err := flats.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if flat == nil {
		return fmt.Errorf("no flat with id %d", id)
	}
	return nil
}
