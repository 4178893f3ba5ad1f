// Точка входа портала регистрации.
// Команды: serve (HTTP-сервер), migrate (миграции БД),
// create-user (учётная запись в каталоге), version.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bigkaa/regportal/internal/config"
	"github.com/bigkaa/regportal/internal/database"
	"github.com/bigkaa/regportal/internal/directory"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "regportal",
		Short:         "Портал регистрации учётных записей Active Directory",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newCreateUserCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Показать версию",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.Version)
			return err
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Применить миграции БД и выйти",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("загрузка конфигурации: %w", err)
			}
			logger := config.SetupLogger(cfg)
			return database.Migrate(cfg, logger)
		},
	}
}

func newCreateUserCmd() *cobra.Command {
	var upn, displayName, email string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Создать учётную запись в каталоге",
		Long: "Создаёт включённую учётную запись в контейнере пользователей и\n" +
			"печатает начальный пароль. Пароль выводится один раз.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("загрузка конфигурации: %w", err)
			}
			logger := config.SetupLogger(cfg)

			dir, err := newDirectoryClient(cfg, logger)
			if err != nil {
				return err
			}

			account, password, err := dir.CreateUser(cmd.Context(), upn, displayName, email)
			if err != nil {
				return fmt.Errorf("создание учётной записи %s: %w", upn, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Учётная запись создана: %s\n", account.DistinguishedName)
			fmt.Fprintf(out, "UPN:    %s\n", account.UserPrincipalName)
			fmt.Fprintf(out, "Пароль: %s\n", password)
			return nil
		},
	}

	cmd.Flags().StringVar(&upn, "upn", "", "userPrincipalName (user@domain)")
	cmd.Flags().StringVar(&displayName, "display-name", "", "отображаемое имя")
	cmd.Flags().StringVar(&email, "email", "", "адрес почты (необязательно)")
	_ = cmd.MarkFlagRequired("upn")
	_ = cmd.MarkFlagRequired("display-name")
	return cmd
}

// newDirectoryClient создаёт клиент каталога из конфигурации.
func newDirectoryClient(cfg *config.Config, logger *slog.Logger) (*directory.Client, error) {
	tlsCfg, err := cfg.LDAPTLSConfig()
	if err != nil {
		return nil, err
	}
	return directory.New(directory.Config{
		URL:          cfg.LDAPURL,
		BindUser:     cfg.LDAPBindUser,
		BindPassword: cfg.LDAPBindPassword,
		BaseDN:       cfg.LDAPBaseDN,
		UsersOU:      cfg.LDAPUsersOU,
		GroupsOU:     cfg.LDAPGroupsOU,
		StartTLS:     cfg.LDAPStartTLS,
		TLSConfig:    tlsCfg,
		Timeout:      cfg.LDAPTimeout,
	}, logger), nil
}
