package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	usersCmd := &cobra.Command{Use: "users", Short: "User profile operations"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List user profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(apiFlag + "/users")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	usersCmd.AddCommand(listCmd)

	getCmd := &cobra.Command{
		Use:   "get USER_ID",
		Short: "Get a user profile by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("%s/users/%s", apiFlag, args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	usersCmd.AddCommand(getCmd)

	var backupOut string
	backupCmd := &cobra.Command{
		Use:   "backup USER_ID",
		Short: "Dump a single user profile record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doPostRaw(fmt.Sprintf("%s/users/%s/backup", apiFlag, args[0]), nil)
			if err != nil {
				return err
			}
			if backupOut != "" {
				return os.WriteFile(backupOut, data, 0o644)
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	backupCmd.Flags().StringVarP(&backupOut, "out", "o", "", "Write the record to a file instead of stdout")
	usersCmd.AddCommand(backupCmd)

	var restoreIn string
	restoreCmd := &cobra.Command{
		Use:   "restore USER_ID",
		Short: "Restore a user profile record from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(restoreIn)
			if err != nil {
				return err
			}
			data, err := doPostRaw(fmt.Sprintf("%s/users/%s/restore", apiFlag, args[0]), body)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	restoreCmd.Flags().StringVarP(&restoreIn, "in", "i", "", "File holding a previously dumped record (required)")
	_ = restoreCmd.MarkFlagRequired("in")
	usersCmd.AddCommand(restoreCmd)

	rootCmd.AddCommand(usersCmd)
}
