package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	adminCmd := &cobra.Command{Use: "admin", Short: "Partition backup and restore"}

	var backupOut string
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Dump the resource partition verbatim",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doPostRaw(apiFlag+"/backup", nil)
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
	backupCmd.Flags().StringVarP(&backupOut, "out", "o", "", "Write the dump to a file instead of stdout")
	adminCmd.AddCommand(backupCmd)

	var restoreIn string
	restoreCmd := &cobra.Command{
		Use:   "restore",
		Short: "Replace the resource partition with a previous dump",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(restoreIn)
			if err != nil {
				return err
			}
			data, err := doPostRaw(apiFlag+"/restore", body)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	restoreCmd.Flags().StringVarP(&restoreIn, "in", "i", "", "File holding a previous dump (required)")
	_ = restoreCmd.MarkFlagRequired("in")
	adminCmd.AddCommand(restoreCmd)

	rootCmd.AddCommand(adminCmd)
}
