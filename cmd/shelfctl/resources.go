package main

import (
	"fmt"
	neturl "net/url"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	submitCmd := &cobra.Command{
		Use:   "submit URL",
		Short: "Submit a web resource for publication",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			data, err := doPostJSON(apiFlag+"/submit", map[string]interface{}{
				"url":    args[0],
				"userId": userFlag,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	rootCmd.AddCommand(submitCmd)

	refreshCmd := &cobra.Command{
		Use:   "refresh RESOURCE_ID",
		Short: "Re-scrape a published resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			data, err := doPostJSON(apiFlag+"/refresh", map[string]interface{}{
				"resourceId": args[0],
				"userId":     userFlag,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	rootCmd.AddCommand(refreshCmd)

	detailsCmd := &cobra.Command{
		Use:   "details RESOURCE_ID",
		Short: "Fetch the full record of a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := fmt.Sprintf("%s/details?resourceId=%s", apiFlag, neturl.QueryEscape(args[0]))
			data, err := doGet(url)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	rootCmd.AddCommand(detailsCmd)

	viewCmd := &cobra.Command{
		Use:   "view RESOURCE_ID",
		Short: "Record a view on a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{"resourceId": args[0]}
			if userFlag != "" {
				payload["userId"] = userFlag
			}
			data, err := doPutJSON(apiFlag+"/view", payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	rootCmd.AddCommand(viewCmd)

	bookmarkCmd := &cobra.Command{
		Use:   "bookmark RESOURCE_ID",
		Short: "Bookmark a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			data, err := doPutJSON(apiFlag+"/bookmark", map[string]interface{}{
				"userId":     userFlag,
				"resourceId": args[0],
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	rootCmd.AddCommand(bookmarkCmd)

	unbookmarkCmd := &cobra.Command{
		Use:   "unbookmark RESOURCE_ID",
		Short: "Remove a bookmark from a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			data, err := doDeleteJSON(apiFlag+"/bookmark", map[string]interface{}{
				"userId":     userFlag,
				"resourceId": args[0],
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	rootCmd.AddCommand(unbookmarkCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List published resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(apiFlag + "/resources")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	rootCmd.AddCommand(listCmd)

	searchCmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search published resources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			url := fmt.Sprintf("%s/search?q=%s", apiFlag, neturl.QueryEscape(args[0]))
			if limit > 0 {
				url = fmt.Sprintf("%s&limit=%d", url, limit)
			}
			data, err := doGet(url)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	searchCmd.Flags().IntP("limit", "k", 0, "Maximum number of results")
	rootCmd.AddCommand(searchCmd)
}
