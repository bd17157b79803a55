package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/couchkit/couchkit"
)

var (
	viewCmd = &cobra.Command{
		Use:   "view [ddoc] [view]",
		Short: "Stream the rows of a view query",
		Args:  cobra.ExactArgs(2),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := url.Values{}
			if limit := viper.GetInt("limit"); limit > 0 {
				opts.Set("limit", fmt.Sprint(limit))
			}
			for _, p := range viper.GetStringSlice("param") {
				k, v, ok := strings.Cut(p, "=")
				if !ok {
					return fmt.Errorf("invalid --param %q, want key=value", p)
				}
				opts.Set(k, v)
			}

			return withBucket(func(bucket *couchkit.Bucket) error {
				it, err := bucket.ViewIterator(args[0], args[1], opts)
				if err != nil {
					return err
				}

				count := 0
				for {
					rows := it.NextBatch()
					if rows == nil {
						break
					}
					for _, row := range rows {
						count++
						fmt.Printf("%s\t%s\t%s\n", row.ID, row.Key, row.Value)
					}
				}

				stream := it.Stream()
				if !stream.Status().Ok() {
					return fmt.Errorf("view query failed: %s (http %d)", stream.Status(), stream.HTTPStatus())
				}
				fmt.Printf("%d rows\n", count)
				return nil
			})
		},
	}

	designCmd = &cobra.Command{
		Use:   "design",
		Short: "Manage design documents",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(cmd)
		},
	}

	designGetCmd = &cobra.Command{
		Use:   "get [name]",
		Short: "Fetch a design document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBucket(func(bucket *couchkit.Bucket) error {
				res, err := bucket.DesignGet(args[0])
				if err != nil {
					return err
				}
				if !res.Ok() {
					return fmt.Errorf("design get %q: %s (http %d)", args[0], res.Status, res.HTTPStatus)
				}
				fmt.Println(string(res.Meta))
				return nil
			})
		},
	}

	designPutCmd = &cobra.Command{
		Use:   "put [file]",
		Short: "Store a design document from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return withBucket(func(bucket *couchkit.Bucket) error {
				res, err := bucket.DesignPut(body)
				if err != nil {
					return err
				}
				if !res.Ok() {
					return fmt.Errorf("design put: %s (http %d)", res.Status, res.HTTPStatus)
				}
				fmt.Println("stored")
				return nil
			})
		},
	}

	designDelCmd = &cobra.Command{
		Use:   "del [name]",
		Short: "Delete a design document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBucket(func(bucket *couchkit.Bucket) error {
				res, err := bucket.DesignRemove(args[0])
				if err != nil {
					return err
				}
				if !res.Ok() {
					return fmt.Errorf("design del %q: %s (http %d)", args[0], res.Status, res.HTTPStatus)
				}
				fmt.Println("deleted")
				return nil
			})
		},
	}
)

func init() {
	viewCmd.Flags().Int("limit", 0, "maximum number of rows to fetch")
	viewCmd.Flags().StringSlice("param", nil, "extra query parameter as key=value, repeatable")

	designCmd.AddCommand(designGetCmd)
	designCmd.AddCommand(designPutCmd)
	designCmd.AddCommand(designDelCmd)

	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(designCmd)
}
