package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/couchkit/couchkit"
)

var (
	kvCmd = &cobra.Command{
		Use:   "kv",
		Short: "Perform key-value operations",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(cmd)
		},
	}

	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Read the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBucket(func(bucket *couchkit.Bucket) error {
				doc, err := bucket.GetByID(args[0])
				if err != nil {
					return err
				}
				if !doc.Ok() {
					return fmt.Errorf("get %q: %s", args[0], doc.ErrorMessage())
				}
				fmt.Printf("cas=%d format=%d\n%s\n", doc.Cas, doc.Format, doc.Value)
				return nil
			})
		},
	}

	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Store a value under a key, creating or replacing it",
		Args:  cobra.ExactArgs(2),
		RunE:  mutateCmd(func(b *couchkit.Bucket, d *couchkit.Document, o *couchkit.OpOptions) error { return b.Upsert(d, o) }),
	}

	addCmd = &cobra.Command{
		Use:   "add [key] [value]",
		Short: "Store a value only if the key does not exist",
		Args:  cobra.ExactArgs(2),
		RunE:  mutateCmd(func(b *couchkit.Bucket, d *couchkit.Document, o *couchkit.OpOptions) error { return b.Insert(d, o) }),
	}

	replaceCmd = &cobra.Command{
		Use:   "replace [key] [value]",
		Short: "Store a value only if the key already exists",
		Args:  cobra.ExactArgs(2),
		RunE:  mutateCmd(func(b *couchkit.Bucket, d *couchkit.Document, o *couchkit.OpOptions) error { return b.Replace(d, o) }),
	}

	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBucket(func(bucket *couchkit.Bucket) error {
				doc := couchkit.NewDocument(args[0])
				if err := bucket.Remove(doc, kvOptions()); err != nil {
					return err
				}
				if !doc.Ok() {
					return fmt.Errorf("del %q: %s", args[0], doc.ErrorMessage())
				}
				fmt.Println("deleted")
				return nil
			})
		},
	}

	touchCmd = &cobra.Command{
		Use:   "touch [key] [expiry]",
		Short: "Update a key's expiration without changing its value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			expiry, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("expiry must be a number: %w", err)
			}
			return withBucket(func(bucket *couchkit.Bucket) error {
				doc := couchkit.NewDocument(args[0])
				opts := kvOptions()
				opts.Expiry = uint32(expiry)
				if err := bucket.Touch(doc, opts); err != nil {
					return err
				}
				if !doc.Ok() {
					return fmt.Errorf("touch %q: %s", args[0], doc.ErrorMessage())
				}
				fmt.Println("touched")
				return nil
			})
		},
	}
)

func init() {
	kvCmd.PersistentFlags().Uint32("expiry", 0, "expiration in seconds (or absolute Unix time)")
	kvCmd.PersistentFlags().Uint64("cas", 0, "expected CAS token, 0 for unconditional")
	kvCmd.PersistentFlags().Bool("raw", false, "treat the value as raw bytes instead of JSON")

	kvCmd.AddCommand(getCmd)
	kvCmd.AddCommand(setCmd)
	kvCmd.AddCommand(addCmd)
	kvCmd.AddCommand(replaceCmd)
	kvCmd.AddCommand(delCmd)
	kvCmd.AddCommand(touchCmd)

	rootCmd.AddCommand(kvCmd)
}

func kvOptions() *couchkit.OpOptions {
	return &couchkit.OpOptions{Expiry: viper.GetUint32("expiry")}
}

// mutateCmd builds a RunE for the store-style subcommands, which differ
// only in which Bucket method they dispatch.
func mutateCmd(op func(*couchkit.Bucket, *couchkit.Document, *couchkit.OpOptions) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withBucket(func(bucket *couchkit.Bucket) error {
			var doc *couchkit.Document
			if viper.GetBool("raw") {
				doc = couchkit.NewRawDocument(args[0], []byte(args[1]))
			} else {
				doc = couchkit.NewDocument(args[0])
				doc.Value = []byte(args[1])
			}
			doc.Cas = viper.GetUint64("cas")

			if err := op(bucket, doc, kvOptions()); err != nil {
				return err
			}
			if !doc.Ok() {
				return fmt.Errorf("%s %q: %s", cmd.Name(), args[0], doc.ErrorMessage())
			}
			fmt.Printf("stored cas=%d\n", doc.Cas)
			return nil
		})
	}
}

func withBucket(fn func(*couchkit.Bucket) error) error {
	bucket, err := newBucket()
	if err != nil {
		return err
	}
	defer bucket.Close()
	return fn(bucket)
}
