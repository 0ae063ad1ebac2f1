package kv

import (
	"fmt"

	"github.com/ValentinKolb/syncstore/lib/store"
	"github.com/spf13/cobra"
)

var (
	listCmd = &cobra.Command{
		Use:   "list [prefix]",
		Short: "Lists all records with a prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := args[0]
			records, err := backend.ReadAllRecordsWithPrefix(prefix)
			if err != nil {
				return err
			}
			for _, r := range records {
				fmt.Printf("id=%s, value=%s\n", r.ID, r.Value)
			}
			fmt.Printf("%d records\n", len(records))
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [prefix] [id...]",
		Short: "Reads the records with the given ids",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := args[0]
			found, missing, err := backend.ReadRecordsWithPrefix(prefix, args[1:])
			if err != nil {
				return err
			}
			for _, r := range found {
				fmt.Printf("id=%s, found=true, value=%s\n", r.ID, r.Value)
			}
			for _, id := range missing {
				fmt.Printf("id=%s, found=false\n", id)
			}
			return nil
		},
	}
	putCmd = &cobra.Command{
		Use:   "put [prefix] [id] [value]",
		Short: "Writes the value of a record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, id, value := args[0], args[1], args[2]
			if err := backend.WriteModifications(store.NewWriteBatch().PutWithPrefix(prefix, id, []byte(value))); err != nil {
				return err
			} else {
				fmt.Println("put successfully")
			}
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [prefix] [id...]",
		Short: "Deletes records in one batch",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := args[0]
			batch := store.NewWriteBatch()
			for _, id := range args[1:] {
				batch.DeleteWithPrefix(prefix, id)
			}
			if err := backend.WriteModifications(batch); err != nil {
				return err
			} else {
				fmt.Printf("deleted %d records\n", batch.Len())
			}
			return nil
		},
	}
	dropCmd = &cobra.Command{
		Use:   "drop [prefix]",
		Short: "Deletes all records with a prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := args[0]
			if err := backend.DeleteDataAndMetadataForPrefix(prefix); err != nil {
				return err
			} else {
				fmt.Println("drop successfully")
			}
			return nil
		},
	}
)
