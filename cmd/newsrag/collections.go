package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/argnews/newsrag/internal/vectorstore"
	"github.com/argnews/newsrag/pkg/types"
)

func newCollectionsCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "List, inspect and delete vector collections",
	}

	withStore := func(cmd *cobra.Command, fn func(a *app, store vectorstore.Store) error) error {
		return withApp(root, func(a *app) error {
			store, err := a.vectorStore(cmd.Context())
			if err != nil {
				return err
			}
			return fn(a, store)
		})
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(a *app, store vectorstore.Store) error {
				collections, err := store.ListCollections(cmd.Context())
				if err != nil {
					return err
				}
				if len(collections) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no collections")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tDIMENSION\tDISTANCE\tPOINTS")
				for _, c := range collections {
					fmt.Fprintf(tw, "%s\t%d\t%s\t%d\n", c.Name, c.Dimension, c.Distance, c.PointsCount)
				}
				return tw.Flush()
			})
		},
	}

	info := &cobra.Command{
		Use:   "info NAME",
		Short: "Show one collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(a *app, store vectorstore.Store) error {
				c, err := store.CollectionInfo(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(c)
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(a *app, store vectorstore.Store) error {
				if err := store.DeleteCollection(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}

	var except string
	deleteAll := &cobra.Command{
		Use:   "delete-all",
		Short: "Delete every collection, optionally keeping some",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(a *app, store vectorstore.Store) error {
				keep := make(map[string]struct{})
				for _, name := range types.ParseKeywordList(except) {
					keep[name] = struct{}{}
				}

				deleted, err := deleteCollections(cmd, store, keep)
				if err != nil {
					return err
				}
				a.log.Info("collections deleted", zap.Int("deleted", deleted), zap.Int("kept", len(keep)))
				return nil
			})
		},
	}
	deleteAll.Flags().StringVar(&except, "except", "", "comma-separated collections to keep")

	cmd.AddCommand(list, info, del, deleteAll)
	return cmd
}

func deleteCollections(cmd *cobra.Command, store vectorstore.Store, keep map[string]struct{}) (int, error) {
	ctx := cmd.Context()
	collections, err := store.ListCollections(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, c := range collections {
		if _, ok := keep[c.Name]; ok {
			fmt.Fprintf(cmd.OutOrStdout(), "kept %s\n", c.Name)
			continue
		}
		if err := store.DeleteCollection(ctx, c.Name); err != nil {
			return deleted, fmt.Errorf("delete %s: %w", c.Name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", c.Name)
		deleted++
	}
	return deleted, nil
}
