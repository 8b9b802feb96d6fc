package main

import (
	"github.com/spf13/cobra"

	"github.com/argnews/newsrag/internal/api"
	"github.com/argnews/newsrag/internal/corpus"
	"github.com/argnews/newsrag/internal/mcp"
)

func newServeCmd(root *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, func(a *app) error {
				ctx := cmd.Context()
				s, err := a.newSearcher(ctx, corpus.LoadOptions{}, nil)
				if err != nil {
					return err
				}
				defer func() { _ = s.Close() }()
				store, err := a.vectorStore(ctx)
				if err != nil {
					return err
				}

				cfg := a.cfg.Server
				if addr != "" {
					cfg.Addr = addr
				}
				return api.New(s, store, api.Config{
					Addr:           cfg.Addr,
					ReadTimeout:    cfg.ReadTimeout,
					WriteTimeout:   cfg.WriteTimeout,
					RequestTimeout: cfg.RequestTimeout,
					Logger:         a.log.Named("api"),
				}).Run(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func newMCPCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the search tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, func(a *app) error {
				// stdout carries the protocol; the logger writes to stderr
				ctx := cmd.Context()
				s, err := a.newSearcher(ctx, corpus.LoadOptions{}, nil)
				if err != nil {
					return err
				}
				defer func() { _ = s.Close() }()
				store, err := a.vectorStore(ctx)
				if err != nil {
					return err
				}

				return mcp.NewServer(s, store, a.log.Named("mcp")).Serve(ctx)
			})
		},
	}
}
