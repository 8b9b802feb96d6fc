package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/argnews/newsrag/internal/embedder"
)

func newEmbedCheckCmd(root *rootFlags) *cobra.Command {
	var (
		strategyName string
		text         string
		show         int
	)

	cmd := &cobra.Command{
		Use:   "embed-check",
		Short: "Embed one text and print the vector's dimension, norm and first values",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, func(a *app) error {
				strategy, err := embedder.ParseStrategy(strategyName)
				if err != nil {
					return err
				}

				ctx := cmd.Context()
				refit, err := a.refitter(ctx)
				if err != nil {
					return err
				}
				emb, err := refit.Embedder(ctx, strategy)
				if err != nil {
					return err
				}
				defer func() { _ = emb.Close() }()

				vec, err := emb.Embed(ctx, text)
				if err != nil {
					return err
				}

				show = max(show, 0)
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "strategy:   %s\n", emb.Strategy())
				fmt.Fprintf(out, "collection: %s\n", emb.CollectionName())
				fmt.Fprintf(out, "dimension:  %d (declared %d)\n", len(vec), emb.Dimension())
				fmt.Fprintf(out, "norm:       %.6f\n", embedder.L2Norm(vec))
				fmt.Fprintf(out, "first:      %v\n", vec[:min(show, len(vec))])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&strategyName, "embedder", string(embedder.StrategyMiniLM), "embedding strategy")
	cmd.Flags().StringVar(&text, "text", "El Banco Central mantuvo la tasa de interés", "text to embed")
	cmd.Flags().IntVar(&show, "show", 5, "number of leading values to print")
	return cmd
}
