package main

import (
	"encoding/json"

	"github.com/rmtechsolution/valentine-backend/services/story-service/pricing"
	"github.com/spf13/cobra"
)

func quoteCmd() *cobra.Command {
	var code string
	var base int64

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a story with a promo code against the built-in catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			quote, err := pricing.ApplyPromo(cmd.Context(), pricing.NewStaticCatalog(), base, code)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(quote)
		},
	}

	cmd.Flags().StringVarP(&code, "code", "c", "", "promo code")
	cmd.Flags().Int64Var(&base, "base", pricing.BasePrice, "base price in rupees")
	return cmd
}
