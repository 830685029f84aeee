package main

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"cryptoquote/internal/provider"
)

type amountResult struct {
	Symbol   string            `json:"symbol"`
	Currency provider.Currency `json:"currency"`
	Amount   json.Number       `json:"amount"`
}

func getQuoteCommand(params *rootParams) *cobra.Command {
	var currency string
	cmd := &cobra.Command{
		Use:   "quote SYMBOL",
		Short: "prints the USD price of SYMBOL converted into EUR, BRL, GBP and AUD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, comps, err := params.setup(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			quote, err := comps.Quotes.GetQuote(ctx, args[0])
			if err != nil {
				return err
			}
			if currency == "" {
				return writeJSON(cmd.OutOrStdout(), quote)
			}

			code := provider.Currency(strings.ToUpper(strings.TrimSpace(currency)))
			amount, ok := quote.In(code)
			if !ok {
				return errors.Errorf("unsupported currency %q", currency)
			}
			return writeJSON(cmd.OutOrStdout(), amountResult{
				Symbol:   quote.Symbol,
				Currency: code,
				Amount:   json.Number(amount.String()),
			})
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "", "print only the amount in this currency (USD, EUR, BRL, GBP or AUD)")
	return cmd
}

type priceResult struct {
	Symbol string      `json:"symbol"`
	USD    json.Number `json:"usd"`
}

func getPriceCommand(params *rootParams) *cobra.Command {
	var apiKey string
	cmd := &cobra.Command{
		Use:   "price SYMBOL",
		Short: "prints the CoinMarketCap USD price of SYMBOL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, comps, err := params.setup(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			symbol := provider.NormalizeSymbol(args[0])
			if !provider.ValidSymbol(symbol) {
				return provider.ErrInvalidSymbol
			}
			if apiKey == "" {
				apiKey = comps.Credentials.CoinMarketCapAPIKey
			}
			usd, err := comps.Prices.FetchUSDPrice(ctx, symbol, apiKey)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), priceResult{Symbol: symbol, USD: json.Number(usd.String())})
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "CoinMarketCap API key (defaults to the configured one)")
	return cmd
}

func getRatesCommand(params *rootParams) *cobra.Command {
	var apiKey string
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "prints the USD exchange rates for EUR, BRL, GBP and AUD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel, comps, err := params.setup(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			if apiKey == "" {
				apiKey = comps.Credentials.ExchangeRatesAPIKey
			}
			rates, err := comps.Rates.FetchRates(ctx, apiKey)
			if err != nil {
				return err
			}
			out := make(map[provider.Currency]json.Number, len(rates))
			for currency, rate := range rates {
				out[currency] = json.Number(rate.String())
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "exchangeratesapi.io access key (defaults to the configured one)")
	return cmd
}
