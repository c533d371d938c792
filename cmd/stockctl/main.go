package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/inventory"
)

var Version = "dev"

// ledger is the part of the stock ledger the CLI drives.
type ledger interface {
	AdjustStock(ctx context.Context, a inventory.Adjustment) (*inventory.InventoryStatus, error)
	ReserveStock(ctx context.Context, productID, variantID string, qty int) (*inventory.InventoryStatus, error)
	ReleaseStock(ctx context.Context, productID, variantID string, qty int) (*inventory.InventoryStatus, error)
	GetInventoryStatus(ctx context.Context, productID string) (*inventory.InventoryStatus, error)
	GetLowStockProducts(ctx context.Context, limit int) ([]inventory.InventoryStatus, error)
	GetInventoryHistory(ctx context.Context, q inventory.HistoryQuery) ([]inventory.HistoryEntry, error)
}

// openFunc connects a ledger; the returned func releases its connections.
type openFunc func(ctx context.Context) (ledger, func(), error)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(openLedger, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(open openFunc, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "stockctl",
		Short:         "Operate the stock ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(adjustCmd(open))
	root.AddCommand(quantityCmd(open, "reserve", "Hold units of available stock", func(l ledger) func(context.Context, string, string, int) (*inventory.InventoryStatus, error) {
		return l.ReserveStock
	}))
	root.AddCommand(quantityCmd(open, "release", "Return held units to available stock", func(l ledger) func(context.Context, string, string, int) (*inventory.InventoryStatus, error) {
		return l.ReleaseStock
	}))
	root.AddCommand(statusCmd(open))
	root.AddCommand(lowStockCmd(open))
	root.AddCommand(historyCmd(open))
	return root
}

// withLedger opens a ledger for the duration of one command.
func withLedger(cmd *cobra.Command, open openFunc, fn func(ctx context.Context, l ledger) (any, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	l, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	v, err := fn(ctx, l)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func adjustCmd(open openFunc) *cobra.Command {
	var variant, reason, reference, actor string
	cmd := &cobra.Command{
		Use:   "adjust [flags] <productID> <change>",
		Short: "Apply a signed stock change and record it in the ledger",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			change, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("change must be an integer: %q", args[1])
			}
			return withLedger(cmd, open, func(ctx context.Context, l ledger) (any, error) {
				return l.AdjustStock(ctx, inventory.Adjustment{
					ProductID: args[0],
					VariantID: variant,
					Change:    change,
					Reason:    inventory.Reason(reason),
					Reference: reference,
					ActorID:   actor,
				})
			})
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", "Variant id")
	cmd.Flags().StringVarP(&reason, "reason", "r", string(inventory.ReasonManualAdjustment), "Adjustment reason")
	cmd.Flags().StringVar(&reference, "reference", "", "External reference")
	cmd.Flags().StringVar(&actor, "actor", os.Getenv("USER"), "Operator recorded on the entry")
	// flags stop at productID so a negative change is not read as a flag
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func quantityCmd(open openFunc, use, short string,
	pick func(ledger) func(context.Context, string, string, int) (*inventory.InventoryStatus, error),
) *cobra.Command {
	var variant string
	cmd := &cobra.Command{
		Use:   use + " <productID> <qty>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("qty must be an integer: %q", args[1])
			}
			return withLedger(cmd, open, func(ctx context.Context, l ledger) (any, error) {
				return pick(l)(ctx, args[0], variant, qty)
			})
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", "Variant id")
	return cmd
}

func statusCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status <productID>",
		Short: "Show stock figures for a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, open, func(ctx context.Context, l ledger) (any, error) {
				return l.GetInventoryStatus(ctx, args[0])
			})
		},
	}
}

func lowStockCmd(open openFunc) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "low-stock",
		Short: "List tracked products under their low-stock threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, open, func(ctx context.Context, l ledger) (any, error) {
				return l.GetLowStockProducts(ctx, limit)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum results")
	return cmd
}

func historyCmd(open openFunc) *cobra.Command {
	var (
		variant       string
		limit, offset int
	)
	cmd := &cobra.Command{
		Use:   "history <productID>",
		Short: "Show ledger entries for a product, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, open, func(ctx context.Context, l ledger) (any, error) {
				return l.GetInventoryHistory(ctx, inventory.HistoryQuery{
					ProductID: args[0],
					VariantID: variant,
					Limit:     limit,
					Offset:    offset,
				})
			})
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", "Only entries for this variant")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Entries to skip")
	return cmd
}
