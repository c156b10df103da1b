// Command cartctl drives the cart engine against a running cart service,
// useful for poking at the mock service or a staging backend.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appcart "github.com/storefront/cartsync/internal/application/cart"
	domaincart "github.com/storefront/cartsync/internal/domain/cart"
	"github.com/storefront/cartsync/internal/infrastructure/api"
	"github.com/storefront/cartsync/internal/infrastructure/cache"
	"github.com/storefront/cartsync/internal/infrastructure/config"
	"github.com/storefront/cartsync/internal/infrastructure/event"
	"github.com/storefront/cartsync/internal/infrastructure/logger"
	"github.com/storefront/cartsync/internal/infrastructure/session"
)

// app bundles the wired engine for command handlers
type app struct {
	store     *appcart.Store
	snapshots domaincart.SnapshotStore
	log       *zap.Logger
}

// newApp wires config, logger, session, client, cache, bus and store in
// the usual bootstrap order
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	tokens := session.Static(cfg.Session.Token)

	client, err := api.NewClient(cfg.API, tokens, log)
	if err != nil {
		return nil, err
	}

	snapshots, err := cache.NewSnapshotStoreFactory(cfg.Cache, cache.WithLogger(log)).CreateStore()
	if err != nil {
		return nil, err
	}

	bus := event.NewInMemoryEventBus(log)
	store := appcart.NewStore(client, snapshots, tokens, bus, appcart.WithLogger(log))

	return &app{store: store, snapshots: snapshots, log: log}, nil
}

func (a *app) close() {
	if err := a.snapshots.Close(); err != nil {
		a.log.Warn("failed to close snapshot cache", zap.Error(err))
	}
	_ = logger.Sync(a.log)
}

// printCart renders the current view
func (a *app) printCart() {
	lines := a.store.Lines()
	if len(lines) == 0 {
		fmt.Println("cart is empty")
		return
	}
	for _, l := range lines {
		fmt.Printf("%-8d %-24s size=%-3s qty=%-4d price=%-12s state=%s\n",
			l.ProductID, l.Name, l.Size, l.Quantity, l.UnitPrice.String(), l.SyncState)
	}
	fmt.Printf("total: %d item(s), %s\n", a.store.TotalItems(), a.store.TotalPrice().String())
}

func main() {
	var a *app

	root := &cobra.Command{
		Use:           "cartctl",
		Short:         "Drive the cart sync engine from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			a, err = newApp()
			if err != nil {
				return err
			}
			a.store.Hydrate(cmd.Context())
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a != nil {
				a.close()
			}
		},
	}

	var (
		addQty  int64
		addSize string
		addName string
		price   string
	)
	addCmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add an item to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid product id %q", args[0])
			}
			unitPrice, err := decimal.NewFromString(price)
			if err != nil {
				return fmt.Errorf("invalid price %q", price)
			}
			a.store.AddToCart(cmd.Context(), appcart.AddInput{
				ProductID: productID,
				Name:      addName,
				UnitPrice: unitPrice,
				Quantity:  addQty,
				Size:      addSize,
			})
			a.printCart()
			return nil
		},
	}
	addCmd.Flags().Int64Var(&addQty, "qty", 1, "quantity to add")
	addCmd.Flags().StringVar(&addSize, "size", "", "selected size")
	addCmd.Flags().StringVar(&addName, "name", "", "display name")
	addCmd.Flags().StringVar(&price, "price", "0", "display unit price")

	var setSize string
	setCmd := &cobra.Command{
		Use:   "set <product-id> <quantity>",
		Short: "Set the absolute quantity of a cart line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid product id %q", args[0])
			}
			qty, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			a.store.UpdateQuantity(cmd.Context(), productID, qty, setSize)
			a.printCart()
			return nil
		},
	}
	setCmd.Flags().StringVar(&setSize, "size", "", "selected size")

	var rmSize string
	rmCmd := &cobra.Command{
		Use:   "rm <product-id>",
		Short: "Remove a cart line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid product id %q", args[0])
			}
			a.store.RemoveFromCart(cmd.Context(), productID, rmSize)
			a.printCart()
			return nil
		},
	}
	rmCmd.Flags().StringVar(&rmSize, "size", "", "selected size")

	lsCmd := &cobra.Command{
		Use:   "ls",
		Short: "Show the current cart",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			a.printCart()
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.store.ClearCart(cmd.Context())
			a.printCart()
			return nil
		},
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Force a full resync from the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.store.Refresh(cmd.Context()); err != nil {
				return err
			}
			a.printCart()
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Re-check every line against current catalog truth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := a.store.ValidateCart(cmd.Context())
			if err != nil {
				return err
			}
			if result == nil {
				fmt.Println("not signed in; nothing to validate")
				return nil
			}
			if result.Valid {
				fmt.Println("cart is valid")
			}
			for _, change := range result.Changes {
				fmt.Printf("[%s] product %d: %s\n", change.Kind, change.ProductID, change.Message)
			}
			return nil
		},
	}

	root.AddCommand(addCmd, setCmd, rmCmd, lsCmd, clearCmd, refreshCmd, validateCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
