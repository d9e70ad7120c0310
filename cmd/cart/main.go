package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ahinestrog/cartengine/internal/broker"
	"github.com/ahinestrog/cartengine/internal/cart"
	"github.com/ahinestrog/cartengine/internal/config"
	"github.com/ahinestrog/cartengine/internal/notify"
	"github.com/ahinestrog/cartengine/internal/order"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	envFile string
	backend string
	dbPath  string
	verbose bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	var rf rootFlags
	root := &cobra.Command{
		Use:           "cart",
		Short:         "Inspect and change the persisted shopping cart",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(out)
	root.SetErr(out)
	root.PersistentFlags().StringVar(&rf.envFile, "env", "", "load settings from this .env file")
	root.PersistentFlags().StringVar(&rf.backend, "storage", "", "storage backend: sqlite, redis or memory")
	root.PersistentFlags().StringVar(&rf.dbPath, "db", "", "cart SQLite path")
	root.PersistentFlags().BoolVarP(&rf.verbose, "verbose", "v", false, "debug logging")

	// withApp opens the cart for one command and drains the writer after it.
	withApp := func(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) (err error) {
			var files []string
			if rf.envFile != "" {
				files = append(files, rf.envFile)
			}
			cfg := config.LoadConfig(files...)
			if rf.backend != "" {
				cfg.Storage.Backend = rf.backend
			}
			if rf.dbPath != "" {
				cfg.Storage.DBPath = rf.dbPath
			}
			log := newLogger(cfg.LogLevel, rf.verbose)

			a, err := openApp(cmd.Context(), cfg, log, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer func() {
				if cerr := a.close(); cerr != nil && err == nil {
					err = cerr
				}
			}()
			return fn(cmd.Context(), a, args)
		}
	}

	root.AddCommand(
		newAddCmd(withApp),
		newRemoveCmd(withApp),
		newUpdateCmd(withApp),
		newClearCmd(withApp),
		newShowCmd(withApp),
		newProductsCmd(withApp),
		newCheckoutCmd(withApp),
		newBuyCmd(withApp),
		newWatchCmd(&rf),
	)
	return root
}

type runner func(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid product id %q", s)
	}
	return id, nil
}

// productFor loads the product and checks qty and variant against it.
func productFor(ctx context.Context, a *app, idArg string, qty float64, variant string) (cart.Product, error) {
	id, err := parseID(idArg)
	if err != nil {
		return cart.Product{}, err
	}
	p, err := a.products.Get(ctx, id)
	if err != nil {
		return cart.Product{}, err
	}
	if err := cart.ValidateQuantity(qty, p.Stock); err != nil {
		a.printToast(notify.InvalidQuantity(err))
		return cart.Product{}, err
	}
	if variant != "" && len(p.Variants) > 0 {
		for _, v := range p.Variants {
			if v.Label() == variant {
				return p.Product, nil
			}
		}
		return cart.Product{}, fmt.Errorf("product %d has no variant %q", id, variant)
	}
	return p.Product, nil
}

func newAddCmd(run runner) *cobra.Command {
	var qty float64
	var variant string
	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, args []string) error {
			p, err := productFor(ctx, a, args[0], qty, variant)
			if err != nil {
				return err
			}
			a.store.AddItem(p, int(qty), variant)
			return nil
		}),
	}
	cmd.Flags().Float64VarP(&qty, "qty", "q", 1, "quantity")
	cmd.Flags().StringVar(&variant, "variant", "", `variant label, e.g. "Maroon (8012)"`)
	return cmd
}

func newRemoveCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <key>",
		Short: "Remove a cart line by its key",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(_ context.Context, a *app, args []string) error {
			if _, ok := a.store.Find(args[0]); !ok {
				return fmt.Errorf("no cart item %q", args[0])
			}
			a.store.RemoveItem(args[0])
			return nil
		}),
	}
}

func newUpdateCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "update <key> <qty>",
		Short: "Set the quantity of a cart line; 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(_ context.Context, a *app, args []string) error {
			it, ok := a.store.Find(args[0])
			if !ok {
				return fmt.Errorf("no cart item %q", args[0])
			}
			qty, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				qty = math.NaN()
			}
			n := 0
			if verr := cart.ValidateQuantity(qty, it.Product.Stock); verr == nil {
				n = int(qty)
			} else if qty > 0 || cart.KindOf(verr) == cart.NotAnInteger {
				a.printToast(notify.InvalidQuantity(verr))
				return verr
			}
			a.store.UpdateQuantity(args[0], n)
			return nil
		}),
	}
}

func newClearCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: run(func(_ context.Context, a *app, _ []string) error {
			a.store.ClearCart()
			return nil
		}),
	}
}

func newShowCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the cart",
		Args:  cobra.NoArgs,
		RunE: run(func(_ context.Context, a *app, _ []string) error {
			printCart(a.out, a.store.Snapshot())
			return nil
		}),
	}
}

func printCart(out io.Writer, s cart.Snapshot) {
	if s.IsEmpty() {
		fmt.Fprintln(out, "Cart is empty")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tPRODUCT\tVARIANT\tQTY\tUNIT\tTOTAL")
	for _, it := range s.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			it.VariantKey, it.Product.Title, it.SelectedVariant, it.Quantity,
			order.FormatRupiah(cart.DiscountedPrice(it.Product)), order.FormatRupiah(it.LineTotal()))
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "\nTotal items: %d\nSubtotal:    %s\n", s.TotalItems, order.FormatRupiah(s.Subtotal))
	if savings := s.Savings(); savings > 0.5 {
		fmt.Fprintf(out, "You save:    %s\n", order.FormatRupiah(savings))
	}
}

func newProductsCmd(run runner) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "products [query]",
		Short: "List or search the catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: run(func(ctx context.Context, a *app, args []string) error {
			q := ""
			if len(args) == 1 {
				q = args[0]
			}
			items, err := a.products.List(ctx, q, limit, offset)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tSKU\tPRICE\tSTOCK\tVARIANTS")
			for _, p := range items {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\n",
					p.ID, p.Title, p.SKU, order.FormatRupiah(cart.DiscountedPrice(p.Product)), p.Stock, len(p.Variants))
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

// dispatcherFor prints the order link and, with useBroker, publishes it too.
func dispatcherFor(a *app, useBroker bool) (order.Dispatcher, func(), error) {
	d := order.Multi{order.LinkDispatcher{Open: func(_ context.Context, link string) error {
		_, err := fmt.Fprintln(a.out, link)
		return err
	}}}
	if !useBroker {
		return d, func() {}, nil
	}
	if a.cfg.RabbitURL == "" {
		return nil, nil, errors.New("--broker needs RABBITMQ_URL")
	}
	rabbit, err := broker.Dial(a.cfg.RabbitURL, a.cfg.CartExchange, a.log)
	if err != nil {
		return nil, nil, err
	}
	return append(d, order.NewBrokerDispatcher(rabbit)), rabbit.Close, nil
}

func newCheckoutCmd(run runner) *cobra.Command {
	var phone string
	var useBroker bool
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Send the cart as an order and clear it",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, a *app, _ []string) error {
			if phone == "" {
				phone = a.cfg.OrderPhone
			}
			if phone == "" {
				return errors.New("no phone: pass --phone or set ORDER_PHONE")
			}
			d, done, err := dispatcherFor(a, useBroker)
			if err != nil {
				return err
			}
			defer done()
			_, err = order.NewCheckout(a.store, d, phone, a.log, order.WithToasts(a.printToast)).Run(ctx)
			return err
		}),
	}
	cmd.Flags().StringVar(&phone, "phone", "", "order phone number (defaults to ORDER_PHONE)")
	cmd.Flags().BoolVar(&useBroker, "broker", false, "also publish order.requested to RabbitMQ")
	return cmd
}

func newBuyCmd(run runner) *cobra.Command {
	var qty float64
	var variant, phone string
	var useBroker bool
	cmd := &cobra.Command{
		Use:   "buy <product-id>",
		Short: "Order one product right away (it is also added to the cart)",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, args []string) error {
			if phone == "" {
				phone = a.cfg.OrderPhone
			}
			if phone == "" {
				return errors.New("no phone: pass --phone or set ORDER_PHONE")
			}
			p, err := productFor(ctx, a, args[0], qty, variant)
			if err != nil {
				return err
			}
			d, done, err := dispatcherFor(a, useBroker)
			if err != nil {
				return err
			}
			defer done()
			_, err = order.NewCheckout(a.store, d, phone, a.log, order.WithToasts(a.printToast)).BuyNow(ctx, p, int(qty), variant)
			return err
		}),
	}
	cmd.Flags().Float64VarP(&qty, "qty", "q", 1, "quantity")
	cmd.Flags().StringVar(&variant, "variant", "", "variant label")
	cmd.Flags().StringVar(&phone, "phone", "", "order phone number (defaults to ORDER_PHONE)")
	cmd.Flags().BoolVar(&useBroker, "broker", false, "also publish order.requested to RabbitMQ")
	return cmd
}

// newWatchCmd tails cart and order messages from the exchange. It does not
// touch the cart.
func newWatchCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print cart and order events published to RabbitMQ",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var files []string
			if rf.envFile != "" {
				files = append(files, rf.envFile)
			}
			cfg := config.LoadConfig(files...)
			if cfg.RabbitURL == "" {
				return errors.New("watch needs RABBITMQ_URL")
			}
			log := newLogger(cfg.LogLevel, rf.verbose)
			rabbit, err := broker.Dial(cfg.RabbitURL, cfg.CartExchange, log)
			if err != nil {
				return err
			}
			defer rabbit.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			out := cmd.OutOrStdout()
			err = rabbit.ConsumeTopic(ctx, []string{"cart.#", order.RKOrderRequested}, func(rk string, body []byte) error {
				_, err := fmt.Fprintf(out, "%s %s\n", rk, body)
				return err
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
