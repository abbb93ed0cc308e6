// Comando lotesctl: operaciones del motor de lotes desde la terminal, contra el
// almacén configurado (DB_DRIVER, DATABASE_URL, SQLITE_PATH...).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Inventario-lotes/internal/application/allocation"
	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
	"github.com/jhoicas/Inventario-lotes/internal/infrastructure/postgres"
	"github.com/jhoicas/Inventario-lotes/internal/infrastructure/storage"
	"github.com/jhoicas/Inventario-lotes/internal/infrastructure/txn"
	"github.com/jhoicas/Inventario-lotes/pkg/config"
	"github.com/jhoicas/Inventario-lotes/pkg/logger"
)

// exitErr lleva el código de salida por el camino de errores de cobra.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// app estado compartido por los subcomandos; se abre en PersistentPreRunE.
type app struct {
	uc      *allocation.UseCase
	backend txn.Backend
	out     io.Writer
	closeFn func()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{out: os.Stdout}
	root := newRootCmd(a)
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return a.open(cmd.Context())
	}
	root.PersistentPostRun = func(*cobra.Command, []string) {
		if a.closeFn != nil {
			a.closeFn()
		}
	}

	if err := root.ExecuteContext(ctx); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return codeError(3, "configuración: %s", err)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "lotesctl", Out: os.Stderr})
	backend, closeFn, err := storage.Open(ctx, cfg.DB, log)
	if err != nil {
		return codeError(3, "%s", err)
	}
	a.backend = backend
	a.closeFn = closeFn
	coord := txn.NewCoordinator(backend,
		txn.WithMaxAttempts(cfg.Tx.MaxAttempts),
		txn.WithBackoff(cfg.Tx.Backoff),
		txn.WithLogger(log),
	)
	a.uc = allocation.NewUseCase(coord, log)
	return nil
}

// newRootCmd arma el árbol de comandos sin abrir el almacén; los tests inyectan a.uc.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "lotesctl",
		Short:         "Asignación y devolución de lotes de inventario",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	var alloc allocation.AllocateInput
	allocateCmd := &cobra.Command{
		Use:   "allocate",
		Short: "Consumir paquetes en orden FIFO",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.uc.Allocate(cmd.Context(), alloc)
			if err != nil {
				return err
			}
			return a.print(res)
		},
	}
	f := allocateCmd.Flags()
	f.StringVar(&alloc.ConsumerID, "consumer", "", "Registro de consumo (vacío = nuevo)")
	f.StringVar(&alloc.Kind, "kind", entity.ConsumerKindSale, "sale o vendor_order")
	f.StringVar(&alloc.ProductID, "product", "", "Producto")
	f.Int64Var(&alloc.Packages, "packages", 0, "Paquetes a consumir")
	_ = allocateCmd.MarkFlagRequired("product")
	_ = allocateCmd.MarkFlagRequired("packages")

	var packages int64
	restoreCmd := &cobra.Command{
		Use:   "restore <consumer-id>",
		Short: "Devolver paquetes de un registro de consumo (LIFO)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.uc.Restore(cmd.Context(), args[0], packages)
			if err != nil {
				return err
			}
			return a.print(res)
		},
	}
	restoreCmd.Flags().Int64Var(&packages, "packages", 0, "Paquetes a devolver")
	_ = restoreCmd.MarkFlagRequired("packages")

	deleteCmd := &cobra.Command{
		Use:   "delete <consumer-id>",
		Short: "Devolver todo y eliminar el registro de consumo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.uc.DeleteAndRestore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(res)
		},
	}

	stockCmd := &cobra.Command{
		Use:   "stock <product-id>",
		Short: "Saldo por lote de un producto",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.uc.GetStock(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(res)
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check <order-id>...",
		Short: "Verificar que las órdenes cuadren con sus lotes (sale con código 2 si alguna no cuadra)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.check(cmd.Context(), args)
		},
	}

	var product entity.Product
	productCmd := &cobra.Command{
		Use:   "product",
		Short: "Alta de metadatos de catálogo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.uc.RegisterProduct(cmd.Context(), product)
			if err != nil {
				return err
			}
			return a.print(res)
		},
	}
	pf := productCmd.Flags()
	pf.StringVar(&product.ID, "id", "", "Id del producto")
	pf.StringVar(&product.Name, "name", "", "Nombre")
	pf.StringVar(&product.Line, "line", entity.LineCandies, "candies, clothing o poultry")
	pf.Int64Var(&product.UnitsPerPackage, "units-per-package", 1, "Unidades base por paquete")
	_ = productCmd.MarkFlagRequired("id")

	var (
		orderID  string
		received string
		items    []string
	)
	orderCmd := &cobra.Command{
		Use:   "order",
		Short: "Registrar una orden de origen; cada --item crea un lote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := parseOrder(orderID, received, items)
			if err != nil {
				return codeError(3, "%s", err)
			}
			res, err := a.uc.PlaceOrder(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.print(res)
		},
	}
	of := orderCmd.Flags()
	of.StringVar(&orderID, "id", "", "Id de la orden (vacío = generado)")
	of.StringVar(&received, "received", "", "Fecha de recepción YYYY-MM-DD (vacío = hoy)")
	of.StringArrayVar(&items, "item", nil, "producto:paquetes:costo_unitario[:unidades_por_paquete] (repetible)")
	_ = orderCmd.MarkFlagRequired("item")

	valuationCmd := &cobra.Command{
		Use:   "valuation",
		Short: "Valorizar todo el inventario con una consulta agregada (solo DB_DRIVER=postgres)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, ok := a.backend.(*postgres.DocumentStore)
			if !ok {
				return codeError(3, "valuation requiere DB_DRIVER=postgres")
			}
			values, err := store.InventoryValue(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(values)
		},
	}

	root.AddCommand(allocateCmd, restoreCmd, deleteCmd, stockCmd, checkCmd, productCmd, orderCmd, valuationCmd)
	return root
}

// check verifica varias órdenes en paralelo.
func (a *app) check(ctx context.Context, orderIDs []string) error {
	reports := make([]*allocation.LedgerReport, len(orderIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, id := range orderIDs {
		i, id := i, id
		g.Go(func() error {
			r, err := a.uc.CheckOrderLedger(gctx, id)
			if err != nil {
				return fmt.Errorf("orden %s: %w", id, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := a.print(reports); err != nil {
		return err
	}
	var bad []string
	for _, r := range reports {
		if !r.Consistent {
			bad = append(bad, r.OrderID)
		}
	}
	if len(bad) > 0 {
		return codeError(2, "órdenes descuadradas: %s", strings.Join(bad, ", "))
	}
	return nil
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseOrder traduce los --item "producto:paquetes:costo[:unidades]" a la entrada de PlaceOrder.
func parseOrder(orderID, received string, items []string) (allocation.PlaceOrderInput, error) {
	in := allocation.PlaceOrderInput{OrderID: orderID}
	if received != "" {
		t, err := time.Parse("2006-01-02", received)
		if err != nil {
			return in, fmt.Errorf("--received: %w", err)
		}
		in.ReceivedAt = t
	}
	for _, raw := range items {
		parts := strings.Split(raw, ":")
		if len(parts) < 3 || len(parts) > 4 {
			return in, fmt.Errorf("--item %q: se espera producto:paquetes:costo[:unidades]", raw)
		}
		pkgs, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return in, fmt.Errorf("--item %q: paquetes: %w", raw, err)
		}
		cost, err := decimal.NewFromString(parts[2])
		if err != nil {
			return in, fmt.Errorf("--item %q: costo: %w", raw, err)
		}
		it := allocation.OrderItemInput{ProductID: parts[0], Packages: pkgs, UnitCost: cost}
		if len(parts) == 4 {
			if it.UnitsPerPackage, err = strconv.ParseInt(parts[3], 10, 64); err != nil {
				return in, fmt.Errorf("--item %q: unidades: %w", raw, err)
			}
		}
		in.Items = append(in.Items, it)
	}
	return in, nil
}
