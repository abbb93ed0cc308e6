package allocation

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
)

// Modos de devolución informados al llamador.
const (
	ModePrecise = "precise"
	ModeLegacy  = "legacy"
	ModeNoop    = "noop"
)

// UseCase motor de asignación y devolución de lotes.
// Cada operación de escritura es una sola transacción del TxRunner.
type UseCase struct {
	tx    TxRunner
	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

// Option ajusta el caso de uso (reloj, generador de ids).
type Option func(*UseCase)

// WithClock reemplaza el reloj.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) { uc.now = now }
}

// WithIDGenerator reemplaza el generador de ids.
func WithIDGenerator(gen func() string) Option {
	return func(uc *UseCase) { uc.newID = gen }
}

// NewUseCase construye el caso de uso.
func NewUseCase(tx TxRunner, log zerolog.Logger, opts ...Option) *UseCase {
	uc := &UseCase{
		tx:    tx,
		log:   log,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(uc)
	}
	return uc
}

// AllocateInput entrada de Allocate. ConsumerID vacío crea un registro nuevo.
type AllocateInput struct {
	ConsumerID string
	Kind       string // sale | vendor_order; vacío = sale
	ProductID  string
	Packages   int64
}

// AllocateResult asignaciones tomadas en esta llamada.
type AllocateResult struct {
	ConsumerID  string
	Allocations []entity.Allocation
	TotalCost   decimal.Decimal
}

// RestoreResult resultado de una devolución.
type RestoreResult struct {
	ConsumerID       string
	RestoredPackages int64
	Mode             string
	State            string
}

// BatchStock saldo de un lote.
type BatchStock struct {
	BatchID           string
	SourceOrderID     string
	ReceivedAt        time.Time
	UnitsPerPackage   int64
	TotalUnits        int64
	RemainingUnits    int64
	RemainingPackages int64
	UnitCost          decimal.Decimal
}

// StockView saldo de un producto por lote, en orden FIFO.
type StockView struct {
	ProductID      string
	TotalRemaining int64 // paquetes
	RemainingUnits int64
	Value          decimal.Decimal
	AverageCost    decimal.Decimal
	PerBatch       []BatchStock
}

// GarmentSaleInput entrada de AllocateGarments. SaleID vacío crea la venta.
type GarmentSaleInput struct {
	SaleID    string
	ProductID string
	Quantity  int64
}

// GarmentSaleResult registros de auditoría escritos por la venta.
type GarmentSaleResult struct {
	SaleID    string
	Records   []entity.AllocationAudit
	TotalCost decimal.Decimal
}

// OrderItemInput línea de PlaceOrder. UnitCost es por unidad base.
// UnitsPerPackage 0 toma el valor del catálogo.
type OrderItemInput struct {
	ProductID       string
	Packages        int64
	UnitsPerPackage int64
	UnitCost        decimal.Decimal
}

// PlaceOrderInput entrada de PlaceOrder. OrderID vacío genera uno.
type PlaceOrderInput struct {
	OrderID    string
	ReceivedAt time.Time
	Items      []OrderItemInput
}

// PlaceOrderResult orden creada y sus lotes.
type PlaceOrderResult struct {
	Order   *entity.Order
	Batches []*entity.Batch
}

// ItemCheck comparación de una línea de orden con sus lotes.
type ItemCheck struct {
	ProductID      string
	OrderRemaining int64
	BatchRemaining int64
	Drift          int64
}

// LedgerReport resultado de CheckOrderLedger.
type LedgerReport struct {
	OrderID    string
	Items      []ItemCheck
	Consistent bool
}
