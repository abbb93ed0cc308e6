package entity

import (
	"encoding/json"
	"time"

	"github.com/jhoicas/Inventario-lotes/internal/domain"
)

// Tipos de consumidor que pueden poseer asignaciones.
const (
	ConsumerKindSale        = "sale"
	ConsumerKindVendorOrder = "vendor_order"
)

// Estados del registro de consumo.
const (
	ConsumerStateCreated           = "CREATED"
	ConsumerStatePartiallyRestored = "PARTIALLY_RESTORED"
	ConsumerStateRestored          = "RESTORED"
	ConsumerStateLegacy            = "LEGACY"
)

// Consumption es la variante cerrada de lo que consumió un registro:
// PreciseConsumption (detalle por lote) o LegacyConsumption (solo agregado).
type Consumption interface {
	consumption()
	// Packages paquetes pendientes de devolver.
	Packages() int64
}

// PreciseConsumption detalle exacto de lotes consumidos, en orden de inserción.
type PreciseConsumption struct {
	Allocations []Allocation
}

func (PreciseConsumption) consumption() {}

// Packages suma de paquetes de las asignaciones.
func (p PreciseConsumption) Packages() int64 { return TotalPackages(p.Allocations) }

// LegacyConsumption registros anteriores a la migración: solo cantidad y, si se conoce, la orden de origen.
type LegacyConsumption struct {
	SourceOrderID string
	Pending       int64
}

func (LegacyConsumption) consumption() {}

// Packages paquetes pendientes del registro legacy.
func (l LegacyConsumption) Packages() int64 { return l.Pending }

// ConsumerEntry registro de consumo de una venta u orden de proveedor.
type ConsumerEntry struct {
	ID               string
	Kind             string
	ProductID        string
	Consumption      Consumption
	State            string
	OriginalPackages int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsLegacy indica si el registro carece de detalle por lote.
func (c *ConsumerEntry) IsLegacy() bool {
	_, ok := c.Consumption.(LegacyConsumption)
	return ok
}

// Allocations devuelve las asignaciones del registro preciso (nil si es legacy).
func (c *ConsumerEntry) Allocations() []Allocation {
	if p, ok := c.Consumption.(PreciseConsumption); ok {
		return p.Allocations
	}
	return nil
}

// RemainingPackages paquetes aún no devueltos.
func (c *ConsumerEntry) RemainingPackages() int64 {
	if c.Consumption == nil {
		return 0
	}
	return c.Consumption.Packages()
}

// RefreshState recalcula el estado según lo que queda por devolver.
func (c *ConsumerEntry) RefreshState() {
	remaining := c.RemainingPackages()
	switch {
	case remaining == 0:
		c.State = ConsumerStateRestored
	case c.IsLegacy():
		c.State = ConsumerStateLegacy
	case remaining < c.OriginalPackages:
		c.State = ConsumerStatePartiallyRestored
	default:
		c.State = ConsumerStateCreated
	}
}

type legacyDoc struct {
	SourceOrderID string `json:"source_order_id,omitempty"`
	Packages      int64  `json:"packages"`
}

type consumerDoc struct {
	ID               string       `json:"id"`
	Kind             string       `json:"kind"`
	ProductID        string       `json:"product_id"`
	Allocations      []Allocation `json:"allocations,omitempty"`
	Legacy           *legacyDoc   `json:"legacy,omitempty"`
	State            string       `json:"state"`
	OriginalPackages int64        `json:"original_packages"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// MarshalJSON serializa la variante en la forma almacenada: allocations[] o legacy{}.
func (c ConsumerEntry) MarshalJSON() ([]byte, error) {
	doc := consumerDoc{
		ID:               c.ID,
		Kind:             c.Kind,
		ProductID:        c.ProductID,
		State:            c.State,
		OriginalPackages: c.OriginalPackages,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
	switch v := c.Consumption.(type) {
	case LegacyConsumption:
		doc.Legacy = &legacyDoc{SourceOrderID: v.SourceOrderID, Packages: v.Pending}
	case PreciseConsumption:
		doc.Allocations = v.Allocations
	}
	return json.Marshal(doc)
}

// UnmarshalJSON resuelve la variante una sola vez al cargar el documento.
func (c *ConsumerEntry) UnmarshalJSON(data []byte) error {
	var doc consumerDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Legacy != nil && len(doc.Allocations) > 0 {
		return &domain.IntegrityError{
			Reason:     domain.ErrAmbiguousConsumption.Error(),
			ProductID:  doc.ProductID,
			ConsumerID: doc.ID,
			Cause:      domain.ErrAmbiguousConsumption,
		}
	}
	*c = ConsumerEntry{
		ID:               doc.ID,
		Kind:             doc.Kind,
		ProductID:        doc.ProductID,
		State:            doc.State,
		OriginalPackages: doc.OriginalPackages,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
	if doc.Legacy != nil {
		c.Consumption = LegacyConsumption{SourceOrderID: doc.Legacy.SourceOrderID, Pending: doc.Legacy.Packages}
	} else {
		c.Consumption = PreciseConsumption{Allocations: doc.Allocations}
	}
	if c.State == "" {
		c.RefreshState()
	}
	return nil
}
