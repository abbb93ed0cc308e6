package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// ProductValue saldo valorizado de un producto, sumado en la base sobre sus lotes.
type ProductValue struct {
	ProductID      string
	Batches        int64
	RemainingUnits int64
	Value          decimal.Decimal
}

// InventoryValue valoriza todo el inventario en una sola consulta: suma saldo * costo unitario
// de los documentos de lotes, agrupado por producto. Requiere RegisterTypes en la conexión.
func (s *DocumentStore) InventoryValue(ctx context.Context) ([]ProductValue, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT partition,
		       COUNT(*),
		       COALESCE(SUM((data->>'remaining_units')::bigint), 0),
		       COALESCE(SUM((data->>'remaining_units')::numeric * COALESCE(NULLIF(data->>'unit_cost', ''), '0')::numeric), 0)
		FROM documents
		WHERE collection = 'batches'
		GROUP BY partition
		ORDER BY partition`)
	if err != nil {
		return nil, fmt.Errorf("inventory value: %w", err)
	}
	defer rows.Close()

	var out []ProductValue
	for rows.Next() {
		var pv ProductValue
		if err := rows.Scan(&pv.ProductID, &pv.Batches, &pv.RemainingUnits, &pv.Value); err != nil {
			return nil, fmt.Errorf("scan inventory value: %w", err)
		}
		out = append(out, pv)
	}
	return out, rows.Err()
}
