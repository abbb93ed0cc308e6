package repository

// TxRepos agrupa los repositorios atados a una misma transacción.
// Dentro de una transacción todas las lecturas deben hacerse antes de la primera escritura.
type TxRepos struct {
	Batches   BatchRepository
	Orders    OrderRepository
	Consumers ConsumerLedgerRepository
	Sales     GarmentSaleRepository
	Audit     AllocationAuditRepository
	Products  ProductRepository
}
