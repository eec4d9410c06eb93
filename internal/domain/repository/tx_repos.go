package repository

// TxRepos repositorios atados a una misma transacción. Lo que se haga a través de ellos
// se confirma o se revierte junto.
type TxRepos interface {
	Stock() VariationStockStore
	Transfers() TransferLedger
	Movements() StockMovementRepository
	Branches() BranchRepository
}
