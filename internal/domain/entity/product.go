package entity

// Líneas de producto del negocio.
const (
	LineCandies  = "candies"
	LineClothing = "clothing"
	LinePoultry  = "poultry"
)

// Product metadatos de catálogo que el motor de lotes necesita. El CRUD de catálogo
// (nombres, precios, márgenes) vive fuera de este servicio.
type Product struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Line            string `json:"line"`
	UnitsPerPackage int64  `json:"units_per_package"`
}
