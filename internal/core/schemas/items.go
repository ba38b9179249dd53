package schemas

import "github.com/JonMunkholm/eventpipe/internal/core"

// Items is the schema of the product catalog.
const Items = "items"

func init() {
	core.Register(core.TableSchema{
		Name: Items,
		Columns: []core.ColumnSpec{
			{Name: "product_id", Type: core.TypeInteger},
			{Name: "category_id", Type: core.TypeBigInt},
			{Name: "category_code", Type: core.TypeText},
			{Name: "brand", Type: core.TypeVarchar},
		},
	})
}
