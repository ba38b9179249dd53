package schemas

import "github.com/JonMunkholm/eventpipe/internal/core"

// Events is the schema of the monthly customer event exports.
const Events = "events"

func init() {
	core.Register(core.TableSchema{
		Name: Events,
		Columns: []core.ColumnSpec{
			{Name: "event_time", Type: core.TypeTimestamptz},
			{Name: "event_type", Type: core.TypeVarchar},
			{Name: "product_id", Type: core.TypeInteger},
			{Name: "price", Type: core.TypeNumeric},
			{Name: "user_id", Type: core.TypeBigInt},
			{Name: "user_session", Type: core.TypeUUID},
		},
	})
}
