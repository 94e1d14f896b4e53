package storage

import (
	"strings"

	"github.com/rl1809/storefront/internal/port"
)

// Store bundles the connector the supervisor drives with the repositories
// that read through it.
type Store struct {
	Kind      string
	Connector port.StoreConnector
	Catalog   port.CatalogRepository
	Carts     port.CartRepository
}

// NewStore picks the backend from the URI scheme: mysql:// selects MySQL,
// anything else MongoDB. No connection is made here.
func NewStore(uri, database string) Store {
	if strings.HasPrefix(uri, MySQLScheme) {
		m := NewMySQLAdapter()
		return Store{Kind: "mysql", Connector: m, Catalog: m, Carts: m}
	}

	m := NewMongoStore(database)
	return Store{Kind: "mongodb", Connector: m, Catalog: m.Catalog(), Carts: m.Carts()}
}
