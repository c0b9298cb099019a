package ViewDB

import (
	"github.com/nickyhof/ViewDB/catalog"
	"github.com/nickyhof/ViewDB/core"
	"github.com/nickyhof/ViewDB/db"
	"github.com/nickyhof/ViewDB/ps"
)

type Instance struct {
	Persistence *ps.Persistence
	Catalog     *catalog.Catalog
}

// Open loads the catalog stored in persistence, initializing an empty
// repository under identity. A nil persistence keeps the catalog in memory.
func Open(persistence *ps.Persistence, identity core.Identity) (*Instance, error) {
	c, err := catalog.Open(persistence, identity)
	if err != nil {
		return nil, err
	}
	return &Instance{
		Persistence: persistence,
		Catalog:     c,
	}, nil
}

// Engine starts a session on the shared catalog. Engines of one instance see
// each other's changes.
func (instance *Instance) Engine(identity core.Identity) *db.Engine {
	return db.NewEngine(instance.Catalog.NewSession(identity))
}
