// Package snapkeeper is the public entry point to the SnapKeeper snapshot
// repository.
//
// Open wires a configured database engine (PostgreSQL or in-memory), the
// snapshot catalog (Badger or Redis), logging and metrics, and returns a
// Keeper whose Repository is safe for concurrent use:
//
//	cfg, err := snapkeeper.LoadConfig("snapkeeper.yaml")
//	if err != nil {
//		return err
//	}
//	k, err := snapkeeper.Open(ctx, cfg, snapkeeper.WithRegisterer(prometheus.DefaultRegisterer))
//	if err != nil {
//		return err
//	}
//	defer k.Close()
//
//	db, err := k.Database("main", "orders")
//	if err != nil {
//		return err
//	}
//	if res := k.Repository().CreateSnapshot(ctx, "nightly", db); !res.Succeeded() {
//		log.Print(res.Message())
//	}
package snapkeeper
