package docstore

// Storage is the full backend contract: CRUD plus reactive watches.
// Every engine must behave identically for the operations it shares with the
// in-memory reference engine; the package "testsuite" encodes that contract
// and each engine's unit tests must run it.
type Storage interface {
	DocumentKeeper
	WatchKeeper
}
