// Package settings is the gateway's boundary to the desktop settings store.
//
// The desktop UI owns the settings and their schema. The gateway reads only
// the two fields it needs to talk to scanners (output profiles and the
// "on smartphone charge" command) and reacts to every change:
//
//	store := settings.NewSQLiteStore(db.DB)
//	unsubscribe := store.Subscribe(func(s settings.Snapshot) {
//	    // push to every paired scanner
//	})
//	defer unsubscribe()
//	store.Load(ctx)
//
// Subscribers are called in registration order, once per change. A late
// subscriber immediately receives the latest snapshot, if one was loaded.
//
// The same table also serves as a small key/value store used to persist the
// fallback server UUID.
package settings
