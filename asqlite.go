// Package asqlite is a non-blocking client binding for embedded SQLite.
//
// Blocking native calls (prepare, bind, step, finalize, function dispatch)
// run on a fixed worker pool; results come back as futures whose observers
// run on a single cooperative execution context, so an event-driven caller
// is never stalled by disk I/O or query execution.
//
// Example:
//
//	loop := dispatch.NewLoop()
//	defer loop.Close()
//	pool := dispatch.NewPool(4)
//	defer pool.Close()
//
//	conn, err := asqlite.Open(asqlite.Memory(), pool, loop).Await()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close().Await()
//
//	rows, err := conn.Query("SELECT ?1 AS greeting", asqlite.Text("hello")).Await()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	greeting, _ := rows[0].Value("greeting")
//
// The driver performs no internal statement queueing: callers needing
// strict ordering on one connection chain the returned futures.
package asqlite

// Version is the current SDK version.
const Version = "0.2.1"
