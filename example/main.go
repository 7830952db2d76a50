package main

import (
	"fmt"
	"log"
	"strings"

	asqlite "github.com/asyncsqlite/asqlite-go"
	"github.com/asyncsqlite/asqlite-go/dispatch"
)

func main() {
	fmt.Println("asqlite-go - Asynchronous SQLite Example")
	fmt.Println("========================================")
	fmt.Println()

	// One loop delivers every completion; a small pool runs the native calls.
	loop := dispatch.NewLoop()
	defer loop.Close()
	pool := dispatch.NewPool(4)
	defer pool.Close()

	fmt.Println("Opening in-memory database...")
	conn, err := asqlite.Open(asqlite.Memory(), pool, loop).Await()
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer conn.Close().Await()
	fmt.Println("✅ Database opened")
	fmt.Println()

	fmt.Println("1. Parameterized Queries:")
	queryExample(conn)
	fmt.Println()

	fmt.Println("2. Custom Scalar Functions:")
	functionExample(conn)
	fmt.Println()

	fmt.Println("3. Chained Futures:")
	chainingExample(conn)
	fmt.Println()

	fmt.Println("✅ All examples completed successfully!")
}

func queryExample(conn *asqlite.Connection) {
	setup := []string{
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, score REAL)",
		"INSERT INTO users (id, name, score) VALUES (1, 'Alice', 9.5), (2, 'Bob', 7.25)",
	}
	for _, sql := range setup {
		if _, err := conn.Query(sql).Await(); err != nil {
			log.Printf("Setup failed: %v", err)
			return
		}
	}
	fmt.Println("  ✅ Created and populated users")

	rows, err := conn.Query(
		"SELECT name, score FROM users WHERE score > ?1 ORDER BY score DESC",
		asqlite.Float(5.0),
	).Await()
	if err != nil {
		log.Printf("Query failed: %v", err)
		return
	}
	for _, row := range rows {
		name, _ := row.Value("name")
		score, _ := row.Value("score")
		fmt.Printf("    %s scored %s\n", name, score)
	}
}

func functionExample(conn *asqlite.Connection) {
	_, err := conn.CreateScalarFunction("shout", 1, func(args []asqlite.Value) (asqlite.Value, error) {
		s, ok := args[0].Text()
		if !ok {
			return asqlite.Value{}, fmt.Errorf("shout wants text, got %s", args[0].Kind())
		}
		return asqlite.Text(strings.ToUpper(s) + "!"), nil
	}).Await()
	if err != nil {
		log.Printf("Registration failed: %v", err)
		return
	}
	fmt.Println("  ✅ Registered shout(text)")

	rows, err := conn.Query("SELECT shout(name) AS loud FROM users ORDER BY id").Await()
	if err != nil {
		log.Printf("Query failed: %v", err)
		return
	}
	for _, row := range rows {
		loud, _ := row.Value("loud")
		fmt.Printf("    %s\n", loud)
	}
}

func chainingExample(conn *asqlite.Connection) {
	// Futures chain when ordering matters; each step starts after the
	// previous one completes.
	inserted := dispatch.Then(
		conn.Query("INSERT INTO users (id, name, score) VALUES (3, 'Carol', 8.0)"),
		func([]asqlite.Row) *dispatch.Future[[]asqlite.Row] {
			return conn.Query("SELECT count(*) AS n, avg(score) AS mean FROM users")
		},
	)

	rows, err := inserted.Await()
	if err != nil {
		log.Printf("Chain failed: %v", err)
		return
	}
	n, _ := rows[0].Value("n")
	mean, _ := rows[0].Value("mean")
	fmt.Printf("  ✅ %s users, mean score %s\n", n, mean)
}
