package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"stride/internal/app"
	"stride/internal/db"
	"stride/internal/engine"
	"stride/internal/migrate"
)

func main() {
	path := ""
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := app.ResolveOnboardingConfig(".", path)
	if err != nil {
		fmt.Println("template invalid:", err)
		os.Exit(1)
	}
	fmt.Printf("template ok: version=%s drivers=%d\n", cfg.Version, len(cfg.Drivers))

	workspace := "/tmp/stride-check"
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		panic(err)
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		panic(err)
	}
	e := engine.New(conn)
	user := fmt.Sprintf("check-%d", time.Now().UnixNano())
	batch, err := e.Onboard(context.Background(), user, cfg)
	if err != nil {
		fmt.Println("onboard failed:", err)
		os.Exit(1)
	}
	fmt.Printf("onboarded %s: drivers=%d milestones=%d actions=%d\n",
		user, len(batch.Drivers), len(batch.Milestones), len(batch.Actions))
}
