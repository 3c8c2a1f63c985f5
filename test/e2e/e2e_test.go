//go:build e2e

package e2e

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"
)

var testCtx *TestContext

func TestMain(m *testing.M) {
	flag.Parse()
	os.Exit(run(m))
}

// run exists so deferred container teardown fires before os.Exit.
func run(m *testing.M) int {
	ctx := context.Background()
	testCtx = &TestContext{}

	log.Println("starting postgres container")
	var err error
	testCtx.PostgresContainer, testCtx.ConnString, err = setupPostgresE(ctx)
	if err != nil {
		log.Printf("postgres container failed to start: %v", err)
		return 1
	}
	defer func() {
		if err := testCtx.PostgresContainer.Terminate(ctx); err != nil {
			log.Printf("terminating postgres container: %v", err)
		}
	}()

	testCtx.TestServer, testCtx.Store, err = startServerE(testCtx.ConnString)
	if err != nil {
		log.Printf("test server failed to start: %v", err)
		return 1
	}
	defer testCtx.TestServer.Close()
	log.Println("test server listening at", testCtx.TestServer.URL)

	return m.Run()
}
