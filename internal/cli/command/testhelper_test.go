package command

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcnannay/peptrackr/internal/core/service"
	"github.com/mcnannay/peptrackr/internal/server/httpserver"
	"github.com/mcnannay/peptrackr/internal/storage/memory"
)

// testEnv is a live server plus an isolated CLI config file.
type testEnv struct {
	t          *testing.T
	server     *httptest.Server
	store      *service.StoreService
	configPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := service.NewStoreService(memory.New(), service.WithLogger(discard))
	srv := httptest.NewServer(httpserver.NewRouter(&httpserver.RouterConfig{
		Store:  store,
		Logger: discard,
	}))
	t.Cleanup(srv.Close)

	return &testEnv{
		t:          t,
		server:     srv,
		store:      store,
		configPath: filepath.Join(t.TempDir(), "cli.yaml"),
	}
}

// run executes the CLI with stdin and returns stdout.
func (e *testEnv) run(stdin string, args ...string) (string, error) {
	e.t.Helper()

	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.Reader = strings.NewReader(stdin)

	full := append([]string{"peptrackr-cli", "--config", e.configPath, "--server", e.server.URL}, args...)
	err := app.Run(full)
	return out.String(), err
}

// mustRun is run that fails the test on error.
func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run("", args...)
	if err != nil {
		e.t.Fatalf("%v: %v", args, err)
	}
	return out
}
