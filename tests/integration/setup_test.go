package integration

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/dimitrije/personal-secrets/internal/handlers"
	authmw "github.com/dimitrije/personal-secrets/internal/middleware"
	"github.com/dimitrije/personal-secrets/internal/services"
	"github.com/dimitrije/personal-secrets/tests/testutil"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
	"github.com/sirupsen/logrus/hooks/test"
)

// TestMain runs before all tests in this package
func TestMain(m *testing.M) {
	// Run tests
	code := m.Run()
	os.Exit(code)
}

// setupTest creates a test database and returns cleanup function
func setupTest(t *testing.T) *testutil.TestDB {
	t.Helper()
	return testutil.SetupTestDB(t)
}

// newTestApp builds the protected API routes backed by tdb.
func newTestApp(t *testing.T, tdb *testutil.TestDB) http.Handler {
	t.Helper()
	log, _ := test.NewNullLogger()

	orgService := services.NewOrganizationService(tdb.DB)
	secretService := services.NewPersonalSecretService(services.NewPersonalSecretStore(tdb.DB))
	orgHandler := handlers.NewOrganizationHandler(orgService, log)
	secretHandler := handlers.NewPersonalSecretHandler(secretService, log)

	app := drift.New()
	app.Use(middleware.Recovery())
	app.Use(middleware.BodyParser())

	api := app.Group("/api/v1")
	protected := api.Group("")
	protected.Use(authmw.Auth(testutil.TestJWTService()))
	protected.Get("/organizations", orgHandler.List)

	secrets := protected.Group("/personal-secrets")
	secrets.Use(authmw.RequireOrganization())
	secrets.Post("", secretHandler.Create)
	secrets.Get("", secretHandler.List)
	secrets.Get("/:id", secretHandler.Get)
	secrets.Put("/:id", secretHandler.Update)
	secrets.Delete("/:id", secretHandler.Delete)

	return app
}

// newTestServer serves newTestApp over a real listener for the typed client.
func newTestServer(t *testing.T, tdb *testutil.TestDB) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(newTestApp(t, tdb))
	t.Cleanup(server.Close)
	return server
}
