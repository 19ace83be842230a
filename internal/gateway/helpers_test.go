package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flemzord/toolgate/internal/catalog"
	"github.com/flemzord/toolgate/internal/config"
	"github.com/flemzord/toolgate/internal/session"
)

const testToken = "secret-token"

func testRegistry(t *testing.T) *catalog.Registry {
	t.Helper()

	r := catalog.NewRegistry()
	if err := r.DescribeCategory("things", "Create and modify things"); err != nil {
		t.Fatal(err)
	}
	for _, d := range []catalog.Descriptor{
		{Name: "createThing", Category: "things", Description: "Create a thing", Version: "2",
			Params: catalog.ParameterSchema{{Name: "name", Type: catalog.TypeString, Required: true}}},
		{Name: "readFile", Category: "files", Description: "Read a file"},
	} {
		if err := r.Register(d); err != nil {
			t.Fatal(err)
		}
	}
	r.Freeze()
	return r
}

func testGate(t *testing.T, hist session.History) *session.Gate {
	t.Helper()
	g, err := session.NewGate(session.GateConfig{History: hist})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func newTestGateway(t *testing.T, auth config.AuthConfig, deps Deps) *Gateway {
	t.Helper()

	if deps.Registry == nil {
		deps.Registry = testRegistry(t)
	}
	if deps.Sessions == nil {
		deps.Sessions = testGate(t, deps.History)
	}
	g, err := New(config.GatewayConfig{Bind: "127.0.0.1:0", Auth: auth}, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
