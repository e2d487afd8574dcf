package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/lensfolio/folio-admin/internal/model"
)

func TestCustomersList(t *testing.T) {
	app := newTestApp(t)
	app.backend.users = []model.User{
		testAdmin,
		{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", Role: "customer", IsBlocked: true},
	}
	app.login(t)

	resp := app.get(t, "/customers")
	if resp.status != http.StatusOK {
		t.Fatalf("GET /customers = %d, want 200", resp.status)
	}
	assertContains(t, resp.body, "Grace Hopper", "grace@example.com", "Blocked", "Active", "customer")
	assertNotContains(t, resp.body, MsgFetchUsers)
}

func TestCustomersList_Failure(t *testing.T) {
	app := newTestApp(t)
	app.backend.usersErr = errors.New("timeout")
	app.login(t)

	resp := app.get(t, "/customers")
	assertContains(t, resp.body, MsgFetchUsers)
	assertNotContains(t, resp.body, "No users found.")
}

func TestCustomersList_Token(t *testing.T) {
	tests := []struct {
		name      string
		sendToken bool
		want      string
	}{
		{"unauthenticated by default", false, ""},
		{"bearer when enabled", true, testToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, testAppOptions{usersListAuth: tt.sendToken})
			app.login(t)
			app.get(t, "/customers")

			tokens := app.backend.usersTokens
			if len(tokens) != 1 || tokens[0] != tt.want {
				t.Errorf("users tokens = %q, want [%q]", tokens, tt.want)
			}
		})
	}
}
