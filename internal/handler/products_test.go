// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"
	"regexp"
	"testing"

	"github.com/lensfolio/folio-admin/internal/model"
	"github.com/lensfolio/folio-admin/internal/service"
)

var stagedIDPattern = regexp.MustCompile(`value="remove:([0-9a-f-]+)"`)

func stagedIDs(body string) []string {
	var ids []string
	for _, m := range stagedIDPattern.FindAllStringSubmatch(body, -1) {
		ids = append(ids, m[1])
	}
	return ids
}

func sampleProducts() []model.Product {
	return []model.Product{
		{
			ID:          "p1",
			ProductID:   "POST-001",
			PostName:    "Harbour Lights",
			Description: "Night shoot at the old harbour",
			FBLink:      "https://facebook.com/harbour",
			Images:      []model.Image{{URL: "https://img.example/harbour.jpg", PublicID: "harbour"}},
			DateTime:    "2024-05-01T10:30:00.000Z",
		},
		{
			ID:          "p2",
			PostName:    "Empty Gallery",
			Description: "No pictures yet",
			FBLink:      "https://facebook.com/empty",
		},
	}
}

// loadList opens the product list so the session holds its snapshot.
func (a *testApp) loadList(t *testing.T) response {
	t.Helper()
	resp := a.get(t, RouteProducts)
	if resp.status != http.StatusOK {
		t.Fatalf("GET /products = %d, want 200", resp.status)
	}
	return resp
}

func TestProductsList(t *testing.T) {
	app := newTestApp(t)
	app.backend.products = sampleProducts()
	app.login(t)

	resp := app.loadList(t)
	assertContains(t, resp.body,
		"All Blog Posts",
		"Harbour Lights",
		"https://img.example/harbour.jpg",
		"No Image",
		`href="/products/p1/edit"`,
		`href="/products/p2/delete"`,
	)
	assertNotContains(t, resp.body, MsgFetchProducts, "No products found.")
}

func TestProductsList_Empty(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	assertContains(t, app.loadList(t).body, "No products found.")
}

func TestProductsList_FetchFailure(t *testing.T) {
	app := newTestApp(t)
	app.backend.productsErr = errors.New("backend down")
	app.login(t)

	resp := app.loadList(t)
	assertContains(t, resp.body, MsgFetchProducts)
	assertNotContains(t, resp.body, "No products found.")
}

func TestProductsList_RequiresSession(t *testing.T) {
	app := newTestApp(t)

	resp := app.get(t, RouteProducts)
	if resp.status != http.StatusSeeOther || resp.location != RouteLogin {
		t.Fatalf("GET /products = %d %q, want 303 /login", resp.status, resp.location)
	}
	if n := app.backend.callCount(); n != 0 {
		t.Errorf("anonymous request made %d backend calls", n)
	}
}

func TestDeleteProduct(t *testing.T) {
	app := newTestApp(t)
	app.backend.products = sampleProducts()
	app.login(t)
	app.loadList(t)

	confirm := app.get(t, "/products/p1/delete")
	if confirm.status != http.StatusOK {
		t.Fatalf("confirm page = %d, want 200", confirm.status)
	}
	assertContains(t, confirm.body, "Harbour Lights", `action="/products/p1/delete"`)
	if len(app.backend.deleted) != 0 {
		t.Fatal("confirmation page sent a delete")
	}

	resp := app.post(t, "/products/p1/delete", nil)
	if resp.status != http.StatusSeeOther || resp.location != RouteProducts {
		t.Fatalf("delete = %d %q, want 303 /products", resp.status, resp.location)
	}
	if len(app.backend.deleted) != 1 || app.backend.deleted[0] != "p1" {
		t.Errorf("deleted = %v, want [p1]", app.backend.deleted)
	}
	if app.backend.delTokens[0] != testToken {
		t.Errorf("delete token = %q, want the session token", app.backend.delTokens[0])
	}
	assertContains(t, app.loadList(t).body, MsgPostDeleted)
}

func TestDeleteProduct_Failure(t *testing.T) {
	app := newTestApp(t)
	app.backend.products = sampleProducts()
	app.backend.deleteErr = errors.New("500")
	app.login(t)

	resp := app.post(t, "/products/p1/delete", nil)
	if resp.location != RouteProducts {
		t.Fatalf("delete = %d %q, want redirect to /products", resp.status, resp.location)
	}
	if len(app.backend.deleted) != 1 {
		t.Errorf("delete calls = %d, want exactly 1", len(app.backend.deleted))
	}
	assertContains(t, app.loadList(t).body, MsgDeleteFailed)
}

func TestConfirmDelete_UnknownProduct(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	resp := app.get(t, "/products/nope/delete")
	if resp.status != http.StatusSeeOther || resp.location != RouteProducts {
		t.Errorf("confirm unknown = %d %q, want 303 /products", resp.status, resp.location)
	}
}

func TestEditForm(t *testing.T) {
	app := newTestApp(t)
	app.backend.products = sampleProducts()
	app.login(t)

	// Without a snapshot the form is not reachable.
	resp := app.get(t, "/products/p1/edit")
	if resp.status != http.StatusSeeOther || resp.location != RouteProducts {
		t.Fatalf("edit without snapshot = %d %q, want 303 /products", resp.status, resp.location)
	}

	app.loadList(t)
	before := app.backend.callCount()
	resp = app.get(t, "/products/p1/edit")
	if resp.status != http.StatusOK {
		t.Fatalf("edit = %d, want 200", resp.status)
	}
	assertContains(t, resp.body,
		"Edit Blog",
		`value="POST-001"`,
		`value="Harbour Lights"`,
		"Night shoot at the old harbour",
		"https://img.example/harbour.jpg",
		"Update Post",
	)
	// One identity call from the shell, no product fetch.
	if got := app.backend.callCount() - before; got != 1 {
		t.Errorf("edit form made %d backend calls, want 1", got)
	}
}

func TestNewForm(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	resp := app.get(t, RouteNewProduct)
	if resp.status != http.StatusOK {
		t.Fatalf("new form = %d, want 200", resp.status)
	}
	assertContains(t, resp.body, "Add Blog", "List Post", `action="/products/new"`, "Enter Event Name")
	assertNotContains(t, resp.body, "Post ID")
}

func TestCreateProduct_Validation(t *testing.T) {
	app := newTestApp(t)
	app.login(t)
	before := app.backend.callCount()

	resp := app.postMultipart(t, RouteNewProduct, map[string]string{
		"postName":    "Harbour",
		"description": "   ",
		"fbLink":      "https://facebook.com/h",
	})
	if resp.status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.status)
	}
	assertContains(t, resp.body, MsgFormIncomplete, `value="Harbour"`)
	// Shell identity call only.
	if got := app.backend.callCount() - before; got != 1 {
		t.Errorf("invalid submit made %d backend calls, want 1", got)
	}
	if len(app.backend.created) != 0 || len(app.backend.uploadedSets) != 0 {
		t.Error("invalid submit reached upload or create")
	}
}

func TestCreateProduct_StageThenSubmit(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	fields := map[string]string{
		"postName":    "Harbour Lights",
		"description": "Night shoot",
		"fbLink":      "https://facebook.com/harbour",
		"action":      actionAdd,
	}
	resp := app.postMultipart(t, RouteNewProduct, fields, upload{name: "harbour.png", data: pngBytes(t, 40, 30)})
	if resp.status != http.StatusOK {
		t.Fatalf("add = %d, want 200", resp.status)
	}
	ids := stagedIDs(resp.body)
	if len(ids) != 1 {
		t.Fatalf("staged ids = %v, want one", ids)
	}
	assertContains(t, resp.body, "harbour.png", `src="/products/new/staged/`+ids[0]+`"`)
	if len(app.backend.uploadedSets) != 0 {
		t.Fatal("adding a file uploaded it")
	}

	thumb := app.get(t, "/products/new/staged/"+ids[0])
	if thumb.status != http.StatusOK {
		t.Fatalf("thumbnail = %d, want 200", thumb.status)
	}
	if cc := thumb.header.Get("Cache-Control"); cc != "private, max-age=300" {
		t.Errorf("Cache-Control = %q", cc)
	}

	fields["action"] = actionSubmit
	resp = app.postMultipart(t, RouteNewProduct, fields)
	if resp.status != http.StatusSeeOther || resp.location != RouteProducts {
		t.Fatalf("submit = %d %q, want 303 /products", resp.status, resp.location)
	}
	if len(app.backend.uploadedSets) != 1 || len(app.backend.uploadedSets[0]) != 1 {
		t.Fatalf("uploads = %v, want one request with one file", app.backend.uploadedSets)
	}
	if len(app.backend.created) != 1 {
		t.Fatalf("creates = %d, want 1", len(app.backend.created))
	}
	created := app.backend.created[0]
	if created.PostName != "Harbour Lights" || len(created.Images) != 1 || created.Images[0].PublicID != "new" {
		t.Errorf("created = %+v", created)
	}
	assertContains(t, app.loadList(t).body, MsgPostCreated)

	// The set is gone after a successful submit.
	if resp := app.get(t, "/products/new/staged/"+ids[0]); resp.status != http.StatusNotFound {
		t.Errorf("thumbnail after submit = %d, want 404", resp.status)
	}
	assertNotContains(t, app.get(t, RouteNewProduct).body, "harbour.png")
}

func TestCreateProduct_RemoveAndClear(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	resp := app.postMultipart(t, RouteNewProduct, map[string]string{"action": actionAdd},
		upload{name: "a.png", data: pngBytes(t, 10, 10)},
		upload{name: "b.png", data: pngBytes(t, 12, 12)},
	)
	ids := stagedIDs(resp.body)
	if len(ids) != 2 {
		t.Fatalf("staged ids = %v, want two", ids)
	}

	resp = app.postMultipart(t, RouteNewProduct, map[string]string{"action": actionRemovePrefix + ids[0]})
	if got := stagedIDs(resp.body); len(got) != 1 || got[0] != ids[1] {
		t.Fatalf("after remove = %v, want [%s]", got, ids[1])
	}

	resp = app.postMultipart(t, RouteNewProduct, map[string]string{"action": actionClear})
	if got := stagedIDs(resp.body); len(got) != 0 {
		t.Errorf("after clear = %v, want none", got)
	}
	if len(app.backend.uploadedSets) != 0 {
		t.Error("remove or clear uploaded files")
	}
}

func TestCreateProduct_RejectsNonImage(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	resp := app.postMultipart(t, RouteNewProduct, map[string]string{"action": actionAdd},
		upload{name: "notes.txt", data: []byte("plain text")})
	if resp.status != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.status)
	}
	assertContains(t, resp.body, "notes.txt:")
	if ids := stagedIDs(resp.body); len(ids) != 0 {
		t.Errorf("staged ids = %v, want none", ids)
	}
}

func TestCreateProduct_UploadFailure(t *testing.T) {
	app := newTestApp(t)
	app.backend.upload = &model.UploadResult{Success: false}
	app.login(t)

	resp := app.postMultipart(t, RouteNewProduct, map[string]string{
		"postName":    "Harbour",
		"description": "Night",
		"fbLink":      "https://facebook.com/h",
	}, upload{name: "h.png", data: pngBytes(t, 8, 8)})
	if resp.status != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.status)
	}
	assertContains(t, resp.body, MsgUploadFailed, `value="Harbour"`)
	if len(app.backend.created) != 0 {
		t.Error("create was sent after a failed upload")
	}
	// Staged files survive for another attempt.
	if ids := stagedIDs(resp.body); len(ids) != 1 {
		t.Errorf("staged ids = %v, want the file kept", ids)
	}
}

func TestCreateProduct_Rejected(t *testing.T) {
	app := newTestApp(t)
	app.backend.mutation = &model.MutationResult{Success: false, Message: "duplicate"}
	app.login(t)

	resp := app.postMultipart(t, RouteNewProduct, map[string]string{
		"postName":    "Harbour",
		"description": "Night",
		"fbLink":      "https://facebook.com/h",
	}, upload{name: "h.png", data: pngBytes(t, 8, 8)})
	assertContains(t, resp.body, MsgCreateFailed)
}

func TestUpdateProduct_KeepsExistingImages(t *testing.T) {
	app := newTestApp(t)
	app.backend.products = sampleProducts()
	app.login(t)
	app.loadList(t)

	resp := app.postMultipart(t, "/products/p1/edit", map[string]string{
		"postName":    "Harbour Lights (revised)",
		"description": "Night shoot at the old harbour",
		"fbLink":      "https://facebook.com/harbour",
	})
	if resp.status != http.StatusSeeOther || resp.location != RouteProducts {
		t.Fatalf("update = %d %q, want 303 /products", resp.status, resp.location)
	}
	if len(app.backend.uploadedSets) != 0 {
		t.Error("update without files uploaded something")
	}
	if len(app.backend.updated) != 1 || app.backend.updateID[0] != "p1" {
		t.Fatalf("updates = %v ids = %v", app.backend.updated, app.backend.updateID)
	}
	got := app.backend.updated[0]
	if got.PostName != "Harbour Lights (revised)" {
		t.Errorf("PostName = %q", got.PostName)
	}
	if len(got.Images) != 1 || got.Images[0].URL != "https://img.example/harbour.jpg" {
		t.Errorf("Images = %+v, want the existing set", got.Images)
	}
	assertContains(t, app.loadList(t).body, MsgPostUpdated)
}

func TestUpdateProduct_ReplacesImages(t *testing.T) {
	app := newTestApp(t)
	app.backend.products = sampleProducts()
	app.login(t)
	app.loadList(t)

	resp := app.postMultipart(t, "/products/p1/edit", map[string]string{
		"postName":    "Harbour Lights",
		"description": "Night shoot",
		"fbLink":      "https://facebook.com/harbour",
	}, upload{name: "new.png", data: pngBytes(t, 16, 16)})
	if resp.status != http.StatusSeeOther {
		t.Fatalf("update = %d, want 303", resp.status)
	}
	got := app.backend.updated[0]
	if len(got.Images) != 1 || got.Images[0].PublicID != "new" {
		t.Errorf("Images = %+v, want only the uploaded set", got.Images)
	}
}

func TestUpdateProduct_RejectedUsesBackendMessage(t *testing.T) {
	app := newTestApp(t)
	app.backend.products = sampleProducts()
	app.backend.mutation = &model.MutationResult{Success: false, Message: "Post is locked"}
	app.login(t)
	app.loadList(t)

	resp := app.postMultipart(t, "/products/p1/edit", map[string]string{
		"postName":    "Harbour Lights",
		"description": "Night shoot",
		"fbLink":      "https://facebook.com/harbour",
	})
	assertContains(t, resp.body, "Post is locked", `value="Harbour Lights"`)
}

func TestStagedThumbnail_IsolatedPerForm(t *testing.T) {
	app := newTestApp(t)
	app.backend.products = sampleProducts()
	app.login(t)
	app.loadList(t)

	resp := app.postMultipart(t, "/products/p1/edit", map[string]string{"action": actionAdd},
		upload{name: "edit.png", data: pngBytes(t, 10, 10)})
	ids := stagedIDs(resp.body)
	if len(ids) != 1 {
		t.Fatalf("staged ids = %v", ids)
	}

	if r := app.get(t, "/products/p1/edit/staged/"+ids[0]); r.status != http.StatusOK {
		t.Errorf("own form thumbnail = %d, want 200", r.status)
	}
	if r := app.get(t, "/products/new/staged/"+ids[0]); r.status != http.StatusNotFound {
		t.Errorf("other form thumbnail = %d, want 404", r.status)
	}
	if r := app.get(t, "/products/p2/edit/staged/"+ids[0]); r.status != http.StatusNotFound {
		t.Errorf("other product thumbnail = %d, want 404", r.status)
	}
}

func TestFailureMessages(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"create went wrong", somethingWrong(service.ModeCreate), MsgSomethingWrong},
		{"update went wrong", somethingWrong(service.ModeUpdate), MsgUpdateWentWrong},
		{"create rejected", rejectedMessage(&service.RejectedError{Mode: service.ModeCreate, Message: "dup"}), MsgCreateFailed},
		{"update rejected", rejectedMessage(&service.RejectedError{Mode: service.ModeUpdate}), MsgUpdateFailed},
		{"update rejected with message", rejectedMessage(&service.RejectedError{Mode: service.ModeUpdate, Message: "locked"}), "locked"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}
