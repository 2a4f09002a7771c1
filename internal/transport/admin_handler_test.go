package transport

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"qpinta/internal/domain"
)

func path(format string, id int64) string {
	return strings.Replace(format, "{id}", strconv.FormatInt(id, 10), 1)
}

func TestAdminRequestsCarryUserToken(t *testing.T) {
	app := newTestApp(t)
	seedCatalog(app)
	app.login(t)

	if resp := app.get(t, "/admin/products"); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	reqs := app.backend.Requests()
	if len(reqs) == 0 {
		t.Fatal("expected backend calls")
	}
	for _, req := range reqs {
		if got := req.Header.Get("Authorization"); got != "Bearer access-user-1" {
			t.Errorf("%s %s sent %q", req.Method, req.Path, got)
		}
		if got := req.Header.Get("apikey"); got != "anon-key" {
			t.Errorf("%s %s sent apikey %q", req.Method, req.Path, got)
		}
	}
}

func TestCategoryCreateAndRename(t *testing.T) {
	app := newTestApp(t)
	shirts := app.backend.SeedCategory("Shirts")
	app.login(t)

	resp := app.postForm(t, "/admin/categories", url.Values{"name": {"  Hats  "}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	doc := document(t, resp)
	rows := ids(doc, ".category-row")
	if len(rows) != 2 || rows[1] != strconv.FormatInt(shirts.ID, 10) {
		t.Fatalf("expected the new category first, got %v", rows)
	}
	if got := doc.Find(".category-row input[name=name]").First().AttrOr("value", ""); got != "Hats" {
		t.Errorf("expected trimmed name, got %q", got)
	}

	app.backend.Reset()
	resp = app.postForm(t, path("/admin/categories/{id}/rename", shirts.ID), url.Values{"name": {"Tees"}})
	doc = document(t, resp)
	value := doc.Find(".category-row[data-id='" + strconv.FormatInt(shirts.ID, 10) + "'] input[name=name]").AttrOr("value", "")
	if value != "Tees" {
		t.Errorf("expected renamed row, got %q", value)
	}
	// One load for the mount, one patch, no refetch.
	if n := app.backend.Count(http.MethodGet, "/rest/v1/categories"); n != 1 {
		t.Errorf("expected a single category load, got %d", n)
	}
	if n := app.backend.Count(http.MethodPatch, "/rest/v1/categories"); n != 1 {
		t.Errorf("expected one patch, got %d", n)
	}
}

func TestCategoryCreateRejectsBlankName(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	resp := app.postForm(t, "/admin/categories", url.Values{"name": {"   "}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if got := text(document(t, resp), ".alert"); got != GenericErrorMessage {
		t.Errorf("expected %q, got %q", GenericErrorMessage, got)
	}
	if n := app.backend.Count(http.MethodPost, "/rest/v1/categories"); n != 0 {
		t.Errorf("expected no insert, got %d", n)
	}
}

func TestCategoryDeleteRefusedWhileInUse(t *testing.T) {
	app := newTestApp(t)
	_, jackets, _ := seedCatalog(app)
	app.backend.SeedProduct(domain.NewProduct{Price: 55, Size: "M", CategoryID: &jackets.ID, Image: "e.png"})
	app.login(t)

	resp := app.postForm(t, path("/admin/categories/{id}/delete", jackets.ID), nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	doc := document(t, resp)

	if got := text(doc, ".alert"); got != "cannot delete this category: 2 products use it" {
		t.Errorf("unexpected alert %q", got)
	}
	if doc.Find(".category-row[data-id='"+strconv.FormatInt(jackets.ID, 10)+"']").Length() != 1 {
		t.Error("refused category should stay listed")
	}
	if n := app.backend.Count(http.MethodDelete, "/rest/v1/categories"); n != 0 {
		t.Errorf("expected no delete request, got %d", n)
	}
	if len(app.backend.Categories()) != 2 {
		t.Error("category was deleted")
	}
}

func TestCategoryDeleteUnused(t *testing.T) {
	app := newTestApp(t)
	shirts := app.backend.SeedCategory("Shirts")
	hats := app.backend.SeedCategory("Hats")
	app.login(t)

	resp := app.postForm(t, path("/admin/categories/{id}/delete", hats.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := ids(document(t, resp), ".category-row"); !reflect.DeepEqual(got, []string{strconv.FormatInt(shirts.ID, 10)}) {
		t.Errorf("expected only Shirts left, got %v", got)
	}

	reqs := app.backend.Requests()
	var countAt, deleteAt = -1, -1
	for i, req := range reqs {
		switch {
		case req.Method == http.MethodGet && req.Path == "/rest/v1/products" && req.Query.Get("categoryId") != "":
			countAt = i
		case req.Method == http.MethodDelete && req.Path == "/rest/v1/categories":
			deleteAt = i
		}
	}
	if countAt < 0 || deleteAt < 0 || countAt > deleteAt {
		t.Errorf("expected dependency check before delete, got check=%d delete=%d", countAt, deleteAt)
	}
}

func TestCategoriesInlineErrorOnLoadFailure(t *testing.T) {
	app := newTestApp(t)
	app.login(t)
	app.backend.Fail(http.MethodGet, "/rest/v1/categories", http.StatusServiceUnavailable)

	resp := app.get(t, "/admin/categories")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	doc := document(t, resp)
	if got := text(doc, ".error"); got != GenericErrorMessage {
		t.Errorf("expected %q, got %q", GenericErrorMessage, got)
	}
	if doc.Find("form.create").Length() != 0 {
		t.Error("create form should be hidden after a failed load")
	}
}

type upload struct {
	filename    string
	contentType string
	data        []byte
}

func productForm(t *testing.T, fields map[string]string, file *upload) (string, *bytes.Buffer) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		w.WriteField(k, v)
	}
	if file != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="image"; filename="`+file.filename+`"`)
		header.Set("Content-Type", file.contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(file.data)
	}
	w.Close()
	return w.FormDataContentType(), body
}

var imageNamePattern = regexp.MustCompile(`^\d+-[0-9a-z]{1,8}\.png$`)

func TestProductCreateUploadsThenInserts(t *testing.T) {
	app := newTestApp(t)
	shirts, _, products := seedCatalog(app)
	app.login(t)

	contentType, body := productForm(t, map[string]string{
		"price":      "19.90",
		"size":       "XL",
		"categoryId": strconv.FormatInt(shirts.ID, 10),
	}, &upload{"Tee.PNG", "image/png", []byte("png-bytes")})

	resp := app.postMultipart(t, "/admin/products", contentType, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	doc := document(t, resp)

	stored := app.backend.Products()
	if len(stored) != len(products)+1 {
		t.Fatalf("expected a new product, got %d", len(stored))
	}
	created := stored[len(stored)-1]
	if created.Size != "XL" || created.Price != 19.9 || created.CategoryID == nil || *created.CategoryID != shirts.ID {
		t.Errorf("unexpected product %+v", created)
	}
	if !imageNamePattern.MatchString(created.Image) {
		t.Errorf("unexpected image name %q", created.Image)
	}
	if data, ok := app.backend.Object(created.Image); !ok || string(data) != "png-bytes" {
		t.Errorf("image not stored under %q", created.Image)
	}

	rows := ids(doc, ".product-row")
	if len(rows) != 4 || rows[0] != strconv.FormatInt(created.ID, 10) {
		t.Errorf("expected the new product first, got %v", rows)
	}
	if got := text(doc, ".product-row .category"); got != "Shirts" {
		t.Errorf("expected category name, got %q", got)
	}
	if doc.Find(".modal").Length() != 0 {
		t.Error("modal should close after a successful create")
	}

	var uploadAt, insertAt = -1, -1
	for i, req := range app.backend.Requests() {
		switch {
		case req.Method == http.MethodPost && strings.HasPrefix(req.Path, "/storage/v1/object/"):
			uploadAt = i
		case req.Method == http.MethodPost && req.Path == "/rest/v1/products":
			insertAt = i
		}
	}
	if uploadAt < 0 || insertAt < 0 || uploadAt > insertAt {
		t.Errorf("expected upload before insert, got upload=%d insert=%d", uploadAt, insertAt)
	}
}

func TestProductCreateRequiresImage(t *testing.T) {
	app := newTestApp(t)
	shirts := app.backend.SeedCategory("Shirts")
	app.login(t)

	contentType, body := productForm(t, map[string]string{
		"price":      "10",
		"size":       "S",
		"categoryId": strconv.FormatInt(shirts.ID, 10),
	}, nil)

	resp := app.postMultipart(t, "/admin/products", contentType, body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	doc := document(t, resp)
	if got := text(doc, ".alert"); got != GenericErrorMessage {
		t.Errorf("expected %q, got %q", GenericErrorMessage, got)
	}
	if doc.Find(".modal").Length() != 1 {
		t.Error("modal should stay open")
	}
	if got := doc.Find(".modal input[name=size]").AttrOr("value", ""); got != "S" {
		t.Errorf("draft should be kept, got size %q", got)
	}
	if n := app.backend.Count(http.MethodPost, "/storage/v1/object/"); n != 0 {
		t.Errorf("expected no upload, got %d", n)
	}
	if n := app.backend.Count(http.MethodPost, "/rest/v1/products"); n != 0 {
		t.Errorf("expected no insert, got %d", n)
	}
}

func TestProductCreateRejectsOversizedImage(t *testing.T) {
	app := newTestApp(t)
	shirts := app.backend.SeedCategory("Shirts")
	app.login(t)

	contentType, body := productForm(t, map[string]string{
		"price":      "10",
		"size":       "S",
		"categoryId": strconv.FormatInt(shirts.ID, 10),
	}, &upload{"big.png", "image/png", bytes.Repeat([]byte{0x89}, maxImageBytes+1)})

	resp := app.postMultipart(t, "/admin/products", contentType, body)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
	doc := document(t, resp)
	if got := text(doc, ".alert"); got != GenericErrorMessage {
		t.Errorf("expected %q, got %q", GenericErrorMessage, got)
	}
	if doc.Find(".modal").Length() != 1 {
		t.Error("modal should stay open")
	}
	if n := app.backend.Count(http.MethodPost, "/storage/v1/object/"); n != 0 {
		t.Errorf("expected no upload, got %d", n)
	}
	if n := app.backend.Count(http.MethodPost, "/rest/v1/products"); n != 0 {
		t.Errorf("expected no insert, got %d", n)
	}
}

func TestProductCreateAcceptsImageAtLimit(t *testing.T) {
	app := newTestApp(t)
	shirts := app.backend.SeedCategory("Shirts")
	app.login(t)

	contentType, body := productForm(t, map[string]string{
		"price":      "10",
		"size":       "S",
		"categoryId": strconv.FormatInt(shirts.ID, 10),
	}, &upload{"big.png", "image/png", bytes.Repeat([]byte{0x89}, maxImageBytes)})

	resp := app.postMultipart(t, "/admin/products", contentType, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	stored := app.backend.Products()
	if len(stored) != 1 {
		t.Fatalf("expected one product, got %d", len(stored))
	}
	if data, ok := app.backend.Object(stored[0].Image); !ok || len(data) != maxImageBytes {
		t.Errorf("expected the full image to be stored, got %d bytes", len(data))
	}
}

func TestProductCreateStopsWhenUploadFails(t *testing.T) {
	app := newTestApp(t)
	shirts := app.backend.SeedCategory("Shirts")
	app.login(t)
	app.backend.Fail(http.MethodPost, "/storage/v1/object/", http.StatusInternalServerError)

	contentType, body := productForm(t, map[string]string{
		"price":      "10",
		"size":       "S",
		"categoryId": strconv.FormatInt(shirts.ID, 10),
	}, &upload{"a.png", "image/png", []byte("x")})

	resp := app.postMultipart(t, "/admin/products", contentType, body)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	if got := text(document(t, resp), ".alert"); got != GenericErrorMessage {
		t.Errorf("expected %q, got %q", GenericErrorMessage, got)
	}
	if n := app.backend.Count(http.MethodPost, "/rest/v1/products"); n != 0 {
		t.Errorf("expected no insert after a failed upload, got %d", n)
	}
}

func TestProductEditModalAndPicker(t *testing.T) {
	app := newTestApp(t)
	shirts, jackets, products := seedCatalog(app)
	app.login(t)

	doc := document(t, app.get(t, path("/admin/products?edit={id}&picker=open", products[0].ID)))
	if doc.Find(".modal").Length() != 1 {
		t.Fatal("expected the edit modal")
	}
	if got := doc.Find(".modal input[name=size]").AttrOr("value", ""); got != "M" {
		t.Errorf("expected seeded size, got %q", got)
	}
	if got := text(doc, ".picked"); got != "Shirts" {
		t.Errorf("expected picked Shirts, got %q", got)
	}
	want := []string{strconv.FormatInt(jackets.ID, 10), strconv.FormatInt(shirts.ID, 10)}
	if got := ids(doc, ".picker .pick"); !reflect.DeepEqual(got, want) {
		t.Errorf("expected picker %v, got %v", want, got)
	}

	doc = document(t, app.get(t, path("/admin/products?edit={id}", products[0].ID)+"&categoryId="+strconv.FormatInt(jackets.ID, 10)))
	if got := text(doc, ".picked"); got != "Jackets" {
		t.Errorf("expected picked Jackets, got %q", got)
	}
	if doc.Find(".picker").Length() != 0 {
		t.Error("picking should close the picker")
	}
}

func TestPickerKeepsNewDraft(t *testing.T) {
	app := newTestApp(t)
	shirts := app.backend.SeedCategory("Shirts")
	app.login(t)

	doc := document(t, app.get(t, "/admin/products?new&price=12.5&size=XL"))
	open := doc.Find(".open-picker").AttrOr("href", "")
	if open == "" {
		t.Fatal("expected a picker link")
	}

	doc = document(t, app.get(t, open))
	pick := doc.Find(".picker .pick[data-id='" + strconv.FormatInt(shirts.ID, 10) + "']").AttrOr("href", "")
	if pick == "" {
		t.Fatal("expected a pick link for Shirts")
	}

	doc = document(t, app.get(t, pick))
	if got := doc.Find(".modal input[name=price]").AttrOr("value", ""); got != "12.5" {
		t.Errorf("expected price to survive picking, got %q", got)
	}
	if got := doc.Find(".modal input[name=size]").AttrOr("value", ""); got != "XL" {
		t.Errorf("expected size to survive picking, got %q", got)
	}
	if got := text(doc, ".picked"); got != "Shirts" {
		t.Errorf("expected picked Shirts, got %q", got)
	}
	if got := doc.Find(".modal input[name=categoryId]").AttrOr("value", ""); got != strconv.FormatInt(shirts.ID, 10) {
		t.Errorf("expected hidden category id, got %q", got)
	}
}

func TestProductUpdateMergesLocally(t *testing.T) {
	app := newTestApp(t)
	_, jackets, products := seedCatalog(app)
	app.login(t)

	resp := app.postForm(t, path("/admin/products/{id}", products[0].ID), url.Values{
		"price":      {"13"},
		"size":       {"XS"},
		"categoryId": {strconv.FormatInt(jackets.ID, 10)},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	doc := document(t, resp)

	row := doc.Find(".product-row[data-id='" + strconv.FormatInt(products[0].ID, 10) + "']")
	if got := strings.TrimSpace(row.Find(".size").Text()); got != "XS" {
		t.Errorf("expected size XS, got %q", got)
	}
	if got := strings.TrimSpace(row.Find(".price").Text()); got != "$13.00" {
		t.Errorf("expected $13.00, got %q", got)
	}
	if got := strings.TrimSpace(row.Find(".category").Text()); got != "Jackets" {
		t.Errorf("expected Jackets, got %q", got)
	}
	if n := app.backend.Count(http.MethodGet, "/rest/v1/products"); n != 1 {
		t.Errorf("expected no refetch after the patch, got %d loads", n)
	}
	if n := app.backend.Count(http.MethodPost, "/storage/v1/object/"); n != 0 {
		t.Errorf("editing must not upload, got %d", n)
	}
}

func TestProductDeleteRemovesImageThenRecord(t *testing.T) {
	app := newTestApp(t)
	_, _, products := seedCatalog(app)
	app.backend.SeedObject(products[1].Image, []byte("img"))
	app.login(t)

	resp := app.postForm(t, path("/admin/products/{id}/delete", products[1].ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	want := idStrings(products[2], products[0])
	if got := ids(document(t, resp), ".product-row"); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if _, ok := app.backend.Object(products[1].Image); ok {
		t.Error("image should be removed")
	}

	var removeAt, deleteAt = -1, -1
	for i, req := range app.backend.Requests() {
		switch {
		case req.Method == http.MethodDelete && strings.HasPrefix(req.Path, "/storage/v1/object/"):
			removeAt = i
		case req.Method == http.MethodDelete && req.Path == "/rest/v1/products":
			deleteAt = i
		}
	}
	if removeAt < 0 || deleteAt < 0 || removeAt > deleteAt {
		t.Errorf("expected image removal before record delete, got remove=%d delete=%d", removeAt, deleteAt)
	}
}

func TestProductDeleteSurvivesMissingImage(t *testing.T) {
	app := newTestApp(t)
	_, _, products := seedCatalog(app)
	app.login(t)

	resp := app.postForm(t, path("/admin/products/{id}/delete", products[0].ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(app.backend.Products()) != 2 {
		t.Error("record should be deleted even when the image is gone")
	}
}

func TestProductsInlineErrorOnLoadFailure(t *testing.T) {
	app := newTestApp(t)
	seedCatalog(app)
	app.login(t)
	app.backend.Fail(http.MethodGet, "/rest/v1/categories", http.StatusInternalServerError)

	doc := document(t, app.get(t, "/admin/products"))
	if got := text(doc, ".error"); got != GenericErrorMessage {
		t.Errorf("expected %q, got %q", GenericErrorMessage, got)
	}
	if doc.Find(".product-row").Length() != 0 {
		t.Error("no rows should render when either load fails")
	}
}
