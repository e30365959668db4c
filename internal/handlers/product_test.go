package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stockgate/internal/models"
	"stockgate/internal/store"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func productRouter(products store.ProductStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewProductHandler(products, testLogger())
	router.GET("/products", h.ListProducts)
	router.GET("/products/:id", h.GetProduct)
	router.POST("/products", h.CreateProduct)
	router.POST("/validate-stock", h.ValidateStock)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetProduct(t *testing.T) {
	router := productRouter(store.NewMemoryProductStore())

	w := doJSON(t, router, http.MethodPost, "/products",
		`{"name":"Keyboard","description":"ABNT2","price":150,"quantity":5}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created models.Product
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = doJSON(t, router, http.MethodGet, "/products/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var fetched models.Product
	if err := json.Unmarshal(w.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fetched.ID != created.ID || fetched.Name != "Keyboard" || fetched.Description != "ABNT2" ||
		fetched.Price != 150 || fetched.Quantity != 5 {
		t.Fatalf("round trip mismatch: created %+v fetched %+v", created, fetched)
	}
}

func TestGetProductNotFound(t *testing.T) {
	router := productRouter(store.NewMemoryProductStore())

	w := doJSON(t, router, http.MethodGet, "/products/99", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCreateProductRejectsMissingName(t *testing.T) {
	router := productRouter(store.NewMemoryProductStore())

	w := doJSON(t, router, http.MethodPost, "/products", `{"price":10,"quantity":1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestListProducts(t *testing.T) {
	router := productRouter(store.NewMemoryProductStore())

	w := doJSON(t, router, http.MethodGet, "/products", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %s", w.Body.String())
	}

	doJSON(t, router, http.MethodPost, "/products", `{"name":"A","quantity":1}`)
	doJSON(t, router, http.MethodPost, "/products", `{"name":"B","quantity":2}`)

	w = doJSON(t, router, http.MethodGet, "/products", "")
	var products []models.Product
	if err := json.Unmarshal(w.Body.Bytes(), &products); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(products) != 2 || products[0].Name != "A" || products[1].Name != "B" {
		t.Fatalf("unexpected list: %+v", products)
	}
}

func TestValidateStock(t *testing.T) {
	products := store.NewMemoryProductStore()
	router := productRouter(products)

	doJSON(t, router, http.MethodPost, "/products", `{"name":"Keyboard","quantity":5}`)

	w := doJSON(t, router, http.MethodPost, "/validate-stock",
		`{"items":[{"product_id":1,"quantity":3}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("expected ok payload, got %s", w.Body.String())
	}

	w = doJSON(t, router, http.MethodPost, "/validate-stock",
		`{"items":[{"product_id":1,"quantity":10}]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "insufficient stock for product 1") {
		t.Fatalf("expected shortage message, got %s", w.Body.String())
	}

	// Unknown product is an unmet demand, not a 404.
	w = doJSON(t, router, http.MethodPost, "/validate-stock",
		`{"items":[{"product_id":7,"quantity":1}]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown product, got %d", w.Code)
	}
}

func TestValidateStockRejectsEmptyItems(t *testing.T) {
	router := productRouter(store.NewMemoryProductStore())

	w := doJSON(t, router, http.MethodPost, "/validate-stock", `{"items":[]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
