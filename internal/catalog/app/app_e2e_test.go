// End-to-end tests for the catalog service.
// A MongoDB container is started with testcontainers-go, migrations are applied
// and the real application handler is served by an httptest.Server.
// Every test starts from the same seeded collection.
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abgdnv/fleximart/internal/catalog/service"
	"github.com/abgdnv/fleximart/internal/catalog/store"
	"github.com/abgdnv/fleximart/pkg/bootstrap"
	"github.com/abgdnv/fleximart/pkg/config"
	"github.com/abgdnv/fleximart/pkg/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// skipE2ETests is the environment variable that can be set to skip E2E tests.
const skipE2ETests = "CATALOG_SVC_SKIP_E2E_TESTS"

const (
	productsURL   = "/api/v1/products"
	categoriesURL = "/api/v1/categories/prices"
)

type CatalogE2ESuite struct {
	suite.Suite
	mongoContainer *mongodb.MongoDBContainer
	client         *mongo.Client
	coll           *mongo.Collection
	server         *httptest.Server
	httpClient     *http.Client
	ctx            context.Context
}

func (s *CatalogE2ESuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s.mongoContainer, err = mongodb.Run(s.ctx, "mongo:7.0")
	require.NoError(s.T(), err, "Failed to run MongoDB container")

	connStr, err := s.mongoContainer.ConnectionString(s.ctx)
	require.NoError(s.T(), err, "Failed to get connection string from container")

	dbCfg := config.DatabaseConfig{URI: connStr, Name: "fleximart", Timeout: 30 * time.Second}
	require.NoError(s.T(), dbCfg.Validate())

	s.client, err = bootstrap.NewMongoClient(s.ctx, dbCfg, false)
	require.NoError(s.T(), err, "Failed to connect to MongoDB")

	wd, _ := os.Getwd()
	err = bootstrap.RunMigrations(filepath.Join(wd, "..", "store", "migrations"), connStr, dbCfg.Name)
	require.NoError(s.T(), err, "Failed to apply migrations")

	db := s.client.Database(dbCfg.Name)
	s.coll = db.Collection(dbCfg.Collection)

	deps := SetupDependencies(db, dbCfg.Collection, nil, logger, false)
	s.server = httptest.NewServer(SetupHttpHandler(deps))
	s.httpClient = s.server.Client()
}

func (s *CatalogE2ESuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.client != nil {
		_ = s.client.Disconnect(s.ctx)
	}
	if s.mongoContainer != nil {
		require.NoError(s.T(), testcontainers.TerminateContainer(s.mongoContainer), "Failed to terminate MongoDB container")
	}
}

// SetupTest reseeds the collection with two categories and a few reviews.
func (s *CatalogE2ESuite) SetupTest() {
	_, err := s.coll.DeleteMany(s.ctx, bson.D{})
	require.NoError(s.T(), err)

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err = s.coll.InsertMany(s.ctx, []any{
		store.Product{ProductID: "ELEC001", Name: "Smartphone X", Category: "Electronics", Price: 29999, Stock: 50,
			Reviews: []store.Review{{UserID: "U001", Rating: 5, Comment: "Great", Date: at}, {UserID: "U002", Rating: 4, Date: at}}},
		store.Product{ProductID: "ELEC002", Name: "Laptop Pro", Category: "Electronics", Price: 89999, Stock: 10,
			Reviews: []store.Review{{UserID: "U003", Rating: 3, Date: at}}},
		store.Product{ProductID: "BOOK001", Name: "Go in Practice", Category: "Books", Price: 45, Stock: 100},
	})
	require.NoError(s.T(), err)
}

func (s *CatalogE2ESuite) do(method, path string, body any) (*http.Response, []byte) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.T(), err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(s.ctx, method, s.server.URL+path, reader)
	require.NoError(s.T(), err)
	req.Header.Set(web.RequestIDHeader, "e2e-"+s.T().Name())
	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)
	return resp, data
}

func (s *CatalogE2ESuite) TestFindByCategoryUnderPrice() {
	resp, body := s.do(http.MethodGet, productsURL+"?category=Electronics&maxPrice=50000", nil)

	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("e2e-"+s.T().Name(), resp.Header.Get(web.RequestIDHeader))
	var list []service.ProductSummaryDto
	s.Require().NoError(json.Unmarshal(body, &list))
	s.Equal([]service.ProductSummaryDto{{Name: "Smartphone X", Price: 29999, Stock: 50}}, list)

	resp, body = s.do(http.MethodGet, productsURL+"?category=Toys&maxPrice=50000", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.JSONEq(`[]`, string(body))
}

func (s *CatalogE2ESuite) TestAddReviewThenRatings() {
	resp, body := s.do(http.MethodGet, productsURL+"/ratings", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.JSONEq(`[{"productId":"ELEC001","name":"Smartphone X","avgRating":4.5}]`, string(body))

	resp, body = s.do(http.MethodPost, productsURL+"/ELEC002/reviews", map[string]any{"user": "U999", "rating": 5, "comment": "Fast"})
	s.Equal(http.StatusOK, resp.StatusCode)
	s.JSONEq(`{"matchedCount":1,"modifiedCount":1}`, string(body))

	resp, body = s.do(http.MethodGet, productsURL+"/ratings?minAvgRating=4", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	var ratings []service.ProductRatingDto
	s.Require().NoError(json.Unmarshal(body, &ratings))
	s.ElementsMatch([]service.ProductRatingDto{
		{ProductID: "ELEC001", Name: "Smartphone X", AvgRating: 4.5},
		{ProductID: "ELEC002", Name: "Laptop Pro", AvgRating: 4},
	}, ratings)
}

func (s *CatalogE2ESuite) TestAddReviewUnknownProduct() {
	resp, body := s.do(http.MethodPost, productsURL+"/NOPE/reviews", map[string]any{"user": "U999", "rating": 2})

	s.Equal(http.StatusOK, resp.StatusCode)
	s.JSONEq(`{"matchedCount":0,"modifiedCount":0}`, string(body))
	count, err := s.coll.CountDocuments(s.ctx, bson.D{})
	s.Require().NoError(err)
	s.EqualValues(3, count)
}

func (s *CatalogE2ESuite) TestAddReviewRejectsOutOfRangeRating() {
	resp, _ := s.do(http.MethodPost, productsURL+"/ELEC001/reviews", map[string]any{"user": "U999", "rating": 0})
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	var p store.Product
	s.Require().NoError(s.coll.FindOne(s.ctx, bson.D{{Key: "product_id", Value: "ELEC001"}}).Decode(&p))
	s.Len(p.Reviews, 2)
}

func (s *CatalogE2ESuite) TestAveragePriceByCategory() {
	resp, body := s.do(http.MethodGet, categoriesURL, nil)

	s.Equal(http.StatusOK, resp.StatusCode)
	s.JSONEq(`[
		{"category":"Electronics","avgPrice":59999,"productCount":2},
		{"category":"Books","avgPrice":45,"productCount":1}
	]`, string(body))
}

func (s *CatalogE2ESuite) TestRatingsWithNonNumericRating() {
	_, err := s.coll.UpdateOne(s.ctx,
		bson.D{{Key: "product_id", Value: "ELEC002"}},
		bson.D{{Key: "$push", Value: bson.D{{Key: "reviews", Value: bson.D{{Key: "user_id", Value: "U5"}, {Key: "rating", Value: "five"}}}}}})
	s.Require().NoError(err)

	resp, _ := s.do(http.MethodGet, productsURL+"/ratings", nil)
	s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)
}

func (s *CatalogE2ESuite) TestProbes() {
	resp, _ := s.do(http.MethodGet, "/healthz", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	resp, _ = s.do(http.MethodGet, "/readyz", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
}

func TestCatalogE2E(t *testing.T) {
	if os.Getenv(skipE2ETests) != "" {
		t.Skip("Skipping E2E tests")
	}
	suite.Run(t, new(CatalogE2ESuite))
}

func TestSetupHttpHandler_Metrics(t *testing.T) {
	deps := &Dependencies{
		Logger:         slog.New(slog.NewJSONHandler(io.Discard, nil)),
		MetricsPath:    "/metrics",
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) }),
	}
	rr := httptest.NewRecorder()
	SetupHttpHandler(deps).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestSetupHttpHandler_WithTracing(t *testing.T) {
	deps := &Dependencies{Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)), Tracing: true}
	handler := SetupHttpHandler(deps)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(web.RequestIDHeader))
}
