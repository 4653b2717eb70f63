package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	"go.uber.org/zap"

	"github.com/jamiechicago312/openlinks/internal/app"
	"github.com/jamiechicago312/openlinks/internal/bulk"
	"github.com/jamiechicago312/openlinks/internal/models"
	"github.com/jamiechicago312/openlinks/internal/repository"
	"github.com/jamiechicago312/openlinks/internal/service"
)

func newExampleRouter(repo repository.Repository) http.Handler {
	logger := zap.NewNop()
	engine, _ := bulk.NewEngine(repo, "example-secret", logger)
	site := &models.SiteConfig{BaseURL: "https://go.openhands.dev", PrimaryDomain: "https://openhands.dev"}
	svc := service.NewService(repo, engine, site, logger)
	return app.NewRouter(app.NewApp(svc, logger), logger, app.RouterOptions{})
}

// ExampleApp_HandleRedirect демонстрирует перенаправление по слагу
func ExampleApp_HandleRedirect() {
	repo := repository.NewMemoryRepository()
	_, _ = repo.Create(context.Background(), models.Link{
		Slug:        "luma",
		Destination: "https://luma.com/openhands",
		UTMParams:   map[string]string{"source": "twitter", "medium": "social"},
	})
	router := newExampleRouter(repo)

	for _, path := range []string{"/luma", "/unknown"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		fmt.Printf("%s: %d %s\n", path, w.Code, w.Header().Get("Location"))
	}

	// Output:
	// /luma: 307 https://luma.com/openhands?utm_source=twitter&utm_medium=social
	// /unknown: 307 https://openhands.dev
}

// ExampleApp_HandleCreateLink демонстрирует создание ссылки через JSON API
func ExampleApp_HandleCreateLink() {
	router := newExampleRouter(repository.NewMemoryRepository())

	body := strings.NewReader(`{"slug":"jan-news","destination":"https://openhands.dev/blog","text":"tag it as january"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/links", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp app.LinkResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	fmt.Printf("Статус код: %d\n", w.Code)
	fmt.Printf("Короткий адрес: %s\n", resp.ShortURL)
	fmt.Printf("Теги: %v\n", resp.Tags)

	// Output:
	// Статус код: 201
	// Короткий адрес: https://go.openhands.dev/jan-news
	// Теги: [january]
}
