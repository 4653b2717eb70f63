package service_test

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jamiechicago312/openlinks/internal/bulk"
	"github.com/jamiechicago312/openlinks/internal/models"
	"github.com/jamiechicago312/openlinks/internal/repository"
	"github.com/jamiechicago312/openlinks/internal/service"
)

func newExampleService() *service.Service {
	// Создаём сервис с in-memory репозиторием
	repo := repository.NewMemoryRepository()
	engine, _ := bulk.NewEngine(repo, "example-secret", zap.NewNop())
	site := &models.SiteConfig{BaseURL: "https://go.openhands.dev", PrimaryDomain: "https://openhands.dev"}
	return service.NewService(repo, engine, site, zap.NewNop())
}

// ExampleService_CreateLink демонстрирует создание ссылки по тексту запроса
func ExampleService_CreateLink() {
	svc := newExampleService()

	link, err := svc.CreateLink(context.Background(), service.CreateRequest{
		Slug:        "jan-news",
		Destination: "https://openhands.dev/blog",
		Text:        "tag this as january and newsletter",
	})
	if err != nil {
		fmt.Printf("Ошибка создания: %v\n", err)
		return
	}

	fmt.Printf("Короткий URL: %s\n", svc.ShortURL(link.Slug))
	fmt.Printf("Теги: %v\n", link.Tags)
	fmt.Printf("UTM: source=%s medium=%s\n", link.UTMParams["source"], link.UTMParams["medium"])

	// Output:
	// Короткий URL: https://go.openhands.dev/jan-news
	// Теги: [january newsletter]
	// UTM: source=newsletter medium=email
}

// ExampleService_Resolve демонстрирует разрешение короткой ссылки
func ExampleService_Resolve() {
	svc := newExampleService()

	_, err := svc.CreateLink(context.Background(), service.CreateRequest{
		Slug:        "docs",
		Destination: "https://docs.openhands.dev?utm_source=own",
		UTMParams:   map[string]string{"source": "newsletter", "medium": "email"},
	})
	if err != nil {
		fmt.Printf("Ошибка создания: %v\n", err)
		return
	}

	fmt.Println(svc.Resolve("docs").URL)
	fmt.Println(svc.Resolve("missing").URL)

	// Output:
	// https://docs.openhands.dev?utm_source=own&utm_medium=email
	// https://openhands.dev
}

// ExampleService_SlugFromShortURL демонстрирует извлечение слага из короткого URL
func ExampleService_SlugFromShortURL() {
	svc := newExampleService()

	fmt.Println(svc.SlugFromShortURL("https://go.openhands.dev/luma"))
	fmt.Println(svc.SlugFromShortURL("luma"))

	// Output:
	// luma
	// luma
}
