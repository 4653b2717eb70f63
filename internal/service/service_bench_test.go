package service

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/jamiechicago312/openlinks/internal/bulk"
	"github.com/jamiechicago312/openlinks/internal/repository"
)

func newBenchmarkService(b *testing.B) *Service {
	b.Helper()
	repo := repository.NewMemoryRepository()
	engine, err := bulk.NewEngine(repo, "secret", zap.NewNop())
	if err != nil {
		b.Fatal(err)
	}
	return NewService(repo, engine, testSite(), zap.NewNop())
}

// Бенчмарки для создания ссылок с извлечением из текста
func BenchmarkCreateLink(b *testing.B) {
	svc := newBenchmarkService(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Используем уникальный слаг для каждой итерации
		_, err := svc.CreateLink(ctx, CreateRequest{
			Slug:        fmt.Sprintf("link-%d", i),
			Destination: "https://example.com/very/long/url/that/needs/to/be/shortened",
			Text:        "tag as launch and q1. Share on LinkedIn",
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

// Бенчмарки для разрешения слага
func BenchmarkResolve(b *testing.B) {
	svc := newBenchmarkService(b)
	_, err := svc.CreateLink(context.Background(), CreateRequest{
		Slug:        "launch",
		Destination: "https://example.com/launch?ref=x",
		UTMParams:   map[string]string{"source": "newsletter", "medium": "email", "campaign": "q1"},
	})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if res := svc.Resolve("launch"); res.URL == "" {
			b.Fatal("empty URL")
		}
	}
}

// Бенчмарки для извлечения слага из короткого URL
func BenchmarkSlugFromShortURL(b *testing.B) {
	svc := newBenchmarkService(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = svc.SlugFromShortURL("https://go.openhands.dev/launch")
	}
}
