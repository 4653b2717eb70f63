package resolver_test

import (
	"context"
	"fmt"
	"time"

	"github.com/jamiechicago312/openlinks/internal/models"
	"github.com/jamiechicago312/openlinks/internal/repository"
	"github.com/jamiechicago312/openlinks/internal/resolver"
)

// ExampleResolver_Resolve демонстрирует разрешение слага с UTM-параметрами
func ExampleResolver_Resolve() {
	repo := repository.NewMemoryRepository()
	repo.Create(context.Background(), models.Link{
		Slug:        "jan-news",
		Destination: "https://openhands.dev/blog",
		UTMParams:   map[string]string{"source": "newsletter", "medium": "email"},
	})

	r := resolver.New(repo, &models.SiteConfig{PrimaryDomain: "https://openhands.dev"})

	res := r.Resolve("jan-news", time.Now())
	fmt.Println(res.Kind, res.URL)

	res = r.Resolve("missing", time.Now())
	fmt.Println(res.Kind, res.URL)

	// Output:
	// found https://openhands.dev/blog?utm_source=newsletter&utm_medium=email
	// not_found https://openhands.dev
}
