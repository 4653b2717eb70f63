package repository_test

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jamiechicago312/openlinks/internal/commitlog"
	"github.com/jamiechicago312/openlinks/internal/models"
	"github.com/jamiechicago312/openlinks/internal/repository"
)

// ExampleMemoryRepository_Create демонстрирует создание записи в in-memory репозитории
func ExampleMemoryRepository_Create() {
	repo := repository.NewMemoryRepository()

	link, err := repo.Create(context.Background(), models.Link{
		Slug:        "luma",
		Destination: "https://luma.com/openhands",
		Tags:        []string{"Events", "Q1"},
	})
	if err != nil {
		fmt.Printf("Ошибка создания: %v\n", err)
		return
	}

	fmt.Printf("Создана ссылка: %s\n", link.Slug)
	fmt.Printf("Теги: %v\n", link.Tags)

	// Output:
	// Создана ссылка: luma
	// Теги: [events q1]
}

// ExampleMemoryRepository_List демонстрирует выборку по тегам
func ExampleMemoryRepository_List() {
	repo := repository.NewMemoryRepository()
	ctx := context.Background()

	repo.Create(ctx, models.Link{Slug: "jan", Destination: "https://example.com/jan", Tags: []string{"january", "newsletter"}})
	repo.Create(ctx, models.Link{Slug: "feb", Destination: "https://example.com/feb", Tags: []string{"february"}})

	for _, l := range repo.List(models.ListFilter{Tags: []string{"newsletter"}}) {
		fmt.Println(l.Slug)
	}

	// Output:
	// jan
}

// ExampleFileRepository демонстрирует хранилище поверх журнала фиксаций
func ExampleFileRepository() {
	dir, err := os.MkdirTemp("", "openlinks-example")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)

	remote := commitlog.NewMemoryRemote()
	repo, err := repository.NewFileRepository(dir, remote.Clone(dir, zap.NewNop()), zap.NewNop())
	if err != nil {
		fmt.Println(err)
		return
	}

	ctx := context.Background()
	if _, err := repo.Create(ctx, models.Link{Slug: "docs", Destination: "https://docs.openhands.dev"}); err != nil {
		fmt.Println(err)
		return
	}
	if _, err := repo.Archive(ctx, "docs"); err != nil {
		fmt.Println(err)
		return
	}

	for _, c := range remote.History() {
		fmt.Println(c.Message)
	}

	// Output:
	// Add link: docs → https://docs.openhands.dev
	// Delete link: docs
}
