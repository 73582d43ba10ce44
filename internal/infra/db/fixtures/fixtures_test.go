package fixtures

import (
	"context"
	"testing"

	"trading-academy/internal/domain/ports/repository"
	"trading-academy/internal/infra/db/memory"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repos := Repos{
		Users:     memory.NewUserRepo(store),
		Resources: memory.NewResourceRepo(store),
		Signals:   memory.NewSignalRepo(store),
	}

	first, err := Seed(ctx, repos)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(first.Users) != len(demoUsers) || first.Resources != len(catalog) || first.Signals != len(signals) {
		t.Fatalf("unexpected result %+v", first)
	}

	t.Run("should be idempotent", func(t *testing.T) {
		second, err := Seed(ctx, repos)
		if err != nil {
			t.Fatalf("reseed: %v", err)
		}
		for i, u := range second.Users {
			if u.ID != first.Users[i].ID {
				t.Errorf("user %d changed id: %s -> %s", i, first.Users[i].ID, u.ID)
			}
		}
		premium, err := repos.Resources.List(ctx, repository.NoTX, true)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(premium) != 2 {
			t.Errorf("expected 2 premium resources, got %d", len(premium))
		}
	})
}
