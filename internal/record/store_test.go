package record

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
	apperrors "github.com/harbouli/ai-ecommerce-sub000/pkg/errors"
)

func storesUnderTest(t *testing.T) map[string]knowledge.RecordStore {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]knowledge.RecordStore{
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestCreateAndFindByID(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			created, err := store.Create(ctx, &knowledge.Entity{
				Type:        knowledge.EntityTypeProduct,
				Name:        "Wireless Headphones",
				Description: "Over-ear, noise cancelling",
				Properties:  map[string]string{knowledge.PropPrice: "199.99"},
				Vector:      []float32{0.1, 0.2, 0.3},
			})
			require.NoError(t, err)
			assert.NotEmpty(t, created.ID)
			assert.False(t, created.CreatedAt.IsZero())

			loaded, err := store.FindByID(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, "Wireless Headphones", loaded.Name)
			assert.Equal(t, "199.99", loaded.Properties[knowledge.PropPrice])
			assert.Equal(t, []float32{0.1, 0.2, 0.3}, loaded.Vector)
		})
	}
}

func TestCreate_KeepsSuppliedID(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			created, err := store.Create(ctx, &knowledge.Entity{
				ID:   "prod-1",
				Type: knowledge.EntityTypeProduct,
				Name: "Widget",
			})
			require.NoError(t, err)
			assert.Equal(t, "prod-1", created.ID)

			// Duplicate ids are rejected as validation failures
			_, err = store.Create(ctx, &knowledge.Entity{
				ID:   "prod-1",
				Type: knowledge.EntityTypeProduct,
				Name: "Widget Again",
			})
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestCreate_RejectsInvalidInput(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Create(ctx, &knowledge.Entity{Type: "Gadget", Name: "X"})
			assert.True(t, apperrors.IsValidation(err))

			_, err = store.Create(ctx, &knowledge.Entity{Type: knowledge.EntityTypeProduct})
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestFindByID_NotFound(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.FindByID(ctx, "missing")
			assert.True(t, apperrors.IsNotFound(err))
		})
	}
}

func TestFindByName_CaseInsensitiveSubstring(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Create(ctx, &knowledge.Entity{Type: knowledge.EntityTypeProduct, Name: "Wireless Headphones"})
			require.NoError(t, err)
			_, err = store.Create(ctx, &knowledge.Entity{Type: knowledge.EntityTypeProduct, Name: "Wired Earbuds"})
			require.NoError(t, err)

			found, err := store.FindByName(ctx, "HEADphone")
			require.NoError(t, err)
			require.Len(t, found, 1)
			assert.Equal(t, "Wireless Headphones", found[0].Name)
		})
	}
}

func TestFindByName_MatchesDescriptions(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Create(ctx, &knowledge.Entity{
				Type:        knowledge.EntityTypeProduct,
				Name:        "Carrying Case",
				Description: "Hard shell case that fits most headphones",
			})
			require.NoError(t, err)
			_, err = store.Create(ctx, &knowledge.Entity{
				Type:        knowledge.EntityTypeProduct,
				Name:        "Blender",
				Description: "Crushes ice",
			})
			require.NoError(t, err)

			found, err := store.FindByName(ctx, "headphones")
			require.NoError(t, err)
			require.Len(t, found, 1)
			assert.Equal(t, "Carrying Case", found[0].Name)
		})
	}
}

func TestFindByTypeAndProperties(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Create(ctx, &knowledge.Entity{
				Type:       knowledge.EntityTypeProduct,
				Name:       "Headphones",
				Properties: map[string]string{knowledge.PropBrand: "Acme", knowledge.PropCategory: "Audio"},
			})
			require.NoError(t, err)
			_, err = store.Create(ctx, &knowledge.Entity{
				Type:       knowledge.EntityTypeProduct,
				Name:       "Blender",
				Properties: map[string]string{knowledge.PropBrand: "Acme", knowledge.PropCategory: "Kitchen"},
			})
			require.NoError(t, err)
			_, err = store.Create(ctx, &knowledge.Entity{Type: knowledge.EntityTypeBrand, Name: "Acme"})
			require.NoError(t, err)

			products, err := store.FindByType(ctx, knowledge.EntityTypeProduct)
			require.NoError(t, err)
			assert.Len(t, products, 2)
			// Ordered by name
			assert.Equal(t, "Blender", products[0].Name)

			matched, err := store.FindByProperties(ctx, map[string]string{
				knowledge.PropBrand:    "Acme",
				knowledge.PropCategory: "Audio",
			})
			require.NoError(t, err)
			require.Len(t, matched, 1)
			assert.Equal(t, "Headphones", matched[0].Name)
		})
	}
}

func TestUpdate_MergesPatch(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			created, err := store.Create(ctx, &knowledge.Entity{
				Type:       knowledge.EntityTypeProduct,
				Name:       "Old Name",
				Properties: map[string]string{knowledge.PropBrand: "Acme", knowledge.PropCategory: "Audio"},
			})
			require.NoError(t, err)

			newName := "New Name"
			updated, err := store.Update(ctx, created.ID, knowledge.EntityPatch{
				Name:       &newName,
				Properties: map[string]string{knowledge.PropBrand: "Other"},
				Vector:     []float32{1, 2},
			})
			require.NoError(t, err)

			assert.Equal(t, "New Name", updated.Name)
			// Patched keys replace, untouched keys survive
			assert.Equal(t, "Other", updated.Properties[knowledge.PropBrand])
			assert.Equal(t, "Audio", updated.Properties[knowledge.PropCategory])
			assert.Equal(t, []float32{1, 2}, updated.Vector)
			assert.True(t, updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))

			_, err = store.Update(ctx, "missing", knowledge.EntityPatch{Name: &newName})
			assert.True(t, apperrors.IsNotFound(err))
		})
	}
}

func TestDelete_ReportsPresence(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			created, err := store.Create(ctx, &knowledge.Entity{Type: knowledge.EntityTypeProduct, Name: "Widget"})
			require.NoError(t, err)

			found, err := store.Delete(ctx, created.ID)
			require.NoError(t, err)
			assert.True(t, found)

			// Absent ids report false, not an error
			found, err = store.Delete(ctx, created.ID)
			require.NoError(t, err)
			assert.False(t, found)

			_, err = store.FindByID(ctx, created.ID)
			assert.True(t, apperrors.IsNotFound(err))
		})
	}
}
