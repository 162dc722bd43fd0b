package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/apperror"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
)

type stubMenu struct {
	categories []models.Category
	err        error
}

func (s *stubMenu) GetMenu(ctx context.Context) ([]models.Category, error) {
	return s.categories, s.err
}

func sampleMenu() []models.Category {
	return []models.Category{
		{Name: "Biryani", Enabled: true, Items: []models.MenuItem{
			{ID: "1", Name: "Chicken Biryani", Price: 250, Diet: models.DietNonVeg, Enabled: true},
			{ID: "2", Name: "Veg Biryani", Price: 180, Diet: models.DietVeg, Enabled: true},
			{ID: "3", Name: "Mutton Biryani", Price: 320, Diet: models.DietNonVeg, Enabled: false},
		}},
		{Name: "Desserts", Enabled: false, Items: []models.MenuItem{
			{ID: "4", Name: "Gulab Jamun", Price: 60, Diet: models.DietVeg, Enabled: true},
		}},
	}
}

func TestMirror_FetchReplaces(t *testing.T) {
	source := &stubMenu{categories: sampleMenu()}
	mirror := NewMirror(source, nil)

	_, err := mirror.Fetch(context.Background())
	require.NoError(t, err)

	entry, ok := mirror.Lookup("1")
	require.True(t, ok)
	assert.Equal(t, "Biryani", entry.Item.Category)
	assert.True(t, entry.Orderable())

	source.categories = []models.Category{{Name: "Breads", Enabled: true, Items: []models.MenuItem{{ID: "9", Name: "Butter Naan", Enabled: true}}}}
	_, err = mirror.Fetch(context.Background())
	require.NoError(t, err)

	_, ok = mirror.Lookup("1")
	assert.False(t, ok, "stale entries must be discarded")
	_, ok = mirror.Lookup("9")
	assert.True(t, ok)
}

func TestMirror_FetchFailureKeepsPrevious(t *testing.T) {
	source := &stubMenu{categories: sampleMenu()}
	mirror := NewMirror(source, nil)
	_, err := mirror.Fetch(context.Background())
	require.NoError(t, err)

	source.err = apperror.Transport("get_menu", errors.New("connection reset"))
	categories, err := mirror.Fetch(context.Background())

	assert.ErrorIs(t, err, apperror.ErrCatalogUnavailable)
	assert.True(t, apperror.IsKind(err, apperror.KindTransport))
	assert.Len(t, categories, 2)
	_, ok := mirror.Lookup("2")
	assert.True(t, ok)
}

func TestMirror_EmptyIsValid(t *testing.T) {
	mirror := NewMirror(&stubMenu{err: errors.New("offline")}, nil)

	_, err := mirror.Fetch(context.Background())
	assert.Error(t, err)
	assert.Empty(t, mirror.Categories())
	assert.Empty(t, mirror.Items(Filter{}))
}

func TestMirror_Items(t *testing.T) {
	mirror := NewMirror(&stubMenu{categories: sampleMenu()}, nil)
	_, err := mirror.Fetch(context.Background())
	require.NoError(t, err)

	ids := func(entries []Entry) []string {
		var out []string
		for _, e := range entries {
			out = append(out, e.Item.ID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"everything", Filter{}, []string{"1", "2", "3", "4"}},
		{"veg only", Filter{VegOnly: true}, []string{"2", "4"}},
		{"available only", Filter{AvailableOnly: true}, []string{"1", "2"}},
		{"by category", Filter{Category: "Desserts"}, []string{"4"}},
		{"veg and available", Filter{VegOnly: true, AvailableOnly: true}, []string{"2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(mirror.Items(tt.filter)))
		})
	}
}

func TestMirror_DisabledCategoryDisablesItems(t *testing.T) {
	mirror := NewMirror(&stubMenu{categories: sampleMenu()}, nil)
	_, err := mirror.Fetch(context.Background())
	require.NoError(t, err)

	entry, ok := mirror.Lookup("4")
	require.True(t, ok)
	assert.False(t, entry.Orderable())
}
