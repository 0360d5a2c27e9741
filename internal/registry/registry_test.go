package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/emberls/internal/layout"
)

func TestAddThenRemoveRestoresState(t *testing.T) {
	t.Parallel()

	r := New()
	r.Add(layout.Component, "foo-bar", "/p/app/components/foo-bar.js")
	before := r.Entries()

	r.Add(layout.Component, "baz", "/p/app/components/baz.js", "/p/app/templates/components/baz.hbs")
	r.Remove(layout.Component, "baz", "/p/app/components/baz.js", "/p/app/templates/components/baz.hbs")

	assert.Equal(t, before, r.Entries())
	assert.NotContains(t, r.Lookup(layout.Component), "baz")
	assert.Equal(t, 1, r.Len())
}

func TestAddIsIdempotent(t *testing.T) {
	t.Parallel()

	r := New()
	r.Add(layout.Service, "session", "/p/app/services/session.js")
	r.Add(layout.Service, "session", "/p/app/services/session.js")
	assert.Equal(t, []string{"/p/app/services/session.js"}, r.PathsFor(layout.Service, "session"))

	r.Remove(layout.Service, "session", "/p/app/services/session.js")
	r.Remove(layout.Service, "session", "/p/app/services/session.js")
	assert.Empty(t, r.Lookup(layout.Service))
	assert.Zero(t, r.Len())
}

func TestPathMovesToLastWriter(t *testing.T) {
	t.Parallel()

	r := New()
	r.Add(layout.Route, "items", "/p/app/templates/items.hbs")
	r.Add(layout.Component, "items", "/p/app/templates/items.hbs")

	assert.Empty(t, r.PathsFor(layout.Route, "items"))
	typ, name, ok := r.Owner("/p/app/templates/items.hbs")
	require.True(t, ok)
	assert.Equal(t, layout.Component, typ)
	assert.Equal(t, "items", name)

	assert.True(t, r.RemovePath("/p/app/templates/items.hbs"))
	assert.False(t, r.RemovePath("/p/app/templates/items.hbs"))
	assert.Zero(t, r.Len())
}

func TestLookupIn(t *testing.T) {
	t.Parallel()

	r := New()
	r.Add(layout.Component, "foo-bar", "/p/app/components/foo-bar.js", "/addons/ui/addon/components/foo-bar.js")
	r.Add(layout.Component, "only-addon", "/addons/ui/addon/components/only-addon.js")

	host := r.LookupIn(layout.Component, "/p")
	assert.Equal(t, map[string][]string{"foo-bar": {"/p/app/components/foo-bar.js"}}, host)

	addon := r.LookupIn(layout.Component, "/addons/ui")
	assert.Len(t, addon, 2)

	// Sibling directories sharing a prefix are not roots of each other.
	assert.Empty(t, r.LookupIn(layout.Component, "/addons/u"))
}

func TestSuggest(t *testing.T) {
	t.Parallel()

	r := New()
	r.Add(layout.Component, "user-card", "/p/app/components/user-card.js")
	r.Add(layout.Component, "user-list", "/p/app/components/user-list.js")
	r.Add(layout.Component, "zebra", "/p/app/components/zebra.js")

	got := r.Suggest(layout.Component, "user-crad", 1)
	assert.Equal(t, []string{"user-card"}, got)
	assert.NotContains(t, r.Suggest(layout.Component, "user-crad", 0), "zebra")
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Add(layout.Helper, "format", "/p/app/helpers/format.js")
		}()
		go func() {
			defer wg.Done()
			_ = r.Lookup(layout.Helper)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, r.Len())
}
