package cart

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var spandex = Product{ID: 1, Title: "Multi kain mutilato 4 way spandex", SKU: "KPP-MULTI-4WAY", Price: 50000, DiscountPercentage: 10, Stock: 100}
var cotton = Product{ID: 2, Title: "Katun combed 30s", SKU: "KTN-30S", Price: 80000, DiscountPercentage: 0, Stock: 5}

func requireInvariants(t *testing.T, snap Snapshot) {
	t.Helper()
	seen := map[string]bool{}
	var total int
	var subtotal float64
	for _, it := range snap.Items {
		require.GreaterOrEqual(t, it.Quantity, 1, "item %s", it.VariantKey)
		require.Equal(t, ResolveKey(it.Product.ID, it.SelectedVariant), it.VariantKey)
		require.False(t, seen[it.VariantKey], "duplicate key %s", it.VariantKey)
		seen[it.VariantKey] = true
		total += it.Quantity
		subtotal += DiscountedPrice(it.Product) * float64(it.Quantity)
	}
	require.Equal(t, total, snap.TotalItems)
	require.InDelta(t, subtotal, snap.Subtotal, 1e-6)
}

func TestAddItem_ScenarioA(t *testing.T) {
	s := NewStore(EmptySnapshot())
	s.AddItem(spandex, 2, "")

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.TotalItems)
	assert.InDelta(t, 90000, snap.Subtotal, 1e-9)
	requireInvariants(t, snap)
}

func TestAddItem_MergesSameKey(t *testing.T) {
	tests := []struct {
		name    string
		variant string
		first   int
		second  int
	}{
		{name: "no variant", variant: "", first: 1, second: 4},
		{name: "same variant", variant: "red", first: 2, second: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(EmptySnapshot())
			s.AddItem(spandex, tt.first, tt.variant)
			s.AddItem(spandex, tt.second, tt.variant)

			snap := s.Snapshot()
			require.Len(t, snap.Items, 1)
			assert.Equal(t, 5, snap.Items[0].Quantity)
			assert.Equal(t, 5, s.GetItemQuantity(spandex.ID, tt.variant))
			requireInvariants(t, snap)
		})
	}
}

func TestAddItem_DistinctVariants(t *testing.T) {
	s := NewStore(EmptySnapshot())
	s.AddItem(spandex, 1, "red")
	s.AddItem(spandex, 1, "blue")

	snap := s.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "red", snap.Items[0].SelectedVariant)
	assert.Equal(t, "blue", snap.Items[1].SelectedVariant)
	assert.Equal(t, 0, s.GetItemQuantity(spandex.ID, ""))
	requireInvariants(t, snap)
}

func TestAddItem_NoStockEnforcement(t *testing.T) {
	s := NewStore(EmptySnapshot())
	s.AddItem(cotton, 4, "")
	s.AddItem(cotton, 4, "")
	assert.Equal(t, 8, s.GetItemQuantity(cotton.ID, ""))
}

func TestAddItem_NonPositiveOnFreshKeyLeavesNoRow(t *testing.T) {
	s := NewStore(EmptySnapshot())
	s.AddItem(cotton, 0, "")
	assert.Equal(t, 0, s.Len())
	requireInvariants(t, s.Snapshot())
}

func TestRemoveItem_UnknownKeyIsNoop(t *testing.T) {
	s := NewStore(EmptySnapshot())
	s.AddItem(spandex, 2, "")
	before := s.Snapshot()

	var events []Event
	s.Subscribe(func(e Event) { events = append(events, e) })
	s.RemoveItem("999")

	assert.Equal(t, before, s.Snapshot())
	assert.Empty(t, events)
}

func TestRemoveItem_DeletesRow(t *testing.T) {
	s := NewStore(EmptySnapshot())
	s.AddItem(spandex, 2, "red")
	s.AddItem(cotton, 1, "")

	s.RemoveItem(ResolveKey(spandex.ID, "red"))

	snap := s.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, cotton.ID, snap.Items[0].Product.ID)
	requireInvariants(t, snap)
}

func TestUpdateQuantity(t *testing.T) {
	key := ResolveKey(spandex.ID, "")
	tests := []struct {
		name     string
		key      string
		quantity int
		wantLen  int
		wantQty  int
	}{
		{name: "replace", key: key, quantity: 7, wantLen: 1, wantQty: 7},
		{name: "zero removes", key: key, quantity: 0, wantLen: 0},
		{name: "negative removes", key: key, quantity: -3, wantLen: 0},
		{name: "unknown key", key: "42", quantity: 9, wantLen: 1, wantQty: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(EmptySnapshot())
			s.AddItem(spandex, 2, "")
			s.UpdateQuantity(tt.key, tt.quantity)

			snap := s.Snapshot()
			require.Len(t, snap.Items, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantQty, snap.Items[0].Quantity)
			}
			requireInvariants(t, snap)
		})
	}
}

func TestClearCart_Idempotent(t *testing.T) {
	s := NewStore(EmptySnapshot())
	s.AddItem(spandex, 2, "red")
	s.AddItem(cotton, 1, "")

	s.ClearCart()
	first := s.Snapshot()
	s.ClearCart()
	second := s.Snapshot()

	assert.Equal(t, first, second)
	assert.Empty(t, first.Items)
	assert.Zero(t, first.TotalItems)
	assert.Zero(t, first.Subtotal)
}

func TestIsInCart(t *testing.T) {
	s := NewStore(EmptySnapshot())
	s.AddItem(spandex, 1, "Maroon (8012)")

	assert.True(t, s.IsInCart(spandex.ID, ""))
	assert.True(t, s.IsInCart(spandex.ID, "Maroon (8012)"))
	assert.False(t, s.IsInCart(spandex.ID, "Wood (8013)"))
	assert.False(t, s.IsInCart(cotton.ID, ""))
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore(EmptySnapshot())
	s.AddItem(spandex, 1, "")
	snap := s.Snapshot()
	snap.Items[0].Quantity = 50
	items := s.Items()
	items[0].Quantity = 70

	assert.Equal(t, 1, s.GetItemQuantity(spandex.ID, ""))
	assert.Equal(t, 1, s.Items()[0].Quantity)
}

func TestNewStore_NormalizesInitialSnapshot(t *testing.T) {
	initial := Snapshot{
		Items: []Item{
			{Product: spandex, Quantity: 2, SelectedVariant: "red", VariantKey: "bogus"},
			{Product: cotton, Quantity: 0},
			{Product: spandex, Quantity: 1, SelectedVariant: "red"},
		},
		TotalItems: 99,
		Subtotal:   1,
	}
	s := NewStore(initial)

	snap := s.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, ResolveKey(spandex.ID, "red"), snap.Items[0].VariantKey)
	assert.Equal(t, 3, snap.Items[0].Quantity)
	requireInvariants(t, snap)
}

func TestEvents(t *testing.T) {
	s := NewStore(EmptySnapshot())
	var events []Event
	unsubscribe := s.Subscribe(func(e Event) { events = append(events, e) })

	s.AddItem(spandex, 2, "red")
	s.AddItem(spandex, 3, "red")
	s.UpdateQuantity(ResolveKey(spandex.ID, "red"), 1)
	s.UpdateQuantity("missing", 4)
	s.RemoveItem(ResolveKey(spandex.ID, "red"))
	s.RemoveItem(ResolveKey(spandex.ID, "red"))
	s.ClearCart()

	require.Len(t, events, 5)
	assert.Equal(t, EventItemAdded, events[0].Kind)
	assert.Equal(t, 2, events[0].Delta)
	assert.Equal(t, 0, events[0].OldQuantity)

	assert.Equal(t, EventItemAdded, events[1].Kind)
	assert.Equal(t, 3, events[1].Delta)
	assert.Equal(t, 5, events[1].NewQuantity)
	assert.Equal(t, 5, events[1].Snapshot.TotalItems)

	assert.Equal(t, EventQuantityUpdated, events[2].Kind)
	assert.Equal(t, -4, events[2].Delta)

	assert.Equal(t, EventItemRemoved, events[3].Kind)
	assert.Equal(t, "red", events[3].Variant)
	assert.Equal(t, spandex.Title, events[3].Product.Title)
	assert.True(t, events[3].Snapshot.IsEmpty())

	assert.Equal(t, EventCartCleared, events[4].Kind)

	unsubscribe()
	s.AddItem(cotton, 1, "")
	assert.Len(t, events, 5)
}

func TestRandomSequencesKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	products := []Product{spandex, cotton, {ID: 3, Price: 12500.5, DiscountPercentage: 33.3, Stock: 10}}
	variants := []string{"", "red", "blue", "1-2:x"}

	s := NewStore(EmptySnapshot())
	for i := 0; i < 2000; i++ {
		p := products[rng.Intn(len(products))]
		v := variants[rng.Intn(len(variants))]
		switch rng.Intn(10) {
		case 0, 1, 2, 3:
			s.AddItem(p, 1+rng.Intn(5), v)
		case 4, 5:
			s.RemoveItem(ResolveKey(p.ID, v))
		case 6, 7, 8:
			s.UpdateQuantity(ResolveKey(p.ID, v), rng.Intn(8)-2)
		case 9:
			s.ClearCart()
		}
		requireInvariants(t, s.Snapshot())
	}
}

func TestSavings(t *testing.T) {
	s := NewStore(EmptySnapshot())
	s.AddItem(spandex, 2, "")
	s.AddItem(cotton, 1, "")

	snap := s.Snapshot()
	assert.InDelta(t, 180000, OriginalSubtotal(snap.Items), 1e-9)
	assert.InDelta(t, 10000, snap.Savings(), 1e-9)
	assert.False(t, math.IsNaN(snap.Savings()))
}
