package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahinestrog/cartengine/internal/cart"
)

func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CART_STORAGE", "sqlite")
	t.Setenv("CART_DB_PATH", filepath.Join(dir, "cart.db"))
	t.Setenv("CATALOG_DB_PATH", filepath.Join(dir, "catalog.db"))
	t.Setenv("ORDER_PHONE", "628123")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCLI_CartSurvivesRuns(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "add", "1", "--qty", "2", "--variant", "Maroon (8012)")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Added to cart! 🛒 Multi kain mutilato 4 way spandex - Maroon (8012) (2x)")

	_, err = run(t, "add", "2")
	require.NoError(t, err)

	out, err = run(t, "show")
	require.NoError(t, err)
	assert.Contains(t, out, cart.ResolveKey(1, "Maroon (8012)"))
	assert.Contains(t, out, "Total items: 3")
	assert.Contains(t, out, "Subtotal:    Rp 145.250")
	assert.Contains(t, out, "You save:    Rp 19.750")

	_, err = run(t, "update", "2", "0")
	require.NoError(t, err)
	out, err = run(t, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Total items: 2")

	_, err = run(t, "remove", cart.ResolveKey(1, "Maroon (8012)"))
	require.NoError(t, err)
	out, err = run(t, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Cart is empty")
}

func TestCLI_Rejections(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "add", "2", "--qty", "81")
	assert.ErrorIs(t, err, cart.ErrAboveMaximum)
	assert.Contains(t, out, "Maximum quantity is 80 (available stock)")

	_, err = run(t, "add", "1", "--qty", "1.5")
	assert.ErrorIs(t, err, cart.ErrNotAnInteger)

	_, err = run(t, "add", "1", "--variant", "Purple (1)")
	assert.Error(t, err)

	_, err = run(t, "add", "99")
	assert.Error(t, err)

	_, err = run(t, "remove", "nope")
	assert.Error(t, err)

	_, err = run(t, "add", "2", "--qty", "3")
	require.NoError(t, err)
	_, err = run(t, "update", "2", "abc")
	assert.ErrorIs(t, err, cart.ErrNotAnInteger)
	_, err = run(t, "update", "2", "500")
	assert.ErrorIs(t, err, cart.ErrAboveMaximum)

	out, err = run(t, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Total items: 3")
}

func TestCLI_Checkout(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "checkout")
	assert.Error(t, err)
	assert.Contains(t, out, "Cart is empty")

	_, err = run(t, "add", "2", "--qty", "2")
	require.NoError(t, err)
	out, err = run(t, "checkout")
	require.NoError(t, err)
	assert.Contains(t, out, "https://wa.me/628123?text=")
	assert.Contains(t, out, "Order sent!")

	out, err = run(t, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Cart is empty")
}

func TestCLI_Products(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "products", "silk")
	require.NoError(t, err)
	assert.Contains(t, out, "KCR-SHIMMER-SILK")
	assert.NotContains(t, out, "KPP-MULTI-4WAY")
}
