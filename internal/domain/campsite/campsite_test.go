package campsite

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCampsite(t *testing.T) {
	host := uuid.New()
	c, err := NewCampsite(host, "  Pine Hollow ", "Shaded tent pad", "Big Sur, CA", "", 2500)
	require.NoError(t, err)

	assert.Equal(t, "Pine Hollow", c.Title())
	assert.Equal(t, int64(2500), c.PriceCents())
	assert.True(t, c.IsHostedBy(host))
	assert.False(t, c.IsHostedBy(uuid.New()))
	assert.Equal(t, int64(1), c.Version())
}

func TestNewCampsiteValidation(t *testing.T) {
	_, err := NewCampsite(uuid.New(), "", "d", "l", "", 100)
	require.Error(t, err)
	assert.Equal(t, "Title, description, price, and location are required", err.Error())

	_, err = NewCampsite(uuid.New(), "t", "d", "l", "", 0)
	require.Error(t, err)
	assert.Equal(t, "Price must be greater than 0", err.Error())

	_, err = NewCampsite(uuid.Nil, "t", "d", "l", "", 100)
	assert.Error(t, err)
}

func TestUpdate(t *testing.T) {
	c, err := NewCampsite(uuid.New(), "Pine Hollow", "Shaded", "Big Sur", "", 2500)
	require.NoError(t, err)

	price := int64(4000)
	title := " Cedar Flats "
	require.NoError(t, c.Update(Patch{Title: &title, PriceCents: &price}))
	assert.Equal(t, "Cedar Flats", c.Title())
	assert.Equal(t, int64(4000), c.PriceCents())
	assert.Equal(t, "Big Sur", c.Location())
	assert.Equal(t, int64(2), c.Version())

	zero := int64(0)
	require.Error(t, c.Update(Patch{PriceCents: &zero}))
	assert.Equal(t, int64(4000), c.PriceCents())
}

func TestPatchIsEmpty(t *testing.T) {
	assert.True(t, Patch{}.IsEmpty())
	loc := "Moab"
	assert.False(t, Patch{Location: &loc}.IsEmpty())
}
