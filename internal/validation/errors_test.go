package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors_FirstMessageWins(t *testing.T) {
	errs := &Errors{}
	assert.True(t, errs.OK())
	assert.Equal(t, "", errs.First())

	errs.Add("lat", "Latitude must be between -90 and 90.")
	errs.Add("title", "Title is required.")
	errs.Add("lat", "second message")

	assert.False(t, errs.OK())
	assert.Equal(t, 2, errs.Len())
	assert.Equal(t, "lat", errs.First())
	assert.Equal(t, "Latitude must be between -90 and 90.", errs.Get("lat"))
	assert.Equal(t, "validation failed: lat: Latitude must be between -90 and 90.; title: Title is required.", errs.Error())
}

func TestErrors_MarshalKeepsOrder(t *testing.T) {
	errs := &Errors{}
	errs.Add("title", "5–200 characters required.")
	errs.Add("areaHa", "Area must be greater than 0.")

	data, err := json.Marshal(errs)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"5–200 characters required.","areaHa":"Area must be greater than 0."}`, string(data))

	data, err = json.Marshal(&Errors{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "10 MB", HumanSize(10*1024*1024))
	assert.Equal(t, "1.5 MB", HumanSize(1536*1024))
	assert.Equal(t, "512 KB", HumanSize(512*1024))
	assert.Equal(t, "12 bytes", HumanSize(12))
}

func TestInput_List(t *testing.T) {
	in := Input{Values: map[string][]string{"plantTypes": {"mangroves, seagrasses", "", " tidal_marshes "}}}
	assert.Equal(t, []string{"mangroves", "seagrasses", "tidal_marshes"}, in.List("plantTypes"))
	assert.Nil(t, in.List("missing"))
	assert.Equal(t, "", in.Get("missing"))
}
