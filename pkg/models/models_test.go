package models_test

import (
	"encoding/json"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDJSON(t *testing.T) {
	id := models.NewSiteID()

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"`+id.String()+`"`, string(data))

	var back models.SiteID
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, id, back)

	for _, empty := range []string{`""`, `null`} {
		var zero models.SiteID
		require.NoError(t, json.Unmarshal([]byte(empty), &zero), empty)
		assert.True(t, zero.IsZero(), empty)
	}

	var bad models.SiteID
	err = json.Unmarshal([]byte(`"not-a-uuid"`), &bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sites ID")

	data, err = json.Marshal(models.SiteID{})
	require.NoError(t, err)
	assert.Equal(t, `""`, string(data))
}

func TestIDSQL(t *testing.T) {
	id := models.NewSectionID()

	v, err := id.Value()
	require.NoError(t, err)
	assert.Equal(t, id.String(), v)

	var fromString, fromBytes models.SectionID
	require.NoError(t, fromString.Scan(id.String()))
	require.NoError(t, fromBytes.Scan([]byte(id.String())))
	assert.Equal(t, id, fromString)
	assert.Equal(t, id, fromBytes)

	var zero models.SectionID
	require.NoError(t, zero.Scan(nil))
	assert.True(t, zero.IsZero())
	v, err = zero.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.Error(t, zero.Scan(42))
}

func TestIDCBORRecordID(t *testing.T) {
	id := models.NewSectionItemID()
	assert.Equal(t, "section_items", id.Table())
	assert.Equal(t, "section_items", id.RecordID().Table)
	assert.Equal(t, id.String(), id.RecordID().ID)

	data, err := cbor.Marshal(id)
	require.NoError(t, err)

	var back models.SectionItemID
	require.NoError(t, cbor.Unmarshal(data, &back))
	assert.Equal(t, id, back)

	// A record of another table is rejected.
	var wrong models.SiteID
	err = cbor.Unmarshal(data, &wrong)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected table sites")
}

func TestJSONMap(t *testing.T) {
	defaults := models.JSONMap{"background": "#fff", "font": "inter"}
	merged := defaults.Merge(models.JSONMap{"font": "dm_sans", "accent": "#f00"})

	assert.Equal(t, models.JSONMap{"background": "#fff", "font": "dm_sans", "accent": "#f00"}, merged)
	assert.Equal(t, "inter", defaults["font"], "Merge must not modify the receiver")

	v, err := merged.Value()
	require.NoError(t, err)

	var scanned models.JSONMap
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, merged, scanned)

	var fromText models.JSONMap
	require.NoError(t, fromText.Scan(`{"a":1}`))
	assert.Equal(t, float64(1), fromText["a"])

	var empty models.JSONMap
	require.NoError(t, empty.Scan(nil))
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestOwner(t *testing.T) {
	user := models.NewUserID()
	other := models.NewUserID()

	assert.Equal(t, user, (&models.Site{UserID: user}).Owner())
	assert.Equal(t, user, (&models.Booking{UserID: user}).Owner())
	assert.NotEqual(t, other, (&models.Folder{UserID: user}).Owner())
}

func TestNewSectionRevision(t *testing.T) {
	section := &models.Section{
		ID:       models.NewSectionID(),
		UserID:   models.NewUserID(),
		Type:     "links",
		Position: 3,
		Content:  models.JSONMap{"title": "Links"},
		Items: []*models.SectionItem{
			{ID: models.NewSectionItemID(), Position: 0, Content: models.JSONMap{"label": "Blog"}},
		},
	}

	rev := models.NewSectionRevision(section)
	assert.Equal(t, section.ID, rev.SectionID)
	assert.Equal(t, section.UserID, rev.UserID)
	assert.Equal(t, "links", rev.Payload["type"])
	assert.Equal(t, 3, rev.Payload["position"])
	items, ok := rev.Payload["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, section.Items[0].ID.String(), items[0].(map[string]any)["id"])
}
