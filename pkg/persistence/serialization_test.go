package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/verified-messages-go/pkg/types"
)

func sampleEvent() *types.PostedMessageEvent {
	return &types.PostedMessageEvent{
		ID:       "5b0c1d0e-1a3f-4a55-9a51-8d9f6f5b0c1d",
		Sequence: 7,
		Key:      types.RegistryKey{1, 2, 3},
		Message:  []byte("Hello Clarity"),
		Signer:   "ST1SJ3DTE5DN7X54YDH5D64R3BCB6A2AG2ZQ8YPD5",
		PostedAt: 1700000000,
	}
}

func TestMarshalUnmarshalRecord(t *testing.T) {
	original := sampleEvent().Record()

	data, err := MarshalRecord(original)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"0x48656c6c6f20436c6172697479"`)

	restored, err := UnmarshalRecord(data)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestMarshalUnmarshalEvent(t *testing.T) {
	original := sampleEvent()

	data, err := MarshalEvent(original)
	require.NoError(t, err)

	restored, err := UnmarshalEvent(data)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestMarshal_NilInput(t *testing.T) {
	_, err := MarshalRecord(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil PostedMessageRecord")

	_, err = MarshalEvent(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil PostedMessageEvent")
}

func TestUnmarshal_Invalid(t *testing.T) {
	_, err := UnmarshalRecord(nil)
	require.Error(t, err)

	_, err = UnmarshalRecord([]byte(`{"key": "not hex"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")

	_, err = UnmarshalEvent([]byte(`{"sequence": "seven"}`))
	require.Error(t, err)
}

func TestValidateCommit(t *testing.T) {
	event := sampleEvent()
	require.NoError(t, ValidateCommit(event.Record(), event))

	require.Error(t, ValidateCommit(nil, event))
	require.Error(t, ValidateCommit(event.Record(), nil))

	mismatched := event.Record()
	mismatched.Key = types.RegistryKey{9}
	require.Error(t, ValidateCommit(mismatched, event))

	noID := *event
	noID.ID = ""
	require.Error(t, ValidateCommit(event.Record(), &noID))
}

func TestFilterEvents(t *testing.T) {
	var events []*types.PostedMessageEvent
	for i := uint64(1); i <= 5; i++ {
		events = append(events, &types.PostedMessageEvent{Sequence: i})
	}

	assert.Len(t, FilterEvents(events, 0, 0), 5)
	assert.Len(t, FilterEvents(events, 3, 0), 2)
	page := FilterEvents(events, 1, 2)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(2), page[0].Sequence)
	assert.Equal(t, uint64(3), page[1].Sequence)
	assert.Empty(t, FilterEvents(events, 5, 0))
	assert.NotNil(t, FilterEvents(nil, 0, 0))
}
