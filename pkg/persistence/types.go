package persistence

import (
	"errors"
	"fmt"

	"github.com/Layr-Labs/verified-messages-go/pkg/types"
)

var (
	// ErrAlreadyPosted is returned by CommitPost when the key already has a record.
	ErrAlreadyPosted = errors.New("message already posted")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("persistence layer is closed")
)

// ValidateCommit checks that record and event describe the same posting.
func ValidateCommit(record *types.PostedMessageRecord, event *types.PostedMessageEvent) error {
	if record == nil {
		return fmt.Errorf("cannot commit nil PostedMessageRecord")
	}
	if event == nil {
		return fmt.Errorf("cannot commit nil PostedMessageEvent")
	}
	if record.Key != event.Key {
		return fmt.Errorf("record key %s does not match event key %s", record.Key, event.Key)
	}
	if record.Signer != event.Signer {
		return fmt.Errorf("record signer %s does not match event signer %s", record.Signer, event.Signer)
	}
	if event.ID == "" {
		return fmt.Errorf("event ID is required")
	}
	return nil
}

// FilterEvents applies ListEvents paging to a sequence-ordered slice.
func FilterEvents(events []*types.PostedMessageEvent, afterSequence uint64, limit int) []*types.PostedMessageEvent {
	result := make([]*types.PostedMessageEvent, 0)
	for _, e := range events {
		if e.Sequence <= afterSequence {
			continue
		}
		result = append(result, e)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result
}
