// Package registry records, exactly once, that a signer attested to a message.
//
// PostMessage is the only write path. It verifies the signature, derives the
// registry key and hands the record and its event to the store as a single
// commit; any rejection leaves the store untouched.
package registry

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Layr-Labs/verified-messages-go/pkg/address"
	"github.com/Layr-Labs/verified-messages-go/pkg/config"
	"github.com/Layr-Labs/verified-messages-go/pkg/hasher"
	"github.com/Layr-Labs/verified-messages-go/pkg/merkle"
	"github.com/Layr-Labs/verified-messages-go/pkg/metrics"
	"github.com/Layr-Labs/verified-messages-go/pkg/persistence"
	"github.com/Layr-Labs/verified-messages-go/pkg/types"
	"github.com/Layr-Labs/verified-messages-go/pkg/verifier"
)

// ErrNotPosted is returned by ProveMessage when no record exists.
var ErrNotPosted = errors.New("message not posted")

// Registry is the orchestrator over a verifier and a registry store.
type Registry struct {
	store    persistence.IRegistryPersistence
	verifier verifier.SignatureVerifier
	network  config.Network
	logger   *zap.Logger
	metrics  *metrics.Metrics

	now func() time.Time
}

// NewRegistry creates a registry deriving signer identities under network.
// metrics may be nil.
func NewRegistry(store persistence.IRegistryPersistence, network config.Network, logger *zap.Logger, m *metrics.Metrics) (*Registry, error) {
	if store == nil {
		return nil, fmt.Errorf("registry store cannot be nil")
	}
	v, err := verifier.NewVerifier(network)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		store:    store,
		verifier: v,
		network:  network,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}, nil
}

// Network returns the network signer identities are derived under
func (r *Registry) Network() config.Network {
	return r.network
}

// RegistryKey computes sha256(message ‖ version ‖ hash160) for a signer.
// The signer must be in canonical form; any other spelling is not a key.
func RegistryKey(message []byte, signer string) (types.RegistryKey, error) {
	addr, err := address.ParseCanonical(signer)
	if err != nil {
		return types.RegistryKey{}, err
	}

	h := sha256.New()
	h.Write(message)
	h.Write(addr.Bytes())

	var key types.RegistryKey
	copy(key[:], h.Sum(nil))
	return key, nil
}

// VerifyMessage reports whether signature (r‖s‖recoveryId) over message
// recovers to signer. Read-only and total.
func (r *Registry) VerifyMessage(message, signature []byte, signer string) bool {
	valid := r.verifier.Check(hasher.HashMessage(message), signature, signer)
	r.metrics.RecordVerification(valid)
	return valid
}

// PostMessage verifies and records (message, signer). Protocol rejections are
// returned as *PostError; any other error is a storage fault. On rejection or
// fault nothing is written and no event exists.
func (r *Registry) PostMessage(message, signature []byte, signer string) (*types.PostedMessageEvent, error) {
	digest := hasher.HashMessage(message)

	if !r.verifier.Check(digest, signature, signer) {
		r.metrics.RecordPost(metrics.OutcomeInvalidSignature)
		r.logger.Sugar().Debugw("Rejected post with invalid signature", "signer", signer, "digest", digest.Hex())
		return nil, NewPostError(ErrCodeInvalidSignature)
	}

	key, err := RegistryKey(message, signer)
	if err != nil {
		// Unreachable after a successful Check, which implies canonical form
		r.metrics.RecordPost(metrics.OutcomeInvalidSignature)
		return nil, NewPostError(ErrCodeInvalidSignature)
	}

	event := &types.PostedMessageEvent{
		ID:       uuid.NewString(),
		Key:      key,
		Message:  append([]byte{}, message...),
		Signer:   signer,
		PostedAt: r.now().Unix(),
	}

	start := time.Now()
	if err := r.store.CommitPost(event.Record(), event); err != nil {
		if errors.Is(err, persistence.ErrAlreadyPosted) {
			r.metrics.RecordPost(metrics.OutcomeAlreadyPosted)
			return nil, NewPostError(ErrCodeMessageAlreadyPosted)
		}
		r.metrics.RecordPost(metrics.OutcomeError)
		r.logger.Sugar().Errorw("Failed to commit post", "key", key.Hex(), "error", err)
		return nil, fmt.Errorf("failed to commit post: %w", err)
	}
	r.metrics.ObserveCommit(time.Since(start).Seconds(), event.Sequence)
	r.metrics.RecordPost(metrics.OutcomePosted)

	r.logger.Sugar().Infow("Message posted",
		"signer", signer,
		"key", key.Hex(),
		"sequence", event.Sequence,
		"event_id", event.ID,
	)

	return event, nil
}

// IsMessagePosted reports whether a post of (message, signer) has succeeded.
// A signer that is not a canonical address has never posted anything.
func (r *Registry) IsMessagePosted(message []byte, signer string) (bool, error) {
	key, err := RegistryKey(message, signer)
	if err != nil {
		return false, nil
	}
	return r.store.IsPosted(key)
}

// Events returns committed events after afterSequence, in commit order.
func (r *Registry) Events(afterSequence uint64, limit int) ([]*types.PostedMessageEvent, error) {
	return r.store.ListEvents(afterSequence, limit)
}

// LedgerTree builds the Merkle tree over every posted key.
// Returns nil when nothing has been posted.
func (r *Registry) LedgerTree() (*merkle.MerkleTree, error) {
	records, err := r.store.ListRecords()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	keys := make([]types.RegistryKey, len(records))
	for i, rec := range records {
		keys[i] = rec.Key
	}
	return merkle.BuildMerkleTree(keys)
}

// LedgerRoot returns the Merkle root over every posted key and the number of
// keys. The root of an empty ledger is the zero hash.
func (r *Registry) LedgerRoot() (common.Hash, int, error) {
	tree, err := r.LedgerTree()
	if err != nil {
		return common.Hash{}, 0, err
	}
	if tree == nil {
		return common.Hash{}, 0, nil
	}
	return tree.Root, len(tree.Keys), nil
}

// ProveMessage returns an inclusion proof for (message, signer) against the
// current ledger root. Returns ErrNotPosted if the pair was never posted.
func (r *Registry) ProveMessage(message []byte, signer string) (*merkle.MerkleProof, common.Hash, error) {
	key, err := RegistryKey(message, signer)
	if err != nil {
		return nil, common.Hash{}, ErrNotPosted
	}

	tree, err := r.LedgerTree()
	if err != nil {
		return nil, common.Hash{}, err
	}
	if tree == nil {
		return nil, common.Hash{}, ErrNotPosted
	}

	idx, ok := tree.IndexOf(key)
	if !ok {
		return nil, common.Hash{}, ErrNotPosted
	}

	proof, err := tree.GenerateProof(idx)
	if err != nil {
		return nil, common.Hash{}, err
	}
	return proof, tree.Root, nil
}

// HealthCheck checks the underlying store
func (r *Registry) HealthCheck() error {
	return r.store.HealthCheck()
}
