package types

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/noddao/governd/codec"
	"github.com/noddao/governd/fixed"
)

type Phase uint8

const (
	PhaseDraft    Phase = 1
	PhaseActive   Phase = 2
	PhasePassed   Phase = 3
	PhaseRejected Phase = 4
	PhaseExecuted Phase = 5
)

func (p Phase) String() string {
	switch p {
	case PhaseDraft:
		return "DRAFT"
	case PhaseActive:
		return "ACTIVE"
	case PhasePassed:
		return "PASSED"
	case PhaseRejected:
		return "REJECTED"
	case PhaseExecuted:
		return "EXECUTED"
	}
	return "UNKNOWN"
}

// Terminal reports whether a proposal in this phase has been decided.
func (p Phase) Terminal() bool {
	return p == PhasePassed || p == PhaseRejected || p == PhaseExecuted
}

type Direction uint8

const (
	VoteYes     Direction = 1
	VoteNo      Direction = 2
	VoteAbstain Direction = 3
)

func (d Direction) Valid() bool {
	return d == VoteYes || d == VoteNo || d == VoteAbstain
}

// Proposal is immutable once it leaves DRAFT except for the phase field
// and the stake snapshot taken at activation. It is never deleted.
type Proposal struct {
	ID             common.Hash `json:"id"`
	Proposer       string      `json:"proposer"`
	ProposerPubKey []byte      `json:"proposerPubKey"`
	Payload        []ParamOp   `json:"payload"`
	Phase          Phase       `json:"phase"`
	CreatedSeq     uint64      `json:"createdSeq"`
	StartSeq       uint64      `json:"startSeq"`
	EndSeq         uint64      `json:"endSeq"`
	StakeSnapshot  uint64      `json:"stakeSnapshot"`
}

// PayloadHash is the hash of the canonical encoding of the ordered
// parameter-change operations.
func (p *Proposal) PayloadHash() (common.Hash, error) {
	return PayloadHash(p.Payload)
}

// ProposalID derives the identity hash from the proposer, the payload and
// the creation sequence number. Wall-clock time and randomness never
// participate.
func ProposalID(proposer string, payload []ParamOp, createdSeq uint64) (common.Hash, error) {
	ops := make([]codec.Record, len(payload))
	for i, op := range payload {
		ops[i] = op.record()
	}
	return codec.Hash(codec.Version, codec.Record{
		"proposer": proposer,
		"payload":  ops,
		"seq":      createdSeq,
	})
}

// Vote is keyed by (proposal, voter); a later sequence number supersedes
// an earlier vote from the same voter.
type Vote struct {
	Proposal  common.Hash `json:"proposal"`
	Voter     string      `json:"voter"`
	Direction Direction   `json:"direction"`
	Weight    uint64      `json:"weight"`
	Seq       uint64      `json:"seq"`
}

// Tally is derived from the effective votes of one proposal. The stake
// snapshot is frozen at activation so later stake changes cannot
// retroactively move quorum for an already-active proposal.
type Tally struct {
	Yes           uint64 `json:"yes"`
	No            uint64 `json:"no"`
	Abstain       uint64 `json:"abstain"`
	StakeSnapshot uint64 `json:"stakeSnapshot"`
}

func (t Tally) Participating() uint64 {
	return t.Yes + t.No + t.Abstain
}

// ProofOfExecution is the hash-chained audit artifact emitted exactly once
// per terminal transition. A proposal that passes and is later executed
// contributes two artifacts to the chain.
type ProofOfExecution struct {
	ID            common.Hash         `json:"id"`
	Proposal      common.Hash         `json:"proposal"`
	PayloadHash   common.Hash         `json:"payloadHash"`
	PreStateRoot  common.Hash         `json:"preStateRoot"`
	PostStateRoot common.Hash         `json:"postStateRoot"`
	Tally         Tally               `json:"tally"`
	Participation fixed.FixedPoint128 `json:"participation"`
	Approval      fixed.FixedPoint128 `json:"approval"`
	Status        Phase               `json:"status"`
	PrevPoEHash   common.Hash         `json:"prevPoeHash"`
	Seq           uint64              `json:"seq"`
	ChainIndex    uint64              `json:"chainIndex"`
}

// Record canonicalizes every field except the id itself; the id is the
// hash of this encoding.
func (p *ProofOfExecution) Record() codec.Record {
	return codec.Record{
		"proposal":      p.Proposal,
		"payloadHash":   p.PayloadHash,
		"preStateRoot":  p.PreStateRoot,
		"postStateRoot": p.PostStateRoot,
		"yes":           p.Tally.Yes,
		"no":            p.Tally.No,
		"abstain":       p.Tally.Abstain,
		"stakeSnapshot": p.Tally.StakeSnapshot,
		"participation": p.Participation,
		"approval":      p.Approval,
		"status":        uint64(p.Status),
		"prevPoeHash":   p.PrevPoEHash,
		"seq":           p.Seq,
		"chainIndex":    p.ChainIndex,
	}
}

// Hash recomputes the artifact identity from its canonical encoding.
func (p *ProofOfExecution) Hash() (common.Hash, error) {
	return codec.Hash(codec.Version, p.Record())
}
