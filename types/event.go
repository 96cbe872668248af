package types

import (
	"encoding/json"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

type EventType uint8

const (
	EventTypeUnknown  EventType = 0
	EventTypeSubmit   EventType = 1
	EventTypeActivate EventType = 2
	EventTypeVote     EventType = 3
	EventTypeFinalize EventType = 4
	EventTypeExecute  EventType = 5
	EventTypeGenesis  EventType = 6
)

var (
	ErrUnsupportedEventType = errors.New("unsupported event type")
	ErrUnmatchedEventType   = errors.New("unmatched event type")
)

// Event is the ledger's wire envelope. Seq is the global, externally
// ordered sequence number; it is the only notion of time the engine has.
type Event struct {
	Version uint8     `json:"version"`
	Type    EventType `json:"type"`
	Seq     uint64    `json:"seq"`
	Body    any       `json:"body"`
	Sig     [][]byte  `json:"sig"`
}

type SubmitEvent struct {
	Proposer string    `json:"proposer"`
	PubKey   []byte    `json:"pubKey"`
	Payload  []ParamOp `json:"payload"`
	StartSeq uint64    `json:"startSeq"`
	EndSeq   uint64    `json:"endSeq"`
}

type ActivateEvent struct {
	Proposal common.Hash `json:"proposal"`
}

type VoteEvent struct {
	Proposal  common.Hash `json:"proposal"`
	Voter     string      `json:"voter"`
	PubKey    []byte      `json:"pubKey"`
	Direction Direction   `json:"direction"`
	Weight    uint64      `json:"weight"`
}

type FinalizeEvent struct {
	Proposal common.Hash `json:"proposal"`
}

type ExecuteEvent struct {
	Proposal common.Hash `json:"proposal"`
}

// GenesisEvent seeds the voter set on an empty ledger. It doubles as the
// genesis document written by `governd init`.
type GenesisEvent struct {
	ChainID  string           `json:"chainId"`
	Accounts []GenesisAccount `json:"accounts"`
}

type GenesisAccount struct {
	PubKey []byte `json:"pubKey"`
	Stake  uint64 `json:"stake"`
}

type eventTmpl[B any] struct {
	Version uint8     `json:"version"`
	Type    EventType `json:"type"`
	Seq     uint64    `json:"seq"`
	Body    B         `json:"body"`
	Sig     [][]byte  `json:"sig"`
}

// SigData is the byte sequence submitters sign: the envelope with the
// signature slot replaced by the chain id, so signatures cannot be
// replayed across chains.
func (ev *Event) SigData(chainID []byte) (dat []byte, err error) {
	nev := *ev
	nev.Sig = [][]byte{chainID}
	return json.Marshal(nev)
}

func parseEventType(dat []byte) EventType {
	var ev struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(dat, &ev); err != nil {
		return EventTypeUnknown
	}
	return ev.Type
}

func unmarshalEvent[B any](dat []byte) (ev *Event, err error) {
	var tmpl eventTmpl[B]
	if err = json.Unmarshal(dat, &tmpl); err != nil {
		return
	}
	ev = &Event{
		Version: tmpl.Version,
		Type:    tmpl.Type,
		Seq:     tmpl.Seq,
		Body:    &tmpl.Body,
		Sig:     tmpl.Sig,
	}
	return
}

func UnmarshalEvent(dat []byte) (ev *Event, err error) {
	switch parseEventType(dat) {
	case EventTypeSubmit:
		return unmarshalEvent[SubmitEvent](dat)
	case EventTypeActivate:
		return unmarshalEvent[ActivateEvent](dat)
	case EventTypeVote:
		return unmarshalEvent[VoteEvent](dat)
	case EventTypeFinalize:
		return unmarshalEvent[FinalizeEvent](dat)
	case EventTypeExecute:
		return unmarshalEvent[ExecuteEvent](dat)
	case EventTypeGenesis:
		return unmarshalEvent[GenesisEvent](dat)
	default:
		err = ErrUnsupportedEventType
	}
	return
}

func MarshalEvent(ev *Event) ([]byte, error) {
	return json.Marshal(ev)
}
