package indexer

// sqlite models

type Cursor struct {
	Id  uint64 `gorm:"primaryKey" json:"id"`
	Seq uint64 `json:"seq"`
}

type Proposal struct {
	Id            string `gorm:"primaryKey" json:"id"`
	Proposer      string `json:"proposer"`
	Payload       string `json:"payload"`
	Phase         uint64 `json:"phase"`
	PhaseName     string `json:"phase_name"`
	CreatedSeq    uint64 `json:"created_seq"`
	StartSeq      uint64 `json:"start_seq"`
	EndSeq        uint64 `json:"end_seq"`
	StakeSnapshot uint64 `json:"stake_snapshot"`
}

type Vote struct {
	Id        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Proposal  string `gorm:"index" json:"proposal"`
	Voter     string `json:"voter"`
	Direction uint64 `json:"direction"`
	Weight    uint64 `json:"weight"`
	Seq       uint64 `json:"seq"`
}

type Artifact struct {
	Id            string `gorm:"primaryKey" json:"id"`
	Proposal      string `gorm:"index" json:"proposal"`
	Status        uint64 `json:"status"`
	StatusName    string `json:"status_name"`
	ChainIndex    uint64 `json:"chain_index"`
	Seq           uint64 `json:"seq"`
	PayloadHash   string `json:"payload_hash"`
	PreStateRoot  string `json:"pre_state_root"`
	PostStateRoot string `json:"post_state_root"`
	Participation string `json:"participation"`
	Approval      string `json:"approval"`
	PrevHash      string `json:"prev_hash"`
}

type Account struct {
	Address string `gorm:"primaryKey" json:"address"`
	Stake   uint64 `json:"stake"`
}
