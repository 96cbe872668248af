package api

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/noddao/governd/config"
	"github.com/noddao/governd/engine"
	"github.com/noddao/governd/indexer"
	"github.com/noddao/governd/ledger"
	"github.com/noddao/governd/poe"
	"github.com/noddao/governd/types"
)

// Service is the HTTP surface of one node. Writes enter as fully signed
// event envelopes; the engine decides, the service only transports.
type Service struct {
	router     *gin.Engine
	gov        *engine.Engine
	db         *ledger.DB
	indexer    *indexer.Indexer
	cfg        *config.Config
	listenAddr string
}

func NewService(listenAddr string, gov *engine.Engine, db *ledger.DB, ix *indexer.Indexer, cfg *config.Config) *Service {
	r := gin.Default()
	s := &Service{
		router:     r,
		gov:        gov,
		db:         db,
		indexer:    ix,
		cfg:        cfg,
		listenAddr: listenAddr,
	}
	s.router.POST("/broadcastEvent", s.handleBroadcastEvent)
	s.router.POST("/getChainInfo", s.handleGetChainInfo)
	s.router.POST("/getProposals", s.handleGetProposals)
	s.router.POST("/listActive", s.handleListActive)
	s.router.POST("/getVotes", s.handleGetVotes)
	s.router.POST("/getTally", s.handleGetTally)
	s.router.POST("/getAccount", s.handleGetAccount)
	s.router.POST("/getPoE", s.handleGetPoE)
	s.router.POST("/getPoEChain", s.handleGetPoEChain)
	return s
}

func (s *Service) Start() error {
	return s.router.Run(s.listenAddr)
}

type BroadcastEventReq struct {
	Event []byte `json:"event"`
}

type BroadcastEventResponse struct {
	Seq      uint64 `json:"seq"`
	Proposal string `json:"proposal,omitempty"`
}

func (s *Service) handleBroadcastEvent(c *gin.Context) {
	var requestData BroadcastEventReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ev, err := types.UnmarshalEvent(requestData.Event)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.gov.Apply(ev); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	response := BroadcastEventResponse{Seq: ev.Seq}
	if body, ok := ev.Body.(*types.SubmitEvent); ok {
		id, err := types.ProposalID(body.Proposer, body.Payload, ev.Seq)
		if err == nil {
			response.Proposal = id.Hex()
		}
	}
	c.JSON(http.StatusOK, response)
}

type ChainInfoResponse struct {
	ChainID          string `json:"chainId"`
	Height           uint64 `json:"height"`
	NextSeq          uint64 `json:"nextSeq"`
	HeaderHash       string `json:"headerHash"`
	ProposalCount    uint64 `json:"proposalCount"`
	PoECount         uint64 `json:"poeCount"`
	TotalStake       uint64 `json:"totalStake"`
	QuorumPct        uint64 `json:"quorumPct"`
	SupermajorityPct uint64 `json:"supermajorityPct"`
}

func (s *Service) handleGetChainInfo(c *gin.Context) {
	hdr := s.db.Header()
	c.JSON(http.StatusOK, ChainInfoResponse{
		ChainID:          hdr.ChainID,
		Height:           hdr.Height,
		NextSeq:          s.gov.NextSeq(),
		HeaderHash:       common.BytesToHash(hdr.Hash).Hex(),
		ProposalCount:    hdr.ProposalCount,
		PoECount:         hdr.PoECount,
		TotalStake:       hdr.TotalStake,
		QuorumPct:        s.cfg.QuorumPct,
		SupermajorityPct: s.cfg.SupermajorityPct,
	})
}

type GetProposalsReq struct {
	Id       string `json:"id"`
	Phase    uint64 `json:"phase"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

type GetProposalsResponse struct {
	Proposals []indexer.Proposal `json:"proposals"`
	Total     uint64             `json:"total"`
}

func (s *Service) handleGetProposals(c *gin.Context) {
	var requestData GetProposalsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var response GetProposalsResponse
	response.Proposals = make([]indexer.Proposal, 0)

	if requestData.Id != "" {
		p, err := s.indexer.GetProposalById(requestData.Id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		response.Proposals = append(response.Proposals, p)
		response.Total = 1
		c.JSON(http.StatusOK, response)
		return
	}

	proposals, total, err := s.indexer.GetProposals(requestData.Phase, requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	response.Proposals = append(response.Proposals, proposals...)
	response.Total = total
	c.JSON(http.StatusOK, response)
}

type ActiveProposal struct {
	Id       string `json:"id"`
	Proposer string `json:"proposer"`
	StartSeq uint64 `json:"startSeq"`
	EndSeq   uint64 `json:"endSeq"`
}

type ListActiveResponse struct {
	Proposals []ActiveProposal `json:"proposals"`
}

// handleListActive reads the authoritative ledger snapshot, not the
// indexer mirror; the ordering is the same on every node.
func (s *Service) handleListActive(c *gin.Context) {
	active, err := s.db.ActiveProposals()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	response := ListActiveResponse{Proposals: make([]ActiveProposal, 0, len(active))}
	for _, p := range active {
		response.Proposals = append(response.Proposals, ActiveProposal{
			Id:       p.ID.Hex(),
			Proposer: p.Proposer,
			StartSeq: p.StartSeq,
			EndSeq:   p.EndSeq,
		})
	}
	c.JSON(http.StatusOK, response)
}

type GetVotesReq struct {
	Proposal string `json:"proposal"`
}

type GetVotesResponse struct {
	Votes []indexer.Vote `json:"votes"`
}

func (s *Service) handleGetVotes(c *gin.Context) {
	var requestData GetVotesReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	votes, err := s.indexer.GetVotesByProposal(requestData.Proposal)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetVotesResponse{Votes: votes})
}

type GetTallyReq struct {
	Proposal string `json:"proposal"`
}

type GetTallyResponse struct {
	Yes              uint64 `json:"yes"`
	No               uint64 `json:"no"`
	Abstain          uint64 `json:"abstain"`
	StakeSnapshot    uint64 `json:"stakeSnapshot"`
	Participation    string `json:"participation"`
	Approval         string `json:"approval"`
	QuorumMet        bool   `json:"quorumMet"`
	SupermajorityMet bool   `json:"supermajorityMet"`
	WouldPass        bool   `json:"wouldPass"`
}

// handleGetTally previews the running tally of an active proposal against
// the configured thresholds. The preview carries no authority; only
// finalization decides.
func (s *Service) handleGetTally(c *gin.Context) {
	var requestData GetTallyReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tally, err := s.db.TallyPreview(common.HexToHash(requestData.Proposal))
	if err != nil {
		if errors.Is(err, ledger.ErrProposalNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	response := GetTallyResponse{
		Yes:           tally.Yes,
		No:            tally.No,
		Abstain:       tally.Abstain,
		StakeSnapshot: tally.StakeSnapshot,
	}
	out, err := engine.Evaluate(tally, s.cfg.QuorumPct, s.cfg.SupermajorityPct)
	if err == nil {
		response.Participation = out.Participation.String()
		response.Approval = out.Approval.String()
		response.QuorumMet = out.QuorumMet
		response.SupermajorityMet = out.SupermajorityMet
		response.WouldPass = out.Passed
	}
	c.JSON(http.StatusOK, response)
}

type GetAccountReq struct {
	Address string `json:"address"`
}

func (s *Service) handleGetAccount(c *gin.Context) {
	var requestData GetAccountReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := s.db.GetAccount(requestData.Address)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, a)
}

type GetPoEReq struct {
	Proposal string `json:"proposal"`
}

func (s *Service) handleGetPoE(c *gin.Context) {
	var requestData GetPoEReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	art, err := s.db.GetPoE(common.HexToHash(requestData.Proposal))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, art)
}

type GetPoEChainReq struct {
	Verify bool `json:"verify"`
}

type GetPoEChainResponse struct {
	Artifacts []*types.ProofOfExecution `json:"artifacts"`
	Verified  bool                      `json:"verified"`
}

func (s *Service) handleGetPoEChain(c *gin.Context) {
	var requestData GetPoEChainReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	chain, err := s.db.PoEChain()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	response := GetPoEChainResponse{Artifacts: chain}
	if requestData.Verify {
		if err := poe.VerifyChain(chain); err != nil {
			c.JSON(http.StatusOK, gin.H{"artifacts": chain, "verified": false, "error": err.Error()})
			return
		}
		response.Verified = true
	}
	c.JSON(http.StatusOK, response)
}
