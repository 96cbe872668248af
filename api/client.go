package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/noddao/governd/types"
)

// Client talks to a node's HTTP service.
type Client struct {
	url    string
	client *http.Client
}

func NewClient(serviceUrl string) *Client {
	return &Client{
		url:    serviceUrl,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) post(path string, req any, res any) error {
	target, err := url.JoinPath(c.url, path)
	if err != nil {
		return err
	}
	dat, err := json.Marshal(req)
	if err != nil {
		return err
	}
	resp, err := c.client.Post(target, "application/json", bytes.NewReader(dat))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(buf, &e); err == nil && e.Error != "" {
			return fmt.Errorf("service error: %s", e.Error)
		}
		return fmt.Errorf("service error: status %d", resp.StatusCode)
	}
	return json.Unmarshal(buf, res)
}

func (c *Client) ChainInfo() (ChainInfoResponse, error) {
	var res ChainInfoResponse
	err := c.post("/getChainInfo", struct{}{}, &res)
	return res, err
}

func (c *Client) BroadcastEvent(ev *types.Event) (BroadcastEventResponse, error) {
	var res BroadcastEventResponse
	dat, err := types.MarshalEvent(ev)
	if err != nil {
		return res, err
	}
	err = c.post("/broadcastEvent", BroadcastEventReq{Event: dat}, &res)
	return res, err
}

func (c *Client) GetProposals(req GetProposalsReq) (GetProposalsResponse, error) {
	var res GetProposalsResponse
	err := c.post("/getProposals", req, &res)
	return res, err
}

func (c *Client) ListActive() (ListActiveResponse, error) {
	var res ListActiveResponse
	err := c.post("/listActive", struct{}{}, &res)
	return res, err
}

func (c *Client) GetVotes(proposal string) (GetVotesResponse, error) {
	var res GetVotesResponse
	err := c.post("/getVotes", GetVotesReq{Proposal: proposal}, &res)
	return res, err
}

func (c *Client) GetTally(proposal string) (GetTallyResponse, error) {
	var res GetTallyResponse
	err := c.post("/getTally", GetTallyReq{Proposal: proposal}, &res)
	return res, err
}

func (c *Client) GetPoEChain(verify bool) (GetPoEChainResponse, error) {
	var res GetPoEChainResponse
	err := c.post("/getPoEChain", GetPoEChainReq{Verify: verify}, &res)
	return res, err
}
