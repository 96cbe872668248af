package main

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/noddao/governd/api"
	"github.com/noddao/governd/codec"
	"github.com/noddao/governd/crypto"
	"github.com/noddao/governd/types"
)

type voteArguments struct {
	Url       string
	Skey      string
	Proposal  string
	Direction string
	Weight    uint64
}

var voteArgs voteArguments

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Cast a stake-weighted vote on an active proposal",
	Long: `Signs and broadcasts a vote. A later vote by the same voter on the
same proposal supersedes the earlier one.`,
	Run: voteRun,
}

func init() {
	urlFlag(voteCmd, &voteArgs.Url)
	keyFlag(voteCmd, &voteArgs.Skey)
	voteCmd.Flags().StringVarP(&voteArgs.Proposal, "proposal", "p", "", "proposal id, hex")
	voteCmd.Flags().StringVar(&voteArgs.Direction, "direction", "yes", "yes, no or abstain")
	voteCmd.Flags().Uint64VarP(&voteArgs.Weight, "weight", "w", 0, "vote weight, at most the voter's stake")
}

func parseDirection(s string) (types.Direction, error) {
	switch strings.ToLower(s) {
	case "yes", "y":
		return types.VoteYes, nil
	case "no", "n":
		return types.VoteNo, nil
	case "abstain", "a":
		return types.VoteAbstain, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func voteRun(cmd *cobra.Command, args []string) {
	direction, err := parseDirection(voteArgs.Direction)
	if err != nil {
		fmt.Printf("parse direction err:%v\n", err)
		return
	}

	pv, err := crypto.LoadFilePV(voteArgs.Skey)
	if err != nil {
		fmt.Printf("load key err:%v\n", err)
		return
	}

	cli := api.NewClient(voteArgs.Url)
	info, err := cli.ChainInfo()
	if err != nil {
		fmt.Printf("get chain info err:%v\n", err)
		return
	}

	ev := &types.Event{
		Version: codec.Version,
		Type:    types.EventTypeVote,
		Seq:     info.NextSeq,
		Body: &types.VoteEvent{
			Proposal:  common.HexToHash(voteArgs.Proposal),
			Voter:     pv.Address(),
			PubKey:    pv.PublicKey(),
			Direction: direction,
			Weight:    voteArgs.Weight,
		},
	}
	dat, err := ev.SigData([]byte(info.ChainID))
	if err != nil {
		fmt.Printf("event sign data err:%v\n", err)
		return
	}
	sig, err := pv.Sign(dat)
	if err != nil {
		fmt.Printf("sign event err:%v\n", err)
		return
	}
	ev.Sig = [][]byte{sig}

	res, err := cli.BroadcastEvent(ev)
	if err != nil {
		fmt.Printf("broadcast event err:%v\n", err)
		return
	}
	fmt.Printf("vote accepted at seq:%d\n", res.Seq)
}
