package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noddao/governd/api"
	"github.com/noddao/governd/codec"
	app_config "github.com/noddao/governd/config"
	"github.com/noddao/governd/crypto"
	"github.com/noddao/governd/types"
)

type submitArguments struct {
	Url      string
	Skey     string
	Payload  string
	StartSeq uint64
	EndSeq   uint64
	NoSend   bool
}

var submitArgs submitArguments

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a parameter-change proposal",
	Long: `Signs a proposal submission with the local key and broadcasts it.
The payload is a JSON array of parameter-change operations, e.g.
'[{"kind":1,"name":"gov.max_payload_ops","uint":64}]'.`,
	Run: submitRun,
}

func init() {
	urlFlag(submitCmd, &submitArgs.Url)
	keyFlag(submitCmd, &submitArgs.Skey)
	submitCmd.Flags().StringVarP(&submitArgs.Payload, "payload", "p", "", "ordered parameter-change operations, JSON")
	submitCmd.Flags().Uint64Var(&submitArgs.StartSeq, "start", 0, "voting window start sequence, defaults to the submission sequence")
	submitCmd.Flags().Uint64Var(&submitArgs.EndSeq, "end", 0, "voting window end sequence, defaults to start plus the standard window")
	submitCmd.Flags().BoolVar(&submitArgs.NoSend, "nosend", false, "print the signed event without broadcasting")
}

func submitRun(cmd *cobra.Command, args []string) {
	var payload []types.ParamOp
	if err := json.Unmarshal([]byte(submitArgs.Payload), &payload); err != nil {
		fmt.Printf("parse payload err:%v\n", err)
		return
	}
	if err := types.ValidatePayload(payload); err != nil {
		fmt.Printf("invalid payload:%v\n", err)
		return
	}

	pv, err := crypto.LoadFilePV(submitArgs.Skey)
	if err != nil {
		fmt.Printf("load key err:%v\n", err)
		return
	}

	cli := api.NewClient(submitArgs.Url)
	info, err := cli.ChainInfo()
	if err != nil {
		fmt.Printf("get chain info err:%v\n", err)
		return
	}

	startSeq := submitArgs.StartSeq
	if startSeq == 0 {
		startSeq = info.NextSeq
	}
	endSeq := submitArgs.EndSeq
	if endSeq == 0 {
		endSeq = startSeq + app_config.DefaultVotingWindow
	}

	ev := &types.Event{
		Version: codec.Version,
		Type:    types.EventTypeSubmit,
		Seq:     info.NextSeq,
		Body: &types.SubmitEvent{
			Proposer: pv.Address(),
			PubKey:   pv.PublicKey(),
			Payload:  payload,
			StartSeq: startSeq,
			EndSeq:   endSeq,
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

	if submitArgs.NoSend {
		out, _ := types.MarshalEvent(ev)
		fmt.Println("signed event:", string(out))
		fmt.Println("signature:", hex.EncodeToString(sig))
		return
	}

	res, err := cli.BroadcastEvent(ev)
	if err != nil {
		fmt.Printf("broadcast event err:%v\n", err)
		return
	}
	fmt.Printf("proposal:%s seq:%d\n", res.Proposal, res.Seq)
}
