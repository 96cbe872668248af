package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/noddao/governd/api"
	"github.com/noddao/governd/codec"
	"github.com/noddao/governd/types"
)

// Activation, finalization and execution are unsigned triggers: the
// engine decides purely from committed state and the trigger's sequence
// number, so anyone may send them.

type lifecycleArguments struct {
	Url      string
	Proposal string
}

var (
	activateArgs lifecycleArguments
	finalizeArgs lifecycleArguments
	executeArgs  lifecycleArguments
)

var activateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Open voting on a draft proposal",
	Long:  ``,
	Run: func(cmd *cobra.Command, args []string) {
		lifecycleRun(&activateArgs, types.EventTypeActivate)
	},
}

var finalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Close voting and decide PASSED or REJECTED",
	Long:  ``,
	Run: func(cmd *cobra.Command, args []string) {
		lifecycleRun(&finalizeArgs, types.EventTypeFinalize)
	},
}

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Apply a passed proposal to the parameter registry",
	Long:  ``,
	Run: func(cmd *cobra.Command, args []string) {
		lifecycleRun(&executeArgs, types.EventTypeExecute)
	},
}

func init() {
	for cmd, a := range map[*cobra.Command]*lifecycleArguments{
		activateCmd: &activateArgs,
		finalizeCmd: &finalizeArgs,
		executeCmd:  &executeArgs,
	} {
		urlFlag(cmd, &a.Url)
		cmd.Flags().StringVarP(&a.Proposal, "proposal", "p", "", "proposal id, hex")
	}
}

func lifecycleRun(a *lifecycleArguments, typ types.EventType) {
	cli := api.NewClient(a.Url)
	info, err := cli.ChainInfo()
	if err != nil {
		fmt.Printf("get chain info err:%v\n", err)
		return
	}

	id := common.HexToHash(a.Proposal)
	ev := &types.Event{
		Version: codec.Version,
		Type:    typ,
		Seq:     info.NextSeq,
	}
	switch typ {
	case types.EventTypeActivate:
		ev.Body = &types.ActivateEvent{Proposal: id}
	case types.EventTypeFinalize:
		ev.Body = &types.FinalizeEvent{Proposal: id}
	case types.EventTypeExecute:
		ev.Body = &types.ExecuteEvent{Proposal: id}
	}

	res, err := cli.BroadcastEvent(ev)
	if err != nil {
		fmt.Printf("broadcast event err:%v\n", err)
		return
	}
	fmt.Printf("applied at seq:%d\n", res.Seq)
}
