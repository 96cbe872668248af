package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noddao/governd/api"
	"github.com/noddao/governd/poe"
)

type verifyArguments struct {
	Url string
}

var verifyArgs verifyArguments

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Fetch the proof-of-execution chain and verify it locally",
	Long: `Downloads every artifact, recomputes each canonical hash and checks
the backward links. Verification is independent of the node's answer.`,
	Run: verifyRun,
}

func init() {
	urlFlag(verifyCmd, &verifyArgs.Url)
}

func verifyRun(cmd *cobra.Command, args []string) {
	cli := api.NewClient(verifyArgs.Url)
	res, err := cli.GetPoEChain(false)
	if err != nil {
		fmt.Printf("get poe chain err:%v\n", err)
		return
	}
	if err := poe.VerifyChain(res.Artifacts); err != nil {
		fmt.Printf("verification FAILED: %v\n", err)
		return
	}
	fmt.Printf("verified %d artifacts, chain intact\n", len(res.Artifacts))
	if n := len(res.Artifacts); n > 0 {
		fmt.Printf("tip: %s\n", res.Artifacts[n-1].ID.Hex())
	}
}
